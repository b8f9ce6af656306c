package processor

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"github.com/mitchellrust/Hubletix-sub002/internal/entities"
)

// makeJPEG renders a gradient so lossy encoders have real content to chew on.
func makeJPEG(t *testing.T, width, height int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8(x * 255 / width),
				G: uint8(y * 255 / height),
				B: uint8((x + y) % 255),
				A: 255,
			})
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	return buf.Bytes()
}

func TestEncodeResizePreservesAspectRatio(t *testing.T) {
	src := makeJPEG(t, 2000, 1200)
	enc := NewVariantEncoder()

	v, err := enc.Encode(src, entities.VariantSpec{Width: 320, Format: entities.FormatJPEG, Quality: 80, Version: "v1"})
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}

	out, _, err := image.Decode(bytes.NewReader(v.Bytes))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	b := out.Bounds()
	if b.Dx() != 320 {
		t.Errorf("output width = %d, want 320", b.Dx())
	}
	if b.Dy() != 192 {
		t.Errorf("output height = %d, want 192 (aspect ratio preserved)", b.Dy())
	}
	if v.ContentType != "image/jpeg" {
		t.Errorf("content type = %q", v.ContentType)
	}
	if v.StorageKey != "" {
		t.Errorf("encoder must not derive storage keys, got %q", v.StorageKey)
	}
}

func TestEncodeWebP(t *testing.T) {
	src := makeJPEG(t, 400, 300)
	enc := NewVariantEncoder()

	v, err := enc.Encode(src, entities.VariantSpec{Width: 200, Format: entities.FormatWebP, Quality: 75, Version: "v1"})
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	if len(v.Bytes) == 0 {
		t.Fatal("empty webp output")
	}
	if !bytes.HasPrefix(v.Bytes, []byte("RIFF")) || !bytes.Contains(v.Bytes[:16], []byte("WEBP")) {
		t.Errorf("output is not a webp container: % x", v.Bytes[:16])
	}
}

func TestEncodeAVIF(t *testing.T) {
	src := makeJPEG(t, 64, 40)
	enc := NewVariantEncoder()

	v, err := enc.Encode(src, entities.VariantSpec{Width: 32, Format: entities.FormatAVIF, Quality: 50, Version: "v1"})
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	if len(v.Bytes) == 0 {
		t.Fatal("empty avif output")
	}
	if v.ContentType != "image/avif" {
		t.Errorf("content type = %q", v.ContentType)
	}
}

func TestEncodeDeterministic(t *testing.T) {
	src := makeJPEG(t, 400, 300)
	enc := NewVariantEncoder()
	spec := entities.VariantSpec{Width: 200, Format: entities.FormatJPEG, Quality: 80, Version: "v1"}

	a, err := enc.Encode(src, spec)
	if err != nil {
		t.Fatalf("first encode: %v", err)
	}
	b, err := enc.Encode(src, spec)
	if err != nil {
		t.Fatalf("second encode: %v", err)
	}
	if !bytes.Equal(a.Bytes, b.Bytes) {
		t.Error("same source and spec produced different bytes")
	}
}

func TestEncodeErrors(t *testing.T) {
	src := makeJPEG(t, 100, 100)
	enc := NewVariantEncoder()

	t.Run("unrecognizable input", func(t *testing.T) {
		_, err := enc.Encode([]byte("definitely not an image"), entities.VariantSpec{Width: 100, Format: entities.FormatJPEG, Quality: 80})
		var decodeErr *DecodeError
		if !errors.As(err, &decodeErr) {
			t.Errorf("want DecodeError, got %v", err)
		}
	})

	t.Run("unsupported format", func(t *testing.T) {
		_, err := enc.Encode(src, entities.VariantSpec{Width: 100, Format: "tiff", Quality: 80})
		var unsupported *UnsupportedFormatError
		if !errors.As(err, &unsupported) {
			t.Errorf("want UnsupportedFormatError, got %v", err)
		}
		if unsupported != nil && unsupported.Format != "tiff" {
			t.Errorf("Format = %q", unsupported.Format)
		}
	})

	t.Run("invalid width", func(t *testing.T) {
		_, err := enc.Encode(src, entities.VariantSpec{Width: 0, Format: entities.FormatJPEG, Quality: 80})
		var encErr *EncodeError
		if !errors.As(err, &encErr) {
			t.Errorf("want EncodeError, got %v", err)
		}
	})

	t.Run("invalid quality", func(t *testing.T) {
		_, err := enc.Encode(src, entities.VariantSpec{Width: 100, Format: entities.FormatWebP, Quality: 400})
		var encErr *EncodeError
		if !errors.As(err, &encErr) {
			t.Errorf("want EncodeError, got %v", err)
		}
	})
}
