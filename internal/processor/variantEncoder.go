package processor

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif" // register GIF decoder for image.Decode
	"image/jpeg"
	"image/png"
	"io"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/gen2brain/avif"

	"github.com/mitchellrust/Hubletix-sub002/internal/entities"
)

// encodeFunc writes img to w at the given quality.
type encodeFunc func(w io.Writer, img image.Image, quality int) error

// One entry per supported target format. chai2010/webp and gen2brain/avif
// register their decoders with image.Decode as an import side effect, so the
// same table drives decode support for webp/avif sources.
var encoders = map[string]encodeFunc{
	entities.FormatJPEG: func(w io.Writer, img image.Image, quality int) error {
		return jpeg.Encode(w, img, &jpeg.Options{Quality: quality})
	},
	entities.FormatPNG: func(w io.Writer, img image.Image, _ int) error {
		// PNG is lossless; quality is ignored.
		return png.Encode(w, img)
	},
	entities.FormatWebP: func(w io.Writer, img image.Image, quality int) error {
		return webp.Encode(w, img, &webp.Options{Lossless: false, Quality: float32(quality)})
	},
	entities.FormatAVIF: func(w io.Writer, img image.Image, quality int) error {
		return avif.Encode(w, img, avif.Options{Quality: quality, Speed: 8})
	},
}

// VariantEncoder turns source bytes into encoded variants. It is stateless
// and safe to call concurrently against the same input bytes.
type VariantEncoder struct{}

func NewVariantEncoder() *VariantEncoder {
	return &VariantEncoder{}
}

// Encode decodes data, scales it to spec.Width preserving aspect ratio
// (Lanczos resampling, held constant for reproducible output) and re-encodes
// it in spec.Format at spec.Quality. The returned variant carries no storage
// key; the orchestrator derives it.
func (e *VariantEncoder) Encode(data []byte, spec entities.VariantSpec) (*entities.EncodedVariant, error) {
	encode, ok := encoders[spec.Format]
	if !ok {
		return nil, &UnsupportedFormatError{Format: spec.Format}
	}
	if spec.Width <= 0 {
		return nil, &EncodeError{Format: spec.Format, Err: fmt.Errorf("invalid width: %d", spec.Width)}
	}
	if spec.Format != entities.FormatPNG && (spec.Quality < 1 || spec.Quality > 100) {
		return nil, &EncodeError{Format: spec.Format, Err: fmt.Errorf("invalid quality: %d", spec.Quality)}
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &DecodeError{Err: err}
	}

	resized := imaging.Resize(img, spec.Width, 0, imaging.Lanczos)

	var buf bytes.Buffer
	if err := encode(&buf, resized, spec.Quality); err != nil {
		return nil, &EncodeError{Format: spec.Format, Err: err}
	}

	return &entities.EncodedVariant{
		Width:       spec.Width,
		Format:      spec.Format,
		Quality:     spec.Quality,
		Version:     spec.Version,
		ContentType: entities.FormatContentType(spec.Format),
		Bytes:       buf.Bytes(),
	}, nil
}
