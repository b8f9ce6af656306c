package entities

import "fmt"

// Supported target encodings for hero image variants.
const (
	FormatAVIF = "avif"
	FormatWebP = "webp"
	FormatJPEG = "jpeg"
	FormatPNG  = "png"
)

// SourceImageRef is the payload of one hero-image-changed notification.
// ImageKey is the storage path of the source object, "tenant-{tenantId}/{imageId}".
type SourceImageRef struct {
	CanonicalURL string `json:"canonicalUrl"`
	ImageKey     string `json:"imageKey" validate:"required"`
}

// VariantSpec is one entry of the static variant catalog.
type VariantSpec struct {
	Width   int    `json:"width"`
	Format  string `json:"format"`
	Quality int    `json:"quality"`
	Version string `json:"version"`
}

// Label is the stable per-variant identifier used in failure maps and logs.
func (s VariantSpec) Label() string {
	return fmt.Sprintf("%dw-%s-q%d", s.Width, s.Format, s.Quality)
}

// StorageKey derives the deterministic object key for this spec.
// Re-processing the same source overwrites the same keys, so redelivery is safe.
func (s VariantSpec) StorageKey(imageKey string) string {
	return fmt.Sprintf("%s-%dw-%s-q%d-%s.%s", imageKey, s.Width, s.Format, s.Quality, s.Version, FormatExtension(s.Format))
}

type formatInfo struct {
	Extension   string
	ContentType string
}

// New formats are added here, not by branching in the encoder or orchestrator.
var formats = map[string]formatInfo{
	FormatAVIF: {Extension: "avif", ContentType: "image/avif"},
	FormatWebP: {Extension: "webp", ContentType: "image/webp"},
	FormatJPEG: {Extension: "jpg", ContentType: "image/jpeg"},
	FormatPNG:  {Extension: "png", ContentType: "image/png"},
}

func FormatExtension(format string) string {
	if fi, ok := formats[format]; ok {
		return fi.Extension
	}
	return "bin"
}

func FormatContentType(format string) string {
	if fi, ok := formats[format]; ok {
		return fi.ContentType
	}
	return "application/octet-stream"
}

// EncodedVariant is the encoder output for one spec. Bytes are held only for
// the duration of the upload and never serialized.
type EncodedVariant struct {
	Width       int    `json:"width"`
	Format      string `json:"format"`
	Quality     int    `json:"quality"`
	Version     string `json:"version"`
	StorageKey  string `json:"storage_key"`
	ContentType string `json:"content_type"`
	Bytes       []byte `json:"-"`
}

// Ref returns the variant metadata without the payload bytes.
func (v EncodedVariant) Ref() VariantRef {
	return VariantRef{
		Width:       v.Width,
		Format:      v.Format,
		Quality:     v.Quality,
		Version:     v.Version,
		StorageKey:  v.StorageKey,
		ContentType: v.ContentType,
	}
}

// VariantRef is the byte-free metadata of a stored variant.
type VariantRef struct {
	Width       int    `json:"width"`
	Format      string `json:"format"`
	Quality     int    `json:"quality"`
	Version     string `json:"version"`
	StorageKey  string `json:"storage_key"`
	ContentType string `json:"content_type"`
}

// ProcessingResult is produced once per invocation. Every catalog entry is
// accounted for exactly once across SuccessfulVariants and FailedVariants.
type ProcessingResult struct {
	ImageID            string            `json:"image_id"`
	TenantID           string            `json:"tenant_id"`
	SuccessfulVariants []VariantRef      `json:"successful_variants"`
	FailedVariants     map[string]string `json:"failed_variants"`
}

func (r *ProcessingResult) AnyVariantsProcessed() bool {
	return len(r.SuccessfulVariants) > 0
}
