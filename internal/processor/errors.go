package processor

import "fmt"

// DecodeError means the source bytes are not a recognizable image.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string { return fmt.Sprintf("decode image: %v", e.Err) }
func (e *DecodeError) Unwrap() error { return e.Err }

// UnsupportedFormatError means the spec asks for a format outside the catalog table.
type UnsupportedFormatError struct {
	Format string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported variant format: %s", e.Format)
}

// EncodeError means resize or compression failed for an otherwise valid source.
type EncodeError struct {
	Format string
	Err    error
}

func (e *EncodeError) Error() string { return fmt.Sprintf("encode %s: %v", e.Format, e.Err) }
func (e *EncodeError) Unwrap() error { return e.Err }
