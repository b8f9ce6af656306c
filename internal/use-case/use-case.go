package use_case

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/gabriel-vasile/mimetype"

	"github.com/mitchellrust/Hubletix-sub002/internal/entities"
)

// ErrMalformedKey is a fatal parsing failure: no variant can be produced,
// so there is nothing partial to report.
var ErrMalformedKey = errors.New("malformed image key")

type Storage interface {
	Download(ctx context.Context, key string) ([]byte, string, error)
	Upload(ctx context.Context, key string, contentType string, payload []byte) error
}

type Encoder interface {
	Encode(data []byte, spec entities.VariantSpec) (*entities.EncodedVariant, error)
}

// Orchestrator fetches a source image once and fans out to the encoder for
// every entry of the variant catalog, uploading each result under its
// deterministic key.
type Orchestrator struct {
	storage     Storage
	encoder     Encoder
	catalog     []entities.VariantSpec
	concurrency int
}

func New(storage Storage, encoder Encoder, catalog []entities.VariantSpec, concurrency int) *Orchestrator {
	if concurrency <= 0 || concurrency > len(catalog) {
		concurrency = len(catalog)
	}
	return &Orchestrator{
		storage:     storage,
		encoder:     encoder,
		catalog:     catalog,
		concurrency: concurrency,
	}
}

// ParseImageKey splits a "tenant-{tenantId}/{imageId}" source key.
func ParseImageKey(key string) (tenantID, imageID string, err error) {
	prefix, imageID, ok := strings.Cut(key, "/")
	if !ok || imageID == "" || strings.Contains(imageID, "/") {
		return "", "", fmt.Errorf("parse image key %q: %w", key, ErrMalformedKey)
	}
	tenantID = strings.TrimPrefix(prefix, "tenant-")
	if tenantID == prefix || tenantID == "" {
		return "", "", fmt.Errorf("parse image key %q: %w", key, ErrMalformedKey)
	}
	return tenantID, imageID, nil
}

// Process runs one invocation. Fatal conditions (malformed key, source fetch
// failure) return an error; per-variant failures are captured in the result
// and never abort the remaining variants. Even an all-failed invocation
// returns a result rather than an error.
func (o *Orchestrator) Process(ctx context.Context, ref entities.SourceImageRef) (*entities.ProcessingResult, error) {
	tenantID, imageID, err := ParseImageKey(ref.ImageKey)
	if err != nil {
		return nil, err
	}

	src, _, err := o.storage.Download(ctx, ref.ImageKey)
	if err != nil {
		return nil, fmt.Errorf("fetch source %q: %w", ref.ImageKey, err)
	}

	log.Printf("[hero-pipeline] source key=%s type=%s size=%d variants=%d",
		ref.ImageKey, mimetype.Detect(src), len(src), len(o.catalog))

	result := &entities.ProcessingResult{
		TenantID:       tenantID,
		ImageID:        imageID,
		FailedVariants: make(map[string]string),
	}

	// The source bytes are read-only and shared across the fan-out; each
	// task owns its output buffer until the upload returns.
	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, o.concurrency)
	)

	for _, spec := range o.catalog {
		wg.Add(1)
		sem <- struct{}{}
		go func(spec entities.VariantSpec) {
			defer wg.Done()
			defer func() { <-sem }()

			ref2, err := o.processVariant(ctx, ref.ImageKey, src, spec)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.Printf("[hero-pipeline] variant %s failed: %v", spec.Label(), err)
				result.FailedVariants[spec.Label()] = err.Error()
				return
			}
			result.SuccessfulVariants = append(result.SuccessfulVariants, ref2)
		}(spec)
	}
	wg.Wait()

	return result, nil
}

// processVariant encodes and uploads a single catalog entry. The encoded
// payload is discarded as soon as the upload call returns.
func (o *Orchestrator) processVariant(ctx context.Context, imageKey string, src []byte, spec entities.VariantSpec) (entities.VariantRef, error) {
	variant, err := o.encoder.Encode(src, spec)
	if err != nil {
		return entities.VariantRef{}, err
	}

	variant.StorageKey = spec.StorageKey(imageKey)
	if err := o.storage.Upload(ctx, variant.StorageKey, variant.ContentType, variant.Bytes); err != nil {
		return entities.VariantRef{}, err
	}

	return variant.Ref(), nil
}
