// Package photostore persists processed report photos and turns the photo
// lists submitted with a report into stable /api/photos/{id} references.
package photostore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/singhkkrish/traceit/internal/apperr"
	"github.com/singhkkrish/traceit/internal/imaging"
)

// PathPrefix is the URL path under which stored photos are served.
const PathPrefix = "/api/photos/"

// Store holds photo bytes by ID. Get returns nil data for unknown IDs.
type Store interface {
	Put(ctx context.Context, id string, data []byte, mime string) error
	Get(ctx context.Context, id string) ([]byte, string, error)
}

// Path returns the public reference for a stored photo.
func Path(id string) string {
	return PathPrefix + id
}

// IDFromPath extracts the photo ID from a reference produced by Path.
func IDFromPath(p string) (string, bool) {
	id, ok := strings.CutPrefix(p, PathPrefix)
	if !ok || uuid.Validate(id) != nil {
		return "", false
	}
	return id, true
}

// Ingest resolves the photos submitted with a report. Inline data URLs are
// processed and stored; existing references are kept. Anything else, or more
// than limit entries, is a validation error.
func Ingest(ctx context.Context, s Store, photos []string, limit int) ([]string, error) {
	if len(photos) > limit {
		return nil, apperr.Invalid("photos", fmt.Sprintf("at most %d photos allowed", limit))
	}

	out := make([]string, 0, len(photos))
	for _, p := range photos {
		if _, ok := IDFromPath(p); ok {
			out = append(out, p)
			continue
		}
		if !imaging.IsDataURL(p) {
			return nil, apperr.Invalid("photos", "photo must be an image data URL")
		}

		photo, err := imaging.ProcessDataURL(p)
		if err != nil {
			if errors.Is(err, imaging.ErrUnsupportedFormat) || errors.Is(err, imaging.ErrInvalidDataURL) ||
				errors.Is(err, imaging.ErrTooLarge) {
				return nil, apperr.Invalid("photos", err.Error())
			}
			return nil, apperr.Invalid("photos", "could not decode image")
		}

		id := uuid.NewString()
		if err := s.Put(ctx, id, photo.Data, photo.MIME); err != nil {
			return nil, fmt.Errorf("storing photo: %w", err)
		}
		out = append(out, Path(id))
	}
	return out, nil
}
