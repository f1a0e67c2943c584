// Package artifact persists the JSON artifacts every pipeline stage produces
// and memoizes their construction.
package artifact

import (
	"context"
	"fmt"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/answer-type-search/pkg/errors"
)

// ErrNotFound is returned by Store.Load for keys that were never saved.
var ErrNotFound = apperrors.ErrArtifactNotFound

// Store is a flat key -> bytes namespace. Save replaces the whole value.
type Store interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
	DeletePrefix(ctx context.Context, prefix string) (int, error)
}

// Key derives the artifact name for kind and its build parameters. Empty
// parameters are skipped, so Key("document", "EC", "") is "document_EC.json".
func Key(kind string, params ...string) string {
	parts := []string{kind}
	for _, p := range params {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, "_") + ".json"
}

// Kind returns the metric label for key: the key without its extension.
func Kind(key string) string {
	return strings.TrimSuffix(key, ".json")
}

func validateKey(key string) error {
	if key == "" || strings.ContainsAny(key, `/\`) || strings.HasPrefix(key, ".") {
		return fmt.Errorf("%w: artifact key %q", apperrors.ErrInvalidInput, key)
	}
	return nil
}
