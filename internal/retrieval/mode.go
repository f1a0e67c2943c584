package retrieval

import (
	"fmt"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/answer-type-search/pkg/errors"
)

// Mode selects the retrieval strategy.
type Mode int

const (
	// EntityCentric searches entity documents and aggregates hits into types.
	EntityCentric Mode = iota + 1
	// TypeCentric searches type documents directly, one request per term.
	TypeCentric
)

// ParseMode accepts "EC" or "TC" in any case.
func ParseMode(s string) (Mode, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "EC":
		return EntityCentric, nil
	case "TC":
		return TypeCentric, nil
	}
	return 0, fmt.Errorf("%w: %q", apperrors.ErrUnknownMode, s)
}

func (m Mode) String() string {
	switch m {
	case EntityCentric:
		return "EC"
	case TypeCentric:
		return "TC"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// Similarity selects the ranking function of the index. Default is the
// index's built-in TF-IDF scoring. Custom attaches per-type weights to type
// documents.
type Similarity int

const (
	Default Similarity = iota
	Custom
)

func ParseSimilarity(s string) (Similarity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "default":
		return Default, nil
	case "custom":
		return Custom, nil
	}
	return 0, fmt.Errorf("%w: similarity %q", apperrors.ErrInvalidInput, s)
}

func (s Similarity) String() string {
	if s == Custom {
		return "custom"
	}
	return "default"
}
