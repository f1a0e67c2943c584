package triple

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/transform"

	"github.com/Adithya-Monish-Kumar-K/answer-type-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/answer-type-search/pkg/errors"
)

// ctxCheckEvery is how many lines are read between context checks.
const ctxCheckEvery = 4096

// Source is one triple file and the character encoding it is stored in.
// An empty Encoding means UTF-8.
type Source struct {
	Path     string `json:"path"`
	Encoding string `json:"encoding,omitempty"`
}

// FromConfig converts a configured source.
func FromConfig(c config.SourceConfig) Source {
	return Source{Path: c.Path, Encoding: c.Encoding}
}

// SourceUnavailableError is returned when a raw source file cannot be opened
// or decoded.
type SourceUnavailableError struct {
	Path string
	Err  error
}

func (e *SourceUnavailableError) Error() string {
	return fmt.Sprintf("source %s unavailable: %v", e.Path, e.Err)
}

func (e *SourceUnavailableError) Unwrap() []error {
	return []error{apperrors.ErrSourceUnavailable, e.Err}
}

// Handler receives every parsed triple of a file. Returning an error stops
// the read and the error is returned from ReadFile.
type Handler func(Triple) error

// ReadFile streams the triples of src to fn. Comment and blank lines are
// skipped. A malformed line aborts the whole file.
func ReadFile(ctx context.Context, src Source, fn Handler) error {
	f, err := os.Open(src.Path)
	if err != nil {
		return &SourceUnavailableError{Path: src.Path, Err: err}
	}
	defer f.Close()

	r, err := decoder(f, src.Encoding)
	if err != nil {
		return &SourceUnavailableError{Path: src.Path, Err: err}
	}
	if err := Read(ctx, r, fn); err != nil {
		return fmt.Errorf("reading %s: %w", src.Path, err)
	}
	return nil
}

// Read streams the triples of r to fn.
func Read(ctx context.Context, r io.Reader, fn Handler) error {
	br := bufio.NewReaderSize(r, 1<<20)
	lineNo := 0
	for {
		line, readErr := br.ReadString('\n')
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return fmt.Errorf("reading line %d: %w", lineNo+1, readErr)
		}
		if line != "" {
			lineNo++
			if lineNo%ctxCheckEvery == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}
			if err := handleLine(line, lineNo, fn); err != nil {
				return err
			}
		}
		if readErr != nil {
			return nil
		}
	}
}

func handleLine(line string, lineNo int, fn Handler) error {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return nil
	}
	t, err := Parse(line)
	if err != nil {
		var mErr *MalformedTripleError
		if errors.As(err, &mErr) {
			mErr.Line = lineNo
		}
		return err
	}
	return fn(t)
}

// decoder wraps r so it yields UTF-8 regardless of the file's charset.
func decoder(r io.Reader, name string) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8":
		return r, nil
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return nil, fmt.Errorf("unknown encoding %q: %w", name, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("unsupported encoding %q", name)
	}
	if enc == encoding.Nop {
		return r, nil
	}
	return transform.NewReader(r, enc.NewDecoder()), nil
}

// Iterator yields a stream of triples to fn.
type Iterator func(ctx context.Context, fn Handler) error

// FromSources chains the files of srcs in order.
func FromSources(srcs ...Source) Iterator {
	return func(ctx context.Context, fn Handler) error {
		for _, src := range srcs {
			if err := ReadFile(ctx, src, fn); err != nil {
				return err
			}
		}
		return nil
	}
}

// FromSlice yields already parsed triples.
func FromSlice(triples []Triple) Iterator {
	return func(ctx context.Context, fn Handler) error {
		for _, t := range triples {
			if err := fn(t); err != nil {
				return err
			}
		}
		return nil
	}
}
