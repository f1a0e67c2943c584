package triple

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"

	apperrors "github.com/Adithya-Monish-Kumar-K/answer-type-search/pkg/errors"
)

func collect(t *testing.T, src Source) ([]Triple, error) {
	t.Helper()
	var out []Triple
	err := ReadFile(context.Background(), src, func(tr Triple) error {
		out = append(out, tr)
		return nil
	})
	return out, err
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestReadFileSkipsCommentsAndBlankLines(t *testing.T) {
	path := writeFile(t, "types.ttl", []byte(strings.Join([]string{
		"# started 2016-10-01T00:00:00Z",
		"<a> <p> <b> .",
		"",
		"   ",
		`<a> <q> "text"@en .`,
		"# completed",
	}, "\n")))

	got, err := collect(t, Source{Path: path})
	require.NoError(t, err)
	assert.Equal(t, []Triple{
		{Subject: "a", Predicate: "p", Object: "b"},
		{Subject: "a", Predicate: "q", Object: "text", ObjectIsLiteral: true},
	}, got)
}

func TestReadFileLastLineWithoutNewline(t *testing.T) {
	path := writeFile(t, "one.ttl", []byte("<a> <p> <b> ."))
	got, err := collect(t, Source{Path: path})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].Object)
}

func TestReadFileDecodesLatin1(t *testing.T) {
	raw, err := charmap.ISO8859_1.NewEncoder().String(`<http://dbpedia.org/resource/Malm%C3%B6> <p> "Malmö är en stad"@sv .` + "\n")
	require.NoError(t, err)
	path := writeFile(t, "latin1.ttl", []byte(raw))

	got, err := collect(t, Source{Path: path, Encoding: "ISO-8859-1"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Malmö är en stad", got[0].Object)
}

func TestReadFileUnknownEncoding(t *testing.T) {
	path := writeFile(t, "x.ttl", []byte("<a> <p> <b> .\n"))
	_, err := collect(t, Source{Path: path, Encoding: "no-such-charset"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrSourceUnavailable))
}

func TestReadFileMissingSource(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "absent.ttl")
	_, err := collect(t, Source{Path: missing})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrSourceUnavailable))

	var sErr *SourceUnavailableError
	require.True(t, errors.As(err, &sErr))
	assert.Equal(t, missing, sErr.Path)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestReadFileMalformedLineFailsWholeFile(t *testing.T) {
	path := writeFile(t, "bad.ttl", []byte("<a> <p> <b> .\n# note\n<a> p <b> .\n<c> <p> <d> .\n"))

	got, err := collect(t, Source{Path: path})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrMalformedTriple))

	var mErr *MalformedTripleError
	require.True(t, errors.As(err, &mErr))
	assert.Equal(t, 3, mErr.Line)
	assert.Len(t, got, 1, "lines after the malformed one must not be delivered")
}

func TestReadFileHandlerErrorStops(t *testing.T) {
	path := writeFile(t, "two.ttl", []byte("<a> <p> <b> .\n<c> <p> <d> .\n"))
	stop := errors.New("stop")
	calls := 0
	err := ReadFile(context.Background(), Source{Path: path}, func(Triple) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestReadLongLines(t *testing.T) {
	long := strings.Repeat("word ", 400000)
	line := `<a> <p> "` + long + `"@en .` + "\n"

	var got []Triple
	err := Read(context.Background(), strings.NewReader(line), func(tr Triple) error {
		got = append(got, tr)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, long, got[0].Object)
}

func TestReadHonoursCancellation(t *testing.T) {
	var b strings.Builder
	for i := 0; i < ctxCheckEvery*2; i++ {
		b.WriteString("<a> <p> <b> .\n")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Read(ctx, strings.NewReader(b.String()), func(Triple) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}
