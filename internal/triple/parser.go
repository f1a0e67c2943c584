// Package triple parses the line-oriented subject-predicate-object dumps the
// pipeline is built from. Each line holds one statement:
//
//	<subject-uri> <predicate-uri> <object-uri> .
//	<subject-uri> <predicate-uri> "object literal"@en .
//
// Lines starting with '#' are comments. The reader skips them; Parse does not.
package triple

import (
	"fmt"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/answer-type-search/pkg/errors"
)

// Triple is one parsed statement. For URI objects Object holds the URI
// without its angle brackets; for literals it holds the text between the
// first and the last double quote of the line.
type Triple struct {
	Subject         string
	Predicate       string
	Object          string
	ObjectIsLiteral bool
}

// MalformedTripleError reports a line that does not follow the triple format.
type MalformedTripleError struct {
	Line   int
	Text   string
	Reason string
}

func (e *MalformedTripleError) Error() string {
	text := e.Text
	if len(text) > 120 {
		text = text[:120] + "..."
	}
	if e.Line > 0 {
		return fmt.Sprintf("malformed triple at line %d (%s): %q", e.Line, e.Reason, text)
	}
	return fmt.Sprintf("malformed triple (%s): %q", e.Reason, text)
}

func (e *MalformedTripleError) Unwrap() error {
	return apperrors.ErrMalformedTriple
}

func malformed(line, reason string) error {
	return &MalformedTripleError{Text: line, Reason: reason}
}

// Parse splits one serialized line into a Triple.
func Parse(line string) (Triple, error) {
	rest := strings.TrimRight(line, "\r\n")

	subject, rest, err := parseURI(rest)
	if err != nil {
		return Triple{}, malformed(line, "subject: "+err.Error())
	}
	predicate, rest, err := parseURI(rest)
	if err != nil {
		return Triple{}, malformed(line, "predicate: "+err.Error())
	}

	t := Triple{Subject: subject, Predicate: predicate}
	switch {
	case strings.HasPrefix(rest, "<"):
		end := strings.IndexByte(rest, ' ')
		if end < 0 {
			end = len(rest)
		}
		uri := rest[:end]
		if len(uri) < 2 || uri[len(uri)-1] != '>' {
			return Triple{}, malformed(line, "object: unterminated uri")
		}
		t.Object = uri[1 : len(uri)-1]
	case strings.HasPrefix(rest, `"`):
		// The dumps do not escape quotes inside literals, so everything
		// between the first and the last quote belongs to the value.
		segments := strings.Split(rest, `"`)
		if len(segments) < 3 {
			return Triple{}, malformed(line, "object: unterminated literal")
		}
		t.Object = strings.Join(segments[1:len(segments)-1], `"`)
		t.ObjectIsLiteral = true
	default:
		return Triple{}, malformed(line, "object: neither uri nor literal")
	}
	return t, nil
}

// parseURI consumes a "<...>" term followed by a space and returns the URI
// without its delimiters together with the remainder of the line.
func parseURI(s string) (string, string, error) {
	if !strings.HasPrefix(s, "<") {
		return "", "", fmt.Errorf("missing '<' delimiter")
	}
	end := strings.IndexByte(s, ' ')
	if end < 0 {
		return "", "", fmt.Errorf("missing separator")
	}
	if end < 2 || s[end-1] != '>' {
		return "", "", fmt.Errorf("missing '>' delimiter")
	}
	return s[1 : end-1], s[end+1:], nil
}
