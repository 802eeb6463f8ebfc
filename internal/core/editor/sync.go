package editor

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"

	"github.com/tidwall/jsonc"

	"github.com/samirrijal/planpresso/internal/core/domain"
)

// ToText serializes a plan for the text view: two-space indent, fixed key
// order, unknown keys sorted after the known ones.
func ToText(p domain.Plan) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	// Plan and Stop encoders drop values JSON cannot carry, so Encode only
	// fails on a broken writer.
	_ = enc.Encode(p)
	return string(bytes.TrimRight(buf.Bytes(), "\n"))
}

// FromText parses the text view. Comments and trailing commas are accepted;
// the document must be a single JSON object. Failures match domain.ErrParse.
func FromText(text string) (*domain.Plan, error) {
	data := bytes.TrimSpace(jsonc.ToJSON([]byte(text)))
	if len(data) == 0 {
		return nil, &domain.ParseError{Err: errors.New("document is empty")}
	}
	if data[0] != '{' {
		return nil, &domain.ParseError{Err: errors.New("document must be a JSON object")}
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	var p domain.Plan
	if err := dec.Decode(&p); err != nil {
		return nil, &domain.ParseError{Err: err}
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, &domain.ParseError{Err: errors.New("unexpected content after the plan object")}
	}
	return &p, nil
}

// Format re-serializes text in canonical form. Text that does not parse is
// returned unchanged with the parse error.
func Format(text string) (string, error) {
	p, err := FromText(text)
	if err != nil {
		return text, err
	}
	return ToText(*p), nil
}
