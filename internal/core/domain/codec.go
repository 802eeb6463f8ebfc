package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
)

var (
	planKeys = []string{"name", "dateFrom", "dateTo", "stops"}
	stopKeys = []string{"name", "label", "lat", "lng", "dateFrom", "dateTo", "notes", "imageUrl"}
)

// objectWriter emits a JSON object with keys in insertion order.
type objectWriter struct {
	buf   bytes.Buffer
	count int
}

func (w *objectWriter) field(key string, value any) error {
	data, err := marshalValue(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	w.raw(key, data)
	return nil
}

func (w *objectWriter) raw(key string, data []byte) {
	if w.count == 0 {
		w.buf.WriteByte('{')
	} else {
		w.buf.WriteByte(',')
	}
	k, _ := marshalValue(key)
	w.buf.Write(k)
	w.buf.WriteByte(':')
	w.buf.Write(data)
	w.count++
}

func (w *objectWriter) extras(extra Fields) {
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if json.Valid(extra[k]) {
			w.raw(k, extra[k])
		}
	}
}

func (w *objectWriter) bytes() []byte {
	if w.count == 0 {
		return []byte("{}")
	}
	w.buf.WriteByte('}')
	return w.buf.Bytes()
}

// marshalValue encodes without HTML escaping so notes keep their < and &.
func marshalValue(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// MarshalJSON writes the plan with a fixed key order. Stops is omitted only
// when it was absent on input.
func (p Plan) MarshalJSON() ([]byte, error) {
	var w objectWriter
	if err := w.field("name", p.Name); err != nil {
		return nil, err
	}
	if p.DateFrom != "" {
		_ = w.field("dateFrom", p.DateFrom)
	}
	if p.DateTo != "" {
		_ = w.field("dateTo", p.DateTo)
	}
	if p.Stops != nil {
		if err := w.field("stops", p.Stops); err != nil {
			return nil, err
		}
	}
	w.extras(p.Extra)
	return w.bytes(), nil
}

// MarshalJSON writes the stop with a fixed key order. Coordinates are always
// present so an unfinished stop survives the text view as null.
func (s Stop) MarshalJSON() ([]byte, error) {
	var w objectWriter
	_ = w.field("name", s.Name)
	if s.Label != "" {
		_ = w.field("label", s.Label)
	}
	_ = w.field("lat", finite(s.Lat))
	_ = w.field("lng", finite(s.Lng))
	for _, f := range []struct{ key, value string }{
		{"dateFrom", s.DateFrom},
		{"dateTo", s.DateTo},
		{"notes", s.Notes},
		{"imageUrl", s.ImageURL},
	} {
		if f.value != "" {
			_ = w.field(f.key, f.value)
		}
	}
	w.extras(s.Extra)
	return w.bytes(), nil
}

// UnmarshalJSON reads a plan object. Known keys must carry the expected JSON
// type; null is treated as absent.
func (p *Plan) UnmarshalJSON(data []byte) error {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("plan must be a JSON object: %w", err)
	}
	if obj == nil {
		return fmt.Errorf("plan must be a JSON object")
	}

	var out Plan
	if err := decodeString(obj, "name", &out.Name); err != nil {
		return err
	}
	if err := decodeString(obj, "dateFrom", &out.DateFrom); err != nil {
		return err
	}
	if err := decodeString(obj, "dateTo", &out.DateTo); err != nil {
		return err
	}
	if raw, ok := obj["stops"]; ok && !isNull(raw) {
		var stops []Stop
		if err := json.Unmarshal(raw, &stops); err != nil {
			return fmt.Errorf("field \"stops\": %w", err)
		}
		if stops == nil {
			stops = []Stop{}
		}
		out.Stops = stops
	}
	extra, err := collectExtras(obj, planKeys)
	if err != nil {
		return err
	}
	out.Extra = extra
	*p = out
	return nil
}

// UnmarshalJSON reads a stop object and keeps unknown keys in Extra.
func (s *Stop) UnmarshalJSON(data []byte) error {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("stop must be a JSON object: %w", err)
	}
	if obj == nil {
		return fmt.Errorf("stop must be a JSON object")
	}

	var out Stop
	for _, f := range []struct {
		key string
		dst *string
	}{
		{"name", &out.Name},
		{"label", &out.Label},
		{"dateFrom", &out.DateFrom},
		{"dateTo", &out.DateTo},
		{"notes", &out.Notes},
		{"imageUrl", &out.ImageURL},
	} {
		if err := decodeString(obj, f.key, f.dst); err != nil {
			return err
		}
	}
	var err error
	if out.Lat, err = decodeNumber(obj, "lat"); err != nil {
		return err
	}
	if out.Lng, err = decodeNumber(obj, "lng"); err != nil {
		return err
	}
	if out.Extra, err = collectExtras(obj, stopKeys); err != nil {
		return err
	}
	*s = out
	return nil
}

// finite maps NaN and infinities to null; JSON has no encoding for them.
func finite(v *float64) *float64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return nil
	}
	return v
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func decodeString(obj map[string]json.RawMessage, key string, dst *string) error {
	raw, ok := obj[key]
	if !ok || isNull(raw) {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("field %q must be a string", key)
	}
	return nil
}

func decodeNumber(obj map[string]json.RawMessage, key string) (*float64, error) {
	raw, ok := obj[key]
	if !ok || isNull(raw) {
		return nil, nil
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("field %q must be a number", key)
	}
	return &v, nil
}

func collectExtras(obj map[string]json.RawMessage, known []string) (Fields, error) {
	var extra Fields
	for k, raw := range obj {
		if contains(known, k) {
			continue
		}
		var buf bytes.Buffer
		if err := json.Compact(&buf, raw); err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		if extra == nil {
			extra = make(Fields)
		}
		extra[k] = buf.Bytes()
	}
	return extra, nil
}

func contains(keys []string, k string) bool {
	for _, key := range keys {
		if key == k {
			return true
		}
	}
	return false
}
