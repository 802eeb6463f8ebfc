package editor_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samirrijal/planpresso/internal/core/domain"
	"github.com/samirrijal/planpresso/internal/core/editor"
)

func samplePlans() map[string]domain.Plan {
	withExtras := domain.ExamplePlan()
	withExtras.Extra = domain.Fields{"theme": json.RawMessage(`{"accent":"#ff0000"}`)}
	withExtras.Stops[2].Extra = domain.Fields{"foo": json.RawMessage(`"bar"`), "tags": json.RawMessage(`[1,2,3]`)}

	return map[string]domain.Plan{
		"example":     domain.ExamplePlan(),
		"with extras": withExtras,
		"empty stops": {Name: "Nothing yet", Stops: []domain.Stop{}},
		"no stops":    {Name: "Missing"},
		"incomplete":  {Name: "x", DateFrom: "2025-01-01", Stops: []domain.Stop{{Label: "somewhere", Notes: "<b>bold</b> & co"}}},
	}
}

func TestFromText_RoundTrip(t *testing.T) {
	for name, p := range samplePlans() {
		t.Run(name, func(t *testing.T) {
			got, err := editor.FromText(editor.ToText(p))
			require.NoError(t, err)
			assert.Equal(t, p, *got)
		})
	}
}

func TestToText_Idempotent(t *testing.T) {
	for name, p := range samplePlans() {
		t.Run(name, func(t *testing.T) {
			first := editor.ToText(p)
			parsed, err := editor.FromText(first)
			require.NoError(t, err)
			assert.Equal(t, first, editor.ToText(*parsed))
		})
	}
}

func TestToText_Layout(t *testing.T) {
	p := domain.Plan{
		Name:  "Trip",
		Stops: []domain.Stop{{Name: "A", Lat: domain.Float(50), Lng: domain.Float(14.5), Notes: "a < b"}},
	}
	want := `{
  "name": "Trip",
  "stops": [
    {
      "name": "A",
      "lat": 50,
      "lng": 14.5,
      "notes": "a < b"
    }
  ]
}`
	assert.Equal(t, want, editor.ToText(p))
}

func TestFromText_AcceptsCommentsAndTrailingCommas(t *testing.T) {
	text := `{
  // working title
  "name": "Trip", /* block */
  "stops": [
    {"name": "A", "lat": 1, "lng": 2,},
  ],
}`
	p, err := editor.FromText(text)
	require.NoError(t, err)
	assert.Equal(t, "Trip", p.Name)
	require.Len(t, p.Stops, 1)
	assert.Equal(t, 2.0, *p.Stops[0].Lng)
}

func TestFromText_ParseFailures(t *testing.T) {
	for _, text := range []string{
		``,
		`   `,
		`{"name": "x"`,
		`[1, 2]`,
		`"just a string"`,
		`{"name": "x"} {"name": "y"}`,
		`{"name": "x", "stops": [{"lat": "50"}]}`,
	} {
		_, err := editor.FromText(text)
		require.Error(t, err, "text %q", text)
		assert.ErrorIs(t, err, domain.ErrParse, "text %q", text)
	}
}

func TestFormat(t *testing.T) {
	out, err := editor.Format(`{"stops":[{"lng":2,"name":"A","lat":1}],"name":"T"}`)
	require.NoError(t, err)
	assert.Equal(t, editor.ToText(domain.Plan{
		Name:  "T",
		Stops: []domain.Stop{{Name: "A", Lat: domain.Float(1), Lng: domain.Float(2)}},
	}), out)

	bad := `{"name": `
	out, err = editor.Format(bad)
	assert.Error(t, err)
	assert.Equal(t, bad, out)
}
