package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/samirrijal/planpresso/internal/adapters/sqlite"
	"github.com/samirrijal/planpresso/internal/core/domain"
	"github.com/samirrijal/planpresso/internal/core/editor"
	"github.com/samirrijal/planpresso/internal/core/usecases"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubGeocoder struct {
	places []domain.Place
}

func (g stubGeocoder) Search(ctx context.Context, query string, limit int) ([]domain.Place, error) {
	return g.places, nil
}

func testApp(t *testing.T) *App {
	t.Helper()
	return &App{
		Plans:      usecases.NewPlanService(nil, nil, 5000),
		DraftsPath: filepath.Join(t.TempDir(), "drafts.db"),
		DraftsTTL:  time.Hour,
	}
}

func executeCmd(t *testing.T, app *App, stdin string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd(app)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func exampleText() string {
	return editor.ToText(domain.ExamplePlan())
}

func TestValidateCmd_ValidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.json")
	require.NoError(t, os.WriteFile(path, []byte(exampleText()), 0o644))

	out, err := executeCmd(t, testApp(t), "", "validate", path)
	require.NoError(t, err)
	assert.Contains(t, out, "plan is valid")
}

func TestValidateCmd_ReportsErrors(t *testing.T) {
	out, err := executeCmd(t, testApp(t), `{"name": "Trip", "stops": []}`, "validate")
	assert.ErrorIs(t, err, errInvalid)
	assert.Contains(t, out, "at least one stop")
	assert.NotContains(t, out, "plan is valid")
}

func TestValidateCmd_WarningsAndQuiet(t *testing.T) {
	p := domain.ExamplePlan()
	p.Stops[2].Lat = domain.Float(-33.9)
	p.Stops[2].Lng = domain.Float(151.2)
	text := editor.ToText(p)

	out, err := executeCmd(t, testApp(t), text, "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "more than 5000 km")

	out, err = executeCmd(t, testApp(t), text, "validate", "-q")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestFmtCmd(t *testing.T) {
	out, err := executeCmd(t, testApp(t), `{"stops":[],"name":"T"}`, "fmt", "-")
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"name\": \"T\",\n  \"stops\": []\n}\n", out)

	_, err = executeCmd(t, testApp(t), `{"name": `, "fmt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not valid JSON")
}

func TestFmtCmd_Write(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"name":"T","stops":[]}`), 0o644))

	_, err := executeCmd(t, testApp(t), "", "fmt", "-w", path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"name\": \"T\",\n  \"stops\": []\n}\n", string(data))

	_, err = executeCmd(t, testApp(t), "{}", "fmt", "-w")
	assert.Error(t, err)
}

func TestShareAndOpenCmd(t *testing.T) {
	app := testApp(t)
	payload, err := executeCmd(t, app, exampleText(), "share")
	require.NoError(t, err)
	payload = strings.TrimSpace(payload)
	require.NotEmpty(t, payload)

	out, err := executeCmd(t, app, "", "open", payload)
	require.NoError(t, err)
	assert.Equal(t, exampleText()+"\n", out)

	linked, err := executeCmd(t, app, exampleText(), "share", "--base", "https://plans.example/#plan=")
	require.NoError(t, err)
	assert.Equal(t, "https://plans.example/#plan="+payload+"\n", linked)

	_, err = executeCmd(t, app, "", "open", "garbage")
	assert.ErrorIs(t, err, domain.ErrInvalidSharePlan)
}

func TestExampleCmd(t *testing.T) {
	out, err := executeCmd(t, testApp(t), "", "example")
	require.NoError(t, err)
	assert.Equal(t, exampleText()+"\n", out)
}

func TestMapCmd(t *testing.T) {
	out, err := executeCmd(t, testApp(t), exampleText(), "map")
	require.NoError(t, err)
	assert.Contains(t, out, "Weekend in Prague")
	assert.Contains(t, out, "3 stops")
	assert.Contains(t, out, "Karlštejn")
	assert.Contains(t, out, string(domain.StopKindDayTrip))
}

func TestGeocodeCmd(t *testing.T) {
	app := testApp(t)
	_, err := executeCmd(t, app, "", "geocode", "Brno")
	assert.Error(t, err)

	app.Search = usecases.NewPlaceSearch(stubGeocoder{places: []domain.Place{
		{Name: "Brno", Label: "Brno, Czechia", Point: domain.GeoPoint{Lat: 49.19522, Lng: 16.60796}},
	}}, nil, usecases.PlaceSearchOptions{}, nil)

	out, err := executeCmd(t, app, "", "geocode", "Brno")
	require.NoError(t, err)
	assert.Contains(t, out, "Brno, Czechia")
	assert.Contains(t, out, "49.19522")

	app.Search = usecases.NewPlaceSearch(stubGeocoder{}, nil, usecases.PlaceSearchOptions{}, nil)
	out, err = executeCmd(t, app, "", "geocode", "Nowhere")
	require.NoError(t, err)
	assert.Contains(t, out, "No places found.")
}

func TestDraftsCmd(t *testing.T) {
	app := testApp(t)

	out, err := executeCmd(t, app, "", "drafts", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No drafts.")

	db, err := sqlite.Open(app.DraftsPath)
	require.NoError(t, err)
	store := sqlite.NewDraftStore(db, time.Hour)
	key := domain.OwnerDraftKey("alice", "new")
	require.NoError(t, store.Save(context.Background(), key, domain.Draft{
		Data:      domain.ExamplePlan(),
		Timestamp: time.Now(),
	}))
	require.NoError(t, db.Close())

	out, err = executeCmd(t, app, "", "drafts", "list")
	require.NoError(t, err)
	assert.Contains(t, out, key)
	assert.Contains(t, out, "Weekend in Prague")

	out, err = executeCmd(t, app, "", "drafts", "show", key)
	require.NoError(t, err)
	assert.Equal(t, exampleText()+"\n", out)

	out, err = executeCmd(t, app, "", "drafts", "purge")
	require.NoError(t, err)
	assert.Contains(t, out, "Purged 0 expired drafts")

	_, err = executeCmd(t, app, "", "drafts", "clear", key)
	require.NoError(t, err)

	_, err = executeCmd(t, app, "", "drafts", "show", key)
	assert.Error(t, err)
}

func TestDraftsCmd_DBFlag(t *testing.T) {
	app := testApp(t)
	other := filepath.Join(t.TempDir(), "nested", "other.db")

	_, err := executeCmd(t, app, "", "drafts", "--db", other, "list")
	require.NoError(t, err)
	assert.FileExists(t, other)
}
