package validation_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samirrijal/planpresso/internal/core/domain"
	"github.com/samirrijal/planpresso/internal/core/validation"
)

func stop(name string, lat, lng float64, from, to string) domain.Stop {
	return domain.Stop{Name: name, Lat: domain.Float(lat), Lng: domain.Float(lng), DateFrom: from, DateTo: to}
}

func TestValidate_WeekendScenario(t *testing.T) {
	p := domain.Plan{
		Name: "Weekend",
		Stops: []domain.Stop{
			stop("A", 50, 14, "", "2025-03-02"),
			stop("B", 49.9, 14.2, "2025-03-02", "2025-03-03"),
		},
	}
	errs, warnings := validation.Validate(p)
	assert.Empty(t, errs)
	assert.Empty(t, warnings)
}

func TestValidate_ExamplePlanIsClean(t *testing.T) {
	r := validation.New(0).Check(domain.ExamplePlan())
	assert.True(t, r.Valid())
	assert.Empty(t, r.Warnings)
}

func TestValidate_EmptyStops(t *testing.T) {
	r := validation.New(0).Check(domain.Plan{Name: "x", Stops: []domain.Stop{}})
	require.Len(t, r.Errors, 1)
	assert.Equal(t, validation.CodeEmptyStops, r.Errors[0].Code)
	assert.Empty(t, r.Warnings)
}

func TestValidate_MissingStops(t *testing.T) {
	r := validation.New(0).Check(domain.Plan{Name: "x"})
	require.Len(t, r.Errors, 1)
	assert.Equal(t, validation.CodeMissingField, r.Errors[0].Code)
	assert.Equal(t, "stops", r.Errors[0].Field)
}

func TestValidate_DateToBeforeDateFrom(t *testing.T) {
	p := domain.Plan{
		Name: "x",
		Stops: []domain.Stop{
			stop("A", 50, 14, "2025-03-01", "2025-03-02"),
			stop("B", 50.1, 14.1, "2025-03-05", "2025-03-03"),
		},
	}
	r := validation.New(0).Check(p)
	require.Len(t, r.Errors, 1)
	assert.Equal(t, validation.CodeDateToBeforeDateFrom, r.Errors[0].Code)
	assert.Equal(t, 2, r.Errors[0].Stop)
	assert.Contains(t, r.Errors[0].Message, "Stop 2")
}

func TestValidate_Overlap(t *testing.T) {
	p := domain.Plan{
		Name: "x",
		Stops: []domain.Stop{
			stop("A", 50, 14, "2025-03-01", "2025-03-04"),
			stop("B", 50.1, 14.1, "2025-03-03", "2025-03-05"),
		},
	}
	r := validation.New(0).Check(p)
	require.Len(t, r.Errors, 1)
	assert.Equal(t, validation.CodeDatesOverlap, r.Errors[0].Code)
	assert.Equal(t, 2, r.Errors[0].Stop)
}

func TestValidate_SameDayAdjacencyAllowed(t *testing.T) {
	p := domain.Plan{
		Name: "x",
		Stops: []domain.Stop{
			stop("A", 50, 14, "2025-03-01", "2025-03-03"),
			stop("B", 50.1, 14.1, "2025-03-03", "2025-03-05"),
			stop("C", 50.2, 14.2, "", ""),
			stop("D", 50.3, 14.3, "2025-03-05", ""),
		},
	}
	assert.True(t, validation.New(0).Check(p).Valid())
}

func TestValidate_UnpaddedDatesAccepted(t *testing.T) {
	p := domain.Plan{
		Name: "Spring",
		Stops: []domain.Stop{
			stop("Brno", 49.19, 16.61, "2025-3-5", "2025-3-7"),
			stop("Olomouc", 49.59, 17.25, "2025-3-7", "2025-3-10"),
		},
	}
	r := validation.New(0).Check(p)
	assert.Empty(t, r.Errors)
	assert.Equal(t, 3, p.Stops[1].Nights())
}

func TestValidate_ExtremeDistanceIsWarningOnly(t *testing.T) {
	// Prague to New York, roughly 6600 km.
	p := domain.Plan{
		Name: "x",
		Stops: []domain.Stop{
			stop("Prague", 50.0755, 14.4378, "", ""),
			stop("New York", 40.7128, -74.006, "", ""),
		},
	}
	r := validation.New(0).Check(p)
	assert.Empty(t, r.Errors)
	require.Len(t, r.Warnings, 1)
	assert.Equal(t, validation.CodeExtremeDistance, r.Warnings[0].Code)
}

func TestValidate_CustomThreshold(t *testing.T) {
	p := domain.ExamplePlan()
	r := validation.New(10).Check(p)
	assert.Len(t, r.Warnings, 2)
}

func TestValidate_StopFields(t *testing.T) {
	p := domain.Plan{
		Name: "x",
		Stops: []domain.Stop{
			{Name: "", Lat: domain.Float(95), Lng: domain.Float(14)},
			{Name: "B", Lat: domain.Float(10)},
			{Name: "C", Lat: domain.Float(10), Lng: domain.Float(200), DateFrom: "someday"},
		},
	}
	r := validation.New(0).Check(p)
	var codes []validation.Code
	for _, e := range r.Errors {
		codes = append(codes, e.Code)
	}
	assert.Equal(t, []validation.Code{
		validation.CodeMissingStopField,
		validation.CodeInvalidLat,
		validation.CodeMissingStopField,
		validation.CodeInvalidLng,
		validation.CodeInvalidDate,
	}, codes)
}

func TestValidate_FreshReportEachRun(t *testing.T) {
	v := validation.New(0)
	far := domain.Plan{Name: "x", Stops: []domain.Stop{stop("A", 0, 0, "", ""), stop("B", 0, 90, "", "")}}
	require.Len(t, v.Check(far).Warnings, 1)

	far.Stops[1] = stop("B", 0, 1, "", "")
	assert.Empty(t, v.Check(far).Warnings)
}

func TestInvalidPlanError(t *testing.T) {
	r := validation.New(0).Check(domain.Plan{Name: "x", Stops: []domain.Stop{}})
	var err error = &validation.InvalidPlanError{Report: r}

	assert.True(t, errors.Is(err, domain.ErrInvalidPlan))
	got, ok := validation.AsReport(err)
	require.True(t, ok)
	assert.Equal(t, r, got)
}

func TestCheckField(t *testing.T) {
	tests := []struct {
		field, value string
		want         bool
	}{
		{"lat", "", false},
		{"lat", "50.1", false},
		{"lat", "-90", false},
		{"lat", "90.5", true},
		{"lat", "abc", true},
		{"lng", "180", false},
		{"lng", "-180.01", true},
		{"name", "", false},
		{"notes", "anything", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, validation.CheckField(tt.field, tt.value), "%s=%q", tt.field, tt.value)
	}
}
