// Package validation checks a plan before it is handed to the renderer.
//
// Validation runs in two phases. The structural phase looks at shape and
// ranges, the semantic phase at dates and distances across the sequence.
// Errors block a save; warnings are informative only.
package validation

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samirrijal/planpresso/internal/core/domain"
	"github.com/samirrijal/planpresso/internal/pkg/geospatial"
)

// DefaultWarnDistanceKm is the leg length above which a warning is raised.
const DefaultWarnDistanceKm = 5000.0

// Code identifies the rule an issue comes from.
type Code string

const (
	CodeMissingField         Code = "missing_field"
	CodeMissingStopField     Code = "missing_stop_field"
	CodeEmptyStops           Code = "empty_stops"
	CodeInvalidLat           Code = "invalid_lat"
	CodeInvalidLng           Code = "invalid_lng"
	CodeInvalidDate          Code = "invalid_date"
	CodeDateToBeforeDateFrom Code = "date_to_before_date_from"
	CodeDatesOverlap         Code = "dates_overlap"
	CodeExtremeDistance      Code = "extreme_distance"
	CodeInvalidJSON          Code = "invalid_json"
)

// Issue is one validation finding. Stop is 1-based; 0 means plan level.
type Issue struct {
	Code    Code   `json:"code"`
	Stop    int    `json:"stop,omitempty"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// Report is the outcome of one validation run.
type Report struct {
	Errors   []Issue `json:"errors"`
	Warnings []Issue `json:"warnings"`
}

// Valid reports whether the plan can be saved.
func (r Report) Valid() bool { return len(r.Errors) == 0 }

// Messages returns the error and warning texts.
func (r Report) Messages() (errs, warnings []string) {
	errs = make([]string, 0, len(r.Errors))
	for _, i := range r.Errors {
		errs = append(errs, i.Message)
	}
	warnings = make([]string, 0, len(r.Warnings))
	for _, i := range r.Warnings {
		warnings = append(warnings, i.Message)
	}
	return errs, warnings
}

// InvalidPlanError is returned when a save is blocked by validation errors.
type InvalidPlanError struct {
	Report Report
}

func (e *InvalidPlanError) Error() string {
	errs, _ := e.Report.Messages()
	return fmt.Sprintf("%v: %s", domain.ErrInvalidPlan, strings.Join(errs, "; "))
}

// Is lets errors.Is(err, domain.ErrInvalidPlan) match.
func (e *InvalidPlanError) Is(target error) bool { return target == domain.ErrInvalidPlan }

// AsReport extracts the report from an InvalidPlanError.
func AsReport(err error) (Report, bool) {
	var ipe *InvalidPlanError
	if errors.As(err, &ipe) {
		return ipe.Report, true
	}
	return Report{}, false
}

// Validator runs both phases with a configurable distance threshold.
type Validator struct {
	WarnDistanceKm float64
}

// New returns a Validator. A non-positive threshold falls back to the default.
func New(warnDistanceKm float64) *Validator {
	if warnDistanceKm <= 0 {
		warnDistanceKm = DefaultWarnDistanceKm
	}
	return &Validator{WarnDistanceKm: warnDistanceKm}
}

// Validate checks a plan with the default threshold and returns the message
// lists.
func Validate(p domain.Plan) (errs, warnings []string) {
	return New(DefaultWarnDistanceKm).Check(p).Messages()
}

// Check runs both phases. Each call builds a fresh report, so warnings from
// earlier runs never linger.
func (v *Validator) Check(p domain.Plan) Report {
	r := Report{Errors: []Issue{}, Warnings: []Issue{}}
	v.structural(p, &r)
	v.semantic(p, &r)
	return r
}

func (r *Report) addError(code Code, stop int, field string, args ...any) {
	r.Errors = append(r.Errors, Issue{Code: code, Stop: stop, Field: field, Message: message(code, args...)})
}

func (r *Report) addWarning(code Code, stop int, field string, args ...any) {
	r.Warnings = append(r.Warnings, Issue{Code: code, Stop: stop, Field: field, Message: message(code, args...)})
}

func (v *Validator) structural(p domain.Plan, r *Report) {
	if strings.TrimSpace(p.Name) == "" {
		r.addError(CodeMissingField, 0, "name", "name")
	}
	if p.DateFrom != "" {
		if _, ok := domain.ParseDate(p.DateFrom); !ok {
			r.addError(CodeInvalidDate, 0, "dateFrom", "plan", "dateFrom", p.DateFrom)
		}
	}
	if p.DateTo != "" {
		if _, ok := domain.ParseDate(p.DateTo); !ok {
			r.addError(CodeInvalidDate, 0, "dateTo", "plan", "dateTo", p.DateTo)
		}
	}

	switch {
	case p.Stops == nil:
		r.addError(CodeMissingField, 0, "stops", "stops")
		return
	case len(p.Stops) == 0:
		r.addError(CodeEmptyStops, 0, "stops")
		return
	}

	for i, s := range p.Stops {
		num := i + 1
		if strings.TrimSpace(s.Name) == "" {
			r.addError(CodeMissingStopField, num, "name", num, "name")
		}
		if s.Lat == nil {
			r.addError(CodeMissingStopField, num, "lat", num, "lat")
		} else if !domain.ValidLat(s.Lat) {
			r.addError(CodeInvalidLat, num, "lat", num)
		}
		if s.Lng == nil {
			r.addError(CodeMissingStopField, num, "lng", num, "lng")
		} else if !domain.ValidLng(s.Lng) {
			r.addError(CodeInvalidLng, num, "lng", num)
		}
		for _, f := range []struct{ field, value string }{{"dateFrom", s.DateFrom}, {"dateTo", s.DateTo}} {
			if f.value == "" {
				continue
			}
			if _, ok := domain.ParseDate(f.value); !ok {
				r.addError(CodeInvalidDate, num, f.field, fmt.Sprintf("stop %d", num), f.field, f.value)
			}
		}
	}
}

func (v *Validator) semantic(p domain.Plan, r *Report) {
	var prevTo time.Time
	havePrev := false

	for i, s := range p.Stops {
		num := i + 1
		from, okFrom := domain.ParseDate(s.DateFrom)
		to, okTo := domain.ParseDate(s.DateTo)

		if okFrom && okTo && to.Before(from) {
			r.addError(CodeDateToBeforeDateFrom, num, "dateTo", num, s.DateTo, s.DateFrom)
		}

		start, okStart := from, okFrom
		if !okStart {
			start, okStart = to, okTo
		}
		if okStart && havePrev && start.Before(prevTo) {
			r.addError(CodeDatesOverlap, num, "dateFrom", num)
		}
		if okTo {
			prevTo, havePrev = to, true
		}
	}

	for i := 1; i < len(p.Stops); i++ {
		a, b := p.Stops[i-1], p.Stops[i]
		if !domain.ValidLat(a.Lat) || !domain.ValidLng(a.Lng) || !domain.ValidLat(b.Lat) || !domain.ValidLng(b.Lng) {
			continue
		}
		d := geospatial.DistanceKm(*a.Lat, *a.Lng, *b.Lat, *b.Lng)
		if d > v.WarnDistanceKm {
			r.addWarning(CodeExtremeDistance, i+1, "", i, i+1, v.WarnDistanceKm)
		}
	}
}
