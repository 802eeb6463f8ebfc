package editor

import (
	"fmt"
	"time"

	"github.com/samirrijal/planpresso/internal/core/domain"
)

// The functions below never modify their input; they return a new slice
// with cloned stops.

func cloneStops(stops []domain.Stop) []domain.Stop {
	out := make([]domain.Stop, len(stops))
	for i, s := range stops {
		out[i] = s.Clone()
	}
	return out
}

func checkIndex(i, n int) error {
	if i < 0 || i >= n {
		return fmt.Errorf("%w: %d (have %d stops)", domain.ErrIndexOutOfRange, i, n)
	}
	return nil
}

// AddStop appends an empty stop.
func AddStop(stops []domain.Stop) []domain.Stop {
	return append(cloneStops(stops), domain.Stop{})
}

// DuplicateStop inserts a copy of stops[i], pass-through fields included,
// right after it.
func DuplicateStop(stops []domain.Stop, i int) ([]domain.Stop, error) {
	if err := checkIndex(i, len(stops)); err != nil {
		return nil, err
	}
	out := make([]domain.Stop, 0, len(stops)+1)
	out = append(out, cloneStops(stops[:i+1])...)
	out = append(out, stops[i].Clone())
	out = append(out, cloneStops(stops[i+1:])...)
	return out, nil
}

// RemoveStop drops stops[i].
func RemoveStop(stops []domain.Stop, i int) ([]domain.Stop, error) {
	if err := checkIndex(i, len(stops)); err != nil {
		return nil, err
	}
	out := make([]domain.Stop, 0, len(stops)-1)
	out = append(out, cloneStops(stops[:i])...)
	return append(out, cloneStops(stops[i+1:])...), nil
}

// MoveStop moves stops[from] so that it ends up at index to, then applies
// the date action to the whole sequence.
func MoveStop(stops []domain.Stop, from, to int, action domain.DateAction) ([]domain.Stop, error) {
	n := len(stops)
	if err := checkIndex(from, n); err != nil {
		return nil, err
	}
	if err := checkIndex(to, n); err != nil {
		return nil, err
	}

	out := cloneStops(stops)
	moved := out[from]
	out = append(out[:from], out[from+1:]...)
	out = append(out[:to], append([]domain.Stop{moved}, out[to:]...)...)

	switch action {
	case "", domain.DateActionNone:
	case domain.DateActionShift:
		shiftDates(out)
	case domain.DateActionFix:
		fixDates(out)
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownAction, action)
	}
	return out, nil
}

// shiftDates re-stacks every stop that has both dates so it starts where the
// previous dated stop ends, keeping its original length. Stops without both
// dates pass through but still move the running end when they have a dateTo.
func shiftDates(stops []domain.Stop) {
	var prevTo time.Time
	havePrev := false

	for i := range stops {
		s := &stops[i]
		from, okFrom := domain.ParseDate(s.DateFrom)
		to, okTo := domain.ParseDate(s.DateTo)

		if havePrev && okFrom && okTo {
			days := domain.DaysBetween(from, to)
			from = prevTo
			to = from.AddDate(0, 0, days)
			s.DateFrom = domain.FormatDate(from)
			s.DateTo = domain.FormatDate(to)
		}
		if okTo {
			prevTo, havePrev = to, true
		}
	}
}

// fixDates clamps each dateFrom up to the latest dateTo seen so far. dateTo
// is never changed.
func fixDates(stops []domain.Stop) {
	var latest time.Time
	haveLatest := false

	for i := range stops {
		s := &stops[i]
		if from, ok := domain.ParseDate(s.DateFrom); ok && haveLatest && from.Before(latest) {
			s.DateFrom = domain.FormatDate(latest)
		}
		if to, ok := domain.ParseDate(s.DateTo); ok && (!haveLatest || to.After(latest)) {
			latest, haveLatest = to, true
		}
	}
}
