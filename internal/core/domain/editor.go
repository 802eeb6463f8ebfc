package domain

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// View is the editor representation the user is working in.
type View string

const (
	ViewStructured View = "structured"
	ViewText       View = "text"
)

// ParseView reads a view name.
func ParseView(s string) (View, error) {
	switch View(strings.ToLower(strings.TrimSpace(s))) {
	case ViewStructured:
		return ViewStructured, nil
	case ViewText:
		return ViewText, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownView, s)
}

// DateAction decides what happens to stop dates after a reorder.
type DateAction string

const (
	DateActionNone  DateAction = "none"
	DateActionShift DateAction = "shift"
	DateActionFix   DateAction = "fix"
)

// ParseDateAction reads an action name. The empty string means none.
func ParseDateAction(s string) (DateAction, error) {
	switch DateAction(strings.ToLower(strings.TrimSpace(s))) {
	case "", DateActionNone:
		return DateActionNone, nil
	case DateActionShift:
		return DateActionShift, nil
	case DateActionFix:
		return DateActionFix, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAction, s)
}

// Editor contexts. Each one owns an independent session and draft.
const (
	ContextInput  = "input"
	ContextEditor = "editor"
)

// ValidContext reports whether ctx names an editor context.
func ValidContext(ctx string) bool {
	return ctx == ContextInput || ctx == ContextEditor
}

// DraftKey is the storage key of a context's draft.
func DraftKey(ctx string) string {
	return "planpresso-draft-v1-" + ctx
}

// OwnerDraftKey namespaces a context's draft key by owner.
func OwnerDraftKey(owner, ctx string) string {
	return owner + ":" + DraftKey(ctx)
}

// Legacy keys written by earlier releases; removed on boot.
var LegacyKeys = []string{"travel-planner-saved-plan", "travel-planner-draft"}

// StopKind is the badge a renderer puts on a stop.
type StopKind string

const (
	StopKindStart   StopKind = "start"
	StopKindEnd     StopKind = "end"
	StopKindDayTrip StopKind = "day_trip"
	StopKindRegular StopKind = "stop"
)

// KindOf classifies the stop at index i of a plan with n stops.
func KindOf(s Stop, i, n int) StopKind {
	switch {
	case i == 0:
		return StopKindStart
	case i == n-1:
		return StopKindEnd
	case s.DateTo != "" && s.DateFrom == "":
		return StopKindDayTrip
	default:
		return StopKindRegular
	}
}

// SplitEmoji separates a leading emoji from a plan name.
func SplitEmoji(name string) (emoji, rest string) {
	r, size := utf8.DecodeRuneInString(name)
	if r == utf8.RuneError || !isEmoji(r) {
		return "", name
	}
	end := size
	for end < len(name) {
		next, n := utf8.DecodeRuneInString(name[end:])
		if next != 0xFE0F && next != 0x200D && !unicode.Is(unicode.Mn, next) {
			break
		}
		end += n
	}
	return name[:end], strings.TrimLeftFunc(name[end:], unicode.IsSpace)
}

func isEmoji(r rune) bool {
	switch {
	case r >= 0x1F300 && r <= 0x1FAFF:
		return true
	case r >= 0x2600 && r <= 0x27BF:
		return true
	case r >= 0x1F1E6 && r <= 0x1F1FF:
		return true
	}
	return false
}
