package validation

import "fmt"

var messages = map[Code]string{
	CodeInvalidJSON:          "The text is not valid JSON. Check that every bracket and quote is closed. (%v)",
	CodeMissingField:         "The plan is missing the required field %q.",
	CodeMissingStopField:     "Stop %d is missing the field %q.",
	CodeInvalidLat:           "Stop %d: latitude (lat) must be between -90 and 90.",
	CodeInvalidLng:           "Stop %d: longitude (lng) must be between -180 and 180.",
	CodeEmptyStops:           "The plan must contain at least one stop.",
	CodeInvalidDate:          "The %s field %q has an unreadable date %q.",
	CodeDateToBeforeDateFrom: "Stop %d: dateTo (%s) is earlier than dateFrom (%s).",
	CodeDatesOverlap:         "Stop %d: dates overlap with the previous stop.",
	CodeExtremeDistance:      "Warning: the distance between stop %d and stop %d is more than %.0f km.",
}

func message(code Code, args ...any) string {
	format, ok := messages[code]
	if !ok {
		return string(code)
	}
	return fmt.Sprintf(format, args...)
}

// ParseMessage is the user-facing text for a plan that could not be read.
func ParseMessage(err error) string {
	return message(CodeInvalidJSON, err)
}
