package session

import "strings"

// errorClass splits backend-reported errors into session-ending and
// advisory ones.
type errorClass int

const (
	errorFatal errorClass = iota
	errorAdvisory
)

// inputFormatMarker identifies advisory errors: the bridge reports a
// malformed individual input event with this phrase. A bad keystroke or
// voice fragment must not tear down an otherwise healthy session.
//
// The bridge protocol carries no structured error category, so
// classification is by substring match on the marker phrase. This is the
// single place that heuristic lives; if the protocol ever grows an error
// category field, only this function changes.
const inputFormatMarker = "Unknown message type"

// classifyProtocolError decides whether a backend-reported error ends the
// session.
func classifyProtocolError(text string) errorClass {
	if strings.Contains(text, inputFormatMarker) {
		return errorAdvisory
	}
	return errorFatal
}
