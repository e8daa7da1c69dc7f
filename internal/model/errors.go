package model

// ErrorKind classifies failures surfaced to callers.
type ErrorKind string

const (
	// ErrorKindEngineBusy means the engine kept reporting a run in progress
	// until the retry budget ran out.
	ErrorKindEngineBusy ErrorKind = "engine_busy"
	// ErrorKindEngineFailure is any other engine error.
	ErrorKindEngineFailure ErrorKind = "engine_failure"
	// ErrorKindElementNotFound means no live element matched a selector path.
	ErrorKindElementNotFound ErrorKind = "element_not_found"
	// ErrorKindNotEligible means the selector targets a non-visual element.
	ErrorKindNotEligible ErrorKind = "not_eligible"
)

// ErrorInfo is the failure carried by a Failed scan state.
type ErrorInfo struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

func (e *ErrorInfo) Error() string {
	return string(e.Kind) + ": " + e.Message
}
