package logging

const (
	// FieldComponent is the standardized key for component names.
	FieldComponent = "component"
	// FieldSessionID identifies one daemon process run.
	FieldSessionID = "session_id"
	// FieldRequestID correlates every log line produced for one request.
	FieldRequestID = "request_id"
	// FieldOperation is the operation name carried by a request.
	FieldOperation = "operation"
	// FieldLocator is the operation locator (plugin path or classpath analogue).
	FieldLocator = "locator"
	// FieldExitCode is the exit code written back to the caller.
	FieldExitCode = "exit_code"
	// FieldEventType tags a record with a stable machine-readable event name.
	FieldEventType = "event_type"
	// FieldErrorHint carries the suggested next step for an operator.
	FieldErrorHint = "error_hint"
	// FieldImpact is the user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldState is the daemon lifecycle state.
	FieldState = "state"
)
