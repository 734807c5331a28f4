package logger

// Fields is an alias for map[string]interface{} for convenience.
type Fields map[string]interface{}

// Standard tracing fields, propagated through the call chain via context.
const (
	// FieldRequestID is the HTTP request ID (UUID)
	FieldRequestID = "request_id"

	// FieldSearchID is the search request ID
	FieldSearchID = "search_id"

	// FieldJobID is the ingest job ID
	FieldJobID = "job_id"

	// FieldComponent is the component/module name
	FieldComponent = "component"
)

// Standard metric fields, attached per log entry for aggregation.
const (
	// FieldDurationMs is the execution duration in milliseconds
	FieldDurationMs = "duration_ms"

	// FieldCount is a generic count field
	FieldCount = "count"

	// FieldSize is the data size in bytes
	FieldSize = "size"

	// FieldStatus is the operation status
	FieldStatus = "status"
)
