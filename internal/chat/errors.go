package chat

// Kind classifies a failed chat request for status mapping and metrics.
type Kind string

const (
	KindModelUnreachable       Kind = "model_unreachable"
	KindModelMalformedResponse Kind = "model_malformed_response"
	KindUnsafeSQLRejected      Kind = "unsafe_sql_rejected"
	KindQueryExecutionFailed   Kind = "query_execution_failed"
	KindVerbalizationFailed    Kind = "verbalization_failed"
)

// PipelineError is the single terminal failure shape of a chat request. The
// message is stable and safe to echo to callers; the wrapped cause carries
// store and model internals and stays in logs.
type PipelineError struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *PipelineError) Error() string {
	return e.Message
}

func (e *PipelineError) Unwrap() error {
	return e.cause
}

func newPipelineError(kind Kind, message string, cause error) *PipelineError {
	return &PipelineError{Kind: kind, Message: message, cause: cause}
}
