package pipeline

import "fmt"

// ParseErrorCode represents specific ingestion failure types.
type ParseErrorCode string

const (
	ErrUnreadableDocument ParseErrorCode = "UNREADABLE_DOCUMENT"
	ErrUnknownSource      ParseErrorCode = "UNKNOWN_SOURCE"
	ErrExtractionFailed   ParseErrorCode = "EXTRACTION_FAILED"
	ErrNoTradesFound      ParseErrorCode = "NO_TRADES_FOUND"
	ErrParserPanic        ParseErrorCode = "PARSER_PANIC"
)

// ParseError is a structured error for per-document ingestion failures.
type ParseError struct {
	Code      ParseErrorCode
	Message   string
	Document  string // source file or message name
	Retryable bool
	Cause     error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s (%s): %v", e.Code, e.Message, e.Document, e.Cause)
	}
	return fmt.Sprintf("[%s] %s (%s)", e.Code, e.Message, e.Document)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

// IsRetryable returns whether this error is retryable.
func (e *ParseError) IsRetryable() bool {
	return e.Retryable
}
