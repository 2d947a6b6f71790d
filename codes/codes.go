package codes

// Code represents a Postgres SQLSTATE error code, sent verbatim in an
// ErrorResponse's 'C' field.
// http://www.postgresql.org/docs/9.5/static/errcodes-appendix.html
type Code string

const (
	// Section: Class 00 - Successful Completion
	SuccessfulCompletion Code = "00000"
	// Section: Class 08 - Connection Exception
	ConnectionException Code = "08000"
	ProtocolViolation   Code = "08P01"
	// Section: Class 0A - Feature Not Supported
	FeatureNotSupported Code = "0A000"
	// Section: Class 22 - Data Exception
	DataException Code = "22000"
	// Section: Class 26 - Invalid SQL Statement Name
	InvalidSQLStatementName Code = "26000"
	// Section: Class 34 - Invalid Cursor Name
	InvalidCursorName Code = "34000"
	// Section: Class 42 - Syntax Error or Access Rule Violation
	Syntax Code = "42601"
	// Section: Class XX - Internal Error
	Internal Code = "XX000"
)

// Uncategorized is used for errors that flow out to a client when there's no
// code known yet and none was ever attached via WithCode.
var Uncategorized Code = "XXUUU"
