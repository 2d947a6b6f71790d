package errors

import "github.com/splitgraph/convergence/codes"

// Error is the (SqlState, Severity, message) triple spec §3 requires every
// ErrorResponse to carry.
// https://www.postgresql.org/docs/current/static/protocol-error-fields.html
type Error struct {
	Code     codes.Code
	Message  string
	Severity Severity
}

// Flatten walks err's Unwrap chain and recovers the SQLSTATE and severity
// attached via WithCode/WithSeverity, defaulting to Uncategorized/ERROR for
// plain errors the rest of the codebase never annotated.
func Flatten(err error) Error {
	if err == nil {
		return Error{
			Code:     codes.Internal,
			Message:  "unknown error, an internal process attempted to throw an error",
			Severity: LevelFatal,
		}
	}

	return Error{
		Code:     GetCode(err),
		Message:  err.Error(),
		Severity: DefaultSeverity(GetSeverity(err)),
	}
}
