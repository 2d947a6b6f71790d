package wire

import (
	"fmt"

	"github.com/splitgraph/convergence/codes"
	psqlerr "github.com/splitgraph/convergence/errors"
	"github.com/splitgraph/convergence/pkg/types"
)

// NewErrUnimplementedMessageType is returned for a client message tag the
// core does not recognise at all.
func NewErrUnimplementedMessageType(t types.ClientMessage) error {
	err := fmt.Errorf("unimplemented client message type: %s", t)
	return psqlerr.WithSeverity(psqlerr.WithCode(err, codes.ProtocolViolation), psqlerr.LevelError)
}

// NewErrUnknownStatement is returned when Bind or Describe names a prepared
// statement the connection never Parsed (or has since overwritten).
func NewErrUnknownStatement(name string) error {
	err := fmt.Errorf("unknown prepared statement %q", name)
	return psqlerr.WithSeverity(psqlerr.WithCode(err, codes.InvalidSQLStatementName), psqlerr.LevelError)
}

// NewErrUnknownPortal is returned when Execute or Describe names a portal
// the connection never Bound (or has since overwritten).
func NewErrUnknownPortal(name string) error {
	err := fmt.Errorf("unknown portal %q", name)
	return psqlerr.WithSeverity(psqlerr.WithCode(err, codes.InvalidCursorName), psqlerr.LevelError)
}

// NewErrMultipleStatements is returned when a simple Query contains more
// than one statement: the core does not support multi-statement queries.
func NewErrMultipleStatements() error {
	err := fmt.Errorf("multiple commands in a single query are not supported")
	return psqlerr.WithSeverity(psqlerr.WithCode(err, codes.FeatureNotSupported), psqlerr.LevelError)
}

// NewErrUndefinedStatement is returned when Parse is given text that yields
// no statement at all.
func NewErrUndefinedStatement() error {
	err := fmt.Errorf("no statement has been defined")
	return psqlerr.WithSeverity(psqlerr.WithCode(err, codes.Syntax), psqlerr.LevelError)
}
