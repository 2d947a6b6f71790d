package wire

import (
	"github.com/splitgraph/convergence/pkg/buffer"
	"github.com/splitgraph/convergence/pkg/types"

	psqlerr "github.com/splitgraph/convergence/errors"
)

// writeErrorResponse flattens err into its SQLSTATE/severity/message triple
// and writes it as an ErrorResponse ('E') message. It never writes a
// ReadyForQuery: callers decide when the command cycle resyncs, since the
// simple-query and extended-query paths pair errors with ReadyForQuery
// differently.
func writeErrorResponse(writer *buffer.Writer, cause error) error {
	flat := psqlerr.Flatten(cause)

	writer.Start(types.ServerErrorResponse)
	writer.AddByte('C')
	writer.AddString(string(flat.Code))
	writer.AddNullTerminate()
	writer.AddByte('S')
	writer.AddString(string(flat.Severity))
	writer.AddNullTerminate()
	writer.AddByte('M')
	writer.AddString(flat.Message)
	writer.AddNullTerminate()
	writer.AddNullTerminate()

	return writer.End()
}
