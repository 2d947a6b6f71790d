package mock

import (
	"io"
	"testing"

	"github.com/neilotoole/slogt"
	"github.com/splitgraph/convergence/pkg/buffer"
	"github.com/splitgraph/convergence/pkg/types"
)

// NewWriter wraps writer so test code can frame ClientMessage-tagged
// requests the same way a real libpq-speaking client would.
func NewWriter(t *testing.T, writer io.Writer) *Writer {
	return &Writer{buffer.NewWriter(slogt.New(t), writer)}
}

// Writer frames outbound frontend messages for a test client.
type Writer struct {
	*buffer.Writer
}

// Start opens a frontend message of the given tag.
func (w *Writer) Start(t types.ClientMessage) {
	w.Writer.Start(types.ServerMessage(t))
}

// NewReader wraps reader so test code can decode ServerMessage-tagged
// responses at the default buffer size.
func NewReader(t *testing.T, reader io.Reader) *Reader {
	return &Reader{buffer.NewReader(slogt.New(t), reader, buffer.DefaultBufferSize)}
}

// Reader decodes inbound backend messages for a test client.
type Reader struct {
	*buffer.Reader
}

// ReadTypedMsg reads the next backend message, returning its tag and the
// bytes read after the tag (length prefix + body).
func (r *Reader) ReadTypedMsg() (types.ServerMessage, int, error) {
	t, n, err := r.Reader.ReadTypedMsg()
	return types.ServerMessage(t), n, err
}
