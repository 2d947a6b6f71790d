package buffer

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/splitgraph/convergence/codes"
	psqlerr "github.com/splitgraph/convergence/errors"
)

// ErrMissingNulTerminator is thrown when no NUL terminator is found when
// interpreting a message property as a string.
var ErrMissingNulTerminator = errors.New("NUL terminator not found")

// NewMissingNulTerminator constructs a protocol-violation error for a
// cstring field whose terminating zero byte never arrived.
func NewMissingNulTerminator() error {
	return psqlerr.WithSeverity(psqlerr.WithCode(ErrMissingNulTerminator, codes.ProtocolViolation), psqlerr.LevelError)
}

// ErrInsufficientData is thrown when there is insufficient data available
// inside the given message to unmarshal into a given type.
var ErrInsufficientData = errors.New("insufficient data")

// NewInsufficientData constructs a protocol-violation error reporting how
// many bytes remained when more were required.
func NewInsufficientData(length int) error {
	err := fmt.Errorf("length: %d %w", length, ErrInsufficientData)
	return psqlerr.WithSeverity(psqlerr.WithCode(err, codes.ProtocolViolation), psqlerr.LevelError)
}

// ErrMessageSizeExceeded is thrown when the maximum message size is exceeded.
var ErrMessageSizeExceeded = MessageSizeExceeded{Message: "maximum message size exceeded"}

// MessageSizeExceeded indicates a client frame announced a length larger
// than the connection is willing to buffer.
type MessageSizeExceeded struct {
	Message string
	Size    int
	Max     int
}

func (err MessageSizeExceeded) Error() string {
	return err.Message
}

func (err MessageSizeExceeded) Is(target error) bool {
	return reflect.TypeOf(target) == reflect.TypeOf(err)
}

// NewMessageSizeExceeded constructs a connection-exception error wrapping
// MessageSizeExceeded with the offending size and configured maximum.
func NewMessageSizeExceeded(max, size int) error {
	err := MessageSizeExceeded{
		Message: fmt.Sprintf("message size %d, bigger than maximum allowed message size %d", size, max),
		Size:    size,
		Max:     max,
	}

	return psqlerr.WithSeverity(psqlerr.WithCode(err, codes.ConnectionException), psqlerr.LevelError)
}

// UnwrapMessageSizeExceeded attempts to unwrap the given error as
// MessageSizeExceeded. A boolean is returned indicating whether the error
// contained a MessageSizeExceeded message.
func UnwrapMessageSizeExceeded(err error) (result MessageSizeExceeded, _ bool) {
	return result, errors.As(err, &result)
}

// PrepareType represents a subtype for describe/close messages: which
// connection-wide table (statements or portals) the target name refers to.
type PrepareType byte

const (
	PrepareStatement PrepareType = 'S'
	PreparePortal    PrepareType = 'P'
)

// MaxPreparedStatementArgs is the maximum number of parameters a prepared
// statement can declare: the wire format carries the count in a uint16.
const MaxPreparedStatementArgs = 1<<16 - 1
