package buffer

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"
	"log/slog"

	"github.com/splitgraph/convergence/pkg/types"
)

// DefaultBufferSize is used whenever a caller doesn't pick an explicit
// buffer size, or picks a non-positive one.
const DefaultBufferSize = 1 << 24 // 16777216 bytes

// BufferedReader is the subset of bufio.Reader the frame decoder relies on.
type BufferedReader interface {
	io.Reader
	ReadString(delim byte) (string, error)
	ReadByte() (byte, error)
}

// Reader decodes length-prefixed frontend messages off a byte stream. Each
// ReadTypedMsg/ReadUntypedMsg call loads the current frame's body into Msg;
// the Get* accessors then consume Msg from the front, left to right, in
// wire order.
type Reader struct {
	logger         *slog.Logger
	Buffer         BufferedReader
	Msg            []byte
	MaxMessageSize int
	lenBuf         [4]byte
}

// NewReader wraps reader in a buffered frame decoder. A non-positive
// bufferSize falls back to DefaultBufferSize.
func NewReader(logger *slog.Logger, reader io.Reader, bufferSize int) *Reader {
	if reader == nil {
		return nil
	}

	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}

	return &Reader{
		logger:         logger,
		Buffer:         bufio.NewReaderSize(reader, bufferSize),
		MaxMessageSize: bufferSize,
	}
}

// reset grows or reuses Msg's backing array so it holds exactly size bytes,
// ready to be filled by the next io.ReadFull.
func (reader *Reader) reset(size int) {
	if reader.Msg != nil {
		reader.Msg = reader.Msg[len(reader.Msg):]
	}

	if cap(reader.Msg) >= size {
		reader.Msg = reader.Msg[:size]
		return
	}

	const minAlloc = 4096
	allocSize := size
	if allocSize < minAlloc {
		allocSize = minAlloc
	}
	reader.Msg = make([]byte, size, allocSize)
}

// ReadType reads a single frontend message tag byte.
func (reader *Reader) ReadType() (types.ClientMessage, error) {
	b, err := reader.Buffer.ReadByte()
	if err != nil {
		return 0, err
	}

	return types.ClientMessage(b), nil
}

// ReadTypedMsg reads a tag byte followed by a length-prefixed body, loading
// the body into Msg. It returns the tag and the bytes consumed after the
// tag (length prefix + body).
func (reader *Reader) ReadTypedMsg() (types.ClientMessage, int, error) {
	typed, err := reader.ReadType()
	if err != nil {
		return typed, 0, err
	}

	n, err := reader.ReadUntypedMsg()
	if err != nil {
		return 0, 0, err
	}

	return typed, n, nil
}

// Slurp discards size untagged bytes, in MaxMessageSize-sized chunks, used
// to drain a frame the core decided not to keep without desynchronizing
// the stream.
func (reader *Reader) Slurp(size int) error {
	left := size
	for left > 0 {
		chunk := left
		if chunk > reader.MaxMessageSize {
			chunk = reader.MaxMessageSize
		}

		reader.reset(chunk)
		n, err := io.ReadFull(reader.Buffer, reader.Msg)
		if err != nil {
			return err
		}

		left -= n
	}

	return nil
}

// ReadMsgSize reads the next message's 4-byte length prefix, returning the
// size of the body that follows (the prefix itself counts toward the wire
// value, so it's subtracted back out here).
func (reader *Reader) ReadMsgSize() (int, error) {
	n, err := io.ReadFull(reader.Buffer, reader.lenBuf[:])
	if err != nil {
		return n, err
	}

	size := int(binary.BigEndian.Uint32(reader.lenBuf[:])) - 4
	return size, nil
}

// ReadUntypedMsg reads a length-prefixed body with no preceding tag byte,
// used only during the handshake before any message type exists on the
// wire; ReadTypedMsg handles every later frame. It returns the number of
// bytes consumed, which can be non-zero alongside an error (the length
// prefix was still read) so callers can still account for wire traffic.
// A body claiming to be larger than MaxMessageSize is reported via
// ErrMessageSizeExceeded without reading the (oversized) body; in that
// case the returned number is the announced body size, not the bytes
// consumed. The caller decides whether to Slurp the rest or give up on the
// connection.
func (reader *Reader) ReadUntypedMsg() (int, error) {
	size, err := reader.ReadMsgSize()
	if err != nil {
		return 0, err
	}

	if size < 0 || size > reader.MaxMessageSize {
		return size, NewMessageSizeExceeded(reader.MaxMessageSize, size)
	}

	reader.reset(size)
	n, err := io.ReadFull(reader.Buffer, reader.Msg)
	return len(reader.lenBuf) + n, err
}

// consume pulls the next n bytes off the front of Msg, or reports how many
// bytes were actually available if that's fewer than n.
func (reader *Reader) consume(n int) ([]byte, error) {
	if len(reader.Msg) < n {
		return nil, NewInsufficientData(len(reader.Msg))
	}

	v := reader.Msg[:n]
	reader.Msg = reader.Msg[n:]
	return v, nil
}

// GetString reads a null-terminated string off the front of Msg.
func (reader *Reader) GetString() (string, error) {
	pos := bytes.IndexByte(reader.Msg, 0)
	if pos == -1 {
		return "", NewMissingNulTerminator()
	}

	s := string(reader.Msg[:pos])
	reader.Msg = reader.Msg[pos+1:]
	return s, nil
}

// GetPrepareType reads a single byte identifying a Describe/Close target as
// a prepared statement or a portal.
func (reader *Reader) GetPrepareType() (PrepareType, error) {
	v, err := reader.GetBytes(1)
	if err != nil {
		return 0, err
	}

	return PrepareType(v[0]), nil
}

// GetBytes reads n raw bytes off the front of Msg. n == -1 is read as a
// NULL parameter value and yields a nil slice rather than an error.
func (reader *Reader) GetBytes(n int) ([]byte, error) {
	if n == -1 {
		return nil, nil
	}

	return reader.consume(n)
}

// GetUint16 reads a big-endian uint16 off the front of Msg.
func (reader *Reader) GetUint16() (uint16, error) {
	v, err := reader.consume(2)
	if err != nil {
		return 0, err
	}

	return binary.BigEndian.Uint16(v), nil
}

// GetUint32 reads a big-endian uint32 off the front of Msg.
func (reader *Reader) GetUint32() (uint32, error) {
	v, err := reader.consume(4)
	if err != nil {
		return 0, err
	}

	return binary.BigEndian.Uint32(v), nil
}

// GetInt32 reads a big-endian int32 off the front of Msg.
func (reader *Reader) GetInt32() (int32, error) {
	v, err := reader.consume(4)
	if err != nil {
		return 0, err
	}

	return int32(binary.BigEndian.Uint32(v)), nil
}
