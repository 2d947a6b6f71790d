package buffer

import (
	"bytes"
	"encoding/binary"
	"io"
	"log/slog"

	"github.com/splitgraph/convergence/pkg/types"
)

// Writer assembles a single backend message at a time into an internal
// frame buffer, then flushes it to the wire once the caller calls End.
type Writer struct {
	io.Writer
	logger *slog.Logger
	frame  bytes.Buffer
	putbuf [64]byte // scratch space for fixed-width encodes and the message header
	err    error
}

// NewWriter wraps writer in a backend message encoder.
func NewWriter(logger *slog.Logger, writer io.Writer) *Writer {
	return &Writer{
		logger: logger,
		Writer: writer,
	}
}

// Start clears the frame buffer and opens a new message: the tag byte
// followed by four placeholder length bytes, patched in by End once the
// message body is known.
func (writer *Writer) Start(t types.ServerMessage) {
	writer.Reset()
	writer.putbuf[0] = byte(t)
	writer.frame.Write(writer.putbuf[:5])
}

// guard reports whether an earlier Add* already failed. Once true, every
// later Add* becomes a no-op so the first error is the one End reports.
func (writer *Writer) guard() bool {
	return writer.err != nil
}

// AddByte appends a single byte to the open message.
func (writer *Writer) AddByte(b byte) {
	if writer.guard() {
		return
	}

	writer.err = writer.frame.WriteByte(b)
}

// AddInt16 appends i as a big-endian int16.
func (writer *Writer) AddInt16(i int16) (size int) {
	if writer.guard() {
		return size
	}

	binary.BigEndian.PutUint16(writer.putbuf[:2], uint16(i))
	size, writer.err = writer.frame.Write(writer.putbuf[:2])
	return size
}

// AddInt32 appends i as a big-endian int32.
func (writer *Writer) AddInt32(i int32) (size int) {
	if writer.guard() {
		return size
	}

	binary.BigEndian.PutUint32(writer.putbuf[:4], uint32(i))
	size, writer.err = writer.frame.Write(writer.putbuf[:4])
	return size
}

// AddBytes appends b verbatim to the open message.
func (writer *Writer) AddBytes(b []byte) (size int) {
	if writer.guard() {
		return size
	}

	size, writer.err = writer.frame.Write(b)
	return size
}

// AddString appends s verbatim (no length prefix, no terminator) to the
// open message.
func (writer *Writer) AddString(s string) (size int) {
	if writer.guard() {
		return size
	}

	size, writer.err = writer.frame.WriteString(s)
	return size
}

// AddNullTerminate appends a single NUL byte, terminating a cstring field.
func (writer *Writer) AddNullTerminate() {
	if writer.guard() {
		return
	}

	writer.err = writer.frame.WriteByte(0)
}

// Error returns the first error encountered by an Add* call since the last
// Start/Reset, if any.
func (writer *Writer) Error() error {
	return writer.err
}

// Bytes returns the open message's bytes as assembled so far, header
// included.
func (writer *Writer) Bytes() []byte {
	return writer.frame.Bytes()
}

// Reset discards the open message and clears any pending error.
func (writer *Writer) Reset() {
	writer.frame.Reset()
	writer.err = nil
}

// End patches in the message's length prefix and flushes it to the
// underlying io.Writer, then resets the frame for the next message. The
// length covers everything after the tag byte, per the wire format.
func (writer *Writer) End() error {
	defer writer.Reset()
	if err := writer.Error(); err != nil {
		return err
	}

	msg := writer.frame.Bytes()
	length := uint32(writer.frame.Len() - 1)
	binary.BigEndian.PutUint32(msg[1:5], length)

	_, err := writer.Write(msg)
	writer.logger.Debug("-> writing message", slog.String("type", types.ServerMessage(msg[0]).String()))
	return err
}

// EncodeBoolean renders a boolean the way Postgres reports GUC values:
// "on"/"off" rather than "true"/"false".
func EncodeBoolean(value bool) string {
	if value {
		return "on"
	}

	return "off"
}
