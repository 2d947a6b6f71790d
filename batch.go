package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/splitgraph/convergence/pkg/buffer"
	"github.com/splitgraph/convergence/pkg/types"
)

// DataRowBatch is an append-only buffer of already-framed DataRow ('D')
// messages. It validates, as rows are written, that each row carries
// exactly as many columns as the field description it was created against;
// a mismatch is a programmer error in the embedding engine, not something a
// client request can trigger, so it panics rather than returning an error.
type DataRowBatch struct {
	fields []FieldDescription
	format BindFormat
	rows   bytes.Buffer

	col   int
	width int
}

// NewDataRowBatch constructs a batch bound to the given field description
// and result format, as chosen at Bind (or AllText for the simple-query
// path).
func NewDataRowBatch(fields []FieldDescription, format BindFormat) *DataRowBatch {
	return &DataRowBatch{fields: fields, format: format}
}

// Fields returns the field description this batch validates rows against.
func (b *DataRowBatch) Fields() []FieldDescription {
	return b.fields
}

// Len returns the number of complete rows written so far.
func (b *DataRowBatch) Len() int {
	return b.width
}

func (b *DataRowBatch) startRow() {
	if b.col != 0 {
		panic(fmt.Sprintf("wire: started a new row with %d of %d columns written for the previous one", b.col, len(b.fields)))
	}

	binary.Write(&b.rows, binary.BigEndian, int16(len(b.fields)))
	b.col = 0
}

// Next must be called exactly once before each row's columns are appended,
// after the previous row (if any) has been fully written.
func (b *DataRowBatch) Next() {
	b.startRow()
}

func (b *DataRowBatch) endColumn() {
	b.col++
	if b.col == len(b.fields) {
		b.col = 0
		b.width++
	}
}

func (b *DataRowBatch) checkType(want DataTypeOid) {
	if b.col >= len(b.fields) {
		panic(fmt.Sprintf("wire: wrote more than %d columns for this row", len(b.fields)))
	}
	if got := b.fields[b.col].Type; got != want {
		panic(fmt.Sprintf("wire: column %d is declared %s, wrote a %s value", b.col, got, want))
	}
}

// AppendNull appends a SQL NULL for the current column.
func (b *DataRowBatch) AppendNull() {
	if b.col >= len(b.fields) {
		panic(fmt.Sprintf("wire: wrote more than %d columns for this row", len(b.fields)))
	}
	binary.Write(&b.rows, binary.BigEndian, int32(-1))
	b.endColumn()
}

// AppendInt2 appends a 16-bit integer column value.
func (b *DataRowBatch) AppendInt2(v int16) {
	b.checkType(Int2)
	if b.format.At(b.col) == BinaryFormat {
		b.appendBinary(2, v)
		return
	}
	b.appendText(fmt.Sprintf("%d", v))
}

// AppendInt4 appends a 32-bit integer column value.
func (b *DataRowBatch) AppendInt4(v int32) {
	b.checkType(Int4)
	if b.format.At(b.col) == BinaryFormat {
		b.appendBinary(4, v)
		return
	}
	b.appendText(fmt.Sprintf("%d", v))
}

// AppendInt8 appends a 64-bit integer column value.
func (b *DataRowBatch) AppendInt8(v int64) {
	b.checkType(Int8)
	if b.format.At(b.col) == BinaryFormat {
		b.appendBinary(8, v)
		return
	}
	b.appendText(fmt.Sprintf("%d", v))
}

// AppendFloat4 appends a 32-bit float column value.
func (b *DataRowBatch) AppendFloat4(v float32) {
	b.checkType(Float4)
	if b.format.At(b.col) == BinaryFormat {
		b.appendBinary(4, v)
		return
	}
	b.appendText(fmt.Sprintf("%v", v))
}

// AppendFloat8 appends a 64-bit float column value.
func (b *DataRowBatch) AppendFloat8(v float64) {
	b.checkType(Float8)
	if b.format.At(b.col) == BinaryFormat {
		b.appendBinary(8, v)
		return
	}
	b.appendText(fmt.Sprintf("%v", v))
}

// AppendText appends a text column value. Postgres's binary wire format for
// text is identical to its text format (raw bytes, no terminator), so the
// requested FormatCode makes no difference here.
func (b *DataRowBatch) AppendText(v string) {
	b.checkType(Text)
	b.appendText(v)
}

// appendText writes v as the wire's text representation: an int32 byte
// length followed by the raw bytes, no terminator.
func (b *DataRowBatch) appendText(v string) {
	binary.Write(&b.rows, binary.BigEndian, int32(len(v)))
	b.rows.WriteString(v)
	b.endColumn()
}

// appendBinary writes v in fixed-width big-endian binary form: an int32
// byte length (== width) followed by the value's raw bytes.
func (b *DataRowBatch) appendBinary(width int32, v any) {
	binary.Write(&b.rows, binary.BigEndian, width)
	binary.Write(&b.rows, binary.BigEndian, v)
	b.endColumn()
}

// Flush frames every accumulated row as a DataRow ('D') message and writes
// it to writer, then clears the batch.
func (b *DataRowBatch) Flush(writer *buffer.Writer) error {
	for i := 0; i < b.width; i++ {
		row, err := b.readRow()
		if err != nil {
			return err
		}

		writer.Start(types.ServerDataRow)
		writer.AddBytes(row)
		if err := writer.End(); err != nil {
			return err
		}
	}

	b.rows.Reset()
	b.width = 0
	return nil
}

// readRow pulls one pre-encoded row (ncols int16 + per-column (len, bytes))
// off the front of the staging buffer.
func (b *DataRowBatch) readRow() ([]byte, error) {
	var ncols int16
	if err := binary.Read(&b.rows, binary.BigEndian, &ncols); err != nil {
		return nil, err
	}

	buf := new(bytes.Buffer)
	binary.Write(buf, binary.BigEndian, ncols)

	for i := int16(0); i < ncols; i++ {
		var n int32
		if err := binary.Read(&b.rows, binary.BigEndian, &n); err != nil {
			return nil, err
		}
		binary.Write(buf, binary.BigEndian, n)

		if n > 0 {
			if _, err := buf.Write(b.rows.Next(int(n))); err != nil {
				return nil, err
			}
		}
	}

	return buf.Bytes(), nil
}
