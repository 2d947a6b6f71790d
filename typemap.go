package wire

import (
	"fmt"

	"github.com/splitgraph/convergence/codes"
	psqlerr "github.com/splitgraph/convergence/errors"
)

// Column is one engine-native typed array backing a RecordBatch. Each
// concrete column type knows its own DataTypeOid and how to append its i-th
// element (or a null) onto a DataRowBatch.
type Column interface {
	OID() DataTypeOid
	Len() int
	AppendTo(batch *DataRowBatch, i int)
}

// Int2Column is a nullable column of 16-bit integers.
type Int2Column []*int16

func (c Int2Column) OID() DataTypeOid { return Int2 }
func (c Int2Column) Len() int         { return len(c) }
func (c Int2Column) AppendTo(batch *DataRowBatch, i int) {
	if c[i] == nil {
		batch.AppendNull()
		return
	}
	batch.AppendInt2(*c[i])
}

// Int4Column is a nullable column of 32-bit integers.
type Int4Column []*int32

func (c Int4Column) OID() DataTypeOid { return Int4 }
func (c Int4Column) Len() int         { return len(c) }
func (c Int4Column) AppendTo(batch *DataRowBatch, i int) {
	if c[i] == nil {
		batch.AppendNull()
		return
	}
	batch.AppendInt4(*c[i])
}

// Int8Column is a nullable column of 64-bit integers.
type Int8Column []*int64

func (c Int8Column) OID() DataTypeOid { return Int8 }
func (c Int8Column) Len() int         { return len(c) }
func (c Int8Column) AppendTo(batch *DataRowBatch, i int) {
	if c[i] == nil {
		batch.AppendNull()
		return
	}
	batch.AppendInt8(*c[i])
}

// Float4Column is a nullable column of 32-bit floats.
type Float4Column []*float32

func (c Float4Column) OID() DataTypeOid { return Float4 }
func (c Float4Column) Len() int         { return len(c) }
func (c Float4Column) AppendTo(batch *DataRowBatch, i int) {
	if c[i] == nil {
		batch.AppendNull()
		return
	}
	batch.AppendFloat4(*c[i])
}

// Float8Column is a nullable column of 64-bit floats.
type Float8Column []*float64

func (c Float8Column) OID() DataTypeOid { return Float8 }
func (c Float8Column) Len() int         { return len(c) }
func (c Float8Column) AppendTo(batch *DataRowBatch, i int) {
	if c[i] == nil {
		batch.AppendNull()
		return
	}
	batch.AppendFloat8(*c[i])
}

// TextColumn is a nullable column of UTF-8 strings.
type TextColumn []*string

func (c TextColumn) OID() DataTypeOid { return Text }
func (c TextColumn) Len() int         { return len(c) }
func (c TextColumn) AppendTo(batch *DataRowBatch, i int) {
	if c[i] == nil {
		batch.AppendNull()
		return
	}
	batch.AppendText(*c[i])
}

// RecordBatch is a columnar result set: a schema plus one Column per field,
// each holding the same number of elements in logical row order. This is
// the shape an engine's native columnar batch (e.g. an Arrow RecordBatch)
// is expected to be adapted into before crossing into the wire layer.
type RecordBatch struct {
	Schema  []FieldDescription
	Columns []Column
}

// WriteRecordBatch appends one DataRowBatch row per element of batch, in
// logical order, type-checking each column against its declared
// FieldDescription. An engine column whose OID the core cannot map to a
// known width is reported as SQLSTATE 0A000 (feature not supported) rather
// than guessed at.
func WriteRecordBatch(dst *DataRowBatch, batch RecordBatch) error {
	if len(batch.Schema) != len(batch.Columns) {
		return psqlerr.WithCode(
			psqlerr.WithSeverity(
				fmt.Errorf("record batch has %d schema fields but %d columns", len(batch.Schema), len(batch.Columns)),
				psqlerr.LevelError,
			),
			codes.FeatureNotSupported,
		)
	}

	for i, col := range batch.Columns {
		want := batch.Schema[i].Type
		if col.OID() != want {
			return psqlerr.WithCode(
				psqlerr.WithSeverity(
					fmt.Errorf("column %d (%s) is declared %s but the engine produced %s", i, batch.Schema[i].Name, want, col.OID()),
					psqlerr.LevelError,
				),
				codes.FeatureNotSupported,
			)
		}

		switch want {
		case Int2, Int4, Int8, Float4, Float8, Text:
		default:
			return psqlerr.WithCode(
				psqlerr.WithSeverity(
					fmt.Errorf("column %d (%s) has unsupported type %s", i, batch.Schema[i].Name, want),
					psqlerr.LevelError,
				),
				codes.FeatureNotSupported,
			)
		}
	}

	rows := 0
	if len(batch.Columns) > 0 {
		rows = batch.Columns[0].Len()
	}

	for r := 0; r < rows; r++ {
		dst.Next()
		for _, col := range batch.Columns {
			col.AppendTo(dst, r)
		}
	}

	return nil
}
