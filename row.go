package wire

import (
	"github.com/splitgraph/convergence/pkg/buffer"
	"github.com/splitgraph/convergence/pkg/types"
)

// FieldDescription is a single result column: its name and its type. The
// wire field-description record also carries a table OID, attribute number
// and type modifier, which the core always emits as zero/-1 since it has no
// notion of a backing table.
type FieldDescription struct {
	Name string
	Type DataTypeOid
}

// BindFormat is the result-format choice a client makes during Bind,
// resolved from the wire's 0/1/n-codes rule: zero codes means every column
// is Text, one code applies to every column, and n codes (n equal to the
// column count) assigns one format per column.
type BindFormat struct {
	all    *FormatCode
	perCol []FormatCode
}

// AllText is the default BindFormat a Bind with zero result-format codes
// resolves to.
func AllText() BindFormat {
	f := TextFormat
	return BindFormat{all: &f}
}

// NewUniformBindFormat returns a BindFormat applying f to every column.
func NewUniformBindFormat(f FormatCode) BindFormat {
	return BindFormat{all: &f}
}

// NewPerColumnBindFormat returns a BindFormat assigning one format per
// column, in column order.
func NewPerColumnBindFormat(formats []FormatCode) BindFormat {
	return BindFormat{perCol: formats}
}

// At returns the format to use for the column at index i.
func (b BindFormat) At(i int) FormatCode {
	if b.all != nil {
		return *b.all
	}
	if i < len(b.perCol) {
		return b.perCol[i]
	}
	return TextFormat
}

// resolveBindFormat implements the wire's 0/1/n-codes rule for a Bind
// message's result-format-code list. It does not check n against the
// column count; BindFormat.At reports Text for columns past the list.
func resolveBindFormat(codes []FormatCode) BindFormat {
	switch len(codes) {
	case 0:
		return AllText()
	case 1:
		return NewUniformBindFormat(codes[0])
	default:
		return NewPerColumnBindFormat(codes)
	}
}

// writeRowDescription emits a RowDescription ('T') message: the field count
// followed by each field's name, table oid (0), attribute number (0), type
// oid, wire width, type modifier (-1) and format code.
func writeRowDescription(writer *buffer.Writer, fields []FieldDescription, format BindFormat) error {
	writer.Start(types.ServerRowDescription)
	writer.AddInt16(int16(len(fields)))

	for i, field := range fields {
		writer.AddString(field.Name)
		writer.AddNullTerminate()
		writer.AddInt32(0) // table oid
		writer.AddInt16(0) // attribute number
		writer.AddInt32(int32(field.Type.Oid()))
		writer.AddInt16(field.Type.Size())
		writer.AddInt32(-1) // type modifier
		writer.AddInt16(int16(format.At(i)))
	}

	return writer.End()
}

// writeParameterDescription emits a ParameterDescription ('t') message. The
// core never decodes parameter types, so it always reports zero parameters.
func writeParameterDescription(writer *buffer.Writer) error {
	writer.Start(types.ServerParameterDescription)
	writer.AddInt16(0)
	return writer.End()
}
