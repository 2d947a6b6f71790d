package wire

import (
	"fmt"

	"github.com/lib/pq/oid"
)

// DataTypeOid identifies a column's PostgreSQL type by OID. The core only
// needs to recognise a small closed set in order to report correct wire
// sizes; any other OID passes through as Unknown and is never sized.
type DataTypeOid struct {
	oid     oid.Oid
	unknown bool
}

var (
	Unspecified = DataTypeOid{oid: 0}
	Int2        = DataTypeOid{oid: oid.T_int2}
	Int4        = DataTypeOid{oid: oid.T_int4}
	Int8        = DataTypeOid{oid: oid.T_int8}
	Float4      = DataTypeOid{oid: oid.T_float4}
	Float8      = DataTypeOid{oid: oid.T_float8}
	Text        = DataTypeOid{oid: oid.T_text}
)

// Unknown wraps an OID the core has no fixed-size rule for. Its Size is a
// programmer error to query: only the engine that produced the value knows
// how to encode it, so the core never attempts a generic encoding.
func Unknown(id uint32) DataTypeOid {
	return DataTypeOid{oid: oid.Oid(id), unknown: true}
}

// Oid returns the wire OID value, as sent in RowDescription.
func (d DataTypeOid) Oid() uint32 {
	return uint32(d.oid)
}

// Size returns the fixed wire width of the type in bytes, 0 for Unspecified,
// or -1 for the variable-width Text type. It panics only for Unknown, whose
// width only the producing engine could know.
func (d DataTypeOid) Size() int16 {
	if d.unknown {
		panic(fmt.Sprintf("wire: Size queried on unknown data type oid %d", d.oid))
	}

	switch d.oid {
	case 0:
		return 0
	case oid.T_int2:
		return 2
	case oid.T_int4:
		return 4
	case oid.T_int8:
		return 8
	case oid.T_float4:
		return 4
	case oid.T_float8:
		return 8
	case oid.T_text:
		return -1
	default:
		panic(fmt.Sprintf("wire: Size queried on unrecognised data type oid %d", d.oid))
	}
}

func (d DataTypeOid) String() string {
	switch d.oid {
	case 0:
		return "unspecified"
	case oid.T_int2:
		return "int2"
	case oid.T_int4:
		return "int4"
	case oid.T_int8:
		return "int8"
	case oid.T_float4:
		return "float4"
	case oid.T_float8:
		return "float8"
	case oid.T_text:
		return "text"
	default:
		return fmt.Sprintf("oid(%d)", d.oid)
	}
}
