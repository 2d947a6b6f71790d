// Package memdb is a tiny fixed in-memory table engine: enough to let
// cmd/pgwired answer real queries over the wire protocol without wiring up
// an actual database.
package memdb

import (
	"context"
	"fmt"
	"strconv"

	wire "github.com/splitgraph/convergence"
	"github.com/splitgraph/convergence/codes"
	psqlerr "github.com/splitgraph/convergence/errors"
	"github.com/splitgraph/convergence/internal/sqllit"
)

// table is a fixed, in-memory relation: a schema plus pre-populated rows.
// Each row is ordered exactly like Columns; a nil entry is SQL NULL.
type table struct {
	columns []wire.FieldDescription
	rows    [][]any
}

// Engine implements wire.Engine over a small set of built-in tables and the
// sqllit literal-select subset.
type Engine struct {
	tables map[string]*table
}

// pgTypeDemoFields is pg_type_demo's schema: a type name and its wire OID,
// in the manner of Postgres's own pg_type catalog.
var pgTypeDemoFields = []wire.FieldDescription{
	{Name: "typname", Type: wire.Text},
	{Name: "oid", Type: wire.Int4},
}

// pgTypeDemoOIDs lists the rows pg_type_demo produces: the core's own
// closed DataTypeOid set, in the order the core declares it (int2, int4,
// int8, float4, float8, text).
var pgTypeDemoOIDs = []wire.DataTypeOid{
	wire.Int2, wire.Int4, wire.Int8, wire.Float4, wire.Float8, wire.Text,
}

// New constructs an Engine pre-populated with a couple of demonstration
// tables, the way the teacher's examples/simple demo hands back a single
// fixed result set.
func New() *Engine {
	return &Engine{
		tables: map[string]*table{
			"greeting": {
				columns: []wire.FieldDescription{
					{Name: "id", Type: wire.Int4},
					{Name: "message", Type: wire.Text},
				},
				rows: [][]any{
					{int32(1), "hello"},
					{int32(2), "world"},
				},
			},
			"pg_type_demo": {
				columns: pgTypeDemoFields,
			},
		},
	}
}

// Prepare resolves stmt's result schema without running it.
func (e *Engine) Prepare(_ context.Context, stmt wire.Statement) ([]wire.FieldDescription, error) {
	s, ok := stmt.(*sqllit.Statement)
	if !ok {
		return nil, newErrUnsupportedStatement(stmt)
	}

	switch s.Kind {
	case sqllit.KindLiteralSelect:
		return literalFields(s.Literals), nil
	case sqllit.KindTableSelect:
		t, err := e.lookupTable(s.Table)
		if err != nil {
			return nil, err
		}
		fields, _, err := projectColumns(t, s.Columns)
		return fields, err
	default:
		return nil, newErrUnsupportedStatement(stmt)
	}
}

// CreatePortal binds stmt to a row-producing handle.
func (e *Engine) CreatePortal(_ context.Context, stmt wire.Statement) (wire.Portal, error) {
	s, ok := stmt.(*sqllit.Statement)
	if !ok {
		return nil, newErrUnsupportedStatement(stmt)
	}

	switch s.Kind {
	case sqllit.KindLiteralSelect:
		return &literalPortal{fields: literalFields(s.Literals), literals: s.Literals}, nil
	case sqllit.KindTableSelect:
		t, err := e.lookupTable(s.Table)
		if err != nil {
			return nil, err
		}

		fields, indices, err := projectColumns(t, s.Columns)
		if err != nil {
			return nil, err
		}

		if s.Table == "pg_type_demo" {
			return &pgTypeDemoPortal{fields: fields, indices: indices}, nil
		}
		return &tablePortal{fields: fields, indices: indices, rows: t.rows}, nil
	default:
		return nil, newErrUnsupportedStatement(stmt)
	}
}

func (e *Engine) lookupTable(name string) (*table, error) {
	t, ok := e.tables[name]
	if !ok {
		err := fmt.Errorf("relation %q does not exist", name)
		return nil, psqlerr.WithSeverity(psqlerr.WithCode(err, codes.DataException), psqlerr.LevelError)
	}
	return t, nil
}

// projectColumns resolves a (possibly nil, meaning "*") requested column
// list against t's schema, returning the matching field descriptions and
// their indices into each stored row.
func projectColumns(t *table, requested []string) ([]wire.FieldDescription, []int, error) {
	if requested == nil {
		indices := make([]int, len(t.columns))
		for i := range t.columns {
			indices[i] = i
		}
		return t.columns, indices, nil
	}

	fields := make([]wire.FieldDescription, len(requested))
	indices := make([]int, len(requested))

	for i, name := range requested {
		idx := -1
		for j, col := range t.columns {
			if col.Name == name {
				idx = j
				break
			}
		}
		if idx < 0 {
			err := fmt.Errorf("column %q does not exist", name)
			return nil, nil, psqlerr.WithSeverity(psqlerr.WithCode(err, codes.DataException), psqlerr.LevelError)
		}

		fields[i] = t.columns[idx]
		indices[i] = idx
	}

	return fields, indices, nil
}

// literalFields builds the result schema for a constant-row SELECT. Real
// Postgres names an unaliased expression column "?column?"; this engine
// does the same.
func literalFields(literals []sqllit.Literal) []wire.FieldDescription {
	fields := make([]wire.FieldDescription, len(literals))
	for i, lit := range literals {
		fields[i] = wire.FieldDescription{Name: "?column?", Type: lit.Type}
	}
	return fields
}

func newErrUnsupportedStatement(stmt wire.Statement) error {
	err := fmt.Errorf("unsupported statement: %s", stmt.String())
	return psqlerr.WithSeverity(psqlerr.WithCode(err, codes.FeatureNotSupported), psqlerr.LevelError)
}

// literalPortal produces the single constant row a literal SELECT describes.
type literalPortal struct {
	fields   []wire.FieldDescription
	literals []sqllit.Literal
}

func (p *literalPortal) Fetch(_ context.Context, batch *wire.DataRowBatch) error {
	batch.Next()
	for _, lit := range p.literals {
		if lit.Null {
			batch.AppendNull()
			continue
		}

		switch lit.Type {
		case wire.Text:
			batch.AppendText(lit.Text)
		case wire.Int8:
			v, err := strconv.ParseInt(lit.Text, 10, 64)
			if err != nil {
				return err
			}
			batch.AppendInt8(v)
		case wire.Float8:
			v, err := strconv.ParseFloat(lit.Text, 64)
			if err != nil {
				return err
			}
			batch.AppendFloat8(v)
		default:
			batch.AppendText(lit.Text)
		}
	}

	return nil
}

// tablePortal scans a fixed table's pre-populated rows.
type tablePortal struct {
	fields  []wire.FieldDescription
	indices []int
	rows    [][]any
}

func (p *tablePortal) Fetch(_ context.Context, batch *wire.DataRowBatch) error {
	for _, row := range p.rows {
		batch.Next()
		for i, idx := range p.indices {
			if err := appendValue(batch, p.fields[i].Type, row[idx]); err != nil {
				return err
			}
		}
	}

	return nil
}

// pgTypeDemoPortal produces pg_type_demo's rows. Unlike tablePortal, its
// data isn't stored: the typname column is resolved through the server's
// *pgtype.Map (stashed in ctx by the core) when one is present, falling
// back to the core's own DataTypeOid.String() otherwise. This is the one
// place the demo engine reaches for the richer type introspection the
// closed DataTypeOid set doesn't offer.
type pgTypeDemoPortal struct {
	fields  []wire.FieldDescription
	indices []int
}

func (p *pgTypeDemoPortal) Fetch(ctx context.Context, batch *wire.DataRowBatch) error {
	types := wire.TypeInfo(ctx)

	for _, oid := range pgTypeDemoOIDs {
		name := oid.String()
		if types != nil {
			if t, ok := types.TypeForOID(oid.Oid()); ok {
				name = t.Name
			}
		}

		row := [2]any{name, int32(oid.Oid())}

		batch.Next()
		for i, idx := range p.indices {
			if err := appendValue(batch, p.fields[i].Type, row[idx]); err != nil {
				return err
			}
		}
	}

	return nil
}

func appendValue(batch *wire.DataRowBatch, typ wire.DataTypeOid, v any) error {
	if v == nil {
		batch.AppendNull()
		return nil
	}

	switch typ {
	case wire.Int2:
		batch.AppendInt2(v.(int16))
	case wire.Int4:
		batch.AppendInt4(v.(int32))
	case wire.Int8:
		batch.AppendInt8(v.(int64))
	case wire.Float4:
		batch.AppendFloat4(v.(float32))
	case wire.Float8:
		batch.AppendFloat8(v.(float64))
	case wire.Text:
		batch.AppendText(v.(string))
	default:
		return fmt.Errorf("memdb: column of unsupported type %s", typ)
	}

	return nil
}
