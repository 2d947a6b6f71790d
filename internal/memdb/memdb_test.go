package memdb

import (
	"bytes"
	"context"
	"testing"

	"github.com/neilotoole/slogt"
	"github.com/stretchr/testify/require"

	wire "github.com/splitgraph/convergence"
	"github.com/splitgraph/convergence/internal/sqllit"
	"github.com/splitgraph/convergence/pkg/buffer"
)

func TestPrepareAndFetchTableSelect(t *testing.T) {
	engine := New()
	ctx := context.Background()

	statements, err := (sqllit.Parser{}).Parse("SELECT id, message FROM greeting")
	require.NoError(t, err)

	fields, err := engine.Prepare(ctx, statements[0])
	require.NoError(t, err)
	require.Equal(t, []wire.FieldDescription{
		{Name: "id", Type: wire.Int4},
		{Name: "message", Type: wire.Text},
	}, fields)

	portal, err := engine.CreatePortal(ctx, statements[0])
	require.NoError(t, err)

	batch := wire.NewDataRowBatch(fields, wire.AllText())
	require.NoError(t, portal.Fetch(ctx, batch))
	require.Equal(t, 2, batch.Len())
}

func TestPrepareLiteralSelect(t *testing.T) {
	engine := New()
	ctx := context.Background()

	statements, err := (sqllit.Parser{}).Parse("SELECT 1, 'hi'")
	require.NoError(t, err)

	fields, err := engine.Prepare(ctx, statements[0])
	require.NoError(t, err)
	require.Len(t, fields, 2)
	require.Equal(t, "?column?", fields[0].Name)

	portal, err := engine.CreatePortal(ctx, statements[0])
	require.NoError(t, err)

	batch := wire.NewDataRowBatch(fields, wire.AllText())
	require.NoError(t, portal.Fetch(ctx, batch))
	require.Equal(t, 1, batch.Len())
}

func TestPrepareUnknownTable(t *testing.T) {
	engine := New()
	ctx := context.Background()

	statements, err := (sqllit.Parser{}).Parse("SELECT * FROM nope")
	require.NoError(t, err)

	_, err = engine.Prepare(ctx, statements[0])
	require.Error(t, err)
}

func TestPgTypeDemoFallsBackToDataTypeOidNames(t *testing.T) {
	engine := New()
	ctx := context.Background()

	statements, err := (sqllit.Parser{}).Parse("SELECT typname, oid FROM pg_type_demo")
	require.NoError(t, err)

	fields, err := engine.Prepare(ctx, statements[0])
	require.NoError(t, err)
	require.Equal(t, []wire.FieldDescription{
		{Name: "typname", Type: wire.Text},
		{Name: "oid", Type: wire.Int4},
	}, fields)

	portal, err := engine.CreatePortal(ctx, statements[0])
	require.NoError(t, err)

	batch := wire.NewDataRowBatch(fields, wire.AllText())
	require.NoError(t, portal.Fetch(ctx, batch))
	require.Equal(t, 6, batch.Len())

	var out bytes.Buffer
	require.NoError(t, batch.Flush(buffer.NewWriter(slogt.New(t), &out)))

	reader := buffer.NewReader(slogt.New(t), &out, buffer.DefaultBufferSize)
	_, _, err = reader.ReadTypedMsg()
	require.NoError(t, err)

	_, err = reader.GetUint16()
	require.NoError(t, err)

	nameLen, err := reader.GetUint32()
	require.NoError(t, err)

	name, err := reader.GetBytes(int(nameLen))
	require.NoError(t, err)
	require.Equal(t, wire.Int2.String(), string(name))
}

func TestPrepareUnknownColumn(t *testing.T) {
	engine := New()
	ctx := context.Background()

	statements, err := (sqllit.Parser{}).Parse("SELECT bogus FROM greeting")
	require.NoError(t, err)

	_, err = engine.Prepare(ctx, statements[0])
	require.Error(t, err)
}
