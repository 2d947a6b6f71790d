package wire

import (
	"bytes"
	"testing"

	"github.com/neilotoole/slogt"
	"github.com/stretchr/testify/require"

	"github.com/splitgraph/convergence/pkg/buffer"
	"github.com/splitgraph/convergence/pkg/types"
)

func TestDataRowBatchRoundTrip(t *testing.T) {
	fields := []FieldDescription{
		{Name: "id", Type: Int4},
		{Name: "name", Type: Text},
	}

	batch := NewDataRowBatch(fields, AllText())

	batch.Next()
	batch.AppendInt4(1)
	batch.AppendText("alice")

	batch.Next()
	batch.AppendInt4(2)
	batch.AppendNull()

	require.Equal(t, 2, batch.Len())

	var out bytes.Buffer
	writer := buffer.NewWriter(slogt.New(t), &out)
	require.NoError(t, batch.Flush(writer))
	require.Equal(t, 0, batch.Len())

	reader := buffer.NewReader(slogt.New(t), &out, buffer.DefaultBufferSize)

	for i := 0; i < 2; i++ {
		typed, _, err := reader.ReadTypedMsg()
		require.NoError(t, err)
		require.Equal(t, types.ServerDataRow, typed)

		ncols, err := reader.GetUint16()
		require.NoError(t, err)
		require.EqualValues(t, 2, ncols)
	}
}

func TestDataRowBatchBinaryFormatRoundTrip(t *testing.T) {
	fields := []FieldDescription{
		{Name: "id", Type: Int4},
		{Name: "name", Type: Text},
	}

	batch := NewDataRowBatch(fields, NewUniformBindFormat(BinaryFormat))

	batch.Next()
	batch.AppendInt4(258)
	batch.AppendText("bob")

	var out bytes.Buffer
	writer := buffer.NewWriter(slogt.New(t), &out)
	require.NoError(t, batch.Flush(writer))

	reader := buffer.NewReader(slogt.New(t), &out, buffer.DefaultBufferSize)

	typed, _, err := reader.ReadTypedMsg()
	require.NoError(t, err)
	require.Equal(t, types.ServerDataRow, typed)

	ncols, err := reader.GetUint16()
	require.NoError(t, err)
	require.EqualValues(t, 2, ncols)

	idLen, err := reader.GetUint32()
	require.NoError(t, err)
	require.EqualValues(t, 4, idLen)

	idBytes, err := reader.GetBytes(4)
	require.NoError(t, err)
	require.Equal(t, int32(258), int32(idBytes[0])<<24|int32(idBytes[1])<<16|int32(idBytes[2])<<8|int32(idBytes[3]))

	nameLen, err := reader.GetUint32()
	require.NoError(t, err)
	require.EqualValues(t, 3, nameLen)

	nameBytes, err := reader.GetBytes(3)
	require.NoError(t, err)
	require.Equal(t, "bob", string(nameBytes))
}

func TestDataRowBatchWrongTypePanics(t *testing.T) {
	fields := []FieldDescription{{Name: "id", Type: Int4}}
	batch := NewDataRowBatch(fields, AllText())

	batch.Next()
	require.Panics(t, func() {
		batch.AppendText("not an int4")
	})
}

func TestDataRowBatchIncompleteRowPanics(t *testing.T) {
	fields := []FieldDescription{{Name: "id", Type: Int4}, {Name: "name", Type: Text}}
	batch := NewDataRowBatch(fields, AllText())

	batch.Next()
	batch.AppendInt4(1)

	require.Panics(t, func() {
		batch.Next()
	})
}
