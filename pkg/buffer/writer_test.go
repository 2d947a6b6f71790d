package buffer

import (
	"bytes"
	"errors"
	"testing"

	"github.com/neilotoole/slogt"
	"github.com/stretchr/testify/require"

	"github.com/splitgraph/convergence/pkg/types"
)

var errWriterTest = errors.New("boom")

func TestWriterEndPatchesLengthPrefix(t *testing.T) {
	var sink bytes.Buffer
	writer := NewWriter(slogt.New(t), &sink)

	writer.Start(types.ServerCommandComplete)
	writer.AddString("SELECT 1")
	writer.AddNullTerminate()
	require.NoError(t, writer.End())

	out := sink.Bytes()
	require.Equal(t, byte(types.ServerCommandComplete), out[0])

	length := uint32(out[1])<<24 | uint32(out[2])<<16 | uint32(out[3])<<8 | uint32(out[4])
	require.EqualValues(t, len(out)-1, length)
}

func TestWriterResetClearsErrorAndFrame(t *testing.T) {
	var sink bytes.Buffer
	writer := NewWriter(slogt.New(t), &sink)

	writer.Start(types.ServerCommandComplete)
	writer.AddString("x")
	writer.Reset()

	require.NoError(t, writer.Error())
	require.Empty(t, writer.Bytes())
}

func TestWriterErrorShortCircuitsFurtherWrites(t *testing.T) {
	var sink bytes.Buffer
	writer := NewWriter(slogt.New(t), &sink)

	writer.Start(types.ServerCommandComplete)
	writer.err = errWriterTest
	before := len(writer.Bytes())
	writer.AddString("never written")
	require.Equal(t, before, len(writer.Bytes()))
	require.ErrorIs(t, writer.Error(), errWriterTest)
}

func TestEncodeBoolean(t *testing.T) {
	require.Equal(t, "on", EncodeBoolean(true))
	require.Equal(t, "off", EncodeBoolean(false))
}
