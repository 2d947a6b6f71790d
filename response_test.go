package wire

import (
	"bytes"
	"errors"
	"testing"

	"github.com/neilotoole/slogt"
	"github.com/stretchr/testify/require"

	"github.com/splitgraph/convergence/codes"
	psqlerr "github.com/splitgraph/convergence/errors"
	"github.com/splitgraph/convergence/pkg/buffer"
	"github.com/splitgraph/convergence/pkg/types"
)

func TestWriteErrorResponseDoesNotWriteReadyForQuery(t *testing.T) {
	sink := &bytes.Buffer{}
	writer := buffer.NewWriter(slogt.New(t), sink)

	cause := psqlerr.WithCode(errors.New("boom"), codes.Syntax)
	require.NoError(t, writeErrorResponse(writer, cause))

	reader := buffer.NewReader(slogt.New(t), sink, buffer.DefaultBufferSize)

	typed, _, err := reader.ReadTypedMsg()
	require.NoError(t, err)
	require.Equal(t, types.ServerErrorResponse, typed)

	_, _, err = reader.ReadTypedMsg()
	require.Error(t, err)
}

func TestWriteErrorResponseDefaultsUncategorized(t *testing.T) {
	sink := &bytes.Buffer{}
	writer := buffer.NewWriter(slogt.New(t), sink)

	require.NoError(t, writeErrorResponse(writer, errors.New("plain error")))

	reader := buffer.NewReader(slogt.New(t), sink, buffer.DefaultBufferSize)

	typed, _, err := reader.ReadTypedMsg()
	require.NoError(t, err)
	require.Equal(t, types.ServerErrorResponse, typed)

	field, err := reader.GetBytes(1)
	require.NoError(t, err)
	require.Equal(t, byte('C'), field[0])

	code, err := reader.GetString()
	require.NoError(t, err)
	require.Equal(t, string(codes.Uncategorized), code)
}
