package wire

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/require"
)

func TestTypeInfoRoundTrip(t *testing.T) {
	require.Nil(t, TypeInfo(context.Background()))

	types := pgtype.NewMap()
	ctx := setTypeInfo(context.Background(), types)
	require.Same(t, types, TypeInfo(ctx))
}

func TestClientServerParametersRoundTrip(t *testing.T) {
	require.Nil(t, ClientParameters(context.Background()))
	require.Nil(t, ServerParameters(context.Background()))

	ctx := setClientParameters(context.Background(), Parameters{ParamUsername: "alice"})
	ctx = setServerParameters(ctx, Parameters{ParamServerVersion: "15.0"})

	require.Equal(t, Parameters{ParamUsername: "alice"}, ClientParameters(ctx))
	require.Equal(t, Parameters{ParamServerVersion: "15.0"}, ServerParameters(ctx))
}

func TestSetParametersNilIsNoop(t *testing.T) {
	ctx := setClientParameters(context.Background(), nil)
	require.Nil(t, ClientParameters(ctx))
}
