package wire

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

type ctxKey int

const (
	ctxTypeInfo ctxKey = iota
	ctxClientMetadata
	ctxServerMetadata
)

// setTypeInfo stashes the server's type map inside ctx, for engines that
// want richer type introspection than the closed DataTypeOid set exposes.
func setTypeInfo(ctx context.Context, info *pgtype.Map) context.Context {
	return context.WithValue(ctx, ctxTypeInfo, info)
}

// TypeInfo returns the Postgres type map set inside the given context, or
// nil if none was set.
func TypeInfo(ctx context.Context) *pgtype.Map {
	val := ctx.Value(ctxTypeInfo)
	if val == nil {
		return nil
	}

	return val.(*pgtype.Map)
}

// ParameterStatus is a metadata key that can appear in a startup parameter
// collection or in a ParameterStatus ('S') message.
type ParameterStatus string

// https://www.postgresql.org/docs/13/protocol-flow.html#PROTOCOL-ASYNC
const (
	ParamServerEncoding  ParameterStatus = "server_encoding"
	ParamClientEncoding  ParameterStatus = "client_encoding"
	ParamApplicationName ParameterStatus = "application_name"
	ParamDatabase        ParameterStatus = "database"
	ParamUsername        ParameterStatus = "user"
	ParamServerVersion   ParameterStatus = "server_version"
	ParamDateStyle       ParameterStatus = "DateStyle"
	ParamTimeZone        ParameterStatus = "TimeZone"
	ParamIsSuperuser     ParameterStatus = "is_superuser"
)

// Parameters is a collection of parameter keys and their values.
type Parameters map[ParameterStatus]string

// setClientParameters constructs a new context containing the given
// startup parameters sent by the client.
func setClientParameters(ctx context.Context, params Parameters) context.Context {
	if params == nil {
		return ctx
	}

	return context.WithValue(ctx, ctxClientMetadata, params)
}

// ClientParameters returns the client's startup parameters if set inside
// the given context.
func ClientParameters(ctx context.Context) Parameters {
	val := ctx.Value(ctxClientMetadata)
	if val == nil {
		return nil
	}

	return val.(Parameters)
}

// setServerParameters constructs a new context containing the parameters
// the server reported back to the client during startup.
func setServerParameters(ctx context.Context, params Parameters) context.Context {
	if params == nil {
		return ctx
	}

	return context.WithValue(ctx, ctxServerMetadata, params)
}

// ServerParameters returns the server's reported parameters if set inside
// the given context.
func ServerParameters(ctx context.Context) Parameters {
	val := ctx.Value(ctxServerMetadata)
	if val == nil {
		return nil
	}

	return val.(Parameters)
}
