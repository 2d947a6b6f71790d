package wire

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"net"

	"github.com/splitgraph/convergence/pkg/buffer"
	"github.com/splitgraph/convergence/pkg/types"
)

// sslUnsupportedReply is the single byte a server sends in place of an
// upgrade when it has no SSL support to offer: 'N' for "no".
var sslUnsupportedReply = []byte{'N'}

// Handshake performs the connection handshake: it reads the startup
// version, declines any SSL request, and for a cancel request closes the
// connection without further ado (the core tracks no backend key data, so
// there is nothing a cancel request could address).
func (srv *Server) Handshake(conn net.Conn) (version types.Version, reader *buffer.Reader, err error) {
	reader = buffer.NewReader(srv.logger, conn, srv.BufferedMsgSize)

	version, err = srv.readVersion(reader)
	if err != nil {
		return version, reader, err
	}

	if version == types.VersionSSLRequest || version == types.VersionGSSENC {
		srv.logger.Debug("declining encrypted connection upgrade")
		if _, err := conn.Write(sslUnsupportedReply); err != nil {
			return version, reader, err
		}

		version, err = srv.readVersion(reader)
		if err != nil {
			return version, reader, err
		}
	}

	if version == types.VersionCancel {
		return version, reader, errors.New("cancel request received, closing connection")
	}

	return version, reader, nil
}

// readVersion reads the startup message's length prefix and its leading
// int32 version/request code.
func (srv *Server) readVersion(reader *buffer.Reader) (types.Version, error) {
	if _, err := reader.ReadUntypedMsg(); err != nil {
		return 0, err
	}

	version, err := reader.GetUint32()
	if err != nil {
		return 0, err
	}

	return types.Version(version), nil
}

// readyForQuery announces that the server is ready to receive a new command
// cycle. The core tracks no transaction state beyond idle, so status is
// always ServerIdle.
func readyForQuery(writer *buffer.Writer, status types.ServerStatus) error {
	writer.Start(types.ServerReady)
	writer.AddByte(byte(status))
	return writer.End()
}

// readClientParameters reads the startup message's key/value parameter
// pairs, terminated by an empty key, and attaches them to ctx.
func (srv *Server) readClientParameters(ctx context.Context, reader *buffer.Reader) (context.Context, error) {
	meta := make(Parameters)

	srv.logger.Debug("reading client parameters")

	for {
		key, err := reader.GetString()
		if err != nil {
			return nil, err
		}

		if len(key) == 0 {
			break
		}

		value, err := reader.GetString()
		if err != nil {
			return nil, err
		}

		srv.logger.Debug("client parameter", slog.String("key", key), slog.String("value", value))
		meta[ParameterStatus(key)] = value
	}

	return setClientParameters(ctx, meta), nil
}

// writeParameters writes the fixed set of ParameterStatus messages the core
// reports after authentication, plus any caller-supplied extra parameters.
// A caller-supplied value for one of the fixed keys is replaced by the
// core's own value.
func (srv *Server) writeParameters(ctx context.Context, writer *buffer.Writer, params Parameters) (context.Context, error) {
	if params == nil {
		params = make(Parameters, 6)
	} else {
		params = maps.Clone(params)
	}

	params[ParamServerEncoding] = "UTF8"
	params[ParamClientEncoding] = "UTF8"
	params[ParamDateStyle] = "ISO, MDY"
	params[ParamTimeZone] = "UTC"
	params[ParamIsSuperuser] = "off"

	version := srv.Version
	if version == "" {
		version = "15.0"
	}
	params[ParamServerVersion] = version

	srv.logger.Debug("writing server parameters")

	for key, value := range params {
		srv.logger.Debug("server parameter", slog.String("key", string(key)), slog.String("value", value))

		writer.Start(types.ServerParameterStatus)
		writer.AddString(string(key))
		writer.AddNullTerminate()
		writer.AddString(value)
		writer.AddNullTerminate()
		if err := writer.End(); err != nil {
			return ctx, err
		}
	}

	return setServerParameters(ctx, params), nil
}

// writeAuthenticationOk writes the single AuthenticationOk message the core
// sends unconditionally: there is no password or SASL negotiation.
func writeAuthenticationOk(writer *buffer.Writer) error {
	writer.Start(types.ServerAuth)
	writer.AddInt32(0)
	return writer.End()
}
