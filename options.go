package wire

import "log/slog"

// OptionFn options pattern used to configure a Server at construction time.
type OptionFn func(*Server) error

// Logger sets the structured logger the server and its connections write
// to. Defaults to slog.Default() when omitted.
func Logger(logger *slog.Logger) OptionFn {
	return func(srv *Server) error {
		srv.logger = logger
		return nil
	}
}

// BufferSize sets the maximum size in bytes a single protocol message may
// occupy before it is rejected with ErrMessageSizeExceeded. Defaults to
// buffer.DefaultBufferSize.
func BufferSize(size int) OptionFn {
	return func(srv *Server) error {
		srv.BufferedMsgSize = size
		return nil
	}
}

// Version overrides the server_version parameter reported during startup.
// Defaults to "15.0" when omitted.
func Version(version string) OptionFn {
	return func(srv *Server) error {
		srv.Version = version
		return nil
	}
}

// GlobalParameters sets additional ParameterStatus values reported to every
// connecting client after authentication. Values given for server_encoding,
// client_encoding, DateStyle, TimeZone, is_superuser or server_version are
// replaced by the core's own.
func GlobalParameters(params Parameters) OptionFn {
	return func(srv *Server) error {
		srv.Parameters = params
		return nil
	}
}
