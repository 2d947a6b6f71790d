package wire

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"strconv"
	"strings"

	"github.com/splitgraph/convergence/pkg/buffer"
	"github.com/splitgraph/convergence/pkg/types"
)

// connState holds the per-connection tables and the error-suspension flag
// the extended-query protocol needs to honour Sync as a resynchronization
// point: once an error is raised mid-extended-query, every message except
// Sync and Terminate is dropped until Sync arrives.
type connState struct {
	statements *StatementCache
	portals    *PortalCache
	suspended  bool
}

func newConnState() *connState {
	return &connState{
		statements: newStatementCache(),
		portals:    newPortalCache(),
	}
}

// consumeCommands drives a single connection's command cycle until
// Terminate or the connection closes. It emits the first ReadyForQuery
// (the handshake's conclusion) and then loops reading and dispatching
// messages.
func (srv *Server) consumeCommands(ctx context.Context, conn net.Conn, reader *buffer.Reader, writer *buffer.Writer) error {
	srv.logger.Debug("ready for query, consuming commands")

	if err := readyForQuery(writer, types.ServerIdle); err != nil {
		return err
	}

	state := newConnState()
	defer state.statements.Clear()
	defer state.portals.Clear()

	for {
		if err := srv.consumeSingleCommand(ctx, conn, reader, writer, state); err != nil {
			return err
		}
	}
}

func (srv *Server) consumeSingleCommand(ctx context.Context, conn net.Conn, reader *buffer.Reader, writer *buffer.Writer, state *connState) error {
	t, length, err := reader.ReadTypedMsg()
	if err == io.EOF {
		return err
	}

	if errors.Is(err, buffer.ErrMessageSizeExceeded) {
		return srv.handleMessageSizeExceeded(reader, writer, err)
	}

	if err != nil {
		return err
	}

	if srv.closing.Load() {
		return io.EOF
	}

	srv.wg.Add(1)
	defer srv.wg.Done()

	srv.logger.Debug("<- incoming command", slog.Int("length", length), slog.String("type", t.String()))

	if state.suspended {
		return srv.handleSuspended(ctx, t, reader, writer, state)
	}

	return srv.handleCommand(ctx, conn, t, reader, writer, state)
}

// handleMessageSizeExceeded drains the oversized frame and reports it as a
// connection exception without tearing down the connection.
func (srv *Server) handleMessageSizeExceeded(reader *buffer.Reader, writer *buffer.Writer, exceeded error) error {
	unwrapped, has := buffer.UnwrapMessageSizeExceeded(exceeded)
	if !has {
		return exceeded
	}

	if err := reader.Slurp(unwrapped.Size); err != nil {
		return err
	}

	if err := writeErrorResponse(writer, exceeded); err != nil {
		return err
	}

	return readyForQuery(writer, types.ServerIdle)
}

// handleSuspended implements the "skip to Sync" half of the error-suspension
// rule: every message is silently discarded except Sync, Terminate and
// Flush, matching how a real backend keeps honouring connection-lifecycle
// messages while an extended-query error is pending resynchronization.
func (srv *Server) handleSuspended(ctx context.Context, t types.ClientMessage, reader *buffer.Reader, writer *buffer.Writer, state *connState) error {
	switch t {
	case types.ClientSync:
		state.suspended = false
		return readyForQuery(writer, types.ServerIdle)
	case types.ClientTerminate:
		return io.EOF
	case types.ClientFlush:
		return nil
	default:
		srv.logger.Debug("dropping message while suspended awaiting sync", slog.String("type", t.String()))
		return nil
	}
}

func (srv *Server) handleCommand(ctx context.Context, conn net.Conn, t types.ClientMessage, reader *buffer.Reader, writer *buffer.Writer, state *connState) error {
	switch t {
	case types.ClientSimpleQuery:
		return srv.handleSimpleQuery(ctx, reader, writer)
	case types.ClientParse:
		return srv.suspendOnError(writer, state, srv.handleParse(ctx, reader, writer, state))
	case types.ClientBind:
		return srv.suspendOnError(writer, state, srv.handleBind(ctx, reader, writer, state))
	case types.ClientDescribe:
		return srv.suspendOnError(writer, state, srv.handleDescribe(ctx, reader, writer, state))
	case types.ClientExecute:
		return srv.suspendOnError(writer, state, srv.handleExecute(ctx, reader, writer, state))
	case types.ClientSync:
		return readyForQuery(writer, types.ServerIdle)
	case types.ClientFlush:
		return nil
	case types.ClientClose:
		writer.Start(types.ServerCloseComplete)
		return writer.End()
	case types.ClientTerminate:
		if err := conn.Close(); err != nil {
			return err
		}
		return io.EOF
	default:
		return writeErrorResponse(writer, NewErrUnimplementedMessageType(t))
	}
}

// suspendOnError writes an ErrorResponse and, if cause is non-nil, marks the
// connection suspended until the next Sync, per spec's extended-query error
// recovery rule. A nil cause is a no-op.
func (srv *Server) suspendOnError(writer *buffer.Writer, state *connState, cause error) error {
	if cause == nil {
		return nil
	}

	if err := writeErrorResponse(writer, cause); err != nil {
		return err
	}

	state.suspended = true
	return nil
}

func (srv *Server) handleSimpleQuery(ctx context.Context, reader *buffer.Reader, writer *buffer.Writer) error {
	query, err := reader.GetString()
	if err != nil {
		return err
	}

	srv.logger.Debug("incoming simple query", slog.String("query", query))

	if strings.TrimSpace(query) == "" {
		writer.Start(types.ServerEmptyQuery)
		if err := writer.End(); err != nil {
			return err
		}
		return readyForQuery(writer, types.ServerIdle)
	}

	statements, err := srv.Parser.Parse(query)
	if err != nil {
		if werr := writeErrorResponse(writer, err); werr != nil {
			return werr
		}
		return readyForQuery(writer, types.ServerIdle)
	}

	if len(statements) > 1 {
		if werr := writeErrorResponse(writer, NewErrMultipleStatements()); werr != nil {
			return werr
		}
		return readyForQuery(writer, types.ServerIdle)
	}

	if len(statements) == 0 {
		writer.Start(types.ServerEmptyQuery)
		if err := writer.End(); err != nil {
			return err
		}
		return readyForQuery(writer, types.ServerIdle)
	}

	if len(statements) == 1 {
		if err := srv.runSimpleStatement(ctx, statements[0], writer); err != nil {
			if werr := writeErrorResponse(writer, err); werr != nil {
				return werr
			}
		}
	}

	return readyForQuery(writer, types.ServerIdle)
}

func (srv *Server) runSimpleStatement(ctx context.Context, stmt Statement, writer *buffer.Writer) error {
	fields, err := srv.Engine.Prepare(ctx, stmt)
	if err != nil {
		return err
	}

	format := AllText()
	if err := writeRowDescription(writer, fields, format); err != nil {
		return err
	}

	portal, err := srv.Engine.CreatePortal(ctx, stmt)
	if err != nil {
		return err
	}

	batch := NewDataRowBatch(fields, format)
	if err := portal.Fetch(ctx, batch); err != nil {
		return err
	}

	if err := batch.Flush(writer); err != nil {
		return err
	}

	return writeCommandComplete(writer, commandTag(stmt, batch.Len()))
}

func (srv *Server) handleParse(ctx context.Context, reader *buffer.Reader, writer *buffer.Writer, state *connState) error {
	name, err := reader.GetString()
	if err != nil {
		return err
	}

	query, err := reader.GetString()
	if err != nil {
		return err
	}

	nparams, err := reader.GetUint16()
	if err != nil {
		return err
	}

	for i := uint16(0); i < nparams; i++ {
		// Parameter object-ID hints are accepted but never decoded: the
		// core never substitutes typed parameter values into the AST.
		if _, err := reader.GetUint32(); err != nil {
			return err
		}
	}

	statements, err := srv.Parser.Parse(query)
	if err != nil {
		return err
	}

	if len(statements) > 1 {
		return NewErrMultipleStatements()
	}

	if len(statements) == 0 {
		return NewErrUndefinedStatement()
	}

	stmt := statements[0]

	fields, err := srv.Engine.Prepare(ctx, stmt)
	if err != nil {
		return err
	}

	srv.logger.Debug("parsed statement", slog.String("name", name), slog.String("query", query))
	state.statements.Set(name, stmt, fields)

	writer.Start(types.ServerParseComplete)
	return writer.End()
}

func (srv *Server) handleBind(ctx context.Context, reader *buffer.Reader, writer *buffer.Writer, state *connState) error {
	portalName, err := reader.GetString()
	if err != nil {
		return err
	}

	stmtName, err := reader.GetString()
	if err != nil {
		return err
	}

	if err := srv.skipBindParameters(reader); err != nil {
		return err
	}

	resultCodes, err := srv.readFormatCodes(reader)
	if err != nil {
		return err
	}

	prepared, ok := state.statements.Get(stmtName)
	if !ok {
		return NewErrUnknownStatement(stmtName)
	}

	portal, err := srv.Engine.CreatePortal(ctx, prepared.stmt)
	if err != nil {
		return err
	}

	format := resolveBindFormat(resultCodes)
	state.portals.Bind(portalName, portal, prepared.stmt, prepared.fields, format)

	writer.Start(types.ServerBindComplete)
	return writer.End()
}

// skipBindParameters consumes a Bind message's parameter-format and
// parameter-value sections. Values are never decoded into typed
// arguments; their lengths are consumed only to keep the stream framed.
func (srv *Server) skipBindParameters(reader *buffer.Reader) error {
	nformats, err := reader.GetUint16()
	if err != nil {
		return err
	}

	for i := uint16(0); i < nformats; i++ {
		if _, err := reader.GetUint16(); err != nil {
			return err
		}
	}

	nvalues, err := reader.GetUint16()
	if err != nil {
		return err
	}

	for i := uint16(0); i < nvalues; i++ {
		length, err := reader.GetInt32()
		if err != nil {
			return err
		}

		if length < 0 {
			continue
		}

		if _, err := reader.GetBytes(int(length)); err != nil {
			return err
		}
	}

	return nil
}

// readFormatCodes reads a uint16 count followed by that many int16 format
// codes, the shape shared by Bind's result-format list.
func (srv *Server) readFormatCodes(reader *buffer.Reader) ([]FormatCode, error) {
	length, err := reader.GetUint16()
	if err != nil {
		return nil, err
	}

	codes := make([]FormatCode, length)
	for i := uint16(0); i < length; i++ {
		code, err := reader.GetUint16()
		if err != nil {
			return nil, err
		}
		codes[i] = FormatCode(code)
	}

	return codes, nil
}

func (srv *Server) handleDescribe(ctx context.Context, reader *buffer.Reader, writer *buffer.Writer, state *connState) error {
	kind, err := reader.GetBytes(1)
	if err != nil {
		return err
	}

	name, err := reader.GetString()
	if err != nil {
		return err
	}

	srv.logger.Debug("describe", slog.String("target", types.DescribeMessage(kind[0]).String()), slog.String("name", name))

	switch types.DescribeMessage(kind[0]) {
	case types.DescribeStatement:
		prepared, ok := state.statements.Get(name)
		if !ok {
			return NewErrUnknownStatement(name)
		}

		if err := writeParameterDescription(writer); err != nil {
			return err
		}

		return writeRowDescription(writer, prepared.fields, AllText())
	case types.DescribePortal:
		bound, ok := state.portals.Get(name)
		if !ok {
			return NewErrUnknownPortal(name)
		}

		return writeRowDescription(writer, bound.fields, bound.format)
	default:
		return NewErrUnimplementedMessageType(types.ClientDescribe)
	}
}

func (srv *Server) handleExecute(ctx context.Context, reader *buffer.Reader, writer *buffer.Writer, state *connState) error {
	name, err := reader.GetString()
	if err != nil {
		return err
	}

	// max_rows is accepted but ignored: Fetch always drains every
	// remaining row in one call (see DESIGN.md Open Question #1).
	if _, err := reader.GetInt32(); err != nil {
		return err
	}

	bound, ok := state.portals.Get(name)
	if !ok {
		return NewErrUnknownPortal(name)
	}

	batch := NewDataRowBatch(bound.fields, bound.format)
	if err := bound.portal.Fetch(ctx, batch); err != nil {
		return err
	}

	if err := batch.Flush(writer); err != nil {
		return err
	}

	return writeCommandComplete(writer, commandTag(bound.stmt, batch.Len()))
}

// commandTag derives the tag CommandComplete reports, e.g. "SELECT 3" or
// "INSERT 0 1", from the statement's leading keyword and the row count
// fetched. Any other leading keyword is reported upper-cased followed by
// the row count; a nil statement or empty text is reported as SELECT.
func commandTag(stmt Statement, rows int) string {
	verb := "SELECT"
	if stmt != nil {
		text := strings.TrimSpace(stmt.String())
		if sp := strings.IndexByte(text, ' '); sp > 0 {
			text = text[:sp]
		}
		switch strings.ToUpper(text) {
		case "INSERT":
			return "INSERT 0 " + strconv.Itoa(rows)
		case "UPDATE":
			return "UPDATE " + strconv.Itoa(rows)
		case "DELETE":
			return "DELETE " + strconv.Itoa(rows)
		case "SELECT":
			verb = "SELECT"
		default:
			if text != "" {
				verb = strings.ToUpper(text)
			}
		}
	}

	return verb + " " + strconv.Itoa(rows)
}

// writeCommandComplete writes the CommandComplete ('C') message carrying
// the given command tag.
func writeCommandComplete(writer *buffer.Writer, tag string) error {
	writer.Start(types.ServerCommandComplete)
	writer.AddString(tag)
	writer.AddNullTerminate()
	return writer.End()
}
