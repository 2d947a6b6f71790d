package wire

import (
	"net"
	"testing"

	"github.com/neilotoole/slogt"
	"github.com/stretchr/testify/require"

	"github.com/splitgraph/convergence/internal/memdb"
	"github.com/splitgraph/convergence/internal/sqllit"
	"github.com/splitgraph/convergence/pkg/mock"
	"github.com/splitgraph/convergence/pkg/types"
)

// tListenAndServe opens a TCP listener on an unallocated local port and
// starts server serving it, closing the server once the test finishes.
func tListenAndServe(t *testing.T, server *Server) *net.TCPAddr {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, server.Close())
	})

	go server.Serve(listener) //nolint:errcheck

	return listener.Addr().(*net.TCPAddr)
}

func testServer(t *testing.T) *Server {
	t.Helper()

	srv, err := NewServer(memdb.New(), sqllit.Parser{}, Logger(slogt.New(t)))
	require.NoError(t, err)

	return srv
}

func TestClientConnect(t *testing.T) {
	t.Parallel()

	addr := tListenAndServe(t, testServer(t))

	conn, err := net.Dial("tcp", addr.String())
	require.NoError(t, err)

	client := mock.NewClient(t, conn)
	client.Handshake(t)
	client.Authenticate(t)
	client.ReadyForQuery(t)
	client.Close(t)
}

func TestSimpleQuerySelectLiteral(t *testing.T) {
	t.Parallel()

	addr := tListenAndServe(t, testServer(t))

	conn, err := net.Dial("tcp", addr.String())
	require.NoError(t, err)

	client := mock.NewClient(t, conn)
	client.Handshake(t)
	client.Authenticate(t)
	client.ReadyForQuery(t)

	client.Start(types.ClientSimpleQuery)
	client.AddString("SELECT 1")
	client.AddNullTerminate()
	require.NoError(t, client.End())

	typed, _, err := client.ReadTypedMsg()
	require.NoError(t, err)
	require.Equal(t, types.ServerRowDescription, typed)

	typed, _, err = client.ReadTypedMsg()
	require.NoError(t, err)
	require.Equal(t, types.ServerDataRow, typed)

	typed, _, err = client.ReadTypedMsg()
	require.NoError(t, err)
	require.Equal(t, types.ServerCommandComplete, typed)

	client.ReadyForQuery(t)
	client.Close(t)
}

func TestSimpleQueryEmpty(t *testing.T) {
	t.Parallel()

	addr := tListenAndServe(t, testServer(t))

	conn, err := net.Dial("tcp", addr.String())
	require.NoError(t, err)

	client := mock.NewClient(t, conn)
	client.Handshake(t)
	client.Authenticate(t)
	client.ReadyForQuery(t)

	client.Start(types.ClientSimpleQuery)
	client.AddString("   ")
	client.AddNullTerminate()
	require.NoError(t, client.End())

	typed, _, err := client.ReadTypedMsg()
	require.NoError(t, err)
	require.Equal(t, types.ServerEmptyQuery, typed)

	client.ReadyForQuery(t)
	client.Close(t)
}

func TestSimpleQueryMultipleStatementsRejected(t *testing.T) {
	t.Parallel()

	addr := tListenAndServe(t, testServer(t))

	conn, err := net.Dial("tcp", addr.String())
	require.NoError(t, err)

	client := mock.NewClient(t, conn)
	client.Handshake(t)
	client.Authenticate(t)
	client.ReadyForQuery(t)

	client.Start(types.ClientSimpleQuery)
	client.AddString("SELECT 1; SELECT 2")
	client.AddNullTerminate()
	require.NoError(t, client.End())

	client.Error(t)
	client.ReadyForQuery(t)
	client.Close(t)
}

func TestExtendedQueryHappyPath(t *testing.T) {
	t.Parallel()

	addr := tListenAndServe(t, testServer(t))

	conn, err := net.Dial("tcp", addr.String())
	require.NoError(t, err)

	client := mock.NewClient(t, conn)
	client.Handshake(t)
	client.Authenticate(t)
	client.ReadyForQuery(t)

	client.Start(types.ClientParse)
	client.AddString("")
	client.AddNullTerminate()
	client.AddString("SELECT id, message FROM greeting")
	client.AddNullTerminate()
	client.AddInt16(0)
	require.NoError(t, client.End())

	typed, _, err := client.ReadTypedMsg()
	require.NoError(t, err)
	require.Equal(t, types.ServerParseComplete, typed)

	client.Start(types.ClientBind)
	client.AddString("")
	client.AddNullTerminate()
	client.AddString("")
	client.AddNullTerminate()
	client.AddInt16(0)
	client.AddInt16(0)
	client.AddInt16(0)
	require.NoError(t, client.End())

	typed, _, err = client.ReadTypedMsg()
	require.NoError(t, err)
	require.Equal(t, types.ServerBindComplete, typed)

	client.Start(types.ClientExecute)
	client.AddString("")
	client.AddNullTerminate()
	client.AddInt32(0)
	require.NoError(t, client.End())

	typed, _, err = client.ReadTypedMsg()
	require.NoError(t, err)
	require.Equal(t, types.ServerDataRow, typed)

	typed, _, err = client.ReadTypedMsg()
	require.NoError(t, err)
	require.Equal(t, types.ServerDataRow, typed)

	typed, _, err = client.ReadTypedMsg()
	require.NoError(t, err)
	require.Equal(t, types.ServerCommandComplete, typed)

	client.Start(types.ClientSync)
	require.NoError(t, client.End())
	client.ReadyForQuery(t)

	client.Close(t)
}

func TestExtendedQueryUnknownPortalSuspendsUntilSync(t *testing.T) {
	t.Parallel()

	addr := tListenAndServe(t, testServer(t))

	conn, err := net.Dial("tcp", addr.String())
	require.NoError(t, err)

	client := mock.NewClient(t, conn)
	client.Handshake(t)
	client.Authenticate(t)
	client.ReadyForQuery(t)

	client.Start(types.ClientExecute)
	client.AddString("missing")
	client.AddNullTerminate()
	client.AddInt32(0)
	require.NoError(t, client.End())

	client.Error(t)

	// A message other than Sync/Terminate/Flush is silently dropped while
	// suspended: Bind here should produce no reply at all.
	client.Start(types.ClientBind)
	client.AddString("")
	client.AddNullTerminate()
	client.AddString("")
	client.AddNullTerminate()
	client.AddInt16(0)
	client.AddInt16(0)
	client.AddInt16(0)
	require.NoError(t, client.End())

	client.Start(types.ClientSync)
	require.NoError(t, client.End())
	client.ReadyForQuery(t)

	client.Close(t)
}

func TestUnknownStatementOnDescribe(t *testing.T) {
	t.Parallel()

	addr := tListenAndServe(t, testServer(t))

	conn, err := net.Dial("tcp", addr.String())
	require.NoError(t, err)

	client := mock.NewClient(t, conn)
	client.Handshake(t)
	client.Authenticate(t)
	client.ReadyForQuery(t)

	client.Start(types.ClientDescribe)
	client.AddByte(byte(types.DescribeStatement))
	client.AddString("missing")
	client.AddNullTerminate()
	require.NoError(t, client.End())

	client.Error(t)

	client.Start(types.ClientSync)
	require.NoError(t, client.End())
	client.ReadyForQuery(t)

	client.Close(t)
}
