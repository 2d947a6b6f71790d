package mock

import (
	"encoding/binary"
	"net"
	"testing"

	"github.com/splitgraph/convergence/pkg/types"
)

// NewClient wraps conn in a byte-level test client able to drive a Server
// through the startup handshake, simple/extended query flows and shutdown.
func NewClient(t *testing.T, conn net.Conn) *Client {
	return &Client{
		conn:   conn,
		Writer: NewWriter(t, conn),
		Reader: NewReader(t, conn),
	}
}

type Client struct {
	conn net.Conn
	*Writer
	*Reader
}

// Handshake writes a version-3.0 startup packet carrying a single "user"
// parameter, the minimum a server requires to proceed past startup.
func (client *Client) Handshake(t *testing.T) {
	t.Helper()
	t.Log("performing startup handshake")
	defer t.Log("startup handshake completed")

	version := make([]byte, 4)
	binary.BigEndian.PutUint32(version, uint32(types.Version30))

	nul := byte(0)
	key := append([]byte("user"), nul)
	value := append([]byte("mock"), nul)
	end := []byte{nul}
	parameters := append(append(key, value...), end...)

	header := make([]byte, 4)
	binary.BigEndian.PutUint32(header, uint32(len(version)+len(parameters)+len(header)))

	if _, err := client.conn.Write(append(header, append(version, parameters...)...)); err != nil {
		t.Fatal(err)
	}
}

// Authenticate reads the AuthenticationOk message the core always sends
// after startup: there is no challenge/response round trip to perform.
func (client *Client) Authenticate(t *testing.T) {
	t.Helper()
	t.Log("reading authentication ok")
	defer t.Log("authenticated")

	typed, _, err := client.ReadTypedMsg()
	if err != nil {
		t.Fatal(err)
	}

	if typed != types.ServerAuth {
		t.Fatalf("unexpected message type %q, expected %q", typed, types.ServerAuth)
	}

	status, err := client.GetUint32()
	if err != nil {
		t.Fatal(err)
	}

	if status != 0 {
		t.Fatalf("unexpected auth status: %d, expected auth ok", status)
	}
}

// ReadyForQuery consumes ParameterStatus messages until it reaches
// ReadyForQuery, asserting the trailing status byte is ServerIdle.
func (client *Client) ReadyForQuery(t *testing.T) {
	t.Helper()

	var typed types.ServerMessage
	var err error

	t.Log("awaiting ready for query")
	defer t.Log("ready for query received")

	for {
		typed, _, err = client.ReadTypedMsg()
		if err != nil {
			t.Fatal(err)
		}

		if typed != types.ServerParameterStatus {
			break
		}
	}

	if typed != types.ServerReady {
		t.Fatalf("unexpected message type %q, expected %q", typed, types.ServerReady)
	}

	bb, err := client.GetBytes(1)
	if err != nil {
		t.Fatal(err)
	}

	if types.ServerStatus(bb[0]) != types.ServerIdle {
		t.Fatalf("unexpected ready for query status %q, expected server idle", bb)
	}
}

// Error asserts the next message is an ErrorResponse without inspecting its
// fields, for flows that only need to confirm an error was raised.
func (client *Client) Error(t *testing.T) {
	t.Helper()
	t.Log("awaiting error response")
	defer t.Log("error response received")

	typed, _, err := client.ReadTypedMsg()
	if err != nil {
		t.Fatal(err)
	}

	if typed != types.ServerErrorResponse {
		t.Fatalf("unexpected message type %q, expected %q", typed, types.ServerErrorResponse)
	}
}

// Close sends Terminate and closes the underlying connection.
func (client *Client) Close(t *testing.T) {
	t.Helper()
	t.Log("terminating connection")
	defer t.Log("connection terminated")

	client.Start(types.ClientTerminate)
	if err := client.End(); err != nil {
		t.Fatal(err)
	}

	_ = client.conn.Close()
}
