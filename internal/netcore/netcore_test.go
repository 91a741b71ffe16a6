package netcore

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lobbywire/lobbywire/internal/crypto"
	"github.com/lobbywire/lobbywire/internal/wire"
)

// newPipePair uses net.Pipe's endpoints directly. Both report "pipe" as
// their address, which is fine because Connection never inspects the
// address beyond logging.

func newPipePair(t *testing.T, params *crypto.Params) (*Connection, *Connection) {
	t.Helper()
	clientSock, serverSock := net.Pipe()

	client := newConnection(clientSock, RoleClient, nil, nil)
	client.status = StatusConnecting
	server := newConnection(serverSock, RoleServer, params, nil)

	clientErr := make(chan error, 1)
	serverErr := make(chan error, 1)
	go func() { clientErr <- client.handshakeClient() }()
	go func() { serverErr <- server.handshakeServer() }()

	require.NoError(t, <-clientErr)
	require.NoError(t, <-serverErr)
	return client, server
}

func TestHandshake_ClientAndServerAgreeOnKey(t *testing.T) {
	params, err := crypto.GenerateParams()
	require.NoError(t, err)

	client, server := newPipePair(t, params)
	defer client.Close()
	defer server.Close()

	require.Equal(t, StatusEncrypted, client.Status())
	require.Equal(t, StatusEncrypted, server.Status())
	require.Equal(t, client.encryptionKey, server.encryptionKey)
}

func TestFrame_SendReceiveRoundTrip(t *testing.T) {
	params, err := crypto.GenerateParams()
	require.NoError(t, err)

	client, server := newPipePair(t, params)
	defer client.Close()
	defer server.Close()

	go server.Run()

	require.NoError(t, client.Send(0x1234, []byte("hello command")))

	select {
	case msg := <-server.Messages():
		require.NotNil(t, msg)
		require.EqualValues(t, 0x1234, msg.Code)
		require.Equal(t, "hello command", string(msg.Body.Bytes()))
	case err := <-server.Errors():
		t.Fatalf("server reported an error instead of a message: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
	}
}

func TestFrame_SequentialFramesArriveInOrder(t *testing.T) {
	params, err := crypto.GenerateParams()
	require.NoError(t, err)

	client, server := newPipePair(t, params)
	defer client.Close()
	defer server.Close()

	go server.Run()

	require.NoError(t, client.Send(1, []byte("first")))
	require.NoError(t, client.Send(2, []byte("second")))

	var codes []uint16
	var bodies []string
	for i := 0; i < 2; i++ {
		select {
		case msg := <-server.Messages():
			codes = append(codes, msg.Code)
			bodies = append(bodies, string(msg.Body.Bytes()))
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for message")
		}
	}
	require.Equal(t, []uint16{1, 2}, codes)
	require.Equal(t, []string{"first", "second"}, bodies)
}

func TestSend_RejectsBeforeHandshake(t *testing.T) {
	clientSock, serverSock := net.Pipe()
	defer clientSock.Close()
	defer serverSock.Close()

	c := newConnection(clientSock, RoleClient, nil, nil)
	err := c.Send(1, []byte("too early"))
	require.ErrorIs(t, err, ErrNotEncrypted)
}

func TestSendCommands_OneFrameCarriesTwoCommands(t *testing.T) {
	params, err := crypto.GenerateParams()
	require.NoError(t, err)

	client, server := newPipePair(t, params)
	defer client.Close()
	defer server.Close()

	go server.Run()

	require.NoError(t, client.SendCommands(
		Command{Code: 0x10, Body: []byte("first")},
		Command{Code: 0x20, Body: []byte("second command")},
	))

	seen := map[uint16]string{}
	for i := 0; i < 2; i++ {
		select {
		case msg := <-server.Messages():
			seen[msg.Code] = string(msg.Body.Bytes())
		case err := <-server.Errors():
			t.Fatalf("server reported an error instead of a message: %v", err)
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for message")
		}
	}
	require.Equal(t, "first", seen[0x10])
	require.Equal(t, "second command", seen[0x20])
}

func TestBroadcast_DeliversToEveryConnection(t *testing.T) {
	params, err := crypto.GenerateParams()
	require.NoError(t, err)

	clientA, serverA := newPipePair(t, params)
	defer clientA.Close()
	defer serverA.Close()
	clientB, serverB := newPipePair(t, params)
	defer clientB.Close()
	defer serverB.Close()

	go clientA.Run()
	go clientB.Run()

	errs := Broadcast([]*Connection{serverA, serverB}, Command{Code: 0x99, Body: []byte("news")})
	require.Empty(t, errs)

	for _, c := range []*Connection{clientA, clientB} {
		select {
		case msg := <-c.Messages():
			require.EqualValues(t, 0x99, msg.Code)
			require.Equal(t, "news", string(msg.Body.Bytes()))
		case err := <-c.Errors():
			t.Fatalf("client reported an error instead of a message: %v", err)
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for broadcast message")
		}
	}
}

func TestReadFrame_OversizedHeaderIsAProtocolViolation(t *testing.T) {
	params, err := crypto.GenerateParams()
	require.NoError(t, err)

	client, server := newPipePair(t, params)
	defer client.Close()
	defer server.Close()

	go server.Run()

	header := wire.NewBuffer()
	require.NoError(t, header.WriteU32Big(wire.MaxPacketSize))
	require.NoError(t, header.WriteU32Big(0))
	require.NoError(t, client.writeRaw(header.Data()))

	select {
	case msg := <-server.Messages():
		t.Fatalf("expected a protocol violation, got a message: %+v", msg)
	case err := <-server.Errors():
		require.ErrorIs(t, err, ErrProtocolViolation)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for server to react")
	}
}
