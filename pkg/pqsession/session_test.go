package pqsession

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/elkablo/pqc-go/pkg/bigint"
	"github.com/elkablo/pqc-go/pkg/curve"
	"github.com/elkablo/pqc-go/pkg/gf"
	"github.com/elkablo/pqc-go/pkg/packet"
	"github.com/elkablo/pqc-go/pkg/registry"
	"github.com/elkablo/pqc-go/pkg/sidh"
)

// smallParams builds a toy SIDH parameter block small enough for a
// handshake to run quickly in a test: p=431=2⁴·3³−1 with the
// supersingular curve y²=x³+x, side A on 2⁴-torsion, side B on
// 3³-torsion. The coprime degrees give real shared-secret agreement,
// so the negotiated session keys match on both ends, without the cost
// of the module's shipped toy parameters (ℓ_a=2, e_a=63).
func smallParams(t *testing.T) *sidh.Params {
	t.Helper()
	m := gf.NewModulus(bigint.NewZ(431))
	a := gf.New(m, bigint.NewZ(1), bigint.NewZ(0))
	b := gf.New(m, bigint.NewZ(0), bigint.NewZ(0))
	c := curve.NewCurve(m, a, b)

	pa, qa, err := curve.TorsionBasis(rand.Reader, c, bigint.NewZ(2), 4, bigint.NewZ(27))
	if err != nil {
		t.Fatal(err)
	}
	pb, qb, err := curve.TorsionBasis(rand.Reader, c, bigint.NewZ(3), 3, bigint.NewZ(16))
	if err != nil {
		t.Fatal(err)
	}

	params, err := sidh.NewParams(m, c, pa, qa, pb, qb,
		2, 4, bigint.NewZ(27), []int{0, 1, 1, 1, 2},
		3, 3, bigint.NewZ(16), []int{0, 1, 1, 2})
	if err != nil {
		t.Fatal(err)
	}
	return params
}

// pump drains everything from's outgoing buffer currently holds and
// feeds it into to, reporting whether any bytes moved.
func pump(t *testing.T, from, to *Session) bool {
	t.Helper()
	moved := false
	buf := make([]byte, 8192)
	for {
		n := from.ReadOutgoing(buf)
		if n == 0 {
			break
		}
		moved = true
		if err := to.WriteIncoming(buf[:n]); err != nil {
			t.Fatalf("WriteIncoming: %v", err)
		}
	}
	return moved
}

// pumpAllowErr moves bytes like pump but tolerates WriteIncoming
// errors: negative-path tests assert on the sticky session state
// afterwards instead.
func pumpAllowErr(from, to *Session) {
	buf := make([]byte, 8192)
	for {
		n := from.ReadOutgoing(buf)
		if n == 0 {
			return
		}
		_ = to.WriteIncoming(buf[:n])
	}
}

// runHandshake drives client and server to StateNormal, failing the
// test if they don't converge within a generous round budget.
func runHandshake(t *testing.T, client, server *Session) {
	t.Helper()
	for i := 0; i < 20; i++ {
		if client.State() == StateNormal && server.State() == StateNormal {
			return
		}
		moved := pump(t, client, server)
		moved = pump(t, server, client) || moved
		if client.State() == StateError {
			t.Fatalf("client entered error state: %v", client.Err())
		}
		if server.State() == StateError {
			t.Fatalf("server entered error state: %v", server.Err())
		}
		if !moved && client.State() != StateNormal {
			t.Fatalf("handshake stalled: client=%s server=%s", client.State(), server.State())
		}
	}
	t.Fatalf("handshake did not converge: client=%s server=%s", client.State(), server.State())
}

func newPair(t *testing.T) (*Session, *Session) {
	t.Helper()
	params := smallParams(t)
	client := New(params)
	server := New(params)
	server.StartServer()
	if err := client.StartClient("test-server"); err != nil {
		t.Fatalf("StartClient: %v", err)
	}
	return client, server
}

func TestHandshakeReachesNormal(t *testing.T) {
	client, server := newPair(t)
	runHandshake(t, client, server)

	if client.Role() != RoleClient {
		t.Errorf("client.Role() = %v, want RoleClient", client.Role())
	}
	if server.Role() != RoleServer {
		t.Errorf("server.Role() = %v, want RoleServer", server.Role())
	}
	if server.GetServerName() != "test-server" {
		t.Errorf("server.GetServerName() = %q, want %q", server.GetServerName(), "test-server")
	}
	if !client.IsHandshaken() || !server.IsHandshaken() {
		t.Error("both sessions should report IsHandshaken() once NORMAL")
	}
}

func TestApplicationDataRoundTrip(t *testing.T) {
	client, server := newPair(t)
	runHandshake(t, client, server)

	message := []byte("the isogeny walks at dawn")
	if err := client.Write(message); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !pump(t, client, server) {
		t.Fatal("expected client to have outgoing DATA bytes to pump")
	}

	if got := server.Available(); got != len(message) {
		t.Fatalf("server.Available() = %d, want %d", got, len(message))
	}
	buf := make([]byte, len(message))
	n := server.Read(buf)
	if n != len(message) {
		t.Fatalf("Read returned %d, want %d", n, len(message))
	}
	if !bytes.Equal(buf, message) {
		t.Fatalf("Read = %q, want %q", buf, message)
	}
}

func TestApplicationDataRoundTripBothDirections(t *testing.T) {
	client, server := newPair(t)
	runHandshake(t, client, server)

	toServer := []byte("client says hello")
	toClient := []byte("server says hello back")

	if err := client.Write(toServer); err != nil {
		t.Fatalf("client.Write: %v", err)
	}
	if err := server.Write(toClient); err != nil {
		t.Fatalf("server.Write: %v", err)
	}
	pump(t, client, server)
	pump(t, server, client)

	sBuf := make([]byte, server.Available())
	server.Read(sBuf)
	if !bytes.Equal(sBuf, toServer) {
		t.Fatalf("server received %q, want %q", sBuf, toServer)
	}

	cBuf := make([]byte, client.Available())
	client.Read(cBuf)
	if !bytes.Equal(cBuf, toClient) {
		t.Fatalf("client received %q, want %q", cBuf, toClient)
	}
}

// TestCloseReachesClosedBeforePeerAcknowledges verifies that
// CLOSING -> CLOSED happens purely once our own outgoing buffer
// drains, without waiting for the peer's own CLOSE: the closing side
// is CLOSED before the peer has read anything at all.
func TestCloseReachesClosedBeforePeerAcknowledges(t *testing.T) {
	client, server := newPair(t)
	runHandshake(t, client, server)

	if err := client.Close(); err != nil {
		t.Fatalf("client.Close: %v", err)
	}

	buf := make([]byte, 8192)
	for client.OutgoingLen() > 0 {
		n := client.ReadOutgoing(buf)
		if n == 0 {
			t.Fatal("ReadOutgoing returned 0 while OutgoingLen() > 0")
		}
	}

	if client.State() != StateClosed {
		t.Fatalf("client.State() = %v, want StateClosed once its own outgoing drained, before the server has read anything", client.State())
	}
	if client.IsPeerClosed() {
		t.Fatal("client should not see the peer as closed yet; nothing was delivered to the server")
	}
	_ = server
}

func TestGracefulClose(t *testing.T) {
	client, server := newPair(t)
	runHandshake(t, client, server)

	if err := client.Close(); err != nil {
		t.Fatalf("client.Close: %v", err)
	}
	if client.State() != StateClosing {
		t.Fatalf("client.State() = %v, want StateClosing", client.State())
	}

	pump(t, client, server)
	if !server.IsPeerClosed() {
		t.Fatal("server should see the peer as closed after receiving CLOSE")
	}

	if err := server.Close(); err != nil {
		t.Fatalf("server.Close: %v", err)
	}
	pump(t, server, client)

	if !client.IsPeerClosed() {
		t.Fatal("client should see the peer as closed after receiving CLOSE")
	}
	if client.State() != StateClosed {
		t.Fatalf("client.State() = %v, want StateClosed once its own CLOSE drained and the peer closed", client.State())
	}
	if server.State() != StateClosed {
		t.Fatalf("server.State() = %v, want StateClosed", server.State())
	}
}

func TestBitFlipInFlightTriggersBadMAC(t *testing.T) {
	client, server := newPair(t)
	runHandshake(t, client, server)

	if err := server.Write([]byte("sensitive server-to-client data")); err != nil {
		t.Fatalf("server.Write: %v", err)
	}
	buf := make([]byte, 8192)
	n := server.ReadOutgoing(buf)
	if n <= 10 {
		t.Fatalf("outgoing frame unexpectedly short: %d bytes", n)
	}
	// Low bit of the 10th byte: inside the encrypted payload, so the
	// frame still parses but its MAC no longer verifies.
	buf[9] ^= 0x01

	_ = client.WriteIncoming(buf[:n])
	if client.State() != StateError {
		t.Fatalf("client.State() = %v, want StateError after a bit flip", client.State())
	}
	if client.Err().Kind != ErrorBadMAC {
		t.Fatalf("client.Err().Kind = %v, want ErrorBadMAC", client.Err().Kind)
	}
}

func TestPacketAfterPeerCloseEntersAlreadyClosedError(t *testing.T) {
	client, server := newPair(t)
	runHandshake(t, client, server)

	if err := server.Close(); err != nil {
		t.Fatalf("server.Close: %v", err)
	}
	pump(t, server, client)
	if !client.IsPeerClosed() {
		t.Fatal("client should see the peer as closed")
	}

	// A well-behaved peer sends nothing after its CLOSE; forge a late
	// DATA frame out of the server's own outgoing direction state to
	// model a misbehaving one.
	frame, err := packet.EncodeData(server.local.cipher, server.local.mac, []byte("late"))
	if err != nil {
		t.Fatalf("EncodeData: %v", err)
	}
	_ = client.WriteIncoming(frame)
	if client.State() != StateError || client.Err().Kind != ErrorAlreadyClosed {
		t.Fatalf("state=%v err=%v, want StateError/ALREADY_CLOSED", client.State(), client.Err())
	}
}

func TestWriteAfterErrorReturnsStickyError(t *testing.T) {
	client, _ := newPair(t)
	client.setError(ErrorOther, nil)

	if err := client.Write([]byte("x")); err == nil {
		t.Fatal("Write after error should return the sticky error")
	}
	if n := client.Read(make([]byte, 4)); n != -1 {
		t.Fatalf("Read after error = %d, want -1", n)
	}
}

func TestWriteBeforeHandshakeCompleteIsRejected(t *testing.T) {
	client, _ := newPair(t)
	if err := client.Write([]byte("too early")); err != ErrWrongState {
		t.Fatalf("got err=%v, want ErrWrongState", err)
	}
}

func TestRekeyThresholdTriggersRekeyFrame(t *testing.T) {
	client, server := newPair(t)
	runHandshake(t, client, server)
	client.SetRekeyAfter(8)

	if err := client.Write(bytes.Repeat([]byte{1}, 64)); err != nil {
		t.Fatalf("Write: %v", err)
	}

	pump(t, client, server)
	if client.SinceLastRekey() != 0 {
		t.Fatalf("client.SinceLastRekey() = %d after crossing threshold, want 0", client.SinceLastRekey())
	}
	if server.SinceLastPeerRekey() != 0 {
		t.Fatalf("server.SinceLastPeerRekey() = %d after receiving REKEY, want 0", server.SinceLastPeerRekey())
	}

	// The session must keep working after a rekey: another round of
	// application data should still round-trip cleanly.
	more := []byte("after the rekey")
	if err := client.Write(more); err != nil {
		t.Fatalf("Write after rekey: %v", err)
	}
	pump(t, client, server)
	buf := make([]byte, server.Available())
	server.Read(buf)
	if !bytes.Equal(buf, more) {
		t.Fatalf("post-rekey payload = %q, want %q", buf, more)
	}
}

// authFixture returns a server session holding a long-term extended
// key behind its auth callback, and the public-only extended key a
// client would have pinned out of band.
func authFixture(t *testing.T, params *sidh.Params, keyID string) (*Session, *sidh.ExtendedKey) {
	t.Helper()
	serverKey := sidh.NewExtendedKey(params, sidh.SideB)
	if err := serverKey.Generate(rand.Reader); err != nil {
		t.Fatal(err)
	}
	full, err := serverKey.Export()
	if err != nil {
		t.Fatal(err)
	}
	pubBytes, err := serverKey.Public().Export()
	if err != nil {
		t.Fatal(err)
	}
	trusted := sidh.NewExtendedKey(params, sidh.SideB)
	if err := trusted.Import(append(pubBytes, serverKey.HashSeed[:]...)); err != nil {
		t.Fatal(err)
	}

	server := New(params)
	server.EnableAuth(registry.AuthSIDHexSHA512)
	server.SetAuthCallback(func(id string) []byte {
		if id == keyID {
			return full
		}
		return nil
	})
	return server, trusted
}

func TestHandshakeWithPeerAuth(t *testing.T) {
	params := smallParams(t)
	server, trusted := authFixture(t, params, "server-key-1")

	client := New(params)
	client.RequestPeerAuth("server-key-1", trusted)

	server.StartServer()
	if err := client.StartClient("test-server"); err != nil {
		t.Fatalf("StartClient: %v", err)
	}
	runHandshake(t, client, server)
}

func TestHandshakeWrongAuthEntersErrorState(t *testing.T) {
	params := smallParams(t)
	// The server's callback knows no key under the requested ID, so
	// its ack carries no Auth-reply and the client's verification must
	// fail.
	server, trusted := authFixture(t, params, "some-other-key")

	client := New(params)
	client.RequestPeerAuth("server-key-1", trusted)

	server.StartServer()
	if err := client.StartClient("test-server"); err != nil {
		t.Fatalf("StartClient: %v", err)
	}

	for i := 0; i < 5; i++ {
		pumpAllowErr(client, server)
		pumpAllowErr(server, client)
		if client.State() == StateError {
			break
		}
	}
	if client.State() != StateError {
		t.Fatalf("client.State() = %v, want StateError when the peer cannot answer the challenge", client.State())
	}
	if client.Err().Kind != ErrorWrongAuth {
		t.Fatalf("client.Err().Kind = %v, want ErrorWrongAuth", client.Err().Kind)
	}
}

func TestHandshakeRejectsUnacceptableCipher(t *testing.T) {
	client, server := newPair(t)
	server.DisableCipher(registry.CipherChaCha20)

	for i := 0; i < 5; i++ {
		pumpAllowErr(client, server)
		pumpAllowErr(server, client)
		if server.State() == StateError {
			break
		}
	}
	if server.State() != StateError {
		t.Fatalf("server.State() = %v, want StateError once its only cipher is disabled", server.State())
	}
	if server.Err().Kind != ErrorBadHandshake {
		t.Fatalf("server.Err().Kind = %v, want ErrorBadHandshake", server.Err().Kind)
	}
}
