package handshake

import (
	"bytes"
	"testing"
)

func TestHelloEncodeParseRoundTripClient(t *testing.T) {
	h := &Hello{
		Version:          ProtocolVersion,
		ServerName:       "example.invalid",
		IsServer:         false,
		KexName:          "SIDHex",
		SupportedCiphers: []string{"ChaCha20", "plain"},
		SupportedMACs:    []string{"sha256", "sha512"},
		EncryptedSecret:  []byte{1, 2, 3, 4},
	}
	encoded := h.Encode()

	got, err := ParseHello(encoded)
	if err != nil {
		t.Fatalf("ParseHello: %v", err)
	}
	if got.Version != h.Version || got.ServerName != h.ServerName || got.IsServer != h.IsServer {
		t.Fatalf("header fields mismatch: got %+v", got)
	}
	if got.KexName != h.KexName {
		t.Fatalf("KexName = %q, want %q", got.KexName, h.KexName)
	}
	if len(got.SupportedCiphers) != 2 || got.SupportedCiphers[0] != "ChaCha20" {
		t.Fatalf("SupportedCiphers = %v", got.SupportedCiphers)
	}
	if !bytes.Equal(got.EncryptedSecret, h.EncryptedSecret) {
		t.Fatalf("EncryptedSecret = %x, want %x", got.EncryptedSecret, h.EncryptedSecret)
	}
}

func TestHelloEncodeParseRoundTripServer(t *testing.T) {
	h := &Hello{
		Version:          ProtocolVersion,
		IsServer:         true,
		KexName:          "SIDHex",
		SupportedCiphers: []string{"ChaCha20"},
		SupportedMACs:    []string{"sha256"},
		AuthType:         "SIDHex-sha512",
		ServerAuth:       "server-key-1",
		ClientAuth:       []string{"client-key-1", "client-key-2"},
		EncryptedSecret:  []byte{5, 6, 7},
		AuthRequest:      []byte{8, 9},
	}
	got, err := ParseHello(h.Encode())
	if err != nil {
		t.Fatalf("ParseHello: %v", err)
	}
	if !got.IsServer {
		t.Fatal("expected IsServer = true")
	}
	if got.AuthType != h.AuthType || got.ServerAuth != h.ServerAuth {
		t.Fatalf("auth fields mismatch: got %+v", got)
	}
	if len(got.ClientAuth) != 2 || got.ClientAuth[1] != "client-key-2" {
		t.Fatalf("ClientAuth = %v", got.ClientAuth)
	}
	if !bytes.Equal(got.AuthRequest, h.AuthRequest) {
		t.Fatalf("AuthRequest = %x, want %x", got.AuthRequest, h.AuthRequest)
	}
}

func TestParseHelloCaseInsensitiveFieldNames(t *testing.T) {
	raw := "Post-quantum hello v1.\n" +
		"KEY-EXCHANGE: SIDHex\n" +
		"supported-CIPHERS: ChaCha20\n" +
		"Supported-macs: sha256\n" +
		"Encrypted-Secret: AAAA\n" +
		"\n"
	h, err := ParseHello([]byte(raw))
	if err != nil {
		t.Fatalf("ParseHello: %v", err)
	}
	if h.KexName != "SIDHex" {
		t.Fatalf("KexName = %q", h.KexName)
	}
}

func TestParseHelloRejectsBadVersion(t *testing.T) {
	raw := "Post-quantum hello v99.\n" +
		"Key-exchange: SIDHex\n" +
		"Supported-ciphers: ChaCha20\n" +
		"Supported-MACs: sha256\n" +
		"Encrypted-secret: AAAA\n" +
		"\n"
	if _, err := ParseHello([]byte(raw)); err != ErrBadVersion {
		t.Fatalf("got err=%v, want ErrBadVersion", err)
	}
}

func TestParseHelloRejectsMissingField(t *testing.T) {
	raw := "Post-quantum hello v1.\n" +
		"Key-exchange: SIDHex\n" +
		"\n"
	if _, err := ParseHello([]byte(raw)); err != ErrMissingField {
		t.Fatalf("got err=%v, want ErrMissingField", err)
	}
}

func TestParseHelloRejectsUnknownField(t *testing.T) {
	raw := "Post-quantum hello v1.\n" +
		"Key-exchange: SIDHex\n" +
		"Supported-ciphers: ChaCha20\n" +
		"Supported-MACs: sha256\n" +
		"Encrypted-secret: AAAA\n" +
		"Bogus-field: whatever\n" +
		"\n"
	if _, err := ParseHello([]byte(raw)); err != ErrMalformed {
		t.Fatalf("got err=%v, want ErrMalformed", err)
	}
}

func TestParseHelloRejectsDuplicateField(t *testing.T) {
	raw := "Post-quantum hello v1.\n" +
		"Key-exchange: SIDHex\n" +
		"Key-exchange: SIDHex\n" +
		"Supported-ciphers: ChaCha20\n" +
		"Supported-MACs: sha256\n" +
		"Encrypted-secret: AAAA\n" +
		"\n"
	if _, err := ParseHello([]byte(raw)); err != ErrMalformed {
		t.Fatalf("got err=%v, want ErrMalformed", err)
	}
}

func TestParseHelloRejectsBadGreeting(t *testing.T) {
	raw := "not a greeting line\n\n"
	if _, err := ParseHello([]byte(raw)); err != ErrBadGreeting {
		t.Fatalf("got err=%v, want ErrBadGreeting", err)
	}
}

func TestAckEncodeParseRoundTrip(t *testing.T) {
	a := &Ack{
		Cipher:    "ChaCha20",
		Mac:       "sha256",
		Nonce:     []byte{1, 2, 3, 4, 5, 6, 7, 8},
		AuthReply: []byte{9, 9, 9},
	}
	got, err := ParseAck(a.Encode())
	if err != nil {
		t.Fatalf("ParseAck: %v", err)
	}
	if got.Cipher != a.Cipher || got.Mac != a.Mac {
		t.Fatalf("got %+v", got)
	}
	if !bytes.Equal(got.Nonce, a.Nonce) {
		t.Fatalf("Nonce = %x, want %x", got.Nonce, a.Nonce)
	}
	if !bytes.Equal(got.AuthReply, a.AuthReply) {
		t.Fatalf("AuthReply = %x, want %x", got.AuthReply, a.AuthReply)
	}
}

func TestAckEncodeParseRoundTripNoAuth(t *testing.T) {
	a := &Ack{Cipher: "plain", Mac: "sha512", Nonce: []byte{0, 0}}
	got, err := ParseAck(a.Encode())
	if err != nil {
		t.Fatalf("ParseAck: %v", err)
	}
	if got.AuthReply != nil {
		t.Fatalf("AuthReply = %x, want nil", got.AuthReply)
	}
}

func TestParseAckRejectsBadFirstLine(t *testing.T) {
	raw := "NOT-KEX: OK\nCipher: plain\nMAC: sha256\nNonce: AAAA\n\n"
	if _, err := ParseAck([]byte(raw)); err != ErrBadKexAck {
		t.Fatalf("got err=%v, want ErrBadKexAck", err)
	}
}

func TestFindPacketIncompleteThenComplete(t *testing.T) {
	partial := []byte("Post-quantum hello v1.\nKey-exchange: SIDHex\n")
	if _, err := FindPacket(partial); err != ErrIncomplete {
		t.Fatalf("got err=%v, want ErrIncomplete", err)
	}

	complete := append(append([]byte(nil), partial...), []byte("\n")...)
	n, err := FindPacket(complete)
	if err != nil {
		t.Fatalf("FindPacket: %v", err)
	}
	if n != len(complete) {
		t.Fatalf("FindPacket length = %d, want %d", n, len(complete))
	}
}

func TestFindPacketTooLarge(t *testing.T) {
	buf := bytes.Repeat([]byte{'a'}, MaxSize+1)
	if _, err := FindPacket(buf); err != ErrTooLarge {
		t.Fatalf("got err=%v, want ErrTooLarge", err)
	}
}

func TestFindPacketExtraDataAfterBlankLine(t *testing.T) {
	one := "Post-quantum hello v1.\nKey-exchange: SIDHex\n\n"
	buf := []byte(one + "trailing garbage that belongs to the next read")
	n, err := FindPacket(buf)
	if err != nil {
		t.Fatalf("FindPacket: %v", err)
	}
	if n != len(one) {
		t.Fatalf("FindPacket length = %d, want %d", n, len(one))
	}
}
