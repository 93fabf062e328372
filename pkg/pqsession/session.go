// Package pqsession implements the session state machine component:
// it coordinates the isogeny key exchange (pkg/sidh), the optional
// SIDH challenge-response authentication (pkg/auth), the text
// handshake (pkg/handshake), and the encrypted packet codec
// (pkg/packet) into the single INIT → HANDSHAKING → NORMAL →
// CLOSING/CLOSED/ERROR state machine a host drives by feeding bytes
// into WriteIncoming and draining bytes out of ReadOutgoing.
package pqsession

import (
	"fmt"

	"github.com/elkablo/pqc-go/pkg/auth"
	"github.com/elkablo/pqc-go/pkg/handshake"
	"github.com/elkablo/pqc-go/pkg/packet"
	"github.com/elkablo/pqc-go/pkg/prng"
	"github.com/elkablo/pqc-go/pkg/registry"
	"github.com/elkablo/pqc-go/pkg/sidh"
	"github.com/pion/logging"
)

// DefaultRekeyAfter is the byte threshold after which Write
// automatically emits a REKEY frame.
const DefaultRekeyAfter = 1 << 30

// MinNonceSize is the minimum width of a per-direction nonce,
// regardless of the chosen cipher's own NonceSize.
const MinNonceSize = 32

// MinRekeyPayload is the minimum REKEY payload width.
const MinRekeyPayload = 32

// clientSide and serverSide fix which half of the SIDH parameter
// block each role uses; the parameter block is symmetric in A/B, so
// this is an arbitrary but fixed convention both ends must share.
const (
	clientSide = sidh.SideA
	serverSide = sidh.SideB
)

// AuthCallback resolves a requested key ID to the raw exported bytes
// of the matching sidh.ExtendedKey (private+public+hash_seed), or
// nil if this host holds no such key.
type AuthCallback func(id string) []byte

// Session is the per-connection secure-channel state machine.
type Session struct {
	state  State
	role   Role
	params *sidh.Params

	enabledCiphers registry.CipherSet
	enabledMacs    registry.MacSet
	enabledKexes   registry.KexSet
	enabledAuths   registry.AuthSet

	rekeyAfter uint64

	authCallback AuthCallback

	// requestAuthID/requestAuthPeer configure this session to
	// challenge the peer to prove ownership of requestAuthID's
	// private key, verifying against requestAuthPeer's known public
	// half (out-of-band trust: this core has no certificate store).
	requestAuthID   string
	requestAuthPeer *sidh.ExtendedKey
	pendingAuth     *auth.Request

	// incomingAuthID/incomingAuthRequest capture a challenge the peer
	// sent us in their hello, to be answered in our own ack.
	incomingAuthID      string
	incomingAuthRequest []byte

	serverName string // client: sent; server: received
	useKex     registry.Kex

	chosenKex    registry.Kex
	chosenCipher registry.Cipher
	chosenMac    registry.Mac
	chosenAuth   registry.Auth

	ourKey     *sidh.Key
	sessionKey []byte

	local direction
	peer  direction

	incomingHandshake []byte
	incoming          []byte
	outgoing          []byte

	reader *packet.Reader

	log logging.LeveledLogger

	err *Error
}

// New builds a fresh session bound to params, with the default
// algorithm sets enabled and rekeyAfter at its default.
func New(params *sidh.Params) *Session {
	return &Session{
		state:          StateInit,
		role:           RoleNone,
		params:         params,
		enabledCiphers: registry.NewCipherSet(registry.DefaultCiphers()...),
		enabledMacs:    registry.NewMacSet(registry.DefaultMacs()...),
		enabledKexes:   registry.NewKexSet(registry.DefaultKexes()...),
		enabledAuths:   registry.NewAuthSet(registry.DefaultAuths()...),
		rekeyAfter:     DefaultRekeyAfter,
	}
}

// --- configuration, valid only before the handshake starts ---

func (s *Session) EnableCipher(c registry.Cipher)  { s.enabledCiphers = s.enabledCiphers.With(c) }
func (s *Session) DisableCipher(c registry.Cipher) { s.enabledCiphers = s.enabledCiphers.Without(c) }
func (s *Session) EnableMac(m registry.Mac)        { s.enabledMacs = s.enabledMacs.With(m) }
func (s *Session) DisableMac(m registry.Mac)       { s.enabledMacs = s.enabledMacs.Without(m) }
func (s *Session) EnableKex(k registry.Kex)        { s.enabledKexes = s.enabledKexes.With(k) }
func (s *Session) DisableKex(k registry.Kex)       { s.enabledKexes = s.enabledKexes.Without(k) }
func (s *Session) EnableAuth(a registry.Auth)      { s.enabledAuths = s.enabledAuths.With(a) }
func (s *Session) DisableAuth(a registry.Auth)     { s.enabledAuths = s.enabledAuths.Without(a) }

// SetRekeyAfter overrides the default rekey byte threshold.
func (s *Session) SetRekeyAfter(n uint64) { s.rekeyAfter = n }

// SetAuthCallback installs the callback used to answer a peer's
// authentication challenge.
func (s *Session) SetAuthCallback(cb AuthCallback) { s.authCallback = cb }

// SetLoggerFactory attaches a logger, scoped "pqsession". If never
// called, the session logs nothing.
func (s *Session) SetLoggerFactory(lf logging.LoggerFactory) {
	if lf != nil {
		s.log = lf.NewLogger("pqsession")
	}
}

// RequestPeerAuth configures this session to challenge the peer to
// prove ownership of keyID's private key during the handshake,
// verifying against peerPublic (obtained out-of-band).
func (s *Session) RequestPeerAuth(keyID string, peerPublic *sidh.ExtendedKey) {
	s.requestAuthID = keyID
	s.requestAuthPeer = peerPublic
	s.enabledAuths = s.enabledAuths.With(registry.AuthSIDHexSHA512)
}

// --- accessors ---

func (s *Session) State() State          { return s.state }
func (s *Session) Role() Role            { return s.role }
func (s *Session) GetServerName() string { return s.serverName }
func (s *Session) IsHandshaken() bool {
	return s.state == StateNormal || s.state == StateHandshakingTillSent ||
		s.state == StateClosing || s.state == StateClosed
}
func (s *Session) IsPeerClosed() bool         { return s.peer.closed }
func (s *Session) SinceLastRekey() uint64     { return s.local.sinceLastRekey }
func (s *Session) SinceLastPeerRekey() uint64 { return s.peer.sinceLastRekey }

// Err returns the sticky error once the session has entered
// StateError, or nil otherwise.
func (s *Session) Err() *Error { return s.err }

func (s *Session) setError(kind ErrorKind, err error) error {
	s.state = StateError
	s.err = &Error{Kind: kind, Err: err}
	if s.log != nil {
		s.log.Warnf("session entering error state: %s", s.err)
	}
	return s.err
}

// --- handshake entry points ---

// StartServer marks this session as the server side. It stays in
// StateInit until the client's first handshake bytes arrive.
func (s *Session) StartServer() {
	s.role = RoleServer
	if s.log != nil {
		s.log.Debug("starting as server, waiting for client hello")
	}
}

// StartClient marks this session as the client side and immediately
// queues the first handshake text packet, addressed to serverName.
func (s *Session) StartClient(serverName string) error {
	s.role = RoleClient
	s.serverName = serverName
	if s.log != nil {
		s.log.Debugf("starting as client for server %q", serverName)
	}

	key, err := s.generateOurKey(clientSide)
	if err != nil {
		return s.setError(ErrorOther, err)
	}
	s.ourKey = key
	s.useKex = registry.KexSIDHex

	hello, err := s.buildHello()
	if err != nil {
		return s.setError(ErrorOther, err)
	}
	s.outgoing = append(s.outgoing, hello.Encode()...)
	return nil
}

func (s *Session) generateOurKey(side sidh.Side) (*sidh.Key, error) {
	g := prng.Get()
	defer prng.Put(g)
	key := sidh.NewKey(s.params, side)
	if err := key.Generate(g); err != nil {
		return nil, err
	}
	return key, nil
}

// buildHello constructs this session's own hello packet: the
// client's carries the server name, the server's own omits it.
func (s *Session) buildHello() (*handshake.Hello, error) {
	secret, err := s.ourKey.Public().Export()
	if err != nil {
		return nil, err
	}
	h := &handshake.Hello{
		Version:          handshake.ProtocolVersion,
		IsServer:         s.role == RoleServer,
		ServerName:       s.serverName,
		KexName:          registry.KexSIDHex.String(),
		SupportedCiphers: cipherNames(s.enabledCiphers),
		SupportedMACs:    macNames(s.enabledMacs),
		EncryptedSecret:  secret,
	}

	if s.requestAuthID != "" && s.requestAuthPeer != nil {
		g := prng.Get()
		defer prng.Put(g)
		s.pendingAuth = &auth.Request{}
		req, err := s.pendingAuth.Generate(g, s.requestAuthPeer, authMessage(s.requestAuthID))
		if err != nil {
			return nil, err
		}
		h.AuthType = registry.AuthSIDHexSHA512.String()
		h.ServerAuth = s.requestAuthID
		h.AuthRequest = req
	}

	return h, nil
}

func authMessage(keyID string) []byte {
	return []byte("pqc-go session auth: " + keyID)
}

func cipherNames(set registry.CipherSet) []string {
	var out []string
	for c := registry.Cipher(1); c.IsValid(); c++ {
		if set.Has(c) {
			out = append(out, c.String())
		}
	}
	return out
}

func macNames(set registry.MacSet) []string {
	var out []string
	for m := registry.Mac(1); m.IsValid(); m++ {
		if set.Has(m) {
			out = append(out, m.String())
		}
	}
	return out
}

// --- incoming byte processing ---

// WriteIncoming feeds bytes received from the transport into the
// session. It drives the handshake to completion and, once in
// StateNormal, decrypts and dispatches framed packets.
func (s *Session) WriteIncoming(buf []byte) error {
	if s.state == StateError {
		return s.err
	}

	switch s.state {
	case StateInit:
		return s.feedInit(buf)
	case StateHandshaking, StateHandshakingTillSent:
		return s.feedHandshaking(buf)
	case StateNormal, StateClosing, StateClosed:
		// A session that closed its own side still reads the peer's
		// in-flight frames (late DATA, the peer's own CLOSE); only
		// traffic after the peer's CLOSE is an error, enforced in
		// dispatch.
		return s.feedNormal(buf)
	default:
		return s.setError(ErrorOther, fmt.Errorf("write_incoming in state %s", s.state))
	}
}

func (s *Session) feedInit(buf []byte) error {
	s.incomingHandshake = append(s.incomingHandshake, buf...)
	n, err := handshake.FindPacket(s.incomingHandshake)
	if err == handshake.ErrIncomplete {
		return nil
	}
	if err != nil {
		return s.setError(ErrorBadHandshake, err)
	}

	hello, err := handshake.ParseHello(s.incomingHandshake[:n])
	if err != nil {
		return s.setError(ErrorBadHandshake, err)
	}
	remainder := s.incomingHandshake[n:]
	s.incomingHandshake = nil

	if err := s.processHello(hello); err != nil {
		return err
	}

	s.state = StateHandshaking

	// A server's hello and ack are queued and sent as one contiguous
	// write (see processHello), so a client reading them back in one
	// chunk has both already buffered here; feed the rest through
	// immediately instead of stranding it in incomingHandshake.
	if len(remainder) > 0 {
		return s.WriteIncoming(remainder)
	}
	return nil
}

func (s *Session) processHello(hello *handshake.Hello) error {
	if hello.Version != handshake.ProtocolVersion {
		return s.setError(ErrorBadHandshake, fmt.Errorf("unsupported version %d", hello.Version))
	}

	kex, ok := registry.ParseKex(hello.KexName)
	if !ok || !s.enabledKexes.Has(kex) {
		return s.setError(ErrorBadHandshake, fmt.Errorf("kex %q not acceptable", hello.KexName))
	}
	if s.role == RoleClient && kex != s.useKex {
		return s.setError(ErrorBadHandshake, fmt.Errorf("server chose kex %q, expected %q", hello.KexName, s.useKex))
	}

	var ciphers registry.CipherSet
	for _, name := range hello.SupportedCiphers {
		if c, ok := registry.ParseCipher(name); ok {
			ciphers = ciphers.With(c)
		}
	}
	ciphers = ciphers.Intersect(s.enabledCiphers)
	if ciphers.Empty() {
		return s.setError(ErrorBadHandshake, fmt.Errorf("no acceptable cipher"))
	}

	var macs registry.MacSet
	for _, name := range hello.SupportedMACs {
		if m, ok := registry.ParseMac(name); ok {
			macs = macs.With(m)
		}
	}
	macs = macs.Intersect(s.enabledMacs)
	if macs.Empty() {
		return s.setError(ErrorBadHandshake, fmt.Errorf("no acceptable mac"))
	}

	if len(hello.EncryptedSecret) == 0 {
		return s.setError(ErrorBadHandshake, fmt.Errorf("missing encrypted-secret"))
	}

	if hello.AuthType != "" && hello.ServerAuth != "" && hello.AuthRequest != nil {
		if authID, ok := registry.ParseAuth(hello.AuthType); ok && s.enabledAuths.Has(authID) {
			s.incomingAuthID = hello.ServerAuth
			s.incomingAuthRequest = hello.AuthRequest
			s.chosenAuth = authID
		}
	}

	if s.role == RoleServer {
		s.serverName = hello.ServerName
		key, err := s.generateOurKey(serverSide)
		if err != nil {
			return s.setError(ErrorOther, err)
		}
		s.ourKey = key
	}

	peerSide := s.ourKey.Side().Other()
	peerPublic, err := sidh.ImportPublicKey(s.params, peerSide, hello.EncryptedSecret)
	if err != nil {
		return s.setError(ErrorBadHandshake, err)
	}
	secret, err := s.ourKey.ComputeSharedSecret(peerPublic)
	if err != nil {
		return s.setError(ErrorBadHandshake, err)
	}
	s.sessionKey = secret

	cipherID, _ := ciphers.First()
	macID, _ := macs.First()
	s.chosenKex, s.chosenCipher, s.chosenMac = kex, cipherID, macID
	if s.log != nil {
		s.log.Debugf("negotiated kex=%s cipher=%s mac=%s", kex, cipherID, macID)
	}

	if err := s.installLocalDirection(); err != nil {
		return s.setError(ErrorOther, err)
	}

	if s.role == RoleServer {
		serverHello, err := s.buildHello()
		if err != nil {
			return s.setError(ErrorOther, err)
		}
		s.outgoing = append(s.outgoing, serverHello.Encode()...)
	}

	ack, err := s.buildAck()
	if err != nil {
		return s.setError(ErrorOther, err)
	}
	s.outgoing = append(s.outgoing, ack.Encode()...)
	return nil
}

func (s *Session) installLocalDirection() error {
	g := prng.Get()
	defer prng.Put(g)

	nonceSize := MinNonceSize
	if cs := cipherNonceSize(s.chosenCipher); cs > nonceSize {
		nonceSize = cs
	}
	nonce := make([]byte, nonceSize)
	if _, err := g.Read(nonce); err != nil {
		return err
	}

	ephemeral, err := hmacDerive(s.chosenMac, nonce, s.sessionKey)
	if err != nil {
		return err
	}

	cipher, err := newCipher(s.chosenCipher, ephemeral)
	if err != nil {
		return err
	}
	if err := cipher.Nonce(nonce); err != nil {
		return err
	}
	mac, err := newMac(s.chosenMac, ephemeral)
	if err != nil {
		return err
	}

	s.local = direction{cipher: cipher, mac: mac, ephemeralKey: ephemeral}
	s.local.nonce = nonce
	return nil
}

// buildAck constructs the second handshake packet, including an
// Auth-reply if the peer's hello challenged one of our keys.
func (s *Session) buildAck() (*handshake.Ack, error) {
	ack := &handshake.Ack{
		Cipher: s.chosenCipher.String(),
		Mac:    s.chosenMac.String(),
		Nonce:  s.local.nonce,
	}
	if s.incomingAuthID != "" {
		reply, err := s.answerAuthChallenge()
		if err != nil {
			return nil, err
		}
		ack.AuthReply = reply
	}
	return ack, nil
}

func (s *Session) answerAuthChallenge() ([]byte, error) {
	if s.authCallback == nil {
		return nil, nil
	}
	raw := s.authCallback(s.incomingAuthID)
	if raw == nil {
		return nil, nil
	}
	ownKey := sidh.NewExtendedKey(s.params, s.ourKey.Side())
	if err := ownKey.Import(raw); err != nil {
		return nil, err
	}
	return auth.Sign(ownKey, authMessage(s.incomingAuthID), s.incomingAuthRequest)
}

func cipherNonceSize(c registry.Cipher) int {
	switch c {
	case registry.CipherChaCha20:
		return 8
	default:
		return 0
	}
}

func hmacDerive(m registry.Mac, key, message []byte) ([]byte, error) {
	mac, err := newMac(m, key)
	if err != nil {
		return nil, err
	}
	mac.Write(message)
	return mac.Sum(), nil
}

func (s *Session) feedHandshaking(buf []byte) error {
	s.incomingHandshake = append(s.incomingHandshake, buf...)
	n, err := handshake.FindPacket(s.incomingHandshake)
	if err == handshake.ErrIncomplete {
		return nil
	}
	if err != nil {
		return s.setError(ErrorBadHandshake, err)
	}
	ack, err := handshake.ParseAck(s.incomingHandshake[:n])
	if err != nil {
		return s.setError(ErrorBadHandshake, err)
	}
	remainder := s.incomingHandshake[n:]
	s.incomingHandshake = nil

	if err := s.processAck(ack); err != nil {
		return err
	}

	if s.state != StateError {
		if len(s.outgoing) > 0 {
			s.state = StateHandshakingTillSent
		} else {
			s.state = StateNormal
		}
	}

	if len(remainder) > 0 {
		return s.WriteIncoming(remainder)
	}
	return nil
}

func (s *Session) processAck(ack *handshake.Ack) error {
	cipherID, ok := registry.ParseCipher(ack.Cipher)
	if !ok || !s.enabledCiphers.Has(cipherID) {
		return s.setError(ErrorBadHandshake, fmt.Errorf("peer cipher %q not enabled", ack.Cipher))
	}
	macID, ok := registry.ParseMac(ack.Mac)
	if !ok || !s.enabledMacs.Has(macID) {
		return s.setError(ErrorBadHandshake, fmt.Errorf("peer mac %q not enabled", ack.Mac))
	}

	peerNonceSize := MinNonceSize
	if cs := cipherNonceSize(cipherID); cs > peerNonceSize {
		peerNonceSize = cs
	}
	if len(ack.Nonce) < peerNonceSize {
		return s.setError(ErrorBadHandshake, fmt.Errorf("peer nonce too short"))
	}

	ephemeral, err := hmacDerive(macID, ack.Nonce, s.sessionKey)
	if err != nil {
		return s.setError(ErrorOther, err)
	}
	cipher, err := newCipher(cipherID, ephemeral)
	if err != nil {
		return s.setError(ErrorOther, err)
	}
	if err := cipher.Nonce(ack.Nonce); err != nil {
		return s.setError(ErrorOther, err)
	}
	mac, err := newMac(macID, ephemeral)
	if err != nil {
		return s.setError(ErrorOther, err)
	}

	s.peer = direction{cipher: cipher, mac: mac, ephemeralKey: ephemeral, nonce: ack.Nonce}
	s.reader = packet.NewReader(cipher, mac)

	if s.pendingAuth != nil {
		ok, err := s.pendingAuth.Verify(ack.AuthReply)
		if err != nil || !ok {
			return s.setError(ErrorWrongAuth, err)
		}
	}

	return nil
}

func (s *Session) feedNormal(buf []byte) error {
	// Anything delivered after the peer's CLOSE is a protocol
	// violation. Bytes that arrived in the same flush as the CLOSE
	// frame are still processed below; only a later delivery trips
	// this.
	if s.peer.closed {
		return s.setError(ErrorAlreadyClosed, nil)
	}
	s.reader.WriteIncoming(buf)
	for {
		pkt, err := s.reader.NextPacket()
		if err == packet.ErrNeedMore {
			return nil
		}
		if err != nil {
			return s.setError(ErrorBadPacket, err)
		}
		if !pkt.Verify(s.peer.mac) {
			return s.setError(ErrorBadMAC, nil)
		}
		if err := s.dispatch(pkt); err != nil {
			return err
		}
		s.reader.PopPacket(pkt)
		if s.state == StateError {
			return s.err
		}
	}
}

func (s *Session) dispatch(pkt *packet.Packet) error {
	switch pkt.Kind {
	case packet.KindClose:
		s.peer.closed = true
		if s.state == StateClosing {
			s.state = StateClosed
		}
	case packet.KindData:
		s.incoming = append(s.incoming, pkt.Payload...)
		s.peer.sinceLastRekey += uint64(len(pkt.Payload))
	case packet.KindRekey:
		if len(pkt.Payload) < MinRekeyPayload {
			return s.setError(ErrorBadRekey, nil)
		}
		if err := s.peer.rekey(pkt.Payload); err != nil {
			return s.setError(ErrorOther, err)
		}
	default:
		return s.setError(ErrorBadPacket, nil)
	}
	return nil
}

// --- outgoing application data ---

// Write frames buf as one or more DATA packets (splitting at 65536
// bytes) and appends them to the outgoing buffer, rekeying the local
// direction whenever the threshold is crossed.
func (s *Session) Write(buf []byte) error {
	if s.state == StateError {
		return s.err
	}
	if s.state != StateNormal {
		return ErrWrongState
	}
	for len(buf) > 0 {
		n := len(buf)
		if n > packet.MaxDataPayload {
			n = packet.MaxDataPayload
		}
		chunk := buf[:n]
		buf = buf[n:]

		frame, err := packet.EncodeData(s.local.cipher, s.local.mac, chunk)
		if err != nil {
			return s.setError(ErrorOther, err)
		}
		s.outgoing = append(s.outgoing, frame...)
		s.local.sinceLastRekey += uint64(n)

		if s.local.sinceLastRekey > s.rekeyAfter {
			if err := s.emitRekey(); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Session) emitRekey() error {
	g := prng.Get()
	nonce := make([]byte, MinNonceSize)
	_, err := g.Read(nonce)
	prng.Put(g)
	if err != nil {
		return s.setError(ErrorOther, err)
	}

	frame, err := packet.EncodeRekey(s.local.cipher, s.local.mac, nonce)
	if err != nil {
		return s.setError(ErrorOther, err)
	}
	s.outgoing = append(s.outgoing, frame...)

	if err := s.local.rekey(nonce); err != nil {
		return s.setError(ErrorOther, err)
	}
	return nil
}

// Close emits a CLOSE frame and moves the session to StateClosing.
// Valid only in StateNormal.
func (s *Session) Close() error {
	if s.state == StateError {
		return s.err
	}
	if s.state != StateNormal {
		return ErrWrongState
	}
	frame, err := packet.EncodeClose(s.local.cipher, s.local.mac)
	if err != nil {
		return s.setError(ErrorOther, err)
	}
	s.outgoing = append(s.outgoing, frame...)
	s.state = StateClosing
	if s.log != nil {
		s.log.Debug("close requested, draining outgoing before CLOSING -> CLOSED")
	}
	return nil
}

// --- reading data out ---

// Read copies up to len(buf) plaintext application bytes into buf,
// returning the number of bytes copied, or -1 if the session is in
// StateError.
func (s *Session) Read(buf []byte) int {
	if s.state == StateError {
		return -1
	}
	n := copy(buf, s.incoming)
	s.incoming = s.incoming[n:]
	return n
}

// Available returns the number of plaintext application bytes
// currently buffered for Read.
func (s *Session) Available() int { return len(s.incoming) }

// ReadOutgoing copies up to len(buf) bytes destined for the
// transport into buf, advancing (but never resizing beyond what is
// drained) the outgoing buffer. It also advances
// StateHandshakingTillSent → StateNormal and StateClosing →
// StateClosed once the buffer empties.
func (s *Session) ReadOutgoing(buf []byte) int {
	n := copy(buf, s.outgoing)
	s.outgoing = s.outgoing[n:]

	if len(s.outgoing) == 0 {
		switch s.state {
		case StateHandshakingTillSent:
			s.state = StateNormal
		case StateClosing:
			// CLOSING -> CLOSED happens purely on our own outgoing
			// buffer draining, independent of dispatch's own
			// CLOSING -> CLOSED transition on receiving the peer's
			// CLOSE frame.
			s.state = StateClosed
		}
	}
	return n
}

// OutgoingLen returns the number of bytes currently queued to send.
func (s *Session) OutgoingLen() int { return len(s.outgoing) }
