// Package packet implements the packet codec component: encrypted
// binary frames of three kinds (CLOSE, DATA, REKEY) with an HMAC
// trailer, an incremental reader that holds at most one in-flight
// partial packet, and a writer that encrypts each frame in place.
package packet

import (
	"crypto/subtle"
	"encoding/binary"
	"errors"

	"github.com/elkablo/pqc-go/pkg/crypto"
)

// Kind identifies the three frame types a packet may carry.
type Kind byte

const (
	KindClose Kind = 0
	KindData  Kind = 1
	KindRekey Kind = 2
)

// MaxDataPayload is the largest payload a single DATA frame may
// carry; larger application writes must be split by the caller
// across multiple frames. The header reserves four
// big-endian length bytes, but this core never produces or accepts a
// value above 65536 (0x00010000), so the top byte is always zero —
// see ErrLengthTooLarge.
const MaxDataPayload = 65536

// MaxRekeyPayload is the largest payload a REKEY frame may carry (a
// single unsigned length byte).
const MaxRekeyPayload = 255

// Errors returned while decoding frames.
var (
	ErrNeedMore        = errors.New("packet: need more bytes")
	ErrBadPacket       = errors.New("packet: unknown tag or inconsistent length")
	ErrLengthTooLarge  = errors.New("packet: DATA length exceeds 65536")
	ErrPayloadTooLarge = errors.New("packet: payload exceeds maximum for this kind")
	ErrBadMAC          = errors.New("packet: MAC verification failed")
)

// Packet is a view onto one fully-decrypted frame still sitting in
// the Reader's buffer.
type Packet struct {
	Kind    Kind
	Payload []byte

	prefix []byte // header+payload, plaintext, for MAC recomputation
	trailer []byte // MAC trailer as received
	total   int    // total frame length including trailer
}

// TotalSize returns the number of buffer bytes this packet occupies.
func (p *Packet) TotalSize() int { return p.total }

// Verify recomputes the MAC over the packet's plaintext header and
// payload and compares it to the trailer in constant time.
func (p *Packet) Verify(mac crypto.Mac) bool {
	mac.Reset()
	mac.Write(p.prefix)
	sum := mac.Sum()
	return subtle.ConstantTimeCompare(sum, p.trailer) == 1
}

// EncodeClose builds, MACs, and encrypts a CLOSE frame.
func EncodeClose(cipher crypto.Cipher, mac crypto.Mac) ([]byte, error) {
	return encode(cipher, mac, []byte{byte(KindClose)})
}

// EncodeData builds, MACs, and encrypts a DATA frame. payload must be
// at most MaxDataPayload bytes; the caller splits larger writes.
func EncodeData(cipher crypto.Cipher, mac crypto.Mac, payload []byte) ([]byte, error) {
	if len(payload) > MaxDataPayload {
		return nil, ErrPayloadTooLarge
	}
	header := make([]byte, 5)
	header[0] = byte(KindData)
	binary.BigEndian.PutUint32(header[1:], uint32(len(payload)))
	return encode(cipher, mac, append(header, payload...))
}

// EncodeRekey builds, MACs, and encrypts a REKEY frame carrying the
// new nonce as payload.
func EncodeRekey(cipher crypto.Cipher, mac crypto.Mac, payload []byte) ([]byte, error) {
	if len(payload) > MaxRekeyPayload {
		return nil, ErrPayloadTooLarge
	}
	header := []byte{byte(KindRekey), byte(len(payload))}
	return encode(cipher, mac, append(header, payload...))
}

func encode(cipher crypto.Cipher, mac crypto.Mac, prefix []byte) ([]byte, error) {
	mac.Reset()
	mac.Write(prefix)
	trailer := mac.Sum()
	buf := append(prefix, trailer...)
	if err := cipher.XORKeyStream(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// Reader incrementally decrypts and parses frames out of a byte
// stream, holding at most one in-flight partial packet at a time.
// It references the direction's cipher and mac directly, so
// rekeying those instances in place (pkg/pqsession's REKEY handling)
// is automatically reflected in subsequent decodes.
type Reader struct {
	cipher crypto.Cipher
	mac    crypto.Mac

	buf       []byte
	decrypted int // bytes of buf already run through the cipher
}

// NewReader builds a Reader bound to cipher and mac.
func NewReader(cipher crypto.Cipher, mac crypto.Mac) *Reader {
	return &Reader{cipher: cipher, mac: mac}
}

// WriteIncoming appends freshly-received ciphertext bytes to the
// reader's buffer.
func (r *Reader) WriteIncoming(b []byte) {
	r.buf = append(r.buf, b...)
}

// Buffered returns the number of bytes (decrypted or not) currently
// held by the reader.
func (r *Reader) Buffered() int { return len(r.buf) }

// decryptUpTo advances the decrypted prefix to min(target, len(buf)),
// running exactly the newly-available bytes through the cipher
// (never re-decrypting bytes already processed).
func (r *Reader) decryptUpTo(target int) error {
	if target > len(r.buf) {
		target = len(r.buf)
	}
	if target <= r.decrypted {
		return nil
	}
	if err := r.cipher.XORKeyStream(r.buf[r.decrypted:target]); err != nil {
		return err
	}
	r.decrypted = target
	return nil
}

// NextPacket decrypts just enough bytes to identify and complete the
// next packet. It returns ErrNeedMore if the buffer does not yet hold
// a complete frame, or ErrBadPacket for an unknown tag or an
// inconsistent length field.
func (r *Reader) NextPacket() (*Packet, error) {
	macSize := r.mac.Size()
	headerProbe := 1 + macSize
	if err := r.decryptUpTo(headerProbe); err != nil {
		return nil, err
	}
	if len(r.buf) < headerProbe {
		return nil, ErrNeedMore
	}

	kind := Kind(r.buf[0])
	var total, payloadStart, payloadLen int
	switch kind {
	case KindClose:
		total = 1 + macSize
		payloadStart, payloadLen = 1, 0
	case KindData:
		total = 1 + 4 + macSize // minimum before length is even known
		if err := r.decryptUpTo(total); err != nil {
			return nil, err
		}
		if len(r.buf) < 1+4 {
			return nil, ErrNeedMore
		}
		length := binary.BigEndian.Uint32(r.buf[1:5])
		if length > MaxDataPayload {
			return nil, ErrLengthTooLarge
		}
		payloadStart, payloadLen = 5, int(length)
		total = payloadStart + payloadLen + macSize
	case KindRekey:
		if len(r.buf) < 2 {
			return nil, ErrNeedMore
		}
		length := int(r.buf[1])
		payloadStart, payloadLen = 2, length
		total = payloadStart + payloadLen + macSize
	default:
		return nil, ErrBadPacket
	}

	if err := r.decryptUpTo(total); err != nil {
		return nil, err
	}
	if len(r.buf) < total {
		return nil, ErrNeedMore
	}

	prefix := r.buf[:payloadStart+payloadLen]
	trailer := r.buf[payloadStart+payloadLen : total]
	payload := r.buf[payloadStart : payloadStart+payloadLen]

	return &Packet{
		Kind:    kind,
		Payload: payload,
		prefix:  prefix,
		trailer: trailer,
		total:   total,
	}, nil
}

// PopPacket removes a completed packet from the front of the buffer
// and resets the decrypted-prefix counter so the next call to
// NextPacket starts fresh on the following frame.
func (r *Reader) PopPacket(p *Packet) {
	r.buf = r.buf[p.total:]
	r.decrypted = 0
}
