package auth

import (
	"encoding/hex"
	"testing"

	"github.com/elkablo/pqc-go/pkg/sidh"
)

func TestKeyFileRoundTrip(t *testing.T) {
	params := smallParams(t)
	key := signerKey(t, params, sidh.SideB)

	file, err := EncodeKeyFile(key)
	if err != nil {
		t.Fatalf("EncodeKeyFile: %v", err)
	}

	got, err := DecodeKeyFile(params, sidh.SideB, file)
	if err != nil {
		t.Fatalf("DecodeKeyFile: %v", err)
	}
	if !got.HasPrivate() || !got.HasPublic() {
		t.Fatal("decoded key should carry both halves")
	}
	if got.HashSeed != key.HashSeed {
		t.Fatal("hash seed mismatch after key-file round trip")
	}
}

func TestKeyIDMatchesFilePrefix(t *testing.T) {
	params := smallParams(t)
	key := signerKey(t, params, sidh.SideB)

	id, err := KeyID(key)
	if err != nil {
		t.Fatalf("KeyID: %v", err)
	}
	file, err := EncodeKeyFile(key)
	if err != nil {
		t.Fatalf("EncodeKeyFile: %v", err)
	}
	if id != hex.EncodeToString(file[:32]) {
		t.Fatalf("KeyID = %s, want the hex of the file's leading digest", id)
	}
}

func TestDecodeKeyFileRejectsCorruptID(t *testing.T) {
	params := smallParams(t)
	key := signerKey(t, params, sidh.SideB)

	file, err := EncodeKeyFile(key)
	if err != nil {
		t.Fatalf("EncodeKeyFile: %v", err)
	}
	file[0] ^= 0xff
	if _, err := DecodeKeyFile(params, sidh.SideB, file); err != ErrBadKeyFile {
		t.Fatalf("got err=%v, want ErrBadKeyFile", err)
	}
}

func TestDecodeKeyFileRejectsTruncated(t *testing.T) {
	params := smallParams(t)
	if _, err := DecodeKeyFile(params, sidh.SideB, make([]byte, 16)); err != ErrBadKeyFile {
		t.Fatalf("got err=%v, want ErrBadKeyFile", err)
	}
}

func TestEncodeKeyFileRequiresPublic(t *testing.T) {
	params := smallParams(t)
	empty := sidh.NewExtendedKey(params, sidh.SideB)
	if _, err := EncodeKeyFile(empty); err != ErrNoPublic {
		t.Fatalf("got err=%v, want ErrNoPublic", err)
	}
}
