package solana

import (
	"bytes"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/binary"
	"testing"

	"github.com/mr-tron/base58"
)

func newTestSigner(t *testing.T) *KeypairSigner {
	t.Helper()

	_, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	signer, err := NewKeypairSigner(base58.Encode(priv))
	if err != nil {
		t.Fatalf("NewKeypairSigner: %v", err)
	}
	return signer
}

func newTestRecipient(t *testing.T) string {
	t.Helper()

	pub, _, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return base58.Encode(pub)
}

// Blockhash value does not matter for serialization tests, only its shape.
const testBlockhash = "GHtXQBsoZHVnNFa9YevAzFr17DJjgHXk3ycTKD5xD3Zi"

func TestNewTransferTransaction_SignatureVerifies(t *testing.T) {
	signer := newTestSigner(t)
	recipient := newTestRecipient(t)

	tx, err := NewTransferTransaction(signer, recipient, 1_000_000, testBlockhash)
	if err != nil {
		t.Fatalf("NewTransferTransaction: %v", err)
	}

	raw, err := base64.StdEncoding.DecodeString(tx.Base64)
	if err != nil {
		t.Fatalf("decode tx: %v", err)
	}

	// Wire layout: 1-byte signature count, 64-byte signature, message.
	if raw[0] != 1 {
		t.Fatalf("expected 1 signature, got %d", raw[0])
	}
	sig := raw[1:65]
	msg := raw[65:]

	pubBytes, err := base58.Decode(signer.PublicKey())
	if err != nil {
		t.Fatalf("decode pubkey: %v", err)
	}

	if !ed25519.Verify(ed25519.PublicKey(pubBytes), msg, sig) {
		t.Error("signature does not verify against the serialized message")
	}

	if tx.Signature != base58.Encode(sig) {
		t.Error("reported signature does not match wire signature")
	}
}

func TestNewTransferTransaction_MessageLayout(t *testing.T) {
	signer := newTestSigner(t)
	recipient := newTestRecipient(t)

	tx, err := NewTransferTransaction(signer, recipient, 777_000, testBlockhash)
	if err != nil {
		t.Fatalf("NewTransferTransaction: %v", err)
	}

	raw, _ := base64.StdEncoding.DecodeString(tx.Base64)
	msg := raw[65:]

	// Header: 1 required signature, 0 readonly signed, 1 readonly unsigned.
	if msg[0] != 1 || msg[1] != 0 || msg[2] != 1 {
		t.Errorf("unexpected header: %v", msg[:3])
	}

	// Three account keys: signer, recipient, system program.
	if msg[3] != 3 {
		t.Fatalf("expected 3 account keys, got %d", msg[3])
	}

	fromBytes, _ := base58.Decode(signer.PublicKey())
	toBytes, _ := base58.Decode(recipient)
	sysBytes, _ := base58.Decode(SystemProgramID)

	keys := msg[4:]
	if !bytes.Equal(keys[0:32], fromBytes) {
		t.Error("first account key is not the signer")
	}
	if !bytes.Equal(keys[32:64], toBytes) {
		t.Error("second account key is not the recipient")
	}
	if !bytes.Equal(keys[64:96], sysBytes) {
		t.Error("third account key is not the system program")
	}

	hashBytes, _ := base58.Decode(testBlockhash)
	if !bytes.Equal(msg[100:132], hashBytes) {
		t.Error("blockhash not at expected offset")
	}

	// Single instruction: program index 2, accounts [0, 1], 12-byte data.
	instr := msg[132:]
	if instr[0] != 1 {
		t.Fatalf("expected 1 instruction, got %d", instr[0])
	}
	if instr[1] != 2 {
		t.Errorf("expected program index 2, got %d", instr[1])
	}
	if instr[2] != 2 || instr[3] != 0 || instr[4] != 1 {
		t.Errorf("unexpected instruction accounts: %v", instr[2:5])
	}
	if instr[5] != 12 {
		t.Fatalf("expected 12 data bytes, got %d", instr[5])
	}

	data := instr[6:18]
	if binary.LittleEndian.Uint32(data[0:4]) != systemTransferIndex {
		t.Error("instruction index is not system transfer")
	}
	if binary.LittleEndian.Uint64(data[4:12]) != 777_000 {
		t.Errorf("unexpected lamport amount: %d", binary.LittleEndian.Uint64(data[4:12]))
	}
}

func TestNewTransferTransaction_RejectsZeroAmount(t *testing.T) {
	signer := newTestSigner(t)

	_, err := NewTransferTransaction(signer, newTestRecipient(t), 0, testBlockhash)
	if err == nil {
		t.Fatal("expected error for zero amount")
	}
}

func TestNewTransferTransaction_RejectsInvalidRecipient(t *testing.T) {
	signer := newTestSigner(t)

	for _, addr := range []string{"", "notbase58!!!", "abc"} {
		if _, err := NewTransferTransaction(signer, addr, 100, testBlockhash); err == nil {
			t.Errorf("expected error for recipient %q", addr)
		}
	}
}

func TestAppendShortvecLen(t *testing.T) {
	cases := []struct {
		n    int
		want []byte
	}{
		{0, []byte{0x00}},
		{1, []byte{0x01}},
		{127, []byte{0x7f}},
		{128, []byte{0x80, 0x01}},
		{300, []byte{0xac, 0x02}},
		{16383, []byte{0xff, 0x7f}},
	}

	for _, tc := range cases {
		got := appendShortvecLen(nil, tc.n)
		if !bytes.Equal(got, tc.want) {
			t.Errorf("appendShortvecLen(%d) = %v, want %v", tc.n, got, tc.want)
		}
	}
}

func TestKeypairSigner_RejectsBadSecrets(t *testing.T) {
	if _, err := NewKeypairSigner("not-base58!!!"); err == nil {
		t.Error("expected error for non-base58 secret")
	}
	if _, err := NewKeypairSigner(base58.Encode([]byte("short"))); err == nil {
		t.Error("expected error for wrong-length secret")
	}
}

func TestValidPublicKey(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	if !ValidPublicKey(base58.Encode(pub)) {
		t.Error("expected generated key to validate")
	}
	if !ValidPublicKey(SystemProgramID) {
		t.Error("expected system program ID to validate")
	}
	if ValidPublicKey("") {
		t.Error("empty string must not validate")
	}
	if ValidPublicKey("tooshort") {
		t.Error("short string must not validate")
	}
}
