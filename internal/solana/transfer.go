package solana

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"

	"github.com/mr-tron/base58"
)

// SystemProgramID is the native system program that owns plain lamport
// accounts and executes transfers.
const SystemProgramID = "11111111111111111111111111111111"

// systemTransferIndex is the system program instruction index for Transfer.
const systemTransferIndex uint32 = 2

// TransferTransaction is a signed, ready-to-submit lamport transfer.
type TransferTransaction struct {
	// Base64 is the wire-encoded signed transaction for sendTransaction.
	Base64 string
	// Signature is the base58-encoded transaction signature.
	Signature string
}

// NewTransferTransaction builds and signs a legacy transaction moving
// lamports from the signer's account to the recipient.
func NewTransferTransaction(signer Signer, recipient string, lamports uint64, blockhash string) (*TransferTransaction, error) {
	if lamports == 0 {
		return nil, fmt.Errorf("transfer amount must be positive")
	}
	if !ValidPublicKey(recipient) {
		return nil, fmt.Errorf("invalid recipient address: %s", recipient)
	}

	msg, err := buildTransferMessage(signer.PublicKey(), recipient, lamports, blockhash)
	if err != nil {
		return nil, err
	}

	sig := signer.Sign(msg)
	if len(sig) != 64 {
		return nil, fmt.Errorf("signature must be 64 bytes, got %d", len(sig))
	}

	// Wire format: shortvec signature count, signatures, then the message.
	tx := make([]byte, 0, 1+64+len(msg))
	tx = appendShortvecLen(tx, 1)
	tx = append(tx, sig...)
	tx = append(tx, msg...)

	return &TransferTransaction{
		Base64:    base64.StdEncoding.EncodeToString(tx),
		Signature: base58.Encode(sig),
	}, nil
}

// SignTransactionBase64 signs a base64-encoded unsigned legacy transaction
// in place: the message is signed by the signer and the signature written
// into the fee payer's slot. The transaction must expect exactly the
// signer's signature first.
func SignTransactionBase64(signer Signer, unsignedBase64 string) (*TransferTransaction, error) {
	raw, err := base64.StdEncoding.DecodeString(unsignedBase64)
	if err != nil {
		return nil, fmt.Errorf("decode unsigned transaction: %w", err)
	}

	sigCount, offset := readShortvecLen(raw)
	if offset == 0 || sigCount < 1 {
		return nil, fmt.Errorf("malformed transaction: bad signature count")
	}
	msgStart := offset + sigCount*64
	if len(raw) <= msgStart {
		return nil, fmt.Errorf("malformed transaction: truncated before message")
	}
	msg := raw[msgStart:]

	sig := signer.Sign(msg)
	copy(raw[offset:offset+64], sig)

	return &TransferTransaction{
		Base64:    base64.StdEncoding.EncodeToString(raw),
		Signature: base58.Encode(sig),
	}, nil
}

// readShortvecLen decodes a compact-u16 length prefix. Returns the value and
// the number of bytes consumed, or (0, 0) on malformed input.
func readShortvecLen(b []byte) (int, int) {
	v := 0
	for i := 0; i < 3 && i < len(b); i++ {
		v |= int(b[i]&0x7f) << (7 * i)
		if b[i]&0x80 == 0 {
			return v, i + 1
		}
	}
	return 0, 0
}

// buildTransferMessage serializes a legacy message with a single system
// transfer instruction. Account order: fee payer (signer, writable),
// recipient (writable), system program (readonly).
func buildTransferMessage(from, to string, lamports uint64, blockhash string) ([]byte, error) {
	fromBytes, err := base58.Decode(from)
	if err != nil || len(fromBytes) != 32 {
		return nil, fmt.Errorf("invalid sender address: %s", from)
	}
	toBytes, err := base58.Decode(to)
	if err != nil || len(toBytes) != 32 {
		return nil, fmt.Errorf("invalid recipient address: %s", to)
	}
	hashBytes, err := base58.Decode(blockhash)
	if err != nil || len(hashBytes) != 32 {
		return nil, fmt.Errorf("invalid blockhash: %s", blockhash)
	}
	programBytes, _ := base58.Decode(SystemProgramID)

	msg := make([]byte, 0, 3+1+3*32+32+1+1+1+2+1+12)

	// Header: 1 required signature, 0 readonly signed, 1 readonly unsigned.
	msg = append(msg, 1, 0, 1)

	// Account keys.
	msg = appendShortvecLen(msg, 3)
	msg = append(msg, fromBytes...)
	msg = append(msg, toBytes...)
	msg = append(msg, programBytes...)

	// Recent blockhash.
	msg = append(msg, hashBytes...)

	// Instruction data: u32 LE instruction index, u64 LE lamports.
	data := make([]byte, 12)
	binary.LittleEndian.PutUint32(data[0:4], systemTransferIndex)
	binary.LittleEndian.PutUint64(data[4:12], lamports)

	// One instruction: program index 2, accounts [0, 1].
	msg = appendShortvecLen(msg, 1)
	msg = append(msg, 2)
	msg = appendShortvecLen(msg, 2)
	msg = append(msg, 0, 1)
	msg = appendShortvecLen(msg, len(data))
	msg = append(msg, data...)

	return msg, nil
}

// appendShortvecLen appends a compact-u16 length prefix.
func appendShortvecLen(b []byte, n int) []byte {
	v := uint16(n)
	for {
		elem := byte(v & 0x7f)
		v >>= 7
		if v == 0 {
			return append(b, elem)
		}
		b = append(b, elem|0x80)
	}
}
