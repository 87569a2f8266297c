package amm

import (
	"encoding/json"
	"fmt"
)

// The AMM service's response shapes have drifted across deployments. The
// parsers below accept every shape seen in the wild and fail closed on
// anything unrecognized rather than guessing at a zero.

// claimableEnvelope covers the observed claimable response shapes:
//
//	{"claimableAmount": 123}
//	{"amount": 123}
//	{"lamports": "123"}
type claimableEnvelope struct {
	ClaimableAmount json.RawMessage `json:"claimableAmount"`
	Amount          json.RawMessage `json:"amount"`
	Lamports        json.RawMessage `json:"lamports"`
}

// parseClaimableResponse extracts the claimable lamport amount.
func parseClaimableResponse(body []byte) (int64, error) {
	var env claimableEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return 0, fmt.Errorf("parse claimable response: %w", err)
	}

	for _, raw := range []json.RawMessage{env.ClaimableAmount, env.Amount, env.Lamports} {
		if raw == nil {
			continue
		}
		if n, ok := jsonNumber(raw); ok {
			return n, nil
		}
	}

	return 0, fmt.Errorf("claimable response missing amount field: %s", truncate(body, 200))
}

// claimEnvelope covers the observed claim response shapes:
//
//	{"amount": 123, "signature": "..."}
//	{"claimedAmount": 123, "txSignature": "..."}
//	{"lamports": "123", "tx_ref": "..."}
//	{"amount": 123, "unsignedTransaction": "<base64>"}
//	{"amount": 123, "transaction": "<base64>"}
type claimEnvelope struct {
	Amount        json.RawMessage `json:"amount"`
	ClaimedAmount json.RawMessage `json:"claimedAmount"`
	Lamports      json.RawMessage `json:"lamports"`

	Signature   string `json:"signature"`
	TxSignature string `json:"txSignature"`
	TxRef       string `json:"tx_ref"`

	UnsignedTransaction string `json:"unsignedTransaction"`
	Transaction         string `json:"transaction"`
}

// parseClaimResponse extracts the claimed amount and either a transaction
// reference or an unsigned transaction. A zero amount with neither is a
// valid no-op (the pool was already drained); a positive amount with
// neither is rejected.
func parseClaimResponse(body []byte) (*ClaimResult, error) {
	var env claimEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("parse claim response: %w", err)
	}

	var amount int64
	found := false
	for _, raw := range []json.RawMessage{env.Amount, env.ClaimedAmount, env.Lamports} {
		if raw == nil {
			continue
		}
		if n, ok := jsonNumber(raw); ok {
			amount = n
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("claim response missing amount field: %s", truncate(body, 200))
	}

	txRef := env.Signature
	if txRef == "" {
		txRef = env.TxSignature
	}
	if txRef == "" {
		txRef = env.TxRef
	}

	unsigned := env.UnsignedTransaction
	if unsigned == "" {
		unsigned = env.Transaction
	}

	if amount > 0 && txRef == "" && unsigned == "" {
		return nil, fmt.Errorf("claim response has amount %d but no transaction reference or unsigned transaction: %s", amount, truncate(body, 200))
	}

	return &ClaimResult{Amount: amount, TxRef: txRef, UnsignedTxBase64: unsigned}, nil
}
