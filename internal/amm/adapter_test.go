package amm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClaimableResponse(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int64
	}{
		{"claimableAmount number", `{"claimableAmount": 123456}`, 123456},
		{"amount number", `{"amount": 999}`, 999},
		{"lamports string", `{"lamports": "5000000"}`, 5000000},
		{"zero claimable", `{"claimableAmount": 0}`, 0},
		{"prefers claimableAmount", `{"claimableAmount": 10, "amount": 20}`, 10},
		{"extra fields ignored", `{"amount": 7, "pool": "p1", "ts": 1700000000}`, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseClaimableResponse([]byte(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseClaimableResponse_FailsClosed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty object", `{}`},
		{"unknown field only", `{"value": 42}`},
		{"non-numeric string", `{"amount": "lots"}`},
		{"not json", `oops`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseClaimableResponse([]byte(tt.body))
			assert.Error(t, err)
		})
	}
}

func TestParseClaimResponse(t *testing.T) {
	tests := []struct {
		name         string
		body         string
		wantAmount   int64
		wantTxRef    string
		wantUnsigned string
	}{
		{
			"amount and signature",
			`{"amount": 1000, "signature": "sig111"}`,
			1000, "sig111", "",
		},
		{
			"claimedAmount and txSignature",
			`{"claimedAmount": 2500, "txSignature": "sig222"}`,
			2500, "sig222", "",
		},
		{
			"lamports string and tx_ref",
			`{"lamports": "750", "tx_ref": "sig333"}`,
			750, "sig333", "",
		},
		{
			"unsignedTransaction delegation",
			`{"amount": 900, "unsignedTransaction": "dW5zaWduZWQ="}`,
			900, "", "dW5zaWduZWQ=",
		},
		{
			"transaction field delegation",
			`{"amount": 800, "transaction": "dHgtYnl0ZXM="}`,
			800, "", "dHgtYnl0ZXM=",
		},
		{
			"zero amount no-op without reference",
			`{"amount": 0}`,
			0, "", "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseClaimResponse([]byte(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.wantAmount, got.Amount)
			assert.Equal(t, tt.wantTxRef, got.TxRef)
			assert.Equal(t, tt.wantUnsigned, got.UnsignedTxBase64)
		})
	}
}

func TestParseClaimResponse_FailsClosed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing amount", `{"signature": "sig111"}`},
		{"positive amount without reference", `{"amount": 500}`},
		{"not json", `<html>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseClaimResponse([]byte(tt.body))
			assert.Error(t, err)
		})
	}
}
