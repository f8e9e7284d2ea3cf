package parser

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wnt/mychain-dash/internal/models"
)

func TestDecodeTxResult(t *testing.T) {
	t.Run("broadcast envelope", func(t *testing.T) {
		tx, err := DecodeTxResult([]byte(`{"tx_response": {
			"height": "0", "txhash": "AB12", "code": 0, "raw_log": "[]",
			"gas_wanted": "200000", "gas_used": 0
		}}`))
		require.NoError(t, err)
		assert.Equal(t, "AB12", tx.TxHash)
		assert.True(t, tx.Success())
		assert.Equal(t, "200000", tx.GasWanted)
		assert.Equal(t, "0", tx.GasUsed)
	})

	t.Run("bare response with hash", func(t *testing.T) {
		tx, err := DecodeTxResult([]byte(`{"hash": "FF", "code": 13, "height": 42, "raw_log": "insufficient fee"}`))
		require.NoError(t, err)
		assert.Equal(t, "FF", tx.TxHash)
		assert.Equal(t, uint32(13), tx.Code)
		assert.EqualValues(t, 42, tx.Height)
		assert.False(t, tx.Success())
	})

	t.Run("missing code is a failed transaction", func(t *testing.T) {
		tx, err := DecodeTxResult([]byte(`{"txhash": "A", "raw_log": "out of gas"}`))
		require.NoError(t, err)
		assert.Equal(t, "A", tx.TxHash)
		assert.Equal(t, models.CodeUnknown, tx.Code)
		assert.False(t, tx.Success())
	})

	tests := []struct {
		name string
		raw  string
		kind DecodeKind
	}{
		{"empty", "   ", KindEmpty},
		{"null", "null", KindEmpty},
		{"null envelope", `{"tx_response": null}`, KindEmpty},
		{"syntax", `{"code": 0`, KindSyntax},
		{"array", `[{"code": 0}]`, KindShape},
		{"envelope not object", `{"tx_response": "x"}`, KindShape},
		{"code wrong type", `{"code": "zero"}`, KindShape},
		{"logs wrong type", `{"code": 0, "logs": {}}`, KindShape},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeTxResult([]byte(tt.raw))
			var decodeErr *DecodeError
			require.True(t, errors.As(err, &decodeErr), "got %v", err)
			assert.Equal(t, tt.kind, decodeErr.Kind)
		})
	}
}
