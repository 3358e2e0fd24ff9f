package oracle_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aurumchain/go-aurum/internal/core/oracle"
)

func TestRecordEqual(t *testing.T) {
	base := oracle.PricingRecord{
		Version:       2,
		Spot:          1_500_000_000_000,
		MovingAverage: 1_450_000_000_000,
		Timestamp:     1_700_000_000,
	}
	base.Signature[0] = 0x01
	base.Signature[oracle.SignatureSize-1] = 0xFF

	same := base
	require.True(t, base.Equal(&same))

	tests := []struct {
		name   string
		mutate func(*oracle.PricingRecord)
	}{
		{"version", func(r *oracle.PricingRecord) { r.Version++ }},
		{"spot", func(r *oracle.PricingRecord) { r.Spot++ }},
		{"moving average", func(r *oracle.PricingRecord) { r.MovingAverage++ }},
		{"timestamp", func(r *oracle.PricingRecord) { r.Timestamp++ }},
		{"signature first byte", func(r *oracle.PricingRecord) { r.Signature[0] ^= 0x80 }},
		{"signature last byte", func(r *oracle.PricingRecord) { r.Signature[oracle.SignatureSize-1] ^= 0x80 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			changed := base
			tc.mutate(&changed)
			require.False(t, base.Equal(&changed))
			require.False(t, changed.Equal(&base))
		})
	}
}

func TestRecordEmpty(t *testing.T) {
	var rec oracle.PricingRecord
	require.True(t, rec.Empty())

	t.Run("any numeric field set", func(t *testing.T) {
		for name, mutate := range map[string]func(*oracle.PricingRecord){
			"version":        func(r *oracle.PricingRecord) { r.Version = 1 },
			"spot":           func(r *oracle.PricingRecord) { r.Spot = 1 },
			"moving average": func(r *oracle.PricingRecord) { r.MovingAverage = 1 },
			"timestamp":      func(r *oracle.PricingRecord) { r.Timestamp = 1 },
		} {
			var r oracle.PricingRecord
			mutate(&r)
			require.False(t, r.Empty(), name)
		}
	})

	t.Run("signature alone set", func(t *testing.T) {
		var r oracle.PricingRecord
		r.Signature[17] = 0x01
		require.False(t, r.Empty())
	})
}

func TestRecordHasMissingRates(t *testing.T) {
	tests := []struct {
		name    string
		spot    uint64
		ma      uint64
		missing bool
	}{
		{"both zero", 0, 0, true},
		{"spot zero", 0, 5, true},
		{"moving average zero", 5, 0, true},
		{"both set", 5, 7, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := oracle.PricingRecord{Spot: tc.spot, MovingAverage: tc.ma}
			require.Equal(t, tc.missing, r.HasMissingRates())
		})
	}
}

func TestSupplyData(t *testing.T) {
	var zero oracle.SupplyData
	require.True(t, zero.Empty())

	s := oracle.SupplyData{CoinBurnt: 1, CoinMinted: 2, AssetBurnt: 3, AssetMinted: 4}
	require.False(t, s.Empty())

	same := s
	require.True(t, s.Equal(&same))

	same.AssetMinted++
	require.False(t, s.Equal(&same))
}

func TestAssetData(t *testing.T) {
	var zero oracle.AssetData
	require.True(t, zero.Empty())

	a := oracle.AssetData{AssetID: 9, Spot: 10, MovingAverage: 11}
	require.False(t, a.Empty())

	same := a
	require.True(t, a.Equal(&same))

	same.Spot = 0
	require.False(t, a.Equal(&same))
}
