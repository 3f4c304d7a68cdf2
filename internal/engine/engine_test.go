package engine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agentstake/psl/internal/ledger"
	"github.com/agentstake/psl/internal/types"
)

type noopVenue struct{}

func (noopVenue) Swap(types.Address, types.TradeInstruction) error { return nil }

func TestNewEngineValidation(t *testing.T) {
	core, err := ledger.New(ledger.Config{Venue: noopVenue{}})
	require.NoError(t, err)

	treasury := types.Address{31: 0x01}

	_, err = NewEngine(Config{FeeTreasury: treasury})
	require.Error(t, err, "engine without a ledger must be rejected")

	_, err = NewEngine(Config{Ledger: core})
	require.Error(t, err, "engine without a fee treasury must be rejected")

	engine, err := NewEngine(Config{Ledger: core, FeeTreasury: treasury})
	require.NoError(t, err)
	require.NotNil(t, engine)
}
