package swap

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agentstake/psl/internal/config"
	"github.com/agentstake/psl/internal/types"
)

func testInstruction() (types.Address, types.TradeInstruction) {
	var vault, sideA, sideB, amm types.Address
	vault[0], sideA[0], sideB[0], amm[0] = 0x01, 0x02, 0x03, 0x04

	return vault, types.TradeInstruction{
		AmountIn:     388_000_000,
		MinAmountOut: 370_000_000,
		SideAVault:   sideA,
		SideBVault:   sideB,
		AmmPool:      amm,
	}
}

func TestNewClientRejectsEmptyEndpoint(t *testing.T) {
	_, err := NewClient("")
	require.ErrorIs(t, err, ErrInvalidEndpoint)
}

func TestSwapSubmitsExecuteSwapRequest(t *testing.T) {
	vault, instruction := testInstruction()

	var received JSONRPCRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		json.NewEncoder(w).Encode(JSONRPCResponse{
			JSONRPC: "2.0",
			ID:      received.ID,
			Result:  &SwapResult{Signature: "5ig", AmountOut: 371_000_000},
		})
	}))
	defer server.Close()

	client, err := NewClient(server.URL)
	require.NoError(t, err)

	require.NoError(t, client.Swap(vault, instruction))

	require.Equal(t, "2.0", received.JSONRPC)
	require.Equal(t, "executeSwap", received.Method)
	require.Equal(t, config.RaydiumProgramID, received.Params.Program)
	require.Equal(t, vault.String(), received.Params.PoolVault)
	require.Equal(t, instruction.SideAVault.String(), received.Params.SideAVault)
	require.Equal(t, instruction.SideBVault.String(), received.Params.SideBVault)
	require.Equal(t, instruction.AmmPool.String(), received.Params.AmmPool)
	require.Equal(t, instruction.AmountIn, received.Params.AmountIn)
	require.Equal(t, instruction.MinAmountOut, received.Params.MinAmountOut)
}

func TestSwapVenueRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(JSONRPCResponse{
			JSONRPC: "2.0",
			ID:      1,
			Error:   &JSONRPCError{Code: -32000, Message: "slippage exceeded"},
		})
	}))
	defer server.Close()

	client, err := NewClient(server.URL)
	require.NoError(t, err)

	vault, instruction := testInstruction()
	err = client.Swap(vault, instruction)
	require.ErrorIs(t, err, ErrSwapRejected)
	require.ErrorContains(t, err, "slippage exceeded")
}

func TestSwapHTTPFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "venue down", http.StatusInternalServerError)
	}))
	defer server.Close()

	client, err := NewClient(server.URL)
	require.NoError(t, err)

	vault, instruction := testInstruction()
	require.ErrorIs(t, client.Swap(vault, instruction), ErrRPCRequestFailed)
}

func TestSwapUnreachableEndpoint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // nothing is listening anymore

	client, err := NewClient(server.URL)
	require.NoError(t, err)

	vault, instruction := testInstruction()
	require.ErrorIs(t, client.Swap(vault, instruction), ErrRPCRequestFailed)
}

func TestSwapMalformedResponses(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "empty body", body: ""},
		{name: "not JSON", body: "pong"},
		{name: "result without signature", body: `{"jsonrpc":"2.0","id":1,"result":{"signature":"","amount_out":1}}`},
		{name: "neither result nor error", body: `{"jsonrpc":"2.0","id":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client, err := NewClient(server.URL)
			require.NoError(t, err)

			vault, instruction := testInstruction()
			require.ErrorIs(t, client.Swap(vault, instruction), ErrInvalidResponse)
		})
	}
}
