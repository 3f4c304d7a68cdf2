/*
Package swap submits pool trades to a Raydium-style swap venue over
JSON-RPC. The client is deliberately thin: it carries no sizing or
authorization logic, reports rejections verbatim, and leaves
classification to the accounting core.
*/
package swap

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/agentstake/psl/internal/config"
	"github.com/agentstake/psl/internal/ledger"
	"github.com/agentstake/psl/internal/logger"
	"github.com/agentstake/psl/internal/types"
)

// Error definitions for zero-tolerance error handling
var (
	ErrInvalidEndpoint  = errors.New("venue endpoint is invalid")
	ErrRPCRequestFailed = errors.New("RPC request failed")
	ErrInvalidResponse  = errors.New("response data is invalid")
	ErrSwapRejected     = errors.New("swap rejected by venue")
)

var swapLogger = logger.GetForComponent("swap_client")

// JSONRPCRequest defines the structure of a JSON-RPC request.
type JSONRPCRequest struct {
	JSONRPC string     `json:"jsonrpc"`
	ID      int        `json:"id"`
	Method  string     `json:"method"`
	Params  SwapParams `json:"params"`
}

// SwapParams defines the parameters for the "executeSwap" method.
type SwapParams struct {
	Program      string `json:"program"`
	PoolVault    string `json:"pool_vault"`
	SideAVault   string `json:"side_a_vault"`
	SideBVault   string `json:"side_b_vault"`
	AmmPool      string `json:"amm_pool"`
	AmountIn     uint64 `json:"amount_in"`
	MinAmountOut uint64 `json:"min_amount_out"`
}

// JSONRPCResponse defines the structure of a JSON-RPC response.
type JSONRPCResponse struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Result  *SwapResult   `json:"result,omitempty"`
	Error   *JSONRPCError `json:"error,omitempty"`
}

// SwapResult defines the structure of the "result" field for "executeSwap".
type SwapResult struct {
	Signature string `json:"signature"`
	AmountOut uint64 `json:"amount_out"`
}

// JSONRPCError defines the structure of a JSON-RPC error.
type JSONRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data,omitempty"`
}

// Client is a JSON-RPC client for the swap venue.
type Client struct {
	endpoint   string
	programID  string
	httpClient *http.Client
}

// The accounting core delegates trades through this client.
var _ ledger.SwapExecutor = (*Client)(nil)

// NewClient creates a venue client for the given JSON-RPC endpoint.
func NewClient(endpoint string) (*Client, error) {
	if endpoint == "" {
		return nil, errors.Join(ErrInvalidEndpoint, errors.New("endpoint is empty"))
	}

	return &Client{
		endpoint:  endpoint,
		programID: config.RaydiumProgramID,
		httpClient: &http.Client{
			Timeout: time.Duration(config.VenueTimeoutSeconds) * time.Second,
		},
	}, nil
}

// Swap submits one swap from the pool vault and waits for the venue's
// verdict. A non-nil return means the swap did not settle; the venue
// guarantees no partial execution.
func (c *Client) Swap(poolVault types.Address, instruction types.TradeInstruction) error {
	request := JSONRPCRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "executeSwap",
		Params: SwapParams{
			Program:      c.programID,
			PoolVault:    poolVault.String(),
			SideAVault:   instruction.SideAVault.String(),
			SideBVault:   instruction.SideBVault.String(),
			AmmPool:      instruction.AmmPool.String(),
			AmountIn:     instruction.AmountIn,
			MinAmountOut: instruction.MinAmountOut,
		},
	}

	jsonData, err := json.Marshal(request)
	if err != nil {
		return errors.Join(ErrRPCRequestFailed, fmt.Errorf("failed to marshal swap request: %w", err))
	}

	req, err := http.NewRequest("POST", c.endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		swapLogger.Error().Err(err).Str("endpoint", c.endpoint).Msg("Failed to create HTTP request")
		return errors.Join(ErrRPCRequestFailed, fmt.Errorf("failed to create HTTP request: %w", err))
	}

	// Set headers
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	swapLogger.Debug().
		Str("endpoint", c.endpoint).
		Str("poolVault", poolVault.String()).
		Uint64("amountIn", instruction.AmountIn).
		Uint64("minAmountOut", instruction.MinAmountOut).
		Msg("Submitting swap to venue")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		swapLogger.Error().Err(err).Str("endpoint", c.endpoint).Msg("Failed to execute HTTP request")
		return errors.Join(ErrRPCRequestFailed, fmt.Errorf("failed to execute HTTP request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.Join(ErrRPCRequestFailed, fmt.Errorf("HTTP request failed with status: %d %s", resp.StatusCode, resp.Status))
	}

	respBodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		swapLogger.Error().Err(err).Msg("Failed to read RPC response body")
		return errors.Join(ErrRPCRequestFailed, fmt.Errorf("failed to read response body: %w", err))
	}

	if len(respBodyBytes) == 0 {
		return errors.Join(ErrInvalidResponse, errors.New("response body is empty"))
	}

	var response JSONRPCResponse
	if err := json.Unmarshal(respBodyBytes, &response); err != nil {
		return errors.Join(ErrInvalidResponse, fmt.Errorf("failed to unmarshal RPC response: %w", err))
	}

	if response.Error != nil {
		return errors.Join(ErrSwapRejected, fmt.Errorf("venue error %d: %s", response.Error.Code, response.Error.Message))
	}

	if response.Result == nil || response.Result.Signature == "" {
		return errors.Join(ErrInvalidResponse, errors.New("venue returned no settlement signature"))
	}

	swapLogger.Info().
		Str("signature", response.Result.Signature).
		Uint64("amountIn", instruction.AmountIn).
		Uint64("amountOut", response.Result.AmountOut).
		Msg("Swap settled")

	return nil
}
