package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/agentstake/psl/internal/analyzer"
	"github.com/agentstake/psl/internal/keys"
	"github.com/agentstake/psl/internal/ledger"
	"github.com/agentstake/psl/internal/logger"
	"github.com/agentstake/psl/internal/state"
	"github.com/agentstake/psl/internal/types"

	"github.com/gorilla/mux"
)

var webLogger = logger.GetForComponent("web_server")

// identityHeader carries the verified caller identity as a hex address.
// The authenticating proxy in front of this service sets it; the service
// itself never verifies signatures, it only compares identities.
const identityHeader = "X-Caller-Identity"

// Operations is the slice of the engine the web surface drives.
type Operations interface {
	InitializePool(agent types.Address) (*types.PoolState, error)
	Stake(owner, agent types.Address, amount uint64) (*types.StakeReceipt, error)
	ExecuteTrade(caller, agent types.Address, instruction types.TradeInstruction) (*types.TradeReceipt, error)
	Withdraw(owner, agent types.Address) (*types.WithdrawReceipt, error)
	CreditAccount(account types.Address, amount uint64) error

	PreviewStake(agent types.Address, amount uint64) (*types.StakePreview, error)
	PreviewTrade(agent types.Address, amountIn uint64) (*types.TradePreview, error)
	PreviewWithdraw(owner, agent types.Address) (*types.WithdrawPreview, error)

	ListPools() ([]types.PoolState, error)
	GetPoolOverview(agent types.Address) (*types.PoolOverview, error)
	GetPosition(owner, agent types.Address) (*types.Position, error)
	GetPoolPositions(agent types.Address) ([]types.Position, error)
	GetRecentSnapshots(agent types.Address, limit int) ([]types.PoolSnapshot, error)
	GetPoolDrift(agent types.Address) (*types.DriftReport, error)
	GetPoolOperations(agent types.Address, limit int) ([]types.OperationRecord, error)
	GetPoolOperationStats(agent types.Address) (*types.OperationStats, error)
	GetAccountBalance(account types.Address) (uint64, error)
}

// WebServer handles HTTP requests for pool operations and queries
type WebServer struct {
	router *mux.Router
	port   string
	ops    Operations
}

// NewWebServer creates a new web server instance
func NewWebServer(port string, ops Operations) *WebServer {
	if port == "" {
		port = "8080"
	}

	server := &WebServer{
		router: mux.NewRouter(),
		port:   port,
		ops:    ops,
	}

	server.setupRoutes()
	return server
}

// setupRoutes configures all HTTP routes
func (ws *WebServer) setupRoutes() {
	// Health endpoint (direct route)
	ws.router.HandleFunc("/health", ws.handleHealth).Methods("GET")

	// API endpoints
	api := ws.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", ws.handleHealth).Methods("GET")

	api.HandleFunc("/pools", ws.handleInitializePool).Methods("POST")
	api.HandleFunc("/pools", ws.handleListPools).Methods("GET")
	api.HandleFunc("/pools/{agent}", ws.handleGetPool).Methods("GET")
	api.HandleFunc("/pools/{agent}/stake", ws.handleStake).Methods("POST")
	api.HandleFunc("/pools/{agent}/trades", ws.handleExecuteTrade).Methods("POST")
	api.HandleFunc("/pools/{agent}/withdraw", ws.handleWithdraw).Methods("POST")
	api.HandleFunc("/pools/{agent}/positions", ws.handleGetPoolPositions).Methods("GET")
	api.HandleFunc("/pools/{agent}/positions/{owner}", ws.handleGetPosition).Methods("GET")
	api.HandleFunc("/pools/{agent}/snapshots", ws.handleGetSnapshots).Methods("GET")
	api.HandleFunc("/pools/{agent}/drift", ws.handleGetDrift).Methods("GET")
	api.HandleFunc("/pools/{agent}/operations", ws.handleGetOperations).Methods("GET")
	api.HandleFunc("/pools/{agent}/stats", ws.handleGetPoolStats).Methods("GET")
	api.HandleFunc("/pools/{agent}/preview/stake", ws.handlePreviewStake).Methods("GET")
	api.HandleFunc("/pools/{agent}/preview/trade", ws.handlePreviewTrade).Methods("GET")
	api.HandleFunc("/pools/{agent}/preview/withdraw/{owner}", ws.handlePreviewWithdraw).Methods("GET")

	api.HandleFunc("/accounts/{address}", ws.handleGetAccount).Methods("GET")
	api.HandleFunc("/accounts/{address}/credit", ws.handleCreditAccount).Methods("POST")

	// Add CORS middleware
	ws.router.Use(ws.corsMiddleware)
	ws.router.Use(ws.loggingMiddleware)
}

// Start starts the web server
func (ws *WebServer) Start() error {
	webLogger.Info().Str("port", ws.port).Msg("Starting web server")

	server := &http.Server{
		Addr:         ":" + ws.port,
		Handler:      ws.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return server.ListenAndServe()
}

// Router exposes the configured handler, mainly for tests.
func (ws *WebServer) Router() http.Handler {
	return ws.router
}

// handleHealth returns server health status
func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	dbHealthy := true
	if err := state.TestDBConnection(); err != nil {
		dbHealthy = false
	}

	overallStatus := "OK"
	statusCode := http.StatusOK
	if !dbHealthy {
		overallStatus = "DEGRADED"
		statusCode = http.StatusServiceUnavailable
	}

	response := map[string]interface{}{
		"status":    overallStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"system": map[string]interface{}{
			"version":          runtime.Version(),
			"goroutines_count": runtime.NumGoroutine(),
			"alloc_bytes":      memStats.Alloc,
			"sys_bytes":        memStats.Sys,
			"gc_cycles":        memStats.NumGC,
		},
		"component": map[string]interface{}{
			"name":    "psl-staking-ledger",
			"version": "1.0.0",
		},
		"database_healthy": dbHealthy,
	}

	ws.writeJSONResponse(w, statusCode, response)
}

// handleInitializePool creates a pool for the authenticated agent.
func (ws *WebServer) handleInitializePool(w http.ResponseWriter, r *http.Request) {
	agent, err := callerIdentity(r)
	if err != nil {
		ws.writeErrorResponse(w, http.StatusUnauthorized, err.Error())
		return
	}

	pool, err := ws.ops.InitializePool(agent)
	if err != nil {
		ws.writeOperationError(w, err)
		return
	}

	response := map[string]interface{}{
		"address": keys.PoolAddress(agent),
		"pool":    pool,
	}
	ws.writeJSONResponse(w, http.StatusCreated, response)
}

// handleListPools returns every pool record.
func (ws *WebServer) handleListPools(w http.ResponseWriter, r *http.Request) {
	pools, err := ws.ops.ListPools()
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to list pools")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve pools")
		return
	}

	response := map[string]interface{}{
		"pools": pools,
		"count": len(pools),
	}
	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetPool returns one pool with its live vault balance.
func (ws *WebServer) handleGetPool(w http.ResponseWriter, r *http.Request) {
	agent, err := pathAddress(r, "agent")
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid agent address")
		return
	}

	overview, err := ws.ops.GetPoolOverview(agent)
	if err != nil {
		ws.writeOperationError(w, err)
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, overview)
}

type stakeRequest struct {
	Amount uint64 `json:"amount"`
}

// handleStake stakes the authenticated caller's funds into a pool.
func (ws *WebServer) handleStake(w http.ResponseWriter, r *http.Request) {
	owner, err := callerIdentity(r)
	if err != nil {
		ws.writeErrorResponse(w, http.StatusUnauthorized, err.Error())
		return
	}
	agent, err := pathAddress(r, "agent")
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid agent address")
		return
	}

	var req stakeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	receipt, err := ws.ops.Stake(owner, agent, req.Amount)
	if err != nil {
		ws.writeOperationError(w, err)
		return
	}

	ws.writeJSONResponse(w, http.StatusCreated, receipt)
}

type tradeRequest struct {
	AmountIn     uint64        `json:"amount_in"`
	MinAmountOut uint64        `json:"min_amount_out"`
	SideAVault   types.Address `json:"side_a_vault"`
	SideBVault   types.Address `json:"side_b_vault"`
	AmmPool      types.Address `json:"amm_pool"`
}

// handleExecuteTrade submits a pool trade for the authenticated agent.
func (ws *WebServer) handleExecuteTrade(w http.ResponseWriter, r *http.Request) {
	caller, err := callerIdentity(r)
	if err != nil {
		ws.writeErrorResponse(w, http.StatusUnauthorized, err.Error())
		return
	}
	agent, err := pathAddress(r, "agent")
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid agent address")
		return
	}

	var req tradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	receipt, err := ws.ops.ExecuteTrade(caller, agent, types.TradeInstruction{
		AmountIn:     req.AmountIn,
		MinAmountOut: req.MinAmountOut,
		SideAVault:   req.SideAVault,
		SideBVault:   req.SideBVault,
		AmmPool:      req.AmmPool,
	})
	if err != nil {
		ws.writeOperationError(w, err)
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, receipt)
}

// handleWithdraw closes the authenticated caller's position.
func (ws *WebServer) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	owner, err := callerIdentity(r)
	if err != nil {
		ws.writeErrorResponse(w, http.StatusUnauthorized, err.Error())
		return
	}
	agent, err := pathAddress(r, "agent")
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid agent address")
		return
	}

	receipt, err := ws.ops.Withdraw(owner, agent)
	if err != nil {
		ws.writeOperationError(w, err)
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, receipt)
}

// handleGetPoolPositions returns all open positions in a pool.
func (ws *WebServer) handleGetPoolPositions(w http.ResponseWriter, r *http.Request) {
	agent, err := pathAddress(r, "agent")
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid agent address")
		return
	}

	positions, err := ws.ops.GetPoolPositions(agent)
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to list pool positions")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve positions")
		return
	}

	response := map[string]interface{}{
		"positions": positions,
		"count":     len(positions),
	}
	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetPosition returns one owner's open position in a pool.
func (ws *WebServer) handleGetPosition(w http.ResponseWriter, r *http.Request) {
	agent, err := pathAddress(r, "agent")
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid agent address")
		return
	}
	owner, err := pathAddress(r, "owner")
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid owner address")
		return
	}

	position, err := ws.ops.GetPosition(owner, agent)
	if err != nil {
		ws.writeOperationError(w, err)
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, position)
}

// handleGetSnapshots returns recent periodic observations of a pool.
func (ws *WebServer) handleGetSnapshots(w http.ResponseWriter, r *http.Request) {
	agent, err := pathAddress(r, "agent")
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid agent address")
		return
	}

	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil && parsedLimit > 0 && parsedLimit <= 100 {
			limit = parsedLimit
		}
	}

	snapshots, err := ws.ops.GetRecentSnapshots(agent, limit)
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get pool snapshots")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve snapshots")
		return
	}

	response := map[string]interface{}{
		"snapshots": snapshots,
		"count":     len(snapshots),
		"limit":     limit,
	}
	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetDrift returns the drift report over a pool's recent snapshots.
func (ws *WebServer) handleGetDrift(w http.ResponseWriter, r *http.Request) {
	agent, err := pathAddress(r, "agent")
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid agent address")
		return
	}

	report, err := ws.ops.GetPoolDrift(agent)
	if errors.Is(err, analyzer.ErrInsufficientData) {
		ws.writeErrorResponse(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to compute drift report")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to compute drift report")
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, report)
}

// handleGetOperations returns recent audit log entries for a pool.
func (ws *WebServer) handleGetOperations(w http.ResponseWriter, r *http.Request) {
	agent, err := pathAddress(r, "agent")
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid agent address")
		return
	}

	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil && parsedLimit > 0 && parsedLimit <= 100 {
			limit = parsedLimit
		}
	}

	operations, err := ws.ops.GetPoolOperations(agent, limit)
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get pool operations")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve operations")
		return
	}

	response := map[string]interface{}{
		"operations": operations,
		"count":      len(operations),
		"limit":      limit,
	}
	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetPoolStats returns aggregated audit log figures for a pool.
func (ws *WebServer) handleGetPoolStats(w http.ResponseWriter, r *http.Request) {
	agent, err := pathAddress(r, "agent")
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid agent address")
		return
	}

	stats, err := ws.ops.GetPoolOperationStats(agent)
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get pool operation stats")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve stats")
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, stats)
}

// handlePreviewStake rehearses a stake against current pool records.
func (ws *WebServer) handlePreviewStake(w http.ResponseWriter, r *http.Request) {
	agent, err := pathAddress(r, "agent")
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid agent address")
		return
	}
	amount, err := queryAmount(r, "amount")
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid amount parameter")
		return
	}

	preview, err := ws.ops.PreviewStake(agent, amount)
	if err != nil {
		ws.writeOperationError(w, err)
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, preview)
}

// handlePreviewTrade rehearses a trade sizing against current pool records.
func (ws *WebServer) handlePreviewTrade(w http.ResponseWriter, r *http.Request) {
	agent, err := pathAddress(r, "agent")
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid agent address")
		return
	}
	amountIn, err := queryAmount(r, "amount_in")
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid amount_in parameter")
		return
	}

	preview, err := ws.ops.PreviewTrade(agent, amountIn)
	if err != nil {
		ws.writeOperationError(w, err)
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, preview)
}

// handlePreviewWithdraw rehearses closing a position against the vault's
// live balance.
func (ws *WebServer) handlePreviewWithdraw(w http.ResponseWriter, r *http.Request) {
	agent, err := pathAddress(r, "agent")
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid agent address")
		return
	}
	owner, err := pathAddress(r, "owner")
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid owner address")
		return
	}

	preview, err := ws.ops.PreviewWithdraw(owner, agent)
	if err != nil {
		ws.writeOperationError(w, err)
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, preview)
}

// handleGetAccount returns a custody account's live balance.
func (ws *WebServer) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	account, err := pathAddress(r, "address")
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid account address")
		return
	}

	balance, err := ws.ops.GetAccountBalance(account)
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to read account balance")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve balance")
		return
	}

	response := map[string]interface{}{
		"address": account,
		"balance": balance,
	}
	ws.writeJSONResponse(w, http.StatusOK, response)
}

type creditRequest struct {
	Amount uint64 `json:"amount"`
}

// handleCreditAccount books an external deposit into a custody account.
func (ws *WebServer) handleCreditAccount(w http.ResponseWriter, r *http.Request) {
	account, err := pathAddress(r, "address")
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid account address")
		return
	}

	var req creditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Amount == 0 {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Credit amount must be positive")
		return
	}

	if err := ws.ops.CreditAccount(account, req.Amount); err != nil {
		webLogger.Error().Err(err).Msg("Failed to credit account")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to credit account")
		return
	}

	response := map[string]interface{}{
		"address":  account,
		"credited": req.Amount,
	}
	ws.writeJSONResponse(w, http.StatusOK, response)
}

// callerIdentity extracts the verified caller identity from the request.
func callerIdentity(r *http.Request) (types.Address, error) {
	raw := r.Header.Get(identityHeader)
	if raw == "" {
		return types.Address{}, fmt.Errorf("missing %s header", identityHeader)
	}
	identity, err := types.AddressFromHex(raw)
	if err != nil {
		return types.Address{}, fmt.Errorf("invalid %s header: %w", identityHeader, err)
	}
	return identity, nil
}

// pathAddress decodes a hex address from a route variable.
func pathAddress(r *http.Request, name string) (types.Address, error) {
	return types.AddressFromHex(mux.Vars(r)[name])
}

// queryAmount parses a required uint64 query parameter.
func queryAmount(r *http.Request, name string) (uint64, error) {
	return strconv.ParseUint(r.URL.Query().Get(name), 10, 64)
}

// writeOperationError maps an operation failure to an HTTP status.
func (ws *WebServer) writeOperationError(w http.ResponseWriter, err error) {
	ws.writeErrorResponse(w, httpStatusForError(err), err.Error())
}

// httpStatusForError translates the operation error kinds to HTTP codes.
func httpStatusForError(err error) int {
	switch {
	case errors.Is(err, ledger.ErrPoolNotFound), errors.Is(err, ledger.ErrPositionNotFound):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrPoolExists), errors.Is(err, ledger.ErrPositionExists):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrInsufficientFunds), errors.Is(err, ledger.ErrPoolPaused):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, ledger.ErrRaydium):
		return http.StatusBadGateway
	case errors.Is(err, ledger.ErrStakeTooSmall),
		errors.Is(err, ledger.ErrInvalidShare),
		errors.Is(err, ledger.ErrShareTooSmall),
		errors.Is(err, ledger.ErrTradeSizeTooLarge),
		errors.Is(err, ledger.ErrStakeDurationNotMet),
		errors.Is(err, ledger.ErrDustAmount),
		errors.Is(err, ledger.ErrMathOverflow):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// writeJSONResponse writes a JSON response
func (ws *WebServer) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		webLogger.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeErrorResponse writes an error response
func (ws *WebServer) writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	response := map[string]interface{}{
		"error":     true,
		"message":   message,
		"timestamp": time.Now().UTC(),
	}

	ws.writeJSONResponse(w, statusCode, response)
}

// corsMiddleware adds CORS headers
func (ws *WebServer) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+identityHeader)

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests
func (ws *WebServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Create a response writer wrapper to capture status code
		wrapper := &responseWriterWrapper{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		duration := time.Since(start)

		webLogger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote_addr", r.RemoteAddr).
			Int("status", wrapper.statusCode).
			Dur("duration", duration).
			Msg("HTTP request")
	})
}

// responseWriterWrapper wraps http.ResponseWriter to capture status code
type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriterWrapper) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
