package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"runtime"
	"strconv"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/gorilla/mux"

	"github.com/elys-network/staking-ledger/internal/ledger"
	"github.com/elys-network/staking-ledger/internal/logger"
	"github.com/elys-network/staking-ledger/internal/state"
)

var webLogger = logger.GetForComponent("web_server")

// WebServer exposes the ledger's operations and read surface over HTTP.
// Caller identity is taken from the URL path; authentication is assumed to
// have happened upstream of this handler.
type WebServer struct {
	router *mux.Router
	port   string
	engine *ledger.Engine
}

// NewWebServer creates a new web server instance
func NewWebServer(port string, engine *ledger.Engine) *WebServer {
	if port == "" {
		port = "8080"
	}

	server := &WebServer{
		router: mux.NewRouter(),
		port:   port,
		engine: engine,
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
	api.HandleFunc("/pool", ws.handleGetPool).Methods("GET")
	api.HandleFunc("/positions", ws.handleGetPositions).Methods("GET")
	api.HandleFunc("/positions/{owner}", ws.handleGetPosition).Methods("GET")
	api.HandleFunc("/positions/{owner}/reward", ws.handlePreviewReward).Methods("GET")
	api.HandleFunc("/positions/{owner}/stake", ws.handleStake).Methods("POST")
	api.HandleFunc("/positions/{owner}/claim", ws.handleClaim).Methods("POST")
	api.HandleFunc("/positions/{owner}/unstake", ws.handleUnstake).Methods("POST")
	api.HandleFunc("/receipts", ws.handleGetReceipts).Methods("GET")

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

// handleHealth returns server health status
func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	_, poolInitialized := ws.engine.Pool()

	dbHealthy := true
	if err := state.TestDBConnection(); err != nil {
		dbHealthy = false
	}

	overallStatus := "OK"
	statusCode := http.StatusOK
	if !dbHealthy || !poolInitialized {
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
			"name":    "staking-ledger",
			"version": "1.0.0",
		},
		"ledger_status": map[string]interface{}{
			"database_healthy": dbHealthy,
			"pool_initialized": poolInitialized,
			"live_positions":   len(ws.engine.Positions()),
		},
	}

	ws.writeJSONResponse(w, statusCode, response)
}

// handleGetPool returns the pool configuration
func (ws *WebServer) handleGetPool(w http.ResponseWriter, r *http.Request) {
	pool, ok := ws.engine.Pool()
	if !ok {
		ws.writeErrorResponse(w, http.StatusNotFound, "Pool is not initialized")
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, pool)
}

// handleGetPositions returns all live positions
func (ws *WebServer) handleGetPositions(w http.ResponseWriter, r *http.Request) {
	positions := ws.engine.Positions()
	response := map[string]interface{}{
		"positions": positions,
		"count":     len(positions),
	}
	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetPosition returns a single owner's position
func (ws *WebServer) handleGetPosition(w http.ResponseWriter, r *http.Request) {
	owner := mux.Vars(r)["owner"]
	pos, ok := ws.engine.Position(owner)
	if !ok {
		ws.writeErrorResponse(w, http.StatusNotFound, "Position not found")
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, pos)
}

// handlePreviewReward returns the reward a claim would issue right now.
// Read-only and safe to retry, unlike the mutating operations.
func (ws *WebServer) handlePreviewReward(w http.ResponseWriter, r *http.Request) {
	owner := mux.Vars(r)["owner"]
	reward, err := ws.engine.PreviewReward(owner)
	if err != nil {
		ws.writeLedgerError(w, err)
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"owner":          owner,
		"pending_reward": reward.String(),
	})
}

// stakeRequest is the body of a stake call. The amount is a base-10 integer
// string so browser JSON number precision never truncates it.
type stakeRequest struct {
	Amount string `json:"amount"`
}

// handleStake deposits base asset into the caller's position
func (ws *WebServer) handleStake(w http.ResponseWriter, r *http.Request) {
	owner := mux.Vars(r)["owner"]

	var req stakeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	amount, ok := sdkmath.NewIntFromString(req.Amount)
	if !ok {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Amount must be a base-10 integer string")
		return
	}

	pos, origin, err := ws.engine.Stake(owner, amount)
	if err != nil {
		ws.writeLedgerError(w, err)
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"position": pos,
		"origin":   origin,
	})
}

// handleClaim settles and issues the caller's pending reward
func (ws *WebServer) handleClaim(w http.ResponseWriter, r *http.Request) {
	owner := mux.Vars(r)["owner"]

	reward, err := ws.engine.Claim(owner)
	if err != nil {
		ws.writeLedgerError(w, err)
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"owner":         owner,
		"reward_issued": reward.String(),
	})
}

// handleUnstake returns the caller's full staked amount
func (ws *WebServer) handleUnstake(w http.ResponseWriter, r *http.Request) {
	owner := mux.Vars(r)["owner"]

	returned, err := ws.engine.Unstake(owner)
	if err != nil {
		ws.writeLedgerError(w, err)
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"owner":           owner,
		"amount_returned": returned.String(),
	})
}

// handleGetReceipts returns recent operation receipts
func (ws *WebServer) handleGetReceipts(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil && parsedLimit > 0 && parsedLimit <= 100 {
			limit = parsedLimit
		}
	}

	var err error
	var receipts interface{}
	if owner := r.URL.Query().Get("owner"); owner != "" {
		receipts, err = state.GetReceiptsForOwner(owner, limit)
	} else {
		receipts, err = state.GetRecentReceipts(limit)
	}
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get receipts")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve receipts")
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"receipts": receipts,
	})
}

// writeLedgerError maps the ledger error taxonomy onto HTTP status codes.
func (ws *WebServer) writeLedgerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrInvalidAmount):
		ws.writeErrorResponse(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ledger.ErrNoStakedBalance):
		ws.writeErrorResponse(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ledger.ErrAlreadyInitialized),
		errors.Is(err, ledger.ErrInsufficientBalance):
		ws.writeErrorResponse(w, http.StatusConflict, err.Error())
	case errors.Is(err, ledger.ErrUnauthorized):
		ws.writeErrorResponse(w, http.StatusForbidden, err.Error())
	case errors.Is(err, ledger.ErrPoolNotInitialized):
		ws.writeErrorResponse(w, http.StatusServiceUnavailable, err.Error())
	default:
		// ErrOverflow lands here deliberately: it signals a configuration
		// problem, not something the caller can fix by retrying.
		webLogger.Error().Err(err).Msg("Ledger operation failed")
		ws.writeErrorResponse(w, http.StatusInternalServerError, err.Error())
	}
}

// writeJSONResponse writes a JSON response with the given status code
func (ws *WebServer) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		webLogger.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeErrorResponse writes a JSON error response
func (ws *WebServer) writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	ws.writeJSONResponse(w, statusCode, map[string]interface{}{
		"error":     message,
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
	})
}

// corsMiddleware adds CORS headers to responses
func (ws *WebServer) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

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
