package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/gamedev-cards/internal/domain"
	"github.com/gamedev-cards/internal/explorer"
	"github.com/gamedev-cards/internal/games"
	"github.com/gamedev-cards/internal/service"
	"github.com/gamedev-cards/internal/websocket"
)

// PortfolioAPI serves dashboards and public portfolios
type PortfolioAPI interface {
	Dashboard(ctx context.Context, address string) (*service.Dashboard, error)
	Games(ctx context.Context, address string) ([]domain.Game, error)
	PublicPortfolio(ctx context.Context, username string) (*service.Portfolio, error)
	ShareURL(username string) string
	ClearCache(ctx context.Context, address string) error
}

// ExplorerAPI serves the Space Explorer
type ExplorerAPI interface {
	Explore(ctx context.Context, req service.ExploreRequest) (*service.ExploreResult, error)
	Top(ctx context.Context, n int, q explorer.Query) ([]domain.DirectoryEntry, error)
}

// TransactionAPI builds wallet calls and tracks their outcome
type TransactionAPI interface {
	CreateProfile(ctx context.Context, req service.CreateProfileRequest) (*games.Staged, error)
	AddGame(ctx context.Context, req service.AddGameRequest) (*games.Staged, error)
	UpdateGame(ctx context.Context, gameID string, req service.UpdateGameRequest) (*games.Staged, error)
	RemoveGame(ctx context.Context, address, gameID string) (*games.Staged, error)
	ReportOutcome(ctx context.Context, opID string, outcome domain.TransactionOutcome) (*domain.PendingOperation, error)
	Pending(ctx context.Context, address string) ([]domain.PendingOperation, error)
	Reconcile(ctx context.Context, address string) ([]domain.PendingOperation, error)
}

// Pinger is a dependency checked by the readiness check
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler provides HTTP handlers for the GameDev Cards API
type Handler struct {
	portfolio    PortfolioAPI
	explorer     ExplorerAPI
	transactions TransactionAPI
	hub          *websocket.Hub
	checks       map[string]Pinger
	logger       *slog.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(
	portfolio PortfolioAPI,
	explorer ExplorerAPI,
	transactions TransactionAPI,
	hub *websocket.Hub,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		portfolio:    portfolio,
		explorer:     explorer,
		transactions: transactions,
		hub:          hub,
		checks:       make(map[string]Pinger),
		logger:       logger,
	}
}

// AddReadinessCheck registers a dependency for /ready
func (h *Handler) AddReadinessCheck(name string, p Pinger) {
	h.checks[name] = p
}

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Router creates and configures the HTTP router
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(corsMiddleware)

	// Health check
	r.Get("/health", h.HealthCheck)
	r.Get("/ready", h.ReadyCheck)

	// WebSocket endpoint
	r.Get("/ws", h.HandleWebSocket)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/profiles/{address}", func(r chi.Router) {
			r.Get("/", h.GetDashboard)
			r.Delete("/cache", h.ClearCache)
			r.Get("/games", h.ListGames)
			r.Get("/share", h.GetShareURL)
		})

		r.Get("/portfolio/{username}", h.GetPortfolio)

		r.Get("/explorer", h.Explore)
		r.Get("/explorer/top", h.GetTop)

		r.Route("/transactions", func(r chi.Router) {
			r.Post("/profile", h.CreateProfile)
			r.Post("/games", h.AddGame)
			r.Put("/games/{gameID}", h.UpdateGame)
			r.Delete("/games/{gameID}", h.RemoveGame)
			r.Post("/{opID}/outcome", h.ReportOutcome)
			r.Get("/pending/{address}", h.ListPending)
			r.Post("/reconcile/{address}", h.Reconcile)
		})

		// WebSocket info endpoint
		r.Get("/ws/stats", h.GetWebSocketStats)
	})

	return r
}

// corsMiddleware adds CORS headers
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-Request-ID")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Warn("failed to encode response", "error", err)
	}
}

// writeSuccess writes a successful JSON response
func (h *Handler) writeSuccess(w http.ResponseWriter, data any) {
	h.writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    data,
	})
}

// writeError writes an error JSON response
func (h *Handler) writeError(w http.ResponseWriter, status int, err error) {
	h.writeJSON(w, status, APIResponse{
		Success: false,
		Error:   err.Error(),
	})
}

// writeServiceError maps a service error onto a status code. Anything that is
// not a caller mistake is logged and hidden behind a generic message.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error, action string) {
	switch {
	case domain.IsNotFoundError(err):
		h.writeError(w, http.StatusNotFound, err)
	case errors.Is(err, domain.ErrOperationSettled):
		h.writeError(w, http.StatusConflict, err)
	case domain.IsValidationError(err):
		h.writeError(w, http.StatusBadRequest, err)
	default:
		h.logger.Error("request failed", "action", action, "error", err)
		h.writeError(w, http.StatusInternalServerError, domain.ErrInternalError)
	}
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return false
	}
	return true
}

// HandleWebSocket handles WebSocket upgrade requests
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.ServeWs(h.hub, h.logger, w, r)
}

// GetWebSocketStats returns WebSocket connection statistics
func (h *Handler) GetWebSocketStats(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, map[string]int{
		"total_connections":  h.hub.TotalConnections(),
		"explorer_listeners": h.hub.SubscriberCount(websocket.TopicExplorer),
	})
}

// HealthCheck returns service health status
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, map[string]string{"status": "healthy"})
}

// ReadyCheck pings every registered dependency
func (h *Handler) ReadyCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	for name, p := range h.checks {
		if err := p.Ping(ctx); err != nil {
			h.logger.Warn("readiness check failed", "dependency", name, "error", err)
			h.writeError(w, http.StatusServiceUnavailable, fmt.Errorf("%s unavailable", name))
			return
		}
	}
	h.writeSuccess(w, map[string]string{"status": "ready"})
}

// GetDashboard returns the profile, games and level of a wallet
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")

	d, err := h.portfolio.Dashboard(r.Context(), address)
	if err != nil {
		h.writeServiceError(w, err, "get dashboard")
		return
	}
	if d.Profile == nil {
		h.writeError(w, http.StatusNotFound, domain.ErrProfileNotFound)
		return
	}

	h.writeSuccess(w, d)
}

// ClearCache drops the cached snapshots of a wallet
func (h *Handler) ClearCache(w http.ResponseWriter, r *http.Request) {
	if err := h.portfolio.ClearCache(r.Context(), chi.URLParam(r, "address")); err != nil {
		h.writeServiceError(w, err, "clear cache")
		return
	}
	h.writeSuccess(w, map[string]string{"status": "cleared"})
}

// ListGames returns the games of a wallet
func (h *Handler) ListGames(w http.ResponseWriter, r *http.Request) {
	list, err := h.portfolio.Games(r.Context(), chi.URLParam(r, "address"))
	if err != nil {
		h.writeServiceError(w, err, "list games")
		return
	}
	h.writeSuccess(w, list)
}

// GetShareURL returns the public portfolio link of a wallet
func (h *Handler) GetShareURL(w http.ResponseWriter, r *http.Request) {
	d, err := h.portfolio.Dashboard(r.Context(), chi.URLParam(r, "address"))
	if err != nil {
		h.writeServiceError(w, err, "get share url")
		return
	}
	if d.Profile == nil {
		h.writeError(w, http.StatusNotFound, domain.ErrProfileNotFound)
		return
	}
	h.writeSuccess(w, map[string]string{
		"username": d.Profile.Username,
		"url":      d.ShareURL,
	})
}

// GetPortfolio returns the public portfolio of a username
func (h *Handler) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	p, err := h.portfolio.PublicPortfolio(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		h.writeServiceError(w, err, "get portfolio")
		return
	}
	h.writeSuccess(w, p)
}

// Explore returns the laid out explorer view
func (h *Handler) Explore(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	query, err := parseQuery(q)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}
	key, dir, err := explorer.ParseSort(q.Get("sort"), q.Get("order"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	req := service.ExploreRequest{
		Query: query,
		Sort:  key,
		Order: dir,
	}
	if s := q.Get("seed"); s != "" {
		seed, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
			return
		}
		req.Seed = seed
	}

	res, err := h.explorer.Explore(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, err, "explore")
		return
	}
	h.writeSuccess(w, res)
}

// parseQuery reads the q, level and tags parameters
func parseQuery(q url.Values) (explorer.Query, error) {
	level, err := explorer.ParseLevelRange(q.Get("level"))
	if err != nil {
		return explorer.Query{}, err
	}
	return explorer.Query{
		Text:  strings.TrimSpace(q.Get("q")),
		Level: level,
		Tags:  splitTags(q.Get("tags")),
	}, nil
}

func splitTags(raw string) []string {
	var tags []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// GetTop returns the highest-level developers, optionally narrowed by the
// explorer's q, level and tags parameters
func (h *Handler) GetTop(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}
	query, err := parseQuery(r.URL.Query())
	if err != nil {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	entries, err := h.explorer.Top(r.Context(), limit, query)
	if err != nil {
		h.writeServiceError(w, err, "get top")
		return
	}
	h.writeSuccess(w, entries)
}

// CreateProfile stages a profile creation call
func (h *Handler) CreateProfile(w http.ResponseWriter, r *http.Request) {
	var req service.CreateProfileRequest
	if !h.decode(w, r, &req) {
		return
	}

	staged, err := h.transactions.CreateProfile(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, err, "create profile")
		return
	}
	h.writeJSON(w, http.StatusCreated, APIResponse{Success: true, Data: staged})
}

// AddGame stages an add_game call
func (h *Handler) AddGame(w http.ResponseWriter, r *http.Request) {
	var req service.AddGameRequest
	if !h.decode(w, r, &req) {
		return
	}

	staged, err := h.transactions.AddGame(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, err, "add game")
		return
	}
	h.writeJSON(w, http.StatusCreated, APIResponse{Success: true, Data: staged})
}

// UpdateGame stages an update_game call
func (h *Handler) UpdateGame(w http.ResponseWriter, r *http.Request) {
	var req service.UpdateGameRequest
	if !h.decode(w, r, &req) {
		return
	}

	staged, err := h.transactions.UpdateGame(r.Context(), chi.URLParam(r, "gameID"), req)
	if err != nil {
		h.writeServiceError(w, err, "update game")
		return
	}
	h.writeJSON(w, http.StatusCreated, APIResponse{Success: true, Data: staged})
}

// RemoveGame stages a remove_game call
func (h *Handler) RemoveGame(w http.ResponseWriter, r *http.Request) {
	address := r.URL.Query().Get("address")
	staged, err := h.transactions.RemoveGame(r.Context(), address, chi.URLParam(r, "gameID"))
	if err != nil {
		h.writeServiceError(w, err, "remove game")
		return
	}
	h.writeJSON(w, http.StatusCreated, APIResponse{Success: true, Data: staged})
}

// ReportOutcome records the wallet result of an operation
func (h *Handler) ReportOutcome(w http.ResponseWriter, r *http.Request) {
	var outcome domain.TransactionOutcome
	if !h.decode(w, r, &outcome) {
		return
	}

	op, err := h.transactions.ReportOutcome(r.Context(), chi.URLParam(r, "opID"), outcome)
	if err != nil {
		h.writeServiceError(w, err, "report outcome")
		return
	}
	h.writeSuccess(w, op)
}

// ListPending returns the ledger entries of a wallet
func (h *Handler) ListPending(w http.ResponseWriter, r *http.Request) {
	ops, err := h.transactions.Pending(r.Context(), chi.URLParam(r, "address"))
	if err != nil {
		h.writeServiceError(w, err, "list pending")
		return
	}
	h.writeSuccess(w, ops)
}

// Reconcile settles what it can of a wallet's pending operations
func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	changed, err := h.transactions.Reconcile(r.Context(), chi.URLParam(r, "address"))
	if err != nil {
		h.writeServiceError(w, err, "reconcile")
		return
	}
	h.writeSuccess(w, map[string]any{
		"changed": changed,
	})
}
