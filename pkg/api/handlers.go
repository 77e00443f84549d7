package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"stockdrop/pkg/auth"
	"stockdrop/pkg/external"
	"stockdrop/pkg/health"
	"stockdrop/pkg/markets"
	"stockdrop/pkg/monitoring"
	"stockdrop/pkg/screener"
	"stockdrop/pkg/settings"

	"github.com/gin-gonic/gin"
)

// defaultLimit is the result count used when a query does not specify one
const defaultLimit = 50

// defaultThreshold is the minimum absolute percent change used when a query
// does not specify one
const defaultThreshold = 5.0

// ScreenerRunner runs one filtered, ranked market query
type ScreenerRunner interface {
	Run(ctx context.Context, c screener.Criteria) (*screener.Result, error)
}

// OverviewService serves market overview snapshots
type OverviewService interface {
	Overview(ctx context.Context) *markets.Snapshot
	Refresh(ctx context.Context) *markets.Snapshot
}

// AccountService handles sign-up, sign-in and password resets
type AccountService interface {
	SignUp(ctx context.Context, email, password string) (*auth.User, error)
	SignIn(ctx context.Context, email, password string) (*auth.User, string, error)
	RequestPasswordReset(ctx context.Context, email string) (string, error)
	ResetPassword(ctx context.Context, token, newPassword string) error
}

// Handlers contains all HTTP handlers for the API
type Handlers struct {
	pipeline      ScreenerRunner
	markets       OverviewService
	auth          AccountService
	settings      *settings.Store
	healthChecker *health.HealthChecker
	metrics       *monitoring.MetricsCollector
}

// NewHandlers creates a new instance of API handlers
func NewHandlers(
	pipeline ScreenerRunner,
	marketsService OverviewService,
	authService AccountService,
	settingsStore *settings.Store,
	healthChecker *health.HealthChecker,
	metrics *monitoring.MetricsCollector,
) *Handlers {
	return &Handlers{
		pipeline:      pipeline,
		markets:       marketsService,
		auth:          authService,
		settings:      settingsStore,
		healthChecker: healthChecker,
		metrics:       metrics,
	}
}

// Health reports the health of the service and its dependencies
func (h *Handlers) Health(c *gin.Context) {
	healthStatus := h.healthChecker.CheckHealth(c.Request.Context())

	status := http.StatusOK
	if healthStatus.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, healthStatus)
}

// GetMetrics returns collected runtime metrics
func (h *Handlers) GetMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, h.metrics.GetMetrics())
}

// GetLosers returns today's biggest losers matching the query parameters
func (h *Handlers) GetLosers(c *gin.Context) {
	h.runRankedQuery(c, screener.ModeLoss)
}

// GetGainers returns today's biggest gainers matching the query parameters
func (h *Handlers) GetGainers(c *gin.Context) {
	h.runRankedQuery(c, screener.ModeGain)
}

// runRankedQuery answers each request with the result computed for its own
// criteria. The generation token travels in the response so stateful callers
// can discard answers their own newer request has superseded.
func (h *Handlers) runRankedQuery(c *gin.Context, mode screener.Mode) {
	criteria, err := criteriaFromQuery(c, mode)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.pipeline.Run(c.Request.Context(), criteria)
	if err != nil {
		h.respondFetchError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// RunScreener runs a fully custom query supplied in the request body
func (h *Handlers) RunScreener(c *gin.Context) {
	var criteria screener.Criteria
	if err := c.ShouldBindJSON(&criteria); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request format",
			"details": err.Error(),
		})
		return
	}
	if criteria.Limit == 0 {
		criteria.Limit = defaultLimit
	}
	if err := criteria.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.pipeline.Run(c.Request.Context(), criteria)
	if err != nil {
		h.respondFetchError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// MarketsOverview returns the cached index, commodity, sector and
// market-hours snapshot
func (h *Handlers) MarketsOverview(c *gin.Context) {
	c.JSON(http.StatusOK, h.markets.Overview(c.Request.Context()))
}

// MarketHours returns open/close information for the major exchanges. A
// successfully fetched empty section is served as-is; only a recorded fetch
// failure makes the section unavailable.
func (h *Handlers) MarketHours(c *gin.Context) {
	snapshot := h.markets.Overview(c.Request.Context())
	if _, failed := snapshot.Errors["market_hours"]; failed {
		c.JSON(http.StatusBadGateway, gin.H{
			"error": "market hours are currently unavailable",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"market_hours": snapshot.Hours})
}

// GetSectors returns the aggregate daily performance per sector
func (h *Handlers) GetSectors(c *gin.Context) {
	snapshot := h.markets.Overview(c.Request.Context())
	if _, failed := snapshot.Errors["sectors"]; failed {
		c.JSON(http.StatusBadGateway, gin.H{
			"error": "sector performance is currently unavailable",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sectors": snapshot.Sectors})
}

// BrowseSector returns the biggest movers within one sector
func (h *Handlers) BrowseSector(c *gin.Context) {
	sector := c.Param("sector")
	if sector == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "sector is required"})
		return
	}

	criteria, err := criteriaFromQuery(c, screener.ModeBoth)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	criteria.Sector = sector
	if c.Query("threshold") == "" {
		criteria.Threshold = 0
	}

	result, err := h.pipeline.Run(c.Request.Context(), criteria)
	if err != nil {
		h.respondFetchError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Auth request/response models
type credentialsRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

type resetRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type resetConfirmRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8"`
}

// SignUp registers a new account
func (h *Handlers) SignUp(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request format",
			"details": err.Error(),
		})
		return
	}

	user, err := h.auth.SignUp(c.Request.Context(), strings.ToLower(req.Email), req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrEmailTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Sign up failed"})
		return
	}

	c.JSON(http.StatusCreated, user)
}

// SignIn checks credentials and returns an access token
func (h *Handlers) SignIn(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request format",
			"details": err.Error(),
		})
		return
	}

	user, token, err := h.auth.SignIn(c.Request.Context(), strings.ToLower(req.Email), req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Sign in failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":  user,
		"token": token,
	})
}

// RequestPasswordReset issues a reset token for the account. The response is
// identical whether or not the email is registered.
func (h *Handlers) RequestPasswordReset(c *gin.Context) {
	var req resetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request format",
			"details": err.Error(),
		})
		return
	}

	if _, err := h.auth.RequestPasswordReset(c.Request.Context(), strings.ToLower(req.Email)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Password reset failed"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"message": "If the email is registered, a reset link has been sent",
	})
}

// ResetPassword consumes a reset token and installs the new password
func (h *Handlers) ResetPassword(c *gin.Context) {
	var req resetConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request format",
			"details": err.Error(),
		})
		return
	}

	if err := h.auth.ResetPassword(c.Request.Context(), req.Token, req.NewPassword); err != nil {
		if errors.Is(err, auth.ErrInvalidResetToken) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Password reset failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password updated"})
}

// GetSettings returns the authenticated user's settings
func (h *Handlers) GetSettings(c *gin.Context) {
	userID := c.GetString(contextUserID)

	userSettings, err := h.settings.Get(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load settings"})
		return
	}

	c.JSON(http.StatusOK, userSettings)
}

// GetTheme returns the user's theme preference from the cache when possible,
// so clients can apply it before the full settings load resolves.
func (h *Handlers) GetTheme(c *gin.Context) {
	userID := c.GetString(contextUserID)

	if theme := h.settings.CachedTheme(c.Request.Context(), userID); theme != "" {
		c.JSON(http.StatusOK, gin.H{"theme": theme})
		return
	}

	userSettings, err := h.settings.Get(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load settings"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"theme": userSettings.Theme})
}

// UpdateSettings upserts the authenticated user's settings
func (h *Handlers) UpdateSettings(c *gin.Context) {
	userID := c.GetString(contextUserID)

	var req struct {
		NotificationThreshold float64 `json:"notification_threshold" binding:"gte=0"`
		Theme                 string  `json:"theme" binding:"required,oneof=light dark system"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request format",
			"details": err.Error(),
		})
		return
	}

	userSettings := settings.Settings{
		UserID:                userID,
		NotificationThreshold: req.NotificationThreshold,
		Theme:                 req.Theme,
	}
	if err := h.settings.Upsert(c.Request.Context(), userSettings); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save settings"})
		return
	}

	c.JSON(http.StatusOK, userSettings)
}

// respondFetchError maps the provider error taxonomy onto HTTP statuses:
// configuration errors are the operator's problem (503), provider failures
// are upstream problems (502).
func (h *Handlers) respondFetchError(c *gin.Context, err error) {
	var fetchErr *external.FetchError
	var decodeErr *external.DecodeError

	switch {
	case errors.Is(err, external.ErrMissingAPIKey):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	case errors.As(err, &fetchErr), errors.As(err, &decodeErr):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// criteriaFromQuery builds filter criteria from query parameters shared by
// the ranked list endpoints.
func criteriaFromQuery(c *gin.Context, mode screener.Mode) (screener.Criteria, error) {
	criteria := screener.Criteria{
		Mode:      mode,
		Threshold: defaultThreshold,
		Limit:     defaultLimit,
		Sector:    c.Query("sector"),
		Industry:  c.Query("industry"),
		Exchange:  c.Query("exchange"),
		Country:   c.Query("country"),
	}

	if v := c.Query("threshold"); v != "" {
		threshold, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return criteria, errors.New("threshold must be a number")
		}
		criteria.Threshold = threshold
	}
	if v := c.Query("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			return criteria, errors.New("limit must be an integer")
		}
		criteria.Limit = limit
	}
	if v := c.Query("price_min"); v != "" {
		price, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return criteria, errors.New("price_min must be a number")
		}
		criteria.PriceMin = &price
	}
	if v := c.Query("price_max"); v != "" {
		price, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return criteria, errors.New("price_max must be a number")
		}
		criteria.PriceMax = &price
	}
	if v := c.Query("market_cap_min"); v != "" {
		marketCap, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return criteria, errors.New("market_cap_min must be a number")
		}
		criteria.MarketCapMin = &marketCap
	}
	if v := c.Query("volume_min"); v != "" {
		volume, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return criteria, errors.New("volume_min must be an integer")
		}
		criteria.VolumeMin = &volume
	}

	if err := criteria.Validate(); err != nil {
		return criteria, err
	}
	return criteria, nil
}
