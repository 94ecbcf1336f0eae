package facade

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/brandotp/numberdesk/internal/auth"
	"github.com/brandotp/numberdesk/internal/gateway"
	"github.com/brandotp/numberdesk/internal/history"
	"github.com/brandotp/numberdesk/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// SessionController drives the purchase lifecycle.
type SessionController interface {
	Purchase(ctx context.Context, serviceID, countryID int) (session.Snapshot, error)
	Cancel(ctx context.Context) (session.Snapshot, error)
	Snapshot() session.Snapshot
	RefreshBalance(ctx context.Context)
}

// CatalogReader serves country and service lists.
type CatalogReader interface {
	Countries(ctx context.Context) ([]gateway.Country, error)
	Services(ctx context.Context, countryID int) ([]gateway.Service, error)
}

// WalletService handles balance and top-up orders.
type WalletService interface {
	Balance(ctx context.Context) (float64, error)
	CreateTopUp(ctx context.Context, mobile string, amount float64) (*gateway.TopUpOrder, error)
	CheckPayment(ctx context.Context, orderID string) (*gateway.PaymentStatus, error)
}

// HistoryReader serves finished sessions.
type HistoryReader interface {
	Records() []history.Record
	Summarize() history.Summary
}

// Authenticator exchanges credentials for a bearer token.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (string, error)
	Signup(ctx context.Context, username, email, password string) error
}

// Handler is the local HTTP control surface over the purchase agent. It
// plays the role the browser page played: one client, one live session.
type Handler struct {
	controller SessionController
	catalog    CatalogReader
	wallet     WalletService
	hist       HistoryReader
	authn      Authenticator
	tokens     auth.Store
	logger     *logrus.Logger
}

func NewHandler(
	controller SessionController,
	catalog CatalogReader,
	wallet WalletService,
	hist HistoryReader,
	authn Authenticator,
	tokens auth.Store,
	logger *logrus.Logger,
) *Handler {
	return &Handler{
		controller: controller,
		catalog:    catalog,
		wallet:     wallet,
		hist:       hist,
		authn:      authn,
		tokens:     tokens,
		logger:     logger,
	}
}

// Router builds the gin engine with all routes registered.
func (h *Handler) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", h.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		api.POST("/auth/login", h.Login)
		api.POST("/auth/signup", h.Signup)
		api.POST("/auth/logout", h.Logout)

		api.GET("/catalog/countries", h.Countries)
		api.GET("/catalog/services", h.Services)

		api.POST("/session/purchase", h.Purchase)
		api.GET("/session", h.Session)
		api.POST("/session/cancel", h.Cancel)

		api.GET("/wallet/balance", h.Balance)
		api.POST("/wallet/topup", h.CreateTopUp)
		api.GET("/wallet/topup/status", h.TopUpStatus)

		api.GET("/history", h.History)
		api.GET("/history/summary", h.HistorySummary)
	}

	return router
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (h *Handler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, err := h.authn.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.respondError(c, err)
		return
	}

	if err := h.tokens.Set(token); err != nil {
		h.logger.Errorf("Failed to store token: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) Signup(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.authn.Signup(c.Request.Context(), req.Username, req.Email, req.Password); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) Logout(c *gin.Context) {
	if err := h.tokens.Clear(); err != nil {
		h.logger.Errorf("Failed to clear token: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to clear token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) Countries(c *gin.Context) {
	countries, err := h.catalog.Countries(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"countries": countries})
}

func (h *Handler) Services(c *gin.Context) {
	countryID := 0
	if raw := c.Query("country_id"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "country_id must be an integer"})
			return
		}
		countryID = parsed
	}

	services, err := h.catalog.Services(c.Request.Context(), countryID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"services": services})
}

func (h *Handler) Purchase(c *gin.Context) {
	var req struct {
		ServiceID int `json:"service_id" binding:"required"`
		CountryID int `json:"country_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	snap, err := h.controller.Purchase(c.Request.Context(), req.ServiceID, req.CountryID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, snap)
}

func (h *Handler) Session(c *gin.Context) {
	c.JSON(http.StatusOK, h.controller.Snapshot())
}

func (h *Handler) Cancel(c *gin.Context) {
	snap, err := h.controller.Cancel(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h *Handler) Balance(c *gin.Context) {
	balance, err := h.wallet.Balance(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"balance": balance})
}

func (h *Handler) CreateTopUp(c *gin.Context) {
	var req struct {
		Mobile string  `json:"mobile" binding:"required"`
		Amount float64 `json:"amount" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := h.wallet.CreateTopUp(c.Request.Context(), req.Mobile, req.Amount)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *Handler) TopUpStatus(c *gin.Context) {
	status, err := h.wallet.CheckPayment(c.Request.Context(), c.Query("order_id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (h *Handler) History(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"sessions": h.hist.Records()})
}

func (h *Handler) HistorySummary(c *gin.Context) {
	c.JSON(http.StatusOK, h.hist.Summarize())
}

// respondError maps domain errors onto HTTP statuses. Remote error detail is
// passed through verbatim so the caller sees what the marketplace said.
func (h *Handler) respondError(c *gin.Context, err error) {
	var valErr *gateway.ValidationError
	var gwErr *gateway.GatewayError
	var purchaseErr *gateway.PurchaseError
	var finalizedErr *gateway.AlreadyFinalizedError

	switch {
	case errors.Is(err, gateway.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not logged in"})
	case errors.Is(err, session.ErrNoActiveSession):
		c.JSON(http.StatusNotFound, gin.H{"error": "no active session"})
	case errors.Is(err, session.ErrAlreadyFinalized):
		c.JSON(http.StatusConflict, gin.H{"error": "session already finalized"})
	case errors.As(err, &finalizedErr):
		c.JSON(http.StatusConflict, gin.H{"error": finalizedErr.Detail})
	case errors.As(err, &valErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": valErr.Error()})
	case errors.As(err, &purchaseErr):
		c.JSON(http.StatusBadGateway, gin.H{"error": purchaseErr.Reason})
	case errors.As(err, &gwErr):
		c.JSON(gwErr.StatusCode, gin.H{"error": gwErr.Detail})
	default:
		h.logger.Errorf("Request failed: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	}
}
