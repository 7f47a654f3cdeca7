package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"pharmacy-ops/internal/models"
	"pharmacy-ops/internal/service"
	"pharmacy-ops/internal/util"
	"pharmacy-ops/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// SessionHeader carries the token returned by login
const SessionHeader = "X-Session-Token"

const sessionKey = "session"

// Deps are the services the handlers call
type Deps struct {
	Catalog  *service.Catalog
	Roster   *service.Roster
	Ledger   *service.Ledger
	Checkout *service.Checkout
	Shifts   *service.ShiftManager
	Auth     *service.Authenticator
	Actor    *worker.Actor
	Logger   *zap.Logger
}

// Handler contains HTTP handlers. Every handler that touches domain state runs
// its work as a command on the actor.
type Handler struct {
	catalog  *service.Catalog
	roster   *service.Roster
	ledger   *service.Ledger
	checkout *service.Checkout
	shifts   *service.ShiftManager
	auth     *service.Authenticator
	actor    *worker.Actor
	logger   *zap.Logger
	ready    atomic.Bool
}

// NewHandler creates a new HTTP handler
func NewHandler(deps Deps) *Handler {
	return &Handler{
		catalog:  deps.Catalog,
		roster:   deps.Roster,
		ledger:   deps.Ledger,
		checkout: deps.Checkout,
		shifts:   deps.Shifts,
		auth:     deps.Auth,
		actor:    deps.Actor,
		logger:   util.LoggerOr(deps.Logger),
	}
}

// SetReady flips the readiness probe
func (h *Handler) SetReady(ready bool) {
	h.ready.Store(ready)
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	v1.POST("/login", h.login)

	authed := v1.Group("")
	authed.Use(h.sessionMiddleware())
	{
		authed.POST("/logout", h.logout)

		authed.GET("/products", h.listProducts)
		authed.POST("/products", h.createProduct)
		authed.GET("/products/:id", h.getProduct)
		authed.PATCH("/products/:id", h.editProduct)
		authed.DELETE("/products/:id", h.removeProduct)
		authed.POST("/products/:id/adjust", h.adjustProduct)

		authed.GET("/customers", h.listCustomers)
		authed.POST("/customers", h.createCustomer)
		authed.GET("/customers/:id", h.getCustomer)

		authed.GET("/orders", h.listOrders)
		authed.POST("/orders", h.openOrder)
		authed.GET("/orders/:id", h.getOrder)
		authed.DELETE("/orders/:id", h.discardOrder)
		authed.POST("/orders/:id/lines", h.addLine)
		authed.DELETE("/orders/:id/lines/:productId", h.removeLine)
		authed.POST("/orders/:id/complete", h.completeOrder)

		authed.GET("/shift", h.getShift)
		authed.POST("/shift/end", h.endShift)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck reports ready once the data files are loaded
func (h *Handler) readinessCheck(c *gin.Context) {
	if !h.ready.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "loading",
			"time":   time.Now().Unix(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// login handles operator authentication
func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}

	session, err := h.auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

// logout ends the caller's session
func (h *Handler) logout(c *gin.Context) {
	if err := h.auth.Logout(c.Request.Context(), currentSession(c).Token); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// sessionMiddleware rejects requests without a live session
func (h *Handler) sessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		session, err := h.auth.Validate(c.Request.Context(), c.GetHeader(SessionHeader))
		if err != nil {
			h.writeError(c, err)
			c.Abort()
			return
		}
		c.Set(sessionKey, session)
		c.Next()
	}
}

func currentSession(c *gin.Context) *service.Session {
	if v, ok := c.Get(sessionKey); ok {
		if s, ok := v.(*service.Session); ok {
			return s
		}
	}
	return &service.Session{Username: models.UnknownOperator}
}

// do runs fn as a command on the actor
func (h *Handler) do(c *gin.Context, fn func(ctx context.Context) error) error {
	return h.actor.Do(c.Request.Context(), fn)
}

// writeError maps domain errors to HTTP statuses
func (h *Handler) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrProductNotFound),
		errors.Is(err, models.ErrCustomerNotFound),
		errors.Is(err, models.ErrOrderNotFound):
		status = http.StatusNotFound
	case errors.Is(err, models.ErrInsufficientStock),
		errors.Is(err, models.ErrOrderNotPending):
		status = http.StatusConflict
	case errors.Is(err, models.ErrInvalidCredentials),
		errors.Is(err, models.ErrSessionNotFound):
		status = http.StatusUnauthorized
	case models.IsBusinessError(err):
		status = http.StatusBadRequest
	case errors.Is(err, worker.ErrStopped),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		status = http.StatusServiceUnavailable
	}

	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
	}

	body := gin.H{"error": err.Error()}
	var reopened *models.ReopenedError
	if errors.As(err, &reopened) {
		body["reopened_as"] = reopened.ReopenedAs
	}
	c.JSON(status, body)
}

func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return false
	}
	return true
}

func parseID(c *gin.Context, param string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(param), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid " + param,
		})
		return 0, false
	}
	return id, true
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
