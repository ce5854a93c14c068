package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/satriahrh/asreval/domain/entities"
	"github.com/satriahrh/asreval/internal/auth"
	"github.com/satriahrh/asreval/internal/runs"
	"github.com/satriahrh/asreval/internal/websocket"
)

const claimsKey = "claims"

// RunController starts and inspects evaluation runs
type RunController interface {
	Start(ctx context.Context, date time.Time) (entities.Run, error)
	Get(id string) (runs.Status, bool)
	List() []runs.Status
}

// HistoryReader reads the recent history window
type HistoryReader interface {
	Window(ctx context.Context, now time.Time, days int) ([]entities.AggregateRecord, error)
}

// Handlers holds the dependencies of the operator API
type Handlers struct {
	Runs        RunController
	History     HistoryReader
	Signer      *auth.Signer
	Events      *websocket.Hub
	DefaultDays int
	Now         func() time.Time
	Logger      *zap.Logger
}

// InitRoutes initializes all API routes
func InitRoutes(e *echo.Echo, h *Handlers) {
	if h.Now == nil {
		h.Now = time.Now
	}

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"service": "asreval",
		})
	})

	// API v1 routes
	v1 := e.Group("/api/v1", h.requireRole(auth.RoleViewer, auth.RoleOperator))

	v1.GET("/history", h.getHistory)
	v1.GET("/runs", h.listRuns)
	v1.GET("/runs/:id", h.getRun)
	v1.POST("/runs", h.startRun, h.requireRole(auth.RoleOperator))
	if h.Events != nil {
		v1.GET("/runs/events", h.streamRuns)
	}
}

// streamRuns subscribes the caller to run lifecycle events
func (h *Handlers) streamRuns(c echo.Context) error {
	claims, _ := c.Get(claimsKey).(*auth.JWTClaims)
	subject := ""
	if claims != nil {
		subject = claims.Subject
	}
	h.Logger.Info("Run event subscription", zap.String("subject", subject))
	return websocket.HandleWebSocket(h.Events, c, subject, h.Logger)
}

// requireRole validates the bearer token and checks its role
func (h *Handlers) requireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			var token string
			authHeader := c.Request().Header.Get("Authorization")
			if strings.HasPrefix(authHeader, "Bearer ") {
				token = authHeader[7:]
			}

			if token == "" {
				return c.JSON(http.StatusUnauthorized, ErrorResponse{
					Error:   "missing_token",
					Message: "JWT token is required in Authorization header",
				})
			}

			claims, err := h.Signer.ValidateToken(token)
			if err != nil {
				h.Logger.Warn("Request rejected: invalid token", zap.Error(err))
				return c.JSON(http.StatusUnauthorized, ErrorResponse{
					Error:   "invalid_token",
					Message: "Invalid or expired JWT token",
				})
			}

			for _, role := range roles {
				if claims.Role == role {
					c.Set(claimsKey, claims)
					return next(c)
				}
			}

			h.Logger.Warn("Request rejected: invalid role",
				zap.String("role", claims.Role),
				zap.String("path", c.Path()))
			return c.JSON(http.StatusForbidden, ErrorResponse{
				Error:   "invalid_role",
				Message: "Token role is not allowed for this endpoint",
			})
		}
	}
}

func (h *Handlers) getHistory(c echo.Context) error {
	days := h.DefaultDays
	if raw := c.QueryParam("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "invalid_days",
				Message: "days must be a positive integer",
			})
		}
		days = n
	}

	records, err := h.History.Window(c.Request().Context(), h.Now(), days)
	if err != nil {
		h.Logger.Error("Failed to read history", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "history_unavailable",
			Message: "Failed to read evaluation history",
		})
	}
	if records == nil {
		records = []entities.AggregateRecord{}
	}
	return c.JSON(http.StatusOK, HistoryResponse{Days: days, Records: records})
}

func (h *Handlers) startRun(c echo.Context) error {
	var req StartRunRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}

	date, err := entities.ResolveRunDate(req.Date, h.Now())
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_date",
			Message: "date must be YYYY-MM-DD or default",
		})
	}

	run, err := h.Runs.Start(c.Request().Context(), date)
	if errors.Is(err, runs.ErrBusy) {
		return c.JSON(http.StatusConflict, ErrorResponse{
			Error:   "run_in_progress",
			Message: err.Error(),
		})
	}
	if err != nil {
		h.Logger.Error("Failed to start run", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "start_failed",
			Message: "Failed to start evaluation run",
		})
	}

	claims := c.Get(claimsKey).(*auth.JWTClaims)
	h.Logger.Info("Run started via API",
		zap.String("run_id", run.ID),
		zap.String("operator", claims.Subject))

	return c.JSON(http.StatusAccepted, StartRunResponse{
		RunID: run.ID,
		Date:  run.Date.Format(entities.DateLayout),
		State: string(run.State),
		At:    run.StartedAt,
	})
}

func (h *Handlers) getRun(c echo.Context) error {
	status, ok := h.Runs.Get(c.Param("id"))
	if !ok {
		return c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "Run not found",
		})
	}
	return c.JSON(http.StatusOK, status)
}

func (h *Handlers) listRuns(c echo.Context) error {
	return c.JSON(http.StatusOK, h.Runs.List())
}
