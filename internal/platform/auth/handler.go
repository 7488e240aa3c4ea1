package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

type SessionHandler struct {
	gate     *Gate
	sessions *Sessions
	logger   zerolog.Logger
}

func NewSessionHandler(gate *Gate, sessions *Sessions, logger zerolog.Logger) *SessionHandler {
	return &SessionHandler{gate: gate, sessions: sessions, logger: logger}
}

// RegisterRoutes mounts the gate on api. RequireSession must skip the POST
// (see AuthSkipper); GET and DELETE need a session.
func (h *SessionHandler) RegisterRoutes(api *echo.Group) {
	api.POST("/session", h.Unlock)
	api.GET("/session", h.Status)
	api.DELETE("/session", h.SignOut)
}

type unlockRequest struct {
	Password string `json:"password"`
}

type SessionResponse struct {
	State     GateState  `json:"state"`
	Token     string     `json:"token,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Message   string     `json:"message,omitempty"`
}

func (h *SessionHandler) Unlock(c echo.Context) error {
	var req unlockRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	state, err := h.gate.Submit(Locked, req.Password)
	if errors.Is(err, ErrIncorrectPassword) {
		h.logger.Info().Str("remote_ip", c.RealIP()).Msg("gate submission rejected")
		return c.JSON(http.StatusUnauthorized, SessionResponse{State: state, Message: err.Error()})
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	token, exp, err := h.sessions.Issue()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "could not issue session")
	}
	return c.JSON(http.StatusOK, SessionResponse{State: state, Token: token, ExpiresAt: &exp})
}

func (h *SessionHandler) Status(c echo.Context) error {
	resp := SessionResponse{State: Unlocked}
	if exp, ok := c.Get("session_expires_at").(time.Time); ok {
		resp.ExpiresAt = &exp
	}
	return c.JSON(http.StatusOK, resp)
}

// SignOut locks the gate. Tokens are held only in page memory, so the
// client dropping its copy is what ends the session.
func (h *SessionHandler) SignOut(c echo.Context) error {
	return c.JSON(http.StatusOK, SessionResponse{State: h.gate.Lock(Unlocked)})
}
