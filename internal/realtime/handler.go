package realtime

import (
	"context"
	"net/http"
	"strings"

	"gocab/internal/config"
	"gocab/internal/utils"
	"gocab/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Handler upgrades authenticated HTTP requests to websocket sessions.
type Handler struct {
	gateway  *Gateway
	cfg      *config.WebSocketConfig
	security *config.SecurityConfig
	log      *logger.Logger
	upgrader websocket.Upgrader
}

func NewHandler(gateway *Gateway, cfg *config.WebSocketConfig, security *config.SecurityConfig, log *logger.Logger) *Handler {
	return &Handler{
		gateway:  gateway,
		cfg:      cfg,
		security: security,
		log:      log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  cfg.ReadBufferSize,
			WriteBufferSize: cfg.WriteBufferSize,
			CheckOrigin:     originChecker(cfg.AllowedOrigins),
		},
	}
}

// HandleConnection authenticates the request and, only then, upgrades it.
// A bad token gets a plain 401 over HTTP, never a websocket close frame.
func (h *Handler) HandleConnection(c *gin.Context) {
	token := extractToken(c)
	if token == "" {
		utils.ErrorResponse(c, http.StatusUnauthorized, "UNAUTHORIZED", "missing authentication token")
		return
	}

	claims, err := utils.VerifyToken(token, h.security.JWTSecret)
	if err != nil {
		utils.ErrorResponse(c, http.StatusUnauthorized, "UNAUTHORIZED", "invalid or expired token")
		return
	}

	role := Role(claims.Role)
	if role != RoleRider && role != RoleDriver {
		utils.ErrorResponse(c, http.StatusUnauthorized, "UNAUTHORIZED", "unknown role")
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	client := NewClient(conn, h.cfg, h.log)
	sess := NewSession(claims.UserID, role, client)

	// The request context dies when this handler returns; the session
	// outlives it.
	go client.Serve(context.Background(), h.gateway, sess)
}

// extractToken accepts the token as a query parameter (browser websocket
// clients cannot set headers) or a bearer header.
func extractToken(c *gin.Context) string {
	if token := c.Query("token"); token != "" {
		return token
	}

	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}

func originChecker(allowed []string) func(*http.Request) bool {
	for _, origin := range allowed {
		if origin == "*" {
			return func(*http.Request) bool { return true }
		}
	}

	set := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		set[origin] = struct{}{}
	}
	return func(r *http.Request) bool {
		_, ok := set[r.Header.Get("Origin")]
		return ok
	}
}
