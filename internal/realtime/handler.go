package realtime

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/loopboard/loopboard/internal/apierrors"
	"github.com/loopboard/loopboard/internal/config"
)

const authWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Browsers cannot attach Authorization headers to WebSocket requests;
	// access is gated by the bearer token, not the Origin header.
	CheckOrigin: func(*http.Request) bool { return true },
}

// Handler upgrades requests onto the hub. The bearer token arrives either
// as a ?token= query parameter, checked before the upgrade, or in the first
// frame's token field. Verification failure disconnects before any room
// membership exists.
func Handler(hub *Hub, verifier *TokenVerifier, cfg config.RealtimeConfig, logger *zap.Logger) http.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	inboundRate := cfg.InboundRate
	if inboundRate <= 0 {
		inboundRate = 20
	}
	inboundBurst := cfg.InboundBurst
	if inboundBurst <= 0 {
		inboundBurst = 40
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if verifier == nil {
			apierrors.RespondWithError(w, r,
				apierrors.NewServiceUnavailableError("realtime endpoint is disabled: no token secret configured"))
			return
		}

		var (
			claims *Claims
			userID int64
		)
		if token := r.URL.Query().Get("token"); token != "" {
			var err error
			claims, userID, err = verifiedClaims(verifier, token)
			if err != nil {
				logger.Warn("websocket handshake rejected",
					zap.String("remote_addr", r.RemoteAddr),
					zap.Error(err))
				apierrors.RespondWithError(w, r,
					apierrors.NewUnauthorizedError("invalid or expired token"))
				return
			}
		}

		sock, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade already wrote its own error response.
			logger.Debug("websocket upgrade failed",
				zap.String("remote_addr", r.RemoteAddr),
				zap.Error(err))
			return
		}

		if claims == nil {
			token, err := readAuthToken(sock)
			if err == nil {
				claims, userID, err = verifiedClaims(verifier, token)
			}
			if err != nil {
				logger.Warn("websocket handshake rejected",
					zap.String("remote_addr", r.RemoteAddr),
					zap.Error(err))
				closeUnauthorized(sock)
				return
			}
		}

		inbound := rate.NewLimiter(rate.Limit(inboundRate), inboundBurst)
		c := newConnection(sock, cfg.SendBuffer, inbound)
		c.authenticate(claims, userID, time.Now().UTC())

		hub.Register(c)
		go c.writePump(hub, logger)
		c.readPump(hub, logger)
	}
}

func verifiedClaims(verifier *TokenVerifier, token string) (*Claims, int64, error) {
	claims, err := verifier.Verify(token)
	if err != nil {
		return nil, 0, err
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, 0, err
	}
	return claims, userID, nil
}

// readAuthToken waits for the client's first frame and extracts its token
// field. The deadline bounds how long an unauthenticated socket may linger.
func readAuthToken(sock *websocket.Conn) (string, error) {
	_ = sock.SetReadDeadline(time.Now().Add(authWait))
	defer func() { _ = sock.SetReadDeadline(time.Time{}) }()

	var msg ClientEvent
	if err := sock.ReadJSON(&msg); err != nil {
		return "", err
	}
	if msg.Token == "" {
		return "", errMissingToken
	}
	return msg.Token, nil
}

func closeUnauthorized(sock *websocket.Conn) {
	deadline := time.Now().Add(writeWait)
	_ = sock.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "authentication failed"),
		deadline)
	_ = sock.Close()
}
