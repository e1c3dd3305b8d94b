package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/calmora/sessionhub/internal/auth"
	"github.com/calmora/sessionhub/internal/handler"
	"github.com/calmora/sessionhub/internal/realtime"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 4096
)

// Inbound message kinds accepted once a channel is open.
const (
	messageTypePing             = "ping"
	messageTypeSendNotification = "send_notification"
	messageTypeSubscribe        = "subscribe"
)

type WebSocketServer struct {
	logger        *zap.Logger
	upgrader      *websocket.Upgrader
	authenticator *auth.Authenticator
	registry      realtime.Registry
	pushHandler   handler.PushHandlerInterface
}

func NewWebSocketServer(
	logger *zap.Logger,
	upgrader *websocket.Upgrader,
	authenticator *auth.Authenticator,
	registry realtime.Registry,
	pushHandler handler.PushHandlerInterface,
) *WebSocketServer {
	return &WebSocketServer{
		logger,
		upgrader,
		authenticator,
		registry,
		pushHandler,
	}
}

func (s *WebSocketServer) Register(router *mux.Router) {
	router.HandleFunc("/ws", s.handle)
}

type inboundMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

func (s *WebSocketServer) handle(w http.ResponseWriter, r *http.Request) {
	// A token is optional on the handshake, but a presented token must be
	// valid: otherwise the channel is refused and nothing is registered.
	var identity *auth.Identity
	if token := r.URL.Query().Get("token"); token != "" {
		var err error
		identity, err = s.authenticator.VerifyToken(token)
		if err != nil {
			s.logger.Warn("refusing websocket handshake", zap.Error(err))
			s.refuse(w, r)
			return
		}
	}

	wsConn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	wsConn.SetReadLimit(maxMessageSize)

	connection := realtime.NewConnection()
	s.registry.Connect(connection)

	if identity != nil {
		if err := s.registry.Bind(connection.Id, identity.UserId); err != nil {
			s.logger.Error("failed to bind connection", zap.Error(err))
			s.registry.Disconnect(connection.Id)
			wsConn.Close()
			return
		}
	}

	logger := s.logger.With(zap.String("connectionId", connection.Id))
	logger.Info("websocket connection established")

	go s.writeLoop(wsConn, connection)
	s.readLoop(r.Context(), wsConn, connection)

	logger.Info("websocket connection closed")
}

func (s *WebSocketServer) refuse(w http.ResponseWriter, r *http.Request) {
	wsConn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer wsConn.Close()

	closeMessage := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "invalid token")
	wsConn.WriteControl(websocket.CloseMessage, closeMessage, time.Now().Add(writeWait))
}

// writeLoop drains the connection's Send channel onto the socket. The write
// deadline keeps a hung peer from blocking forever; a failed write routes
// through the registry's disconnect path.
func (s *WebSocketServer) writeLoop(wsConn *websocket.Conn, connection *realtime.Connection) {
	defer wsConn.Close()

	for envelope := range connection.Send {
		wsConn.SetWriteDeadline(time.Now().Add(writeWait))

		if err := wsConn.WriteJSON(envelope); err != nil {
			s.registry.Disconnect(connection.Id)
			return
		}
	}
}

func (s *WebSocketServer) readLoop(ctx context.Context, wsConn *websocket.Conn, connection *realtime.Connection) {
	defer s.registry.Disconnect(connection.Id)

	for {
		var message inboundMessage
		if err := wsConn.ReadJSON(&message); err != nil {
			return
		}

		s.route(ctx, connection, message)
	}
}

func (s *WebSocketServer) route(ctx context.Context, connection *realtime.Connection, message inboundMessage) {
	switch message.Type {
	case messageTypePing:
		s.registry.SendToConnection(connection.Id, realtime.Envelope{Type: realtime.EnvelopeTypePong})
	case messageTypeSendNotification:
		var req handler.PushRequest
		if len(message.Data) > 0 {
			if err := json.Unmarshal(message.Data, &req); err != nil {
				s.logger.Warn("invalid send_notification payload",
					zap.String("connectionId", connection.Id),
					zap.Error(err))
				return
			}
		}

		if _, err := s.pushHandler.Handle(ctx, req); err != nil {
			s.logger.Error("failed to push notification", zap.Error(err))
		}
	case messageTypeSubscribe:
		// Accepted but a no-op, reserved for channel scoped subscriptions.
	default:
		// Unknown kinds are ignored.
	}
}
