package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/noah-isme/somashare-api/internal/viewstate"
	appErrors "github.com/noah-isme/somashare-api/pkg/errors"
	"github.com/noah-isme/somashare-api/pkg/middleware/cors"
	"github.com/noah-isme/somashare-api/pkg/response"
)

type screenFactory interface {
	New(screen string, userID int64, params map[string]string) (viewstate.Screen, error)
}

type screenTracker interface {
	ScreenMounted(screen string) func()
}

// ScreenConfig tunes websocket screen sessions.
type ScreenConfig struct {
	AllowedOrigins  []string
	WriteTimeout    time.Duration
	PingInterval    time.Duration
	MaxMessageBytes int64
}

// pongWait is how long a silent client is kept; two missed pings close it.
func (c ScreenConfig) pongWait() time.Duration {
	return 2 * c.PingInterval
}

func (c *ScreenConfig) defaults() {
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.PingInterval <= 0 {
		c.PingInterval = 30 * time.Second
	}
	if c.MaxMessageBytes <= 0 {
		c.MaxMessageBytes = 1 << 20
	}
}

// Frame types sent to the client.
const (
	FrameState = "state"
	FrameError = "error"
)

// Frame is one server message of a screen session.
type Frame struct {
	Type   string           `json:"type"`
	Screen string           `json:"screen"`
	State  any              `json:"state,omitempty"`
	Error  *appErrors.Error `json:"error,omitempty"`
}

// ScreenHandler runs one screen controller per websocket connection. Text
// frames carry intents, binary frames carry file content for the upload screen.
type ScreenHandler struct {
	factory  screenFactory
	metrics  screenTracker
	cfg      ScreenConfig
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewScreenHandler constructs ScreenHandler.
func NewScreenHandler(factory screenFactory, metrics screenTracker, cfg ScreenConfig, logger *zap.Logger) *ScreenHandler {
	cfg.defaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	origins := cors.OriginSet(cfg.AllowedOrigins)
	return &ScreenHandler{
		factory: factory,
		metrics: metrics,
		cfg:     cfg,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || cors.Allowed(origins, origin)
			},
		},
	}
}

// Serve godoc
// @Summary Open a live screen session
// @Description Upgrades to a websocket. The server pushes state frames; the client sends intents as text frames.
// @Tags Screens
// @Param screen path string true "home, search, unit_detail, upload or profile"
// @Param unit_id query int false "Unit of the unit_detail screen"
// @Param access_token query string false "Bearer token for browsers"
// @Success 101
// @Failure 404 {object} response.Envelope
// @Router /ws/screens/{screen} [get]
func (h *ScreenHandler) Serve(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	params := map[string]string{"unit_id": c.Query("unit_id")}
	screen, err := h.factory.New(c.Param("screen"), userID, params)
	if err != nil {
		if errors.Is(err, viewstate.ErrUnknownScreen) {
			err = appErrors.Clone(appErrors.ErrNotFound, err.Error())
		}
		response.Error(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.String("screen", screen.Name()), zap.Error(err))
		return
	}
	defer conn.Close()

	logger := h.logger.With(zap.String("screen", screen.Name()), zap.Int64("user_id", userID))
	unmounted := func() {}
	if h.metrics != nil {
		unmounted = h.metrics.ScreenMounted(screen.Name())
	}
	defer unmounted()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	if err := screen.Mount(ctx); err != nil {
		h.writeFrame(conn, Frame{Type: FrameError, Screen: screen.Name(), Error: appErrors.FromError(err)})
		return
	}

	replies := make(chan Frame, 8)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		h.writeLoop(conn, screen, replies)
	}()

	h.readLoop(ctx, conn, screen, replies, writerDone, logger)

	cancel()
	screen.Unmount()
	<-writerDone
}

// readLoop forwards client frames to the screen until the connection fails.
func (h *ScreenHandler) readLoop(ctx context.Context, conn *websocket.Conn, screen viewstate.Screen, replies chan<- Frame, writerDone <-chan struct{}, logger *zap.Logger) {
	conn.SetReadLimit(h.cfg.MaxMessageBytes)
	_ = conn.SetReadDeadline(time.Now().Add(h.cfg.pongWait()))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.cfg.pongWait()))
	})

	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Info("screen session closed", zap.Error(err))
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(h.cfg.pongWait()))

		var handleErr error
		switch kind {
		case websocket.TextMessage:
			var intent viewstate.Intent
			if err := json.Unmarshal(data, &intent); err != nil {
				handleErr = appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid intent")
				break
			}
			handleErr = screen.Handle(intent)
		case websocket.BinaryMessage:
			receiver, ok := screen.(viewstate.FileReceiver)
			if !ok {
				handleErr = appErrors.Clone(appErrors.ErrValidation, "screen does not accept files")
				break
			}
			handleErr = receiver.ReceiveFile(data)
		}
		if handleErr == nil {
			continue
		}
		if errors.Is(handleErr, viewstate.ErrUnknownIntent) {
			handleErr = appErrors.Clone(appErrors.ErrValidation, handleErr.Error())
		}
		select {
		case replies <- Frame{Type: FrameError, Screen: screen.Name(), Error: appErrors.FromError(handleErr)}:
		case <-writerDone:
			return
		case <-ctx.Done():
			return
		}
	}
}

// writeLoop is the only writer of conn. It ends when the screen closes its updates.
func (h *ScreenHandler) writeLoop(conn *websocket.Conn, screen viewstate.Screen, replies <-chan Frame) {
	ping := time.NewTicker(h.cfg.PingInterval)
	defer ping.Stop()
	updates := screen.Updates()

	for {
		select {
		case state, ok := <-updates:
			if !ok {
				_ = conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if !h.writeFrame(conn, Frame{Type: FrameState, Screen: screen.Name(), State: state}) {
				_ = conn.Close()
				return
			}
		case frame := <-replies:
			if !h.writeFrame(conn, frame) {
				_ = conn.Close()
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = conn.Close()
				return
			}
		}
	}
}

func (h *ScreenHandler) writeFrame(conn *websocket.Conn, frame Frame) bool {
	_ = conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
	if err := conn.WriteJSON(frame); err != nil {
		h.logger.Debug("screen frame write failed", zap.String("screen", frame.Screen), zap.Error(err))
		return false
	}
	return true
}
