package bridge

import (
	"context"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/lumenbrowser/lumen/internal/logging"
	"github.com/lumenbrowser/lumen/internal/monitoring"
	"github.com/lumenbrowser/lumen/internal/shared/types"
	"github.com/lumenbrowser/lumen/internal/shared/validate"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 45 * time.Second
)

// Coordinator is the slice of the tab coordinator the stream needs.
type Coordinator interface {
	Create(ctx context.Context, address string) (*types.Tab, error)
	Activate(ctx context.Context, tabID string) bool
	Close(ctx context.Context, tabID string) (bool, error)
	List() []types.Tab
	ActiveID() string
	NavigateTo(ctx context.Context, tabID, address string) bool
	Back(ctx context.Context)
	Forward(ctx context.Context)
	Reload(ctx context.Context)
	FindStart(ctx context.Context, tabID, text string) bool
	FindNext(ctx context.Context, tabID, text string, forward bool) bool
	FindStop(ctx context.Context, tabID string) bool
}

// Stream upgrades HTTP connections to websockets and bridges them to
// the event bus and the coordinator.
type Stream struct {
	bus      *Bus
	coord    Coordinator
	log      *logging.Logger
	metrics  *monitoring.Metrics
	upgrader websocket.Upgrader
}

// NewStream creates a websocket stream handler.
func NewStream(bus *Bus, coord Coordinator, log *logging.Logger) *Stream {
	return &Stream{
		bus:   bus,
		coord: coord,
		log:   log.Named("stream"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The listener binds to loopback only; the chrome UI is
			// the sole expected origin.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// WithMetrics adds metrics tracking to the stream.
func (s *Stream) WithMetrics(metrics *monitoring.Metrics) *Stream {
	s.metrics = metrics
	return s
}

// command is one inbound UI request.
type command struct {
	Action  string `json:"action"`
	TabID   string `json:"tab_id,omitempty"`
	Address string `json:"address,omitempty"`
	Text    string `json:"text,omitempty"`
	Forward *bool  `json:"forward,omitempty"`
}

// Handle serves one websocket client.
func (s *Stream) Handle(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	subID, events := s.bus.Subscribe()
	defer s.bus.Unsubscribe(subID)

	if s.metrics != nil {
		s.metrics.WSConnections.Inc()
		defer s.metrics.WSConnections.Dec()
	}
	s.log.Info("client connected", zap.String("client", subID))

	done := make(chan struct{})
	go s.writeLoop(conn, subID, events, done)
	s.readLoop(c.Request.Context(), conn, subID)
	close(done)
}

// writeLoop replays current tab state, then pumps bus events until the
// reader side ends. A client that connects mid-session must not start
// from a blank slate.
func (s *Stream) writeLoop(conn *websocket.Conn, subID string, events <-chan types.UIEvent, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for _, tab := range s.coord.List() {
		t := tab
		if !s.send(conn, types.UIEvent{Type: types.UITabCreated, TabID: t.ID, Tab: &t, Timestamp: time.Now().UnixMilli()}) {
			return
		}
	}
	if active := s.coord.ActiveID(); active != "" {
		if !s.send(conn, types.UIEvent{Type: types.UITabActivated, TabID: active, Timestamp: time.Now().UnixMilli()}) {
			return
		}
	}

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			if !s.send(conn, ev) {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.log.Debug("ping failed", zap.String("client", subID))
				return
			}
		case <-done:
			return
		}
	}
}

func (s *Stream) send(conn *websocket.Conn, ev types.UIEvent) bool {
	payload, err := sonic.Marshal(ev)
	if err != nil {
		s.log.Warn("encode event", zap.Error(err))
		return true
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return false
	}
	return true
}

func (s *Stream) readLoop(ctx context.Context, conn *websocket.Conn, subID string) {
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Warn("client read error", zap.String("client", subID), zap.Error(err))
			} else {
				s.log.Info("client disconnected", zap.String("client", subID))
			}
			return
		}

		var cmd command
		if err := sonic.Unmarshal(payload, &cmd); err != nil {
			s.log.Warn("malformed command", zap.String("client", subID), zap.Error(err))
			continue
		}
		s.dispatch(ctx, cmd)
	}
}

// validateCommand bounds every field before it reaches the
// coordinator. Websocket clients cross the same trust boundary the
// HTTP handlers do.
func validateCommand(cmd command) error {
	switch cmd.Action {
	case "tab.create":
		return validate.Address(cmd.Address, false)
	case "tab.activate", "tab.close", "find.stop":
		return validate.ID(cmd.TabID, "tab_id", true)
	case "tab.navigate":
		if err := validate.ID(cmd.TabID, "tab_id", true); err != nil {
			return err
		}
		return validate.Address(cmd.Address, true)
	case "find.start", "find.next":
		if err := validate.ID(cmd.TabID, "tab_id", true); err != nil {
			return err
		}
		return validate.FindText(cmd.Text)
	}
	return nil
}

// dispatch routes one UI command into the coordinator. Commands naming
// unknown tabs are no-ops, matching the coordinator's view of stale
// UI state.
func (s *Stream) dispatch(ctx context.Context, cmd command) {
	if err := validateCommand(cmd); err != nil {
		s.log.Warn("rejected command", zap.String("action", cmd.Action), zap.Error(err))
		return
	}
	switch cmd.Action {
	case "tab.create":
		if _, err := s.coord.Create(ctx, cmd.Address); err != nil {
			s.log.Warn("create tab", zap.Error(err))
		}
	case "tab.activate":
		s.coord.Activate(ctx, cmd.TabID)
	case "tab.close":
		if _, err := s.coord.Close(ctx, cmd.TabID); err != nil {
			s.log.Warn("close tab checkpoint", zap.Error(err))
		}
	case "tab.navigate":
		s.coord.NavigateTo(ctx, cmd.TabID, cmd.Address)
	case "nav.back":
		s.coord.Back(ctx)
	case "nav.forward":
		s.coord.Forward(ctx)
	case "nav.reload":
		s.coord.Reload(ctx)
	case "find.start":
		s.coord.FindStart(ctx, cmd.TabID, cmd.Text)
	case "find.next":
		forward := true
		if cmd.Forward != nil {
			forward = *cmd.Forward
		}
		s.coord.FindNext(ctx, cmd.TabID, cmd.Text, forward)
	case "find.stop":
		s.coord.FindStop(ctx, cmd.TabID)
	default:
		s.log.Warn("unknown command", zap.String("action", cmd.Action))
	}
}
