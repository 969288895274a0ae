package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/yoockh/mockview/internal/events"
	"github.com/yoockh/mockview/internal/models"
	"github.com/yoockh/mockview/internal/services"
	"github.com/yoockh/mockview/internal/utils"
)

const (
	wsWriteWait = 10 * time.Second
	wsPongWait  = 60 * time.Second
	wsPingEvery = 50 * time.Second
)

type WSHandler struct {
	sessions  services.SessionService
	lifecycle services.LifecycleService
	turns     services.TurnService
	events    events.Subscriber
	log       *logrus.Logger
	upgrader  websocket.Upgrader
}

func NewWSHandler(sessions services.SessionService, lifecycle services.LifecycleService, turns services.TurnService, sub events.Subscriber, log *logrus.Logger) *WSHandler {
	if log == nil {
		log = logrus.New()
	}
	return &WSHandler{
		sessions:  sessions,
		lifecycle: lifecycle,
		turns:     turns,
		events:    sub,
		log:       log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true }, // TODO: restrict origin once the UI host is fixed
		},
	}
}

type wsClientMsg struct {
	Type string `json:"type"` // answer|retry|end_session|reload
	Text string `json:"text"`
}

type wsSnapshotMsg struct {
	Type  string               `json:"type"`
	Seq   uint64               `json:"seq"`
	View  services.SessionView `json:"view"`
	Turns []models.Turn        `json:"turns"`
	Draft *services.Draft      `json:"draft,omitempty"`
}

type wsErrorMsg struct {
	Type string `json:"type"`
	APIError
}

type wsConn struct {
	c  *websocket.Conn
	mu sync.Mutex
}

func (w *wsConn) writeJSON(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.c.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return w.c.WriteMessage(websocket.TextMessage, b)
}

func (w *wsConn) ping() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.c.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait))
}

// SessionWS pushes transcript and phase events of an open session. The
// client may also answer, retry, reload and end over the same socket.
func (h *WSHandler) SessionWS(c *gin.Context) {
	sess, ok := openSession(c, h.sessions)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// upgrade already wrote response in most cases
		return
	}
	defer conn.Close()

	wc := &wsConn{c: conn}
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	entry := h.log.WithField("session_id", sess.ID())

	feed, unsubscribe, err := h.events.Subscribe(ctx, sess.ID())
	if err != nil {
		entry.WithError(err).Warn("event subscription failed")
		_ = wc.writeJSON(wsErrorMsg{Type: "error", APIError: apiError(utils.E(utils.CodeUnavailable, "WSHandler.SessionWS", "live updates unavailable", err))})
		return
	}
	defer unsubscribe()

	// subscribe first, then snapshot: anything at or below its seq is
	// already in it
	snap := snapshot(sess)
	if err := wc.writeJSON(snap); err != nil {
		return
	}
	filter := events.NewSeqFilter(snap.Seq)

	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
			return nil
		})

		for {
			_, data, rerr := conn.ReadMessage()
			if rerr != nil {
				return
			}

			var msg wsClientMsg
			if err := json.Unmarshal(data, &msg); err != nil {
				_ = wc.writeJSON(wsErrorMsg{Type: "error", APIError: apiError(utils.E(utils.CodeInvalidArgument, "WSHandler.SessionWS", "invalid json", err))})
				continue
			}
			// answers run in the background so the socket keeps reading;
			// the turn service rejects a second one while the first is open
			go h.dispatch(ctx, wc, sess, msg)
		}
	}()

	ticker := time.NewTicker(wsPingEvery)
	defer ticker.Stop()

	for {
		select {
		case <-readDone:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := wc.ping(); err != nil {
				return
			}
		case ev, ok := <-feed:
			if !ok {
				return
			}
			if !filter.Fresh(ev) {
				continue
			}
			if err := wc.writeJSON(ev); err != nil {
				return
			}
		}
	}
}

func (h *WSHandler) dispatch(ctx context.Context, wc *wsConn, sess *services.InterviewSession, msg wsClientMsg) {
	var err error
	switch msg.Type {
	case "answer":
		_, err = h.turns.Submit(ctx, sess, msg.Text)
	case "retry":
		_, err = h.turns.Retry(ctx, sess)
	case "reload":
		err = h.lifecycle.Reload(ctx, sess)
	case "end_session":
		err = h.lifecycle.End(ctx, sess)
	case "snapshot":
		err = wc.writeJSON(snapshot(sess))
	default:
		err = utils.E(utils.CodeInvalidArgument, "WSHandler.SessionWS", "unknown message type", nil)
	}
	if err != nil && ctx.Err() == nil {
		_ = wc.writeJSON(wsErrorMsg{Type: "error", APIError: apiError(err)})
	}
}

func snapshot(sess *services.InterviewSession) wsSnapshotMsg {
	msg := wsSnapshotMsg{
		Type:  "snapshot",
		Seq:   sess.Seq(),
		View:  sess.View(time.Now().UTC()),
		Turns: sess.Snapshot(),
	}
	if d, ok := sess.FailedDraft(); ok {
		msg.Draft = &d
	}
	return msg
}
