package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/matzehuels/flowscope/pkg/errors"
	"github.com/matzehuels/flowscope/pkg/render"
)

const (
	wsWriteWait = 10 * time.Second
	wsPongWait  = 60 * time.Second
	wsPingEvery = (wsPongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(*http.Request) bool {
		return true
	},
}

// wsInbound is a client command. Type is a container operation
// (collapse, expand, toggle) or a session operation (collapse-all,
// expand-all, reset, relayout).
type wsInbound struct {
	Type      string `json:"type"`
	Container string `json:"container,omitempty"`
}

type wsOutbound struct {
	Type    string         `json:"type"`
	Render  *render.Output `json:"render,omitempty"`
	Code    errors.Code    `json:"code,omitempty"`
	Message string         `json:"message,omitempty"`
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	defer cancel()

	updates, unsubscribe := sess.Subscribe(1)
	defer unsubscribe()

	writeCh := make(chan wsOutbound, 16)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		defer cancel()
		ticker := time.NewTicker(wsPingEvery)
		defer ticker.Stop()
		for {
			var msg wsOutbound
			select {
			case <-ctx.Done():
				return
			case out, ok := <-updates:
				if !ok {
					return
				}
				msg = wsOutbound{Type: "render", Render: &out}
			case msg = <-writeCh:
			case <-ticker.C:
				if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
					return
				}
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
				continue
			}
			if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
				return
			}
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		}
	}()

	initial := sess.Render()
	push(ctx, writeCh, wsOutbound{Type: "render", Render: &initial})

	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		var in wsInbound
		if err := conn.ReadJSON(&in); err != nil {
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		if err := s.apply(ctx, sess, in.Type, in.Container); err != nil {
			push(ctx, writeCh, wsOutbound{Type: "error", Code: errors.GetCode(err), Message: errors.UserMessage(err)})
			continue
		}
		push(ctx, writeCh, wsOutbound{Type: "ack"})
	}
	cancel()
	<-writerDone
	s.logger.Debug("websocket closed", "session", sess.ID)
}

func push(ctx context.Context, ch chan<- wsOutbound, msg wsOutbound) {
	select {
	case ch <- msg:
	case <-ctx.Done():
	}
}
