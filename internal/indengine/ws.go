package indengine

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"marketdash/internal/logger"

	"github.com/gorilla/websocket"
)

const (
	wsReadLimit   = 64 << 10
	wsPongWait    = 60 * time.Second
	wsPingPeriod  = 30 * time.Second
	wsSendBacklog = 16
)

// wsMessage is a client frame. Type "compute" carries a ComputeRequest;
// a bare {"ping": n} is answered with a pong.
type wsMessage struct {
	Type  string `json:"type"`
	ReqID string `json:"req_id,omitempty"`
	Ping  int64  `json:"ping,omitempty"`
	ComputeRequest
}

// wsReply is a server frame: "result", "error" or "pong".
type wsReply struct {
	Type     string           `json:"type"`
	ReqID    string           `json:"req_id,omitempty"`
	Data     *ComputeResponse `json:"data,omitempty"`
	Error    string           `json:"error,omitempty"`
	Code     string           `json:"code,omitempty"`
	Ping     int64            `json:"ping,omitempty"`
	ServerTS int64            `json:"server_ts,omitempty"`
}

// wsClient is one connected peer. Requests are served in arrival order;
// replies go through send so that only writePump touches the connection.
type wsClient struct {
	svc  *Service
	conn *websocket.Conn
	send chan []byte
}

func (svc *Service) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := svc.upgrader.Upgrade(w, r, nil)
	if err != nil {
		svc.log.Warn("ws upgrade failed", append(logger.Attrs(r.Context()), "error", err)...)
		return
	}
	svc.prom.WSClients.Inc()
	defer svc.prom.WSClients.Dec()

	c := &wsClient{svc: svc, conn: conn, send: make(chan []byte, wsSendBacklog)}
	go c.writePump()
	c.readPump(r.Context())
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.svc.cfg.WriteTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.svc.cfg.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *wsClient) readPump(ctx context.Context) {
	defer close(c.send)

	c.conn.SetReadLimit(wsReadLimit)
	c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.svc.log.Debug("ws read failed", append(logger.Attrs(ctx), "error", err)...)
			}
			return
		}

		var msg wsMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.reply(wsReply{Type: "error", Error: "invalid message: " + err.Error(), Code: "bad_request"})
			continue
		}

		switch {
		case msg.Type == "compute":
			c.compute(ctx, msg)
		case msg.Ping > 0:
			c.reply(wsReply{Type: "pong", Ping: msg.Ping, ServerTS: time.Now().UnixMilli()})
		default:
			c.reply(wsReply{Type: "error", ReqID: msg.ReqID, Error: "unknown message type " + msg.Type, Code: "bad_request"})
		}
	}
}

func (c *wsClient) compute(ctx context.Context, msg wsMessage) {
	if !c.svc.limiter.Allow() {
		c.svc.prom.RateLimited.Inc()
		c.reply(wsReply{Type: "error", ReqID: msg.ReqID, Error: "rate limit exceeded", Code: "rate_limited"})
		return
	}
	ctx, _ = logger.EnsureRequestID(ctx)
	if msg.ReqID != "" {
		ctx = logger.WithRequestID(ctx, msg.ReqID)
	}

	resp, err := c.svc.Compute(ctx, msg.ComputeRequest)
	if err != nil {
		c.reply(wsReply{Type: "error", ReqID: msg.ReqID, Error: err.Error(), Code: errorCode(err)})
		return
	}
	c.reply(wsReply{Type: "result", ReqID: msg.ReqID, Data: resp})
}

// reply queues a frame; a client that stops reading loses frames rather
// than stalling its read loop.
func (c *wsClient) reply(r wsReply) {
	b, err := json.Marshal(r)
	if err != nil {
		return
	}
	select {
	case c.send <- b:
	default:
		c.svc.log.Warn("ws send buffer full, dropping reply", "type", r.Type, "req_id", r.ReqID)
	}
}
