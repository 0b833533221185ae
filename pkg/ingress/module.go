package ingress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/cfoust/skeld/pkg/gameserver"
	"github.com/cfoust/skeld/pkg/protocol"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
	"nhooyr.io/websocket"
)

const (
	// Outbound queue per peer; a client that falls this far behind gets
	// dropped rather than stalling the engine.
	SEND_QUEUE_SIZE = 64

	WRITE_TIMEOUT = 5 * time.Second
)

// Connection adapts one websocket peer to the engine's send/close contract.
// Send never blocks: the engine's broadcast pass must not wait on a slow
// peer.
type Connection struct {
	sessionID uuid.UUID
	send      chan []byte
	closeSlow func()

	// closeWS tears down the underlying socket once the engine is done
	// with the peer.
	closeWS func(reason string)

	mutex  sync.Mutex
	closed bool
}

func NewConnection(sessionID uuid.UUID) *Connection {
	return &Connection{
		sessionID: sessionID,
		send:      make(chan []byte, SEND_QUEUE_SIZE),
	}
}

func (c *Connection) Send(message protocol.Message) error {
	data, err := protocol.Encode(message)
	if err != nil {
		return err
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.closed {
		return gameserver.ErrConnectionClosed
	}

	select {
	case c.send <- data:
		return nil
	default:
		c.closed = true
		if c.closeSlow != nil {
			go c.closeSlow()
		}
		return gameserver.ErrConnectionClosed
	}
}

func (c *Connection) Close(reason string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.closed {
		return
	}
	c.closed = true

	if c.closeWS != nil {
		go c.closeWS(reason)
	}
}

type WSIngress struct {
	server     *gameserver.Server
	httpServer *http.Server
}

func NewWSIngress(server *gameserver.Server) *WSIngress {
	return &WSIngress{
		server: server,
	}
}

func WriteTimeout(ctx context.Context, timeout time.Duration, c *websocket.Conn, msg []byte) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.Write(ctx, websocket.MessageText, msg)
}

func (i *WSIngress) HandleClient(ctx context.Context, ws *websocket.Conn, host string) error {
	sessionID := uuid.New()
	conn := NewConnection(sessionID)
	conn.closeSlow = func() {
		ws.Close(websocket.StatusPolicyViolation, "connection too slow to keep up with messages")
	}
	conn.closeWS = func(reason string) {
		ws.Close(websocket.StatusNormalClosure, reason)
	}

	logger := log.With().
		Str("session", sessionID.String()).
		Str("host", host).
		Logger()

	// The pump starts before the engine decides on the join so that a
	// refusal still reaches the peer.
	go func() {
		for {
			select {
			case msg := <-conn.send:
				err := WriteTimeout(ctx, WRITE_TIMEOUT, ws, msg)
				if err != nil {
					logger.Debug().Msg("client missed write timeout; disconnecting")
					ws.Close(websocket.StatusPolicyViolation, "write timeout")
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	client, err := i.server.Connect(ctx, sessionID, conn)
	if err != nil {
		logger.Info().Err(err).Msg("client refused")
		return err
	}
	defer i.server.Leave(client)

	logger = logger.With().Str("player", string(client.ID)).Logger()
	logger.Info().Msg("client joined")

	// A peer spamming actions gets slowed down, not disconnected.
	limiter := rate.NewLimiter(rate.Limit(10), 20)

	for {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}

		typ, message, err := ws.Read(ctx)
		if err != nil {
			logger.Info().Msg("client left")
			return err
		}
		if typ != websocket.MessageText {
			continue
		}

		action, err := protocol.DecodeAction(message)
		if err != nil {
			_ = conn.Send(protocol.Error{Message: err.Error()})
			continue
		}

		i.server.Submit(client, action)
	}
}

func (i *WSIngress) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		log.Error().Err(err).Msg("error accepting client connection")
		return
	}

	defer ws.Close(websocket.StatusInternalError, "operational fault")

	hostname := r.RemoteAddr

	original, ok := r.Header["X-Forwarded-For"]
	if ok {
		hostname = original[0]
	}

	err = i.HandleClient(r.Context(), ws, hostname)
	if errors.Is(err, context.Canceled) {
		return
	}
	if websocket.CloseStatus(err) == websocket.StatusNormalClosure ||
		websocket.CloseStatus(err) == websocket.StatusGoingAway {
		return
	}
}

func (i *WSIngress) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "ok")
}

func (i *WSIngress) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), time.Second)
	defer cancel()

	status, err := i.server.GetStatus(ctx)
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(status)
}

func (i *WSIngress) Serve(ctx context.Context, port int) error {
	listen, err := net.Listen("tcp", fmt.Sprintf("0.0.0.0:%d", port))
	if err != nil {
		log.Error().Err(err).Msg("failed to bind WebSocket port")
		return err
	}

	log.Info().Msgf("listening on http://%v", listen.Addr())

	mux := http.NewServeMux()
	mux.Handle("/ws", i)
	mux.HandleFunc("/healthz", i.handleHealth)
	mux.HandleFunc("/api/status", i.handleStatus)

	httpServer := &http.Server{
		Handler: mux,
	}

	i.httpServer = httpServer

	return httpServer.Serve(listen)
}

func (i *WSIngress) Shutdown(ctx context.Context) {
	if i.httpServer != nil {
		_ = i.httpServer.Shutdown(ctx)
	}
}
