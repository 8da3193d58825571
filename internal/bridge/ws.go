package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  32 * 1024,
	WriteBufferSize: 32 * 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := strings.TrimSpace(r.Header.Get("Origin"))
		if origin == "" {
			return true
		}
		host := strings.TrimSpace(r.Host)
		return strings.Contains(origin, "://"+host)
	},
}

// WSServer exposes the router to an external panel over a websocket. Each
// text frame carries one JSON request; responses are written back as JSON
// frames on the same connection.
type WSServer struct {
	router *Router
	log    *log.Logger
}

func NewWSServer(router *Router, logger *log.Logger) *WSServer {
	if logger == nil {
		logger = log.Default()
	}
	return &WSServer{router: router, log: logger}
}

func (s *WSServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok\n"))
	})
	return mux
}

// ListenAndServe blocks until ctx is cancelled or the listener fails.
func (s *WSServer) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.log.Info("bridge listening", "addr", addr)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *WSServer) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		http.Error(w, "websocket upgrade failed", http.StatusBadRequest)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	peer := &wsChannel{conn: conn, log: s.log}
	s.log.Debug("panel connected", "remote", r.RemoteAddr)
	if err := s.router.Serve(ctx, peer); err != nil {
		s.log.Warn("panel connection ended", "remote", r.RemoteAddr, "err", err)
		return
	}
	s.log.Debug("panel disconnected", "remote", r.RemoteAddr)
}

type wsChannel struct {
	conn *websocket.Conn
	log  *log.Logger
	wmu  sync.Mutex
}

// Receive skips frames that are not valid requests.
func (c *wsChannel) Receive(ctx context.Context) (Request, error) {
	for {
		typ, data, err := c.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				return Request{}, ErrClosed
			}
			return Request{}, err
		}
		if typ != websocket.TextMessage {
			continue
		}
		var req Request
		if err := json.Unmarshal(data, &req); err != nil {
			c.log.Warn("dropping malformed request", "err", err)
			continue
		}
		return req, nil
	}
}

func (c *wsChannel) Post(resp Response) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	return c.conn.WriteJSON(resp)
}
