// Package visualizer implements the "visualize" external mode (spec.md §6):
// a thin live renderer that tails the simulation's dedicated log file and
// streams new lines to connected clients over a websocket, fronted by a
// small gin router.
//
// Grounded on internal/gateway/gateway.go's gin + gorilla/websocket
// read/write-pump shape, with the optional bearer-token check lifted from
// internal/auth/service.go's VerifyToken.
package visualizer

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Server renders the log file by tailing it and fanning new lines out to
// connected websocket clients.
type Server struct {
	router      *gin.Engine
	logPath     string
	renderEvery time.Duration
	jwtSecret   string // empty disables auth, matching spec.md's "front-end is out-of-scope"

	mu      sync.RWMutex
	clients map[uuid.UUID]chan string
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// New builds a visualizer server that tails logPath every renderInterval
// and serves it on /ws, plus a /health probe. An empty jwtSecret disables the
// optional bearer-token check.
func New(logPath string, renderInterval time.Duration, jwtSecret string) *Server {
	s := &Server{
		router:      gin.Default(),
		logPath:     logPath,
		renderEvery: renderInterval,
		jwtSecret:   jwtSecret,
		clients:     make(map[uuid.UUID]chan string),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	s.router.GET("/ws", s.authMiddleware(), s.handleWebSocket)
}

// authMiddleware validates an Authorization bearer token when a secret is
// configured; it is a no-op pass-through otherwise.
func (s *Server) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.jwtSecret == "" {
			c.Next()
			return
		}
		header := c.GetHeader("Authorization")
		if len(header) <= 7 || header[:7] != "Bearer " {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		tokenString := header[7:]
		_, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(s.jwtSecret), nil
		})
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Next()
	}
}

func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	id := uuid.New()
	ch := make(chan string, 256)
	s.mu.Lock()
	s.clients[id] = ch
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.clients, id)
		s.mu.Unlock()
	}()

	for line := range ch {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(line)); err != nil {
			return
		}
	}
}

func (s *Server) broadcast(line string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ch := range s.clients {
		select {
		case ch <- line:
		default:
			// slow client: drop rather than block the tailer.
		}
	}
}

// Run tails logPath on renderEvery cadence, broadcasting new lines to every
// connected client, until ctx is canceled. Intended to run alongside
// router.Run in its own goroutine.
func (s *Server) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.renderEvery)
	defer ticker.Stop()

	var offset int64
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			f, err := os.Open(s.logPath)
			if err != nil {
				continue
			}
			if _, err := f.Seek(offset, io.SeekStart); err != nil {
				f.Close()
				continue
			}
			scanner := bufio.NewScanner(f)
			for scanner.Scan() {
				s.broadcast(scanner.Text())
				offset += int64(len(scanner.Bytes())) + 1
			}
			f.Close()
		}
	}
}

// ListenAndServe starts the HTTP/websocket listener; blocks until error.
func (s *Server) ListenAndServe(addr string) error {
	return s.router.Run(addr)
}
