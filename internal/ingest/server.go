// Package ingest exposes the push pipeline over HTTP. It is the debug and
// integration surface: providers (or test tooling) POST raw payloads and get
// back the delivery decision plus the composed descriptor.
package ingest

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"pushpipe/internal/channel"
	"pushpipe/internal/config"
	"pushpipe/internal/engine"
	logx "pushpipe/pkg/logx"
)

const defaultAddr = "127.0.0.1:8417"

// Server hosts the ingest API. Start once, Shutdown once.
type Server struct {
	cfg      config.IngestConfig
	engine   *engine.Engine
	channels *channel.Registry
	state    *engine.ProcessState
	log      logx.Logger

	http     *http.Server
	limiters *clientLimiters
}

func NewServer(cfg config.IngestConfig, eng *engine.Engine, channels *channel.Registry, state *engine.ProcessState, log logx.Logger) *Server {
	if cfg.Addr == "" {
		cfg.Addr = defaultAddr
	}
	s := &Server{
		cfg:      cfg,
		engine:   eng,
		channels: channels,
		state:    state,
		log:      log,
	}
	if cfg.RatePerSec > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = cfg.RatePerSec
		}
		s.limiters = newClientLimiters(rate.Limit(cfg.RatePerSec), burst)
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(s.logRequests(), gin.Recovery())
	if s.limiters != nil {
		router.Use(s.limitClients())
	}
	s.routes(router)

	s.http = &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) routes(router *gin.Engine) {
	router.GET("/healthz", s.handleHealth)

	v1 := router.Group("/v1")
	{
		v1.POST("/push", s.handlePush)

		notifications := v1.Group("/notifications")
		{
			notifications.POST("/:id/dismissed", s.handleNotificationSeen)
			notifications.POST("/:id/opened", s.handleNotificationSeen)
		}

		channels := v1.Group("/channels")
		{
			channels.POST("", s.handleCreateChannel)
			channels.GET("", s.handleListChannels)
			channels.GET("/:id", s.handleGetChannel)
			channels.DELETE("/:id", s.handleDeleteChannel)
		}
	}
}

// Start serves until the listener fails or Shutdown is called. It returns
// nil on graceful shutdown.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	s.log.Info("ingest listening", logx.String("addr", ln.Addr().String()))
	if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug("http request",
			logx.String("method", c.Request.Method),
			logx.String("path", c.Request.URL.Path),
			logx.Int("status", c.Writer.Status()),
			logx.Duration("took", time.Since(start)),
		)
	}
}

func (s *Server) limitClients() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.limiters.allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}

// clientLimiters keys token buckets by client IP. Entries idle past the
// retention window are dropped on the next sweep.
type clientLimiters struct {
	mu    sync.Mutex
	limit rate.Limit
	burst int

	clients map[string]*clientLimiter
	lastGC  time.Time
}

type clientLimiter struct {
	limiter *rate.Limiter
	seen    time.Time
}

const limiterRetention = 10 * time.Minute

func newClientLimiters(limit rate.Limit, burst int) *clientLimiters {
	return &clientLimiters{
		limit:   limit,
		burst:   burst,
		clients: map[string]*clientLimiter{},
		lastGC:  time.Now(),
	}
}

func (l *clientLimiters) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	cl, ok := l.clients[ip]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[ip] = cl
	}
	cl.seen = now

	if now.Sub(l.lastGC) > limiterRetention {
		for k, v := range l.clients {
			if now.Sub(v.seen) > limiterRetention {
				delete(l.clients, k)
			}
		}
		l.lastGC = now
	}
	return cl.limiter.Allow()
}
