// Package server wires the control plane's dependencies — store,
// cache, auth, agent gateway, audit writer, job queue — into a chi
// router and drives its graceful-shutdown lifecycle, translating the
// teacher's Unix-socket-plus-TCP hub.Server into a cloud-only,
// Postgres-backed control plane with a single TCP listener.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/breeze-rmm/breeze/internal/agentgw"
	"github.com/breeze-rmm/breeze/internal/audit"
	"github.com/breeze-rmm/breeze/internal/auth"
	"github.com/breeze-rmm/breeze/internal/cache"
	"github.com/breeze-rmm/breeze/internal/config"
	"github.com/breeze-rmm/breeze/internal/cryptoutil"
	"github.com/breeze-rmm/breeze/internal/httpapi"
	"github.com/breeze-rmm/breeze/internal/queue"
	"github.com/breeze-rmm/breeze/internal/store"
	"github.com/breeze-rmm/breeze/internal/wsrelay"
)

// Server is a fully-wired Breeze control plane instance: one HTTP
// listener serving internal/httpapi's router, backed by Postgres,
// Redis, and the agent WebSocket registry.
type Server struct {
	cfg        *config.Config
	store      *store.Store
	cache      *cache.Cache
	agents     *wsrelay.AgentRegistry
	queue      *queue.Queue
	httpServer *http.Server
	shutdownCh chan struct{}
}

// New opens the store and cache, wires auth/agentgw/audit/queue, and
// builds the chi router, but does not start listening — call Run to
// serve.
func New(ctx context.Context, cfg *config.Config) (*Server, error) {
	st, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	c := cache.New(cfg.RedisURL, "", cfg.RedisDB)
	if err := c.Ping(ctx); err != nil {
		st.Close()
		return nil, fmt.Errorf("ping cache: %w", err)
	}

	tokens := auth.NewTokenManager([]byte(cfg.JWTSecret), []byte(cfg.JWTSecretPrevious), cfg.JWTIssuer)
	authSvc := auth.NewService(st, c, tokens, cfg.MFARecoveryCodePepper)

	mfaEnc, err := cryptoutil.NewEncryptor([]byte(cfg.MFAEncryptionKey))
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("build mfa encryptor: %w", err)
	}

	auditWriter := audit.NewWriter(st)

	var certs *agentgw.CertIssuer
	if cfg.CloudflareAPIToken != "" && cfg.CloudflareZoneID != "" {
		certs = agentgw.NewCertIssuer(http.DefaultClient, "https://api.cloudflare.com/client/v4", cfg.CloudflareAPIToken, cfg.CloudflareZoneID, 90*24*time.Hour)
	}
	gw := agentgw.NewGateway(st, c, auditWriter, certs, cfg.EnrollmentKeyPepper, agentgw.CertPolicyReissue)

	agents := wsrelay.NewAgentRegistry()
	q := queue.New(st, c)

	shutdownCh := make(chan struct{})

	router := httpapi.NewRouter(httpapi.Dependencies{
		Store:             st,
		Cache:             c,
		Tokens:            tokens,
		AuthService:       authSvc,
		Gateway:           gw,
		AuditWriter:       auditWriter,
		MFAEncryptor:      mfaEnc,
		MFAIssuer:         cfg.JWTIssuer,
		MFARecoveryPepper: cfg.MFARecoveryCodePepper,
		APITimeout:        cfg.APITimeout,
		MetricsToken:      cfg.MetricsScrapeToken,
		ShutdownCh:        shutdownCh,
	})

	return &Server{
		cfg:   cfg,
		store: st,
		cache: c,
		agents: agents,
		queue:  q,
		httpServer: &http.Server{
			Addr:              cfg.Addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		shutdownCh: shutdownCh,
	}, nil
}

// AgentRegistry exposes the live WebSocket connection registry so a
// caller (e.g. a remote-session mediator) can reach connected agents.
func (s *Server) AgentRegistry() *wsrelay.AgentRegistry { return s.agents }

// Queue exposes the durable job queue for a caller wiring background
// worker loops alongside Run.
func (s *Server) Queue() *queue.Queue { return s.queue }

// Run starts the HTTP listener and blocks until ctx is cancelled, then
// performs graceful shutdown: stop admitting new requests, warn
// connected agents, drain in-flight requests within cfg.ShutdownDrain,
// and close the store/cache. Unlike the teacher's Serve, there is no
// Unix socket (Breeze is a cloud control plane, not a local daemon
// with CLI-over-socket clients) and no WAL checkpoint step (Postgres
// has no local file to flush).
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		s.store.Close()
		return fmt.Errorf("listen: %w", err)
	}

	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		slog.Info("breeze control plane shutting down")

		close(s.shutdownCh)

		s.agents.Broadcast(context.Background(), wsrelay.Frame{Type: wsrelay.FrameControl, Payload: []byte(`{"event":"shutdown"}`)})

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownDrain)
		defer cancel()
		_ = s.httpServer.Shutdown(shutdownCtx)

		close(shutdownDone)
	}()

	errCh := make(chan error, 1)
	go func() { errCh <- s.httpServer.Serve(ln) }()

	slog.Info("breeze control plane listening", "addr", s.cfg.Addr)

	if err := <-errCh; err != nil && err != http.ErrServerClosed {
		s.store.Close()
		s.cache.Close()
		return fmt.Errorf("serve: %w", err)
	}

	<-shutdownDone
	s.store.Close()
	_ = s.cache.Close()
	return nil
}
