// Package service runs archipilot as a long-lived chat worker: it
// consumes user messages from NATS, dispatches slash commands against
// the vault, and publishes responses, with Prometheus metrics and a
// health endpoint on the side.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"

	"github.com/enzomar/archipilot/config"
	"github.com/enzomar/archipilot/dispatch"
	"github.com/enzomar/archipilot/vault"
)

const (
	// SubjectChatMessage is where inbound user messages arrive.
	SubjectChatMessage = "archipilot.chat.message"

	// ResponseSubjectPrefix is completed by the channel ID so chat
	// bridges can subscribe per channel.
	ResponseSubjectPrefix = "archipilot.chat.response."

	// QueueGroup load-balances commands across worker replicas.
	QueueGroup = "archipilot"

	// maxInflight bounds concurrent command executions per worker.
	maxInflight = 8

	watchDebounce = 500 * time.Millisecond
	pruneInterval = 10 * time.Minute
)

// Service wires the NATS consumer, the command dispatcher, the vault
// watcher, and the HTTP sidecar together.
type Service struct {
	cfg     *config.Config
	cmdCtx  *dispatch.CommandContext
	logger  *slog.Logger
	metrics *Metrics

	embedded *server.Server
	conn     *nats.Conn
	httpSrv  *http.Server

	inflight chan struct{}
}

// New builds a service around an initialized command context.
func New(cfg *config.Config, cmdCtx *dispatch.CommandContext, logger *slog.Logger) *Service {
	return &Service{
		cfg:      cfg,
		cmdCtx:   cmdCtx,
		logger:   logger,
		metrics:  NewMetrics(),
		inflight: make(chan struct{}, maxInflight),
	}
}

// Run starts all components and blocks until the context is canceled.
func (s *Service) Run(ctx context.Context) error {
	if err := s.startNATS(); err != nil {
		return err
	}
	defer s.stopNATS()

	sub, err := s.conn.QueueSubscribe(SubjectChatMessage, QueueGroup, func(msg *nats.Msg) {
		s.handleMessage(ctx, msg)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", SubjectChatMessage, err)
	}
	defer sub.Unsubscribe()

	s.metrics.SetVaultCounts(s.cmdCtx.Index())
	s.startHTTP()
	defer s.stopHTTP()

	var wg sync.WaitGroup

	if s.cfg.Vault.Watch {
		watcher, err := vault.NewWatcher(s.cmdCtx.Vault, s.logger, watchDebounce)
		if err != nil {
			return fmt.Errorf("start vault watcher: %w", err)
		}
		wg.Add(2)
		go func() {
			defer wg.Done()
			if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Error("vault watcher stopped", "error", err)
			}
		}()
		go func() {
			defer wg.Done()
			s.consumeChanges(ctx, watcher)
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.pruneLoop(ctx)
	}()

	s.logger.Info("archipilot serving",
		"subject", SubjectChatMessage,
		"queue", QueueGroup,
		"http", s.cfg.HTTP.Addr,
		"vault", s.cmdCtx.Vault.Root())

	<-ctx.Done()
	wg.Wait()
	return nil
}

// handleMessage processes one inbound chat message.
func (s *Service) handleMessage(ctx context.Context, msg *nats.Msg) {
	select {
	case s.inflight <- struct{}{}:
	case <-ctx.Done():
		return
	}
	defer func() { <-s.inflight }()

	var userMsg dispatch.UserMessage
	if err := json.Unmarshal(msg.Data, &userMsg); err != nil {
		s.logger.Warn("dropping malformed message", "error", err)
		s.metrics.ObserveCommand("", "malformed", 0)
		return
	}

	start := time.Now()
	resp, err := dispatch.Dispatch(ctx, s.cmdCtx, userMsg)
	elapsed := time.Since(start)

	status := "ok"
	if err != nil {
		status = "failed"
	} else if resp.Type == dispatch.ResponseTypeError {
		status = "rejected"
	}
	s.metrics.ObserveCommand(resp.Command, status, elapsed.Seconds())

	if err := s.publishResponse(resp); err != nil {
		s.logger.Error("publish response failed",
			"channel", resp.ChannelID,
			"command", resp.Command,
			"error", err)
	}
}

func (s *Service) publishResponse(resp dispatch.UserResponse) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("marshal response: %w", err)
	}
	return s.conn.Publish(ResponseSubjectPrefix+resp.ChannelID, data)
}

// consumeChanges refreshes the index when the vault changes on disk.
func (s *Service) consumeChanges(ctx context.Context, watcher *vault.Watcher) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events():
			if !ok {
				return
			}
			if err := s.cmdCtx.RefreshIndex(); err != nil {
				s.logger.Error("index refresh failed", "error", err)
				continue
			}
			s.metrics.indexRebuilds.Inc()
			s.metrics.SetVaultCounts(s.cmdCtx.Index())
			s.logger.Debug("vault index refreshed", "changed", len(event.Paths))
		}
	}
}

// pruneLoop removes expired pending edits.
func (s *Service) pruneLoop(ctx context.Context) {
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.cmdCtx.Vault.PrunePending(time.Now())
			if err != nil {
				s.logger.Warn("pending prune failed", "error", err)
				continue
			}
			if n > 0 {
				s.metrics.pendingPruned.Add(float64(n))
				s.logger.Info("pruned expired pending edits", "count", n)
			}
		}
	}
}

// startNATS connects to the configured server, or boots an embedded one.
// ARCHIPILOT_NATS_URL overrides the configured URL.
func (s *Service) startNATS() error {
	url := s.cfg.NATS.URL
	if env := os.Getenv("ARCHIPILOT_NATS_URL"); env != "" {
		url = env
	}

	if url == "" && s.cfg.NATS.Embedded {
		opts := &server.Options{
			Port:   -1,
			NoLog:  true,
			NoSigs: true,
		}
		ns, err := server.NewServer(opts)
		if err != nil {
			return fmt.Errorf("create embedded NATS server: %w", err)
		}
		go ns.Start()
		if !ns.ReadyForConnections(5 * time.Second) {
			ns.Shutdown()
			return fmt.Errorf("embedded NATS server failed to start")
		}
		s.embedded = ns
		url = ns.ClientURL()
		s.logger.Info("embedded NATS server started", "url", url)
	}

	conn, err := nats.Connect(url,
		nats.Name("archipilot"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				s.logger.Warn("NATS disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			s.logger.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return fmt.Errorf("connect to NATS at %s: %w", url, err)
	}
	s.conn = conn
	return nil
}

func (s *Service) stopNATS() {
	if s.conn != nil {
		if err := s.conn.Drain(); err != nil {
			s.logger.Warn("NATS drain failed", "error", err)
		}
		s.conn.Close()
	}
	if s.embedded != nil {
		s.embedded.Shutdown()
		s.embedded.WaitForShutdown()
	}
}

// startHTTP serves /metrics and /healthz.
func (s *Service) startHTTP() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", s.metrics.Handler())
	mux.HandleFunc("/healthz", s.handleHealthz)

	s.httpSrv = &http.Server{
		Addr:              s.cfg.HTTP.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP listener stopped", "addr", s.cfg.HTTP.Addr, "error", err)
		}
	}()
}

func (s *Service) stopHTTP() {
	if s.httpSrv == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("HTTP shutdown failed", "error", err)
	}
}

func (s *Service) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	type health struct {
		Status    string    `json:"status"`
		NATS      bool      `json:"nats_connected"`
		Documents int       `json:"documents"`
		IndexedAt time.Time `json:"indexed_at"`
	}

	idx := s.cmdCtx.Index()
	h := health{
		Status:    "ok",
		NATS:      s.conn != nil && s.conn.IsConnected(),
		Documents: len(idx.Records()),
		IndexedAt: idx.BuiltAt(),
	}
	w.Header().Set("Content-Type", "application/json")
	if !h.NATS {
		h.Status = "degraded"
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(h)
}
