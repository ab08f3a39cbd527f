package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/controlportero/portero-core/internal/audit"
	"github.com/controlportero/portero-core/internal/auth"
	"github.com/controlportero/portero-core/internal/camera"
	"github.com/controlportero/portero-core/internal/infrastructure/config"
	"github.com/controlportero/portero-core/internal/infrastructure/influxdb"
	"github.com/controlportero/portero-core/internal/infrastructure/logging"
	"github.com/controlportero/portero-core/internal/infrastructure/mqtt"
	"github.com/controlportero/portero-core/internal/notification"
	"github.com/controlportero/portero-core/internal/relay"
)

// gracefulShutdownTimeout is how long in-flight requests get to finish
// before the listener is torn down.
const gracefulShutdownTimeout = 10 * time.Second

// Deps carries the collaborators the API server needs. Config, Logger,
// Store, Ingestor and Distributor are required; the rest degrade
// gracefully when nil (MQTT and Influx are optional integrations).
type Deps struct {
	Config      *config.Config
	Logger      *logging.Logger
	Store       *notification.Store
	Ingestor    *notification.Service
	Distributor *notification.Distributor
	Relay       *relay.Gateway
	Cameras     *camera.Repository
	Users       auth.UserRepository
	Recorder    *audit.Recorder
	AuditRepo   audit.Repository
	MQTT        *mqtt.Client
	Influx      *influxdb.Client
	Version     string
}

// Server is the HTTP API server.
type Server struct {
	cfg      config.APIConfig
	wsCfg    config.WebSocketConfig
	security config.SecurityConfig
	camCfg   config.CameraConfig

	logger      *logging.Logger
	store       *notification.Store
	ingestor    *notification.Service
	distributor *notification.Distributor
	relay       *relay.Gateway
	cameras     *camera.Repository
	users       auth.UserRepository
	recorder    *audit.Recorder
	auditRepo   audit.Repository
	mqtt        *mqtt.Client
	influx      *influxdb.Client
	version     string

	httpServer *http.Server
	hub        *Hub
	tickets    *ticketStore
	cancel     context.CancelFunc
}

// New creates the API server and builds its router. It does not start
// listening; call Start.
func New(deps Deps) (*Server, error) {
	if deps.Config == nil {
		return nil, errors.New("api: config is required")
	}
	if deps.Logger == nil {
		return nil, errors.New("api: logger is required")
	}
	if deps.Store == nil || deps.Ingestor == nil || deps.Distributor == nil {
		return nil, errors.New("api: notification collaborators are required")
	}

	s := &Server{
		cfg:         deps.Config.API,
		wsCfg:       deps.Config.WebSocket,
		security:    deps.Config.Security,
		camCfg:      deps.Config.Camera,
		logger:      deps.Logger.With("component", "api"),
		store:       deps.Store,
		ingestor:    deps.Ingestor,
		distributor: deps.Distributor,
		relay:       deps.Relay,
		cameras:     deps.Cameras,
		users:       deps.Users,
		recorder:    deps.Recorder,
		auditRepo:   deps.AuditRepo,
		mqtt:        deps.MQTT,
		influx:      deps.Influx,
		version:     deps.Version,
		tickets:     newTicketStore(),
	}
	s.hub = newHub(s.logger)

	s.httpServer = &http.Server{
		Addr:         net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port)),
		Handler:      s.buildRouter(),
		ReadTimeout:  time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout: time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:  time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	return s, nil
}

// Start begins serving HTTP requests and wires notification push-out.
// It blocks until the listener stops; callers run it in a goroutine and
// use Close for shutdown.
func (s *Server) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	// Every appended notification fans out to WebSocket clients and,
	// when a broker is configured, onto the MQTT event topic.
	s.store.Notify(func(rec notification.Record) {
		s.hub.BroadcastEvent("notification.created", rec)
		s.publishNotificationEvent(rec)
	})

	go s.tickets.cleanLoop(runCtx)
	go s.reportStreamSessions(runCtx)

	s.logger.Info("api server starting",
		"addr", s.httpServer.Addr,
		"tls", s.cfg.TLS.Enabled,
	)

	var err error
	if s.cfg.TLS.Enabled {
		err = s.httpServer.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
	} else {
		err = s.httpServer.ListenAndServe()
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api server: %w", err)
	}
	return nil
}

// reportStreamSessions periodically records the live feed session count
// to the telemetry store.
func (s *Server) reportStreamSessions(ctx context.Context) {
	if s.influx == nil {
		return
	}
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.influx.WriteStreamSessions(s.distributor.SessionCount())
		}
	}
}

// Close gracefully shuts down the HTTP server and disconnects all
// WebSocket clients.
func (s *Server) Close() error {
	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.hub.CloseAll()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("api shutdown: %w", err)
	}
	s.logger.Info("api server stopped")
	return nil
}

// HealthCheck verifies the server is able to accept connections.
func (s *Server) HealthCheck(ctx context.Context) error {
	d := net.Dialer{}
	conn, err := d.DialContext(ctx, "tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("api health: %w", err)
	}
	return conn.Close()
}
