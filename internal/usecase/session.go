package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/NikitaSkrynnik/huly-cef-mcp/internal/entity"
	"github.com/NikitaSkrynnik/huly-cef-mcp/internal/ports"
	"github.com/NikitaSkrynnik/huly-cef-mcp/pkg/apperr"
	"github.com/NikitaSkrynnik/huly-cef-mcp/pkg/logg"
	"github.com/NikitaSkrynnik/huly-cef-mcp/pkg/tracing"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"k8s.io/utils/clock"
)

const (
	sessionManagerName = "SessionManager"
	sessionTracer      = "usecase.session"

	MsgSessionAlreadyStarted = "Browser session already started"
	MsgNoProfile             = "No profile specified. Please provide a profile name."
	MsgSessionNotStarted     = "Browser session not started. Please start a session first."
	unknownProvisionError    = "Unknown error"
)

var ErrSessionNotStarted = errors.New("browser session not started")

// SessionManager owns the single browser session of the process. Once started
// the session lives until Close, which only runs at shutdown.
type SessionManager struct {
	logger    *zap.Logger
	tracer    trace.Tracer
	resolver  ports.ProfileResolver
	connector ports.Connector
	clock     clock.PassiveClock

	mu      sync.RWMutex
	session *entity.Session
	conn    ports.BrowserConnection
}

func NewSessionManager(logger *zap.Logger, resolver ports.ProfileResolver, connector ports.Connector, clk clock.PassiveClock) *SessionManager {
	return &SessionManager{
		logger:    logger.With(zap.String(logg.Layer, sessionManagerName)),
		tracer:    otel.Tracer(sessionTracer),
		resolver:  resolver,
		connector: connector,
		clock:     clk,
	}
}

// Start opens the session for profile and returns the message to show the
// caller. Refusals (already started, empty profile, provisioning failure) are
// messages, not errors; err is only set when the lookup or the backend connection
// itself fails.
func (m *SessionManager) Start(ctx context.Context, profile string) (msg string, err error) {
	const op = "Start"
	logger := m.logger.With(zap.String(logg.Operation, op), zap.String(logg.Profile, profile))

	ctx, step := tracing.StartSpan(ctx, m.tracer, logger, op, attribute.String("profile", profile))
	defer func() {
		step.End(err)
	}()

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session != nil {
		logger.Info("Session already active", zap.String(logg.SessionID, m.session.ID.String()))

		return MsgSessionAlreadyStarted, nil
	}

	if profile == "" {
		return MsgNoProfile, nil
	}

	step.AddEvent("resolving profile")

	address, failure, err := m.resolver.Resolve(ctx, profile)
	if err != nil {
		return "", apperr.Wrap(op, apperr.CodeUnavailable, err, map[string]any{
			apperr.MetaReason:  "provision_lookup_failed",
			apperr.MetaStage:   apperr.StageProvision,
			apperr.MetaProfile: profile,
		})
	}

	if failure != "" || address == "" {
		if failure == "" {
			failure = unknownProvisionError
		}
		logger.Warn("Provisioning refused profile", zap.String("failure", failure))

		return fmt.Sprintf("Failed to start browser session: %s", failure), nil
	}

	step.AddEvent("connecting to backend")

	conn, err := m.connector.Connect(ctx, address)
	if err != nil {
		return "", apperr.Wrap(op, apperr.CodeUnavailable, err, map[string]any{
			apperr.MetaReason:  "connect_failed",
			apperr.MetaStage:   apperr.StageConnect,
			apperr.MetaProfile: profile,
		})
	}

	m.session = &entity.Session{
		ID:        uuid.New(),
		Profile:   profile,
		Address:   address,
		CreatedAt: m.clock.Now(),
	}
	m.conn = conn

	logger.Info("Browser session started",
		zap.String(logg.SessionID, m.session.ID.String()),
		zap.String(logg.Address, address))

	return fmt.Sprintf("Browser session started for profile: %s", profile), nil
}

// Active reports the current session, if any.
func (m *SessionManager) Active() (entity.Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.session == nil {
		return entity.Session{}, false
	}

	return *m.session, true
}

// Connection returns the backend connection or ErrSessionNotStarted.
func (m *SessionManager) Connection() (ports.BrowserConnection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.conn == nil {
		return nil, ErrSessionNotStarted
	}

	return m.conn, nil
}

func (m *SessionManager) Close(ctx context.Context) (err error) {
	const op = "Close"
	logger := m.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, m.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.conn == nil {
		return nil
	}

	logger.Info("Closing browser connection")

	if err := m.conn.Close(ctx); err != nil {
		return apperr.Wrap(op, apperr.CodeBackend, err, map[string]any{
			apperr.MetaReason: "close_failed",
		})
	}

	return nil
}
