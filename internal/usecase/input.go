package usecase

import (
	"context"
	"time"

	"github.com/NikitaSkrynnik/huly-cef-mcp/internal/entity"
	"github.com/NikitaSkrynnik/huly-cef-mcp/internal/ports"
	"github.com/NikitaSkrynnik/huly-cef-mcp/pkg/apperr"
	"github.com/NikitaSkrynnik/huly-cef-mcp/pkg/logg"
	"github.com/NikitaSkrynnik/huly-cef-mcp/pkg/tracing"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"k8s.io/utils/clock"
)

const (
	inputSequencerName = "InputSequencer"
	inputTracer        = "usecase.input"
)

// InputSequencer emits paced input events. Both sequences run to completion
// once started: the caller's cancellation is detached from the backend calls
// and the pauses are not interruptible.
type InputSequencer struct {
	logger       *zap.Logger
	tracer       trace.Tracer
	clock        clock.Clock
	keySettle    time.Duration
	typeInterval time.Duration
}

func NewInputSequencer(logger *zap.Logger, clk clock.Clock, keySettle, typeInterval time.Duration) *InputSequencer {
	return &InputSequencer{
		logger:       logger.With(zap.String(logg.Layer, inputSequencerName)),
		tracer:       otel.Tracer(inputTracer),
		clock:        clk,
		keySettle:    keySettle,
		typeInterval: typeInterval,
	}
}

// PressKey sends key-down, waits the settle interval and sends key-up for the
// same code and modifiers.
func (s *InputSequencer) PressKey(ctx context.Context, conn ports.BrowserConnection, tabID int, code entity.KeyCode, mods entity.Modifier) (err error) {
	const op = "PressKey"
	logger := s.logger.With(zap.String(logg.Operation, op), zap.Int(logg.TabID, tabID))

	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op,
		attribute.Int("tab_id", tabID),
		attribute.Int("key_code", int(code)))
	defer func() {
		step.End(err)
	}()

	ctx = context.WithoutCancel(ctx)

	down := entity.KeyEvent{Code: code, Modifiers: mods, Down: true}
	if err := conn.KeyEvent(ctx, tabID, down); err != nil {
		return apperr.Wrap(op, apperr.CodeBackend, err, map[string]any{
			apperr.MetaReason: "key_down_failed",
			apperr.MetaStage:  apperr.StageInput,
			apperr.MetaTabID:  tabID,
		})
	}

	s.clock.Sleep(s.keySettle)

	up := entity.KeyEvent{Code: code, Modifiers: mods, Down: false}
	if err := conn.KeyEvent(ctx, tabID, up); err != nil {
		return apperr.Wrap(op, apperr.CodeBackend, err, map[string]any{
			apperr.MetaReason: "key_up_failed",
			apperr.MetaStage:  apperr.StageInput,
			apperr.MetaTabID:  tabID,
		})
	}

	return nil
}

// Type sends one character event per code point of text, pausing the type
// interval after each. It returns how many events were sent.
func (s *InputSequencer) Type(ctx context.Context, conn ports.BrowserConnection, tabID int, text string) (sent int, err error) {
	const op = "Type"
	logger := s.logger.With(zap.String(logg.Operation, op), zap.Int(logg.TabID, tabID))

	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op,
		attribute.Int("tab_id", tabID),
		attribute.Int("length", len(text)))
	defer func() {
		step.End(err)
	}()

	ctx = context.WithoutCancel(ctx)

	for _, r := range text {
		if err := conn.CharEvent(ctx, tabID, r); err != nil {
			return sent, apperr.Wrap(op, apperr.CodeBackend, err, map[string]any{
				apperr.MetaReason: "char_event_failed",
				apperr.MetaStage:  apperr.StageInput,
				apperr.MetaTabID:  tabID,
				"sent":            sent,
			})
		}
		sent++

		s.clock.Sleep(s.typeInterval)
	}

	logger.Debug("Typed text", zap.Int("events", sent))

	return sent, nil
}
