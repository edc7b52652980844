package tools

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/NikitaSkrynnik/huly-cef-mcp/internal/entity"
	"github.com/NikitaSkrynnik/huly-cef-mcp/pkg/apperr"
	"github.com/NikitaSkrynnik/huly-cef-mcp/pkg/logg"
	"github.com/NikitaSkrynnik/huly-cef-mcp/pkg/tracing"
	"github.com/go-playground/validator/v10"
	"github.com/mark3labs/mcp-go/mcp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	registryName   = "ToolRegistry"
	registryTracer = "tools.registry"
)

// HandlerFunc runs one tool with validated, defaulted arguments.
type HandlerFunc[T any] func(ctx context.Context, dc *DispatchContext, args T) (Output, error)

// Descriptor binds a tool name to its schema and handler. It is immutable once
// registered.
type Descriptor struct {
	tool   mcp.Tool
	bind   func(raw map[string]any) (any, error)
	handle func(ctx context.Context, dc *DispatchContext, args any) (Output, error)
}

func (d *Descriptor) Name() string {
	return d.tool.Name
}

// Tool returns the MCP description of the tool, schema included.
func (d *Descriptor) Tool() mcp.Tool {
	return d.tool
}

// Registry holds the tool descriptors and dispatches calls to them. Handlers
// run one at a time: a call waits for any in-flight handler to finish, so a
// typing sequence is never interleaved with another tool's events.
type Registry struct {
	logger    *zap.Logger
	tracer    trace.Tracer
	dc        *DispatchContext
	validator *validator.Validate
	metrics   *Metrics

	mu          sync.RWMutex
	descriptors map[string]*Descriptor
	order       []string

	exec sync.Mutex
}

type Option func(*Registry)

// WithMetrics records every dispatched call in m.
func WithMetrics(m *Metrics) Option {
	return func(r *Registry) {
		r.metrics = m
	}
}

func NewRegistry(logger *zap.Logger, dc *DispatchContext, opts ...Option) *Registry {
	r := &Registry{
		logger:      logger.With(zap.String(logg.Layer, registryName)),
		tracer:      otel.Tracer(registryTracer),
		dc:          dc,
		validator:   newValidator(),
		descriptors: make(map[string]*Descriptor),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Register adds a tool whose arguments decode into T. Schema options describe
// the arguments for clients and for validation; T's validate tags add value
// constraints.
func Register[T any](r *Registry, name, description string, handler HandlerFunc[T], opts ...mcp.ToolOption) error {
	tool := mcp.NewTool(name, append([]mcp.ToolOption{mcp.WithDescription(description)}, opts...)...)

	d := &Descriptor{
		tool: tool,
		bind: func(raw map[string]any) (any, error) {
			return bindArgs[T](tool, r.validator, raw)
		},
		handle: func(ctx context.Context, dc *DispatchContext, args any) (Output, error) {
			return handler(ctx, dc, args.(T))
		},
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.descriptors[name]; exists {
		return &DuplicateToolError{Name: name}
	}

	r.descriptors[name] = d
	r.order = append(r.order, name)

	return nil
}

// Tools returns the descriptors in registration order.
func (r *Registry) Tools() []*Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Descriptor, len(r.order))
	for i, name := range r.order {
		out[i] = r.descriptors[name]
	}

	return out
}

// Dispatch validates raw against the named tool, runs its handler and encodes
// the result. Unknown names and invalid arguments fail before any handler runs;
// handler errors are returned, never folded into a text result.
func (r *Registry) Dispatch(ctx context.Context, name string, raw map[string]any) (blocks []entity.ContentBlock, err error) {
	const op = "Dispatch"
	logger := r.logger.With(zap.String(logg.Operation, op), zap.String(logg.Tool, name))

	started := time.Now()
	metricName := name

	ctx, step := tracing.StartSpan(ctx, r.tracer, logger, op, attribute.String("tool", name))
	defer func() {
		step.End(err)
		r.metrics.observe(metricName, err, time.Since(started))
	}()

	r.mu.RLock()
	d, ok := r.descriptors[name]
	r.mu.RUnlock()

	if !ok {
		metricName = unknownToolLabel

		return nil, &UnknownToolError{Name: name}
	}

	args, err := d.bind(raw)
	if err != nil {
		logger.Info("Rejected tool arguments", zap.Error(err))

		return nil, err
	}

	step.AddEvent("running handler")

	out, err := r.run(ctx, d, args)

	if err != nil {
		logger.Error("Tool handler failed", zap.Error(err))

		return nil, apperr.Wrap(name, apperr.CodeOf(err), err, map[string]any{
			apperr.MetaTool:  name,
			apperr.MetaStage: apperr.StageDispatch,
		})
	}

	blocks = Encode(out)
	if len(blocks) == 0 {
		return nil, apperr.Wrap(name, apperr.CodeInternal, errors.New("handler returned no output"), map[string]any{
			apperr.MetaTool: name,
		})
	}

	logger.Debug("Tool call finished", zap.Int("blocks", len(blocks)))

	return blocks, nil
}

// run holds the execution lock for one handler call. The lock is released
// even when the handler panics.
func (r *Registry) run(ctx context.Context, d *Descriptor, args any) (Output, error) {
	r.exec.Lock()
	defer r.exec.Unlock()

	return d.handle(ctx, r.dc, args)
}
