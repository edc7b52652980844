package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"

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
	tabRegistryName = "TabRegistry"
	tabTracer       = "usecase.tabs"
)

// TabNotFoundError is returned by TabRegistry.Get for ids it never handed out.
// Its message is shown to callers verbatim.
type TabNotFoundError struct {
	ID int
}

func (e *TabNotFoundError) Error() string {
	return fmt.Sprintf("No tab found with ID %d", e.ID)
}

type TabRegistry struct {
	logger *zap.Logger
	tracer trace.Tracer
	clock  clock.PassiveClock

	mu   sync.RWMutex
	tabs map[int]entity.TabHandle
}

func NewTabRegistry(logger *zap.Logger, clk clock.PassiveClock) *TabRegistry {
	return &TabRegistry{
		logger: logger.With(zap.String(logg.Layer, tabRegistryName)),
		tracer: otel.Tracer(tabTracer),
		clock:  clk,
		tabs:   make(map[int]entity.TabHandle),
	}
}

// Open asks the backend for a new page and records the handle under the id the
// backend assigned.
func (r *TabRegistry) Open(ctx context.Context, conn ports.BrowserConnection, url string) (tab entity.TabHandle, err error) {
	const op = "Open"
	logger := r.logger.With(zap.String(logg.Operation, op), zap.String(logg.URL, url))

	ctx, step := tracing.StartSpan(ctx, r.tracer, logger, op, attribute.String("url", url))
	defer func() {
		step.End(err)
	}()

	id, err := conn.OpenTab(ctx, url)
	if err != nil {
		return entity.TabHandle{}, apperr.Wrap(op, apperr.CodeBackend, err, map[string]any{
			apperr.MetaReason: "open_tab_failed",
			apperr.MetaStage:  apperr.StageNavigation,
			apperr.MetaURL:    url,
		})
	}

	tab = entity.TabHandle{
		ID:       id,
		URL:      url,
		OpenedAt: r.clock.Now(),
	}

	r.mu.Lock()
	if _, exists := r.tabs[id]; exists {
		logger.Warn("Backend reused a tab id, replacing handle", zap.Int(logg.TabID, id))
	}
	r.tabs[id] = tab
	r.mu.Unlock()

	step.SetAttributes(attribute.Int("tab_id", id))
	logger.Info("Tab opened", zap.Int(logg.TabID, id))

	return tab, nil
}

func (r *TabRegistry) Get(id int) (entity.TabHandle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tab, ok := r.tabs[id]
	if !ok {
		return entity.TabHandle{}, &TabNotFoundError{ID: id}
	}

	return tab, nil
}

// All returns every known tab ordered by id.
func (r *TabRegistry) All() []entity.TabHandle {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]entity.TabHandle, 0, len(r.tabs))
	for _, tab := range r.tabs {
		out = append(out, tab)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].ID < out[j].ID
	})

	return out
}
