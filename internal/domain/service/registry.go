package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/termhost/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/termhost/internal/shared/types"
)

var (
	// ErrInvalidToolID is returned for tool IDs not of the form service.tool.
	ErrInvalidToolID = errors.New("invalid tool ID format")
	// ErrServiceNotFound is returned when no provider owns the tool's service.
	ErrServiceNotFound = errors.New("service not found")
	// ErrUnknownTool is returned by providers for tools they do not define.
	ErrUnknownTool = errors.New("unknown tool")
)

// Provider interface for service implementations
type Provider interface {
	Definition() types.Service
	Execute(ctx context.Context, toolID string, params map[string]any, appCtx *types.Context) (*types.Result, error)
}

// Registry manages service discovery and execution
type Registry struct {
	mu       sync.RWMutex
	services map[string]Provider

	logger  *zap.Logger
	metrics *monitoring.Metrics
}

// NewRegistry creates a new service registry
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		services: make(map[string]Provider),
		logger:   logger.Named("services"),
	}
}

// WithMetrics records tool call counts and durations.
func (r *Registry) WithMetrics(m *monitoring.Metrics) *Registry {
	r.metrics = m
	return r
}

// Register adds a service provider. Registering an ID twice is an error.
func (r *Registry) Register(provider Provider) error {
	def := provider.Definition()
	if def.ID == "" {
		return fmt.Errorf("service ID cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.services[def.ID]; exists {
		return fmt.Errorf("service already registered: %s", def.ID)
	}
	r.services[def.ID] = provider
	r.logger.Debug("Service registered", zap.String("service", def.ID), zap.Int("tools", len(def.Tools)))
	return nil
}

// Unregister removes a service provider
func (r *Registry) Unregister(serviceID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.services, serviceID)
}

// Get retrieves a service by ID
func (r *Registry) Get(serviceID string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.services[serviceID]
	return p, ok
}

func (r *Registry) definitions() []types.Service {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]types.Service, 0, len(r.services))
	for _, p := range r.services {
		defs = append(defs, p.Definition())
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].ID < defs[j].ID })
	return defs
}

// List returns registered services sorted by ID, optionally filtered by
// category.
func (r *Registry) List(category *types.Category) []types.Service {
	defs := r.definitions()
	if category == nil {
		return defs
	}
	out := defs[:0]
	for _, def := range defs {
		if def.Category == *category {
			out = append(out, def)
		}
	}
	return out
}

// Discover finds relevant services for a given intent
func (r *Registry) Discover(intent string, limit int) []types.Service {
	type scored struct {
		service types.Service
		score   float64
	}

	intent = strings.ToLower(intent)
	var results []scored
	for _, def := range r.definitions() {
		if score := relevance(intent, def); score > 0 {
			results = append(results, scored{service: def, score: score})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].score > results[j].score
	})

	output := make([]types.Service, 0, limit)
	for i := 0; i < len(results) && i < limit; i++ {
		output = append(output, results[i].service)
	}
	return output
}

// Execute runs a service tool. Failures are reported both as an error and as
// an unsuccessful Result.
func (r *Registry) Execute(ctx context.Context, toolID string, params map[string]any, appCtx *types.Context) (*types.Result, error) {
	serviceID, _, ok := strings.Cut(toolID, ".")
	if !ok || serviceID == "" {
		err := fmt.Errorf("%w: %s", ErrInvalidToolID, toolID)
		return types.Failure(err), err
	}

	provider, ok := r.Get(serviceID)
	if !ok {
		err := fmt.Errorf("%w: %s", ErrServiceNotFound, serviceID)
		return types.Failure(err), err
	}
	if params == nil {
		params = map[string]any{}
	}

	var timer *monitoring.Timer
	if r.metrics != nil {
		timer = monitoring.NewTimer(r.metrics, serviceID, toolID)
	}

	result, err := provider.Execute(ctx, toolID, params, appCtx)
	if err != nil {
		timer.Stop("error")
		r.logger.Debug("Tool call failed", zap.String("tool", toolID), zap.Error(err))
		return types.Failure(err), err
	}
	timer.Stop("success")
	return result, nil
}

// Stats returns registry statistics
func (r *Registry) Stats() map[string]any {
	var totalTools int
	categories := make(map[string]int)

	defs := r.definitions()
	for _, def := range defs {
		totalTools += len(def.Tools)
		categories[string(def.Category)]++
	}

	return map[string]any{
		"total_services": len(defs),
		"total_tools":    totalTools,
		"categories":     categories,
	}
}

func relevance(intent string, service types.Service) float64 {
	score := 0.0

	if strings.Contains(intent, service.ID) || strings.Contains(intent, strings.ToLower(service.Name)) {
		score += 10.0
	}
	for _, word := range strings.Fields(strings.ToLower(service.Description)) {
		if len(word) > 2 && strings.Contains(intent, word) {
			score += 5.0
		}
	}
	for _, capability := range service.Capabilities {
		if strings.Contains(intent, strings.ReplaceAll(strings.ToLower(capability), "_", " ")) {
			score += 3.0
		}
	}
	if strings.Contains(intent, string(service.Category)) {
		score += 2.0
	}
	return score
}
