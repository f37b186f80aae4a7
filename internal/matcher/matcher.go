package matcher

import (
	"fmt"

	"afd-timebank/internal/models"
	"afd-timebank/internal/parsers"
	"afd-timebank/pkg/logger"
)

// Result is the resolved content of one AFD export
type Result struct {
	Employees []*models.Employee `json:"employees"`
	Punches   []models.Punch     `json:"punches"`
	Resolve   ResolveStats       `json:"resolve"`
	Bind      BindStats          `json:"bind"`
}

// UnresolvedPunches returns punches bound to no known employee
func (r *Result) UnresolvedPunches() []models.Punch {
	var out []models.Punch
	for _, p := range r.Punches {
		if !p.IsResolved() {
			out = append(out, p)
		}
	}
	return out
}

// Engine runs identity resolution and punch binding
type Engine struct {
	config *MatchingConfig
	logger logger.Logger
}

// NewEngine creates an engine. A nil config uses DefaultMatchingConfig.
func NewEngine(config *MatchingConfig) *Engine {
	if config == nil {
		config = DefaultMatchingConfig()
	}
	return &Engine{
		config: config,
		logger: logger.GetGlobalLogger().WithComponent("matching_engine"),
	}
}

// Process resolves identities first and binds punches second. Each call
// starts from an empty registry.
func (e *Engine) Process(extraction *parsers.Extraction) (*Result, error) {
	if extraction == nil {
		return nil, fmt.Errorf("extraction cannot be nil")
	}
	if err := e.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid matching configuration: %w", err)
	}

	registry := NewRegistry()

	resolver := NewResolver(e.config, registry)
	for _, rec := range extraction.Identities {
		resolver.Add(rec)
	}
	employees := resolver.Consolidate()

	binder := NewBinder(e.config, registry)
	punches := make([]models.Punch, 0, len(extraction.Punches))
	for _, rec := range extraction.Punches {
		punches = append(punches, binder.Bind(rec))
	}

	result := &Result{
		Employees: employees,
		Punches:   punches,
		Resolve:   resolver.Stats(),
		Bind:      binder.Stats(),
	}

	e.logger.WithFields(logger.Fields{
		"employees":  len(employees),
		"punches":    len(punches),
		"unresolved": result.Bind.Unresolved,
		"merged":     result.Resolve.ByPrefix + result.Resolve.ByName + result.Resolve.ByVariation,
	}).Info("identity resolution completed")

	return result, nil
}
