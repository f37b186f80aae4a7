package matcher

import (
	"afd-timebank/internal/models"
	"afd-timebank/internal/parsers"
	"afd-timebank/pkg/logger"
)

// Resolution tells which rule placed an identity record
type Resolution int

const (
	ResolvedNew Resolution = iota
	ResolvedByPrefix
	ResolvedByName
	ResolvedByVariation
)

func (r Resolution) String() string {
	switch r {
	case ResolvedByPrefix:
		return "prefix"
	case ResolvedByName:
		return "name"
	case ResolvedByVariation:
		return "variation"
	default:
		return "new"
	}
}

// ResolveStats counts identity records per resolution rule
type ResolveStats struct {
	Records      int `json:"records"`
	Created      int `json:"created"`
	ByPrefix     int `json:"byPrefix"`
	ByName       int `json:"byName"`
	ByVariation  int `json:"byVariation"`
	Consolidated int `json:"consolidated"`
}

// Resolver builds the employee registry from identity records
type Resolver struct {
	config   *MatchingConfig
	registry *Registry
	logger   logger.Logger
	stats    ResolveStats
}

// NewResolver creates a resolver writing into registry
func NewResolver(config *MatchingConfig, registry *Registry) *Resolver {
	if config == nil {
		config = DefaultMatchingConfig()
	}
	return &Resolver{
		config:   config,
		registry: registry,
		logger:   logger.GetGlobalLogger().WithComponent("identity_resolver"),
	}
}

// Add places one identity record and returns the employee it ended up on
func (r *Resolver) Add(rec parsers.IdentityRecord) (*models.Employee, Resolution) {
	r.stats.Records++
	normalized := NormalizeName(rec.Name)

	if base, ok := r.config.stripPrefixArtifact(normalized); ok {
		if e, found := r.registry.LookupName(base); found {
			r.attach(e, rec.Key)
			r.stats.ByPrefix++
			return e, ResolvedByPrefix
		}
	}

	if e, found := r.registry.LookupName(normalized); found {
		r.attach(e, rec.Key)
		r.stats.ByName++
		return e, ResolvedByName
	}

	if e := r.findVariation(rec.Key); e != nil {
		r.attach(e, rec.Key)
		r.stats.ByVariation++
		r.logger.WithFields(logger.Fields{
			"line":     rec.Line,
			"key":      rec.Key,
			"employee": e.ID,
		}).Debug("identifier resolved as a variation")
		return e, ResolvedByVariation
	}

	e := models.NewEmployee(rec.Key, rec.Name)
	r.registry.add(e, normalized)
	r.stats.Created++
	return e, ResolvedNew
}

func (r *Resolver) attach(e *models.Employee, key string) {
	e.AddAlternate(key)
	r.registry.registerID(key, e)
}

// findVariation looks for an employee already owning key, primary or
// alternate, then scans every primary identifier for a variation of it. An
// identifier never ends up on two employees.
func (r *Resolver) findVariation(key string) *models.Employee {
	if e, ok := r.registry.LookupID(key); ok {
		return e
	}
	for _, e := range r.registry.Employees() {
		if r.config.IsVariation(e.ID, key) {
			return e
		}
	}
	return nil
}

// Consolidate merges employees that share a normalized name and returns the
// registry in first-sighting order.
func (r *Resolver) Consolidate() []*models.Employee {
	seen := make(map[string]*models.Employee)

	for _, e := range append([]*models.Employee(nil), r.registry.Employees()...) {
		normalized := NormalizeName(e.Name)
		survivor, ok := seen[normalized]
		if !ok {
			seen[normalized] = e
			continue
		}

		survivor.AddAlternate(e.ID)
		for _, alt := range e.AlternateIDs {
			survivor.AddAlternate(alt)
		}
		r.registry.replace(e, survivor)
		r.stats.Consolidated++
	}

	return r.registry.Employees()
}

// Stats returns the counters collected so far
func (r *Resolver) Stats() ResolveStats {
	return r.stats
}
