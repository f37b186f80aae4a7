package matcher

import (
	"github.com/google/uuid"

	"afd-timebank/internal/models"
	"afd-timebank/internal/parsers"
	"afd-timebank/pkg/logger"
)

// BindStats counts punches per binding rule
type BindStats struct {
	Punches     int `json:"punches"`
	ByKey       int `json:"byKey"`
	ByAlternate int `json:"byAlternate"`
	ByVariation int `json:"byVariation"`
	Unresolved  int `json:"unresolved"`
}

// Binder attaches punch records to employees of a resolved registry
type Binder struct {
	config   *MatchingConfig
	registry *Registry
	logger   logger.Logger
	stats    BindStats
	newID    func() string
}

// NewBinder creates a binder reading from registry
func NewBinder(config *MatchingConfig, registry *Registry) *Binder {
	if config == nil {
		config = DefaultMatchingConfig()
	}
	return &Binder{
		config:   config,
		registry: registry,
		logger:   logger.GetGlobalLogger().WithComponent("punch_binder"),
		newID:    uuid.NewString,
	}
}

// Bind converts a punch record into a punch. Unresolved punches carry the
// raw key as employee id and an empty name.
func (b *Binder) Bind(rec parsers.PunchRecord) models.Punch {
	b.stats.Punches++

	punch := models.Punch{
		ID:             b.newID(),
		SequenceNumber: rec.SequenceNumber,
		Identifier:     rec.Key,
		EmployeeID:     rec.Key,
		Date:           rec.Date,
		Time:           rec.Time,
		Origin:         models.OriginFile,
	}

	if e := b.resolve(rec); e != nil {
		punch.EmployeeID = e.ID
		punch.EmployeeName = e.Name
		return punch
	}

	b.stats.Unresolved++
	b.logger.WithFields(logger.Fields{
		"line": rec.Line,
		"key":  rec.Key,
	}).Debug("punch does not match any employee")
	return punch
}

func (b *Binder) resolve(rec parsers.PunchRecord) *models.Employee {
	for _, id := range []string{rec.Key, rec.RawIdentifier, PadKey(rec.RawIdentifier), PadKey(rec.Key)} {
		if e, ok := b.registry.LookupID(id); ok {
			b.stats.ByKey++
			return e
		}
	}

	for _, e := range b.registry.Employees() {
		for _, alt := range e.AlternateIDs {
			if alt == rec.Key {
				b.stats.ByAlternate++
				return e
			}
		}
	}

	for _, e := range b.registry.Employees() {
		if b.config.IsVariation(e.ID, rec.Key) {
			e.AddAlternate(rec.Key)
			b.registry.registerID(rec.Key, e)
			b.stats.ByVariation++
			return e
		}
	}

	return nil
}

// Stats returns the counters collected so far
func (b *Binder) Stats() BindStats {
	return b.stats
}
