package matcher

import (
	"afd-timebank/internal/models"
)

// Registry indexes employees by identifier and by normalized name. One
// registry belongs to one Process call.
type Registry struct {
	byID      map[string]*models.Employee
	byName    map[string]*models.Employee
	employees []*models.Employee
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		byID:   make(map[string]*models.Employee),
		byName: make(map[string]*models.Employee),
	}
}

// registerID maps id and its zero-padded form to e
func (r *Registry) registerID(id string, e *models.Employee) {
	r.byID[id] = e
	r.byID[PadKey(id)] = e
}

func (r *Registry) add(e *models.Employee, normalized string) {
	r.employees = append(r.employees, e)
	r.byName[normalized] = e
	r.registerID(e.ID, e)
}

// LookupID returns the employee registered under id
func (r *Registry) LookupID(id string) (*models.Employee, bool) {
	e, ok := r.byID[id]
	return e, ok
}

// LookupName returns the employee registered under a normalized name
func (r *Registry) LookupName(normalized string) (*models.Employee, bool) {
	e, ok := r.byName[normalized]
	return e, ok
}

// Employees returns employees in first-sighting order
func (r *Registry) Employees() []*models.Employee {
	return r.employees
}

// Len returns the number of employees
func (r *Registry) Len() int {
	return len(r.employees)
}

// replace points every index entry of merged at survivor and drops merged
// from the ordered list.
func (r *Registry) replace(merged, survivor *models.Employee) {
	for id, e := range r.byID {
		if e == merged {
			r.byID[id] = survivor
		}
	}
	for name, e := range r.byName {
		if e == merged {
			r.byName[name] = survivor
		}
	}
	kept := r.employees[:0]
	for _, e := range r.employees {
		if e != merged {
			kept = append(kept, e)
		}
	}
	r.employees = kept
}
