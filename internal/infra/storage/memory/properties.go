package memory

import (
	"context"
	"sort"
	"sync"

	"staysync/internal/app/uow"
	domainproperty "staysync/internal/domain/property"
)

// PropertyRepository is an in-memory implementation for local runs and tests.
type PropertyRepository struct {
	mu    sync.RWMutex
	items map[domainproperty.PropertyID]*domainproperty.Property
}

func NewPropertyRepository() *PropertyRepository {
	return &PropertyRepository{items: make(map[domainproperty.PropertyID]*domainproperty.Property)}
}

func (r *PropertyRepository) ByID(ctx context.Context, id domainproperty.PropertyID) (*domainproperty.Property, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.items[id]
	if !ok {
		return nil, domainproperty.ErrNotFound
	}
	return p.Clone(), nil
}

func (r *PropertyRepository) Save(ctx context.Context, p *domainproperty.Property) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var current int64
	if stored, ok := r.items[p.ID]; ok {
		current = stored.Version
	}
	if p.Version != current {
		return uow.ErrConcurrentUpdate
	}
	stored := p.Clone()
	stored.Version = current + 1
	r.items[p.ID] = stored
	p.Version = stored.Version
	return nil
}

func (r *PropertyRepository) WithExternalCalendar(ctx context.Context) ([]*domainproperty.Property, error) {
	return r.filter(func(p *domainproperty.Property) bool { return p.ExternalCalendarURL != "" }), nil
}

func (r *PropertyRepository) List(ctx context.Context) ([]*domainproperty.Property, error) {
	return r.filter(func(*domainproperty.Property) bool { return true }), nil
}

func (r *PropertyRepository) filter(keep func(*domainproperty.Property) bool) []*domainproperty.Property {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domainproperty.Property, 0)
	for _, p := range r.items {
		if keep(p) {
			out = append(out, p.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

var _ domainproperty.Repository = (*PropertyRepository)(nil)
