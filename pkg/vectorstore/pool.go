package vectorstore

import (
	"sync"

	"gorm.io/gorm"
)

// OpenFunc opens the database handle backing one tenant's collections.
type OpenFunc func(tenant string) (*gorm.DB, error)

// SharedDB is the OpenFunc for single-database deployments: every tenant
// shares one connection pool and isolation happens at the table level.
func SharedDB(db *gorm.DB) OpenFunc {
	return func(string) (*gorm.DB, error) {
		return db, nil
	}
}

// Pool is the process-wide tenant connection registry. It guarantees at most
// one live TenantStore per tenant, created lazily on first use.
type Pool struct {
	mu     sync.Mutex
	open   OpenFunc
	stores map[string]*TenantStore
}

func NewPool(open OpenFunc) *Pool {
	return &Pool{
		open:   open,
		stores: make(map[string]*TenantStore),
	}
}

// Get returns the store for a tenant, opening it on first request.
func (p *Pool) Get(tenant string) (*TenantStore, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if s, ok := p.stores[tenant]; ok {
		return s, nil
	}

	db, err := p.open(tenant)
	if err != nil {
		return nil, err
	}
	s := &TenantStore{db: db, tenant: tenant}
	p.stores[tenant] = s
	return s, nil
}

// Tenants lists the tenants with live connections, for diagnostics.
func (p *Pool) Tenants() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.stores))
	for t := range p.stores {
		out = append(out, t)
	}
	return out
}
