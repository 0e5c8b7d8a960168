package memory

import (
	"context"
	"fmt"

	"insurance-settlement/internal/core/domain"

	"github.com/google/uuid"
)

// PartyRepo implements ports.PartyRepository.
type PartyRepo struct{ s *Store }

func (s *Store) Parties() *PartyRepo { return &PartyRepo{s: s} }

func (r *PartyRepo) CreateManager(_ context.Context, m *domain.Manager) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.managers[m.ID]; ok {
		return fmt.Errorf("insert manager: duplicate id %s", m.ID)
	}
	r.s.managers[m.ID] = *m
	return nil
}

func (r *PartyRepo) CreateAgent(_ context.Context, a *domain.Agent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.agents[a.ID]; ok {
		return fmt.Errorf("insert agent: duplicate id %s", a.ID)
	}
	if _, ok := r.s.managers[a.ManagerID]; !ok {
		return fmt.Errorf("insert agent: unknown manager %s", a.ManagerID)
	}
	r.s.agents[a.ID] = *a
	return nil
}

func (r *PartyRepo) GetManager(_ context.Context, id uuid.UUID) (*domain.Manager, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	m, ok := r.s.managers[id]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

func (r *PartyRepo) GetAgent(_ context.Context, id uuid.UUID) (*domain.Agent, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	a, ok := r.s.agents[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

// ProductRepo implements ports.ProductRepository.
type ProductRepo struct{ s *Store }

func (s *Store) Products() *ProductRepo { return &ProductRepo{s: s} }

func (r *ProductRepo) Create(_ context.Context, p *domain.Product) error {
	if p.Calculation == nil {
		return fmt.Errorf("insert product: missing premium calculation")
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.products[p.ID] = *p
	return nil
}

func (r *ProductRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.products[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// ClientRepo implements ports.ClientRepository.
type ClientRepo struct{ s *Store }

func (s *Store) Clients() *ClientRepo { return &ClientRepo{s: s} }

func (r *ClientRepo) Create(_ context.Context, c *domain.Client) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.clients[c.ID] = *c
	return nil
}

func (r *ClientRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Client, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.clients[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}
