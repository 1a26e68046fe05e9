package product

import (
	"context"
	"sync"
)

// MemoryStore keeps inventory in process, serialized under one mutex; the
// check-and-decrement in Deduct happens entirely inside the critical
// section.
type MemoryStore struct {
	mu       sync.RWMutex
	products map[int]Product
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{products: make(map[int]Product)}
}

func (s *MemoryStore) Get(_ context.Context, id int) (Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	if !ok {
		return Product{}, ErrNotFound
	}
	return p, nil
}

func (s *MemoryStore) Create(_ context.Context, p Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[p.ID]; ok {
		return ErrDuplicateID
	}
	s.products[p.ID] = p
	return nil
}

func (s *MemoryStore) Update(_ context.Context, id int, name, description *string, price *float64, quantity *int) (Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return Product{}, ErrNotFound
	}
	if name != nil {
		p.Name = *name
	}
	if description != nil {
		p.Description = *description
	}
	if price != nil {
		p.Price = *price
	}
	if quantity != nil {
		p.Quantity = *quantity
	}
	s.products[id] = p
	return p, nil
}

func (s *MemoryStore) Delete(_ context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[id]; !ok {
		return ErrNotFound
	}
	delete(s.products, id)
	return nil
}

func (s *MemoryStore) Deduct(_ context.Context, id, qty int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return 0, ErrNotFound
	}
	if p.Quantity < qty {
		return 0, ErrInsufficientStock
	}
	p.Quantity -= qty
	s.products[id] = p
	return p.Quantity, nil
}
