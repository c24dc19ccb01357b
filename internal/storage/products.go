package storage

import (
	"sync"

	"github.com/lehigh-university-libraries/alttext/internal/models"
)

// ProductSet is the working set of fetched products, kept in fetch order
type ProductSet struct {
	products []models.Product
	index    map[string]int
	mu       sync.RWMutex
}

func NewProductSet() *ProductSet {
	return &ProductSet{
		index: make(map[string]int),
	}
}

// Replace swaps the whole working set, as after a re-fetch
func (s *ProductSet) Replace(products []models.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.products = products
	s.index = make(map[string]int, len(products))
	for i, p := range products {
		s.index[p.ID] = i
	}
	// numeric tails of gids are accepted too, unless they shadow a full id
	for i, p := range products {
		short := models.ShortID(p.ID)
		if _, taken := s.index[short]; !taken {
			s.index[short] = i
		}
	}
}

// Get returns a pointer to the live product so image fields can be edited in
// place. productID may be the full gid or its numeric tail.
func (s *ProductSet) Get(productID string) (*models.Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, exists := s.index[productID]
	if !exists {
		return nil, false
	}
	return &s.products[i], true
}

// GetAll returns the live slice of products
func (s *ProductSet) GetAll() []models.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.products
}

func (s *ProductSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.products)
}
