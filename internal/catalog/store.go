package catalog

import (
	"errors"
	"slices"
)

// ErrProductNotFound is returned when a product id is not in the store.
var ErrProductNotFound = errors.New("product not found")

// Store is an ordered, immutable sequence of validated products. Insertion
// order is the order of the source file.
type Store struct {
	products []Product
	byID     map[string]int
}

// NewStore builds a store from products. The slice is copied; later changes
// to it are not visible through the store. When ids repeat, Get resolves to
// the first occurrence.
func NewStore(products []Product) *Store {
	s := &Store{
		products: slices.Clone(products),
		byID:     make(map[string]int, len(products)),
	}
	for i, p := range s.products {
		if _, dup := s.byID[p.ID]; !dup {
			s.byID[p.ID] = i
		}
	}
	return s
}

// Len returns the number of products.
func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return len(s.products)
}

// Products returns a copy of the catalog in insertion order.
func (s *Store) Products() []Product {
	if s == nil {
		return []Product{}
	}
	return slices.Clone(s.products)
}

// Get looks a product up by id.
func (s *Store) Get(id string) (Product, error) {
	if s != nil {
		if i, ok := s.byID[id]; ok {
			return s.products[i], nil
		}
	}
	return Product{}, ErrProductNotFound
}

// Query runs q against a snapshot of the store.
func (s *Store) Query(q Query) (Result, error) {
	if s == nil {
		return q.Run(nil)
	}
	return q.Run(s.products)
}
