// Package query exposes read access to the block store.
package query

import (
	"context"

	"github.com/roach88/dataserver/internal/block"
)

// Store is the read side of a block store. store.BlockStore satisfies it.
type Store interface {
	FindByType(ctx context.Context, blockType block.BlockType) ([]block.Record, error)
	FindByName(ctx context.Context, name string) (block.Record, bool, error)
}

// Service delegates lookups to its Store without adding logic.
type Service struct {
	store Store
}

// New creates a Service reading from st.
func New(st Store) *Service {
	return &Service{store: st}
}

// GetByType returns every record of blockType. No match is an empty slice.
func (s *Service) GetByType(ctx context.Context, blockType block.BlockType) ([]block.Record, error) {
	return s.store.FindByType(ctx, blockType)
}

// GetByName returns the record named name, if any.
func (s *Service) GetByName(ctx context.Context, name string) (block.Record, bool, error) {
	return s.store.FindByName(ctx, name)
}
