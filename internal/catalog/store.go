package catalog

import (
	"context"
	"errors"
)

var (
	ErrDuplicateID = errors.New("item id already exists")
	ErrNilItem     = errors.New("item payload is nil")
)

// Store is the authoritative item collection. Lists come back in insertion
// order. Get reports absence through found=false, never through an error.
type Store interface {
	Ping(ctx context.Context) error
	List(ctx context.Context) ([]Item, error)
	Get(ctx context.Context, id string) (Item, bool, error)
	Create(ctx context.Context, in *Item) (Item, error)
}
