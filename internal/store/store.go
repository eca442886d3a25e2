// Package store provides a minimal document store over named collections.
//
// Documents are Go structs whose JSON and BSON field names agree; filters
// match top-level fields by those names. Two backends exist: an embedded
// bbolt file and MongoDB.
package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no document matches an id or filter
var ErrNotFound = errors.New("document not found")

// Filter is an equality match on top-level document fields
type Filter map[string]any

// FindOptions limits a Find call. Zero Limit means no limit.
type FindOptions struct {
	Skip  int
	Limit int
}

// Collection stores documents of one kind, ordered by id
type Collection interface {
	Insert(ctx context.Context, id string, doc any) error
	Get(ctx context.Context, id string, out any) error
	FindOne(ctx context.Context, filter Filter, out any) error
	// Find decodes matching documents into out, a pointer to a slice
	Find(ctx context.Context, filter Filter, opts FindOptions, out any) error
	Replace(ctx context.Context, id string, doc any) error
	Delete(ctx context.Context, id string) error
	DeleteMany(ctx context.Context, filter Filter) (int64, error)
	Count(ctx context.Context, filter Filter) (int64, error)
}

// Store opens collections by name
type Store interface {
	Collection(name string) Collection
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// NewID returns a time-ordered document id, so id order is insertion order
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}
