// Package content stores the editable text blocks of the site, addressed by
// page and section name.
package content

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/foxzi/journey/internal/apperr"
	"github.com/foxzi/journey/internal/store"
)

// CollectionName is the document collection holding content blocks
const CollectionName = "blog_contents"

const msgNotFound = "Content not found"

// Block is one piece of page content
type Block struct {
	ID          string    `json:"id" bson:"_id"`
	PageName    string    `json:"page_name" bson:"page_name"`
	SectionName string    `json:"section_name" bson:"section_name"`
	Content     string    `json:"content" bson:"content"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" bson:"updated_at"`
}

// Update carries the fields written by an update. Empty page or section
// names keep the current key.
type Update struct {
	PageName    string
	SectionName string
	Content     string
}

// Service manages content blocks
type Service struct {
	coll store.Collection
}

// NewService creates a content service
func NewService(s store.Store) *Service {
	return &Service{coll: s.Collection(CollectionName)}
}

// Create stores a new block. The (page, section) pair is not checked for
// uniqueness; lookups return the first match.
func (s *Service) Create(ctx context.Context, b *Block) error {
	if b.PageName == "" {
		return apperr.Invalid("page_name is required")
	}
	if b.SectionName == "" {
		return apperr.Invalid("section_name is required")
	}

	now := time.Now().UTC()
	b.ID = store.NewID()
	b.CreatedAt = now
	b.UpdatedAt = now

	if err := s.coll.Insert(ctx, b.ID, b); err != nil {
		return fmt.Errorf("failed to create content: %w", err)
	}
	return nil
}

// List returns every block
func (s *Service) List(ctx context.Context) ([]*Block, error) {
	blocks := []*Block{}
	if err := s.coll.Find(ctx, nil, store.FindOptions{}, &blocks); err != nil {
		return nil, fmt.Errorf("failed to list content: %w", err)
	}
	return blocks, nil
}

// Get returns the block for page and section
func (s *Service) Get(ctx context.Context, page, section string) (*Block, error) {
	var b Block
	err := s.coll.FindOne(ctx, store.Filter{"page_name": page, "section_name": section}, &b)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound(msgNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get content: %w", err)
	}
	return &b, nil
}

// Update writes the key fields and text of the block for page and section.
// The block may move to a new page or section.
func (s *Service) Update(ctx context.Context, page, section string, upd Update) (*Block, error) {
	b, err := s.Get(ctx, page, section)
	if err != nil {
		return nil, err
	}

	if upd.PageName != "" {
		b.PageName = upd.PageName
	}
	if upd.SectionName != "" {
		b.SectionName = upd.SectionName
	}
	b.Content = upd.Content
	b.UpdatedAt = time.Now().UTC()

	if err := s.coll.Replace(ctx, b.ID, b); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound(msgNotFound)
		}
		return nil, fmt.Errorf("failed to update content: %w", err)
	}
	return b, nil
}

// Delete removes the block for page and section
func (s *Service) Delete(ctx context.Context, page, section string) error {
	b, err := s.Get(ctx, page, section)
	if err != nil {
		return err
	}

	if err := s.coll.Delete(ctx, b.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound(msgNotFound)
		}
		return fmt.Errorf("failed to delete content: %w", err)
	}
	return nil
}
