package template

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/foxzi/journey/internal/apperr"
	"github.com/foxzi/journey/internal/store"
)

// CollectionName is the document collection holding email templates
const CollectionName = "emailTemplates"

// MsgNotFound is the message returned for an unknown template id
const MsgNotFound = "EmailTemplate not found"

// Storage provides template storage
type Storage struct {
	coll store.Collection
}

// NewStorage creates a new template storage
func NewStorage(s store.Store) *Storage {
	return &Storage{coll: s.Collection(CollectionName)}
}

// Create stores a new template. Placeholder lists are derived from the
// text when the caller leaves them empty.
func (s *Storage) Create(ctx context.Context, tmpl *Template) error {
	if tmpl.Subject == "" {
		return apperr.Invalid("subject is required")
	}
	if tmpl.Body == "" {
		return apperr.Invalid("body is required")
	}

	now := time.Now().UTC()
	tmpl.ID = store.NewID()
	tmpl.CreatedAt = now
	tmpl.UpdatedAt = now
	fillPlaceholders(tmpl)

	if err := s.coll.Insert(ctx, tmpl.ID, tmpl); err != nil {
		return fmt.Errorf("failed to create template: %w", err)
	}
	return nil
}

// Get retrieves a template by ID
func (s *Storage) Get(ctx context.Context, id string) (*Template, error) {
	var tmpl Template
	if err := s.coll.Get(ctx, id, &tmpl); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound(MsgNotFound)
		}
		return nil, fmt.Errorf("failed to get template: %w", err)
	}
	return &tmpl, nil
}

// List returns all templates in creation order
func (s *Storage) List(ctx context.Context) ([]*Template, error) {
	templates := []*Template{}
	if err := s.coll.Find(ctx, nil, store.FindOptions{}, &templates); err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	return templates, nil
}

// Update applies a partial update and returns the stored result
func (s *Storage) Update(ctx context.Context, id string, upd *Update) (*Template, error) {
	tmpl, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if upd.Subject != nil {
		tmpl.Subject = *upd.Subject
	}
	if upd.Body != nil {
		tmpl.Body = *upd.Body
	}
	if upd.SubjectPlaceholders != nil {
		tmpl.SubjectPlaceholders = *upd.SubjectPlaceholders
	}
	if upd.BodyPlaceholders != nil {
		tmpl.BodyPlaceholders = *upd.BodyPlaceholders
	}
	tmpl.UpdatedAt = time.Now().UTC()

	if err := s.coll.Replace(ctx, id, tmpl); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound(MsgNotFound)
		}
		return nil, fmt.Errorf("failed to update template: %w", err)
	}
	return tmpl, nil
}

// Delete removes a template and returns what was removed
func (s *Storage) Delete(ctx context.Context, id string) (*Template, error) {
	tmpl, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.coll.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound(MsgNotFound)
		}
		return nil, fmt.Errorf("failed to delete template: %w", err)
	}
	return tmpl, nil
}

func fillPlaceholders(tmpl *Template) {
	if tmpl.SubjectPlaceholders == nil {
		tmpl.SubjectPlaceholders = Tokens(tmpl.Subject)
	}
	if tmpl.BodyPlaceholders == nil {
		tmpl.BodyPlaceholders = Tokens(tmpl.Body)
	}
	if tmpl.SubjectPlaceholders == nil {
		tmpl.SubjectPlaceholders = []string{}
	}
	if tmpl.BodyPlaceholders == nil {
		tmpl.BodyPlaceholders = []string{}
	}
}
