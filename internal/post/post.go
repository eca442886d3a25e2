// Package post stores blog articles and serves them in pages.
package post

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/foxzi/journey/internal/apperr"
	"github.com/foxzi/journey/internal/store"
)

// CollectionName is the document collection holding posts
const CollectionName = "posts"

// MsgNotFound is returned for an unknown post id
const MsgNotFound = "Post not found"

// Pagination bounds
const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// Post is a blog article. MailSubject and MailContent feed the
// notification email.
type Post struct {
	ID          string    `json:"id" bson:"_id"`
	Title       string    `json:"title" bson:"title"`
	Subtitle    string    `json:"subtitle,omitempty" bson:"subtitle,omitempty"`
	Summary     string    `json:"summary" bson:"summary"`
	Author      string    `json:"author" bson:"author"`
	AuthorLink  string    `json:"author_link,omitempty" bson:"author_link,omitempty"`
	PublishDate time.Time `json:"publish_date" bson:"publish_date"`
	Body        string    `json:"body" bson:"body"`
	MailSubject string    `json:"mail_subject" bson:"mail_subject"`
	MailContent string    `json:"mail_content" bson:"mail_content"`
}

// Summary is the list view of a post
type Summary struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Summary     string    `json:"summary"`
	Author      string    `json:"author"`
	PublishDate time.Time `json:"publish_date"`
}

// Page is one page of posts
type Page struct {
	Posts       []Summary `json:"posts"`
	TotalPosts  int64     `json:"total_posts"`
	TotalPages  int64     `json:"total_pages"`
	CurrentPage int       `json:"current_page"`
	Limit       int       `json:"limit"`
}

// Service manages posts
type Service struct {
	coll store.Collection
}

// NewService creates a post service
func NewService(s store.Store) *Service {
	return &Service{coll: s.Collection(CollectionName)}
}

func validate(p *Post) error {
	if p.Title == "" {
		return apperr.Invalid("title is required")
	}
	if p.Author == "" {
		return apperr.Invalid("author is required")
	}
	return nil
}

// Create stores a new post
func (s *Service) Create(ctx context.Context, p *Post) error {
	if err := validate(p); err != nil {
		return err
	}
	p.ID = store.NewID()
	if err := s.coll.Insert(ctx, p.ID, p); err != nil {
		return fmt.Errorf("failed to create post: %w", err)
	}
	return nil
}

// Get returns the post with id
func (s *Service) Get(ctx context.Context, id string) (*Post, error) {
	var p Post
	if err := s.coll.Get(ctx, id, &p); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound(MsgNotFound)
		}
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	return &p, nil
}

// Update replaces every field of the post with id
func (s *Service) Update(ctx context.Context, id string, p *Post) (*Post, error) {
	if err := validate(p); err != nil {
		return nil, err
	}
	p.ID = id
	if err := s.coll.Replace(ctx, id, p); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound(MsgNotFound)
		}
		return nil, fmt.Errorf("failed to update post: %w", err)
	}
	return p, nil
}

// Delete removes the post with id
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.coll.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound(MsgNotFound)
		}
		return fmt.Errorf("failed to delete post: %w", err)
	}
	return nil
}

// List returns page (1-based) of posts with limit posts per page, oldest
// first
func (s *Service) List(ctx context.Context, page, limit int) (*Page, error) {
	if page < 1 {
		return nil, apperr.Invalid("page must be at least 1")
	}
	if limit < 1 || limit > MaxLimit {
		return nil, apperr.Invalid(fmt.Sprintf("limit must be between 1 and %d", MaxLimit))
	}

	total, err := s.coll.Count(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to count posts: %w", err)
	}

	var posts []Post
	opts := store.FindOptions{Skip: Skip(page, limit), Limit: limit}
	if err := s.coll.Find(ctx, nil, opts, &posts); err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}

	result := &Page{
		Posts:       make([]Summary, 0, len(posts)),
		TotalPosts:  total,
		TotalPages:  TotalPages(total, limit),
		CurrentPage: page,
		Limit:       limit,
	}
	for _, p := range posts {
		result.Posts = append(result.Posts, Summary{
			ID:          p.ID,
			Title:       p.Title,
			Summary:     p.Summary,
			Author:      p.Author,
			PublishDate: p.PublishDate,
		})
	}
	return result, nil
}

// Skip is the number of posts before page
func Skip(page, limit int) int {
	return (page - 1) * limit
}

// TotalPages is ceil(total/limit)
func TotalPages(total int64, limit int) int64 {
	if limit <= 0 {
		return 0
	}
	return (total + int64(limit) - 1) / int64(limit)
}
