package subscriber

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/foxzi/journey/internal/apperr"
	"github.com/foxzi/journey/internal/mailer"
	"github.com/foxzi/journey/internal/metrics"
	"github.com/foxzi/journey/internal/store"
	"github.com/foxzi/journey/internal/template"
)

// MsgMissingTemplateID is returned when no welcome template id is configured
const MsgMissingTemplateID = "Missing email template ID in environment variables"

// Mailer sends one message
type Mailer interface {
	Send(ctx context.Context, msg *mailer.Message) error
}

// TemplateSource resolves email templates by id
type TemplateSource interface {
	Get(ctx context.Context, id string) (*template.Template, error)
}

// Options configures a Manager
type Options struct {
	// WelcomeTemplates maps a list to its welcome template id
	WelcomeTemplates map[List]string
	// PublicAPIURL is the base of unsubscribe links
	PublicAPIURL string
}

// Manager implements the subscriber lifecycle for every list
type Manager struct {
	colls     map[List]store.Collection
	templates TemplateSource
	mailer    Mailer
	opts      Options
	logger    *slog.Logger

	// Serializes lookup-then-write per list
	mu map[List]*sync.Mutex
}

// NewManager creates a subscriber manager
func NewManager(st store.Store, templates TemplateSource, m Mailer, opts Options, logger *slog.Logger) *Manager {
	mgr := &Manager{
		colls:     make(map[List]store.Collection),
		templates: templates,
		mailer:    m,
		opts:      opts,
		logger:    logger,
		mu:        make(map[List]*sync.Mutex),
	}
	for _, l := range Lists() {
		mgr.colls[l] = st.Collection(string(l))
		mgr.mu[l] = &sync.Mutex{}
	}
	return mgr
}

func (m *Manager) collection(list List) (store.Collection, error) {
	coll, ok := m.colls[list]
	if !ok {
		return nil, apperr.Invalid(fmt.Sprintf("unknown list: %s", list))
	}
	return coll, nil
}

// Signup adds email to list, or reactivates a previous signup. An address
// that is already active is a conflict. A welcome email follows; its failure
// is reported in the result but does not undo the signup.
func (m *Manager) Signup(ctx context.Context, list List, req SignupRequest) (*SignupResult, error) {
	coll, err := m.collection(list)
	if err != nil {
		return nil, err
	}

	email, err := NormalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperr.Invalid("name is required")
	}

	welcome, err := m.welcomeTemplate(ctx, list)
	if err != nil {
		metrics.IncSignups(string(list), "error")
		return nil, err
	}

	sub, reactivated, err := m.upsert(ctx, coll, list, email, name, strings.TrimSpace(req.Location))
	if err != nil {
		return nil, err
	}

	result := &SignupResult{Subscriber: sub, Reactivated: reactivated}
	if reactivated {
		metrics.IncSignups(string(list), "reactivated")
	} else {
		metrics.IncSignups(string(list), "created")
	}

	rendered := template.RenderTemplate(welcome, template.Substitutions{
		template.TokenName:            sub.Name,
		template.TokenUnsubscribeLink: UnsubscribeLink(m.opts.PublicAPIURL, list, sub.Email),
	})
	err = m.mailer.Send(ctx, &mailer.Message{
		To:      sub.Email,
		Subject: rendered.Subject,
		HTML:    rendered.Body,
		Kind:    mailer.KindWelcome,
	})
	if err != nil {
		m.logger.Error("welcome email failed", "list", list, "email", sub.Email, "error", err)
		result.WelcomeErr = err
	} else {
		result.WelcomeSent = true
	}

	m.logger.Info("subscriber signed up",
		"list", list,
		"email", sub.Email,
		"reactivated", reactivated,
		"welcome_sent", result.WelcomeSent,
	)

	return result, nil
}

func (m *Manager) welcomeTemplate(ctx context.Context, list List) (*template.Template, error) {
	id := m.opts.WelcomeTemplates[list]
	if id == "" {
		return nil, apperr.Configuration(MsgMissingTemplateID)
	}

	tmpl, err := m.templates.Get(ctx, id)
	if apperr.Is(err, apperr.KindNotFound) {
		return nil, apperr.Configuration(fmt.Sprintf("welcome email template %s not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load welcome template: %w", err)
	}
	return tmpl, nil
}

func (m *Manager) upsert(ctx context.Context, coll store.Collection, list List, email, name, location string) (*Subscriber, bool, error) {
	mu := m.mu[list]
	mu.Lock()
	defer mu.Unlock()

	now := time.Now().UTC()

	var existing Subscriber
	err := coll.FindOne(ctx, store.Filter{"email": email}, &existing)
	switch {
	case err == nil && existing.Active:
		metrics.IncSignups(string(list), "conflict")
		return nil, false, apperr.Conflict("Email already signed up for the " + string(list))
	case err == nil:
		existing.Active = true
		existing.Name = name
		if location != "" {
			existing.Location = location
		}
		existing.UpdatedAt = now
		if err := coll.Replace(ctx, existing.ID, &existing); err != nil {
			return nil, false, fmt.Errorf("failed to reactivate subscriber: %w", err)
		}
		return &existing, true, nil
	case !errors.Is(err, store.ErrNotFound):
		return nil, false, fmt.Errorf("failed to look up subscriber: %w", err)
	}

	sub := &Subscriber{
		ID:        store.NewID(),
		Name:      name,
		Location:  location,
		Email:     email,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := coll.Insert(ctx, sub.ID, sub); err != nil {
		return nil, false, fmt.Errorf("failed to create subscriber: %w", err)
	}
	return sub, false, nil
}

// Unsubscribe clears the active flag of email on list. Unknown or already
// inactive addresses are a no-op; the return value reports whether a record
// changed.
func (m *Manager) Unsubscribe(ctx context.Context, list List, email string) (bool, error) {
	coll, err := m.collection(list)
	if err != nil {
		return false, err
	}

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return false, apperr.Invalid("email is required")
	}

	mu := m.mu[list]
	mu.Lock()
	defer mu.Unlock()

	var sub Subscriber
	err = coll.FindOne(ctx, store.Filter{"email": email}, &sub)
	if errors.Is(err, store.ErrNotFound) {
		metrics.IncUnsubscribes(string(list), "unknown")
		m.logger.Warn("unsubscribe for unknown email", "list", list, "email", email)
		return false, nil
	}
	if err != nil {
		metrics.IncUnsubscribes(string(list), "error")
		return false, fmt.Errorf("failed to look up subscriber: %w", err)
	}

	if !sub.Active {
		metrics.IncUnsubscribes(string(list), "inactive")
		return false, nil
	}

	sub.Active = false
	sub.UpdatedAt = time.Now().UTC()
	if err := coll.Replace(ctx, sub.ID, &sub); err != nil {
		metrics.IncUnsubscribes(string(list), "error")
		return false, fmt.Errorf("failed to unsubscribe: %w", err)
	}

	metrics.IncUnsubscribes(string(list), "unsubscribed")
	m.logger.Info("subscriber unsubscribed", "list", list, "email", email)
	return true, nil
}

// ListActive returns the active subscribers of list in storage order
func (m *Manager) ListActive(ctx context.Context, list List) ([]*Subscriber, error) {
	return m.find(ctx, list, store.Filter{"isActive": true})
}

// ListAll returns every subscriber of list regardless of state
func (m *Manager) ListAll(ctx context.Context, list List) ([]*Subscriber, error) {
	return m.find(ctx, list, nil)
}

func (m *Manager) find(ctx context.Context, list List, filter store.Filter) ([]*Subscriber, error) {
	coll, err := m.collection(list)
	if err != nil {
		return nil, err
	}

	subs := []*Subscriber{}
	if err := coll.Find(ctx, filter, store.FindOptions{}, &subs); err != nil {
		return nil, fmt.Errorf("failed to list subscribers: %w", err)
	}
	return subs, nil
}
