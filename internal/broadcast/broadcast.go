// Package broadcast sends a post notification to every active subscriber
// of a list.
package broadcast

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/foxzi/journey/internal/apperr"
	"github.com/foxzi/journey/internal/mailer"
	"github.com/foxzi/journey/internal/metrics"
	"github.com/foxzi/journey/internal/post"
	"github.com/foxzi/journey/internal/subscriber"
	"github.com/foxzi/journey/internal/template"
)

// MsgTemplateNotFound is returned when the list's notification template is
// missing
const MsgTemplateNotFound = "Email Template not found"

// PostSource loads posts by id
type PostSource interface {
	Get(ctx context.Context, id string) (*post.Post, error)
}

// TemplateSource loads email templates by id
type TemplateSource interface {
	Get(ctx context.Context, id string) (*template.Template, error)
}

// SubscriberSource lists the active subscribers of a list
type SubscriberSource interface {
	ListActive(ctx context.Context, list subscriber.List) ([]*subscriber.Subscriber, error)
}

// Mailer sends one message
type Mailer interface {
	Send(ctx context.Context, msg *mailer.Message) error
}

// ListSettings configures one list
type ListSettings struct {
	TemplateID string // notification template id
	PostLink   string // post id is appended
}

// Options configures a Broadcaster
type Options struct {
	Lists        map[subscriber.List]ListSettings
	PublicAPIURL string
	Concurrency  int
}

// RecipientResult is the outcome for one subscriber
type RecipientResult struct {
	Email string
	Err   error
}

// Result summarizes a broadcast. Results keep subscriber order.
type Result struct {
	List      subscriber.List
	PostID    string
	Attempted int
	Succeeded int
	Failed    int
	Results   []RecipientResult
}

// Failures returns the failed recipients
func (r *Result) Failures() []RecipientResult {
	var out []RecipientResult
	for _, rr := range r.Results {
		if rr.Err != nil {
			out = append(out, rr)
		}
	}
	return out
}

// Broadcaster renders and sends post notifications
type Broadcaster struct {
	posts       PostSource
	templates   TemplateSource
	subscribers SubscriberSource
	mailer      Mailer
	opts        Options
	logger      *slog.Logger
}

// New creates a broadcaster
func New(posts PostSource, templates TemplateSource, subs SubscriberSource, m Mailer, opts Options, logger *slog.Logger) *Broadcaster {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &Broadcaster{
		posts:       posts,
		templates:   templates,
		subscribers: subs,
		mailer:      m,
		opts:        opts,
		logger:      logger,
	}
}

// Broadcast notifies the active subscribers of list about postID. Lookup
// failures abort before any send; per-recipient failures are collected in
// the result.
func (b *Broadcaster) Broadcast(ctx context.Context, list subscriber.List, postID string) (*Result, error) {
	settings, ok := b.opts.Lists[list]
	if !ok {
		return nil, apperr.Invalid(fmt.Sprintf("unknown list: %s", list))
	}

	p, err := b.posts.Get(ctx, postID)
	if err != nil {
		return nil, err
	}

	if settings.TemplateID == "" {
		return nil, apperr.Configuration(subscriber.MsgMissingTemplateID)
	}
	tmpl, err := b.templates.Get(ctx, settings.TemplateID)
	if apperr.Is(err, apperr.KindNotFound) {
		return nil, apperr.NotFound(MsgTemplateNotFound)
	}
	if err != nil {
		return nil, err
	}

	subs, err := b.subscribers.ListActive(ctx, list)
	if err != nil {
		return nil, err
	}
	if len(subs) == 0 {
		return nil, apperr.NotFound("No active signups found in " + string(list))
	}

	subject, body := PostPass(p, tmpl, settings.PostLink)

	start := time.Now()
	result := &Result{
		List:      list,
		PostID:    p.ID,
		Attempted: len(subs),
		Results:   make([]RecipientResult, len(subs)),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.opts.Concurrency)
	for i, sub := range subs {
		g.Go(func() error {
			html := template.Replace(body,
				template.TokenName, sub.Name,
				template.TokenUnsubscribeLink, subscriber.UnsubscribeLink(b.opts.PublicAPIURL, list, sub.Email),
			)
			err := b.mailer.Send(gctx, &mailer.Message{
				To:      sub.Email,
				Subject: template.Replace(subject, template.TokenName, sub.Name),
				HTML:    html,
				Kind:    mailer.KindNotification,
			})
			result.Results[i] = RecipientResult{Email: sub.Email, Err: err}
			// Recipient failures never cancel the group
			return nil
		})
	}
	_ = g.Wait()

	for _, rr := range result.Results {
		if rr.Err != nil {
			result.Failed++
		} else {
			result.Succeeded++
		}
	}

	elapsed := time.Since(start)
	metrics.ObserveBroadcast(string(list), result.Attempted, elapsed.Seconds())

	b.logger.Info("broadcast finished",
		"list", list,
		"post_id", p.ID,
		"attempted", result.Attempted,
		"succeeded", result.Succeeded,
		"failed", result.Failed,
		"duration", elapsed,
	)

	return result, nil
}

// PostPass applies the post-level substitutions once. The subject is the
// post's mail subject when set, else the template subject, and only gets
// [title]. The body gets [content], [link], [title] and [summary] in that
// order.
func PostPass(p *post.Post, tmpl *template.Template, linkBase string) (subject, body string) {
	subject = tmpl.Subject
	if p.MailSubject != "" {
		subject = p.MailSubject
	}

	subject = template.Replace(subject, template.TokenTitle, p.Title)
	body = template.Replace(tmpl.Body,
		template.TokenContent, p.MailContent,
		template.TokenLink, linkBase+p.ID,
		template.TokenTitle, p.Title,
		template.TokenSummary, p.Summary,
	)
	return subject, body
}
