package subscriber

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/foxzi/journey/internal/apperr"
	"github.com/foxzi/journey/internal/mailer"
	"github.com/foxzi/journey/internal/store"
	"github.com/foxzi/journey/internal/template"
)

type recordingMailer struct {
	mu   sync.Mutex
	sent []*mailer.Message
	err  error
}

func (r *recordingMailer) Send(_ context.Context, msg *mailer.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, msg)
	return r.err
}

type testEnv struct {
	mgr    *Manager
	mail   *recordingMailer
	store  store.Store
	tmplID string
}

func setup(t *testing.T) *testEnv {
	t.Helper()
	st, err := store.OpenBolt(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	t.Cleanup(func() { st.Close(context.Background()) })

	templates := template.NewStorage(st)
	tmpl := &template.Template{
		Subject: "Welcome aboard",
		Body:    "<p>Hi [name]</p><a href=\"[unsubscribe_link]\">unsubscribe</a>",
	}
	if err := templates.Create(context.Background(), tmpl); err != nil {
		t.Fatalf("failed to create template: %v", err)
	}

	m := &recordingMailer{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mgr := NewManager(st, templates, m, Options{
		WelcomeTemplates: map[List]string{Newsletter: tmpl.ID, Waitlist: tmpl.ID},
		PublicAPIURL:     "https://api.example.com",
	}, logger)

	return &testEnv{mgr: mgr, mail: m, store: st, tmplID: tmpl.ID}
}

func TestSignup(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	res, err := env.mgr.Signup(ctx, Newsletter, SignupRequest{Name: "Ann", Location: "Lisbon", Email: "  Ann@Example.com "})
	if err != nil {
		t.Fatalf("Signup() error = %v", err)
	}
	if res.Subscriber.Email != "ann@example.com" {
		t.Errorf("Email = %q, want ann@example.com", res.Subscriber.Email)
	}
	if !res.Subscriber.Active {
		t.Error("subscriber should be active")
	}
	if res.Reactivated {
		t.Error("new signup should not be reactivated")
	}
	if !res.WelcomeSent {
		t.Error("welcome should be sent")
	}

	if len(env.mail.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(env.mail.sent))
	}
	msg := env.mail.sent[0]
	if msg.To != "ann@example.com" {
		t.Errorf("To = %q", msg.To)
	}
	if msg.Subject != "Welcome aboard" {
		t.Errorf("Subject = %q", msg.Subject)
	}
	if msg.Kind != mailer.KindWelcome {
		t.Errorf("Kind = %q, want welcome", msg.Kind)
	}
	if !strings.Contains(msg.HTML, "Hi Ann") {
		t.Errorf("HTML = %q, want name substituted", msg.HTML)
	}
	wantLink := "https://api.example.com/newsletter/unsubscribe?email=ann%40example.com"
	if !strings.Contains(msg.HTML, wantLink) {
		t.Errorf("HTML = %q, want link %s", msg.HTML, wantLink)
	}
}

func TestSignupDuplicate(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	if _, err := env.mgr.Signup(ctx, Waitlist, SignupRequest{Name: "Ann", Email: "ann@example.com"}); err != nil {
		t.Fatalf("Signup() error = %v", err)
	}
	_, err := env.mgr.Signup(ctx, Waitlist, SignupRequest{Name: "Ann", Email: "ANN@example.com"})
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("Signup() error = %v, want conflict", err)
	}
	if apperr.Message(err, "") != "Email already signed up for the waitlist" {
		t.Errorf("message = %q", apperr.Message(err, ""))
	}

	all, _ := env.mgr.ListAll(ctx, Waitlist)
	if len(all) != 1 {
		t.Errorf("ListAll() = %d records, want 1", len(all))
	}
}

func TestSignupListsAreIndependent(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	if _, err := env.mgr.Signup(ctx, Newsletter, SignupRequest{Name: "Ann", Email: "ann@example.com"}); err != nil {
		t.Fatalf("Signup(newsletter) error = %v", err)
	}
	if _, err := env.mgr.Signup(ctx, Waitlist, SignupRequest{Name: "Ann", Email: "ann@example.com"}); err != nil {
		t.Fatalf("Signup(waitlist) error = %v", err)
	}
}

func TestSignupValidation(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  SignupRequest
	}{
		{"empty email", SignupRequest{Name: "Ann"}},
		{"bad email", SignupRequest{Name: "Ann", Email: "not-an-email"}},
		{"display name", SignupRequest{Name: "Ann", Email: "Ann <ann@example.com>"}},
		{"no tld", SignupRequest{Name: "Ann", Email: "ann@localhost"}},
		{"no name", SignupRequest{Email: "ann@example.com"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.mgr.Signup(ctx, Newsletter, tt.req)
			if !apperr.Is(err, apperr.KindInvalid) {
				t.Errorf("Signup() error = %v, want invalid", err)
			}
		})
	}
	if len(env.mail.sent) != 0 {
		t.Errorf("sent %d messages, want 0", len(env.mail.sent))
	}
}

func TestSignupMissingTemplate(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	env.mgr.opts.WelcomeTemplates = map[List]string{}
	_, err := env.mgr.Signup(ctx, Newsletter, SignupRequest{Name: "Ann", Email: "ann@example.com"})
	if !apperr.Is(err, apperr.KindConfiguration) {
		t.Fatalf("Signup() error = %v, want configuration", err)
	}
	if apperr.Message(err, "") != MsgMissingTemplateID {
		t.Errorf("message = %q", apperr.Message(err, ""))
	}

	env.mgr.opts.WelcomeTemplates = map[List]string{Newsletter: "does-not-exist"}
	_, err = env.mgr.Signup(ctx, Newsletter, SignupRequest{Name: "Ann", Email: "ann@example.com"})
	if !apperr.Is(err, apperr.KindConfiguration) {
		t.Fatalf("Signup() error = %v, want configuration", err)
	}

	all, _ := env.mgr.ListAll(ctx, Newsletter)
	if len(all) != 0 {
		t.Errorf("ListAll() = %d records, want none written", len(all))
	}
}

func TestSignupWelcomeFailure(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	env.mail.err = errors.New("provider down")

	res, err := env.mgr.Signup(ctx, Newsletter, SignupRequest{Name: "Ann", Email: "ann@example.com"})
	if err != nil {
		t.Fatalf("Signup() error = %v, want signup kept", err)
	}
	if res.WelcomeSent {
		t.Error("WelcomeSent should be false")
	}
	if res.WelcomeErr == nil {
		t.Error("WelcomeErr should be set")
	}

	active, _ := env.mgr.ListActive(ctx, Newsletter)
	if len(active) != 1 {
		t.Errorf("ListActive() = %d, want 1", len(active))
	}
}

func TestUnsubscribeAndReactivate(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	first, err := env.mgr.Signup(ctx, Newsletter, SignupRequest{Name: "Ann", Location: "Lisbon", Email: "ann@example.com"})
	if err != nil {
		t.Fatalf("Signup() error = %v", err)
	}

	changed, err := env.mgr.Unsubscribe(ctx, Newsletter, "ANN@example.com")
	if err != nil {
		t.Fatalf("Unsubscribe() error = %v", err)
	}
	if !changed {
		t.Error("Unsubscribe() should report a change")
	}

	active, _ := env.mgr.ListActive(ctx, Newsletter)
	if len(active) != 0 {
		t.Errorf("ListActive() = %d, want 0", len(active))
	}

	changed, err = env.mgr.Unsubscribe(ctx, Newsletter, "ann@example.com")
	if err != nil || changed {
		t.Errorf("second Unsubscribe() = %v, %v, want false, nil", changed, err)
	}

	res, err := env.mgr.Signup(ctx, Newsletter, SignupRequest{Name: "Annie", Email: "ann@example.com"})
	if err != nil {
		t.Fatalf("Signup() after unsubscribe error = %v", err)
	}
	if !res.Reactivated {
		t.Error("Signup() should reactivate")
	}
	if res.Subscriber.ID != first.Subscriber.ID {
		t.Errorf("ID = %s, want original %s", res.Subscriber.ID, first.Subscriber.ID)
	}
	if res.Subscriber.Name != "Annie" {
		t.Errorf("Name = %q, want Annie", res.Subscriber.Name)
	}
	if res.Subscriber.Location != "Lisbon" {
		t.Errorf("Location = %q, want Lisbon kept", res.Subscriber.Location)
	}

	all, _ := env.mgr.ListAll(ctx, Newsletter)
	if len(all) != 1 {
		t.Errorf("ListAll() = %d, want 1", len(all))
	}
}

func TestUnsubscribeUnknown(t *testing.T) {
	env := setup(t)

	changed, err := env.mgr.Unsubscribe(context.Background(), Waitlist, "nobody@example.com")
	if err != nil {
		t.Fatalf("Unsubscribe() error = %v", err)
	}
	if changed {
		t.Error("Unsubscribe() of unknown email should not report a change")
	}

	if _, err := env.mgr.Unsubscribe(context.Background(), Waitlist, " "); !apperr.Is(err, apperr.KindInvalid) {
		t.Errorf("Unsubscribe(empty) error = %v, want invalid", err)
	}
}

func TestListActiveOrder(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	for _, e := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		if _, err := env.mgr.Signup(ctx, Newsletter, SignupRequest{Name: "x", Email: e}); err != nil {
			t.Fatalf("Signup(%s) error = %v", e, err)
		}
	}
	if _, err := env.mgr.Unsubscribe(ctx, Newsletter, "b@example.com"); err != nil {
		t.Fatalf("Unsubscribe() error = %v", err)
	}

	active, err := env.mgr.ListActive(ctx, Newsletter)
	if err != nil {
		t.Fatalf("ListActive() error = %v", err)
	}
	if len(active) != 2 || active[0].Email != "a@example.com" || active[1].Email != "c@example.com" {
		t.Errorf("ListActive() = %v", active)
	}
}

func TestConcurrentSignup(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.mgr.Signup(ctx, Newsletter, SignupRequest{Name: "Ann", Email: "ann@example.com"})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	ok := 0
	for err := range errs {
		if err == nil {
			ok++
		} else if !apperr.Is(err, apperr.KindConflict) {
			t.Errorf("unexpected error: %v", err)
		}
	}
	if ok != 1 {
		t.Errorf("%d signups succeeded, want 1", ok)
	}
}

func TestParseList(t *testing.T) {
	if l, err := ParseList("waitlist"); err != nil || l != Waitlist {
		t.Errorf("ParseList(waitlist) = %v, %v", l, err)
	}
	if _, err := ParseList("beta"); !apperr.Is(err, apperr.KindInvalid) {
		t.Errorf("ParseList(beta) error = %v, want invalid", err)
	}
}

func TestUnsubscribeLink(t *testing.T) {
	got := UnsubscribeLink("https://api.example.com/", Waitlist, "a+b@example.com")
	want := "https://api.example.com/waitlist/unsubscribe?email=a%2Bb%40example.com"
	if got != want {
		t.Errorf("UnsubscribeLink() = %s, want %s", got, want)
	}
}
