package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/foxzi/journey/internal/config"
	"github.com/foxzi/journey/internal/subscriber"
	"github.com/foxzi/journey/internal/template"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	content := `
api:
  api_key: "key"
storage:
  path: "` + filepath.Join(dir, "journey.db") + `"
mail:
  provider: "sandbox"
logging:
  level: "error"
  format: "text"
`
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("invalid test config: %v", err)
	}
	return cfg
}

func TestNewServices(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	svc, err := NewServices(ctx, cfg, NewLogger(cfg.Logging))
	if err != nil {
		t.Fatalf("NewServices() error = %v", err)
	}

	if svc.Sandbox == nil {
		t.Fatal("sandbox provider should expose the sandbox sender")
	}
	if svc.Mailer.Provider() != "sandbox" {
		t.Errorf("Provider() = %q, want sandbox", svc.Mailer.Provider())
	}

	welcome := &template.Template{Subject: "Welcome", Body: "Hi [name]"}
	if err := svc.Templates.Create(ctx, welcome); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	cfg.Templates.NewsletterWelcome = welcome.ID

	// Template ids are read when the services are built
	svc.Close(ctx)
	svc, err = NewServices(ctx, cfg, NewLogger(cfg.Logging))
	if err != nil {
		t.Fatalf("NewServices() error = %v", err)
	}
	defer svc.Close(ctx)

	if _, err := svc.Subscribers.Signup(ctx, subscriber.Newsletter, subscriber.SignupRequest{Name: "Ann", Email: "ann@example.com"}); err != nil {
		t.Fatalf("Signup() error = %v", err)
	}
	captured, err := svc.Sandbox.List(ctx, "ann@example.com", 0, 0)
	if err != nil || len(captured) != 1 {
		t.Fatalf("captured = %v, %v", captured, err)
	}
	if captured[0].Subject != "Welcome" || captured[0].HTML != "Hi Ann" {
		t.Errorf("captured = %+v", captured[0])
	}
}

func TestNewApp(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	a, err := New(ctx, cfg, "test")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if a.tls != nil {
		t.Error("TLS should be disabled by default")
	}
	if err := a.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestOpenStoreBolt(t *testing.T) {
	ctx := context.Background()
	st, err := OpenStore(ctx, config.StorageConfig{Driver: "bolt", Path: filepath.Join(t.TempDir(), "x.db")})
	if err != nil {
		t.Fatalf("OpenStore() error = %v", err)
	}
	defer st.Close(ctx)

	if err := st.Ping(ctx); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}
