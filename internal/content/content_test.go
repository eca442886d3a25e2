package content

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/foxzi/journey/internal/apperr"
	"github.com/foxzi/journey/internal/store"
)

func setupTestService(t *testing.T) *Service {
	t.Helper()
	s, err := store.OpenBolt(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	t.Cleanup(func() { s.Close(context.Background()) })
	return NewService(s)
}

func TestService_CRUD(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	b := &Block{PageName: "home", SectionName: "hero", Content: "Welcome"}
	if err := svc.Create(ctx, b); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := svc.Create(ctx, &Block{PageName: "home", SectionName: "footer", Content: "Bye"}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := svc.Get(ctx, "home", "hero")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Content != "Welcome" {
		t.Errorf("Content = %v, want Welcome", got.Content)
	}

	updated, err := svc.Update(ctx, "home", "hero", Update{Content: "Hello there"})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.Content != "Hello there" || updated.ID != b.ID {
		t.Errorf("Update() = %+v", updated)
	}

	list, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 2 {
		t.Errorf("List() returned %d, want 2", len(list))
	}

	if err := svc.Delete(ctx, "home", "hero"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := svc.Get(ctx, "home", "hero"); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("Get() after delete error = %v, want not found", err)
	}
}

func TestService_UpdateMovesKey(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	b := &Block{PageName: "home", SectionName: "hero", Content: "Welcome"}
	if err := svc.Create(ctx, b); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	updated, err := svc.Update(ctx, "home", "hero", Update{PageName: "landing", SectionName: "banner", Content: "Moved"})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.PageName != "landing" || updated.SectionName != "banner" || updated.ID != b.ID {
		t.Errorf("Update() = %+v", updated)
	}

	got, err := svc.Get(ctx, "landing", "banner")
	if err != nil {
		t.Fatalf("Get() new key error = %v", err)
	}
	if got.Content != "Moved" {
		t.Errorf("Content = %q, want Moved", got.Content)
	}
	if _, err := svc.Get(ctx, "home", "hero"); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("Get() old key error = %v, want not found", err)
	}
}

func TestService_NotFound(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	if _, err := svc.Update(ctx, "about", "team", Update{Content: "x"}); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("Update() error = %v, want not found", err)
	}
	if err := svc.Delete(ctx, "about", "team"); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("Delete() error = %v, want not found", err)
	}
}

func TestService_CreateValidation(t *testing.T) {
	svc := setupTestService(t)

	if err := svc.Create(context.Background(), &Block{SectionName: "hero"}); !apperr.Is(err, apperr.KindInvalid) {
		t.Errorf("Create() error = %v, want invalid", err)
	}
}
