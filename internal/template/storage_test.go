package template

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/foxzi/journey/internal/apperr"
	"github.com/foxzi/journey/internal/store"
)

func setupTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := store.OpenBolt(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	t.Cleanup(func() { s.Close(context.Background()) })
	return NewStorage(s)
}

func TestStorage_Create(t *testing.T) {
	storage := setupTestStorage(t)
	ctx := context.Background()

	tmpl := &Template{
		Subject: "Welcome [name]",
		Body:    "<p>Hello [name], [unsubscribe_link]</p>",
	}

	if err := storage.Create(ctx, tmpl); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if tmpl.ID == "" {
		t.Error("ID should be set")
	}
	if tmpl.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}
	if len(tmpl.SubjectPlaceholders) != 1 || tmpl.SubjectPlaceholders[0] != "[name]" {
		t.Errorf("SubjectPlaceholders = %v, want [[name]]", tmpl.SubjectPlaceholders)
	}
	if len(tmpl.BodyPlaceholders) != 2 {
		t.Errorf("BodyPlaceholders = %v, want 2 tokens", tmpl.BodyPlaceholders)
	}
}

func TestStorage_CreateValidation(t *testing.T) {
	storage := setupTestStorage(t)
	ctx := context.Background()

	if err := storage.Create(ctx, &Template{Body: "x"}); !apperr.Is(err, apperr.KindInvalid) {
		t.Errorf("Create(no subject) error = %v, want invalid", err)
	}
	if err := storage.Create(ctx, &Template{Subject: "x"}); !apperr.Is(err, apperr.KindInvalid) {
		t.Errorf("Create(no body) error = %v, want invalid", err)
	}
}

func TestStorage_GetNotFound(t *testing.T) {
	storage := setupTestStorage(t)

	_, err := storage.Get(context.Background(), "missing")
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("Get() error = %v, want not found", err)
	}
	if apperr.Message(err, "") != MsgNotFound {
		t.Errorf("message = %q, want %q", apperr.Message(err, ""), MsgNotFound)
	}
}

func TestStorage_UpdatePartial(t *testing.T) {
	storage := setupTestStorage(t)
	ctx := context.Background()

	tmpl := &Template{Subject: "Old subject", Body: "Old body"}
	if err := storage.Create(ctx, tmpl); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	newSubject := "New subject"
	updated, err := storage.Update(ctx, tmpl.ID, &Update{Subject: &newSubject})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if updated.Subject != "New subject" {
		t.Errorf("Subject = %v, want New subject", updated.Subject)
	}
	if updated.Body != "Old body" {
		t.Errorf("Body = %v, want Old body (unchanged)", updated.Body)
	}

	got, err := storage.Get(ctx, tmpl.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Subject != "New subject" {
		t.Errorf("stored Subject = %v, want New subject", got.Subject)
	}

	if _, err := storage.Update(ctx, "missing", &Update{}); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("Update(missing) error = %v, want not found", err)
	}
}

func TestStorage_ListAndDelete(t *testing.T) {
	storage := setupTestStorage(t)
	ctx := context.Background()

	for _, subject := range []string{"one", "two"} {
		if err := storage.Create(ctx, &Template{Subject: subject, Body: "b"}); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	list, err := storage.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("List() returned %d templates, want 2", len(list))
	}

	deleted, err := storage.Delete(ctx, list[0].ID)
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if deleted.Subject != list[0].Subject {
		t.Errorf("Delete() returned %v, want %v", deleted.Subject, list[0].Subject)
	}

	if _, err := storage.Delete(ctx, list[0].ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("Delete(again) error = %v, want not found", err)
	}

	list, _ = storage.List(ctx)
	if len(list) != 1 {
		t.Errorf("List() after delete = %d, want 1", len(list))
	}
}
