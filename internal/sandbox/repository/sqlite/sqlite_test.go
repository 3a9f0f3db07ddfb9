package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/sandbox/repository"
)

func open(t *testing.T, name string) *Repository {
	t.Helper()
	repo, err := New("file:" + name + "?mode=memory&cache=shared")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestUsersAndLoginState(t *testing.T) {
	repo := open(t, "repo_users")
	ctx := context.Background()
	user, err := repo.CreateUser(ctx, repository.User{Email: "ops@garage.ae", FullName: "Omar", PasswordHash: []byte("h"), Role: "garage_owner", Verified: true})
	if err != nil {
		t.Fatal(err)
	}
	if user.ID == "" {
		t.Fatalf("user id empty")
	}
	if _, err := repo.CreateUser(ctx, repository.User{Email: "ops@garage.ae", PasswordHash: []byte("h")}); !errors.Is(err, repository.ErrDuplicate) {
		t.Fatalf("want ErrDuplicate, got %v", err)
	}
	if _, err := repo.GetUserByEmail(ctx, "none@garage.ae"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}

	until := time.Now().Add(time.Minute).UTC()
	if err := repo.SetLoginState(ctx, user.ID, 5, until); err != nil {
		t.Fatal(err)
	}
	got, err := repo.GetUserByEmail(ctx, "ops@garage.ae")
	if err != nil {
		t.Fatal(err)
	}
	if got.FailedLogins != 5 || !got.LockedUntil.Equal(until) || !got.Verified {
		t.Fatalf("bad login state: %+v", got)
	}
	if err := repo.SetLoginState(ctx, user.ID, 0, time.Time{}); err != nil {
		t.Fatal(err)
	}
	if got, _ = repo.GetUser(ctx, user.ID); !got.LockedUntil.IsZero() {
		t.Fatalf("lock not cleared: %v", got.LockedUntil)
	}
}

func TestRefreshTokens(t *testing.T) {
	repo := open(t, "repo_refresh")
	ctx := context.Background()
	user, err := repo.CreateUser(ctx, repository.User{Email: "u2@garage.ae", PasswordHash: []byte("h")})
	if err != nil {
		t.Fatal(err)
	}
	if err := repo.CreateRefreshToken(ctx, user.ID, "tok", time.Now().Add(time.Hour)); err != nil {
		t.Fatal(err)
	}
	uid, exp, err := repo.GetRefreshToken(ctx, "tok")
	if err != nil || uid != user.ID || exp.IsZero() {
		t.Fatalf("get refresh: %v %s", err, uid)
	}
	if err := repo.DeleteRefreshToken(ctx, "tok"); err != nil {
		t.Fatalf("del refresh: %v", err)
	}
	if _, _, err := repo.GetRefreshToken(ctx, "tok"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestRegistrations(t *testing.T) {
	repo := open(t, "repo_registrations")
	ctx := context.Background()
	reg := repository.Registration{ID: "reg-1", Email: "new@garage.ae", PasswordHash: []byte("h"), Code: "123456", Step: "verification", ExpiresAt: time.Now().Add(time.Hour)}
	if err := repo.SaveRegistration(ctx, reg); err != nil {
		t.Fatal(err)
	}
	reg.Verified, reg.Step = true, "location"
	reg.Location = map[string]any{"city": "Dubai"}
	if err := repo.SaveRegistration(ctx, reg); err != nil {
		t.Fatal(err)
	}
	got, err := repo.GetRegistration(ctx, "reg-1")
	if err != nil {
		t.Fatal(err)
	}
	if !got.Verified || got.Step != "location" || got.Location["city"] != "Dubai" {
		t.Fatalf("bad registration: %+v", got)
	}
	if err := repo.DeleteRegistrations(ctx, "other", "new@garage.ae"); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.GetRegistration(ctx, "reg-1"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestDocuments(t *testing.T) {
	repo := open(t, "repo_documents")
	ctx := context.Background()
	for _, b := range []map[string]any{
		{"customer_name": "Sara", "status": "pending"},
		{"customer_name": "Ahmed", "status": "confirmed"},
		{"customer_name": "Sarah Lee", "status": "pending"},
	} {
		if _, err := repo.CreateDocument(ctx, repository.Document{Collection: "bookings", OwnerID: "g1", Body: b}); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := repo.CreateDocument(ctx, repository.Document{Collection: "bookings", OwnerID: "g2", Body: map[string]any{"status": "pending"}}); err != nil {
		t.Fatal(err)
	}

	all, total, err := repo.ListDocuments(ctx, repository.DocumentQuery{OwnerID: "g1", Collection: "bookings"})
	if err != nil || total != 3 || len(all) != 3 {
		t.Fatalf("list: %v %d %d", err, total, len(all))
	}
	if all[0].Body["customer_name"] != "Sarah Lee" {
		t.Fatalf("want newest first, got %v", all[0].Body)
	}

	page, total, err := repo.ListDocuments(ctx, repository.DocumentQuery{OwnerID: "g1", Collection: "bookings", Filters: map[string]string{"status": "pending"}, Limit: 1})
	if err != nil || total != 2 || len(page) != 1 {
		t.Fatalf("filtered page: %v %d %d", err, total, len(page))
	}
	found, _, err := repo.ListDocuments(ctx, repository.DocumentQuery{OwnerID: "g1", Collection: "bookings", Search: "SARA"})
	if err != nil || len(found) != 2 {
		t.Fatalf("search: %v %d", err, len(found))
	}

	d := all[1]
	d.Body["status"] = "completed"
	if _, err := repo.UpdateDocument(ctx, d); err != nil {
		t.Fatal(err)
	}
	got, err := repo.GetDocument(ctx, "g1", "bookings", d.ID)
	if err != nil || got.Body["status"] != "completed" {
		t.Fatalf("get after update: %v %v", err, got.Body)
	}
	if _, err := repo.GetDocument(ctx, "g2", "bookings", d.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("other owner must not see the document: %v", err)
	}
	if err := repo.DeleteDocument(ctx, "g1", "bookings", d.ID); err != nil {
		t.Fatal(err)
	}
	if err := repo.DeleteDocument(ctx, "g1", "bookings", d.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestNestedDocumentsOldestFirst(t *testing.T) {
	repo := open(t, "repo_nested")
	ctx := context.Background()
	for _, content := range []string{"first", "second"} {
		if _, err := repo.CreateDocument(ctx, repository.Document{Collection: "messages", OwnerID: "g1", ParentID: "c1", Body: map[string]any{"content": content}}); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := repo.CreateDocument(ctx, repository.Document{Collection: "messages", OwnerID: "g1", ParentID: "c2", Body: map[string]any{"content": "elsewhere"}}); err != nil {
		t.Fatal(err)
	}
	msgs, _, err := repo.ListDocuments(ctx, repository.DocumentQuery{OwnerID: "g1", Collection: "messages", ParentID: "c1", Oldest: true})
	if err != nil || len(msgs) != 2 || msgs[0].Body["content"] != "first" {
		t.Fatalf("nested: %v %+v", err, msgs)
	}
}

func TestUploads(t *testing.T) {
	repo := open(t, "repo_uploads")
	ctx := context.Background()
	u, err := repo.CreateUpload(ctx, repository.Upload{OwnerID: "g1", Name: "logo.png", ContentType: "image/png", Data: []byte{0x89, 'P'}})
	if err != nil {
		t.Fatal(err)
	}
	got, err := repo.GetUpload(ctx, u.ID)
	if err != nil || got.Name != "logo.png" || len(got.Data) != 2 {
		t.Fatalf("get upload: %v %+v", err, got)
	}
}
