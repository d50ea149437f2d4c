// internal/app/store/logins/loginstore_test.go
package loginstore

import (
	"errors"
	"testing"

	"github.com/dalemusser/dochub/internal/app/system/indexes"
	"github.com/dalemusser/dochub/internal/testutil"
	"go.mongodb.org/mongo-driver/mongo"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	db := testutil.SetupTestDB(t)

	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}
	return New(db)
}

func TestCreatePreservesDisplayCasing(t *testing.T) {
	s := setupStore(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	l, err := s.Create(ctx, 1, "Mixed.Case@Example.COM")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if l.Email != "mixed.case@example.com" {
		t.Errorf("normalized email = %q", l.Email)
	}
	if l.DisplayEmail != "Mixed.Case@Example.COM" {
		t.Errorf("display email = %q, want original casing", l.DisplayEmail)
	}
}

func TestCreateDuplicateEmail(t *testing.T) {
	s := setupStore(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, err := s.Create(ctx, 1, "dup@example.com"); err != nil {
		t.Fatalf("first Create: %v", err)
	}
	// same normalized email, different casing and user
	if _, err := s.Create(ctx, 2, "DUP@example.com"); !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("err = %v, want ErrDuplicateEmail", err)
	}
}

func TestGetByEmailIsCaseInsensitive(t *testing.T) {
	s := setupStore(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, err := s.GetByEmail(ctx, "missing@example.com"); !errors.Is(err, mongo.ErrNoDocuments) {
		t.Fatalf("err = %v, want mongo.ErrNoDocuments", err)
	}

	if _, err := s.Create(ctx, 7, "Person@Example.com"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	l, err := s.GetByEmail(ctx, "pERSON@eXAMPLE.com")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if l.UserID != 7 {
		t.Fatalf("user id = %d, want 7", l.UserID)
	}
}

func TestGetByEmails(t *testing.T) {
	s := setupStore(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, err := s.Create(ctx, 1, "a@example.com"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := s.Create(ctx, 2, "b@example.com"); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := s.GetByEmails(ctx, []string{"A@Example.com", "b@example.com", "c@example.com"})
	if err != nil {
		t.Fatalf("GetByEmails: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d logins, want 2", len(got))
	}
	if got["a@example.com"].UserID != 1 || got["b@example.com"].UserID != 2 {
		t.Errorf("unexpected map: %+v", got)
	}
}

func TestReplaceForUser(t *testing.T) {
	s := setupStore(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, err := s.Create(ctx, 5, "old@example.com"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.ReplaceForUser(ctx, 5, "New@Example.com"); err != nil {
		t.Fatalf("ReplaceForUser: %v", err)
	}

	if _, err := s.GetByEmail(ctx, "old@example.com"); !errors.Is(err, mongo.ErrNoDocuments) {
		t.Fatalf("old address still resolves: %v", err)
	}
	l, err := s.GetByEmail(ctx, "new@example.com")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if l.UserID != 5 || l.DisplayEmail != "New@Example.com" {
		t.Errorf("unexpected login: %+v", l)
	}

	// a user with no login row gets one created
	if err := s.ReplaceForUser(ctx, 6, "fresh@example.com"); err != nil {
		t.Fatalf("ReplaceForUser without row: %v", err)
	}
	l, err = s.GetByEmail(ctx, "fresh@example.com")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if l.UserID != 6 {
		t.Fatalf("user id = %d, want 6", l.UserID)
	}
}

func TestUpdateDisplay(t *testing.T) {
	s := setupStore(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, err := s.Create(ctx, 3, "casey@example.com"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.UpdateDisplay(ctx, "CASEY@example.com", "Casey@Example.COM"); err != nil {
		t.Fatalf("UpdateDisplay: %v", err)
	}

	l, err := s.GetByEmail(ctx, "casey@example.com")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if l.DisplayEmail != "Casey@Example.COM" {
		t.Errorf("display email = %q, want refreshed casing", l.DisplayEmail)
	}
	if l.Email != "casey@example.com" {
		t.Errorf("normalized email = %q, lookup key must not change", l.Email)
	}
}

func TestDeleteByUser(t *testing.T) {
	s := setupStore(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, err := s.Create(ctx, 9, "bye@example.com"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	n, err := s.DeleteByUser(ctx, 9)
	if err != nil || n != 1 {
		t.Fatalf("DeleteByUser = (%d, %v), want (1, nil)", n, err)
	}
	if _, err := s.GetByEmail(ctx, "bye@example.com"); !errors.Is(err, mongo.ErrNoDocuments) {
		t.Fatalf("login survived delete: %v", err)
	}
}
