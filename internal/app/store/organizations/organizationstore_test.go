// internal/app/store/organizations/organizationstore_test.go
package organizationstore

import (
	"errors"
	"testing"

	"github.com/dalemusser/dochub/internal/app/system/indexes"
	"github.com/dalemusser/dochub/internal/domain/models"
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

func TestCreatePersonal(t *testing.T) {
	s := setupStore(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	org, err := s.CreatePersonal(ctx, 42)
	if err != nil {
		t.Fatalf("CreatePersonal: %v", err)
	}
	if org.Name != models.PersonalOrgName {
		t.Errorf("name = %q, want %q", org.Name, models.PersonalOrgName)
	}
	if !org.IsPersonal() {
		t.Error("IsPersonal() = false")
	}
	if org.OwnerID == nil || *org.OwnerID != 42 {
		t.Errorf("owner = %v, want 42", org.OwnerID)
	}

	// one personal org per owner
	if _, err := s.CreatePersonal(ctx, 42); !errors.Is(err, ErrDuplicatePersonalOrg) {
		t.Fatalf("second CreatePersonal err = %v, want ErrDuplicatePersonalOrg", err)
	}
}

func TestGetByOwner(t *testing.T) {
	s := setupStore(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, err := s.GetByOwner(ctx, 7); !errors.Is(err, mongo.ErrNoDocuments) {
		t.Fatalf("err = %v, want mongo.ErrNoDocuments", err)
	}

	created, err := s.CreatePersonal(ctx, 7)
	if err != nil {
		t.Fatalf("CreatePersonal: %v", err)
	}
	got, err := s.GetByOwner(ctx, 7)
	if err != nil {
		t.Fatalf("GetByOwner: %v", err)
	}
	if got.ID != created.ID {
		t.Fatalf("id = %d, want %d", got.ID, created.ID)
	}
}

func TestDeleteByOwner(t *testing.T) {
	s := setupStore(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, err := s.CreatePersonal(ctx, 9); err != nil {
		t.Fatalf("CreatePersonal: %v", err)
	}
	n, err := s.DeleteByOwner(ctx, 9)
	if err != nil || n != 1 {
		t.Fatalf("DeleteByOwner = (%d, %v), want (1, nil)", n, err)
	}
	if _, err := s.GetByOwner(ctx, 9); !errors.Is(err, mongo.ErrNoDocuments) {
		t.Fatalf("organization survived delete: %v", err)
	}
}
