// internal/app/store/prefs/prefstore_test.go
package prefstore

import (
	"testing"

	"github.com/dalemusser/dochub/internal/testutil"
)

func TestSetUpsertsPerUserOrg(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := s.Set(ctx, 1, 10, map[string]any{"theme": "dark"}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Set(ctx, 1, 10, map[string]any{"theme": "light"}); err != nil {
		t.Fatalf("second Set: %v", err)
	}
	if err := s.Set(ctx, 1, 11, map[string]any{"theme": "dark"}); err != nil {
		t.Fatalf("other-org Set: %v", err)
	}

	rows, err := s.ListByUser(ctx, 1)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2 (one per org)", len(rows))
	}
	if rows[0].Prefs["theme"] != "light" {
		t.Errorf("first org prefs = %v, want overwritten value", rows[0].Prefs)
	}
}

func TestDeleteByUser(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := s.Set(ctx, 2, 10, map[string]any{"k": "v"}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	n, err := s.DeleteByUser(ctx, 2)
	if err != nil || n != 1 {
		t.Fatalf("DeleteByUser = (%d, %v), want (1, nil)", n, err)
	}
	rows, err := s.ListByUser(ctx, 2)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("rows after delete = %d, want 0", len(rows))
	}
}
