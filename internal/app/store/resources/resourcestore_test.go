// internal/app/store/resources/resourcestore_test.go
package resourcestore

import (
	"errors"
	"testing"

	"github.com/dalemusser/dochub/internal/domain/models"
	"github.com/dalemusser/dochub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
)

func setupStore(t *testing.T) (*Store, *testutil.Fixtures) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	return New(db), testutil.NewFixtures(t, db)
}

func ruleGroupIDs(r *models.Resource) []int64 {
	ids := make([]int64, 0, len(r.ACLRules))
	for _, rule := range r.ACLRules {
		ids = append(ids, rule.GroupID)
	}
	return ids
}

func TestCreateValidatesKind(t *testing.T) {
	s, _ := setupStore(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, err := s.Create(ctx, "folder", "x"); err == nil {
		t.Fatal("expected error for unknown resource kind")
	}
}

func TestCreateAndAddRuleKeepOrder(t *testing.T) {
	s, fx := setupStore(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	g1 := fx.CreateGroup(ctx, models.GroupTypeRole, "owners")
	g2 := fx.CreateGroup(ctx, models.GroupTypeRole, "editors")
	g3 := fx.CreateGroup(ctx, models.GroupTypeRole, "viewers")

	r, err := s.Create(ctx, models.ResourceKindDocument, "notes", g2.ID, g1.ID)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.AddRule(ctx, r.ID, g3.ID); err != nil {
		t.Fatalf("AddRule: %v", err)
	}

	got, err := s.GetByID(ctx, r.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	want := []int64{g2.ID, g1.ID, g3.ID}
	gotIDs := ruleGroupIDs(got)
	if len(gotIDs) != len(want) {
		t.Fatalf("rules = %v, want %v", gotIDs, want)
	}
	for i := range want {
		if gotIDs[i] != want[i] {
			t.Fatalf("rules = %v, want %v (insertion order)", gotIDs, want)
		}
	}

	if err := s.AddRule(ctx, 424242, g1.ID); !errors.Is(err, ErrResourceNotFound) {
		t.Fatalf("AddRule missing err = %v, want ErrResourceNotFound", err)
	}
}

func TestGetWithGroupsLoadsDirectMembers(t *testing.T) {
	s, fx := setupStore(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u1 := fx.CreateUser(ctx, "one")
	u2 := fx.CreateUser(ctx, "two")
	sub := fx.CreateGroup(ctx, models.GroupTypeRole, "nested", u2.ID)

	top := fx.CreateGroup(ctx, models.GroupTypeRole, "direct", u1.ID)
	// reference the nested group from the top group by hand
	_, err := fx.DB().Collection("groups").UpdateOne(ctx,
		bson.M{"_id": top.ID},
		bson.M{"$set": bson.M{"member_group_ids": []int64{sub.ID}}})
	if err != nil {
		t.Fatalf("wire sub-group: %v", err)
	}

	r := fx.CreateResource(ctx, models.ResourceKindWorkspace, "ws", top.ID)

	got, err := s.GetWithGroups(ctx, r.ID)
	if err != nil {
		t.Fatalf("GetWithGroups: %v", err)
	}
	if len(got.ACLRules) != 1 || got.ACLRules[0].Group == nil {
		t.Fatalf("rule group not attached: %+v", got.ACLRules)
	}
	g := got.ACLRules[0].Group
	if len(g.MemberUsers) != 1 || g.MemberUsers[0].ID != u1.ID {
		t.Fatalf("direct members = %+v, want just u1", g.MemberUsers)
	}
	// sub-groups are not expanded by the resource join
	if g.MemberGroups != nil {
		t.Errorf("sub-groups expanded: %+v", g.MemberGroups)
	}
}

func TestGetWithGroupsMissing(t *testing.T) {
	s, _ := setupStore(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, err := s.GetWithGroups(ctx, 424242); !errors.Is(err, ErrResourceNotFound) {
		t.Fatalf("err = %v, want ErrResourceNotFound", err)
	}
}

func TestListWithGroupsByIDsKeepsSuppliedOrder(t *testing.T) {
	s, fx := setupStore(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	g := fx.CreateGroup(ctx, models.GroupTypeRole, "g")
	r1 := fx.CreateResource(ctx, models.ResourceKindDocument, "one", g.ID)
	r2 := fx.CreateResource(ctx, models.ResourceKindDocument, "two", g.ID)

	got, err := s.ListWithGroupsByIDs(ctx, []int64{r2.ID, 424242, r1.ID})
	if err != nil {
		t.Fatalf("ListWithGroupsByIDs: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("resources = %d, want 2 (unknown ids skipped)", len(got))
	}
	if got[0].ID != r2.ID || got[1].ID != r1.ID {
		t.Fatalf("order = [%d %d], want [%d %d]", got[0].ID, got[1].ID, r2.ID, r1.ID)
	}
}

func TestRemoveRulesForGroup(t *testing.T) {
	s, fx := setupStore(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	keep := fx.CreateGroup(ctx, models.GroupTypeRole, "keep")
	drop := fx.CreateGroup(ctx, models.GroupTypeRole, "drop")
	r := fx.CreateResource(ctx, models.ResourceKindDocument, "doc", keep.ID, drop.ID)

	n, err := s.RemoveRulesForGroup(ctx, drop.ID)
	if err != nil || n != 1 {
		t.Fatalf("RemoveRulesForGroup = (%d, %v), want (1, nil)", n, err)
	}

	got, err := s.GetByID(ctx, r.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	ids := ruleGroupIDs(got)
	if len(ids) != 1 || ids[0] != keep.ID {
		t.Fatalf("rules = %v, want just %d", ids, keep.ID)
	}
}
