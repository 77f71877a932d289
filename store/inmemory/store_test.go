package inmemory

import (
	"context"
	"errors"
	"testing"

	"github.com/scimcore/idp-gateway/resource"
	"github.com/scimcore/idp-gateway/store"
)

func TestCreateAndGetUser(t *testing.T) {
	s := New()
	ctx := context.Background()

	u, err := s.CreateUser(ctx, &resource.User{UserName: "jdoe", Password: "hunter2"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if u.ID == "" {
		t.Fatalf("expected id to be assigned")
	}
	if u.Password != "" {
		t.Errorf("expected sanitized user, password leaked")
	}

	got, err := s.GetUser(ctx, u.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.UserName != "jdoe" {
		t.Errorf("got %+v", got)
	}
}

func TestCreateUserDuplicateUserNameCaseInsensitive(t *testing.T) {
	s := New()
	ctx := context.Background()
	if _, err := s.CreateUser(ctx, &resource.User{UserName: "jdoe"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err := s.CreateUser(ctx, &resource.User{UserName: "JDOE"})
	var aerr *store.AlreadyExistsError
	if !errors.As(err, &aerr) {
		t.Fatalf("got %v, want AlreadyExistsError", err)
	}
}

func TestGetUserNotFound(t *testing.T) {
	s := New()
	_, err := s.GetUser(context.Background(), "missing")
	var nerr *store.NotFoundError
	if !errors.As(err, &nerr) {
		t.Fatalf("got %v, want NotFoundError", err)
	}
}

func TestSearchUsersFiltersAndPaginates(t *testing.T) {
	s := New()
	ctx := context.Background()
	for _, name := range []string{"alice", "bob", "albert"} {
		if _, err := s.CreateUser(ctx, &resource.User{UserName: name}); err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
	}

	res, err := s.SearchUsers(ctx, `userName sw "al"`, 1, 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if res.Total != 2 {
		t.Fatalf("got total %d, want 2", res.Total)
	}

	page, err := s.SearchUsers(ctx, "", 1, 1)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(page.Resources) != 1 || page.Total != 3 {
		t.Fatalf("got %d resources, total %d", len(page.Resources), page.Total)
	}
}

func TestSearchUsersUnsupportedFilterIsParseError(t *testing.T) {
	s := New()
	_, err := s.SearchUsers(context.Background(), `userName bogus "x"`, 1, 10)
	var perr *store.FilterParseError
	if !errors.As(err, &perr) {
		t.Fatalf("got %v, want FilterParseError", err)
	}
}

func TestGroupMembershipLifecycle(t *testing.T) {
	s := New()
	ctx := context.Background()

	u1, _ := s.CreateUser(ctx, &resource.User{UserName: "alice"})
	u2, _ := s.CreateUser(ctx, &resource.User{UserName: "bob"})
	g, err := s.CreateGroup(ctx, &resource.Group{DisplayName: "engineers"})
	if err != nil {
		t.Fatalf("create group: %v", err)
	}

	if err := s.AddUserToGroup(ctx, u1.ID, g.ID); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := s.AddUserToGroup(ctx, u1.ID, g.ID); err != nil { // idempotent
		t.Fatalf("add again: %v", err)
	}
	if err := s.AddUserToGroup(ctx, u2.ID, g.ID); err != nil {
		t.Fatalf("add u2: %v", err)
	}

	refreshed, err := s.GetGroup(ctx, g.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(refreshed.Members) != 2 {
		t.Fatalf("got %d members, want 2", len(refreshed.Members))
	}

	if err := s.RemoveUsersFromGroup(ctx, []string{u1.ID, "nonexistent"}, g.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	refreshed, _ = s.GetGroup(ctx, g.ID)
	if len(refreshed.Members) != 1 || refreshed.Members[0].Value != u2.ID {
		t.Fatalf("got %+v", refreshed.Members)
	}

	if err := s.SetGroupMembers(ctx, []string{u1.ID}, g.ID); err != nil {
		t.Fatalf("set: %v", err)
	}
	refreshed, _ = s.GetGroup(ctx, g.ID)
	if len(refreshed.Members) != 1 || refreshed.Members[0].Value != u1.ID {
		t.Fatalf("got %+v", refreshed.Members)
	}
}

func TestSearchMembersBySubFilter(t *testing.T) {
	s := New()
	ctx := context.Background()
	u1, _ := s.CreateUser(ctx, &resource.User{UserName: "alice"})
	g, _ := s.CreateGroup(ctx, &resource.Group{DisplayName: "engineers"})
	_ = s.AddUserToGroup(ctx, u1.ID, g.ID)

	refs, err := s.SearchMembers(ctx, `value eq "`+u1.ID+`"`, g.ID)
	if err != nil {
		t.Fatalf("search members: %v", err)
	}
	if len(refs) != 1 || refs[0].Value != u1.ID {
		t.Fatalf("got %+v", refs)
	}
}

func TestDeleteUserRemovesMembership(t *testing.T) {
	s := New()
	ctx := context.Background()
	u, _ := s.CreateUser(ctx, &resource.User{UserName: "alice"})
	g, _ := s.CreateGroup(ctx, &resource.Group{DisplayName: "engineers"})
	_ = s.AddUserToGroup(ctx, u.ID, g.ID)

	if err := s.DeleteUser(ctx, u.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	refreshed, _ := s.GetGroup(ctx, g.ID)
	if len(refreshed.Members) != 0 {
		t.Fatalf("expected membership cleanup, got %+v", refreshed.Members)
	}
}
