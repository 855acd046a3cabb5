package store

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "galvaniy.db"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRegisterUserRoles(t *testing.T) {
	s := testStore(t)

	u, err := s.RegisterUser("jane@students.uonbi.ac.ke")
	if err != nil {
		t.Fatalf("RegisterUser: %v", err)
	}
	if u.Role != "student" || u.CustomLimit != DefaultDailyLimit || u.IsRevoked {
		t.Errorf("unexpected student defaults: %+v", u)
	}

	a, err := s.RegisterUser("admin@galvaniy.app")
	if err != nil {
		t.Fatal(err)
	}
	if !a.IsAdmin() {
		t.Errorf("admin email registered as %q", a.Role)
	}

	// Re-registration returns the existing account unchanged.
	again, err := s.RegisterUser("jane@students.uonbi.ac.ke")
	if err != nil {
		t.Fatal(err)
	}
	if !again.RegisteredAt.Equal(u.RegisteredAt) {
		t.Error("re-registration must not create a new account")
	}
}

func TestGetUserNotFound(t *testing.T) {
	s := testStore(t)
	if _, err := s.GetUser("ghost@nowhere"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRevokeToggles(t *testing.T) {
	s := testStore(t)
	s.RegisterUser("jane@x")

	if err := s.RevokeUser("jane@x"); err != nil {
		t.Fatal(err)
	}
	u, _ := s.GetUser("jane@x")
	if !u.IsRevoked {
		t.Error("first revoke should set the flag")
	}
	s.RevokeUser("jane@x")
	u, _ = s.GetUser("jane@x")
	if u.IsRevoked {
		t.Error("second revoke should clear the flag")
	}
	if err := s.RevokeUser("ghost@x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("revoking unknown user: %v", err)
	}
}

func TestSaveAndListReports(t *testing.T) {
	s := testStore(t)
	s.RegisterUser("jane@x")

	first, err := s.SaveReport("jane@x", "PHY110", []byte(`{"title":"one"}`))
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.SaveReport("jane@x", "PHY235", []byte(`{"title":"two"}`))
	if err != nil {
		t.Fatal(err)
	}

	reports, err := s.ListReports("jane@x")
	if err != nil {
		t.Fatal(err)
	}
	if len(reports) != 2 {
		t.Fatalf("got %d reports", len(reports))
	}
	// Most recent first.
	if reports[0].ID != second.ID || reports[1].ID != first.ID {
		t.Error("reports not ordered most-recent-first")
	}

	u, _ := s.GetUser("jane@x")
	if u.ReportsGenerated != 2 {
		t.Errorf("reportsGenerated = %d, want 2", u.ReportsGenerated)
	}

	got, err := s.GetReport("jane@x", first.ID)
	if err != nil {
		t.Fatal(err)
	}
	if string(got.Payload) != `{"title":"one"}` {
		t.Errorf("payload = %s", got.Payload)
	}
	// Ownership is part of the key.
	if _, err := s.GetReport("other@x", first.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("cross-user fetch: %v", err)
	}
}

func TestDailyLimit(t *testing.T) {
	s := testStore(t)
	s.RegisterUser("jane@x")

	for i := 0; i < DefaultDailyLimit; i++ {
		ok, err := s.CheckDailyLimit("jane@x")
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			t.Fatalf("limit hit after %d generations", i)
		}
		s.IncrementDailyUsage("jane@x")
	}
	if ok, _ := s.CheckDailyLimit("jane@x"); ok {
		t.Error("limit not enforced after quota exhausted")
	}
	if n, _ := s.DailyCount("jane@x"); n != DefaultDailyLimit {
		t.Errorf("daily count = %d", n)
	}

	// Raised limit takes effect immediately.
	if err := s.UpdateUserLimit("jane@x", 10); err != nil {
		t.Fatal(err)
	}
	if ok, _ := s.CheckDailyLimit("jane@x"); !ok {
		t.Error("raised limit should allow more generations")
	}
}

func TestAdminBypassesLimit(t *testing.T) {
	s := testStore(t)
	s.RegisterUser("admin@x")
	for i := 0; i < 20; i++ {
		s.IncrementDailyUsage("admin@x")
	}
	if ok, _ := s.CheckDailyLimit("admin@x"); !ok {
		t.Error("admin must bypass the daily limit")
	}
}

func TestReferencesAndFullContext(t *testing.T) {
	s := testStore(t)

	r1, err := s.AddReference("Use 3 significant figures.")
	if err != nil {
		t.Fatal(err)
	}
	s.AddReference("Record temperatures in Celsius.")

	refs, err := s.ListReferences()
	if err != nil {
		t.Fatal(err)
	}
	if len(refs) != 2 {
		t.Fatalf("got %d references", len(refs))
	}

	ctx, err := s.FullContext("MANUAL TEXT")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(ctx, "MANUAL TEXT") ||
		!strings.Contains(ctx, "ADDITIONAL ADMIN REFERENCES:") ||
		!strings.Contains(ctx, "Record temperatures in Celsius.") {
		t.Errorf("full context malformed: %q", ctx)
	}

	if err := s.RemoveReference(r1.ID); err != nil {
		t.Fatal(err)
	}
	refs, _ = s.ListReferences()
	if len(refs) != 1 || refs[0].Text != "Record temperatures in Celsius." {
		t.Errorf("after removal: %+v", refs)
	}
	if err := s.RemoveReference(999); !errors.Is(err, ErrNotFound) {
		t.Errorf("removing missing reference: %v", err)
	}
}

func TestPersistenceAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "galvaniy.db")

	s, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	s.RegisterUser("jane@x")
	s.SaveReport("jane@x", "PHY110", []byte(`{}`))
	s.Close()

	s2, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()
	reports, err := s2.ListReports("jane@x")
	if err != nil {
		t.Fatal(err)
	}
	if len(reports) != 1 {
		t.Errorf("reports lost across reopen: %d", len(reports))
	}
}
