package session

import (
	"testing"
	"time"

	"claims-reconciliation-service/pkg/errors"

	"github.com/spf13/afero"
)

func TestWeekID(t *testing.T) {
	tests := []struct {
		date string
		want string
	}{
		{"2024-01-01", "2024-W00"},
		{"2024-01-06", "2024-W00"},
		{"2024-01-07", "2024-W01"},
		{"2024-12-31", "2024-W52"},
		{"2023-01-01", "2023-W01"},
		{"2025-10-14", "2025-W41"},
	}

	for _, tt := range tests {
		t.Run(tt.date, func(t *testing.T) {
			d, err := time.Parse("2006-01-02", tt.date)
			if err != nil {
				t.Fatal(err)
			}
			if got := WeekID(d); got != tt.want {
				t.Errorf("WeekID(%s) = %s, want %s", tt.date, got, tt.want)
			}
		})
	}
}

func TestParseRole(t *testing.T) {
	if r, err := ParseRole(" Claims "); err != nil || r != RoleClaims {
		t.Errorf("Expected claims role, got %q, %v", r, err)
	}
	if r, err := ParseRole("FINANCE"); err != nil || r != RoleFinance {
		t.Errorf("Expected finance role, got %q, %v", r, err)
	}
	if _, err := ParseRole("audit"); err == nil {
		t.Errorf("Expected error for unknown role")
	}
	if RoleFinance.Title() != "Finance" {
		t.Errorf("Unexpected title %q", RoleFinance.Title())
	}
}

func newTestStore(t *testing.T, now time.Time) *Store {
	t.Helper()
	store, err := NewStore(afero.NewMemMapFs(), "sessions")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	return store.WithClock(func() time.Time { return now })
}

func TestSaveAndLoad(t *testing.T) {
	now := time.Date(2024, time.March, 12, 10, 0, 0, 0, time.UTC)
	store := newTestStore(t, now)

	res, err := store.Save(RoleClaims, Upload{FileName: "claims.xlsx", Sheet: "Sheet1", ScheduleColumn: "SCH NO", AmountColumn: "AMOUNT"}, []byte("claims-v1"))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if res.Week != "2024-W10" || res.Complete {
		t.Errorf("Unexpected save result %+v", res)
	}
	firstBlob := res.Record.Blob

	// replacing the claims upload keeps a single record
	res, err = store.Save(RoleClaims, Upload{FileName: "claims-fixed.xlsx"}, []byte("claims-v2"))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if res.Complete {
		t.Errorf("Expected session incomplete before finance upload")
	}
	if exists, _ := afero.Exists(store.fs, firstBlob); exists {
		t.Errorf("Expected replaced blob to be removed")
	}

	res, err = store.Save(RoleFinance, Upload{FileName: "finance.xlsx", Sheet: "CLAIMS RECEIVED WEEKLY REPORT"}, []byte("finance"))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !res.Complete {
		t.Errorf("Expected session complete after both uploads")
	}

	sess, err := store.Current()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if sess.Claims == nil || sess.Claims.FileName != "claims-fixed.xlsx" {
		t.Errorf("Unexpected claims record %+v", sess.Claims)
	}
	if !sess.Claims.UploadedAt.Equal(now) {
		t.Errorf("Expected upload timestamp from clock, got %v", sess.Claims.UploadedAt)
	}

	record, data, err := store.Load(sess.Week, RoleFinance)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if string(data) != "finance" || record.Sheet != "CLAIMS RECEIVED WEEKLY REPORT" {
		t.Errorf("Unexpected finance upload %+v %q", record, data)
	}
}

func TestGetMissingWeek(t *testing.T) {
	store := newTestStore(t, time.Now())

	sess, err := store.Get("2020-W01")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if sess.Claims != nil || sess.Finance != nil || sess.Complete() {
		t.Errorf("Expected empty session, got %+v", sess)
	}

	_, _, err = store.Load("2020-W01", RoleClaims)
	if !errors.IsCode(err, errors.CodeSessionNotFound) {
		t.Errorf("Expected session not found, got %v", err)
	}
}

func TestListNewestFirst(t *testing.T) {
	fs := afero.NewMemMapFs()
	store, err := NewStore(fs, "sessions")
	if err != nil {
		t.Fatal(err)
	}

	for _, d := range []time.Time{
		time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
		time.Date(2023, 12, 20, 0, 0, 0, 0, time.UTC),
	} {
		d := d
		store.WithClock(func() time.Time { return d })
		if _, err := store.Save(RoleClaims, Upload{FileName: "c.xlsx"}, []byte("x")); err != nil {
			t.Fatal(err)
		}
	}
	if err := afero.WriteFile(fs, "sessions/notes.txt", []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	weeks, err := store.List()
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"2024-W10", "2024-W01", "2023-W51"}
	if len(weeks) != len(want) {
		t.Fatalf("Expected %v, got %v", want, weeks)
	}
	for i := range want {
		if weeks[i] != want[i] {
			t.Errorf("Expected %v, got %v", want, weeks)
			break
		}
	}
}

func TestSaveRejectsUnknownRole(t *testing.T) {
	store := newTestStore(t, time.Now())
	if _, err := store.Save(Role("audit"), Upload{FileName: "x.xlsx"}, nil); err == nil {
		t.Errorf("Expected error for unknown role")
	}
}
