package domain

import (
	"testing"
	"time"
)

func at(now time.Time, d time.Duration) *time.Time {
	t := now.Add(d)
	return &t
}

func TestDeriveStatusGroupFollowUpWindow(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	if got := DeriveStatusGroup(StatusInterested, at(now, 2*time.Hour), now); got != GroupFollowUp {
		t.Fatalf("interested with follow-up in 2h: got %q, want followUp", got)
	}
	if got := DeriveStatusGroup(StatusInterested, at(now, 48*time.Hour), now); got != GroupInProcess {
		t.Fatalf("interested with follow-up in 48h: got %q, want inProcess", got)
	}
}

func TestDeriveStatusGroupBoundaries(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	cases := []struct {
		name     string
		followUp *time.Time
		want     StatusGroup
	}{
		{"no follow-up", nil, GroupOpen},
		{"exactly now", at(now, 0), GroupOpen},
		{"in the past", at(now, -time.Minute), GroupOpen},
		{"one nanosecond ahead", at(now, time.Nanosecond), GroupFollowUp},
		{"exactly 24h ahead", at(now, 24*time.Hour), GroupFollowUp},
		{"just past 24h", at(now, 24*time.Hour+time.Nanosecond), GroupOpen},
	}

	for _, tc := range cases {
		if got := DeriveStatusGroup(StatusOpen, tc.followUp, now); got != tc.want {
			t.Errorf("%s: got %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestDeriveStatusGroupTerminalStatusesIgnoreFollowUp(t *testing.T) {
	now := time.Now()
	due := at(now, time.Hour)

	want := map[string]StatusGroup{
		StatusDead:          GroupArchived,
		StatusNotInterested: GroupArchived,
		StatusEnrolled:      GroupEnrolled,
	}
	for status, group := range want {
		if got := DeriveStatusGroup(status, due, now); got != group {
			t.Errorf("%s with due follow-up: got %q, want %q", status, got, group)
		}
	}
}

func TestDeriveStatusGroupClassification(t *testing.T) {
	now := time.Now()

	for _, status := range []string{
		StatusDNR1, StatusDNR2, StatusDNR3, StatusInterested, StatusNotWorking,
		StatusFollowUp, StatusWrongNumber, StatusCallAgainLater, StatusTeamFollowUp,
	} {
		if got := DeriveStatusGroup(status, nil, now); got != GroupInProcess {
			t.Errorf("%s: got %q, want inProcess", status, got)
		}
	}

	if got := DeriveStatusGroup("something new", nil, now); got != GroupOpen {
		t.Errorf("unknown status: got %q, want open", got)
	}
	if got := DeriveStatusGroup("", nil, now); got != GroupOpen {
		t.Errorf("empty status: got %q, want open", got)
	}
}

func TestDeriveQueueDistinguishesTeamFollowUp(t *testing.T) {
	now := time.Now()

	if got := DeriveQueue(StatusTeamFollowUp, nil, now); got != GroupTeamFollowUp {
		t.Fatalf("got %q, want teamFollowup", got)
	}
	if got := DeriveQueue(StatusTeamFollowUp, at(now, time.Hour), now); got != GroupFollowUp {
		t.Fatalf("due follow-up must still win: got %q", got)
	}
	if got := DeriveQueue(StatusInterested, nil, now); got != GroupInProcess {
		t.Fatalf("got %q, want inProcess", got)
	}
}

// Every (status, follow-up) combination must be selected by exactly one
// group filter, and that group must be the derived queue.
func TestGroupFiltersPartitionDerivedQueues(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	offsets := []*time.Duration{nil}
	for _, d := range []time.Duration{-time.Hour, 0, time.Nanosecond, 2 * time.Hour, 24 * time.Hour, 24*time.Hour + time.Nanosecond, 48 * time.Hour} {
		d := d
		offsets = append(offsets, &d)
	}

	filters := make([]GroupFilter, 0)
	for _, g := range AllGroups() {
		f, err := FilterFor(g)
		if err != nil {
			t.Fatalf("FilterFor(%q): %v", g, err)
		}
		filters = append(filters, f)
	}

	statuses := append(AllStatuses(), "mystery")
	for _, status := range statuses {
		for _, off := range offsets {
			var followUp *time.Time
			if off != nil {
				followUp = at(now, *off)
			}

			want := DeriveQueue(status, followUp, now)
			matched := []StatusGroup{}
			for _, f := range filters {
				if f.Matches(status, followUp, now) {
					matched = append(matched, f.Group)
				}
			}
			if len(matched) != 1 || matched[0] != want {
				t.Errorf("status=%q offset=%v: derived %q, filters matched %v", status, off, want, matched)
			}
		}
	}
}

func TestParseGroup(t *testing.T) {
	if _, ok, err := ParseGroup("all"); ok || err != nil {
		t.Fatalf("all should mean no filter, got ok=%v err=%v", ok, err)
	}
	g, ok, err := ParseGroup("teamFollowup")
	if err != nil || !ok || g != GroupTeamFollowUp {
		t.Fatalf("unexpected parse: %q %v %v", g, ok, err)
	}
	if _, _, err := ParseGroup("bogus"); err == nil {
		t.Fatal("expected error for unknown tab")
	}
}

func TestPrimaryEmail(t *testing.T) {
	if got := PrimaryEmail([]string{"  Asha.K@Example.COM ", "other@example.com"}); got != "asha.k@example.com" {
		t.Fatalf("PrimaryEmail = %q", got)
	}
	if got := PrimaryEmail(nil); got != "" {
		t.Fatalf("PrimaryEmail(nil) = %q", got)
	}
	if got := NormalizeEmails([]string{" a@b.co ", "", "  "}); len(got) != 1 || got[0] != "a@b.co" {
		t.Fatalf("NormalizeEmails = %v", got)
	}
}
