package repository

import (
	"strings"
	"testing"
	"time"

	"leaddesk_backend/internal/leads/domain"
)

func TestBuildLeadListWhereFollowUpBindsWindow(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	group := domain.GroupFollowUp

	where, args, next, err := buildLeadListWhere(ListParams{Group: &group, Now: now, Search: "asha"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(where, "NOT (l.status = ANY($1))") {
		t.Fatalf("terminal statuses not excluded: %s", where)
	}
	if !strings.Contains(where, "l.follow_up_at > $2 AND l.follow_up_at <= $3") {
		t.Fatalf("window not required: %s", where)
	}
	if !strings.Contains(where, "l.name ILIKE $4") {
		t.Fatalf("search clause missing: %s", where)
	}
	if next != 5 || len(args) != 4 {
		t.Fatalf("next=%d args=%d", next, len(args))
	}
	if after := args[1].(time.Time); !after.Equal(now) {
		t.Fatalf("window start = %v", after)
	}
	if until := args[2].(time.Time); !until.Equal(now.Add(domain.FollowUpHorizon)) {
		t.Fatalf("window end = %v", until)
	}
}

func TestBuildLeadListWhereOpenExcludesWindow(t *testing.T) {
	group := domain.GroupOpen
	where, _, _, err := buildLeadListWhere(ListParams{Group: &group, Now: time.Now()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(where, "l.follow_up_at IS NULL OR l.follow_up_at <= $2 OR l.follow_up_at > $3") {
		t.Fatalf("window not excluded: %s", where)
	}
}

func TestBuildLeadListWhereUnknownGroup(t *testing.T) {
	group := domain.StatusGroup("vip")
	if _, _, _, err := buildLeadListWhere(ListParams{Group: &group}); err == nil {
		t.Fatal("expected error for unknown group")
	}
}

func TestPrefixedColumns(t *testing.T) {
	got := prefixed("l", "id, name,\n\tstatus")
	if got != "l.id, l.name, l.status" {
		t.Fatalf("prefixed = %q", got)
	}
}

func TestBuildLeadListWhereSearchMatchesWildcardsLiterally(t *testing.T) {
	where, args, _, err := buildLeadListWhere(ListParams{Search: `50%_off\x`})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(where, `l.name ILIKE $1 ESCAPE '\'`) {
		t.Fatalf("escape clause missing: %s", where)
	}
	if got, want := args[0].(string), `%50\%\_off\\x%`; got != want {
		t.Fatalf("pattern = %q, want %q", got, want)
	}
}
