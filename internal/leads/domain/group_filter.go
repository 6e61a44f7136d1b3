package domain

import (
	"fmt"
	"time"
)

// WindowRule says how a group treats the follow-up window.
type WindowRule int

const (
	// WindowIgnore does not look at the follow-up time.
	WindowIgnore WindowRule = iota
	// WindowRequire keeps only leads with a due follow-up.
	WindowRequire
	// WindowExclude drops leads with a due follow-up.
	WindowExclude
)

// GroupFilter is the declarative form of DeriveQueue for one group. Query
// builders translate it into SQL or index clauses so list filters and the
// derived statusGroup agree on every boundary.
type GroupFilter struct {
	Group StatusGroup
	// Statuses, when non-empty, restricts to status IN Statuses.
	Statuses []string
	// ExcludeStatuses, when non-empty, restricts to status NOT IN ExcludeStatuses.
	ExcludeStatuses []string
	Window          WindowRule
}

// FilterFor returns the filter selecting exactly the leads DeriveQueue
// puts in group.
func FilterFor(group StatusGroup) (GroupFilter, error) {
	switch group {
	case GroupFollowUp:
		return GroupFilter{Group: group, ExcludeStatuses: TerminalStatuses(), Window: WindowRequire}, nil
	case GroupEnrolled:
		return GroupFilter{Group: group, Statuses: []string{StatusEnrolled}}, nil
	case GroupArchived:
		return GroupFilter{Group: group, Statuses: clone(archivedStatuses)}, nil
	case GroupTeamFollowUp:
		return GroupFilter{Group: group, Statuses: []string{StatusTeamFollowUp}, Window: WindowExclude}, nil
	case GroupInProcess:
		statuses := make([]string, 0, len(inProcessStatuses))
		for _, s := range inProcessStatuses {
			if s != StatusTeamFollowUp {
				statuses = append(statuses, s)
			}
		}
		return GroupFilter{Group: group, Statuses: statuses, Window: WindowExclude}, nil
	case GroupOpen:
		// open is the fallback group, so it is everything not classified elsewhere.
		exclude := make([]string, 0, len(allStatuses))
		for _, s := range allStatuses {
			if s != StatusOpen {
				exclude = append(exclude, s)
			}
		}
		return GroupFilter{Group: group, ExcludeStatuses: exclude, Window: WindowExclude}, nil
	default:
		return GroupFilter{}, fmt.Errorf("unknown status group %q", group)
	}
}

// Matches evaluates the filter in memory.
func (f GroupFilter) Matches(status string, followUpAt *time.Time, now time.Time) bool {
	if len(f.Statuses) > 0 && !contains(f.Statuses, status) {
		return false
	}
	if len(f.ExcludeStatuses) > 0 && contains(f.ExcludeStatuses, status) {
		return false
	}
	switch f.Window {
	case WindowRequire:
		return InFollowUpWindow(followUpAt, now)
	case WindowExclude:
		return !InFollowUpWindow(followUpAt, now)
	default:
		return true
	}
}

// ParseGroup accepts a tab name. "" and "all" mean no filter.
func ParseGroup(tab string) (StatusGroup, bool, error) {
	if tab == "" || tab == "all" {
		return "", false, nil
	}
	for _, g := range AllGroups() {
		if string(g) == tab {
			return g, true, nil
		}
	}
	return "", false, fmt.Errorf("unknown tab %q", tab)
}

// TabNames lists the accepted tab filter values.
func TabNames() []string {
	names := []string{"all"}
	for _, g := range AllGroups() {
		names = append(names, string(g))
	}
	return names
}
