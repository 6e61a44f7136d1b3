// Package domain provides core business rules for the leads bounded context.
package domain

import (
	"strings"
	"time"
)

// Raw lead statuses as stored on the record.
const (
	StatusOpen           = "open"
	StatusEnrolled       = "Enrolled"
	StatusDead           = "Dead"
	StatusNotInterested  = "notinterested"
	StatusDNR1           = "DNR1"
	StatusDNR2           = "DNR2"
	StatusDNR3           = "DNR3"
	StatusInterested     = "interested"
	StatusNotWorking     = "not working"
	StatusFollowUp       = "follow up"
	StatusWrongNumber    = "wrong no"
	StatusCallAgainLater = "call again later"
	StatusTeamFollowUp   = "teamfollowup"
)

// StatusGroup is the queue a lead is shown in. It is derived on every read
// and never stored.
type StatusGroup string

const (
	GroupOpen         StatusGroup = "open"
	GroupEnrolled     StatusGroup = "Enrolled"
	GroupArchived     StatusGroup = "archived"
	GroupInProcess    StatusGroup = "inProcess"
	GroupFollowUp     StatusGroup = "followUp"
	GroupTeamFollowUp StatusGroup = "teamFollowup"
)

// FollowUpHorizon is how far ahead a follow-up pulls a lead into the
// followUp queue.
const FollowUpHorizon = 24 * time.Hour

var (
	allStatuses = []string{
		StatusOpen, StatusEnrolled, StatusDead, StatusNotInterested,
		StatusDNR1, StatusDNR2, StatusDNR3, StatusInterested, StatusNotWorking,
		StatusFollowUp, StatusWrongNumber, StatusCallAgainLater, StatusTeamFollowUp,
	}

	archivedStatuses = []string{StatusDead, StatusNotInterested}

	inProcessStatuses = []string{
		StatusDNR1, StatusDNR2, StatusDNR3, StatusInterested, StatusNotWorking,
		StatusFollowUp, StatusWrongNumber, StatusCallAgainLater, StatusTeamFollowUp,
	}

	// terminalStatuses keep their own group even with a due follow-up.
	terminalStatuses = []string{StatusDead, StatusNotInterested, StatusEnrolled}

	statusGroups = func() map[string]StatusGroup {
		m := map[string]StatusGroup{
			StatusOpen:     GroupOpen,
			StatusEnrolled: GroupEnrolled,
		}
		for _, s := range archivedStatuses {
			m[s] = GroupArchived
		}
		for _, s := range inProcessStatuses {
			m[s] = GroupInProcess
		}
		return m
	}()
)

// AllStatuses returns every known raw status.
func AllStatuses() []string {
	return clone(allStatuses)
}

// TerminalStatuses returns the statuses a due follow-up never overrides.
func TerminalStatuses() []string {
	return clone(terminalStatuses)
}

// AllGroups returns every status group.
func AllGroups() []StatusGroup {
	return []StatusGroup{GroupOpen, GroupInProcess, GroupFollowUp, GroupTeamFollowUp, GroupArchived, GroupEnrolled}
}

// IsKnownStatus reports whether status is one of the raw statuses.
func IsKnownStatus(status string) bool {
	_, ok := statusGroups[status]
	return ok
}

// IsTerminalStatus reports whether status is exempt from the follow-up override.
func IsTerminalStatus(status string) bool {
	return contains(terminalStatuses, status)
}

// InFollowUpWindow reports whether followUpAt lies in (now, now+24h].
// A follow-up exactly at now, or already in the past, is not due.
func InFollowUpWindow(followUpAt *time.Time, now time.Time) bool {
	if followUpAt == nil {
		return false
	}
	d := followUpAt.Sub(now)
	return d > 0 && d <= FollowUpHorizon
}

// FollowUpWindow returns the bounds used by InFollowUpWindow: a follow-up
// is due when after < followUpAt <= until.
func FollowUpWindow(now time.Time) (after, until time.Time) {
	return now, now.Add(FollowUpHorizon)
}

// DeriveStatusGroup classifies a lead. A follow-up due within 24 hours wins
// over the raw status unless the status is terminal. Unknown statuses fall
// back to open. teamfollowup is reported as inProcess.
func DeriveStatusGroup(status string, followUpAt *time.Time, now time.Time) StatusGroup {
	return derive(status, followUpAt, now, false)
}

// DeriveQueue is DeriveStatusGroup for contexts with a dedicated team
// follow-up queue: teamfollowup maps to teamFollowup instead of inProcess.
func DeriveQueue(status string, followUpAt *time.Time, now time.Time) StatusGroup {
	return derive(status, followUpAt, now, true)
}

func derive(status string, followUpAt *time.Time, now time.Time, distinguishTeam bool) StatusGroup {
	if !IsTerminalStatus(status) && InFollowUpWindow(followUpAt, now) {
		return GroupFollowUp
	}
	if distinguishTeam && status == StatusTeamFollowUp {
		return GroupTeamFollowUp
	}
	if group, ok := statusGroups[status]; ok {
		return group
	}
	return GroupOpen
}

// PrimaryEmail is the lowercased first email, or "" when there is none.
func PrimaryEmail(emails []string) string {
	for _, e := range emails {
		return strings.ToLower(strings.TrimSpace(e))
	}
	return ""
}

// NormalizeEmails trims every address and drops blanks, keeping order.
func NormalizeEmails(emails []string) []string {
	out := make([]string, 0, len(emails))
	for _, e := range emails {
		if trimmed := strings.TrimSpace(e); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func clone(list []string) []string {
	out := make([]string, len(list))
	copy(out, list)
	return out
}
