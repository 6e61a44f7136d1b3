package domain

import (
	"strings"
	"time"

	leaddomain "leaddesk_backend/internal/leads/domain"
	"leaddesk_backend/platform/phone"
	"leaddesk_backend/platform/sanitize"
)

// Scope picks which records a search runs over.
type Scope string

const (
	ScopeLeads           Scope = "leads"
	ScopeEnrolledClients Scope = "enrolledClients"
)

// Query is a parsed search request.
type Query struct {
	Text  string
	Scope Scope
	// Group is nil for the "all" tab.
	Group *leaddomain.StatusGroup
	From  int
	Size  int
}

// Target is the index list and request body for one search.
type Target struct {
	Indices []string
	Body    map[string]any
}

// textFields are matched fuzzily, with boosts.
var textFields = []string{
	"name^4",
	"nameFolded^3",
	"emails^2",
	"source",
	"remarks^0.5",
	"assignTo.name",
	"createdBy.name",
	"packageName",
	"archiveReason^0.5",
}

// Build turns q into an index search evaluated at now. Tab filters reuse the
// lead status tables and the follow-up window of the leads domain, so a
// document matches a tab exactly when DeriveQueue would put the record in
// it at now.
func Build(q Query, indices Indices, now time.Time) (Target, error) {
	var (
		must    []any
		filter  []any
		targets []string
	)

	if clause := textClause(q.Text); clause != nil {
		must = append(must, clause)
	} else {
		must = append(must, map[string]any{"match_all": map[string]any{}})
	}

	switch {
	case q.Scope == ScopeEnrolledClients:
		targets = []string{indices.EnrolledClients}
	case q.Group == nil:
		targets = []string{indices.Leads}
	case *q.Group == leaddomain.GroupArchived:
		// Dead and not-interested leads plus everything moved to the archive.
		targets = []string{indices.Leads, indices.ArchivedLeads}
		f, err := leaddomain.FilterFor(*q.Group)
		if err != nil {
			return Target{}, err
		}
		filter = append(filter, map[string]any{
			"bool": map[string]any{
				"should": []any{
					map[string]any{"bool": map[string]any{
						"filter": append([]any{termClause("_index", indices.Leads)}, groupClauses(f, now)...),
					}},
					termClause("_index", indices.ArchivedLeads),
				},
				"minimum_should_match": 1,
			},
		})
	default:
		targets = []string{indices.Leads}
		f, err := leaddomain.FilterFor(*q.Group)
		if err != nil {
			return Target{}, err
		}
		filter = append(filter, groupClauses(f, now)...)
	}

	boolQuery := map[string]any{"must": must}
	if len(filter) > 0 {
		boolQuery["filter"] = filter
	}

	size := q.Size
	if size <= 0 {
		size = 20
	}
	body := map[string]any{
		"query": map[string]any{"bool": boolQuery},
		"from":  q.From,
		"size":  size,
		"sort": []any{
			"_score",
			map[string]any{"updatedAt": map[string]any{"order": "desc"}},
		},
	}
	return Target{Indices: targets, Body: body}, nil
}

// textClause builds the boosted OR over every searchable field. Queries
// that look like phone numbers also match the local-number fingerprint so
// "98765 43210" finds "+919876543210".
func textClause(text string) map[string]any {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	should := []any{
		map[string]any{"multi_match": map[string]any{
			"query":     text,
			"fields":    textFields,
			"fuzziness": "AUTO",
			"operator":  "and",
		}},
		map[string]any{"match_phrase_prefix": map[string]any{
			"nameFolded": map[string]any{"query": sanitize.Fold(text), "boost": 2},
		}},
		map[string]any{"term": map[string]any{
			"primaryEmail": map[string]any{"value": strings.ToLower(text), "boost": 5},
		}},
		map[string]any{"term": map[string]any{
			"status": map[string]any{"value": text, "boost": 1.5},
		}},
		map[string]any{"term": map[string]any{
			"contactNumbers": map[string]any{"value": text, "boost": 5},
		}},
	}

	if phone.LooksLikePhone(text) {
		if local := phone.LocalNumber(text); local != "" {
			should = append(should,
				map[string]any{"term": map[string]any{
					"processedContactNumbers": map[string]any{"value": local, "boost": 6},
				}},
				map[string]any{"wildcard": map[string]any{
					"processedContactNumbers": map[string]any{"value": "*" + local + "*", "boost": 2},
				}},
			)
		}
	}

	return map[string]any{"bool": map[string]any{
		"should":               should,
		"minimum_should_match": 1,
	}}
}

// groupClauses translates a lead group filter into index clauses. They
// mirror the relational where-builder in the leads repository.
func groupClauses(f leaddomain.GroupFilter, now time.Time) []any {
	var clauses []any
	if len(f.Statuses) > 0 {
		clauses = append(clauses, map[string]any{"terms": map[string]any{"status": f.Statuses}})
	}
	if len(f.ExcludeStatuses) > 0 {
		clauses = append(clauses, map[string]any{"bool": map[string]any{
			"must_not": []any{map[string]any{"terms": map[string]any{"status": f.ExcludeStatuses}}},
		}})
	}

	after, until := leaddomain.FollowUpWindow(now)
	window := map[string]any{"range": map[string]any{
		"followUpDateTime": map[string]any{
			"gt":  after.UTC().Format(time.RFC3339Nano),
			"lte": until.UTC().Format(time.RFC3339Nano),
		},
	}}
	switch f.Window {
	case leaddomain.WindowRequire:
		clauses = append(clauses, window)
	case leaddomain.WindowExclude:
		clauses = append(clauses, map[string]any{"bool": map[string]any{"must_not": []any{window}}})
	}
	return clauses
}

func termClause(field, value string) map[string]any {
	return map[string]any{"term": map[string]any{field: value}}
}
