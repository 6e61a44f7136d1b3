// Package domain defines what the search index stores and how it is
// queried. Documents are projections of the relational records and are
// never read back as the source of truth.
package domain

import (
	"encoding/json"
	"time"

	"leaddesk_backend/internal/events"
	leaddomain "leaddesk_backend/internal/leads/domain"
	"leaddesk_backend/platform/phone"
	"leaddesk_backend/platform/sanitize"

	"github.com/google/uuid"
)

// Person is an assignee or creator embedded in a document.
type Person struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email,omitempty"`
}

// Approval mirrors one approval phase of an enrolled client.
type Approval struct {
	BySales   bool `json:"bySales"`
	ByAdmin   bool `json:"byAdmin"`
	HasUpdate bool `json:"hasUpdate"`
}

// Document is the indexed form of a lead, archived lead or enrolled client.
// Kind-specific fields are empty for the other kinds.
type Document struct {
	ID                      uuid.UUID           `json:"id"`
	Kind                    events.DocumentKind `json:"kind"`
	Name                    string              `json:"name"`
	NameFolded              string              `json:"nameFolded"`
	Emails                  []string            `json:"emails"`
	PrimaryEmail            string              `json:"primaryEmail"`
	ContactNumbers          []string            `json:"contactNumbers"`
	ProcessedContactNumbers []string            `json:"processedContactNumbers"`
	Source                  string              `json:"source,omitempty"`
	Status                  string              `json:"status"`
	StatusGroup             string              `json:"statusGroup"`
	FollowUpAt              *time.Time          `json:"followUpDateTime,omitempty"`
	Remarks                 string              `json:"remarks,omitempty"`
	AssignTo                *Person             `json:"assignTo,omitempty"`
	CreatedBy               *Person             `json:"createdBy,omitempty"`
	CreatedAt               time.Time           `json:"createdAt"`
	UpdatedAt               time.Time           `json:"updatedAt"`

	ArchiveReason string     `json:"archiveReason,omitempty"`
	ArchivedAt    *time.Time `json:"archivedAt,omitempty"`

	LeadID        *uuid.UUID `json:"leadId,omitempty"`
	PackageName   string     `json:"packageName,omitempty"`
	Pricing       *Approval  `json:"pricingApproval,omitempty"`
	FinalApproval *Approval  `json:"finalApproval,omitempty"`
}

// ProcessContactNumbers returns the local-number fingerprint of every
// number, skipping empties and duplicates.
func ProcessContactNumbers(numbers []string) []string {
	out := make([]string, 0, len(numbers))
	seen := make(map[string]struct{}, len(numbers))
	for _, n := range numbers {
		local := phone.LocalNumber(n)
		if local == "" {
			continue
		}
		if _, ok := seen[local]; ok {
			continue
		}
		seen[local] = struct{}{}
		out = append(out, local)
	}
	return out
}

// Finalize fills the derived fields. statusGroup is computed at now and goes
// stale as time passes; queries filter on status and followUpDateTime
// instead.
func (d *Document) Finalize(now time.Time) {
	d.NameFolded = sanitize.Fold(d.Name)
	d.ProcessedContactNumbers = ProcessContactNumbers(d.ContactNumbers)
	if d.Emails == nil {
		d.Emails = []string{}
	}
	if d.ContactNumbers == nil {
		d.ContactNumbers = []string{}
	}

	switch d.Kind {
	case events.KindArchivedLead:
		d.StatusGroup = string(leaddomain.GroupArchived)
	case events.KindEnrolledClient:
		d.StatusGroup = string(leaddomain.GroupEnrolled)
	default:
		d.StatusGroup = string(leaddomain.DeriveQueue(d.Status, d.FollowUpAt, now))
	}
}

// Indices names the index of each document kind.
type Indices struct {
	Leads           string
	ArchivedLeads   string
	EnrolledClients string
}

// NewIndices derives index names from a prefix such as "leaddesk".
func NewIndices(prefix string) Indices {
	if prefix == "" {
		prefix = "leaddesk"
	}
	return Indices{
		Leads:           prefix + "_leads",
		ArchivedLeads:   prefix + "_archived_leads",
		EnrolledClients: prefix + "_enrolled_clients",
	}
}

// For returns the index holding kind.
func (i Indices) For(kind events.DocumentKind) string {
	switch kind {
	case events.KindArchivedLead:
		return i.ArchivedLeads
	case events.KindEnrolledClient:
		return i.EnrolledClients
	default:
		return i.Leads
	}
}

// AllKinds lists every mirrored kind.
func AllKinds() []events.DocumentKind {
	return []events.DocumentKind{events.KindLead, events.KindArchivedLead, events.KindEnrolledClient}
}

func textWithKeyword() map[string]any {
	return map[string]any{
		"type": "text",
		"fields": map[string]any{
			"keyword": map[string]any{"type": "keyword", "ignore_above": 256},
		},
	}
}

func personMapping() map[string]any {
	return map[string]any{
		"properties": map[string]any{
			"id":    map[string]any{"type": "keyword"},
			"name":  textWithKeyword(),
			"email": map[string]any{"type": "keyword"},
		},
	}
}

func approvalMapping() map[string]any {
	return map[string]any{
		"properties": map[string]any{
			"bySales":   map[string]any{"type": "boolean"},
			"byAdmin":   map[string]any{"type": "boolean"},
			"hasUpdate": map[string]any{"type": "boolean"},
		},
	}
}

// Mapping is the field schema shared by all three indices. Query building
// relies on these types: keyword fields for exact status and phone
// matches, text fields for fuzzy matching.
func Mapping() []byte {
	body := map[string]any{
		"settings": map[string]any{
			"number_of_shards":   1,
			"number_of_replicas": 0,
		},
		"mappings": map[string]any{
			"dynamic": "false",
			"properties": map[string]any{
				"id":                      map[string]any{"type": "keyword"},
				"kind":                    map[string]any{"type": "keyword"},
				"name":                    textWithKeyword(),
				"nameFolded":              map[string]any{"type": "text"},
				"emails":                  map[string]any{"type": "text", "analyzer": "simple"},
				"primaryEmail":            map[string]any{"type": "keyword", "normalizer": "lowercase"},
				"contactNumbers":          map[string]any{"type": "keyword"},
				"processedContactNumbers": map[string]any{"type": "keyword"},
				"source":                  textWithKeyword(),
				"status":                  map[string]any{"type": "keyword"},
				"statusGroup":             map[string]any{"type": "keyword"},
				"followUpDateTime":        map[string]any{"type": "date"},
				"remarks":                 map[string]any{"type": "text"},
				"assignTo":                personMapping(),
				"createdBy":               personMapping(),
				"createdAt":               map[string]any{"type": "date"},
				"updatedAt":               map[string]any{"type": "date"},
				"archiveReason":           map[string]any{"type": "text"},
				"archivedAt":              map[string]any{"type": "date"},
				"leadId":                  map[string]any{"type": "keyword"},
				"packageName":             textWithKeyword(),
				"pricingApproval":         approvalMapping(),
				"finalApproval":           approvalMapping(),
			},
		},
	}
	b, err := json.Marshal(body)
	if err != nil {
		panic(err)
	}
	return b
}
