package transport

import (
	"time"

	"github.com/google/uuid"
)

// Request DTOs
type CreateLeadRequest struct {
	Name             string     `json:"name" validate:"required,min=1,max=200"`
	ContactNumbers   []string   `json:"contactNumbers" validate:"required,min=1,max=2,dive,required,min=5,max=25"`
	Emails           []string   `json:"emails" validate:"required,min=1,max=2,dive,required,email"`
	Source           *string    `json:"source,omitempty" validate:"omitempty,max=100"`
	Status           string     `json:"status,omitempty" validate:"omitempty,lead_status"`
	FollowUpDateTime *time.Time `json:"followUpDateTime,omitempty"`
	Remarks          *string    `json:"remarks,omitempty" validate:"omitempty,max=2000"`
	AssignTo         *uuid.UUID `json:"assignTo,omitempty"`
}

type UpdateLeadRequest struct {
	Name             *string      `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	ContactNumbers   []string     `json:"contactNumbers,omitempty" validate:"omitempty,min=1,max=2,dive,required,min=5,max=25"`
	Emails           []string     `json:"emails,omitempty" validate:"omitempty,min=1,max=2,dive,required,email"`
	Source           *string      `json:"source,omitempty" validate:"omitempty,max=100"`
	Remarks          *string      `json:"remarks,omitempty" validate:"omitempty,max=2000"`
	FollowUpDateTime OptionalTime `json:"followUpDateTime,omitempty" validate:"-"`
	AssignTo         OptionalUUID `json:"assignTo,omitempty" validate:"-"`
}

type UpdateLeadStatusRequest struct {
	Status           string     `json:"status" validate:"required,lead_status"`
	FollowUpDateTime *time.Time `json:"followUpDateTime,omitempty"`
	// PackageID picks the package when the status moves to Enrolled.
	PackageID *uuid.UUID `json:"packageId,omitempty"`
}

type ArchiveLeadRequest struct {
	Reason string `json:"reason" validate:"required,min=1,max=500"`
}

type ListLeadsRequest struct {
	Tab       string     `form:"tab" validate:"omitempty,tab_filter"`
	Search    string     `form:"search" validate:"max=100"`
	AssignTo  *uuid.UUID `form:"assignTo"`
	Page      int        `form:"page" validate:"min=1"`
	PageSize  int        `form:"pageSize" validate:"min=1,max=100"`
	SortBy    string     `form:"sortBy" validate:"omitempty,oneof=createdAt updatedAt name status followUpDateTime"`
	SortOrder string     `form:"sortOrder" validate:"omitempty,oneof=asc desc"`
}

type ListArchivedRequest struct {
	Search   string `form:"search" validate:"max=100"`
	Page     int    `form:"page" validate:"min=1"`
	PageSize int    `form:"pageSize" validate:"min=1,max=100"`
}

// Response DTOs
type LeadResponse struct {
	ID               uuid.UUID  `json:"id"`
	Name             string     `json:"name"`
	ContactNumbers   []string   `json:"contactNumbers"`
	Emails           []string   `json:"emails"`
	PrimaryEmail     string     `json:"primaryEmail"`
	PrimaryNumber    string     `json:"primaryNumber"`
	Source           *string    `json:"source,omitempty"`
	Status           string     `json:"status"`
	StatusGroup      string     `json:"statusGroup"`
	FollowUpDateTime *time.Time `json:"followUpDateTime,omitempty"`
	Remarks          *string    `json:"remarks,omitempty"`
	AssignTo         *uuid.UUID `json:"assignTo,omitempty"`
	CreatedBy        *uuid.UUID `json:"createdBy,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

type ArchivedLeadResponse struct {
	LeadResponse
	ArchiveReason string     `json:"archiveReason"`
	ArchivedBy    *uuid.UUID `json:"archivedBy,omitempty"`
	ArchivedAt    time.Time  `json:"archivedAt"`
}

type LeadListResponse struct {
	Items      []LeadResponse `json:"items"`
	Total      int            `json:"total"`
	Page       int            `json:"page"`
	PageSize   int            `json:"pageSize"`
	TotalPages int            `json:"totalPages"`
}

type ArchivedLeadListResponse struct {
	Items      []ArchivedLeadResponse `json:"items"`
	Total      int                    `json:"total"`
	Page       int                    `json:"page"`
	PageSize   int                    `json:"pageSize"`
	TotalPages int                    `json:"totalPages"`
}

// StatusChangeResponse reports the lead after a status change and, when it
// was enrolled, the enrollment that now tracks it.
type StatusChangeResponse struct {
	Lead         LeadResponse `json:"lead"`
	EnrollmentID *uuid.UUID   `json:"enrollmentId,omitempty"`
}
