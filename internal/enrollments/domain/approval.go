// Package domain holds the enrollment approval protocol and pricing rules.
// Everything here is pure: callers load a record, apply a transition and
// persist the result.
package domain

import "fmt"

// Role is the party acting on an enrollment.
type Role string

const (
	RoleSales Role = "sales"
	RoleAdmin Role = "admin"
)

// ParseRole validates a role name.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleSales, RoleAdmin:
		return Role(s), nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// Counterparty is the other approver.
func (r Role) Counterparty() Role {
	if r == RoleAdmin {
		return RoleSales
	}
	return RoleAdmin
}

// Phase names one of the two independent approval rounds.
type Phase string

const (
	PhasePricing Phase = "pricing"
	PhaseFinal   Phase = "final"
)

// ApprovalState is one instance of the two-party approval protocol.
// EditedBy records who proposed the pending edit and is empty when
// HasUpdate is false.
type ApprovalState struct {
	BySales   bool `json:"approvalBySales"`
	ByAdmin   bool `json:"approvalByAdmin"`
	HasUpdate bool `json:"hasUpdate"`
	EditedBy  Role `json:"editedBy,omitempty"`
}

// Agreed is the only fully settled state: both approved, nothing pending.
func (s ApprovalState) Agreed() bool {
	return s.BySales && s.ByAdmin && !s.HasUpdate
}

// Approved reports the flag of role.
func (s ApprovalState) Approved(role Role) bool {
	if role == RoleAdmin {
		return s.ByAdmin
	}
	return s.BySales
}

func (s *ApprovalState) set(role Role, v bool) {
	if role == RoleAdmin {
		s.ByAdmin = v
		return
	}
	s.BySales = v
}

// Edit records a pricing change by role. The counterparty's approval is
// revoked; the editor's own flag is left as it was.
func (s ApprovalState) Edit(by Role) ApprovalState {
	s.HasUpdate = true
	s.EditedBy = by
	s.set(by.Counterparty(), false)
	return s
}

// Approve sets role's flag. With nothing pending the counterparty's flag is
// set too. When the counterparty approves a pending edit the edit is
// accepted: the pending flag clears and the editor is marked approved.
// acceptedEdit tells the caller to promote the proposed values.
func (s ApprovalState) Approve(by Role) (next ApprovalState, acceptedEdit bool) {
	s.set(by, true)

	if !s.HasUpdate {
		s.set(by.Counterparty(), true)
		s.EditedBy = ""
		return s, false
	}

	if s.EditedBy == by {
		return s, false
	}

	editor := s.EditedBy
	if editor == "" {
		editor = by.Counterparty()
	}
	s.set(editor, true)
	s.HasUpdate = false
	s.EditedBy = ""
	return s, true
}

// Reject clears role's own flag. A pending edit stays pending.
func (s ApprovalState) Reject(by Role) ApprovalState {
	s.set(by, false)
	return s
}

// Decide dispatches to Approve or Reject.
func (s ApprovalState) Decide(by Role, approve bool) (ApprovalState, bool) {
	if approve {
		return s.Approve(by)
	}
	return s.Reject(by), false
}

// String renders the (sales, admin, hasUpdate) triple.
func (s ApprovalState) String() string {
	return fmt.Sprintf("(%t, %t, %t)", s.BySales, s.ByAdmin, s.HasUpdate)
}
