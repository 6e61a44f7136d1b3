package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestNegotiationAcceptedProposalBecomesLive(t *testing.T) {
	n := Negotiation[Pricing]{Live: Pricing{EnrollmentCharge: dec("1000")}}
	n = n.Decide(RoleAdmin, true)
	if !n.State.Agreed() {
		t.Fatalf("expected agreement, got %s", n.State)
	}

	n = n.Propose(RoleSales, Pricing{EnrollmentCharge: dec("900")})
	if n.Live.EnrollmentCharge.String() != "1000" {
		t.Fatal("proposal must not touch live terms before acceptance")
	}
	if got := n.Base().EnrollmentCharge; !got.Equal(decimal.NewFromInt(900)) {
		t.Fatalf("base should be the pending proposal, got %s", got)
	}

	n = n.Decide(RoleAdmin, true)
	if !n.State.Agreed() {
		t.Fatalf("expected agreement, got %s", n.State)
	}
	if !n.Live.EnrollmentCharge.Equal(decimal.NewFromInt(900)) {
		t.Fatalf("live = %s, want 900", n.Live.EnrollmentCharge)
	}
	if n.Proposal != nil {
		t.Fatal("proposal should be cleared")
	}
}

func TestNegotiationOwnApprovalKeepsProposalPending(t *testing.T) {
	n := Negotiation[FinalTerms]{}
	n = n.Propose(RoleAdmin, FinalTerms{FirstYearCharge: dec("5000")})
	n = n.Decide(RoleAdmin, true)

	if n.Proposal == nil || !n.State.HasUpdate {
		t.Fatal("own approval must keep the proposal pending")
	}
	if n.Live.FirstYearCharge != nil {
		t.Fatal("live terms must not change")
	}
}

func TestNegotiationRejectKeepsProposal(t *testing.T) {
	n := Negotiation[FinalTerms]{}
	n = n.Propose(RoleSales, FinalTerms{FirstYearCharge: dec("10")})
	n = n.Decide(RoleAdmin, false)

	if n.Proposal == nil || !n.State.HasUpdate || n.State.ByAdmin {
		t.Fatalf("rejection leaves the proposal pending, got %s", n.State)
	}
}
