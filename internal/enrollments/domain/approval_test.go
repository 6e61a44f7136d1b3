package domain

import "testing"

func state(sales, admin, pending bool) ApprovalState {
	return ApprovalState{BySales: sales, ByAdmin: admin, HasUpdate: pending}
}

func assertTriple(t *testing.T, got ApprovalState, sales, admin, pending bool) {
	t.Helper()
	if got.BySales != sales || got.ByAdmin != admin || got.HasUpdate != pending {
		t.Fatalf("got %s, want (%t, %t, %t)", got, sales, admin, pending)
	}
}

func TestAdminApprovalWithoutPendingEditClosesLoop(t *testing.T) {
	next, accepted := state(false, false, false).Approve(RoleAdmin)
	assertTriple(t, next, true, true, false)
	if accepted {
		t.Fatal("nothing was pending, nothing to accept")
	}
	if !next.Agreed() {
		t.Fatal("expected agreed state")
	}
}

func TestSalesApprovedAdminApprovesScenario(t *testing.T) {
	next, _ := state(true, false, false).Approve(RoleAdmin)
	assertTriple(t, next, true, true, false)
}

func TestSalesApprovalAutoPropagates(t *testing.T) {
	next, _ := state(false, false, false).Approve(RoleSales)
	assertTriple(t, next, true, true, false)
}

func TestSalesEditRevokesAdminApproval(t *testing.T) {
	agreed, _ := state(false, false, false).Approve(RoleAdmin)

	edited := agreed.Edit(RoleSales)
	assertTriple(t, edited, true, false, true)
	if edited.EditedBy != RoleSales {
		t.Fatalf("expected sales as editor, got %q", edited.EditedBy)
	}

	fresh := state(false, false, false).Edit(RoleSales)
	assertTriple(t, fresh, false, false, true)
}

func TestAdminEditRevokesSalesApproval(t *testing.T) {
	edited := state(true, true, false).Edit(RoleAdmin)
	assertTriple(t, edited, false, true, true)
	edited = state(true, false, false).Edit(RoleAdmin)
	assertTriple(t, edited, false, false, true)
}

func TestCounterpartyApprovalAcceptsPendingEdit(t *testing.T) {
	edited := state(true, true, false).Edit(RoleSales)

	next, accepted := edited.Approve(RoleAdmin)
	if !accepted {
		t.Fatal("admin approving a sales edit should accept it")
	}
	assertTriple(t, next, true, true, false)
	if next.EditedBy != "" {
		t.Fatalf("editor should be cleared, got %q", next.EditedBy)
	}
}

func TestEditorApprovingOwnEditKeepsItPending(t *testing.T) {
	edited := state(false, false, false).Edit(RoleSales)

	next, accepted := edited.Approve(RoleSales)
	if accepted {
		t.Fatal("own approval must not accept the edit")
	}
	assertTriple(t, next, true, false, true)
	if next.Agreed() {
		t.Fatal("pending edit cannot be agreed")
	}
}

func TestRejectClearsOwnFlagOnly(t *testing.T) {
	next := state(true, true, true).Reject(RoleAdmin)
	assertTriple(t, next, true, false, true)

	next = state(true, true, false).Reject(RoleSales)
	assertTriple(t, next, false, true, false)
}

func TestDecideDispatches(t *testing.T) {
	next, _ := state(false, true, false).Decide(RoleSales, true)
	assertTriple(t, next, true, true, false)

	next, accepted := state(true, true, false).Decide(RoleSales, false)
	assertTriple(t, next, false, true, false)
	if accepted {
		t.Fatal("rejection never accepts an edit")
	}
}

// Disagreement can go on forever; nothing in the protocol forces closure.
func TestPingPongEditsNeverSettleWithoutApproval(t *testing.T) {
	s := state(false, false, false)
	for i := 0; i < 10; i++ {
		s = s.Edit(RoleSales).Edit(RoleAdmin)
	}
	if s.Agreed() {
		t.Fatal("alternating edits must not produce agreement")
	}
	assertTriple(t, s, false, false, true)
}

func TestParseRole(t *testing.T) {
	if r, err := ParseRole("admin"); err != nil || r != RoleAdmin {
		t.Fatalf("ParseRole(admin) = %q, %v", r, err)
	}
	if _, err := ParseRole("owner"); err == nil {
		t.Fatal("expected error")
	}
	if RoleSales.Counterparty() != RoleAdmin || RoleAdmin.Counterparty() != RoleSales {
		t.Fatal("counterparty mismatch")
	}
}
