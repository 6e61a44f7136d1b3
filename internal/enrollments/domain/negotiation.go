package domain

// Negotiation is one approval phase over terms T: the agreed terms, the
// pending proposal if any, and the approval flags.
type Negotiation[T any] struct {
	Live     T
	Proposal *T
	State    ApprovalState
}

// Base is what a new edit starts from: the pending proposal when there is
// one, otherwise the live terms.
func (n Negotiation[T]) Base() T {
	if n.State.HasUpdate && n.Proposal != nil {
		return *n.Proposal
	}
	return n.Live
}

// Propose records proposal as role's pending edit.
func (n Negotiation[T]) Propose(by Role, proposal T) Negotiation[T] {
	n.Proposal = &proposal
	n.State = n.State.Edit(by)
	return n
}

// Decide applies role's approval or rejection. When the approval accepts a
// pending edit the proposal becomes the live terms.
func (n Negotiation[T]) Decide(by Role, approve bool) Negotiation[T] {
	next, accepted := n.State.Decide(by, approve)
	n.State = next
	if accepted && n.Proposal != nil {
		n.Live = *n.Proposal
		n.Proposal = nil
	}
	if !n.State.HasUpdate {
		n.Proposal = nil
	}
	return n
}
