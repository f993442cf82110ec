package domain

// SaleState represents the lifecycle state of a one-time sale
type SaleState string

const (
	SaleStateNew        SaleState = "new"
	SaleStateProcessing SaleState = "processing"
	SaleStateFinished   SaleState = "finished"
	SaleStateErrored    SaleState = "errored"
	SaleStateRefunded   SaleState = "refunded"
)

// SubscriptionState represents the lifecycle state of a subscription
type SubscriptionState string

const (
	SubscriptionStateNew        SubscriptionState = "new"
	SubscriptionStateProcessing SubscriptionState = "processing"
	SubscriptionStateActive     SubscriptionState = "active"
	SubscriptionStateCanceled   SubscriptionState = "canceled"
	SubscriptionStateErrored    SubscriptionState = "errored"
)

// saleTransitions enumerates every legal sale transition. Anything absent is
// rejected with a StateTransitionError.
var saleTransitions = map[SaleState]map[SaleState]bool{
	SaleStateNew: {
		SaleStateProcessing: true,
	},
	SaleStateProcessing: {
		SaleStateFinished: true,
		SaleStateErrored:  true,
	},
	SaleStateFinished: {
		SaleStateRefunded: true,
	},
}

// subscriptionTransitions enumerates every legal subscription transition.
// Cancel is reachable from processing as well as active: a subscription still
// completing card authentication may be canceled before it ever activates.
var subscriptionTransitions = map[SubscriptionState]map[SubscriptionState]bool{
	SubscriptionStateNew: {
		SubscriptionStateProcessing: true,
	},
	SubscriptionStateProcessing: {
		SubscriptionStateActive:   true,
		SubscriptionStateErrored:  true,
		SubscriptionStateCanceled: true,
	},
	SubscriptionStateActive: {
		SubscriptionStateCanceled: true,
		SubscriptionStateErrored:  true,
	},
}

// IsTerminal reports whether no further lifecycle transition may leave s,
// except an explicit refund from finished.
func (s SaleState) IsTerminal() bool {
	return s == SaleStateFinished || s == SaleStateErrored || s == SaleStateRefunded
}

// CanTransitionTo reports whether s -> to is a legal sale transition
func (s SaleState) CanTransitionTo(to SaleState) bool {
	return saleTransitions[s][to]
}

// IsTerminal reports whether automatic status sync must never move s again
func (s SubscriptionState) IsTerminal() bool {
	return s == SubscriptionStateCanceled || s == SubscriptionStateErrored
}

// CanTransitionTo reports whether s -> to is a legal subscription transition
func (s SubscriptionState) CanTransitionTo(to SubscriptionState) bool {
	return subscriptionTransitions[s][to]
}
