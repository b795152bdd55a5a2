package swap

import "github.com/rewear/service_layer/internal/app/domain/item"

// Rule describes one permitted transition: who may trigger it and how both
// referenced items move. A zero ItemTo means the transition leaves the items
// alone.
type Rule struct {
	// ReceiverOnly restricts the transition to the swap's receiver.
	ReceiverOnly bool
	// ItemFrom guards the item move: both items must still hold this status.
	ItemFrom item.Status
	// ItemTo is the status applied to both items. Empty means no item effect.
	ItemTo item.Status
}

// TouchesItems reports whether the transition moves the referenced items.
func (r Rule) TouchesItems() bool { return r.ItemTo != "" }

// transitions is the full state machine. Accepting claims the items and
// completing consumes them. Rejecting or cancelling a pending swap leaves the
// items alone; the proposal never claimed them, and they may since have been
// redeemed or claimed by another swap. Cancelling an accepted swap releases
// only items this swap still holds in pending.
var transitions = map[Status]map[Status]Rule{
	StatusPending: {
		StatusAccepted:  {ReceiverOnly: true, ItemFrom: item.StatusAvailable, ItemTo: item.StatusPending},
		StatusRejected:  {ReceiverOnly: true},
		StatusCancelled: {},
	},
	StatusAccepted: {
		StatusCompleted: {ItemFrom: item.StatusPending, ItemTo: item.StatusSwapped},
		StatusCancelled: {ItemFrom: item.StatusPending, ItemTo: item.StatusAvailable},
	},
}

// RuleFor returns the rule for the from→to edge, if the state machine
// permits it.
func RuleFor(from, to Status) (Rule, bool) {
	rule, ok := transitions[from][to]
	return rule, ok
}
