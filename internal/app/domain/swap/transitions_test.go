package swap

import (
	"testing"

	"github.com/rewear/service_layer/internal/app/domain/item"
)

func TestRuleFor(t *testing.T) {
	cases := []struct {
		from, to     Status
		ok           bool
		receiverOnly bool
		itemFrom     item.Status
		itemTo       item.Status
	}{
		{StatusPending, StatusAccepted, true, true, item.StatusAvailable, item.StatusPending},
		{StatusPending, StatusRejected, true, true, "", ""},
		{StatusPending, StatusCancelled, true, false, "", ""},
		{StatusAccepted, StatusCompleted, true, false, item.StatusPending, item.StatusSwapped},
		{StatusAccepted, StatusCancelled, true, false, item.StatusPending, item.StatusAvailable},
		{StatusPending, StatusCompleted, false, false, "", ""},
		{StatusAccepted, StatusRejected, false, false, "", ""},
		{StatusRejected, StatusAccepted, false, false, "", ""},
		{StatusCompleted, StatusCancelled, false, false, "", ""},
		{StatusCancelled, StatusPending, false, false, "", ""},
	}
	for _, tc := range cases {
		rule, ok := RuleFor(tc.from, tc.to)
		if ok != tc.ok {
			t.Fatalf("%s→%s: expected ok=%v", tc.from, tc.to, tc.ok)
		}
		if !ok {
			continue
		}
		if rule.ReceiverOnly != tc.receiverOnly || rule.ItemFrom != tc.itemFrom || rule.ItemTo != tc.itemTo {
			t.Fatalf("%s→%s: unexpected rule %+v", tc.from, tc.to, rule)
		}
	}
}

func TestEveryItemMoveIsGuarded(t *testing.T) {
	for from, edges := range transitions {
		for to, rule := range edges {
			if rule.TouchesItems() && rule.ItemFrom == "" {
				t.Fatalf("%s→%s moves items without a source guard", from, to)
			}
			if !rule.TouchesItems() && rule.ItemFrom != "" {
				t.Fatalf("%s→%s guards items it never moves", from, to)
			}
		}
	}
}

func TestTerminal(t *testing.T) {
	for _, s := range []Status{StatusRejected, StatusCancelled, StatusCompleted} {
		if !s.Terminal() {
			t.Fatalf("%s should be terminal", s)
		}
		if edges := transitions[s]; len(edges) != 0 {
			t.Fatalf("terminal %s has outgoing edges", s)
		}
	}
	for _, s := range []Status{StatusPending, StatusAccepted} {
		if s.Terminal() {
			t.Fatalf("%s should not be terminal", s)
		}
	}
}

func TestRoleOf(t *testing.T) {
	sw := Swap{InitiatorID: "a", ReceiverID: "b"}
	if sw.RoleOf("a") != RoleInitiator || sw.RoleOf("b") != RoleReceiver || sw.RoleOf("c") != RoleNone {
		t.Fatal("RoleOf misassigned")
	}
}
