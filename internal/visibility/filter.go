// Package visibility decides which messages of a ticket thread a principal sees.
package visibility

import (
	"iter"
	"sort"

	"github.com/helpdesk-io/support-desk/internal/authz"
	"github.com/helpdesk-io/support-desk/internal/domain"
)

// Filter returns the messages visible to principal, ascending by CreatedAt.
// Public and system messages are always included; internal ones only when the
// authorizer allows ViewInternalMessage. The input slice is not modified.
func Filter(engine authz.Authorizer, principal domain.Principal, rc authz.ResourceContext, messages []domain.TicketMessage) []domain.TicketMessage {
	out := make([]domain.TicketMessage, 0, len(messages))
	for msg := range Seq(engine, principal, rc, messages) {
		out = append(out, msg)
	}
	return out
}

// Seq is the iterator form of Filter. Each range over it starts from the beginning.
func Seq(engine authz.Authorizer, principal domain.Principal, rc authz.ResourceContext, messages []domain.TicketMessage) iter.Seq[domain.TicketMessage] {
	internal := engine.Authorize(principal, authz.ViewInternalMessage, rc).Allowed
	ordered := sortedCopy(messages)

	return func(yield func(domain.TicketMessage) bool) {
		for _, msg := range ordered {
			if msg.MessageType == domain.MessageTypeInternal && !internal {
				continue
			}
			if !msg.MessageType.Valid() {
				continue
			}
			if !yield(msg) {
				return
			}
		}
	}
}

func sortedCopy(messages []domain.TicketMessage) []domain.TicketMessage {
	ordered := append([]domain.TicketMessage(nil), messages...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
	})
	return ordered
}
