package events

// Topic constants for domain events emitted by registers.
const (
	TopicRegisterOpened    = "register.opened"
	TopicItemAdded         = "register.item_added"
	TopicDiscountApplied   = "register.discount_applied"
	TopicDiscountSkipped   = "register.discount_skipped"
	TopicTransactionVoided = "register.transaction_voided"
	TopicRegisterClosed    = "register.closed"
)

// DefaultTopics returns the canonical list of register topics.
func DefaultTopics() []string {
	return []string{
		TopicRegisterOpened,
		TopicItemAdded,
		TopicDiscountApplied,
		TopicDiscountSkipped,
		TopicTransactionVoided,
		TopicRegisterClosed,
	}
}
