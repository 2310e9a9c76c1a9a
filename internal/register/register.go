package register

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
)

// Money represents a monetary value stored in minor units.
type Money = int64

// ErrInvalidInput is returned when a purchase cannot be recorded.
var ErrInvalidInput = errors.New("invalid input")

const (
	discountAppliedFormat = "After the discount, the total comes to $%d."
	noDiscountMessage     = "There is no discount to apply."
)

// Transaction is one recorded purchase.
type Transaction struct {
	Item      string `json:"item"`
	UnitPrice Money  `json:"unitPrice"`
	Quantity  int    `json:"quantity"`
}

// Subtotal returns the transaction's contribution to the total.
func (t Transaction) Subtotal() Money {
	return t.UnitPrice * Money(t.Quantity)
}

// DiscountResult describes the outcome of ApplyDiscount.
type DiscountResult struct {
	Applied bool   `json:"applied"`
	Total   Money  `json:"total"`
	Message string `json:"message"`
}

// Notifier receives user-facing notices emitted by a register.
type Notifier interface {
	Notice(msg string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(msg string)

// Notice implements Notifier.
func (f NotifierFunc) Notice(msg string) {
	if f != nil {
		f(msg)
	}
}

// Register is an in-memory ledger of purchases. It is not safe for concurrent
// use; callers sharing a Register must serialise access.
type Register struct {
	discount     int
	total        Money
	items        []string
	transactions []Transaction

	// Notifier, when set, receives the discount notice.
	Notifier Notifier
}

// New returns an empty register. Zero or negative discounts mean no discount.
func New(discountPercent int) *Register {
	if discountPercent < 0 {
		discountPercent = 0
	}
	return &Register{discount: discountPercent}
}

// DiscountPercent returns the percentage fixed at construction.
func (r *Register) DiscountPercent() int { return r.discount }

// Total returns the running total.
func (r *Register) Total() Money { return r.total }

// Items returns a copy of the purchased item labels, one entry per unit.
func (r *Register) Items() []string {
	return append([]string(nil), r.items...)
}

// Transactions returns a copy of the transaction log in purchase order.
func (r *Register) Transactions() []Transaction {
	return append([]Transaction(nil), r.transactions...)
}

// AddItem records a purchase of quantity units of item. A zero quantity
// records a single unit.
func (r *Register) AddItem(item string, unitPrice Money, quantity int) error {
	if strings.TrimSpace(item) == "" {
		return fmt.Errorf("item is required: %w", ErrInvalidInput)
	}
	if quantity < 0 {
		return fmt.Errorf("quantity must not be negative: %w", ErrInvalidInput)
	}
	if quantity == 0 {
		quantity = 1
	}
	if unitPrice < 0 {
		return fmt.Errorf("unit price must not be negative: %w", ErrInvalidInput)
	}
	if unitPrice > math.MaxInt64/Money(quantity) {
		return fmt.Errorf("subtotal overflows: %w", ErrInvalidInput)
	}
	tx := Transaction{Item: item, UnitPrice: unitPrice, Quantity: quantity}
	if r.total > math.MaxInt64-tx.Subtotal() {
		return fmt.Errorf("total overflows: %w", ErrInvalidInput)
	}

	r.total += tx.Subtotal()
	for i := 0; i < quantity; i++ {
		r.items = append(r.items, item)
	}
	r.transactions = append(r.transactions, tx)
	return nil
}

// ApplyDiscount reduces the current total by the configured percentage,
// truncating toward zero. Each call applies the percentage to the current
// total, so repeated calls compound.
func (r *Register) ApplyDiscount() DiscountResult {
	if r.discount <= 0 {
		r.notice(noDiscountMessage)
		return DiscountResult{Applied: false, Total: r.total, Message: noDiscountMessage}
	}
	amount := float64(r.total) * (float64(r.discount) / 100)
	r.total = Money(float64(r.total) - amount)
	msg := fmt.Sprintf(discountAppliedFormat, r.total)
	r.notice(msg)
	return DiscountResult{Applied: true, Total: r.total, Message: msg}
}

// VoidLastTransaction reverses the most recent purchase and reports it. It is
// a no-op on an empty log. Any discount already applied is not reversed.
func (r *Register) VoidLastTransaction() (Transaction, bool) {
	n := len(r.transactions)
	if n == 0 {
		return Transaction{}, false
	}
	last := r.transactions[n-1]
	r.transactions = r.transactions[:n-1]
	r.total -= last.Subtotal()

	for i := 0; i < last.Quantity; i++ {
		idx := slices.Index(r.items, last.Item)
		if idx < 0 {
			break
		}
		r.items = slices.Delete(r.items, idx, idx+1)
	}
	return last, true
}

func (r *Register) notice(msg string) {
	if r.Notifier != nil {
		r.Notifier.Notice(msg)
	}
}
