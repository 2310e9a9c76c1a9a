package register

import (
	"context"
	"errors"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/pos-register/internal/events"
)

var (
	// ErrNotFound indicates the requested register is not open.
	ErrNotFound = errors.New("register not found")
	// ErrTooManyRegisters is returned when the open register cap is reached.
	ErrTooManyRegisters = errors.New("too many open registers")
)

// Snapshot is a point-in-time copy of a register's state.
type Snapshot struct {
	ID           uuid.UUID     `json:"id"`
	Discount     int           `json:"discount"`
	Total        Money         `json:"total"`
	Items        []string      `json:"items"`
	Transactions []Transaction `json:"transactions"`
	OpenedAt     time.Time     `json:"openedAt"`
}

// Summary is the list view of an open register.
type Summary struct {
	ID       uuid.UUID `json:"id"`
	Discount int       `json:"discount"`
	Total    Money     `json:"total"`
	OpenedAt time.Time `json:"openedAt"`
}

// maxNotices bounds the notices kept per register; older ones are dropped.
const maxNotices = 50

type entry struct {
	mu       sync.Mutex
	id       uuid.UUID
	reg      *Register
	openedAt time.Time
	notices  []string
}

func (e *entry) notice(msg string) {
	if len(e.notices) >= maxNotices {
		e.notices = slices.Delete(e.notices, 0, len(e.notices)-maxNotices+1)
	}
	e.notices = append(e.notices, msg)
}

func (e *entry) snapshot() Snapshot {
	return Snapshot{
		ID:           e.id,
		Discount:     e.reg.DiscountPercent(),
		Total:        e.reg.Total(),
		Items:        nonNil(e.reg.Items()),
		Transactions: nonNilTx(e.reg.Transactions()),
		OpenedAt:     e.openedAt,
	}
}

// Service hosts open registers in memory. Each register is guarded by its own
// lock so callers on different registers never contend.
type Service struct {
	Events  *events.Bus
	Logger  zerolog.Logger
	MaxOpen int
	Now     func() time.Time

	mu        sync.RWMutex
	registers map[uuid.UUID]*entry
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func (s *Service) tracer() trace.Tracer {
	return otel.Tracer("register.service")
}

// Open creates a register with the given discount percentage.
func (s *Service) Open(ctx context.Context, discountPercent int) (Snapshot, error) {
	ctx, span := s.tracer().Start(ctx, "register.Open")
	defer span.End()
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}

	e := &entry{id: uuid.New(), reg: New(discountPercent), openedAt: s.now()}
	e.reg.Notifier = NotifierFunc(e.notice)

	s.mu.Lock()
	if s.registers == nil {
		s.registers = make(map[uuid.UUID]*entry)
	}
	if s.MaxOpen > 0 && len(s.registers) >= s.MaxOpen {
		s.mu.Unlock()
		return Snapshot{}, ErrTooManyRegisters
	}
	s.registers[e.id] = e
	s.mu.Unlock()

	span.SetAttributes(attribute.String("register.id", e.id.String()), attribute.Int("register.discount", e.reg.DiscountPercent()))
	snap := e.snapshot()
	s.emit(ctx, events.TopicRegisterOpened, e.id, map[string]any{"discount": snap.Discount})
	return snap, nil
}

// List returns summaries of all open registers ordered by opening time.
func (s *Service) List(ctx context.Context) ([]Summary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	entries := make([]*entry, 0, len(s.registers))
	for _, e := range s.registers {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	out := make([]Summary, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		out = append(out, Summary{ID: e.id, Discount: e.reg.DiscountPercent(), Total: e.reg.Total(), OpenedAt: e.openedAt})
		e.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OpenedAt.Equal(out[j].OpenedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].OpenedAt.Before(out[j].OpenedAt)
	})
	return out, nil
}

// Get returns a snapshot of the register.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Snapshot, error) {
	var snap Snapshot
	err := s.with(ctx, "register.Get", id, func(e *entry) error {
		snap = e.snapshot()
		return nil
	})
	return snap, err
}

// AddItem records a purchase on the register.
func (s *Service) AddItem(ctx context.Context, id uuid.UUID, item string, unitPrice Money, quantity int) (Snapshot, error) {
	var (
		snap Snapshot
		tx   Transaction
	)
	err := s.with(ctx, "register.AddItem", id, func(e *entry) error {
		if err := e.reg.AddItem(item, unitPrice, quantity); err != nil {
			return err
		}
		txs := e.reg.Transactions()
		tx = txs[len(txs)-1]
		snap = e.snapshot()
		return nil
	})
	if err != nil {
		return Snapshot{}, err
	}
	s.emit(ctx, events.TopicItemAdded, id, map[string]any{
		"item":      tx.Item,
		"unitPrice": tx.UnitPrice,
		"quantity":  tx.Quantity,
		"total":     snap.Total,
	})
	return snap, nil
}

// ApplyDiscount applies the register's discount to its current total.
func (s *Service) ApplyDiscount(ctx context.Context, id uuid.UUID) (DiscountResult, Snapshot, error) {
	var (
		res  DiscountResult
		snap Snapshot
	)
	err := s.with(ctx, "register.ApplyDiscount", id, func(e *entry) error {
		res = e.reg.ApplyDiscount()
		snap = e.snapshot()
		return nil
	})
	if err != nil {
		return DiscountResult{}, Snapshot{}, err
	}
	topic := events.TopicDiscountSkipped
	if res.Applied {
		topic = events.TopicDiscountApplied
	}
	s.emit(ctx, topic, id, res)
	return res, snap, nil
}

// VoidLast reverses the most recent purchase. ok is false when there was
// nothing to void; that is not an error.
func (s *Service) VoidLast(ctx context.Context, id uuid.UUID) (tx Transaction, ok bool, snap Snapshot, err error) {
	err = s.with(ctx, "register.VoidLast", id, func(e *entry) error {
		tx, ok = e.reg.VoidLastTransaction()
		snap = e.snapshot()
		return nil
	})
	if err != nil {
		return Transaction{}, false, Snapshot{}, err
	}
	if ok {
		s.emit(ctx, events.TopicTransactionVoided, id, map[string]any{
			"item":      tx.Item,
			"unitPrice": tx.UnitPrice,
			"quantity":  tx.Quantity,
			"total":     snap.Total,
		})
	}
	return tx, ok, snap, nil
}

// Notices returns the most recent user-facing notices a register has emitted,
// oldest first. At most 50 are kept.
func (s *Service) Notices(ctx context.Context, id uuid.UUID) ([]string, error) {
	var out []string
	err := s.with(ctx, "register.Notices", id, func(e *entry) error {
		out = append([]string{}, e.notices...)
		return nil
	})
	return out, err
}

// Close drops the register.
func (s *Service) Close(ctx context.Context, id uuid.UUID) error {
	_, span := s.tracer().Start(ctx, "register.Close", trace.WithAttributes(attribute.String("register.id", id.String())))
	defer span.End()
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	_, ok := s.registers[id]
	delete(s.registers, id)
	s.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	s.emit(ctx, events.TopicRegisterClosed, id, nil)
	return nil
}

func (s *Service) lookup(id uuid.UUID) (*entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.registers[id]
	return e, ok
}

// with runs fn while holding the register's lock.
func (s *Service) with(ctx context.Context, op string, id uuid.UUID, fn func(*entry) error) error {
	ctx, span := s.tracer().Start(ctx, op, trace.WithAttributes(attribute.String("register.id", id.String())))
	defer span.End()
	if err := ctx.Err(); err != nil {
		return err
	}
	e, ok := s.lookup(id)
	if !ok {
		return ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := fn(e); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

func (s *Service) emit(ctx context.Context, topic string, id uuid.UUID, payload any) {
	if s.Events == nil {
		return
	}
	if _, err := s.Events.Emit(ctx, topic, id, payload); err != nil {
		s.Logger.Error().Err(err).Str("topic", topic).Str("register_id", id.String()).Msg("emit register event")
	}
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}

func nonNilTx(txs []Transaction) []Transaction {
	if txs == nil {
		return []Transaction{}
	}
	return txs
}
