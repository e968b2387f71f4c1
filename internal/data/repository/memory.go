package repository

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"hospital-booking/internal/data/entity"
	"hospital-booking/pkg/apperror"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MemoryHooks lets tests inject storage faults into the in-memory store.
type MemoryHooks struct {
	// BeforeAuditAppend runs before an audit entry is stored. A non-nil
	// error fails the append.
	BeforeAuditAppend func(entry *entity.AuditLogEntry) error
	// BeforeInventoryWrite runs after the version check of a conditional
	// inventory write. A non-nil error fails the write.
	BeforeInventoryWrite func(current *entity.ResourceInventory) error
}

type inventoryKey struct {
	hospitalID   uuid.UUID
	resourceType entity.ResourceType
}

// memoryStore keeps every table in maps guarded by one mutex. A transaction
// holds the mutex until it finishes and records an undo step per write.
type memoryStore struct {
	mu           sync.Mutex
	hospitals    map[uuid.UUID]entity.Hospital
	inventories  map[inventoryKey]entity.ResourceInventory
	bookings     map[uuid.UUID]entity.Booking
	references   map[string]uuid.UUID
	audit        []entity.AuditLogEntry
	referenceSeq int64
	hooks        MemoryHooks
	log          *zap.Logger
}

type memoryTx struct {
	undo []func()
}

func (tx *memoryTx) rollback() {
	for i := len(tx.undo) - 1; i >= 0; i-- {
		tx.undo[i]()
	}
	tx.undo = nil
}

// memoryView is the store seen from outside a transaction (tx == nil) or
// from inside one.
type memoryView struct {
	store *memoryStore
	tx    *memoryTx
}

func (v *memoryView) lock() func() {
	if v.tx != nil {
		return func() {}
	}
	v.store.mu.Lock()
	return v.store.mu.Unlock
}

func (v *memoryView) onRollback(fn func()) {
	if v.tx != nil {
		v.tx.undo = append(v.tx.undo, fn)
	}
}

// NewMemoryRepository returns a Repository backed by process memory.
func NewMemoryRepository(log *zap.Logger, hooks MemoryHooks) *Repository {
	store := &memoryStore{
		hospitals:   make(map[uuid.UUID]entity.Hospital),
		inventories: make(map[inventoryKey]entity.ResourceInventory),
		bookings:    make(map[uuid.UUID]entity.Booking),
		references:  make(map[string]uuid.UUID),
		hooks:       hooks,
		log:         log.With(zap.String("repository", "memory")),
	}

	repo := newMemorySet(&memoryView{store: store})
	repo.runTx = store.runTx
	return repo
}

func newMemorySet(view *memoryView) *Repository {
	return &Repository{
		Hospital:  &memoryHospitals{view},
		Inventory: &memoryInventories{view},
		Booking:   &memoryBookings{view},
		Audit:     &memoryAudit{view},
	}
}

func (s *memoryStore) runTx(ctx context.Context, fn func(tx *Repository) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memoryTx{}
	txRepo := newMemorySet(&memoryView{store: s, tx: tx})
	txRepo.runTx = func(_ context.Context, fn func(tx *Repository) error) error {
		return fn(txRepo)
	}

	committed := false
	defer func() {
		if !committed {
			s.log.Debug("Rolling back transaction", zap.Int("writes", len(tx.undo)))
			tx.rollback()
		}
	}()

	if err := fn(txRepo); err != nil {
		return err
	}
	committed = true
	return nil
}

type memoryHospitals struct{ *memoryView }

func (m *memoryHospitals) Create(_ context.Context, hospital *entity.Hospital) error {
	defer m.lock()()

	if _, exists := m.store.hospitals[hospital.ID]; exists {
		return apperror.NewConflictError("hospital %s already exists", hospital.ID)
	}
	m.store.hospitals[hospital.ID] = *hospital
	m.onRollback(func() { delete(m.store.hospitals, hospital.ID) })
	return nil
}

func (m *memoryHospitals) FindByID(_ context.Context, id uuid.UUID) (*entity.Hospital, error) {
	defer m.lock()()

	hospital, ok := m.store.hospitals[id]
	if !ok {
		return nil, nil
	}
	return &hospital, nil
}

func (m *memoryHospitals) UpdateStatus(_ context.Context, id uuid.UUID, from, to entity.HospitalStatus) error {
	defer m.lock()()

	prev, ok := m.store.hospitals[id]
	if !ok || prev.Status != from {
		return apperror.NewConflictError("hospital %s is no longer %s", id, from)
	}

	next := prev
	next.Status = to
	next.UpdatedAt = time.Now().UTC()
	m.store.hospitals[id] = next
	m.onRollback(func() { m.store.hospitals[id] = prev })
	return nil
}

type memoryInventories struct{ *memoryView }

func (m *memoryInventories) Get(_ context.Context, hospitalID uuid.UUID, resourceType entity.ResourceType) (*entity.ResourceInventory, error) {
	defer m.lock()()

	inv, ok := m.store.inventories[inventoryKey{hospitalID, resourceType}]
	if !ok {
		return nil, nil
	}
	return &inv, nil
}

func (m *memoryInventories) ListByHospital(_ context.Context, hospitalID uuid.UUID) ([]*entity.ResourceInventory, error) {
	defer m.lock()()

	var inventories []*entity.ResourceInventory
	for key, inv := range m.store.inventories {
		if key.hospitalID == hospitalID {
			inventories = append(inventories, &inv)
		}
	}
	slices.SortFunc(inventories, func(a, b *entity.ResourceInventory) int {
		return cmp.Compare(a.ResourceType, b.ResourceType)
	})
	return inventories, nil
}

func (m *memoryInventories) Create(_ context.Context, inv *entity.ResourceInventory) error {
	if err := inv.Counts.Validate(); err != nil {
		return err
	}

	defer m.lock()()

	key := inventoryKey{inv.HospitalID, inv.ResourceType}
	if _, exists := m.store.inventories[key]; exists {
		return apperror.NewConflictError("inventory %s already exists for hospital %s", inv.ResourceType, inv.HospitalID)
	}
	m.store.inventories[key] = *inv
	m.onRollback(func() { delete(m.store.inventories, key) })
	return nil
}

func (m *memoryInventories) CompareAndApply(_ context.Context, hospitalID uuid.UUID, resourceType entity.ResourceType, delta entity.Delta, expectedVersion int64) (*entity.ResourceInventory, error) {
	defer m.lock()()

	current, err := m.checkVersion(hospitalID, resourceType, expectedVersion)
	if err != nil {
		return nil, err
	}

	next, err := current.Counts.Apply(delta)
	if err != nil {
		return nil, err
	}
	return m.put(current, next), nil
}

func (m *memoryInventories) Resize(_ context.Context, hospitalID uuid.UUID, resourceType entity.ResourceType, newTotal int, delta entity.Delta, expectedVersion int64) (*entity.ResourceInventory, error) {
	defer m.lock()()

	current, err := m.checkVersion(hospitalID, resourceType, expectedVersion)
	if err != nil {
		return nil, err
	}

	next, err := current.Counts.Resize(newTotal, delta)
	if err != nil {
		return nil, err
	}
	return m.put(current, next), nil
}

func (m *memoryInventories) checkVersion(hospitalID uuid.UUID, resourceType entity.ResourceType, expectedVersion int64) (entity.ResourceInventory, error) {
	current, ok := m.store.inventories[inventoryKey{hospitalID, resourceType}]
	if !ok {
		return current, apperror.NewNotFoundError("inventory %s for hospital %s not found", resourceType, hospitalID)
	}
	if current.Version != expectedVersion {
		return current, apperror.NewConflictError("inventory %s/%s is at version %d, expected %d",
			hospitalID, resourceType, current.Version, expectedVersion)
	}
	if hook := m.store.hooks.BeforeInventoryWrite; hook != nil {
		if err := hook(&current); err != nil {
			return current, err
		}
	}
	return current, nil
}

func (m *memoryInventories) put(current entity.ResourceInventory, next entity.Counts) *entity.ResourceInventory {
	key := inventoryKey{current.HospitalID, current.ResourceType}

	updated := current
	updated.Counts = next
	updated.Version = current.Version + 1
	updated.UpdatedAt = time.Now().UTC()

	m.store.inventories[key] = updated
	m.onRollback(func() { m.store.inventories[key] = current })
	return &updated
}

type memoryBookings struct{ *memoryView }

func (m *memoryBookings) Create(_ context.Context, booking *entity.Booking) error {
	defer m.lock()()

	if _, exists := m.store.bookings[booking.ID]; exists {
		return apperror.NewConflictError("booking %s already exists", booking.ID)
	}
	if _, exists := m.store.references[booking.BookingReference]; exists {
		return apperror.NewConflictError("booking %s already exists", booking.BookingReference)
	}

	m.store.bookings[booking.ID] = *booking
	m.store.references[booking.BookingReference] = booking.ID
	m.onRollback(func() {
		delete(m.store.bookings, booking.ID)
		delete(m.store.references, booking.BookingReference)
	})
	return nil
}

func (m *memoryBookings) FindByID(_ context.Context, id uuid.UUID) (*entity.Booking, error) {
	defer m.lock()()

	booking, ok := m.store.bookings[id]
	if !ok {
		return nil, nil
	}
	return &booking, nil
}

func (m *memoryBookings) FindByReference(_ context.Context, reference string) (*entity.Booking, error) {
	defer m.lock()()

	id, ok := m.store.references[reference]
	if !ok {
		return nil, nil
	}
	booking := m.store.bookings[id]
	return &booking, nil
}

func (m *memoryBookings) FindByUserID(_ context.Context, userID uuid.UUID, limit, offset int) ([]*entity.Booking, error) {
	defer m.lock()()

	matched := m.filter(func(b *entity.Booking) bool { return b.UserID == userID })
	return page(matched, limit, offset), nil
}

func (m *memoryBookings) CountByUserID(_ context.Context, userID uuid.UUID) (int64, error) {
	defer m.lock()()

	matched := m.filter(func(b *entity.Booking) bool { return b.UserID == userID })
	return int64(len(matched)), nil
}

func (m *memoryBookings) FindByHospital(_ context.Context, hospitalID uuid.UUID, status entity.BookingStatus, limit, offset int) ([]*entity.Booking, int64, error) {
	defer m.lock()()

	matched := m.filter(func(b *entity.Booking) bool {
		return b.HospitalID == hospitalID && (status == "" || b.Status == status)
	})
	return page(matched, limit, offset), int64(len(matched)), nil
}

// filter returns matching bookings newest first. The reference breaks ties
// because its sequence part only grows.
func (m *memoryBookings) filter(match func(*entity.Booking) bool) []*entity.Booking {
	var matched []*entity.Booking
	for _, b := range m.store.bookings {
		if match(&b) {
			matched = append(matched, &b)
		}
	}
	slices.SortFunc(matched, func(a, b *entity.Booking) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.BookingReference, a.BookingReference)
	})
	return matched
}

func (m *memoryBookings) TransitionStatus(_ context.Context, booking *entity.Booking, from entity.BookingStatus) error {
	defer m.lock()()

	prev, ok := m.store.bookings[booking.ID]
	if !ok || prev.Status != from {
		return apperror.NewConflictError("booking %s is no longer %s", booking.ID, from)
	}

	next := prev
	next.Status = booking.Status
	next.QuotedAmount = booking.QuotedAmount
	next.StatusReason = booking.StatusReason
	next.UpdatedAt = booking.UpdatedAt
	m.store.bookings[booking.ID] = next
	m.onRollback(func() { m.store.bookings[booking.ID] = prev })
	return nil
}

func (m *memoryBookings) NextReferenceSequence(_ context.Context) (int64, error) {
	defer m.lock()()

	m.store.referenceSeq++
	return m.store.referenceSeq, nil
}

type memoryAudit struct{ *memoryView }

func (m *memoryAudit) Append(_ context.Context, entry *entity.AuditLogEntry) error {
	defer m.lock()()

	if hook := m.store.hooks.BeforeAuditAppend; hook != nil {
		if err := hook(entry); err != nil {
			return err
		}
	}

	n := len(m.store.audit)
	m.store.audit = append(m.store.audit, *entry)
	m.onRollback(func() { m.store.audit = m.store.audit[:n] })
	return nil
}

func (m *memoryAudit) Query(_ context.Context, hospitalID uuid.UUID, filter entity.AuditFilter, limit, offset int) ([]*entity.AuditLogEntry, int64, error) {
	defer m.lock()()

	var matched []*entity.AuditLogEntry
	for i := len(m.store.audit) - 1; i >= 0; i-- {
		e := m.store.audit[i]
		if e.HospitalID == hospitalID && filter.Matches(&e) {
			matched = append(matched, &e)
		}
	}
	return page(matched, limit, offset), int64(len(matched)), nil
}

func (m *memoryAudit) FindByBooking(_ context.Context, bookingID uuid.UUID, changeType entity.ChangeType) (*entity.AuditLogEntry, error) {
	defer m.lock()()

	for i := len(m.store.audit) - 1; i >= 0; i-- {
		e := m.store.audit[i]
		if e.ChangeType == changeType && e.BookingID != nil && *e.BookingID == bookingID {
			return &e, nil
		}
	}
	return nil, nil
}

// page applies limit/offset. A non-positive limit means no limit.
func page[T any](items []T, limit, offset int) []T {
	offset = max(offset, 0)
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
