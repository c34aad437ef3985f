// Package store provides an in-memory domain.TxStore.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/warp/carwash-backoffice/domain"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type data struct {
	seq       int64
	staff     map[domain.StaffID]domain.Staff
	carWashes map[domain.CarWashID]domain.CarWash
	shifts    map[domain.ShiftID]domain.Shift
	photos    map[domain.ShiftID][]domain.ShiftFinishPhoto
	cars      map[domain.CarID]domain.TransferredCar

	penalties         []domain.Penalty
	surcharges        []domain.Surcharge
	carWashPenalties  []domain.CarWashPenalty
	carWashSurcharges []domain.CarWashSurcharge

	bonus *domain.BonusSettings
}

func newData() *data {
	return &data{
		staff:     make(map[domain.StaffID]domain.Staff),
		carWashes: make(map[domain.CarWashID]domain.CarWash),
		shifts:    make(map[domain.ShiftID]domain.Shift),
		photos:    make(map[domain.ShiftID][]domain.ShiftFinishPhoto),
		cars:      make(map[domain.CarID]domain.TransferredCar),
	}
}

// clone copies every map and slice header. Entities are values, so a
// shallow copy per row is enough for rollback.
func (d *data) clone() *data {
	c := newData()
	c.seq = d.seq
	for k, v := range d.staff {
		c.staff[k] = v
	}
	for k, v := range d.carWashes {
		c.carWashes[k] = v
	}
	for k, v := range d.shifts {
		c.shifts[k] = v
	}
	for k, v := range d.photos {
		c.photos[k] = append([]domain.ShiftFinishPhoto(nil), v...)
	}
	for k, v := range d.cars {
		c.cars[k] = v
	}
	c.penalties = append([]domain.Penalty(nil), d.penalties...)
	c.surcharges = append([]domain.Surcharge(nil), d.surcharges...)
	c.carWashPenalties = append([]domain.CarWashPenalty(nil), d.carWashPenalties...)
	c.carWashSurcharges = append([]domain.CarWashSurcharge(nil), d.carWashSurcharges...)
	if d.bonus != nil {
		b := *d.bonus
		c.bonus = &b
	}
	return c
}

func (d *data) nextID() int64 {
	d.seq++
	return d.seq
}

// Memory is a mutex-guarded store. Inside WithTx the callback receives a
// view sharing the same data that skips locking, since the lock is held for
// the whole transaction.
type Memory struct {
	mu   *sync.RWMutex
	d    *data
	inTx bool
}

func NewMemory() *Memory {
	return &Memory{mu: &sync.RWMutex{}, d: newData()}
}

var _ domain.TxStore = (*Memory)(nil)

func (m *Memory) lock() func() {
	if m.inTx {
		return func() {}
	}
	m.mu.Lock()
	return m.mu.Unlock
}

func (m *Memory) rlock() func() {
	if m.inTx {
		return func() {}
	}
	m.mu.RLock()
	return m.mu.RUnlock
}

// WithTx executes fn within a transaction.
// For memory store, this is simulated with a snapshot + rollback on error.
func (m *Memory) WithTx(ctx context.Context, fn func(domain.Store) error) error {
	if m.inTx {
		return fn(m)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.d.clone()
	view := &Memory{mu: m.mu, d: m.d, inTx: true}
	if err := fn(view); err != nil {
		*m.d = *snapshot
		return err
	}
	return nil
}

// =============================================================================
// STAFF
// =============================================================================

func (m *Memory) CreateStaff(_ context.Context, s domain.Staff) (domain.Staff, error) {
	defer m.lock()()
	if s.ID == 0 {
		s.ID = domain.StaffID(m.d.nextID())
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	m.d.staff[s.ID] = s
	return s, nil
}

func (m *Memory) GetStaff(_ context.Context, id domain.StaffID) (domain.Staff, error) {
	defer m.rlock()()
	s, ok := m.d.staff[id]
	if !ok {
		return domain.Staff{}, domain.ErrStaffNotFound
	}
	return s, nil
}

func (m *Memory) ListStaff(_ context.Context) ([]domain.Staff, error) {
	defer m.rlock()()
	result := make([]domain.Staff, 0, len(m.d.staff))
	for _, s := range m.d.staff {
		result = append(result, s)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *Memory) ExistingStaffIDs(_ context.Context, ids []domain.StaffID) ([]domain.StaffID, error) {
	defer m.rlock()()
	var result []domain.StaffID
	seen := make(map[domain.StaffID]bool)
	for _, id := range ids {
		if _, ok := m.d.staff[id]; ok && !seen[id] {
			seen[id] = true
			result = append(result, id)
		}
	}
	return result, nil
}

func (m *Memory) BanStaff(_ context.Context, id domain.StaffID, at time.Time) error {
	defer m.lock()()
	s, ok := m.d.staff[id]
	if !ok {
		return domain.ErrStaffNotFound
	}
	s.BannedAt = &at
	m.d.staff[id] = s
	return nil
}

// =============================================================================
// CAR WASHES
// =============================================================================

func (m *Memory) CreateCarWash(_ context.Context, cw domain.CarWash) (domain.CarWash, error) {
	defer m.lock()()
	if cw.ID == 0 {
		cw.ID = domain.CarWashID(m.d.nextID())
	}
	if cw.CreatedAt.IsZero() {
		cw.CreatedAt = time.Now().UTC()
	}
	cw.Services = append([]domain.CarWashService(nil), cw.Services...)
	m.d.carWashes[cw.ID] = cw
	return cw, nil
}

func (m *Memory) GetCarWash(_ context.Context, id domain.CarWashID) (domain.CarWash, error) {
	defer m.rlock()()
	cw, ok := m.d.carWashes[id]
	if !ok {
		return domain.CarWash{}, domain.ErrCarWashNotFound
	}
	return cw, nil
}

func (m *Memory) ListCarWashes(_ context.Context) ([]domain.CarWash, error) {
	defer m.rlock()()
	result := make([]domain.CarWash, 0, len(m.d.carWashes))
	for _, cw := range m.d.carWashes {
		result = append(result, cw)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// =============================================================================
// SHIFTS
// =============================================================================

func matchBool(want *bool, got bool) bool { return want == nil || *want == got }

func matchShift(f domain.ShiftFilter, s domain.Shift) bool {
	if f.ID != nil && *f.ID != s.ID {
		return false
	}
	if f.ExcludeID != nil && *f.ExcludeID == s.ID {
		return false
	}
	if f.StaffID != nil && *f.StaffID != s.StaffID {
		return false
	}
	if f.DateFrom != nil && s.Date.Before(*f.DateFrom) {
		return false
	}
	if f.DateTo != nil && s.Date.After(*f.DateTo) {
		return false
	}
	if f.Dates != nil {
		found := false
		for _, d := range f.Dates {
			if d.Equal(s.Date) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return matchBool(f.IsTest, s.IsTest) &&
		matchBool(f.IsExtra, s.IsExtra) &&
		matchBool(f.Started, s.StartedAt != nil) &&
		matchBool(f.Finished, s.FinishedAt != nil) &&
		matchBool(f.Rejected, s.RejectedAt != nil) &&
		matchBool(f.Confirmed, s.ConfirmedAt != nil)
}

func (d *data) findShifts(f domain.ShiftFilter) []domain.Shift {
	var result []domain.Shift
	for _, s := range d.shifts {
		if matchShift(f, s) {
			result = append(result, s)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].Date.Equal(result[j].Date) {
			return result[i].Date.Before(result[j].Date)
		}
		return result[i].ID < result[j].ID
	})
	return result
}

func (m *Memory) GetShift(_ context.Context, id domain.ShiftID) (domain.Shift, error) {
	defer m.rlock()()
	s, ok := m.d.shifts[id]
	if !ok {
		return domain.Shift{}, domain.ErrShiftNotFound
	}
	return s, nil
}

func (m *Memory) FindShifts(_ context.Context, f domain.ShiftFilter) ([]domain.Shift, error) {
	defer m.rlock()()
	return m.d.findShifts(f), nil
}

func (m *Memory) CountShifts(_ context.Context, f domain.ShiftFilter) (int, error) {
	defer m.rlock()()
	return len(m.d.findShifts(f)), nil
}

func (m *Memory) ShiftExists(_ context.Context, f domain.ShiftFilter) (bool, error) {
	defer m.rlock()()
	return len(m.d.findShifts(f)) > 0, nil
}

// CreateShifts enforces the same uniqueness rule as the SQL schema: one
// non-test shift per (staff, date).
func (m *Memory) CreateShifts(_ context.Context, shifts []domain.Shift) ([]domain.Shift, error) {
	defer m.lock()()

	seen := make(map[domain.StaffID]map[domain.Date]bool)
	for _, s := range shifts {
		if s.IsTest {
			continue
		}
		existing := m.d.findShifts(domain.ShiftFilter{
			StaffID: &s.StaffID,
			Dates:   []domain.Date{s.Date},
			IsTest:  domain.Ptr(false),
		})
		if seen[s.StaffID] == nil {
			seen[s.StaffID] = make(map[domain.Date]bool)
		}
		if len(existing) > 0 || seen[s.StaffID][s.Date] {
			return nil, &domain.ShiftAlreadyExistsError{StaffID: s.StaffID, Dates: []domain.Date{s.Date}}
		}
		seen[s.StaffID][s.Date] = true
	}

	created := make([]domain.Shift, len(shifts))
	for i, s := range shifts {
		s.ID = domain.ShiftID(m.d.nextID())
		if s.CreatedAt.IsZero() {
			s.CreatedAt = time.Now().UTC()
		}
		m.d.shifts[s.ID] = s
		created[i] = s
	}
	return created, nil
}

func (m *Memory) UpdateShifts(_ context.Context, f domain.ShiftFilter, u domain.ShiftUpdate) (int, error) {
	defer m.lock()()
	matched := m.d.findShifts(f)
	for _, s := range matched {
		if u.CarWashID != nil {
			s.CarWashID = domain.Ptr(*u.CarWashID)
		}
		if u.StartedAt != nil {
			s.StartedAt = domain.Ptr(*u.StartedAt)
		}
		if u.FinishedAt != nil {
			s.FinishedAt = domain.Ptr(*u.FinishedAt)
		}
		if u.ConfirmedAt != nil {
			s.ConfirmedAt = domain.Ptr(*u.ConfirmedAt)
		}
		if u.RejectedAt != nil {
			s.RejectedAt = domain.Ptr(*u.RejectedAt)
		}
		m.d.shifts[s.ID] = s
	}
	return len(matched), nil
}

func (m *Memory) DeleteShifts(_ context.Context, f domain.ShiftFilter) (int, error) {
	defer m.lock()()
	matched := m.d.findShifts(f)
	for _, s := range matched {
		delete(m.d.shifts, s.ID)
		delete(m.d.photos, s.ID)
		for id, car := range m.d.cars {
			if car.ShiftID == s.ID {
				delete(m.d.cars, id)
			}
		}
	}
	return len(matched), nil
}

func (m *Memory) DeleteFinishPhotos(_ context.Context, shiftID domain.ShiftID) error {
	defer m.lock()()
	delete(m.d.photos, shiftID)
	return nil
}

func (m *Memory) CreateFinishPhotos(_ context.Context, photos []domain.ShiftFinishPhoto) error {
	defer m.lock()()
	for _, p := range photos {
		if _, ok := m.d.shifts[p.ShiftID]; !ok {
			return domain.ErrShiftNotFound
		}
	}
	for _, p := range photos {
		m.d.photos[p.ShiftID] = append(m.d.photos[p.ShiftID], p)
	}
	return nil
}

func (m *Memory) ListFinishPhotos(_ context.Context, shiftID domain.ShiftID) ([]domain.ShiftFinishPhoto, error) {
	defer m.rlock()()
	return append([]domain.ShiftFinishPhoto(nil), m.d.photos[shiftID]...), nil
}

// =============================================================================
// TRANSFERRED CARS
// =============================================================================

func (d *data) findCars(f domain.CarFilter) []domain.TransferredCar {
	var result []domain.TransferredCar
	for _, c := range d.cars {
		if f.ShiftID != nil && *f.ShiftID != c.ShiftID {
			continue
		}
		if f.CarWashID != nil && *f.CarWashID != c.CarWashID {
			continue
		}
		if f.StaffID != nil || f.ShiftDateFrom != nil || f.ShiftDateTo != nil || f.ShiftIsTest != nil {
			s, ok := d.shifts[c.ShiftID]
			if !ok {
				continue
			}
			if f.StaffID != nil && *f.StaffID != s.StaffID {
				continue
			}
			if f.ShiftDateFrom != nil && s.Date.Before(*f.ShiftDateFrom) {
				continue
			}
			if f.ShiftDateTo != nil && s.Date.After(*f.ShiftDateTo) {
				continue
			}
			if !matchBool(f.ShiftIsTest, s.IsTest) {
				continue
			}
		}
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

func (m *Memory) CreateTransferredCar(_ context.Context, car domain.TransferredCar) (domain.TransferredCar, error) {
	defer m.lock()()
	if _, ok := m.d.shifts[car.ShiftID]; !ok {
		return domain.TransferredCar{}, domain.ErrShiftNotFound
	}
	car.ID = domain.CarID(m.d.nextID())
	if car.CreatedAt.IsZero() {
		car.CreatedAt = time.Now().UTC()
	}
	car.AdditionalServices = append([]domain.AdditionalService(nil), car.AdditionalServices...)
	m.d.cars[car.ID] = car
	return car, nil
}

func (m *Memory) FindTransferredCars(_ context.Context, f domain.CarFilter) ([]domain.TransferredCar, error) {
	defer m.rlock()()
	return m.d.findCars(f), nil
}

func (m *Memory) CountTransferredCars(_ context.Context, f domain.CarFilter) (int, error) {
	defer m.rlock()()
	return len(m.d.findCars(f)), nil
}

// =============================================================================
// PENALTIES / SURCHARGES
// =============================================================================

func matchAdjustment(f domain.AdjustmentFilter, staffID *domain.StaffID, carWashID *domain.CarWashID, reason string, createdAt time.Time) bool {
	if f.StaffID != nil && (staffID == nil || *f.StaffID != *staffID) {
		return false
	}
	if f.CarWashID != nil && (carWashID == nil || *f.CarWashID != *carWashID) {
		return false
	}
	if f.Reason != nil && *f.Reason != reason {
		return false
	}
	day := domain.DateOf(createdAt.UTC())
	if f.CreatedFrom != nil && day.Before(*f.CreatedFrom) {
		return false
	}
	if f.CreatedTo != nil && day.After(*f.CreatedTo) {
		return false
	}
	return true
}

func stamp(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}

func (m *Memory) CreatePenalty(_ context.Context, p domain.Penalty) (domain.Penalty, error) {
	defer m.lock()()
	if _, ok := m.d.staff[p.StaffID]; !ok {
		return domain.Penalty{}, domain.ErrStaffNotFound
	}
	p.ID = domain.PenaltyID(m.d.nextID())
	p.CreatedAt = stamp(p.CreatedAt)
	m.d.penalties = append(m.d.penalties, p)
	return p, nil
}

func (m *Memory) FindPenalties(_ context.Context, f domain.AdjustmentFilter) ([]domain.Penalty, error) {
	defer m.rlock()()
	var result []domain.Penalty
	for _, p := range m.d.penalties {
		if matchAdjustment(f, &p.StaffID, nil, string(p.Reason), p.CreatedAt) {
			result = append(result, p)
		}
	}
	return result, nil
}

func (m *Memory) CountPenalties(ctx context.Context, f domain.AdjustmentFilter) (int, error) {
	penalties, err := m.FindPenalties(ctx, f)
	return len(penalties), err
}

func (m *Memory) CreateSurcharge(_ context.Context, s domain.Surcharge) (domain.Surcharge, error) {
	defer m.lock()()
	if _, ok := m.d.staff[s.StaffID]; !ok {
		return domain.Surcharge{}, domain.ErrStaffNotFound
	}
	s.ID = domain.SurchargeID(m.d.nextID())
	s.CreatedAt = stamp(s.CreatedAt)
	m.d.surcharges = append(m.d.surcharges, s)
	return s, nil
}

func (m *Memory) FindSurcharges(_ context.Context, f domain.AdjustmentFilter) ([]domain.Surcharge, error) {
	defer m.rlock()()
	var result []domain.Surcharge
	for _, s := range m.d.surcharges {
		if matchAdjustment(f, &s.StaffID, nil, s.Reason, s.CreatedAt) {
			result = append(result, s)
		}
	}
	return result, nil
}

func (m *Memory) CreateCarWashPenalty(_ context.Context, p domain.CarWashPenalty) (domain.CarWashPenalty, error) {
	defer m.lock()()
	if _, ok := m.d.carWashes[p.CarWashID]; !ok {
		return domain.CarWashPenalty{}, domain.ErrCarWashNotFound
	}
	p.ID = domain.PenaltyID(m.d.nextID())
	p.CreatedAt = stamp(p.CreatedAt)
	m.d.carWashPenalties = append(m.d.carWashPenalties, p)
	return p, nil
}

func (m *Memory) FindCarWashPenalties(_ context.Context, f domain.AdjustmentFilter) ([]domain.CarWashPenalty, error) {
	defer m.rlock()()
	var result []domain.CarWashPenalty
	for _, p := range m.d.carWashPenalties {
		if matchAdjustment(f, nil, &p.CarWashID, p.Reason, p.CreatedAt) {
			result = append(result, p)
		}
	}
	return result, nil
}

func (m *Memory) CreateCarWashSurcharge(_ context.Context, s domain.CarWashSurcharge) (domain.CarWashSurcharge, error) {
	defer m.lock()()
	if _, ok := m.d.carWashes[s.CarWashID]; !ok {
		return domain.CarWashSurcharge{}, domain.ErrCarWashNotFound
	}
	s.ID = domain.SurchargeID(m.d.nextID())
	s.CreatedAt = stamp(s.CreatedAt)
	m.d.carWashSurcharges = append(m.d.carWashSurcharges, s)
	return s, nil
}

func (m *Memory) FindCarWashSurcharges(_ context.Context, f domain.AdjustmentFilter) ([]domain.CarWashSurcharge, error) {
	defer m.rlock()()
	var result []domain.CarWashSurcharge
	for _, s := range m.d.carWashSurcharges {
		if matchAdjustment(f, nil, &s.CarWashID, s.Reason, s.CreatedAt) {
			result = append(result, s)
		}
	}
	return result, nil
}

// =============================================================================
// SETTINGS
// =============================================================================

func (m *Memory) GetBonusSettings(_ context.Context) (domain.BonusSettings, error) {
	defer m.lock()()
	if m.d.bonus == nil {
		m.d.bonus = &domain.BonusSettings{}
	}
	b := *m.d.bonus
	b.ExcludedStaffIDs = append([]domain.StaffID(nil), b.ExcludedStaffIDs...)
	return b, nil
}

func (m *Memory) SaveBonusSettings(_ context.Context, s domain.BonusSettings) error {
	defer m.lock()()
	s.ExcludedStaffIDs = append([]domain.StaffID(nil), s.ExcludedStaffIDs...)
	m.d.bonus = &s
	return nil
}
