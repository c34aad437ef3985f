package shift_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/carwash-backoffice/calendar"
	"github.com/warp/carwash-backoffice/domain"
	"github.com/warp/carwash-backoffice/domain/store"
	"github.com/warp/carwash-backoffice/notify"
	"github.com/warp/carwash-backoffice/pricing"
	"github.com/warp/carwash-backoffice/shift"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

var msk = time.FixedZone("MSK", 3*60*60)

type sentMessage struct {
	ChatID int64
	Text   string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentMessage
	ok   bool
}

func (n *recordingNotifier) Send(_ context.Context, chatID int64, text string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentMessage{ChatID: chatID, Text: text})
	return n.ok
}

type fixture struct {
	ctx      context.Context
	store    *store.Memory
	clock    *calendar.FixedClock
	notifier *recordingNotifier
	svc      *shift.Service
	staff    domain.Staff
	carWash  domain.CarWash
}

func date(month time.Month, day int) domain.Date {
	return domain.NewDate(2025, month, day)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	st := store.NewMemory()

	staff, err := st.CreateStaff(ctx, domain.Staff{FullName: "Ivan Petrov", TelegramChatID: 1001})
	require.NoError(t, err)
	cw, err := st.CreateCarWash(ctx, domain.CarWash{
		Name:                           "North",
		ComfortWashPrice:               decimal.NewFromInt(1000),
		BusinessWashPrice:              decimal.NewFromInt(1500),
		VanWashPrice:                   decimal.NewFromInt(2000),
		WindshieldWasherPricePerBottle: decimal.NewFromInt(300),
		Services: []domain.CarWashService{
			{ID: "vacuum", Name: "Trunk vacuum", Kind: domain.ServiceKindTrunkVacuum, Price: decimal.NewFromInt(150)},
			{ID: "seats", Name: "Seats", Kind: domain.ServiceKindDryCleaning, Price: decimal.NewFromInt(500)},
		},
	})
	require.NoError(t, err)

	// Saturday 2025-03-08, 22:00 Moscow: inside the start window of 03-08.
	clock := &calendar.FixedClock{At: time.Date(2025, time.March, 8, 22, 0, 0, 0, msk)}
	notifier := &recordingNotifier{ok: true}
	transfer := pricing.TransferPrices{
		ComfortPlanned: decimal.NewFromInt(200), ComfortUrgent: decimal.NewFromInt(250),
		BusinessPlanned: decimal.NewFromInt(300), BusinessUrgent: decimal.NewFromInt(350),
		VanPlanned: decimal.NewFromInt(400), VanUrgent: decimal.NewFromInt(450),
	}

	return &fixture{
		ctx:      ctx,
		store:    st,
		clock:    clock,
		notifier: notifier,
		svc:      shift.NewService(st, clock, msk, notifier, transfer, nil),
		staff:    staff,
		carWash:  cw,
	}
}

func (f *fixture) confirmedShift(t *testing.T, d domain.Date) domain.Shift {
	t.Helper()
	created, err := f.svc.CreateRegular(f.ctx, f.staff.ID, []domain.Date{d})
	require.NoError(t, err)
	require.Len(t, created, 1)
	confirmed, err := f.svc.Confirm(f.ctx, created[0].ID)
	require.NoError(t, err)
	return confirmed
}

func (f *fixture) startedShift(t *testing.T, d domain.Date) domain.Shift {
	t.Helper()
	sh := f.confirmedShift(t, d)
	started, err := f.svc.Start(f.ctx, sh.ID, f.carWash.ID)
	require.NoError(t, err)
	return started
}

// =============================================================================
// CREATE REGULAR
// =============================================================================

func TestCreateRegular_CreatesUnconfirmedShifts(t *testing.T) {
	f := newFixture(t)

	created, err := f.svc.CreateRegular(f.ctx, f.staff.ID, []domain.Date{date(3, 11), date(3, 10), date(3, 10)})

	require.NoError(t, err)
	require.Len(t, created, 2)
	assert.Equal(t, date(3, 10), created[0].Date)
	assert.Equal(t, date(3, 11), created[1].Date)
	for _, sh := range created {
		assert.Equal(t, domain.ShiftUnconfirmed, sh.Status())
		assert.False(t, sh.IsExtra)
		assert.False(t, sh.IsTest)
	}
}

func TestCreateRegular_PartialSuccessReportsAllConflicts(t *testing.T) {
	// GIVEN: a shift on d1 and d3
	// WHEN: requesting d1, d2, d3
	// THEN: d2 is created and the error lists exactly d1 and d3
	f := newFixture(t)
	d1, d2, d3 := date(3, 10), date(3, 11), date(3, 12)
	_, err := f.svc.CreateRegular(f.ctx, f.staff.ID, []domain.Date{d1, d3})
	require.NoError(t, err)

	created, err := f.svc.CreateRegular(f.ctx, f.staff.ID, []domain.Date{d1, d2, d3})

	var exists *domain.ShiftAlreadyExistsError
	require.ErrorAs(t, err, &exists)
	assert.Equal(t, []domain.Date{d1, d3}, exists.Dates)
	assert.Equal(t, domain.KindConflict, domain.KindOf(err))

	require.Len(t, created, 1)
	assert.Equal(t, d2, created[0].Date)

	count, err := f.store.CountShifts(f.ctx, domain.ShiftFilter{StaffID: &f.staff.ID})
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestCreateRegular_TestShiftIsNotAConflict(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CreateTest(f.ctx, f.staff.ID, date(3, 10))
	require.NoError(t, err)

	created, err := f.svc.CreateRegular(f.ctx, f.staff.ID, []domain.Date{date(3, 10)})

	require.NoError(t, err)
	assert.Len(t, created, 1)
}

func TestCreateRegular_UnknownStaff(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CreateRegular(f.ctx, 999, []domain.Date{date(3, 10)})
	assert.ErrorIs(t, err, domain.ErrStaffNotFound)
}

func TestCreateRegular_NoDates(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CreateRegular(f.ctx, f.staff.ID, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

// =============================================================================
// CREATE EXTRA
// =============================================================================

func TestCreateExtra_ReportsMissingStaffAndConflicts(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CreateRegular(f.ctx, f.staff.ID, []domain.Date{date(3, 10)})
	require.NoError(t, err)

	result, err := f.svc.CreateExtra(f.ctx, []shift.ExtraShiftRequest{
		{StaffID: f.staff.ID, Date: date(3, 10)}, // conflict with regular
		{StaffID: f.staff.ID, Date: date(3, 11)}, // created
		{StaffID: f.staff.ID, Date: date(3, 11)}, // duplicate in batch
		{StaffID: 404, Date: date(3, 11)},
		{StaffID: 404, Date: date(3, 12)},
	})

	require.NoError(t, err)
	require.Len(t, result.Created, 1)
	assert.Equal(t, date(3, 11), result.Created[0].Date)
	assert.True(t, result.Created[0].IsExtra)
	assert.Equal(t, domain.ShiftConfirmed, result.Created[0].Status())
	assert.Equal(t, []domain.StaffID{404}, result.MissingStaffIDs)
	assert.Equal(t, []shift.ExtraShiftRequest{
		{StaffID: f.staff.ID, Date: date(3, 10)},
		{StaffID: f.staff.ID, Date: date(3, 11)},
	}, result.Conflicts)
}

// =============================================================================
// CREATE TEST
// =============================================================================

func TestCreateTest_ReplacesPreviousTestShift(t *testing.T) {
	f := newFixture(t)

	first, err := f.svc.CreateTest(f.ctx, f.staff.ID, date(3, 8))
	require.NoError(t, err)
	second, err := f.svc.CreateTest(f.ctx, f.staff.ID, date(3, 9))
	require.NoError(t, err)

	assert.True(t, second.IsTest)
	assert.NotNil(t, second.ConfirmedAt)

	_, err = f.store.GetShift(f.ctx, first.ID)
	assert.ErrorIs(t, err, domain.ErrShiftNotFound)

	tests, err := f.store.FindShifts(f.ctx, domain.ShiftFilter{StaffID: &f.staff.ID, IsTest: domain.Ptr(true)})
	require.NoError(t, err)
	require.Len(t, tests, 1)
	assert.Equal(t, second.ID, tests[0].ID)
}

func TestCreateTest_RollsBackWhenStaffHasActiveShift(t *testing.T) {
	// GIVEN: an existing test shift that is running
	// WHEN: creating a new test shift
	// THEN: the call fails and the running test shift still exists
	f := newFixture(t)
	running, err := f.svc.CreateTest(f.ctx, f.staff.ID, date(3, 8))
	require.NoError(t, err)
	_, err = f.svc.Start(f.ctx, running.ID, f.carWash.ID)
	require.NoError(t, err)

	_, err = f.svc.CreateTest(f.ctx, f.staff.ID, date(3, 9))

	var active *domain.StaffHasActiveShiftError
	require.ErrorAs(t, err, &active)
	assert.Equal(t, running.ID, active.ActiveShiftID)

	_, err = f.store.GetShift(f.ctx, running.ID)
	assert.NoError(t, err)
}

// =============================================================================
// CONFIRM
// =============================================================================

func TestConfirm_TwiceIsConflict(t *testing.T) {
	f := newFixture(t)
	sh := f.confirmedShift(t, date(3, 8))
	assert.Equal(t, domain.ShiftConfirmed, sh.Status())

	_, err := f.svc.Confirm(f.ctx, sh.ID)
	assert.ErrorIs(t, err, domain.ErrShiftAlreadyConfirmed)
}

func TestConfirm_NotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Confirm(f.ctx, 12345)
	assert.ErrorIs(t, err, domain.ErrShiftNotFound)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
}

// =============================================================================
// START
// =============================================================================

func TestStart_BindsCarWash(t *testing.T) {
	f := newFixture(t)

	sh := f.startedShift(t, date(3, 8))

	assert.Equal(t, domain.ShiftStarted, sh.Status())
	require.NotNil(t, sh.CarWashID)
	assert.Equal(t, f.carWash.ID, *sh.CarWashID)
	assert.Equal(t, f.clock.Now().UTC(), *sh.StartedAt)
}

func TestStart_Errors(t *testing.T) {
	f := newFixture(t)

	t.Run("unknown shift", func(t *testing.T) {
		_, err := f.svc.Start(f.ctx, 999, f.carWash.ID)
		assert.ErrorIs(t, err, domain.ErrShiftNotFound)
	})

	t.Run("unknown car wash", func(t *testing.T) {
		sh := f.confirmedShift(t, date(3, 20))
		_, err := f.svc.Start(f.ctx, sh.ID, 999)
		assert.ErrorIs(t, err, domain.ErrCarWashNotFound)
	})

	t.Run("not confirmed", func(t *testing.T) {
		created, err := f.svc.CreateRegular(f.ctx, f.staff.ID, []domain.Date{date(3, 8)})
		require.NoError(t, err)
		_, err = f.svc.Start(f.ctx, created[0].ID, f.carWash.ID)
		assert.ErrorIs(t, err, domain.ErrShiftNotConfirmed)
	})

	t.Run("rejected", func(t *testing.T) {
		sh := f.confirmedShift(t, date(3, 21))
		ok, err := f.svc.Reject(f.ctx, sh.ID)
		require.NoError(t, err)
		require.True(t, ok)
		_, err = f.svc.Start(f.ctx, sh.ID, f.carWash.ID)
		assert.ErrorIs(t, err, domain.ErrShiftRejected)
	})

	t.Run("outside window", func(t *testing.T) {
		sh := f.confirmedShift(t, date(3, 22))
		_, err := f.svc.Start(f.ctx, sh.ID, f.carWash.ID)
		assert.ErrorIs(t, err, domain.ErrShiftStartOutsideWindow)
		assert.Equal(t, domain.KindInvalidState, domain.KindOf(err))
	})
}

func TestStart_StaffHasActiveShift(t *testing.T) {
	// GIVEN: a running test shift
	// WHEN: starting the regular shift of the same staff member
	// THEN: StaffHasActiveShift names the running shift
	f := newFixture(t)
	test, err := f.svc.CreateTest(f.ctx, f.staff.ID, date(3, 8))
	require.NoError(t, err)
	_, err = f.svc.Start(f.ctx, test.ID, f.carWash.ID)
	require.NoError(t, err)

	regular := f.confirmedShift(t, date(3, 8))
	_, err = f.svc.Start(f.ctx, regular.ID, f.carWash.ID)

	var active *domain.StaffHasActiveShiftError
	require.ErrorAs(t, err, &active)
	assert.Equal(t, test.ID, active.ActiveShiftID)
	assert.NoError(t, f.svc.EnsureStaffHasNoActiveShift(f.ctx, 999))
}

func TestStart_AlreadyStarted(t *testing.T) {
	f := newFixture(t)
	sh := f.startedShift(t, date(3, 8))

	_, err := f.svc.Start(f.ctx, sh.ID, f.carWash.ID)
	assert.ErrorIs(t, err, domain.ErrStaffHasActiveShift)
}

func TestStart_TestShiftIgnoresWindow(t *testing.T) {
	f := newFixture(t)
	test, err := f.svc.CreateTest(f.ctx, f.staff.ID, date(4, 1))
	require.NoError(t, err)

	sh, err := f.svc.Start(f.ctx, test.ID, f.carWash.ID)
	require.NoError(t, err)
	assert.True(t, sh.IsActive())
}

func TestStart_WindowBoundsAreInclusive(t *testing.T) {
	f := newFixture(t)
	sh := f.confirmedShift(t, date(3, 8))

	f.clock.At = time.Date(2025, time.March, 9, 9, 0, 0, 0, msk)
	_, err := f.svc.Start(f.ctx, sh.ID, f.carWash.ID)
	assert.NoError(t, err)
}

// =============================================================================
// FINISH
// =============================================================================

func TestFinish_IsIdempotentOnTimestampButReplacesPhotos(t *testing.T) {
	f := newFixture(t)
	sh := f.startedShift(t, date(3, 8))

	f.clock.Advance(8 * time.Hour)
	first, err := f.svc.Finish(f.ctx, sh.ID, []string{"photo-a", "photo-b"})
	require.NoError(t, err)
	finishedAt := *first.Shift.FinishedAt

	f.clock.Advance(time.Hour)
	second, err := f.svc.Finish(f.ctx, sh.ID, []string{"photo-c"})
	require.NoError(t, err)

	assert.Equal(t, finishedAt, *second.Shift.FinishedAt)
	photos, err := f.store.ListFinishPhotos(f.ctx, sh.ID)
	require.NoError(t, err)
	assert.Equal(t, []domain.ShiftFinishPhoto{{ShiftID: sh.ID, FileID: "photo-c"}}, photos)
}

func TestFinish_NotStarted(t *testing.T) {
	f := newFixture(t)
	sh := f.confirmedShift(t, date(3, 8))

	_, err := f.svc.Finish(f.ctx, sh.ID, nil)
	assert.ErrorIs(t, err, domain.ErrShiftNotStarted)
}

func TestFinish_FirstShiftFlagAndNotifications(t *testing.T) {
	f := newFixture(t)
	first := f.startedShift(t, date(3, 8))

	result, err := f.svc.Finish(f.ctx, first.ID, nil)
	require.NoError(t, err)
	assert.True(t, result.IsFirstShift)
	require.Len(t, f.notifier.sent, 2)
	assert.Contains(t, f.notifier.sent[0].Text, "first shift")
	assert.Equal(t, int64(1001), f.notifier.sent[1].ChatID)

	f.clock.At = time.Date(2025, time.March, 9, 22, 0, 0, 0, msk)
	next := f.startedShift(t, date(3, 9))
	result, err = f.svc.Finish(f.ctx, next.ID, nil)
	require.NoError(t, err)
	assert.False(t, result.IsFirstShift)
	assert.Len(t, f.notifier.sent, 3)
}

func TestFinish_FinishedTestShiftCountsAsPrevious(t *testing.T) {
	// GIVEN: a staff member who finished a test shift
	f := newFixture(t)
	trial, err := f.svc.CreateTest(f.ctx, f.staff.ID, date(3, 8))
	require.NoError(t, err)
	_, err = f.svc.Start(f.ctx, trial.ID, f.carWash.ID)
	require.NoError(t, err)
	result, err := f.svc.Finish(f.ctx, trial.ID, nil)
	require.NoError(t, err)
	assert.True(t, result.IsFirstShift)

	// WHEN: the first regular shift is finished
	regular := f.startedShift(t, date(3, 8))
	result, err = f.svc.Finish(f.ctx, regular.ID, nil)

	// THEN: it is not congratulated as a first shift
	require.NoError(t, err)
	assert.False(t, result.IsFirstShift)
	for _, m := range f.notifier.sent[2:] {
		assert.NotContains(t, m.Text, "first shift")
	}
}

type gatedNotifier struct {
	gate chan struct{}
	recordingNotifier
}

func (n *gatedNotifier) Send(ctx context.Context, chatID int64, text string) bool {
	<-n.gate
	return n.recordingNotifier.Send(ctx, chatID, text)
}

func TestFinish_SlowNotifierDoesNotDelayResult(t *testing.T) {
	// GIVEN: Telegram deliveries that hang until released
	f := newFixture(t)
	slow := &gatedNotifier{gate: make(chan struct{}), recordingNotifier: recordingNotifier{ok: true}}
	async := notify.NewAsyncSender(slow, time.Minute)
	f.svc.Notifier = async
	sh := f.startedShift(t, date(3, 8))

	// WHEN
	done := make(chan error, 1)
	go func() {
		_, err := f.svc.Finish(f.ctx, sh.ID, nil)
		done <- err
	}()

	// THEN: Finish returns before any message is delivered
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Finish waited for the notifier")
	}
	close(slow.gate)
	async.Wait()
	assert.Len(t, slow.sent, 2)
}

func TestFinish_NotificationFailureDoesNotFail(t *testing.T) {
	f := newFixture(t)
	f.notifier.ok = false
	sh := f.startedShift(t, date(3, 8))

	result, err := f.svc.Finish(f.ctx, sh.ID, []string{"p"})

	require.NoError(t, err)
	assert.Equal(t, domain.ShiftFinished, result.Shift.Status())
}

func TestFinish_SummarizesPerCarWash(t *testing.T) {
	f := newFixture(t)
	south, err := f.store.CreateCarWash(f.ctx, domain.CarWash{Name: "South"})
	require.NoError(t, err)
	sh := f.startedShift(t, date(3, 8))

	inputs := []shift.CarInput{
		{Number: "a123bc", Class: domain.CarClassComfort, WashType: domain.WashTypePlanned, WindshieldWasherRefilledPercentage: 50,
			Services: map[string]int{"seats": 2, "vacuum": 1}},
		{Number: "b456cd", Class: domain.CarClassVan, WashType: domain.WashTypeUrgent},
		{Number: "c789de", CarWashID: south.ID, Class: domain.CarClassBusiness, WashType: domain.WashTypePlanned},
	}
	for _, in := range inputs {
		_, err := f.svc.AddTransferredCar(f.ctx, sh.ID, in)
		require.NoError(t, err)
	}

	result, err := f.svc.Finish(f.ctx, sh.ID, nil)
	require.NoError(t, err)

	require.Len(t, result.CarWashes, 2)
	north := result.CarWashes[0]
	assert.Equal(t, "North", north.CarWashName)
	assert.Equal(t, 1, north.ComfortCars)
	assert.Equal(t, 1, north.VanCars)
	assert.Equal(t, 1, north.PlannedCars)
	assert.Equal(t, 1, north.UrgentCars)
	assert.Equal(t, 2, north.DryCleaningItems)
	assert.Equal(t, 1, north.TrunkVacuumCount)
	assert.Equal(t, 1, north.RefilledCars)
	assert.Equal(t, 1, north.NotRefilledCars)
	assert.Equal(t, 2, north.TotalCars())

	assert.Equal(t, "South", result.CarWashes[1].CarWashName)
	assert.Equal(t, 1, result.CarWashes[1].BusinessCars)

	summary, err := f.svc.SummarizeShift(f.ctx, sh.ID)
	require.NoError(t, err)
	assert.Equal(t, result.CarWashes, summary)
}

// =============================================================================
// REJECT
// =============================================================================

func TestReject_IsNotIdempotent(t *testing.T) {
	f := newFixture(t)
	sh := f.confirmedShift(t, date(3, 8))

	ok, err := f.svc.Reject(f.ctx, sh.ID)
	require.NoError(t, err)
	require.True(t, ok)
	firstRejection, err := f.store.GetShift(f.ctx, sh.ID)
	require.NoError(t, err)

	f.clock.Advance(time.Minute)
	ok, err = f.svc.Reject(f.ctx, sh.ID)
	require.NoError(t, err)
	require.True(t, ok)
	secondRejection, err := f.store.GetShift(f.ctx, sh.ID)
	require.NoError(t, err)

	assert.NotEqual(t, *firstRejection.RejectedAt, *secondRejection.RejectedAt)
	assert.Equal(t, domain.ShiftRejected, secondRejection.Status())
}

func TestReject_StartedOrMissingShift(t *testing.T) {
	f := newFixture(t)
	sh := f.startedShift(t, date(3, 8))

	ok, err := f.svc.Reject(f.ctx, sh.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = f.svc.Reject(f.ctx, 999)
	require.NoError(t, err)
	assert.False(t, ok)
}

// =============================================================================
// TRANSFERRED CARS
// =============================================================================

func TestAddTransferredCar_SnapshotsPrices(t *testing.T) {
	f := newFixture(t)
	sh := f.startedShift(t, date(3, 8))

	car, err := f.svc.AddTransferredCar(f.ctx, sh.ID, shift.CarInput{
		Number:   " a123bc ",
		Class:    domain.CarClassBusiness,
		WashType: domain.WashTypeUrgent,
		Services: map[string]int{"vacuum": 1},
	})
	require.NoError(t, err)

	assert.Equal(t, "A123BC", car.Number)
	assert.Equal(t, f.carWash.ID, car.CarWashID)
	assert.True(t, decimal.NewFromInt(350).Equal(car.Prices.Transfer))
	assert.True(t, decimal.NewFromInt(1500).Equal(car.Prices.BusinessWash))
	require.Len(t, car.AdditionalServices, 1)
	assert.True(t, decimal.NewFromInt(150).Equal(car.AdditionalServices[0].Price))

	cars, err := f.svc.Cars(f.ctx, sh.ID)
	require.NoError(t, err)
	assert.Len(t, cars, 1)
}

func TestAddTransferredCar_Errors(t *testing.T) {
	f := newFixture(t)
	confirmed := f.confirmedShift(t, date(3, 9))
	started := f.startedShift(t, date(3, 8))

	cases := []struct {
		name    string
		shiftID domain.ShiftID
		in      shift.CarInput
		want    error
	}{
		{"not started", confirmed.ID, shift.CarInput{Number: "x1", Class: domain.CarClassVan, WashType: domain.WashTypePlanned}, domain.ErrShiftNotStarted},
		{"empty number", started.ID, shift.CarInput{Class: domain.CarClassVan, WashType: domain.WashTypePlanned}, domain.ErrInvalidInput},
		{"unknown class", started.ID, shift.CarInput{Number: "x1", Class: "limo", WashType: domain.WashTypePlanned}, pricing.ErrUnknownCarClass},
		{"unknown service", started.ID, shift.CarInput{Number: "x1", Class: domain.CarClassVan, WashType: domain.WashTypePlanned, Services: map[string]int{"wax": 1}}, domain.ErrServiceNotFound},
		{"unknown shift", 999, shift.CarInput{Number: "x1"}, domain.ErrShiftNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.AddTransferredCar(f.ctx, tc.shiftID, tc.in)
			assert.True(t, errors.Is(err, tc.want), "got %v", err)
		})
	}
}

func TestAddTransferredCar_FinishedShift(t *testing.T) {
	f := newFixture(t)
	sh := f.startedShift(t, date(3, 8))
	_, err := f.svc.Finish(f.ctx, sh.ID, nil)
	require.NoError(t, err)

	_, err = f.svc.AddTransferredCar(f.ctx, sh.ID, shift.CarInput{Number: "x1", Class: domain.CarClassVan, WashType: domain.WashTypePlanned})
	assert.ErrorIs(t, err, domain.ErrShiftFinished)
}

// =============================================================================
// CURRENT SHIFT
// =============================================================================

func TestCurrent(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Current(f.ctx, f.staff.ID)
	assert.ErrorIs(t, err, domain.ErrShiftNotFound)

	planned := f.confirmedShift(t, date(3, 8))
	current, err := f.svc.Current(f.ctx, f.staff.ID)
	require.NoError(t, err)
	assert.Equal(t, planned.ID, current.ID)

	// Early next morning the shift date is still 03-08.
	f.clock.At = time.Date(2025, time.March, 9, 6, 0, 0, 0, msk)
	assert.Equal(t, date(3, 8), f.svc.CurrentShiftDate())
}
