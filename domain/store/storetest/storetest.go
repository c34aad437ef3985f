// Package storetest holds the behaviour every domain.TxStore must share.
// Implementations call Run from their own tests.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/carwash-backoffice/domain"
)

// Factory returns an empty store. Cleanup is the factory's job.
type Factory func(t *testing.T) domain.TxStore

// Run executes the contract suite against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, st domain.TxStore)
	}{
		{"StaffRoundTrip", testStaffRoundTrip},
		{"CarWashServicesRoundTrip", testCarWashServicesRoundTrip},
		{"ShiftUniquePerDay", testShiftUniquePerDay},
		{"ShiftFilters", testShiftFilters},
		{"UpdateShifts", testUpdateShifts},
		{"DeleteShiftsCascades", testDeleteShiftsCascades},
		{"FinishPhotos", testFinishPhotos},
		{"CarFiltersJoinShift", testCarFiltersJoinShift},
		{"AdjustmentsByUTCDay", testAdjustmentsByUTCDay},
		{"BonusSettingsDefaultRow", testBonusSettingsDefaultRow},
		{"WithTxRollsBack", testWithTxRollsBack},
		{"WithTxCommits", testWithTxCommits},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, newStore(t))
		})
	}
}

func dec(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

func seed(t *testing.T, st domain.Store) (domain.Staff, domain.CarWash) {
	t.Helper()
	ctx := context.Background()
	staff, err := st.CreateStaff(ctx, domain.Staff{FullName: "Ivan Petrov", TelegramChatID: 42})
	require.NoError(t, err)
	cw, err := st.CreateCarWash(ctx, domain.CarWash{
		Name:                           "North",
		ComfortWashPrice:               dec(1000),
		BusinessWashPrice:              dec(1500),
		VanWashPrice:                   dec(2000),
		WindshieldWasherPricePerBottle: dec(300),
	})
	require.NoError(t, err)
	return staff, cw
}

func shiftOn(t *testing.T, st domain.Store, staffID domain.StaffID, d domain.Date, test bool) domain.Shift {
	t.Helper()
	created, err := st.CreateShifts(context.Background(), []domain.Shift{{StaffID: staffID, Date: d, IsTest: test}})
	require.NoError(t, err)
	require.Len(t, created, 1)
	return created[0]
}

// =============================================================================
// STAFF / CAR WASHES
// =============================================================================

func testStaffRoundTrip(t *testing.T, st domain.TxStore) {
	ctx := context.Background()
	staff, _ := seed(t, st)
	require.NotZero(t, staff.ID)

	got, err := st.GetStaff(ctx, staff.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ivan Petrov", got.FullName)
	assert.Equal(t, int64(42), got.TelegramChatID)
	assert.Nil(t, got.BannedAt)

	_, err = st.GetStaff(ctx, staff.ID+100)
	assert.ErrorIs(t, err, domain.ErrStaffNotFound)

	bannedAt := time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, st.BanStaff(ctx, staff.ID, bannedAt))
	got, err = st.GetStaff(ctx, staff.ID)
	require.NoError(t, err)
	require.NotNil(t, got.BannedAt)
	assert.True(t, bannedAt.Equal(*got.BannedAt))
	assert.ErrorIs(t, st.BanStaff(ctx, staff.ID+100, bannedAt), domain.ErrStaffNotFound)

	ids, err := st.ExistingStaffIDs(ctx, []domain.StaffID{staff.ID + 100, staff.ID, staff.ID})
	require.NoError(t, err)
	assert.Equal(t, []domain.StaffID{staff.ID}, ids)

	all, err := st.ListStaff(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func testCarWashServicesRoundTrip(t *testing.T, st domain.TxStore) {
	ctx := context.Background()
	cw, err := st.CreateCarWash(ctx, domain.CarWash{
		Name:             "South",
		ComfortWashPrice: decimal.RequireFromString("999.50"),
		Services: []domain.CarWashService{
			{ID: "vac", Name: "Trunk vacuum", Kind: domain.ServiceKindTrunkVacuum, Price: dec(200)},
			{ID: "dry", Name: "Dry cleaning", Kind: domain.ServiceKindDryCleaning, Price: dec(700)},
		},
	})
	require.NoError(t, err)

	got, err := st.GetCarWash(ctx, cw.ID)
	require.NoError(t, err)
	assert.Equal(t, "South", got.Name)
	assert.True(t, decimal.RequireFromString("999.5").Equal(got.ComfortWashPrice))
	require.Len(t, got.Services, 2)
	svc, ok := got.Service("dry")
	require.True(t, ok)
	assert.Equal(t, domain.ServiceKindDryCleaning, svc.Kind)
	assert.True(t, dec(700).Equal(svc.Price))

	_, err = st.GetCarWash(ctx, cw.ID+100)
	assert.ErrorIs(t, err, domain.ErrCarWashNotFound)

	all, err := st.ListCarWashes(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

// =============================================================================
// SHIFTS
// =============================================================================

func testShiftUniquePerDay(t *testing.T, st domain.TxStore) {
	// GIVEN: a regular shift on 03-08
	ctx := context.Background()
	staff, _ := seed(t, st)
	d := domain.NewDate(2025, time.March, 8)
	shiftOn(t, st, staff.ID, d, false)

	// WHEN: another regular shift is inserted for the same day
	_, err := st.CreateShifts(ctx, []domain.Shift{
		{StaffID: staff.ID, Date: d.AddDays(1)},
		{StaffID: staff.ID, Date: d},
	})

	// THEN: the batch fails as a whole and names the date
	var exists *domain.ShiftAlreadyExistsError
	require.True(t, errors.As(err, &exists), "got %v", err)
	assert.Equal(t, []domain.Date{d}, exists.Dates)
	count, err := st.CountShifts(ctx, domain.ShiftFilter{StaffID: &staff.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// AND: test shifts may share the day
	shiftOn(t, st, staff.ID, d, true)
	shiftOn(t, st, staff.ID, d, true)
}

func testShiftFilters(t *testing.T, st domain.TxStore) {
	ctx := context.Background()
	staff, cw := seed(t, st)
	mar8 := shiftOn(t, st, staff.ID, domain.NewDate(2025, time.March, 8), false)
	mar3 := shiftOn(t, st, staff.ID, domain.NewDate(2025, time.March, 3), false)
	test := shiftOn(t, st, staff.ID, domain.NewDate(2025, time.March, 8), true)

	started := time.Date(2025, time.March, 8, 19, 0, 0, 0, time.UTC)
	_, err := st.UpdateShifts(ctx, domain.ShiftFilter{ID: &mar8.ID}, domain.ShiftUpdate{StartedAt: &started, CarWashID: &cw.ID})
	require.NoError(t, err)

	all, err := st.FindShifts(ctx, domain.ShiftFilter{StaffID: &staff.ID})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, mar3.ID, all[0].ID, "ordered by date")

	regular, err := st.FindShifts(ctx, domain.ShiftFilter{StaffID: &staff.ID, IsTest: domain.Ptr(false)})
	require.NoError(t, err)
	assert.Len(t, regular, 2)

	active, err := st.FindShifts(ctx, domain.ShiftFilter{Started: domain.Ptr(true), Finished: domain.Ptr(false)})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, mar8.ID, active[0].ID)
	require.NotNil(t, active[0].CarWashID)
	assert.Equal(t, cw.ID, *active[0].CarWashID)
	assert.Equal(t, domain.ShiftStarted, active[0].Status())

	byDates, err := st.FindShifts(ctx, domain.ShiftFilter{Dates: []domain.Date{domain.NewDate(2025, time.March, 3)}})
	require.NoError(t, err)
	require.Len(t, byDates, 1)
	assert.Equal(t, mar3.ID, byDates[0].ID)

	none, err := st.FindShifts(ctx, domain.ShiftFilter{Dates: []domain.Date{}})
	require.NoError(t, err)
	assert.Empty(t, none)

	ranged, err := st.CountShifts(ctx, domain.ShiftFilter{
		DateFrom:  domain.Ptr(domain.NewDate(2025, time.March, 4)),
		DateTo:    domain.Ptr(domain.NewDate(2025, time.March, 8)),
		ExcludeID: &test.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, ranged)

	exists, err := st.ShiftExists(ctx, domain.ShiftFilter{Confirmed: domain.Ptr(true)})
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = st.GetShift(ctx, mar8.ID+100)
	assert.ErrorIs(t, err, domain.ErrShiftNotFound)
}

func testUpdateShifts(t *testing.T, st domain.TxStore) {
	// GIVEN: two unconfirmed shifts
	ctx := context.Background()
	staff, _ := seed(t, st)
	a := shiftOn(t, st, staff.ID, domain.NewDate(2025, time.March, 8), false)
	shiftOn(t, st, staff.ID, domain.NewDate(2025, time.March, 9), false)

	// WHEN: confirming only the unconfirmed shift a, twice
	at := time.Date(2025, time.March, 7, 10, 0, 0, 0, time.UTC)
	f := domain.ShiftFilter{ID: &a.ID, Confirmed: domain.Ptr(false)}
	n1, err := st.UpdateShifts(ctx, f, domain.ShiftUpdate{ConfirmedAt: &at})
	require.NoError(t, err)
	n2, err := st.UpdateShifts(ctx, f, domain.ShiftUpdate{ConfirmedAt: &at})
	require.NoError(t, err)

	// THEN: the second update matches nothing
	assert.Equal(t, 1, n1)
	assert.Equal(t, 0, n2)
	got, err := st.GetShift(ctx, a.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ConfirmedAt)
	assert.True(t, at.Equal(*got.ConfirmedAt))
	assert.Equal(t, domain.ShiftConfirmed, got.Status())
}

func testDeleteShiftsCascades(t *testing.T, st domain.TxStore) {
	ctx := context.Background()
	staff, cw := seed(t, st)
	test := shiftOn(t, st, staff.ID, domain.NewDate(2025, time.March, 8), true)
	_, err := st.CreateTransferredCar(ctx, domain.TransferredCar{
		ShiftID: test.ID, CarWashID: cw.ID, Number: "A001AA", Class: domain.CarClassComfort, WashType: domain.WashTypePlanned,
	})
	require.NoError(t, err)
	require.NoError(t, st.CreateFinishPhotos(ctx, []domain.ShiftFinishPhoto{{ShiftID: test.ID, FileID: "f1"}}))

	n, err := st.DeleteShifts(ctx, domain.ShiftFilter{StaffID: &staff.ID, IsTest: domain.Ptr(true)})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	cars, err := st.CountTransferredCars(ctx, domain.CarFilter{ShiftID: &test.ID})
	require.NoError(t, err)
	assert.Zero(t, cars)
	photos, err := st.ListFinishPhotos(ctx, test.ID)
	require.NoError(t, err)
	assert.Empty(t, photos)
}

func testFinishPhotos(t *testing.T, st domain.TxStore) {
	ctx := context.Background()
	staff, _ := seed(t, st)
	sh := shiftOn(t, st, staff.ID, domain.NewDate(2025, time.March, 8), false)

	require.NoError(t, st.CreateFinishPhotos(ctx, []domain.ShiftFinishPhoto{
		{ShiftID: sh.ID, FileID: "a"},
		{ShiftID: sh.ID, FileID: "b"},
	}))
	photos, err := st.ListFinishPhotos(ctx, sh.ID)
	require.NoError(t, err)
	assert.Equal(t, []domain.ShiftFinishPhoto{{ShiftID: sh.ID, FileID: "a"}, {ShiftID: sh.ID, FileID: "b"}}, photos)

	require.NoError(t, st.DeleteFinishPhotos(ctx, sh.ID))
	photos, err = st.ListFinishPhotos(ctx, sh.ID)
	require.NoError(t, err)
	assert.Empty(t, photos)

	err = st.CreateFinishPhotos(ctx, []domain.ShiftFinishPhoto{{ShiftID: sh.ID + 100, FileID: "x"}})
	assert.ErrorIs(t, err, domain.ErrShiftNotFound)
}

// =============================================================================
// TRANSFERRED CARS
// =============================================================================

func testCarFiltersJoinShift(t *testing.T, st domain.TxStore) {
	ctx := context.Background()
	staff, cw := seed(t, st)
	regular := shiftOn(t, st, staff.ID, domain.NewDate(2025, time.March, 8), false)
	test := shiftOn(t, st, staff.ID, domain.NewDate(2025, time.March, 8), true)
	later := shiftOn(t, st, staff.ID, domain.NewDate(2025, time.March, 20), false)

	car := domain.TransferredCar{
		ShiftID:                            regular.ID,
		CarWashID:                          cw.ID,
		Number:                             "A001AA",
		Class:                              domain.CarClassBusiness,
		WashType:                           domain.WashTypeUrgent,
		WindshieldWasherRefilledPercentage: 50,
		Prices: domain.PriceSnapshot{
			Transfer:         dec(400),
			ComfortWash:      dec(1000),
			BusinessWash:     dec(1500),
			VanWash:          dec(2000),
			WindshieldWasher: dec(300),
		},
		AdditionalServices: []domain.AdditionalService{
			{ServiceID: "dry", Name: "Dry cleaning", Kind: domain.ServiceKindDryCleaning, Count: 2, Price: dec(700)},
		},
	}
	created, err := st.CreateTransferredCar(ctx, car)
	require.NoError(t, err)
	require.NotZero(t, created.ID)
	for _, sh := range []domain.Shift{test, later} {
		c := car
		c.ShiftID = sh.ID
		c.AdditionalServices = nil
		_, err := st.CreateTransferredCar(ctx, c)
		require.NoError(t, err)
	}

	got, err := st.FindTransferredCars(ctx, domain.CarFilter{ShiftID: &regular.ID})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "A001AA", got[0].Number)
	assert.Equal(t, domain.WashTypeUrgent, got[0].WashType)
	assert.Equal(t, 50, got[0].WindshieldWasherRefilledPercentage)
	assert.True(t, dec(400).Equal(got[0].Prices.Transfer))
	require.Len(t, got[0].AdditionalServices, 1)
	assert.Equal(t, 2, got[0].AdditionalServices[0].Count)

	inMarchFirstHalf, err := st.CountTransferredCars(ctx, domain.CarFilter{
		StaffID:       &staff.ID,
		ShiftDateFrom: domain.Ptr(domain.NewDate(2025, time.March, 1)),
		ShiftDateTo:   domain.Ptr(domain.NewDate(2025, time.March, 15)),
		ShiftIsTest:   domain.Ptr(false),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, inMarchFirstHalf)

	atWash, err := st.CountTransferredCars(ctx, domain.CarFilter{CarWashID: &cw.ID})
	require.NoError(t, err)
	assert.Equal(t, 3, atWash)

	_, err = st.CreateTransferredCar(ctx, domain.TransferredCar{ShiftID: later.ID + 100, CarWashID: cw.ID})
	assert.ErrorIs(t, err, domain.ErrShiftNotFound)
}

// =============================================================================
// ADJUSTMENTS
// =============================================================================

func testAdjustmentsByUTCDay(t *testing.T, st domain.TxStore) {
	// GIVEN: penalties just before and after midnight UTC on 03-15/03-16
	ctx := context.Background()
	staff, cw := seed(t, st)
	late := time.Date(2025, time.March, 15, 23, 59, 0, 0, time.UTC)
	// 01:30 on the 16th in UTC+3 is still the 15th in UTC.
	lateMSK := time.Date(2025, time.March, 16, 1, 30, 0, 0, time.FixedZone("MSK", 3*3600))
	next := time.Date(2025, time.March, 16, 0, 0, 0, 0, time.UTC)
	for _, at := range []time.Time{late, lateMSK, next} {
		_, err := st.CreatePenalty(ctx, domain.Penalty{StaffID: staff.ID, Reason: domain.PenaltyReasonEarlyLeave, Amount: dec(1000), CreatedAt: at})
		require.NoError(t, err)
	}
	_, err := st.CreatePenalty(ctx, domain.Penalty{StaffID: staff.ID, Reason: domain.PenaltyReasonNotShowingUp, Amount: dec(500),
		Consequence: domain.ConsequenceWarn, CreatedAt: late})
	require.NoError(t, err)

	// WHEN: filtering by the first half of March
	from, to := domain.NewDate(2025, time.March, 1), domain.NewDate(2025, time.March, 15)
	inPeriod, err := st.FindPenalties(ctx, domain.AdjustmentFilter{StaffID: &staff.ID, CreatedFrom: &from, CreatedTo: &to})
	require.NoError(t, err)

	// THEN: the UTC day decides
	assert.Len(t, inPeriod, 3)
	reason := string(domain.PenaltyReasonNotShowingUp)
	count, err := st.CountPenalties(ctx, domain.AdjustmentFilter{StaffID: &staff.ID, Reason: &reason})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	warned, err := st.FindPenalties(ctx, domain.AdjustmentFilter{Reason: &reason})
	require.NoError(t, err)
	require.Len(t, warned, 1)
	assert.Equal(t, domain.ConsequenceWarn, warned[0].Consequence)

	// AND: the other adjustment kinds follow the same rules
	_, err = st.CreateSurcharge(ctx, domain.Surcharge{StaffID: staff.ID, Reason: "night", Amount: dec(150), CreatedAt: late})
	require.NoError(t, err)
	_, err = st.CreateCarWashPenalty(ctx, domain.CarWashPenalty{CarWashID: cw.ID, Reason: "late", Amount: dec(300), CreatedAt: next})
	require.NoError(t, err)
	_, err = st.CreateCarWashSurcharge(ctx, domain.CarWashSurcharge{CarWashID: cw.ID, Reason: "extra", Amount: dec(100), CreatedAt: late})
	require.NoError(t, err)

	surcharges, err := st.FindSurcharges(ctx, domain.AdjustmentFilter{StaffID: &staff.ID, CreatedFrom: &from, CreatedTo: &to})
	require.NoError(t, err)
	assert.Len(t, surcharges, 1)
	cwPenalties, err := st.FindCarWashPenalties(ctx, domain.AdjustmentFilter{CarWashID: &cw.ID, CreatedFrom: &from, CreatedTo: &to})
	require.NoError(t, err)
	assert.Empty(t, cwPenalties)
	cwSurcharges, err := st.FindCarWashSurcharges(ctx, domain.AdjustmentFilter{CarWashID: &cw.ID, CreatedFrom: &from, CreatedTo: &to})
	require.NoError(t, err)
	assert.Len(t, cwSurcharges, 1)

	_, err = st.CreatePenalty(ctx, domain.Penalty{StaffID: staff.ID + 100, Reason: domain.PenaltyReasonOther, Amount: dec(1)})
	assert.ErrorIs(t, err, domain.ErrStaffNotFound)
	_, err = st.CreateCarWashPenalty(ctx, domain.CarWashPenalty{CarWashID: cw.ID + 100, Reason: "x", Amount: dec(1)})
	assert.ErrorIs(t, err, domain.ErrCarWashNotFound)
}

// =============================================================================
// SETTINGS
// =============================================================================

func testBonusSettingsDefaultRow(t *testing.T, st domain.TxStore) {
	ctx := context.Background()

	def, err := st.GetBonusSettings(ctx)
	require.NoError(t, err)
	assert.False(t, def.Enabled())
	assert.Empty(t, def.ExcludedStaffIDs)

	require.NoError(t, st.SaveBonusSettings(ctx, domain.BonusSettings{
		MinCarsCount:     3,
		BonusAmount:      dec(500),
		ExcludedStaffIDs: []domain.StaffID{7, 9},
	}))
	got, err := st.GetBonusSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, got.MinCarsCount)
	assert.True(t, dec(500).Equal(got.BonusAmount))
	assert.Equal(t, []domain.StaffID{7, 9}, got.ExcludedStaffIDs)
	assert.True(t, got.Enabled())
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func testWithTxRollsBack(t *testing.T, st domain.TxStore) {
	// GIVEN: a transaction that writes and then fails
	ctx := context.Background()
	staff, _ := seed(t, st)
	boom := errors.New("boom")

	// WHEN
	err := st.WithTx(ctx, func(tx domain.Store) error {
		if _, err := tx.CreateShifts(ctx, []domain.Shift{{StaffID: staff.ID, Date: domain.NewDate(2025, time.March, 8)}}); err != nil {
			return err
		}
		return boom
	})

	// THEN: the error surfaces and nothing was written
	assert.ErrorIs(t, err, boom)
	count, err := st.CountShifts(ctx, domain.ShiftFilter{StaffID: &staff.ID})
	require.NoError(t, err)
	assert.Zero(t, count)
}

func testWithTxCommits(t *testing.T, st domain.TxStore) {
	ctx := context.Background()
	staff, _ := seed(t, st)

	err := st.WithTx(ctx, func(tx domain.Store) error {
		created, err := tx.CreateShifts(ctx, []domain.Shift{{StaffID: staff.ID, Date: domain.NewDate(2025, time.March, 8)}})
		if err != nil {
			return err
		}
		// Reads inside the transaction see its own writes.
		got, err := tx.GetShift(ctx, created[0].ID)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		_, err = tx.UpdateShifts(ctx, domain.ShiftFilter{ID: &got.ID}, domain.ShiftUpdate{ConfirmedAt: &now})
		return err
	})
	require.NoError(t, err)

	shifts, err := st.FindShifts(ctx, domain.ShiftFilter{StaffID: &staff.ID, Confirmed: domain.Ptr(true)})
	require.NoError(t, err)
	assert.Len(t, shifts, 1)
}
