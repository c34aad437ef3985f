package compensation_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/carwash-backoffice/calendar"
	"github.com/warp/carwash-backoffice/compensation"
	"github.com/warp/carwash-backoffice/domain"
	"github.com/warp/carwash-backoffice/domain/store"
)

var (
	saturday = domain.NewDate(2025, time.March, 8)
	sunday   = domain.NewDate(2025, time.March, 9)
	tuesday  = domain.NewDate(2025, time.March, 11)
)

func bonusSettings() *domain.BonusSettings {
	return &domain.BonusSettings{MinCarsCount: 2, BonusAmount: decimal.NewFromInt(100)}
}

// =============================================================================
// BONUS
// =============================================================================

func TestComputeBonusAmount_Scenario(t *testing.T) {
	// GIVEN: min 2 cars, bonus 100, a regular Saturday shift with 2 cars
	base := compensation.BonusInput{
		Shift:                domain.Shift{StaffID: 1, Date: saturday},
		TransferredCarsCount: 2,
		Settings:             bonusSettings(),
	}

	// THEN: bonus is paid
	assert.True(t, decimal.NewFromInt(100).Equal(compensation.ComputeBonusAmount(base)))

	// Sunday also counts
	sun := base
	sun.Shift.Date = sunday
	assert.True(t, decimal.NewFromInt(100).Equal(compensation.ComputeBonusAmount(sun)))

	// One car is not enough
	oneCar := base
	oneCar.TransferredCarsCount = 1
	assert.True(t, compensation.ComputeBonusAmount(oneCar).IsZero())

	// Tuesday is not a weekend
	weekday := base
	weekday.Shift.Date = tuesday
	assert.True(t, compensation.ComputeBonusAmount(weekday).IsZero())
}

func TestComputeBonusAmount_EveryPredicate(t *testing.T) {
	excluded := bonusSettings()
	excluded.ExcludedStaffIDs = []domain.StaffID{1}

	cases := []struct {
		name  string
		input compensation.BonusInput
	}{
		{"test shift", compensation.BonusInput{Shift: domain.Shift{StaffID: 1, Date: saturday, IsTest: true}, TransferredCarsCount: 5, Settings: bonusSettings()}},
		{"extra shift", compensation.BonusInput{Shift: domain.Shift{StaffID: 1, Date: saturday, IsExtra: true}, TransferredCarsCount: 5, Settings: bonusSettings()}},
		{"no settings", compensation.BonusInput{Shift: domain.Shift{StaffID: 1, Date: saturday}, TransferredCarsCount: 5}},
		{"disabled by zero amount", compensation.BonusInput{Shift: domain.Shift{StaffID: 1, Date: saturday}, TransferredCarsCount: 5,
			Settings: &domain.BonusSettings{MinCarsCount: 2}}},
		{"disabled by zero threshold", compensation.BonusInput{Shift: domain.Shift{StaffID: 1, Date: saturday}, TransferredCarsCount: 5,
			Settings: &domain.BonusSettings{BonusAmount: decimal.NewFromInt(100)}}},
		{"excluded staff", compensation.BonusInput{Shift: domain.Shift{StaffID: 1, Date: saturday}, TransferredCarsCount: 5, Settings: excluded}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.True(t, compensation.ComputeBonusAmount(tc.input).IsZero())
		})
	}
}

func TestBonusCalculator_LoadsSettingsOnceAndCountsCars(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	staff, err := st.CreateStaff(ctx, domain.Staff{FullName: "A"})
	require.NoError(t, err)
	require.NoError(t, st.SaveBonusSettings(ctx, *bonusSettings()))

	shifts, err := st.CreateShifts(ctx, []domain.Shift{{StaffID: staff.ID, Date: saturday}})
	require.NoError(t, err)
	sh := shifts[0]
	for _, n := range []string{"A1", "A2"} {
		_, err := st.CreateTransferredCar(ctx, domain.TransferredCar{ShiftID: sh.ID, Number: n, Class: domain.CarClassComfort})
		require.NoError(t, err)
	}

	calc, err := compensation.NewBonusCalculator(ctx, st, st)
	require.NoError(t, err)

	// Settings changed after construction are not seen by this calculator.
	require.NoError(t, st.SaveBonusSettings(ctx, domain.BonusSettings{}))

	amount, err := calc.Compute(ctx, sh)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(100).Equal(amount))
	assert.Equal(t, 2, calc.Settings().MinCarsCount)
}

func TestBonusCalculator_DefaultSettingsAreDisabled(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()

	calc, err := compensation.NewBonusCalculator(ctx, st, st)
	require.NoError(t, err)

	amount, err := calc.Compute(ctx, domain.Shift{ID: 1, Date: saturday})
	require.NoError(t, err)
	assert.True(t, amount.IsZero())
}

// =============================================================================
// PENALTY RULES
// =============================================================================

func TestComputePenalty_NotShowingUpTable(t *testing.T) {
	cases := []struct {
		prior       int
		amount      int64
		consequence domain.PenaltyConsequence
	}{
		{0, 500, domain.ConsequenceNone},
		{1, 1000, domain.ConsequenceNone},
		{2, 1000, domain.ConsequenceDismissal},
		{3, 0, domain.ConsequenceDismissal},
		{5, 0, domain.ConsequenceDismissal},
		{1000, 0, domain.ConsequenceDismissal},
	}
	for _, tc := range cases {
		amount, consequence, err := compensation.ComputePenaltyAmountAndConsequence(1, domain.PenaltyReasonNotShowingUp, tc.prior)
		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(tc.amount).Equal(amount), "prior %d: amount %s", tc.prior, amount)
		assert.Equal(t, tc.consequence, consequence, "prior %d", tc.prior)
	}
}

func TestComputePenalty_EarlyLeaveIgnoresHistory(t *testing.T) {
	a0, c0, err := compensation.ComputePenaltyAmountAndConsequence(1, domain.PenaltyReasonEarlyLeave, 0)
	require.NoError(t, err)
	a100, c100, err := compensation.ComputePenaltyAmountAndConsequence(1, domain.PenaltyReasonEarlyLeave, 100)
	require.NoError(t, err)

	assert.True(t, decimal.NewFromInt(1000).Equal(a0))
	assert.True(t, a0.Equal(a100))
	assert.Equal(t, domain.ConsequenceNone, c0)
	assert.Equal(t, c0, c100)
}

func TestComputePenalty_ReasonWithoutTable(t *testing.T) {
	_, _, err := compensation.ComputePenaltyAmountAndConsequence(7, domain.PenaltyReasonOther, 3)

	var invalid *domain.InvalidPenaltyConsequenceError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, domain.StaffID(7), invalid.StaffID)
	assert.Equal(t, domain.PenaltyReasonOther, invalid.Reason)
	assert.Equal(t, 3, invalid.Count)
	assert.Equal(t, domain.KindConfiguration, domain.KindOf(err))
}

// =============================================================================
// PENALTY SERVICE
// =============================================================================

type countingNotifier struct{ chats []int64 }

func (n *countingNotifier) Send(_ context.Context, chatID int64, _ string) bool {
	n.chats = append(n.chats, chatID)
	return false
}

func newPenaltyService(t *testing.T) (*compensation.PenaltyService, *store.Memory, domain.Staff, *countingNotifier) {
	t.Helper()
	st := store.NewMemory()
	staff, err := st.CreateStaff(context.Background(), domain.Staff{FullName: "B", TelegramChatID: 55})
	require.NoError(t, err)
	n := &countingNotifier{}
	clock := &calendar.FixedClock{At: time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)}
	return compensation.NewPenaltyService(st, clock, n, nil), st, staff, n
}

func TestPenaltyService_EscalatesWithHistory(t *testing.T) {
	svc, _, staff, n := newPenaltyService(t)
	ctx := context.Background()

	var got []domain.Penalty
	for i := 0; i < 4; i++ {
		p, err := svc.CreatePenalty(ctx, compensation.PenaltyInput{StaffID: staff.ID, Reason: domain.PenaltyReasonNotShowingUp})
		require.NoError(t, err)
		got = append(got, p)
	}

	assert.True(t, decimal.NewFromInt(500).Equal(got[0].Amount))
	assert.True(t, decimal.NewFromInt(1000).Equal(got[1].Amount))
	assert.Equal(t, domain.ConsequenceDismissal, got[2].Consequence)
	assert.True(t, got[3].Amount.IsZero())
	assert.Equal(t, []int64{55, 55, 55, 55}, n.chats)
}

func TestPenaltyService_ExplicitValuesWin(t *testing.T) {
	svc, _, staff, _ := newPenaltyService(t)
	ctx := context.Background()

	amount := decimal.NewFromInt(250)
	warn := domain.ConsequenceWarn
	p, err := svc.CreatePenalty(ctx, compensation.PenaltyInput{
		StaffID:     staff.ID,
		Reason:      domain.PenaltyReasonOther,
		Amount:      &amount,
		Consequence: &warn,
	})
	require.NoError(t, err)
	assert.True(t, amount.Equal(p.Amount))
	assert.Equal(t, domain.ConsequenceWarn, p.Consequence)

	// Only the amount given: consequence still comes from the table.
	p, err = svc.CreatePenalty(ctx, compensation.PenaltyInput{StaffID: staff.ID, Reason: domain.PenaltyReasonEarlyLeave, Amount: &amount})
	require.NoError(t, err)
	assert.True(t, amount.Equal(p.Amount))
	assert.Equal(t, domain.ConsequenceNone, p.Consequence)
}

func TestPenaltyService_ReasonWithoutTableTakesExplicitAmount(t *testing.T) {
	// GIVEN: reason "other" has no rule table
	svc, _, staff, _ := newPenaltyService(t)
	amount := decimal.NewFromInt(300)

	// WHEN: only the amount is given
	p, err := svc.CreatePenalty(context.Background(), compensation.PenaltyInput{
		StaffID: staff.ID,
		Reason:  domain.PenaltyReasonOther,
		Amount:  &amount,
	})

	// THEN: the amount is used and there is no consequence
	require.NoError(t, err)
	assert.True(t, amount.Equal(p.Amount))
	assert.Equal(t, domain.ConsequenceNone, p.Consequence)
}

func TestPenaltyService_Errors(t *testing.T) {
	svc, st, staff, _ := newPenaltyService(t)
	ctx := context.Background()

	_, err := svc.CreatePenalty(ctx, compensation.PenaltyInput{StaffID: staff.ID, Reason: domain.PenaltyReasonOther})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.NotErrorIs(t, err, domain.ErrInvalidPenaltyConsequence)

	_, err = svc.CreatePenalty(ctx, compensation.PenaltyInput{StaffID: 999, Reason: domain.PenaltyReasonEarlyLeave})
	assert.ErrorIs(t, err, domain.ErrStaffNotFound)

	_, err = svc.CreatePenalty(ctx, compensation.PenaltyInput{StaffID: staff.ID, Reason: "late"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	count, err := st.CountPenalties(ctx, domain.AdjustmentFilter{})
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestPenaltyService_SurchargesAndCarWashAdjustments(t *testing.T) {
	svc, st, staff, n := newPenaltyService(t)
	ctx := context.Background()
	cw, err := st.CreateCarWash(ctx, domain.CarWash{Name: "North"})
	require.NoError(t, err)

	s, err := svc.CreateSurcharge(ctx, staff.ID, "night bonus", decimal.NewFromInt(300))
	require.NoError(t, err)
	assert.Equal(t, staff.ID, s.StaffID)
	assert.Equal(t, []int64{55}, n.chats)

	_, err = svc.CreateSurcharge(ctx, staff.ID, "", decimal.NewFromInt(300))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.CreateCarWashPenalty(ctx, cw.ID, "dirty cars", decimal.NewFromInt(700))
	require.NoError(t, err)
	_, err = svc.CreateCarWashSurcharge(ctx, cw.ID, "extra work", decimal.NewFromInt(200))
	require.NoError(t, err)

	_, err = svc.CreateCarWashPenalty(ctx, 999, "dirty cars", decimal.NewFromInt(700))
	assert.ErrorIs(t, err, domain.ErrCarWashNotFound)
	_, err = svc.CreateCarWashSurcharge(ctx, cw.ID, "free", decimal.Zero)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	penalties, err := st.FindCarWashPenalties(ctx, domain.AdjustmentFilter{CarWashID: &cw.ID})
	require.NoError(t, err)
	assert.Len(t, penalties, 1)
}
