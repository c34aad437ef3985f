package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/carwash-backoffice/domain"
	"github.com/warp/carwash-backoffice/period"
)

func (s *testServer) staffByName(name string) domain.Staff {
	s.t.Helper()
	all, err := s.store.ListStaff(context.Background())
	require.NoError(s.t, err)
	for _, st := range all {
		if st.FullName == name {
			return st
		}
	}
	s.t.Fatalf("staff %q not found", name)
	return domain.Staff{}
}

func TestScenario_FirstNight(t *testing.T) {
	// GIVEN: an empty database at 22:00 on 03-08
	s := newTestServer(t)

	// WHEN
	rec := s.do(http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "first-night"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// THEN: the staff member's current shift is confirmed and can be started
	staff := s.staffByName("Alexei Smirnov")
	sh, err := s.h.Shifts.Current(context.Background(), staff.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ShiftConfirmed, sh.Status())
	assert.Equal(t, domain.NewDate(2025, 3, 8), sh.Date)

	washes, err := s.store.ListCarWashes(context.Background())
	require.NoError(t, err)
	require.Len(t, washes, 1)
	_, err = s.h.Shifts.Start(context.Background(), sh.ID, washes[0].ID)
	assert.NoError(t, err)
}

func TestScenario_BusyWeekend(t *testing.T) {
	// GIVEN: 03-08 is current, so 03-01 and 03-02 are the past weekend days
	s := newTestServer(t)

	// WHEN
	rec := s.do(http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "busy-weekend"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// THEN: both weekend shifts earn the bonus
	staff := s.staffByName("Dmitry Volkov")
	rep, err := s.h.Reports.StaffPeriodReport(context.Background(), staff.ID, period.ReportPeriod{Year: 2025, Month: 3, Number: 1})
	require.NoError(t, err)
	require.Len(t, rep.Shifts, 2)
	assert.Equal(t, 8, rep.TransferredCarCount)
	assert.True(t, decimal.NewFromInt(1000).Equal(rep.BonusesTotal), rep.BonusesTotal.String())
	// 200 + 350 + 300 + 300 per shift
	assert.True(t, decimal.NewFromInt(2300).Equal(rep.TransferRevenue), rep.TransferRevenue.String())

	settings, err := s.h.Settings.GetBonusSettings(context.Background())
	require.NoError(t, err)
	assert.True(t, settings.Enabled())
}

func TestScenario_PenaltyEscalation(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "penalty-escalation"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	staff := s.staffByName("Sergei Morozov")
	penalties, err := s.store.FindPenalties(context.Background(), domain.AdjustmentFilter{StaffID: &staff.ID})
	require.NoError(t, err)
	require.Len(t, penalties, 3)
	assert.Equal(t, domain.ConsequenceDismissal, penalties[2].Consequence)
}

func TestScenario_CurrentAndUnknown(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/api/scenarios/current", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, decode[map[string]any](t, rec)["scenario"])

	rec = s.do(http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "nope"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "first-night"}).Code)
	rec = s.do(http.MethodGet, "/api/scenarios/current", nil)
	body := decode[struct {
		Scenario ScenarioDTO `json:"scenario"`
	}](t, rec)
	assert.Equal(t, "first-night", body.Scenario.ID)
}

func TestScenario_AllScenariosLoadWithoutError(t *testing.T) {
	for _, sc := range scenarios {
		t.Run(sc.ID, func(t *testing.T) {
			s := newTestServer(t)
			rec := s.do(http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: sc.ID})
			assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		})
	}
}
