package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/carwash-backoffice/domain"
)

type fakeTelegram struct {
	sent []tgbotapi.MessageConfig
	err  error
}

func (f *fakeTelegram) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if f.err != nil {
		return tgbotapi.Message{}, f.err
	}
	f.sent = append(f.sent, c.(tgbotapi.MessageConfig))
	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

func testSender(tg telegramClient) *TelegramSender {
	logger := zerolog.Nop()
	return newTelegramSender(tg, Config{Rate: 1000, Burst: 10, Timeout: time.Second}, &logger)
}

func TestTelegramSender_Send(t *testing.T) {
	tg := &fakeTelegram{}
	s := testSender(tg)

	ok := s.Send(context.Background(), 42, "hello")

	assert.True(t, ok)
	require.Len(t, tg.sent, 1)
	assert.Equal(t, int64(42), tg.sent[0].ChatID)
	assert.Equal(t, "hello", tg.sent[0].Text)
	assert.Equal(t, tgbotapi.ModeHTML, tg.sent[0].ParseMode)
}

func TestTelegramSender_SwallowsErrors(t *testing.T) {
	s := testSender(&fakeTelegram{err: errors.New("Forbidden: bot was blocked by the user")})
	assert.False(t, s.Send(context.Background(), 42, "hello"))
}

func TestTelegramSender_SkipsMissingChat(t *testing.T) {
	tg := &fakeTelegram{}
	s := testSender(tg)
	assert.False(t, s.Send(context.Background(), 0, "hello"))
	assert.Empty(t, tg.sent)
}

func TestTelegramSender_CancelledContext(t *testing.T) {
	tg := &fakeTelegram{}
	logger := zerolog.Nop()
	s := newTelegramSender(tg, Config{Rate: 0.001, Burst: 1, Timeout: time.Second}, &logger)

	// Burst is spent by the first message; the second cannot get a token.
	assert.True(t, s.Send(context.Background(), 1, "first"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, s.Send(ctx, 1, "second"))
	assert.Len(t, tg.sent, 1)
}

func TestNewTelegramSender_EmptyTokenIsNop(t *testing.T) {
	logger := zerolog.Nop()
	n, err := NewTelegramSender(Config{}, &logger)
	require.NoError(t, err)
	assert.IsType(t, NopSender{}, n)
	assert.False(t, n.Send(context.Background(), 1, "x"))
}

func TestShiftFinishedMessage(t *testing.T) {
	staff := domain.Staff{FullName: "Ivan <Petrov>"}
	date := domain.NewDate(2025, time.March, 8)

	empty := ShiftFinishedMessage(staff, date, nil)
	assert.Contains(t, empty, "No cars transferred.")
	assert.Contains(t, empty, "Ivan &lt;Petrov&gt;")

	text := ShiftFinishedMessage(staff, date, []domain.CarWashSummary{
		{CarWashName: "North", ComfortCars: 2, VanCars: 1, UrgentCars: 1, PlannedCars: 2, RefilledCars: 3},
	})
	assert.Contains(t, text, "Shift 2025-03-08 finished")
	assert.Contains(t, text, "Comfort: 2, business: 0, van: 1")
	assert.Contains(t, text, "Washer refilled: 3, not refilled: 0")
}

func TestPenaltyMessage(t *testing.T) {
	msg := PenaltyMessage(domain.Penalty{
		Reason:      domain.PenaltyReasonNotShowingUp,
		Amount:      decimal.NewFromInt(1000),
		Consequence: domain.ConsequenceDismissal,
	})
	assert.Contains(t, msg, "not_showing_up, amount 1000")
	assert.Contains(t, msg, "dismissal")
}
