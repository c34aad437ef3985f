package notify

import (
	"fmt"
	"html"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/warp/carwash-backoffice/domain"
)

// FirstShiftMessage congratulates a staff member on their first finished
// shift.
func FirstShiftMessage(staff domain.Staff) string {
	return fmt.Sprintf("<b>%s</b>, congratulations on finishing your first shift!",
		html.EscapeString(staff.FullName))
}

// ShiftFinishedMessage renders the end-of-shift report.
func ShiftFinishedMessage(staff domain.Staff, date domain.Date, lines []domain.CarWashSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>Shift %s finished</b>\nStaff: %s\n", date, html.EscapeString(staff.FullName))
	if len(lines) == 0 {
		b.WriteString("No cars transferred.")
		return b.String()
	}
	for _, l := range lines {
		fmt.Fprintf(&b, "\n<b>%s</b>\n", html.EscapeString(l.CarWashName))
		fmt.Fprintf(&b, "Comfort: %d, business: %d, van: %d\n", l.ComfortCars, l.BusinessCars, l.VanCars)
		fmt.Fprintf(&b, "Planned: %d, urgent: %d\n", l.PlannedCars, l.UrgentCars)
		fmt.Fprintf(&b, "Dry cleaning items: %d\n", l.DryCleaningItems)
		fmt.Fprintf(&b, "Trunk vacuum: %d\n", l.TrunkVacuumCount)
		fmt.Fprintf(&b, "Washer refilled: %d, not refilled: %d\n", l.RefilledCars, l.NotRefilledCars)
	}
	return b.String()
}

// PenaltyMessage tells a staff member about a new penalty.
func PenaltyMessage(p domain.Penalty) string {
	text := fmt.Sprintf("You received a penalty: %s, amount %s", p.Reason, p.Amount.StringFixed(0))
	switch p.Consequence {
	case domain.ConsequenceWarn:
		text += "\nThis is a warning."
	case domain.ConsequenceDismissal:
		text += "\nThis penalty leads to dismissal."
	}
	return text
}

// SurchargeMessage tells a staff member about a new surcharge.
func SurchargeMessage(reason string, amount decimal.Decimal) string {
	return fmt.Sprintf("You received a surcharge: %s, amount %s", html.EscapeString(reason), amount.StringFixed(0))
}
