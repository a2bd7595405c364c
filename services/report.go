package services

import (
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"vehicle-price-tracker/models"
	"vehicle-price-tracker/utils"
)

// ReportService turns a vehicle's retained history into a terminal report.
type ReportService struct {
	logger *utils.Logger
	symbol string
}

// NewReportService creates a ReportService that prints prices with currencySymbol.
func NewReportService(logger *utils.Logger, currencySymbol string) *ReportService {
	return &ReportService{logger: logger, symbol: currencySymbol}
}

// Generate builds a newest-first report. history is expected oldest first,
// as the store returns it.
func (s *ReportService) Generate(v *models.Vehicle, history []models.PriceObservation) *models.HistoryReport {
	report := &models.HistoryReport{Vehicle: v}
	if v == nil {
		return report
	}

	report.Rows = make([]models.HistoryRow, 0, len(history))
	for i := len(history) - 1; i >= 0; i-- {
		row := models.HistoryRow{Observation: history[i]}
		if i > 0 {
			row.Change = history[i].Price.Sub(history[i-1].Price)
			if row.Change.IsNegative() {
				report.Drops++
			}
		}
		report.Rows = append(report.Rows, row)
	}

	report.TotalChange = v.CurrentPrice.Sub(v.InitialPrice)
	if !v.InitialPrice.IsZero() {
		report.ChangePercent = report.TotalChange.Div(v.InitialPrice).Mul(decimal.NewFromInt(100)).Round(2)
	}
	s.logger.Debug("[report] Vehicle %d: %d rows, %d drops, total change %s",
		v.ID, len(report.Rows), report.Drops, report.TotalChange.String())
	return report
}

// Print writes the check outcome and the history table to w.
func (s *ReportService) Print(w io.Writer, res *models.Reconciliation, r *models.HistoryReport) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n", sep)
	fmt.Fprintf(w, "\033[1;35m  🚗 VEHICLE PRICE CHECK\033[0m\n")
	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)

	if r.Vehicle == nil {
		fmt.Fprintf(w, "  No vehicle data available\n\n")
		return
	}

	fmt.Fprintf(w, "  %s\n", truncate(r.Vehicle.URL, 52))
	fmt.Fprintf(w, "  %s\n", thin)
	if res != nil {
		fmt.Fprintf(w, "  Observed price : \033[1m%s\033[0m\n", s.money(res.CurrentPrice))
		if res.PriceDecreased && res.PreviousPrice != nil {
			fmt.Fprintf(w, "  \033[1;32mPrice decreased from %s to %s!\033[0m\n",
				s.money(*res.PreviousPrice), s.money(res.CurrentPrice))
		}
	}
	fmt.Fprintf(w, "  Tracked price  : \033[1m%s\033[0m\n", s.money(r.Vehicle.CurrentPrice))
	fmt.Fprintf(w, "  Initial price  : %s\n", s.money(r.Vehicle.InitialPrice))
	fmt.Fprintf(w, "  Total change   : %s (%s%%)\n", s.signed(r.TotalChange), r.ChangePercent.StringFixed(2))
	fmt.Fprintf(w, "  Last checked   : %s\n", r.Vehicle.LastChecked.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintln(w)

	fmt.Fprintf(w, "\033[1;33m  Price History (%d drops)\033[0m\n", r.Drops)
	fmt.Fprintf(w, "  %s\n", thin)
	if len(r.Rows) == 0 {
		fmt.Fprintf(w, "  No price history available.\n")
	}
	for _, row := range r.Rows {
		change := "-"
		if !row.Change.IsZero() {
			change = s.signed(row.Change)
		}
		fmt.Fprintf(w, "  %-20s %14s %14s\n",
			row.Observation.ObservedAt.Local().Format("2006-01-02 15:04"),
			s.money(row.Observation.Price), change)
	}

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n\n", sep)
}

func (s *ReportService) money(d decimal.Decimal) string {
	return s.symbol + formatThousands(d)
}

func (s *ReportService) signed(d decimal.Decimal) string {
	if d.IsNegative() {
		return "-" + s.money(d.Abs())
	}
	return "+" + s.money(d)
}

// formatThousands renders 24995 as "24,995" and 23500.5 as "23,500.50".
func formatThousands(d decimal.Decimal) string {
	str := d.Abs().StringFixed(0)
	if !d.Equal(d.Truncate(0)) {
		str = d.Abs().StringFixed(2)
	}
	intPart, frac := str, ""
	if i := strings.IndexByte(str, '.'); i >= 0 {
		intPart, frac = str[:i], str[i:]
	}

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	out := b.String() + frac
	if d.IsNegative() {
		out = "-" + out
	}
	return out
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
