package forecast

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"
)

// Render writes a plain-text forecast table to w.
func Render(w io.Writer, p *Predictor, scenarios []Scenario, at time.Time) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, "PROFIT FORECAST")
	fmt.Fprintln(tw, strings.Repeat("=", 60))
	fmt.Fprintln(tw, "Capital\t")
	for _, v := range p.Venues() {
		fmt.Fprintf(tw, "  %s\t%.2f\n", v, p.Capital(v))
	}
	fmt.Fprintf(tw, "  total\t%.2f\n", p.TotalCapital())

	for _, s := range scenarios {
		fmt.Fprintln(tw)
		fmt.Fprintf(tw, "Scenario: %s\n", s.Name)
		fmt.Fprintln(tw, strings.Repeat("-", 60))
		fmt.Fprintln(tw, "strategy\tcapital\tnet %\tper trade\ttrades/day\tdaily\tmonthly\tyearly\tyearly ROI %")
		for _, e := range []Estimate{s.Arbitrage, s.MarketMaking} {
			if !e.Feasible {
				fmt.Fprintf(tw, "%s\tnot feasible: %s\n", e.Strategy, e.Reason)
				continue
			}
			fmt.Fprintf(tw, "%s\t%.2f\t%.2f\t%.4f\t%.1f\t%.2f\t%.2f\t%.2f\t%.1f\n",
				e.Strategy, e.EffectiveCapital, e.NetPercent, e.PerTrade, e.TradesPerDay,
				e.Daily, e.Monthly, e.Yearly, e.YearlyROI)
		}
		daily := s.CombinedDaily()
		fmt.Fprintf(tw, "combined\t\t\t\t\t%.2f\t%.2f\t%.2f\t%.1f\n",
			daily, daily*daysPerMonth, daily*daysPerYear, daily*daysPerYear/p.TotalCapital()*100)
	}

	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "Estimates are theoretical. Fills, competition, latency and fee tiers all reduce them.")
	fmt.Fprintf(tw, "Generated %s\n", at.Format(time.RFC3339))
	return tw.Flush()
}
