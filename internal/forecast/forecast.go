// Package forecast projects theoretical arbitrage and market-making returns
// from the capital held on each venue. The figures are estimates for sizing
// decisions, not predictions of realised P&L.
package forecast

import (
	"errors"
	"fmt"
	"sort"
)

const (
	daysPerMonth = 30
	daysPerYear  = 365
	// mmCapitalShare is the fraction of total capital committed per fill.
	mmCapitalShare = 0.2
)

// Params are the market assumptions behind a forecast.
type Params struct {
	ArbSpreadPercent float64 // average cross-venue spread
	TradesPerDay     float64
	SuccessRate      float64 // 0..1
	FeePercent       float64 // per leg
	MMSpreadPercent  float64
	FillsPerDay      float64
	MMSuccessRate    float64 // 0..1
}

// Estimate is the projection for one strategy.
type Estimate struct {
	Strategy         string
	Feasible         bool
	Reason           string
	EffectiveCapital float64
	NetPercent       float64
	PerTrade         float64
	TradesPerDay     float64
	Daily            float64
	Monthly          float64
	Yearly           float64
	DailyROI         float64
	MonthlyROI       float64
	YearlyROI        float64
}

// Scenario groups both strategy estimates under one set of assumptions.
type Scenario struct {
	Name         string
	Arbitrage    Estimate
	MarketMaking Estimate
}

// CombinedDaily is the sum of the feasible daily estimates.
func (s Scenario) CombinedDaily() float64 {
	var d float64
	if s.Arbitrage.Feasible {
		d += s.Arbitrage.Daily
	}
	if s.MarketMaking.Feasible {
		d += s.MarketMaking.Daily
	}
	return d
}

// Predictor holds the per-venue capital.
type Predictor struct {
	capital map[string]float64
	total   float64
}

// NewPredictor validates capital. At least one venue must hold a positive
// amount and no venue may be negative.
func NewPredictor(capital map[string]float64) (*Predictor, error) {
	cp := make(map[string]float64, len(capital))
	var total float64
	for venue, amt := range capital {
		if amt < 0 {
			return nil, fmt.Errorf("forecast: negative capital for %s", venue)
		}
		cp[venue] = amt
		total += amt
	}
	if total <= 0 {
		return nil, errors.New("forecast: no capital configured")
	}
	return &Predictor{capital: cp, total: total}, nil
}

// TotalCapital returns the sum over venues.
func (p *Predictor) TotalCapital() float64 { return p.total }

// Venues returns the venue names sorted alphabetically with their capital.
func (p *Predictor) Venues() []string {
	names := make([]string, 0, len(p.capital))
	for v := range p.capital {
		names = append(names, v)
	}
	sort.Strings(names)
	return names
}

// Capital returns the amount held on venue.
func (p *Predictor) Capital(venue string) float64 { return p.capital[venue] }

// Arbitrage estimates cross-venue arbitrage. Each trade pays the fee on both
// legs and is sized by the smallest venue balance.
func (p *Predictor) Arbitrage(spreadPercent, tradesPerDay, successRate, feePercent float64) Estimate {
	e := Estimate{Strategy: "Arbitrage", TradesPerDay: tradesPerDay}
	e.NetPercent = spreadPercent - 2*feePercent
	if e.NetPercent <= 0 {
		e.Reason = "spread does not cover exchange fees"
		return e
	}
	funded := 0
	for _, amt := range p.capital {
		if amt <= 0 {
			continue
		}
		if funded == 0 || amt < e.EffectiveCapital {
			e.EffectiveCapital = amt
		}
		funded++
	}
	if funded < 2 {
		e.Reason = "arbitrage needs capital on at least two venues"
		e.EffectiveCapital = 0
		return e
	}
	e.PerTrade = e.EffectiveCapital * e.NetPercent / 100
	return p.project(e, e.PerTrade*tradesPerDay*successRate)
}

// MarketMaking estimates market-making returns over the whole capital, each
// fill committing a fixed share of it.
func (p *Predictor) MarketMaking(spreadPercent, fillsPerDay, successRate, feePercent float64) Estimate {
	e := Estimate{Strategy: "MarketMaker", TradesPerDay: fillsPerDay, EffectiveCapital: p.total}
	e.NetPercent = spreadPercent - feePercent
	if e.NetPercent <= 0 {
		e.Reason = "spread does not cover exchange fees"
		return e
	}
	e.PerTrade = p.total * mmCapitalShare * e.NetPercent / 100
	return p.project(e, e.PerTrade*fillsPerDay*successRate)
}

func (p *Predictor) project(e Estimate, daily float64) Estimate {
	e.Feasible = true
	e.Daily = daily
	e.Monthly = daily * daysPerMonth
	e.Yearly = daily * daysPerYear
	e.DailyROI = e.Daily / p.total * 100
	e.MonthlyROI = e.Monthly / p.total * 100
	e.YearlyROI = e.Yearly / p.total * 100
	return e
}

// Scenarios returns conservative, expected and optimistic projections. The
// conservative and optimistic cases scale trade and fill frequency by 0.5
// and 1.5.
func (p *Predictor) Scenarios(params Params) []Scenario {
	scales := []struct {
		name  string
		scale float64
	}{
		{"conservative", 0.5},
		{"expected", 1},
		{"optimistic", 1.5},
	}
	out := make([]Scenario, 0, len(scales))
	for _, s := range scales {
		out = append(out, Scenario{
			Name: s.name,
			Arbitrage: p.Arbitrage(params.ArbSpreadPercent, params.TradesPerDay*s.scale,
				params.SuccessRate, params.FeePercent),
			MarketMaking: p.MarketMaking(params.MMSpreadPercent, params.FillsPerDay*s.scale,
				params.MMSuccessRate, params.FeePercent),
		})
	}
	return out
}
