// Package metricfmt turns raw outcome metric values into display strings.
package metricfmt

import (
	"math"
	"strconv"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Unit is the measurement unit attached to an outcome metric by the backend.
type Unit string

const (
	UnitJPY     Unit = "JPY"
	UnitPercent Unit = "percent"
	UnitCount   Unit = "count"
	UnitScore   Unit = "score"
	UnitWeight  Unit = "weight"
	UnitPoints  Unit = "points"
	UnitDays    Unit = "days"
	UnitHours   Unit = "hours"
)

// legacyUnits maps metric names from datasets that predate metric_unit.
var legacyUnits = map[string]Unit{
	"revenue":         UnitJPY,
	"hiring_cost":     UnitJPY,
	"profit_margin":   UnitPercent,
	"quantity":        UnitCount,
	"time_to_hire":    UnitDays,
	"candidate_score": UnitScore,
}

var printer = message.NewPrinter(language.English)

type rule func(v float64) string

var rules = map[Unit]rule{
	UnitJPY:     currency,
	UnitPercent: percent,
	UnitCount:   oneDecimal,
	UnitScore:   oneDecimal,
	UnitWeight:  oneDecimal,
	UnitPoints:  oneDecimal,
	UnitDays:    oneDecimal,
	UnitHours:   oneDecimal,
}

// UnitFor resolves the effective unit. An explicit unit always wins; otherwise
// the metric name is looked up in the legacy table. The result is empty when
// neither is known.
func UnitFor(metricName, metricUnit string) Unit {
	if metricUnit != "" {
		return Unit(metricUnit)
	}
	return legacyUnits[metricName]
}

// Format renders value for display. metricUnit may be empty.
func Format(value float64, metricName, metricUnit string) string {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return strconv.FormatFloat(value, 'f', -1, 64)
	}
	if r, ok := rules[UnitFor(metricName, metricUnit)]; ok {
		return r(value)
	}
	return grouped(value)
}

// Symbol returns the short decoration used next to a value of unit u.
func Symbol(u Unit) string {
	switch u {
	case UnitJPY:
		return "¥"
	case UnitPercent:
		return "%"
	case UnitDays:
		return "d"
	case UnitHours:
		return "h"
	}
	return ""
}

// Label is Format followed by the unit symbol for units the formatter does not
// already decorate, as used on diagram edges: 7.3d, 12.6h.
func Label(value float64, metricName, metricUnit string) string {
	s := Format(value, metricName, metricUnit)
	u := UnitFor(metricName, metricUnit)
	if u == UnitJPY || u == UnitPercent || math.IsNaN(value) || math.IsInf(value, 0) {
		return s
	}
	return s + Symbol(u)
}

// roundHalfUp mirrors the dashboard's rounding: halves move toward +Inf,
// so -500.5 becomes -500.
func roundHalfUp(v float64) float64 {
	return math.Floor(v + 0.5)
}

// currency keeps v in float64; any finite magnitude prints.
func currency(v float64) string {
	return printer.Sprintf("¥%.0f", roundHalfUp(v))
}

func percent(v float64) string {
	return strconv.FormatFloat(v*100, 'f', 1, 64) + "%"
}

func oneDecimal(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}

func grouped(v float64) string {
	return printer.Sprintf("%.2f", roundHalfUp(v*100)/100)
}

// Decimal formats v with two fixed decimals and thousands separators,
// decorated with the unit symbol. Summary panels use this variant.
func Decimal(v float64, metricName, metricUnit string) string {
	s := grouped(v)
	switch UnitFor(metricName, metricUnit) {
	case UnitJPY:
		return "¥" + s
	case UnitPercent:
		return s + "%"
	}
	return s
}
