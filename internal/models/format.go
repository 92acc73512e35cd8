package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Tone is the colour family the UI uses for a status badge.
type Tone string

const (
	ToneSuccess Tone = "success"
	TonePending Tone = "pending"
	ToneFailed  Tone = "failed"
	ToneNeutral Tone = "neutral"
)

var isoLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// FormatCurrency renders an amount as Indian rupees with lakh/crore digit grouping, e.g. ₹1,23,456.50.
func FormatCurrency(amount decimal.Decimal) string {
	sign := ""
	if amount.IsNegative() {
		sign = "-"
	}
	return sign + "₹" + FormatAmount(amount.Abs())
}

// FormatAmount groups digits the Indian way without a currency symbol, e.g. 1,23,456.50.
func FormatAmount(amount decimal.Decimal) string {
	fixed := amount.Abs().StringFixed(2)
	intPart, frac, _ := strings.Cut(fixed, ".")

	grouped := intPart
	if len(intPart) > 3 {
		head, tail := intPart[:len(intPart)-3], intPart[len(intPart)-3:]
		var parts []string
		for len(head) > 2 {
			parts = append([]string{head[len(head)-2:]}, parts...)
			head = head[:len(head)-2]
		}
		if head != "" {
			parts = append([]string{head}, parts...)
		}
		grouped = strings.Join(append(parts, tail), ",")
	}

	sign := ""
	if amount.IsNegative() {
		sign = "-"
	}
	return sign + grouped + "." + frac
}

// FormatDate renders an ISO timestamp as "Jan 02, 2006 15:04". Unparseable input is returned unchanged.
func FormatDate(raw string) string {
	return formatWith(raw, "Jan 02, 2006 15:04")
}

// FormatDateShort renders an ISO timestamp as "Jan 02, 2006".
func FormatDateShort(raw string) string {
	return formatWith(raw, "Jan 02, 2006")
}

func formatWith(raw, layout string) string {
	trimmed := strings.TrimSpace(raw)
	for _, l := range isoLayouts {
		if ts, err := time.Parse(l, trimmed); err == nil {
			return ts.Format(layout)
		}
	}
	return raw
}

// StatusTone maps a status to its badge tone.
func StatusTone(status string) Tone {
	s, ok := ParseTransactionStatus(status)
	if !ok {
		return ToneNeutral
	}
	switch s {
	case StatusSuccess:
		return ToneSuccess
	case StatusPending:
		return TonePending
	default:
		return ToneFailed
	}
}
