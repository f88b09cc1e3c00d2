// Package story is the editorial layer: it turns fetched market data into
// article fragments, deterministically where the copy rules are fixed and
// through the LLM router where prose needs drafting.
package story

import (
	"fmt"

	"github.com/marketprose/marketprose/pkg/models"
	"github.com/marketprose/marketprose/pkg/utils"
)

// DefaultAttribution closes every price-action sentence.
const DefaultAttribution = "Benzinga Pro data"

// ComposePriceAction renders the canonical price-action sentence for a
// ticker. The clause structure follows the session; the sign of the change
// is conveyed only through the verb, so the percentage always renders as
// an absolute value. A nil quote or one with no usable session data falls
// back to a generic sentence instead of an error.
func ComposePriceAction(ticker string, q *models.Quote, session utils.MarketSession, day, attribution string) string {
	symbol := utils.NormalizeTicker(ticker)
	if attribution == "" {
		attribution = DefaultAttribution
	}

	switch session {
	case utils.SessionPremarket:
		if q.HasExtendedHours() {
			return fmt.Sprintf("%s shares were %s at $%s during premarket trading on %s, according to %s.",
				symbol,
				inProgressMove(*q.ExtendedHoursChangePercent),
				utils.FormatPrice(*q.ExtendedHoursPrice),
				day, attribution)
		}
		return fmt.Sprintf("%s shares were trading during premarket hours on %s, according to %s.",
			symbol, day, attribution)

	case utils.SessionRegular:
		if !q.HasRegularSession() {
			return genericSentence(symbol, day, attribution)
		}
		return fmt.Sprintf("%s shares were %s at $%s during regular trading hours on %s, according to %s.",
			symbol,
			inProgressMove(*q.ChangePercent),
			utils.FormatPrice(*q.LastPrice),
			day, attribution)

	case utils.SessionAfterHours:
		if !q.HasRegularSession() {
			return genericSentence(symbol, day, attribution)
		}
		if q.HasExtendedHours() {
			return fmt.Sprintf("%s shares %s during regular trading hours, and were %s at $%s during after-hours trading on %s, according to %s.",
				symbol,
				pastMove(*q.ChangePercent, *q.LastPrice),
				inProgressMove(*q.ExtendedHoursChangePercent),
				utils.FormatPrice(*q.ExtendedHoursPrice),
				day, attribution)
		}
		return closedSentence(symbol, q, day, attribution)

	default: // closed
		if !q.HasRegularSession() {
			return genericSentence(symbol, day, attribution)
		}
		return closedSentence(symbol, q, day, attribution)
	}
}

// closedSentence is the past-tense regular-session-only sentence shared by
// the closed session and the after-hours fallback.
func closedSentence(symbol string, q *models.Quote, day, attribution string) string {
	return fmt.Sprintf("%s shares %s during regular trading hours on %s, according to %s.",
		symbol,
		pastMove(*q.ChangePercent, *q.LastPrice),
		day, attribution)
}

// genericSentence is the no-data fallback: session-agnostic and numberless.
func genericSentence(symbol, day, attribution string) string {
	return fmt.Sprintf("%s shares were trading during regular market hours on %s, according to %s.",
		symbol, day, attribution)
}

// inProgressMove renders the in-progress movement phrase: "up 1.23%",
// "down 0.50%", or exactly "unchanged" when the change is zero.
func inProgressMove(pct float64) string {
	switch {
	case pct > 0:
		return "up " + utils.FormatPct(pct) + "%"
	case pct < 0:
		return "down " + utils.FormatPct(pct) + "%"
	default:
		return "unchanged"
	}
}

// pastMove renders the past-tense movement phrase with the closing price:
// "rose 1.23% to $101.23", "fell 0.50% to $52.10", or
// "were unchanged at $52.10" for zero change.
func pastMove(pct, price float64) string {
	p := utils.FormatPrice(price)
	switch {
	case pct > 0:
		return "rose " + utils.FormatPct(pct) + "% to $" + p
	case pct < 0:
		return "fell " + utils.FormatPct(pct) + "% to $" + p
	default:
		return "were unchanged at $" + p
	}
}
