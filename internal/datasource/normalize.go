package datasource

import (
	"strconv"
	"strings"
	"time"

	"github.com/marketprose/marketprose/pkg/models"
)

// Upstream quote JSON arrives with field names that vary by source and API
// version. Each logical field probes an ordered alias list and takes the
// first present, non-empty value. Raw dynamic shapes never propagate past
// this file.
var (
	priceAliases = []string{"lastTradePrice", "last", "lastPrice", "closePrice", "close"}
	prevAliases  = []string{"previousClosePrice", "previousClose", "prevClose", "previous_close"}
	pctAliases   = []string{"changePercent", "change_percent", "percentChange"}
	volAliases   = []string{"volume", "regularHoursVolume", "vol"}
	ethPxAliases = []string{"ethPrice", "extendedHoursPrice", "afterHoursPrice", "preMarketPrice"}
	ethPcAliases = []string{"ethChangePercent", "extendedHoursChangePercent", "afterHoursChangePercent", "preMarketChangePercent"}
	nameAliases  = []string{"companyStandardName", "companyName", "name", "description"}
	exchAliases  = []string{"bzExchange", "exchange", "primaryExchange"}
	timeAliases  = []string{"lastTradeTime", "closeDate", "date"}
)

// normalizeQuote shapes one raw upstream quote object into a Quote with
// fixed field names and explicit optionality.
func normalizeQuote(symbol string, raw map[string]any) *models.Quote {
	q := &models.Quote{
		Symbol:        strings.ToUpper(symbol),
		CompanyName:   probeString(raw, nameAliases...),
		ExchangeCode:  probeString(raw, exchAliases...),
		LastPrice:     probeFloat(raw, priceAliases...),
		PreviousClose: probeFloat(raw, prevAliases...),
		ChangePercent: probeFloat(raw, pctAliases...),
		Volume:        probeInt(raw, volAliases...),

		ExtendedHoursPrice:         probeFloat(raw, ethPxAliases...),
		ExtendedHoursChangePercent: probeFloat(raw, ethPcAliases...),
	}
	if ts := probeTime(raw, timeAliases...); ts != nil {
		q.AsOf = *ts
	}

	applyChangePolicy(q)
	return q
}

// applyChangePolicy enforces the two normalization rules shared by every
// quote source:
//
//  1. When both a session close and a positive previous close are present,
//     the regular-session change percent is recomputed from them. Upstream
//     "change" fields have been observed to carry extended-hours deltas
//     even during regular-session queries.
//  2. Extended-hours data counts only when both price and change percent
//     are present; a partial pair is dropped entirely.
func applyChangePolicy(q *models.Quote) {
	if q.LastPrice != nil && q.PreviousClose != nil && *q.PreviousClose > 0 {
		pct := (*q.LastPrice - *q.PreviousClose) / *q.PreviousClose * 100
		q.ChangePercent = &pct
	}
	if q.ExtendedHoursPrice == nil || q.ExtendedHoursChangePercent == nil {
		q.ExtendedHoursPrice = nil
		q.ExtendedHoursChangePercent = nil
	}
}

// probeFloat returns the first alias present in raw that parses to a float.
// Numeric strings parse; empty or unparsable values are treated as absent.
// A legitimate zero survives as a non-nil pointer.
func probeFloat(raw map[string]any, aliases ...string) *float64 {
	for _, key := range aliases {
		v, ok := raw[key]
		if !ok || v == nil {
			continue
		}
		switch val := v.(type) {
		case float64:
			f := val
			return &f
		case int:
			f := float64(val)
			return &f
		case int64:
			f := float64(val)
			return &f
		case string:
			s := strings.TrimSpace(val)
			if s == "" {
				continue
			}
			f, err := strconv.ParseFloat(s, 64)
			if err != nil {
				continue
			}
			return &f
		}
	}
	return nil
}

// probeInt is probeFloat for integer fields (volume).
func probeInt(raw map[string]any, aliases ...string) *int64 {
	if f := probeFloat(raw, aliases...); f != nil {
		n := int64(*f)
		return &n
	}
	return nil
}

// probeString returns the first non-empty string among the aliases.
func probeString(raw map[string]any, aliases ...string) string {
	for _, key := range aliases {
		if v, ok := raw[key]; ok {
			if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
	}
	return ""
}

// probeTime parses the first alias holding an epoch or a date/RFC3339 string.
func probeTime(raw map[string]any, aliases ...string) *time.Time {
	for _, key := range aliases {
		v, ok := raw[key]
		if !ok || v == nil {
			continue
		}
		switch val := v.(type) {
		case float64:
			t := time.Unix(int64(val), 0).UTC()
			return &t
		case string:
			s := strings.TrimSpace(val)
			if s == "" {
				continue
			}
			for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
				if t, err := time.Parse(layout, s); err == nil {
					return &t
				}
			}
		}
	}
	return nil
}
