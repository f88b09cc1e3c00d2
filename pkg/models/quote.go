// Package models defines the core data structures used throughout marketprose.
package models

import "time"

// Quote is a normalized snapshot of a security's trading data, produced
// fresh per request from upstream JSON and never persisted.
//
// Pointer fields distinguish "unknown" from a legitimate zero value: a
// change percent of exactly 0 is a real quote state, a nil one is missing
// data. Nothing downstream may treat nil as zero.
type Quote struct {
	Symbol        string   `json:"symbol"`
	CompanyName   string   `json:"company_name,omitempty"`
	LastPrice     *float64 `json:"last_price,omitempty"`
	PreviousClose *float64 `json:"previous_close,omitempty"`
	ChangePercent *float64 `json:"change_percent,omitempty"`
	Volume        *int64   `json:"volume,omitempty"`

	ExtendedHoursPrice         *float64 `json:"extended_hours_price,omitempty"`
	ExtendedHoursChangePercent *float64 `json:"extended_hours_change_percent,omitempty"`

	ExchangeCode string    `json:"exchange_code,omitempty"`
	AsOf         time.Time `json:"as_of"`
}

// HasRegularSession reports whether the quote carries a usable
// regular-session price and change percent.
func (q *Quote) HasRegularSession() bool {
	return q != nil && q.LastPrice != nil && q.ChangePercent != nil
}

// HasExtendedHours reports whether both extended-hours fields are present.
// Partial extended-hours data is treated as entirely absent so a price is
// never rendered without its matching change percent, or vice versa.
func (q *Quote) HasExtendedHours() bool {
	return q != nil && q.ExtendedHoursPrice != nil && q.ExtendedHoursChangePercent != nil
}

// Float returns a pointer to f, for building quotes from literals.
func Float(f float64) *float64 { return &f }

// Int returns a pointer to n.
func Int(n int64) *int64 { return &n }
