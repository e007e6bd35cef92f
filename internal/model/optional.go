package model

import "strings"

// Optional fields are pointers: nil means the value was never observed, a
// pointer to "" means a source reported an empty value. The ledger merge
// treats both as blank, but they stay distinguishable in memory and JSON.

// Str returns a pointer to s.
func Str(s string) *string { return &s }

// Float returns a pointer to f.
func Float(f float64) *float64 { return &f }

// Int returns a pointer to n.
func Int(n int) *int { return &n }

// StrOrNil returns nil for whitespace-only input and a pointer to the trimmed
// value otherwise. Used when decoding flat files where an empty cell means unset.
func StrOrNil(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns the pointed-to string or "".
func Deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// IsBlank reports whether p is unset or holds only whitespace.
func IsBlank(p *string) bool {
	return p == nil || strings.TrimSpace(*p) == ""
}
