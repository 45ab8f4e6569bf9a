// Package ctxengine decides how much conversation history accompanies a new
// message and assembles the message window sent to the completion provider.
package ctxengine

import (
	"fmt"
	"strconv"
)

// LimitAll is the configuration keyword selecting the full history.
const LimitAll = "all"

// Policy selects how many stored turns are included in a window.
// The zero value is NoLimit.
type Policy struct {
	limited  bool
	count    int
	fallback bool
}

// NoLimit includes the entire stored history.
func NoLimit() Policy {
	return Policy{}
}

// FixedCount includes the last n stored turns. n is kept verbatim; a
// negative n selects no history when the window is built.
func FixedCount(n int) Policy {
	return Policy{limited: true, count: n}
}

// ParseLimit interprets a raw context_limit setting. "all" (exact match)
// selects NoLimit and any base-10 integer selects FixedCount. Every other
// input falls back to NoLimit and the returned policy reports Fallback.
func ParseLimit(raw string) Policy {
	if raw == LimitAll {
		return NoLimit()
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return Policy{fallback: true}
	}
	return FixedCount(n)
}

// Limited reports whether the policy caps history at a fixed count.
func (p Policy) Limited() bool {
	return p.limited
}

// Count returns the configured count for a FixedCount policy. It is
// meaningless for NoLimit.
func (p Policy) Count() int {
	return p.count
}

// Fallback reports whether ParseLimit could not interpret its input and
// substituted NoLimit.
func (p Policy) Fallback() bool {
	return p.fallback
}

// String returns a form suitable for logs.
func (p Policy) String() string {
	if !p.limited {
		return LimitAll
	}
	return fmt.Sprintf("last %d", p.count)
}
