package service

import (
	"fmt"
	"time"
)

// Award is the outcome of the token calculation for one completed task.
type Award struct {
	OnTime bool   // whether the submission beat the deadline
	Base   uint32 // tokens from the task value itself
	Bonus  uint32 // on-time bonus on top of the base
	Total  uint32 // what actually gets credited
	Reason string // human-readable explanation recorded in the ledger
}

// CalculateAward decides the payout for a task worth tokenValue with
// the given deadline, evaluated at now. On time (now <= deadline) the
// full value is paid plus a 20% bonus; late completions pay half the
// value and no bonus. Both fractions round up, so any positive task
// value still pays at least one token when completed late. Pure and
// deterministic: no clock access, no I/O.
func CalculateAward(tokenValue uint32, deadline, now time.Time) Award {
	if !now.After(deadline) {
		bonus := ceilFraction(tokenValue, 1, 5) // 20%
		return Award{
			OnTime: true,
			Base:   tokenValue,
			Bonus:  bonus,
			Total:  tokenValue + bonus,
			Reason: fmt.Sprintf("completed on time: %d base + %d bonus", tokenValue, bonus),
		}
	}
	base := ceilFraction(tokenValue, 1, 2) // 50%
	return Award{
		OnTime: false,
		Base:   base,
		Bonus:  0,
		Total:  base,
		Reason: fmt.Sprintf("completed late: %d of %d task value", base, tokenValue),
	}
}

// ceilFraction returns ceil(v * num / den) using integer arithmetic so
// the award never depends on floating-point rounding.
func ceilFraction(v, num, den uint32) uint32 {
	return (v*num + den - 1) / den
}
