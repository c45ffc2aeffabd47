package target

import "shiftfund/pkg/money"

// ApplyAdjustment folds an operator correction into the adjustment
// accumulator. Money physically added reduces the outstanding need, so the
// accumulator moves negative on add and positive on remove. Reset clears the
// accumulator before the new correction applies.
func ApplyAdjustment(acc int64, addMajor, removeMajor float64, reset bool) int64 {
	if reset {
		acc = 0
	}
	if addMajor != 0 {
		acc -= money.ToMinorUnits(addMajor)
	}
	if removeMajor != 0 {
		acc += money.ToMinorUnits(removeMajor)
	}
	return acc
}
