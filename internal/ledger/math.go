package ledger

import (
	sdkmath "cosmossdk.io/math"
)

// sdkmath.Int panics once a result exceeds 256 bits. The ledger must never
// wrap or truncate, so these wrappers convert that panic into ErrOverflow
// and let the operation abort cleanly.

// SafeAdd returns a+b, or ErrOverflow if the sum leaves the representable range.
func SafeAdd(a, b sdkmath.Int) (res sdkmath.Int, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = sdkmath.ZeroInt(), ErrOverflow
		}
	}()
	res = a.Add(b)
	return res, nil
}

// SafeMul returns a*b, or ErrOverflow if the product leaves the representable range.
func SafeMul(a, b sdkmath.Int) (res sdkmath.Int, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = sdkmath.ZeroInt(), ErrOverflow
		}
	}()
	res = a.Mul(b)
	return res, nil
}
