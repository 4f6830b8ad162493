// Package ordering implements the fractional order-key arithmetic that lets the
// work-item tree support O(1) inserts at an arbitrary sibling position.
package ordering

import (
	"errors"
	"fmt"
	"math/big"
)

// DefaultKey is the order key assigned to the first item added under a parent.
const DefaultKey = "1000"

// ErrInvalidKey is returned when a supplied key is not a finite decimal.
var ErrInvalidKey = errors.New("ordering: key is not a parseable decimal")

// Between computes a new order key that sorts between keyBefore and keyAfter.
// Either bound may be empty to mean "no neighbor on that side". The result is
// deterministic even when keyBefore >= keyAfter; ordering inversions are the
// caller's responsibility to avoid, not this function's to detect.
func Between(keyBefore, keyAfter string) (string, error) {
	before, hasBefore, err := parse(keyBefore)
	if err != nil {
		return "", err
	}
	after, hasAfter, err := parse(keyAfter)
	if err != nil {
		return "", err
	}

	switch {
	case !hasBefore && !hasAfter:
		return DefaultKey, nil
	case !hasBefore:
		return format(new(big.Rat).Sub(after, big.NewRat(1, 1))), nil
	case !hasAfter:
		return format(new(big.Rat).Add(before, big.NewRat(1, 1))), nil
	default:
		sum := new(big.Rat).Add(before, after)
		mean := sum.Quo(sum, big.NewRat(2, 1))
		return format(mean), nil
	}
}

// parse converts a possibly-empty decimal string into a *big.Rat. An empty
// string means "no neighbor" and is reported via the second return value.
func parse(key string) (*big.Rat, bool, error) {
	if key == "" {
		return nil, false, nil
	}
	r, ok := new(big.Rat).SetString(key)
	if !ok {
		return nil, false, fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return r, true, nil
}

// format renders a rational as a decimal string with enough precision to
// survive many rounds of bisection before two neighboring keys collide.
// big.Rat carries unbounded numerator/denominator precision internally;
// this only bounds the *printed* representation, which is generous enough
// that collisions require well over 32 successive bisections between the
// same pair of neighbors (the spec's documented minimum depth).
func format(r *big.Rat) string {
	const precision = 40
	s := r.FloatString(precision)
	return trimTrailingZeros(s)
}

// trimTrailingZeros removes redundant trailing zeros (and a trailing dot)
// from a fixed-precision decimal string without altering its value.
func trimTrailingZeros(s string) string {
	dot := -1
	for i, c := range s {
		if c == '.' {
			dot = i
			break
		}
	}
	if dot == -1 {
		return s
	}
	end := len(s)
	for end > dot+1 && s[end-1] == '0' {
		end--
	}
	if end == dot+1 {
		end = dot
	}
	return s[:end]
}

// Rebalance generates n evenly-spaced integer-valued keys. It is the
// administrative escape hatch named in the spec's open question on order-key
// exhaustion: a global rebalance pass that restores headroom between
// siblings. It is not part of the hot insert/move path and is not reachable
// from any tool operation.
func Rebalance(n int) []string {
	if n <= 0 {
		return nil
	}
	const step = 1000
	keys := make([]string, n)
	for i := 0; i < n; i++ {
		keys[i] = fmt.Sprintf("%d", (i+1)*step)
	}
	return keys
}
