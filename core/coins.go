package core

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// NanoDecimals is the number of fractional digits of a coin
	NanoDecimals = 9
	// NanoPerCoin is the number of nano units in one coin
	NanoPerCoin Coins = 1_000_000_000
)

// Coins is an amount of the native currency in nano units
type Coins uint64

// ToNano parses a decimal coin amount such as "0.05"
func ToNano(s string) (Coins, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty amount", ErrInvalidAmount)
	}

	whole, frac, _ := strings.Cut(s, ".")
	if len(frac) > NanoDecimals {
		return 0, fmt.Errorf("%w: too many decimals in %q", ErrInvalidAmount, s)
	}
	if whole == "" {
		whole = "0"
	}
	w, err := strconv.ParseUint(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrInvalidAmount, s, err)
	}

	var f uint64
	if frac != "" {
		frac += strings.Repeat("0", NanoDecimals-len(frac))
		f, err = strconv.ParseUint(frac, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q: %v", ErrInvalidAmount, s, err)
		}
	}

	if w > uint64(^Coins(0)/NanoPerCoin) {
		return 0, fmt.Errorf("%w: %q overflows", ErrInvalidAmount, s)
	}
	base := Coins(w) * NanoPerCoin
	total := base + Coins(f)
	if total < base {
		return 0, fmt.Errorf("%w: %q overflows", ErrInvalidAmount, s)
	}
	return total, nil
}

// MustToNano is ToNano for constants
func MustToNano(s string) Coins {
	c, err := ToNano(s)
	if err != nil {
		panic(err)
	}
	return c
}

// String formats the amount as a decimal coin value without trailing zeros
func (c Coins) String() string {
	whole := c / NanoPerCoin
	frac := c % NanoPerCoin
	if frac == 0 {
		return strconv.FormatUint(uint64(whole), 10)
	}
	fs := strings.TrimRight(fmt.Sprintf("%09d", uint64(frac)), "0")
	return fmt.Sprintf("%d.%s", uint64(whole), fs)
}
