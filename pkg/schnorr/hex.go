package schnorr

import (
	"errors"
	"math/big"
)

// ErrInvalidHex is returned when a wire value does not parse as a hex integer.
var ErrInvalidHex = errors.New("invalid hex integer")

// ParseHex decodes a hex-encoded big integer. A single leading "0x" or "0X"
// prefix is tolerated; the digits themselves may be either case.
func ParseHex(s string) (*big.Int, error) {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	if s == "" {
		return nil, ErrInvalidHex
	}
	n, ok := new(big.Int).SetString(s, 16)
	if !ok {
		return nil, ErrInvalidHex
	}
	return n, nil
}

// FormatHex encodes n as lowercase hex with a "0x" prefix.
func FormatHex(n *big.Int) string {
	return "0x" + n.Text(16)
}
