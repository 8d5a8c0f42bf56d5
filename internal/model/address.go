package model

import (
	"errors"
	"fmt"
)

// AddressBits is the size of an Address in bits.
const AddressBits = 32

// ErrInvalidAddress is returned when an address value is outside the 32-bit range.
var ErrInvalidAddress = errors.New("invalid address")

const (
	multicastLow  = 0xE0000000 // 224.0.0.0
	multicastHigh = 0xEFFFFFFF // 239.255.255.255
)

// Address is an immutable 32-bit host address. The zero value is 0.0.0.0.
type Address uint32

// NewAddress validates v and returns it as an Address. Values outside
// [0, 2^32-1] fail; they are never clamped.
func NewAddress(v int64) (Address, error) {
	if v < 0 || v > 0xFFFFFFFF {
		return 0, fmt.Errorf("%w: %d out of 32-bit range", ErrInvalidAddress, v)
	}
	return Address(v), nil
}

// Bytes returns the 4-byte big-endian encoding of the address.
func (a Address) Bytes() [4]byte {
	return [4]byte{byte(a >> 24), byte(a >> 16), byte(a >> 8), byte(a)}
}

// IsMulticast reports whether the address falls in 224.0.0.0-239.255.255.255.
func (a Address) IsMulticast() bool {
	return a >= multicastLow && a <= multicastHigh
}

// Compare orders addresses by unsigned numeric value. It returns -1, 0 or 1.
func (a Address) Compare(b Address) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// String renders the address in dotted-quad notation.
func (a Address) String() string {
	b := a.Bytes()
	return fmt.Sprintf("%d.%d.%d.%d", b[0], b[1], b[2], b[3])
}
