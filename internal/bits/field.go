// Package bits provides fixed-width binary fields and a bit-addressable buffer
// used by the header codecs to serialize sub-byte protocol fields.
package bits

import (
	"fmt"
	mathbits "math/bits"
	"strconv"
	"strings"

	"firestige.xyz/framesmith/internal/core"
)

// MaxWidth is the widest field a Field can hold.
const MaxWidth = 64

// Field is an immutable unsigned value of a declared bit width.
// Invariant: 1 <= width <= 64 and value < 2^width. The zero Field is invalid.
type Field struct {
	value uint64
	width uint8
}

// New returns a Field holding value in width bits.
func New(value uint64, width uint8) (Field, error) {
	f := Field{value: value, width: width}
	if err := f.Validate(); err != nil {
		return Field{}, err
	}
	return f, nil
}

// Uint8 returns an 8 bit field. It cannot fail.
func Uint8(v uint8) Field { return Field{value: uint64(v), width: 8} }

// Uint16 returns a 16 bit field. It cannot fail.
func Uint16(v uint16) Field { return Field{value: uint64(v), width: 16} }

// Uint32 returns a 32 bit field. It cannot fail.
func Uint32(v uint32) Field { return Field{value: uint64(v), width: 32} }

// Validate re-checks the width invariant.
func (f Field) Validate() error {
	if f.width == 0 || f.width > MaxWidth {
		return fmt.Errorf("width %d not in 1..%d: %w", f.width, MaxWidth, core.ErrLength)
	}
	if n := mathbits.Len64(f.value); n > int(f.width) {
		return fmt.Errorf("value %d needs %d bits, field has %d: %w", f.value, n, f.width, core.ErrLength)
	}
	return nil
}

// Value returns the decoded unsigned value.
func (f Field) Value() uint64 { return f.value }

// Width returns the declared width in bits.
func (f Field) Width() uint8 { return f.width }

// Padded returns exactly Width() binary digits, left padded with zeros.
// The length holds only for a valid Field; a value wider than its width is
// printed in full, and Validate reports it.
func (f Field) Padded() string {
	s := strconv.FormatUint(f.value, 2)
	if len(s) >= int(f.width) {
		return s
	}
	return strings.Repeat("0", int(f.width)-len(s)) + s
}

// Equal compares decoded values only; fields of different widths holding
// the same number are equal.
func (f Field) Equal(other Field) bool {
	return f.value == other.value
}

// Same compares both width and value.
func (f Field) Same(other Field) bool {
	return f == other
}

func (f Field) String() string {
	return strconv.FormatUint(f.value, 10)
}

// Format prints the padded binary form for %b and the decimal value otherwise.
func (f Field) Format(s fmt.State, verb rune) {
	switch verb {
	case 'b':
		fmt.Fprint(s, f.Padded())
	case 'x', 'X', 'o', 'd':
		fmt.Fprintf(s, fmt.FormatString(s, verb), f.value)
	default:
		fmt.Fprint(s, f.String())
	}
}
