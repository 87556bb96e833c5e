package bits

import (
	"errors"
	"fmt"
	"testing"

	"firestige.xyz/framesmith/internal/core"
)

func TestNewRejectsOversizedValue(t *testing.T) {
	tests := []struct {
		value uint64
		width uint8
	}{
		{2, 1},
		{16, 4},
		{256, 8},
		{1 << 16, 16},
		{1, 0},
		{1, 65},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d/%d", tt.value, tt.width), func(t *testing.T) {
			_, err := New(tt.value, tt.width)
			if !errors.Is(err, core.ErrLength) {
				t.Errorf("New(%d, %d) error = %v, want ErrLength", tt.value, tt.width, err)
			}
		})
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	for width := uint8(1); width <= MaxWidth; width++ {
		limit := uint64(1)<<width - 1
		if width == MaxWidth {
			limit = ^uint64(0)
		}
		for _, v := range []uint64{0, 1, limit / 2, limit} {
			f, err := New(v, width)
			if err != nil {
				t.Fatalf("New(%d, %d) returned error: %v", v, width, err)
			}
			if got := f.Value(); got != v {
				t.Errorf("New(%d, %d).Value() = %d", v, width, got)
			}
			if got := len(f.Padded()); got != int(width) {
				t.Errorf("New(%d, %d).Padded() has %d digits", v, width, got)
			}
		}
	}
}

func TestPadded(t *testing.T) {
	f, err := New(5, 8)
	if err != nil {
		t.Fatal(err)
	}
	if got := f.Padded(); got != "00000101" {
		t.Errorf("Padded() = %q, want 00000101", got)
	}
	if got := fmt.Sprintf("%b", f); got != "00000101" {
		t.Errorf("%%b = %q, want 00000101", got)
	}
	if got := fmt.Sprintf("%v", f); got != "5" {
		t.Errorf("%%v = %q, want 5", got)
	}
	if got := fmt.Sprintf("0x%04x", Uint16(0x806)); got != "0x0806" {
		t.Errorf("%%04x = %q, want 0x0806", got)
	}
}

func TestPaddedInvalidFieldReportsThroughValidate(t *testing.T) {
	f := Field{value: 0b10110, width: 3}
	if got := f.Padded(); got != "10110" {
		t.Errorf("Padded() = %q, want the full value 10110", got)
	}
	if err := f.Validate(); !errors.Is(err, core.ErrLength) {
		t.Errorf("Validate() = %v, want ErrLength", err)
	}
}

func TestEqualIgnoresWidth(t *testing.T) {
	narrow, _ := New(6, 4)
	wide, _ := New(6, 16)

	if !narrow.Equal(wide) {
		t.Error("fields with equal values should be Equal regardless of width")
	}
	if narrow.Same(wide) {
		t.Error("fields with different widths should not be Same")
	}
	if Uint8(1).Equal(Uint8(2)) {
		t.Error("fields with different values should not be Equal")
	}
}

func TestZeroFieldInvalid(t *testing.T) {
	var f Field
	if err := f.Validate(); !errors.Is(err, core.ErrLength) {
		t.Errorf("zero Field Validate() = %v, want ErrLength", err)
	}
}
