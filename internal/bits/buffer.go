package bits

import (
	"fmt"

	"firestige.xyz/framesmith/internal/core"
)

// Buffer is a growable, bit-addressable byte buffer. Bits are stored MSB
// first, matching network bit order. A Buffer is owned by a single codec call.
type Buffer struct {
	data []byte
	n    int // length in bits
}

// NewBuffer returns an empty buffer with room for sizeHint bytes.
func NewBuffer(sizeHint int) *Buffer {
	return &Buffer{data: make([]byte, 0, sizeHint)}
}

// FromBytes returns a buffer holding a copy of p.
func FromBytes(p []byte) *Buffer {
	b := NewBuffer(len(p))
	b.AppendBytes(p)
	return b
}

// Len returns the number of bits held.
func (b *Buffer) Len() int { return b.n }

// AppendBytes appends whole octets.
func (b *Buffer) AppendBytes(p []byte) {
	if b.n%8 == 0 {
		b.data = append(b.data, p...)
		b.n += 8 * len(p)
		return
	}
	for _, octet := range p {
		b.appendBits(uint64(octet), 8)
	}
}

// AppendField appends the padded representation of f.
func (b *Buffer) AppendField(f Field) error {
	if err := f.Validate(); err != nil {
		return err
	}
	b.appendBits(f.value, int(f.width))
	return nil
}

// SliceBits returns bits [start, end) as a Field of width end-start.
func (b *Buffer) SliceBits(start, end int) (Field, error) {
	if err := b.checkRange(start, end); err != nil {
		return Field{}, err
	}
	width := end - start
	if width > MaxWidth {
		return Field{}, fmt.Errorf("slice [%d:%d) wider than %d bits: %w", start, end, MaxWidth, core.ErrLength)
	}
	return Field{value: b.readBits(start, width), width: uint8(width)}, nil
}

// SliceBytes returns bits [start, end) as octets. The range length must be a
// multiple of 8; start need not be byte aligned.
func (b *Buffer) SliceBytes(start, end int) ([]byte, error) {
	if (end-start)%8 != 0 {
		return nil, fmt.Errorf("slice [%d:%d) is %d bits: %w", start, end, end-start, core.ErrAlignment)
	}
	if err := b.checkRange(start, end); err != nil {
		return nil, err
	}
	out := make([]byte, (end-start)/8)
	if start%8 == 0 {
		copy(out, b.data[start/8:end/8])
		return out, nil
	}
	for i := range out {
		out[i] = byte(b.readBits(start+8*i, 8))
	}
	return out, nil
}

// Bytes returns the whole buffer as octets.
func (b *Buffer) Bytes() ([]byte, error) {
	if b.n%8 != 0 {
		return nil, fmt.Errorf("buffer holds %d bits: %w", b.n, core.ErrAlignment)
	}
	out := make([]byte, len(b.data))
	copy(out, b.data)
	return out, nil
}

func (b *Buffer) checkRange(start, end int) error {
	if start < 0 || end <= start || end > b.n {
		return fmt.Errorf("slice [%d:%d) of %d bits: %w", start, end, b.n, core.ErrOutOfRange)
	}
	return nil
}

func (b *Buffer) appendBits(v uint64, width int) {
	for i := width - 1; i >= 0; i-- {
		if b.n%8 == 0 {
			b.data = append(b.data, 0)
		}
		if v>>uint(i)&1 == 1 {
			b.data[b.n/8] |= 0x80 >> uint(b.n%8)
		}
		b.n++
	}
}

func (b *Buffer) readBits(start, width int) uint64 {
	var v uint64
	for i := start; i < start+width; i++ {
		v = v<<1 | uint64(b.data[i/8]>>uint(7-i%8)&1)
	}
	return v
}
