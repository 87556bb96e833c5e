package header

import (
	"fmt"

	"firestige.xyz/framesmith/internal/bits"
	"firestige.xyz/framesmith/internal/core"
)

// IPv4Len is the size of an IPv4 header without options.
const IPv4Len = 20

// Flags and fragment offset share 16 bits as in RFC 791.
const (
	FlagsWidth      = 3
	FragOffsetWidth = 13
)

// IP protocol numbers.
const (
	ProtoICMP uint8 = 0x01
	ProtoTCP  uint8 = 0x06
	ProtoUDP  uint8 = 0x11
)

// IPv4 is an RFC 791 header without options. The checksum is carried as is
// and never computed.
type IPv4 struct {
	Version    bits.Field // 4 bits
	IHL        bits.Field // 4 bits
	TOS        bits.Field // 8 bits
	TotalLen   bits.Field // 16 bits
	ID         bits.Field // 16 bits
	Flags      bits.Field // 3 bits
	FragOffset bits.Field // 13 bits
	TTL        bits.Field // 8 bits
	Protocol   bits.Field // 8 bits
	Checksum   bits.Field // 16 bits
	Src        core.IPv4Addr
	Dst        core.IPv4Addr
}

// NewIPv4 builds a header-only datagram from textual addresses.
func NewIPv4(src, dst string, protocol uint8) (*IPv4, error) {
	s, err := core.ParseIPv4(src)
	if err != nil {
		return nil, fmt.Errorf("ipv4 source: %w", err)
	}
	d, err := core.ParseIPv4(dst)
	if err != nil {
		return nil, fmt.Errorf("ipv4 destination: %w", err)
	}
	return IPv4From(s, d, protocol), nil
}

// IPv4From builds a header with version 4, IHL 5, TTL 64 and a total length
// covering the header alone.
func IPv4From(src, dst core.IPv4Addr, protocol uint8) *IPv4 {
	version, _ := bits.New(4, 4)
	ihl, _ := bits.New(5, 4)
	flags, _ := bits.New(0, FlagsWidth)
	frag, _ := bits.New(0, FragOffsetWidth)
	return &IPv4{
		Version:    version,
		IHL:        ihl,
		TOS:        bits.Uint8(0),
		TotalLen:   bits.Uint16(IPv4Len),
		ID:         bits.Uint16(0),
		Flags:      flags,
		FragOffset: frag,
		TTL:        bits.Uint8(64),
		Protocol:   bits.Uint8(protocol),
		Checksum:   bits.Uint16(0),
		Src:        src,
		Dst:        dst,
	}
}

// ParseIPv4 decodes the fixed 20 byte header. Short input is zero extended.
func ParseIPv4(p []byte) *IPv4 {
	r := newFixedReader(p, IPv4Len)
	return &IPv4{
		Version:    r.field(0, 4),
		IHL:        r.field(4, 8),
		TOS:        r.field(8, 16),
		TotalLen:   r.field(16, 32),
		ID:         r.field(32, 48),
		Flags:      r.field(48, 48+FlagsWidth),
		FragOffset: r.field(48+FlagsWidth, 64),
		TTL:        r.field(64, 72),
		Protocol:   r.field(72, 80),
		Checksum:   r.field(80, 96),
		Src:        r.ipv4(96),
		Dst:        r.ipv4(128),
	}
}

func (ip *IPv4) Create() ([]byte, error) {
	b := bits.NewBuffer(IPv4Len)
	err := appendFields(b,
		wire{"version", ip.Version, 4},
		wire{"ihl", ip.IHL, 4},
		wire{"tos", ip.TOS, 8},
		wire{"total length", ip.TotalLen, 16},
		wire{"id", ip.ID, 16},
		wire{"flags", ip.Flags, FlagsWidth},
		wire{"fragment offset", ip.FragOffset, FragOffsetWidth},
		wire{"ttl", ip.TTL, 8},
		wire{"protocol", ip.Protocol, 8},
		wire{"checksum", ip.Checksum, 16},
	)
	if err != nil {
		return nil, fmt.Errorf("ipv4: %w", err)
	}
	b.AppendBytes(ip.Src[:])
	b.AppendBytes(ip.Dst[:])
	return b.Bytes()
}

func (ip *IPv4) Get() Proto {
	c := *ip
	return Proto{kind: KindIPv4, hdr: &c}
}

func (ip *IPv4) Kind() Kind { return KindIPv4 }

// SetFlags replaces the 3 bit flags field.
func (ip *IPv4) SetFlags(v uint8) error {
	f, err := bits.New(uint64(v), FlagsWidth)
	if err != nil {
		return fmt.Errorf("ipv4 flags: %w", err)
	}
	ip.Flags = f
	return nil
}

// SetFragOffset replaces the 13 bit fragment offset field.
func (ip *IPv4) SetFragOffset(v uint16) error {
	f, err := bits.New(uint64(v), FragOffsetWidth)
	if err != nil {
		return fmt.Errorf("ipv4 fragment offset: %w", err)
	}
	ip.FragOffset = f
	return nil
}

func (ip *IPv4) String() string {
	return fmt.Sprintf("ipv4 %s > %s proto %d ttl %d id %d len %d",
		ip.Src, ip.Dst, ip.Protocol.Value(), ip.TTL.Value(), ip.ID.Value(), ip.TotalLen.Value())
}
