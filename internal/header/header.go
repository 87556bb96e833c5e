// Package header implements bit-exact codecs for the Ethernet, ARP and IPv4
// headers and the Proto union that carries one decoded header.
package header

import (
	"fmt"

	"firestige.xyz/framesmith/internal/bits"
	"firestige.xyz/framesmith/internal/core"
)

// Layer is the OSI layer a header occupies inside a frame.
type Layer uint8

const (
	LayerLink    Layer = 2
	LayerNetwork Layer = 3
)

// Kind tags the protocol held by a Proto.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindEthernet
	KindARP
	KindIPv4
	KindICMP // reserved, no codec yet
)

// EtherType values recognised by the frame parser.
const (
	EtherTypeIPv4 uint16 = 0x0800
	EtherTypeARP  uint16 = 0x0806
)

func (k Kind) String() string {
	switch k {
	case KindEthernet:
		return "ethernet"
	case KindARP:
		return "arp"
	case KindIPv4:
		return "ipv4"
	case KindICMP:
		return "icmp"
	default:
		return "unknown"
	}
}

// Layer returns the layer a header of this kind occupies; 0 for unknown.
func (k Kind) Layer() Layer {
	switch k {
	case KindEthernet:
		return LayerLink
	case KindARP, KindIPv4, KindICMP:
		return LayerNetwork
	default:
		return 0
	}
}

// KindOfEtherType maps an EtherType to the protocol it announces.
func KindOfEtherType(etherType uint16) Kind {
	switch etherType {
	case EtherTypeARP:
		return KindARP
	case EtherTypeIPv4:
		return KindIPv4
	default:
		return KindUnknown
	}
}

// EtherTypeOf returns the EtherType announcing k, if there is one.
func EtherTypeOf(k Kind) (uint16, bool) {
	switch k {
	case KindARP:
		return EtherTypeARP, true
	case KindIPv4:
		return EtherTypeIPv4, true
	default:
		return 0, false
	}
}

// Header is the codec contract every protocol header implements.
type Header interface {
	// Create serializes the header in protocol order and width.
	Create() ([]byte, error)
	// Get wraps a copy of the header in its Proto variant.
	Get() Proto
	Kind() Kind
	String() string
}

// Proto holds exactly one header tagged with its kind. The held header is a
// private copy; the accessors return copies as well.
type Proto struct {
	kind Kind
	hdr  Header
}

func (p Proto) Kind() Kind { return p.kind }

// Header returns the wrapped header, or nil for an empty Proto.
func (p Proto) Header() Header { return p.hdr }

func (p Proto) Ethernet() (*Ethernet, error) {
	if h, ok := p.hdr.(*Ethernet); ok && p.kind == KindEthernet {
		c := *h
		return &c, nil
	}
	return nil, p.unwrapErr(KindEthernet)
}

func (p Proto) ARP() (*ARP, error) {
	if h, ok := p.hdr.(*ARP); ok && p.kind == KindARP {
		c := *h
		return &c, nil
	}
	return nil, p.unwrapErr(KindARP)
}

func (p Proto) IPv4() (*IPv4, error) {
	if h, ok := p.hdr.(*IPv4); ok && p.kind == KindIPv4 {
		c := *h
		return &c, nil
	}
	return nil, p.unwrapErr(KindIPv4)
}

func (p Proto) String() string {
	if p.hdr == nil {
		return p.kind.String()
	}
	return p.hdr.String()
}

func (p Proto) unwrapErr(want Kind) error {
	return fmt.Errorf("unwrap %s from %s: %w", want, p.kind, core.ErrUnwrapHeader)
}

// wire is a header field with the width its protocol fixes on the wire.
type wire struct {
	name  string
	field bits.Field
	width uint8
}

// appendFields checks each field against its wire width, validates it and
// appends it in order.
func appendFields(b *bits.Buffer, ws ...wire) error {
	for _, w := range ws {
		if w.field.Width() != w.width {
			return fmt.Errorf("%s is %d bits, want %d: %w", w.name, w.field.Width(), w.width, core.ErrLength)
		}
		if err := b.AppendField(w.field); err != nil {
			return fmt.Errorf("%s: %w", w.name, err)
		}
	}
	return nil
}

// fixedReader reads constant offsets out of a buffer padded to the header
// size, so its slices are always in range.
type fixedReader struct {
	buf *bits.Buffer
}

func newFixedReader(p []byte, size int) fixedReader {
	b := make([]byte, size)
	copy(b, p)
	return fixedReader{buf: bits.FromBytes(b)}
}

func (r fixedReader) field(start, end int) bits.Field {
	f, _ := r.buf.SliceBits(start, end)
	return f
}

func (r fixedReader) mac(start int) core.HardwareAddr {
	var mac core.HardwareAddr
	b, _ := r.buf.SliceBytes(start, start+48)
	copy(mac[:], b)
	return mac
}

func (r fixedReader) ipv4(start int) core.IPv4Addr {
	var ip core.IPv4Addr
	b, _ := r.buf.SliceBytes(start, start+32)
	copy(ip[:], b)
	return ip
}
