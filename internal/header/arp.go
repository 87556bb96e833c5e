package header

import (
	"fmt"

	"firestige.xyz/framesmith/internal/bits"
	"firestige.xyz/framesmith/internal/core"
)

// ARPLen is the size of an ARP packet for Ethernet/IPv4.
const ARPLen = 28

// ARP opcodes.
const (
	OpRequest uint16 = 1
	OpReply   uint16 = 2
)

// ARP is an RFC 826 packet for Ethernet hardware and IPv4 protocol addresses.
type ARP struct {
	HWType    bits.Field // 16 bits
	ProtoType bits.Field // 16 bits
	HWLen     bits.Field // 8 bits
	ProtoLen  bits.Field // 8 bits
	Opcode    bits.Field // 16 bits
	SrcMAC    core.HardwareAddr
	SrcIP     core.IPv4Addr
	DstMAC    core.HardwareAddr
	DstIP     core.IPv4Addr
}

// NewARP builds a request from textual sender and target addresses.
func NewARP(srcMAC, srcIP, dstMAC, dstIP string) (*ARP, error) {
	sIP, err := core.ParseIPv4(srcIP)
	if err != nil {
		return nil, fmt.Errorf("arp sender ip: %w", err)
	}
	dIP, err := core.ParseIPv4(dstIP)
	if err != nil {
		return nil, fmt.Errorf("arp target ip: %w", err)
	}
	sMAC, err := core.ParseMAC(srcMAC)
	if err != nil {
		return nil, fmt.Errorf("arp sender mac: %w", err)
	}
	dMAC, err := core.ParseMAC(dstMAC)
	if err != nil {
		return nil, fmt.Errorf("arp target mac: %w", err)
	}
	return ARPFrom(sMAC, sIP, dMAC, dIP), nil
}

// ARPFrom builds an Ethernet/IPv4 request.
func ARPFrom(srcMAC core.HardwareAddr, srcIP core.IPv4Addr, dstMAC core.HardwareAddr, dstIP core.IPv4Addr) *ARP {
	return &ARP{
		HWType:    bits.Uint16(1),
		ProtoType: bits.Uint16(EtherTypeIPv4),
		HWLen:     bits.Uint8(6),
		ProtoLen:  bits.Uint8(4),
		Opcode:    bits.Uint16(OpRequest),
		SrcMAC:    srcMAC,
		SrcIP:     srcIP,
		DstMAC:    dstMAC,
		DstIP:     dstIP,
	}
}

// ParseARP decodes the fixed RFC 826 layout. Short input is zero extended,
// trailing bytes such as frame padding are ignored.
func ParseARP(p []byte) *ARP {
	r := newFixedReader(p, ARPLen)
	return &ARP{
		HWType:    r.field(0, 16),
		ProtoType: r.field(16, 32),
		HWLen:     r.field(32, 40),
		ProtoLen:  r.field(40, 48),
		Opcode:    r.field(48, 64),
		SrcMAC:    r.mac(64),
		SrcIP:     r.ipv4(112),
		DstMAC:    r.mac(144),
		DstIP:     r.ipv4(192),
	}
}

func (a *ARP) Create() ([]byte, error) {
	b := bits.NewBuffer(ARPLen)
	err := appendFields(b,
		wire{"hardware type", a.HWType, 16},
		wire{"protocol type", a.ProtoType, 16},
		wire{"hardware length", a.HWLen, 8},
		wire{"protocol length", a.ProtoLen, 8},
		wire{"opcode", a.Opcode, 16},
	)
	if err != nil {
		return nil, fmt.Errorf("arp: %w", err)
	}
	b.AppendBytes(a.SrcMAC[:])
	b.AppendBytes(a.SrcIP[:])
	b.AppendBytes(a.DstMAC[:])
	b.AppendBytes(a.DstIP[:])
	return b.Bytes()
}

func (a *ARP) Get() Proto {
	c := *a
	return Proto{kind: KindARP, hdr: &c}
}

func (a *ARP) Kind() Kind { return KindARP }

// SetReply turns the packet into a reply without touching the addresses.
func (a *ARP) SetReply() {
	a.Opcode = bits.Uint16(OpReply)
}

func (a *ARP) IsRequest() bool { return a.Opcode.Value() == uint64(OpRequest) }
func (a *ARP) IsReply() bool   { return a.Opcode.Value() == uint64(OpReply) }

func (a *ARP) String() string {
	switch {
	case a.IsRequest():
		return fmt.Sprintf("arp who-has %s tell %s (%s)", a.DstIP, a.SrcIP, a.SrcMAC)
	case a.IsReply():
		return fmt.Sprintf("arp reply %s is-at %s to %s (%s)", a.SrcIP, a.SrcMAC, a.DstIP, a.DstMAC)
	default:
		return fmt.Sprintf("arp op=%d %s/%s > %s/%s", a.Opcode.Value(), a.SrcMAC, a.SrcIP, a.DstMAC, a.DstIP)
	}
}
