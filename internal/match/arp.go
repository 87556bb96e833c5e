package match

import (
	"fmt"

	"firestige.xyz/framesmith/internal/bits"
	"firestige.xyz/framesmith/internal/core"
	"firestige.xyz/framesmith/internal/frame"
	"firestige.xyz/framesmith/internal/header"
)

// ARPQuery matches ARP packets at the network layer.
type ARPQuery struct {
	HWType    *bits.Field
	ProtoType *bits.Field
	HWLen     *bits.Field
	ProtoLen  *bits.Field
	Opcode    *bits.Field
	SrcMAC    *core.HardwareAddr
	SrcIP     *core.IPv4Addr
	DstMAC    *core.HardwareAddr
	DstIP     *core.IPv4Addr
}

// NewARPQuery returns a query matching every ARP packet.
func NewARPQuery() *ARPQuery { return &ARPQuery{} }

func (q *ARPQuery) WithOpcode(op uint16) *ARPQuery {
	q.Opcode = ptr(bits.Uint16(op))
	return q
}

func (q *ARPQuery) WithHWType(v uint16) *ARPQuery {
	q.HWType = ptr(bits.Uint16(v))
	return q
}

func (q *ARPQuery) WithProtoType(v uint16) *ARPQuery {
	q.ProtoType = ptr(bits.Uint16(v))
	return q
}

func (q *ARPQuery) WithSrcMAC(mac core.HardwareAddr) *ARPQuery {
	q.SrcMAC = ptr(mac)
	return q
}

func (q *ARPQuery) WithSrcIP(ip core.IPv4Addr) *ARPQuery {
	q.SrcIP = ptr(ip)
	return q
}

func (q *ARPQuery) WithDstMAC(mac core.HardwareAddr) *ARPQuery {
	q.DstMAC = ptr(mac)
	return q
}

func (q *ARPQuery) WithDstIP(ip core.IPv4Addr) *ARPQuery {
	q.DstIP = ptr(ip)
	return q
}

func (q *ARPQuery) WithSrcMACText(s string) (*ARPQuery, error) {
	mac, err := core.ParseMAC(s)
	if err != nil {
		return nil, fmt.Errorf("arp query sender mac: %w", err)
	}
	return q.WithSrcMAC(mac), nil
}

func (q *ARPQuery) WithSrcIPText(s string) (*ARPQuery, error) {
	ip, err := core.ParseIPv4(s)
	if err != nil {
		return nil, fmt.Errorf("arp query sender ip: %w", err)
	}
	return q.WithSrcIP(ip), nil
}

func (q *ARPQuery) WithDstMACText(s string) (*ARPQuery, error) {
	mac, err := core.ParseMAC(s)
	if err != nil {
		return nil, fmt.Errorf("arp query target mac: %w", err)
	}
	return q.WithDstMAC(mac), nil
}

func (q *ARPQuery) WithDstIPText(s string) (*ARPQuery, error) {
	ip, err := core.ParseIPv4(s)
	if err != nil {
		return nil, fmt.Errorf("arp query target ip: %w", err)
	}
	return q.WithDstIP(ip), nil
}

func (q *ARPQuery) Layer() header.Layer { return header.LayerNetwork }

func (q *ARPQuery) MatchHeader(p header.Proto) bool {
	a, err := p.ARP()
	if err != nil {
		return false
	}
	return fieldEq(q.HWType, a.HWType) &&
		fieldEq(q.ProtoType, a.ProtoType) &&
		fieldEq(q.HWLen, a.HWLen) &&
		fieldEq(q.ProtoLen, a.ProtoLen) &&
		fieldEq(q.Opcode, a.Opcode) &&
		macEq(q.SrcMAC, a.SrcMAC) &&
		ipEq(q.SrcIP, a.SrcIP) &&
		macEq(q.DstMAC, a.DstMAC) &&
		ipEq(q.DstIP, a.DstIP)
}

func (q *ARPQuery) Match(f *frame.Frame) bool { return matchLayer(q, f) }

func (q *ARPQuery) Key() string {
	w := keyWriter{name: "arp"}
	w.field("hw_type", q.HWType)
	w.hex("proto_type", q.ProtoType)
	w.field("hw_len", q.HWLen)
	w.field("proto_len", q.ProtoLen)
	w.field("opcode", q.Opcode)
	w.mac("src_mac", q.SrcMAC)
	w.ip("src_ip", q.SrcIP)
	w.mac("dst_mac", q.DstMAC)
	w.ip("dst_ip", q.DstIP)
	return w.String()
}

func (q *ARPQuery) String() string { return q.Key() }
