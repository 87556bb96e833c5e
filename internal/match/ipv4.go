package match

import (
	"fmt"

	"firestige.xyz/framesmith/internal/bits"
	"firestige.xyz/framesmith/internal/core"
	"firestige.xyz/framesmith/internal/frame"
	"firestige.xyz/framesmith/internal/header"
)

// IPv4Query matches IPv4 headers at the network layer.
type IPv4Query struct {
	Version    *bits.Field
	IHL        *bits.Field
	TOS        *bits.Field
	TotalLen   *bits.Field
	ID         *bits.Field
	Flags      *bits.Field
	FragOffset *bits.Field
	TTL        *bits.Field
	Protocol   *bits.Field
	Checksum   *bits.Field
	Src        *core.IPv4Addr
	Dst        *core.IPv4Addr
}

func NewIPv4Query() *IPv4Query { return &IPv4Query{} }

func (q *IPv4Query) WithProtocol(p uint8) *IPv4Query {
	q.Protocol = ptr(bits.Uint8(p))
	return q
}

func (q *IPv4Query) WithTTL(ttl uint8) *IPv4Query {
	q.TTL = ptr(bits.Uint8(ttl))
	return q
}

func (q *IPv4Query) WithID(id uint16) *IPv4Query {
	q.ID = ptr(bits.Uint16(id))
	return q
}

func (q *IPv4Query) WithSrc(ip core.IPv4Addr) *IPv4Query {
	q.Src = ptr(ip)
	return q
}

func (q *IPv4Query) WithDst(ip core.IPv4Addr) *IPv4Query {
	q.Dst = ptr(ip)
	return q
}

func (q *IPv4Query) WithSrcText(s string) (*IPv4Query, error) {
	ip, err := core.ParseIPv4(s)
	if err != nil {
		return nil, fmt.Errorf("ipv4 query src: %w", err)
	}
	return q.WithSrc(ip), nil
}

func (q *IPv4Query) WithDstText(s string) (*IPv4Query, error) {
	ip, err := core.ParseIPv4(s)
	if err != nil {
		return nil, fmt.Errorf("ipv4 query dst: %w", err)
	}
	return q.WithDst(ip), nil
}

func (q *IPv4Query) Layer() header.Layer { return header.LayerNetwork }

func (q *IPv4Query) MatchHeader(p header.Proto) bool {
	ip, err := p.IPv4()
	if err != nil {
		return false
	}
	return fieldEq(q.Version, ip.Version) &&
		fieldEq(q.IHL, ip.IHL) &&
		fieldEq(q.TOS, ip.TOS) &&
		fieldEq(q.TotalLen, ip.TotalLen) &&
		fieldEq(q.ID, ip.ID) &&
		fieldEq(q.Flags, ip.Flags) &&
		fieldEq(q.FragOffset, ip.FragOffset) &&
		fieldEq(q.TTL, ip.TTL) &&
		fieldEq(q.Protocol, ip.Protocol) &&
		fieldEq(q.Checksum, ip.Checksum) &&
		ipEq(q.Src, ip.Src) &&
		ipEq(q.Dst, ip.Dst)
}

func (q *IPv4Query) Match(f *frame.Frame) bool { return matchLayer(q, f) }

func (q *IPv4Query) Key() string {
	w := keyWriter{name: "ipv4"}
	w.field("version", q.Version)
	w.field("ihl", q.IHL)
	w.field("tos", q.TOS)
	w.field("total_len", q.TotalLen)
	w.field("id", q.ID)
	w.field("flags", q.Flags)
	w.field("frag_offset", q.FragOffset)
	w.field("ttl", q.TTL)
	w.field("protocol", q.Protocol)
	w.field("checksum", q.Checksum)
	w.ip("src", q.Src)
	w.ip("dst", q.Dst)
	return w.String()
}

func (q *IPv4Query) String() string { return q.Key() }
