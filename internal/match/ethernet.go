package match

import (
	"fmt"

	"firestige.xyz/framesmith/internal/bits"
	"firestige.xyz/framesmith/internal/core"
	"firestige.xyz/framesmith/internal/frame"
	"firestige.xyz/framesmith/internal/header"
)

// EthernetQuery matches link headers.
type EthernetQuery struct {
	Src       *core.HardwareAddr
	Dst       *core.HardwareAddr
	EtherType *bits.Field
}

func NewEthernetQuery() *EthernetQuery { return &EthernetQuery{} }

func (q *EthernetQuery) WithSrc(mac core.HardwareAddr) *EthernetQuery {
	q.Src = ptr(mac)
	return q
}

func (q *EthernetQuery) WithDst(mac core.HardwareAddr) *EthernetQuery {
	q.Dst = ptr(mac)
	return q
}

func (q *EthernetQuery) WithEtherType(t uint16) *EthernetQuery {
	q.EtherType = ptr(bits.Uint16(t))
	return q
}

func (q *EthernetQuery) WithSrcText(s string) (*EthernetQuery, error) {
	mac, err := core.ParseMAC(s)
	if err != nil {
		return nil, fmt.Errorf("ethernet query src: %w", err)
	}
	return q.WithSrc(mac), nil
}

func (q *EthernetQuery) WithDstText(s string) (*EthernetQuery, error) {
	mac, err := core.ParseMAC(s)
	if err != nil {
		return nil, fmt.Errorf("ethernet query dst: %w", err)
	}
	return q.WithDst(mac), nil
}

func (q *EthernetQuery) Layer() header.Layer { return header.LayerLink }

func (q *EthernetQuery) MatchHeader(p header.Proto) bool {
	e, err := p.Ethernet()
	if err != nil {
		return false
	}
	return macEq(q.Src, e.Src) &&
		macEq(q.Dst, e.Dst) &&
		fieldEq(q.EtherType, e.EtherType)
}

func (q *EthernetQuery) Match(f *frame.Frame) bool { return matchLayer(q, f) }

func (q *EthernetQuery) Key() string {
	w := keyWriter{name: "ethernet"}
	w.mac("src", q.Src)
	w.mac("dst", q.Dst)
	w.hex("type", q.EtherType)
	return w.String()
}

func (q *EthernetQuery) String() string { return q.Key() }
