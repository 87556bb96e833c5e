package header

import (
	"fmt"

	"firestige.xyz/framesmith/internal/bits"
	"firestige.xyz/framesmith/internal/core"
)

const (
	// EthernetLen is the size of an Ethernet II header without VLAN tags.
	EthernetLen = 14
	// MinFrameLen is the minimum Ethernet frame size, FCS excluded.
	MinFrameLen = 60
)

// Ethernet is an IEEE 802.3 / Ethernet II header.
type Ethernet struct {
	Src       core.HardwareAddr
	Dst       core.HardwareAddr
	EtherType bits.Field // 16 bits
}

// NewEthernet builds a header from textual MAC addresses.
func NewEthernet(src, dst string, etherType uint16) (*Ethernet, error) {
	srcMAC, err := core.ParseMAC(src)
	if err != nil {
		return nil, fmt.Errorf("ethernet source: %w", err)
	}
	dstMAC, err := core.ParseMAC(dst)
	if err != nil {
		return nil, fmt.Errorf("ethernet destination: %w", err)
	}
	return EthernetFrom(srcMAC, dstMAC, etherType), nil
}

func EthernetFrom(src, dst core.HardwareAddr, etherType uint16) *Ethernet {
	return &Ethernet{Src: src, Dst: dst, EtherType: bits.Uint16(etherType)}
}

// ParseEthernet decodes dst[0:48) src[48:96) ethertype[96:112). Short input
// is zero extended.
func ParseEthernet(p []byte) *Ethernet {
	r := newFixedReader(p, EthernetLen)
	return &Ethernet{
		Dst:       r.mac(0),
		Src:       r.mac(48),
		EtherType: r.field(96, 112),
	}
}

func (e *Ethernet) Create() ([]byte, error) {
	b := bits.NewBuffer(EthernetLen)
	b.AppendBytes(e.Dst[:])
	b.AppendBytes(e.Src[:])
	if err := appendFields(b, wire{"ethertype", e.EtherType, 16}); err != nil {
		return nil, fmt.Errorf("ethernet: %w", err)
	}
	return b.Bytes()
}

func (e *Ethernet) Get() Proto {
	c := *e
	return Proto{kind: KindEthernet, hdr: &c}
}

func (e *Ethernet) Kind() Kind { return KindEthernet }

// PayloadKind reports the protocol announced by the EtherType.
func (e *Ethernet) PayloadKind() Kind {
	return KindOfEtherType(uint16(e.EtherType.Value()))
}

// Encapsulate serializes e followed by payload and pads the result to the
// minimum frame size. Frames longer than MinFrameLen are rejected.
func (e *Ethernet) Encapsulate(payload Header) ([]byte, error) {
	frame, err := e.Create()
	if err != nil {
		return nil, err
	}
	data, err := payload.Create()
	if err != nil {
		return nil, fmt.Errorf("%s payload: %w", payload.Kind(), err)
	}
	frame = append(frame, data...)
	if len(frame) > MinFrameLen {
		return nil, fmt.Errorf("frame of %d bytes exceeds %d: %w", len(frame), MinFrameLen, core.ErrConstruct)
	}
	for len(frame) < MinFrameLen {
		frame = append(frame, 0)
	}
	return frame, nil
}

func (e *Ethernet) String() string {
	return fmt.Sprintf("ethernet %s > %s type 0x%04x", e.Src, e.Dst, e.EtherType.Value())
}
