// Package frame assembles header codecs into a layered Ethernet frame and
// parses raw frames back into their headers.
package frame

import (
	"fmt"
	"sort"
	"strings"

	"firestige.xyz/framesmith/internal/core"
	"firestige.xyz/framesmith/internal/header"
)

// Frame maps each layer to at most one header. The serialized bytes are
// cached by Build.
type Frame struct {
	layers map[header.Layer]header.Proto
	buffer []byte
}

// New returns an empty frame.
func New() *Frame {
	return &Frame{layers: make(map[header.Layer]header.Proto, 2)}
}

// Parse decodes raw as Ethernet and, when the EtherType is known, the layer 3
// payload behind it. Parse never fails; unknown payloads leave the frame with
// its link layer only. raw is retained as the frame buffer.
func Parse(raw []byte) *Frame {
	f := New()
	eth := header.ParseEthernet(raw)
	f.SetHeader(eth)

	var payload []byte
	if len(raw) > header.EthernetLen {
		payload = raw[header.EthernetLen:]
	}
	switch eth.PayloadKind() {
	case header.KindARP:
		f.SetHeader(header.ParseARP(payload))
	case header.KindIPv4:
		f.SetHeader(header.ParseIPv4(payload))
	}
	f.buffer = raw
	return f
}

// Header inserts h and returns f for chaining.
func (f *Frame) Header(h header.Header) *Frame {
	f.SetHeader(h)
	return f
}

// SetHeader stores a copy of h at its layer, replacing any header there.
// The cached buffer is invalidated.
func (f *Frame) SetHeader(h header.Header) {
	p := h.Get()
	f.layers[p.Kind().Layer()] = p
	f.buffer = nil
}

// Layer returns the header stored at l.
func (f *Frame) Layer(l header.Layer) (header.Proto, bool) {
	p, ok := f.layers[l]
	return p, ok
}

func (f *Frame) Link() (header.Proto, bool)    { return f.Layer(header.LayerLink) }
func (f *Frame) Network() (header.Proto, bool) { return f.Layer(header.LayerNetwork) }

// Build serializes the link header followed by the network header and pads
// the result to header.MinFrameLen.
func (f *Frame) Build() error {
	network, ok := f.Network()
	if !ok || network.Header() == nil {
		return fmt.Errorf("build: no network header: %w", core.ErrMissingLayer)
	}
	link, ok := f.Link()
	if !ok {
		return fmt.Errorf("build: no link header: %w", core.ErrMissingLayer)
	}
	eth, err := link.Ethernet()
	if err != nil {
		return fmt.Errorf("build: link header is %s: %w", link.Kind(), core.ErrMissingLayer)
	}
	buf, err := eth.Encapsulate(network.Header())
	if err != nil {
		return fmt.Errorf("build: %w", err)
	}
	f.buffer = buf
	return nil
}

// Bytes returns the bytes produced by the last Build or given to Parse, or
// nil.
func (f *Frame) Bytes() []byte { return f.buffer }

// Clone returns a frame holding the same headers and no cached buffer.
func (f *Frame) Clone() *Frame {
	c := New()
	for l, p := range f.layers {
		c.layers[l] = p
	}
	return c
}

func (f *Frame) String() string {
	ls := make([]int, 0, len(f.layers))
	for l := range f.layers {
		ls = append(ls, int(l))
	}
	sort.Ints(ls)
	parts := make([]string, 0, len(ls))
	for _, l := range ls {
		parts = append(parts, f.layers[header.Layer(l)].String())
	}
	return strings.Join(parts, " | ")
}
