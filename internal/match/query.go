// Package match implements wildcard queries over decoded headers and the
// ordered rule table the responder scans.
package match

import (
	"fmt"
	"strings"

	"firestige.xyz/framesmith/internal/bits"
	"firestige.xyz/framesmith/internal/core"
	"firestige.xyz/framesmith/internal/frame"
	"firestige.xyz/framesmith/internal/header"
)

// Predicate tests a header, or the header at its natural layer of a frame.
// Unset query fields are wildcards.
type Predicate interface {
	Layer() header.Layer
	MatchHeader(p header.Proto) bool
	Match(f *frame.Frame) bool
	// Key identifies the predicate; equal keys mean equal predicates.
	Key() string
	String() string
}

func matchLayer(q Predicate, f *frame.Frame) bool {
	if f == nil {
		return false
	}
	p, ok := f.Layer(q.Layer())
	if !ok {
		return false
	}
	return q.MatchHeader(p)
}

func fieldEq(want *bits.Field, got bits.Field) bool {
	return want == nil || want.Equal(got)
}

func macEq(want *core.HardwareAddr, got core.HardwareAddr) bool {
	return want == nil || *want == got
}

func ipEq(want *core.IPv4Addr, got core.IPv4Addr) bool {
	return want == nil || *want == got
}

// keyWriter renders the set fields of a query in declaration order.
type keyWriter struct {
	name  string
	parts []string
}

func (w *keyWriter) field(name string, f *bits.Field) {
	if f != nil {
		w.parts = append(w.parts, fmt.Sprintf("%s=%d", name, f.Value()))
	}
}

func (w *keyWriter) hex(name string, f *bits.Field) {
	if f != nil {
		w.parts = append(w.parts, fmt.Sprintf("%s=0x%04x", name, f.Value()))
	}
}

func (w *keyWriter) mac(name string, m *core.HardwareAddr) {
	if m != nil {
		w.parts = append(w.parts, name+"="+m.String())
	}
}

func (w *keyWriter) ip(name string, ip *core.IPv4Addr) {
	if ip != nil {
		w.parts = append(w.parts, name+"="+ip.String())
	}
}

func (w *keyWriter) String() string {
	return w.name + "{" + strings.Join(w.parts, ",") + "}"
}

func ptr[T any](v T) *T { return &v }

// All matches a frame when every predicate matches it. Predicates may target
// different layers.
type All []Predicate

// Layer returns the highest layer among the predicates.
func (a All) Layer() header.Layer {
	var l header.Layer
	for _, p := range a {
		if p.Layer() > l {
			l = p.Layer()
		}
	}
	return l
}

// MatchHeader applies the predicates targeting the layer of p. It fails when
// none does.
func (a All) MatchHeader(p header.Proto) bool {
	seen := false
	for _, q := range a {
		if q.Layer() != p.Kind().Layer() {
			continue
		}
		seen = true
		if !q.MatchHeader(p) {
			return false
		}
	}
	return seen
}

func (a All) Match(f *frame.Frame) bool {
	if len(a) == 0 || f == nil {
		return false
	}
	for _, q := range a {
		if !q.Match(f) {
			return false
		}
	}
	return true
}

func (a All) Key() string {
	keys := make([]string, len(a))
	for i, q := range a {
		keys[i] = q.Key()
	}
	return strings.Join(keys, "&")
}

func (a All) String() string { return a.Key() }
