package frame

import (
	"encoding/hex"
	"strings"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// Describe renders raw as decoded by gopacket, one layer per block. It is
// meant for diagnostics and never fails.
func Describe(raw []byte) string {
	pkt := gopacket.NewPacket(raw, layers.LayerTypeEthernet, gopacket.NoCopy)
	var sb strings.Builder
	for _, l := range pkt.Layers() {
		sb.WriteString(gopacket.LayerString(l))
		sb.WriteByte('\n')
	}
	if fail := pkt.ErrorLayer(); fail != nil {
		sb.WriteString("decode error: ")
		sb.WriteString(fail.Error().Error())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Hex returns raw as a hexdump in the style of hexdump -C.
func Hex(raw []byte) string {
	return hex.Dump(raw)
}

// LayerTypes lists the gopacket layer types found in raw.
func LayerTypes(raw []byte) []gopacket.LayerType {
	pkt := gopacket.NewPacket(raw, layers.LayerTypeEthernet, gopacket.NoCopy)
	out := make([]gopacket.LayerType, 0, 2)
	for _, l := range pkt.Layers() {
		out = append(out, l.LayerType())
	}
	return out
}
