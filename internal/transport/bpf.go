package transport

import (
	"fmt"
	"strings"

	"golang.org/x/net/bpf"

	"firestige.xyz/framesmith/internal/core"
	"firestige.xyz/framesmith/internal/header"
)

// acceptLen is the snapshot returned for accepted frames.
const acceptLen = 0x40000

var etherTypes = map[string]uint16{
	"arp":  header.EtherTypeARP,
	"ipv4": header.EtherTypeIPv4,
}

// EtherTypeFilter assembles a classic BPF program accepting Ethernet frames
// whose EtherType is one of names ("arp", "ipv4").
func EtherTypeFilter(names ...string) ([]bpf.RawInstruction, error) {
	prog, err := etherTypeProgram(names)
	if err != nil {
		return nil, err
	}
	return bpf.Assemble(prog)
}

func etherTypeProgram(names []string) ([]bpf.Instruction, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("ethertype filter needs at least one protocol: %w", core.ErrConfigInvalid)
	}
	values := make([]uint16, 0, len(names))
	for _, name := range names {
		v, ok := etherTypes[strings.ToLower(name)]
		if !ok {
			return nil, fmt.Errorf("ethertype filter: unknown protocol %q: %w", name, core.ErrConfigInvalid)
		}
		values = append(values, v)
	}

	k := len(values)
	prog := make([]bpf.Instruction, 0, k+3)
	// EtherType sits at offset 12 of an untagged Ethernet header.
	prog = append(prog, bpf.LoadAbsolute{Off: 12, Size: 2})
	for i, v := range values {
		// Jump over the remaining tests and the drop to the accept.
		prog = append(prog, bpf.JumpIf{Cond: bpf.JumpEqual, Val: uint32(v), SkipTrue: uint8(k - i)})
	}
	prog = append(prog,
		bpf.RetConstant{Val: 0},
		bpf.RetConstant{Val: acceptLen},
	)
	return prog, nil
}
