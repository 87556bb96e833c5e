package ruleset

import (
	"fmt"
	"strconv"
	"strings"

	"firestige.xyz/framesmith/internal/config"
	"firestige.xyz/framesmith/internal/core"
	"firestige.xyz/framesmith/internal/header"
	"firestige.xyz/framesmith/internal/match"
)

// Compile builds the rule table for cfg in file order. Rules whose match
// compiles to the same key replace the earlier rule in place.
func Compile(cfg config.ResponderConfig, env Env) (*match.RuleTable, error) {
	table := match.NewRuleTable()
	for i, rc := range cfg.Rules {
		p, err := Predicate(rc.Match)
		if err != nil {
			return nil, fmt.Errorf("rule %d (%s): %w", i, rc.Name, err)
		}
		factory, err := Lookup(rc.Action.Type)
		if err != nil {
			return nil, fmt.Errorf("rule %d (%s): %w", i, rc.Name, err)
		}
		transform, err := factory(rc.Action, env)
		if err != nil {
			return nil, fmt.Errorf("rule %d (%s): action %s: %w", i, rc.Name, rc.Action.Type, err)
		}
		table.Add(match.Rule{Name: rc.Name, Predicate: p, Transform: transform})
	}
	return table, nil
}

// Predicate turns a match section into a query. Several layers combine into
// a match.All.
func Predicate(m config.MatchConfig) (match.Predicate, error) {
	var ps match.All

	if m.Ethernet != nil {
		q := match.NewEthernetQuery()
		if m.Ethernet.Src != nil {
			q.WithSrc(*m.Ethernet.Src)
		}
		if m.Ethernet.Dst != nil {
			q.WithDst(*m.Ethernet.Dst)
		}
		if m.Ethernet.EtherType != nil {
			q.WithEtherType(*m.Ethernet.EtherType)
		}
		ps = append(ps, q)
	}

	if m.ARP != nil {
		q := match.NewARPQuery()
		if m.ARP.Opcode != "" {
			op, err := ParseOpcode(m.ARP.Opcode)
			if err != nil {
				return nil, err
			}
			q.WithOpcode(op)
		}
		if m.ARP.SenderMAC != nil {
			q.WithSrcMAC(*m.ARP.SenderMAC)
		}
		if m.ARP.SenderIP != nil {
			q.WithSrcIP(*m.ARP.SenderIP)
		}
		if m.ARP.TargetMAC != nil {
			q.WithDstMAC(*m.ARP.TargetMAC)
		}
		if m.ARP.TargetIP != nil {
			q.WithDstIP(*m.ARP.TargetIP)
		}
		ps = append(ps, q)
	}

	if m.IPv4 != nil {
		if m.ARP != nil {
			return nil, fmt.Errorf("match has both arp and ipv4 at the network layer: %w", core.ErrConfigInvalid)
		}
		q := match.NewIPv4Query()
		if m.IPv4.Src != nil {
			q.WithSrc(*m.IPv4.Src)
		}
		if m.IPv4.Dst != nil {
			q.WithDst(*m.IPv4.Dst)
		}
		if m.IPv4.Protocol != nil {
			q.WithProtocol(*m.IPv4.Protocol)
		}
		if m.IPv4.TTL != nil {
			q.WithTTL(*m.IPv4.TTL)
		}
		ps = append(ps, q)
	}

	switch len(ps) {
	case 0:
		return nil, fmt.Errorf("match is empty: %w", core.ErrConfigInvalid)
	case 1:
		return ps[0], nil
	default:
		return ps, nil
	}
}

// ParseOpcode accepts "request", "reply" or a numeric opcode.
func ParseOpcode(s string) (uint16, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "request":
		return header.OpRequest, nil
	case "reply":
		return header.OpReply, nil
	}
	n, err := strconv.ParseUint(s, 0, 16)
	if err != nil {
		return 0, fmt.Errorf("arp opcode %q: %w", s, core.ErrConfigInvalid)
	}
	return uint16(n), nil
}
