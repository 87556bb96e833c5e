package ruleset

import (
	"fmt"

	"firestige.xyz/framesmith/internal/config"
	"firestige.xyz/framesmith/internal/core"
	"firestige.xyz/framesmith/internal/frame"
	"firestige.xyz/framesmith/internal/header"
	"firestige.xyz/framesmith/internal/match"
)

func actionMAC(cfg config.ActionConfig, env Env) core.HardwareAddr {
	if cfg.MAC != nil {
		return *cfg.MAC
	}
	return env.MAC
}

func newSwap(cfg config.ActionConfig, env Env) (match.Transform, error) {
	return Swap(actionMAC(cfg, env)), nil
}

func newARPReply(cfg config.ActionConfig, env Env) (match.Transform, error) {
	mac := actionMAC(cfg, env)
	if mac.IsZero() {
		return nil, fmt.Errorf("arp_reply needs action.mac or an interface address: %w", core.ErrConfigInvalid)
	}
	return ARPReply(mac), nil
}

// Swap returns a transform that sends a frame back where it came from.
// Link and network addresses trade places and ARP requests become replies.
// A non-zero mac becomes the new link source and ARP sender hardware address.
func Swap(mac core.HardwareAddr) match.Transform {
	return func(f *frame.Frame) (*frame.Frame, error) {
		link, ok := f.Link()
		if !ok {
			return nil, fmt.Errorf("swap: no link header: %w", core.ErrMissingLayer)
		}
		eth, err := link.Ethernet()
		if err != nil {
			return nil, fmt.Errorf("swap: %w", err)
		}
		network, ok := f.Network()
		if !ok {
			return nil, fmt.Errorf("swap: no network header: %w", core.ErrMissingLayer)
		}

		src := eth.Dst
		if !mac.IsZero() {
			src = mac
		}
		out := frame.New().Header(header.EthernetFrom(src, eth.Src, uint16(eth.EtherType.Value())))

		switch network.Kind() {
		case header.KindARP:
			a, _ := network.ARP()
			sender := a.DstMAC
			if !mac.IsZero() {
				sender = mac
			}
			a.SrcMAC, a.DstMAC = sender, a.SrcMAC
			a.SrcIP, a.DstIP = a.DstIP, a.SrcIP
			if a.IsRequest() {
				a.SetReply()
			}
			out.SetHeader(a)
		case header.KindIPv4:
			ip, _ := network.IPv4()
			ip.Src, ip.Dst = ip.Dst, ip.Src
			out.SetHeader(ip)
		default:
			return nil, fmt.Errorf("swap: %s header: %w", network.Kind(), core.ErrUnwrapHeader)
		}
		return out, nil
	}
}

// ARPReply answers ARP requests claiming the requested address for mac.
// Frames other than ARP requests yield no reply.
func ARPReply(mac core.HardwareAddr) match.Transform {
	return func(f *frame.Frame) (*frame.Frame, error) {
		network, ok := f.Network()
		if !ok {
			return nil, nil
		}
		req, err := network.ARP()
		if err != nil || !req.IsRequest() {
			return nil, nil
		}
		reply := header.ARPFrom(mac, req.DstIP, req.SrcMAC, req.SrcIP)
		reply.SetReply()
		return frame.New().
			Header(header.EthernetFrom(mac, req.SrcMAC, header.EtherTypeARP)).
			Header(reply), nil
	}
}

// NewRequest builds an ARP who-has frame for target, broadcast on the link.
func NewRequest(mac core.HardwareAddr, ip, target core.IPv4Addr) *frame.Frame {
	return frame.New().
		Header(header.EthernetFrom(mac, core.BroadcastMAC, header.EtherTypeARP)).
		Header(header.ARPFrom(mac, ip, core.HardwareAddr{}, target))
}
