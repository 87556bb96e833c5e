package transport

import (
	"fmt"
	"net"

	"github.com/vishvananda/netlink"

	"firestige.xyz/framesmith/internal/core"
)

// Interface describes a network link and its IPv4 addresses.
type Interface struct {
	Name     string
	Index    int
	MTU      int
	MAC      core.HardwareAddr
	IPv4     []core.IPv4Addr
	Up       bool
	Loopback bool
}

// Interfaces lists the links known to the kernel.
func Interfaces() ([]Interface, error) {
	links, err := netlink.LinkList()
	if err != nil {
		return nil, fmt.Errorf("list links: %w: %w", core.ErrInterface, err)
	}
	out := make([]Interface, 0, len(links))
	for _, l := range links {
		iface, err := describe(l)
		if err != nil {
			return nil, err
		}
		out = append(out, iface)
	}
	return out, nil
}

// LookupInterface returns the link called name.
func LookupInterface(name string) (Interface, error) {
	l, err := netlink.LinkByName(name)
	if err != nil {
		return Interface{}, fmt.Errorf("link %s: %w: %w", name, core.ErrInterface, err)
	}
	return describe(l)
}

// DefaultInterface returns the link PickDefault selects.
func DefaultInterface() (Interface, error) {
	ifaces, err := Interfaces()
	if err != nil {
		return Interface{}, err
	}
	return PickDefault(ifaces)
}

// Resolve returns the named link, or the default one for an empty name.
func Resolve(name string) (Interface, error) {
	if name == "" {
		return DefaultInterface()
	}
	return LookupInterface(name)
}

// PickDefault returns the first interface that is up, not loopback and has
// an IPv4 address.
func PickDefault(ifaces []Interface) (Interface, error) {
	for _, iface := range ifaces {
		if iface.Up && !iface.Loopback && len(iface.IPv4) > 0 {
			return iface, nil
		}
	}
	return Interface{}, fmt.Errorf("no usable interface (up, non-loopback, with ipv4): %w", core.ErrInterface)
}

func describe(l netlink.Link) (Interface, error) {
	attrs := l.Attrs()
	iface := Interface{
		Name:     attrs.Name,
		Index:    attrs.Index,
		MTU:      attrs.MTU,
		Up:       attrs.Flags&net.FlagUp != 0,
		Loopback: attrs.Flags&net.FlagLoopback != 0,
	}
	if len(attrs.HardwareAddr) == len(iface.MAC) {
		copy(iface.MAC[:], attrs.HardwareAddr)
	}

	addrs, err := netlink.AddrList(l, netlink.FAMILY_V4)
	if err != nil {
		return Interface{}, fmt.Errorf("addresses of %s: %w: %w", attrs.Name, core.ErrInterface, err)
	}
	for _, a := range addrs {
		if a.IPNet == nil {
			continue
		}
		if ip4 := a.IP.To4(); ip4 != nil {
			var ip core.IPv4Addr
			copy(ip[:], ip4)
			iface.IPv4 = append(iface.IPv4, ip)
		}
	}
	return iface, nil
}

// PrimaryIPv4 returns the first IPv4 address, or the zero address.
func (i Interface) PrimaryIPv4() core.IPv4Addr {
	if len(i.IPv4) == 0 {
		return core.IPv4Addr{}
	}
	return i.IPv4[0]
}

func (i Interface) String() string {
	state := "down"
	if i.Up {
		state = "up"
	}
	return fmt.Sprintf("%d: %s %s mtu %d %s %v", i.Index, i.Name, i.MAC, i.MTU, state, i.IPv4)
}
