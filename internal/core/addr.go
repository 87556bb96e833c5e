package core

import (
	"fmt"
	"net/netip"
	"strconv"
	"strings"
)

// HardwareAddr is a 48-bit Ethernet MAC address.
type HardwareAddr [6]byte

// IPv4Addr is a 32-bit IPv4 address in network byte order.
type IPv4Addr [4]byte

// BroadcastMAC is ff:ff:ff:ff:ff:ff.
var BroadcastMAC = HardwareAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

// ParseMAC parses six colon-separated two-digit hex octets, e.g. "aa:bb:cc:dd:ee:ff".
// A wrong group count is a construct error, a bad octet a parse error.
func ParseMAC(s string) (HardwareAddr, error) {
	var mac HardwareAddr
	groups := strings.Split(s, ":")
	if len(groups) != len(mac) {
		return mac, fmt.Errorf("mac %q: want 6 octets, got %d: %w", s, len(groups), ErrConstruct)
	}
	for i, g := range groups {
		if len(g) != 2 {
			return mac, fmt.Errorf("mac %q: octet %q is not two hex digits: %w", s, g, ErrParse)
		}
		v, err := strconv.ParseUint(g, 16, 8)
		if err != nil {
			return mac, fmt.Errorf("mac %q: octet %q: %w", s, g, ErrParse)
		}
		mac[i] = byte(v)
	}
	return mac, nil
}

// ParseIPv4 parses a dotted-decimal IPv4 address, e.g. "192.168.1.1".
func ParseIPv4(s string) (IPv4Addr, error) {
	var ip IPv4Addr
	if strings.Count(s, ".") != 3 {
		return ip, fmt.Errorf("ipv4 %q: want 4 octets: %w", s, ErrConstruct)
	}
	addr, err := netip.ParseAddr(strings.TrimSpace(s))
	if err != nil || !addr.Is4() {
		return ip, fmt.Errorf("ipv4 %q: %w", s, ErrParse)
	}
	return IPv4Addr(addr.As4()), nil
}

func (m HardwareAddr) String() string {
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", m[0], m[1], m[2], m[3], m[4], m[5])
}

// IsZero reports whether m is 00:00:00:00:00:00.
func (m HardwareAddr) IsZero() bool {
	return m == HardwareAddr{}
}

func (m HardwareAddr) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *HardwareAddr) UnmarshalText(text []byte) error {
	mac, err := ParseMAC(string(text))
	if err != nil {
		return err
	}
	*m = mac
	return nil
}

func (ip IPv4Addr) String() string {
	return netip.AddrFrom4(ip).String()
}

// Addr converts ip to a netip.Addr.
func (ip IPv4Addr) Addr() netip.Addr {
	return netip.AddrFrom4(ip)
}

func (ip IPv4Addr) MarshalText() ([]byte, error) {
	return []byte(ip.String()), nil
}

func (ip *IPv4Addr) UnmarshalText(text []byte) error {
	addr, err := ParseIPv4(string(text))
	if err != nil {
		return err
	}
	*ip = addr
	return nil
}
