// Package transport provides the frame channels the responder, probe and
// capture commands run on: raw AF_PACKET sockets and pcap file replay.
package transport

import (
	"io"
	"time"

	"firestige.xyz/framesmith/internal/config"
)

// Channel is a Transport that owns an OS resource.
type Channel interface {
	Send(frame []byte) error
	Receive() ([]byte, error)
	Name() string
	io.Closer
}

// Options configures an AF_PACKET channel.
type Options struct {
	Interface    string
	SnapLen      int
	BufferSizeMB int
	Timeout      time.Duration
	Filter       []string // EtherType names, see EtherTypeFilter
}

// OptionsFrom maps the interface section of the configuration.
func OptionsFrom(cfg config.InterfaceConfig) Options {
	return Options{
		Interface:    cfg.Name,
		SnapLen:      cfg.SnapLen,
		BufferSizeMB: cfg.BufferSizeMB,
		Timeout:      cfg.Timeout,
		Filter:       cfg.Filter,
	}
}

// Open returns a replay channel when cfg names a pcap file, otherwise an
// AF_PACKET channel on cfg.Name.
func Open(cfg config.InterfaceConfig) (Channel, error) {
	if cfg.Replay != "" {
		rp, err := OpenReplay(cfg.Replay, cfg.ReplayOutput)
		if err != nil {
			return nil, err
		}
		return rp, nil
	}
	ap, err := NewAFPacket(OptionsFrom(cfg))
	if err != nil {
		return nil, err
	}
	return ap, nil
}
