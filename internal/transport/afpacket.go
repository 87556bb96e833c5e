//go:build linux && cgo

package transport

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/gopacket/afpacket"

	"firestige.xyz/framesmith/internal/core"
)

// AFPacket sends and receives raw Ethernet frames on one interface through a
// TPACKET_V3 ring.
type AFPacket struct {
	handle *afpacket.TPacket
	name   string
}

// NewAFPacket opens a raw socket on opts.Interface. The ring is sized from
// SnapLen and BufferSizeMB; Filter names the EtherTypes let through.
func NewAFPacket(opts Options) (*AFPacket, error) {
	frameSize, blockSize, numBlocks, err := recomputeSize(opts.BufferSizeMB, opts.SnapLen, os.Getpagesize())
	if err != nil {
		return nil, fmt.Errorf("afpacket ring on %s: %w", opts.Interface, err)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 100 * time.Millisecond
	}

	tp, err := afpacket.NewTPacket(
		afpacket.OptInterface(opts.Interface),
		afpacket.OptFrameSize(frameSize),
		afpacket.OptBlockSize(blockSize),
		afpacket.OptNumBlocks(numBlocks),
		afpacket.OptPollTimeout(timeout),
		afpacket.OptBlockTimeout(timeout),
		afpacket.SocketRaw,
		afpacket.TPacketVersion3,
	)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w: %w", opts.Interface, core.ErrInterface, err)
	}

	if len(opts.Filter) > 0 {
		prog, err := EtherTypeFilter(opts.Filter...)
		if err != nil {
			tp.Close()
			return nil, err
		}
		if err := tp.SetBPF(prog); err != nil {
			tp.Close()
			return nil, fmt.Errorf("attach filter on %s: %w: %w", opts.Interface, core.ErrInterface, err)
		}
	}

	return &AFPacket{handle: tp, name: opts.Interface}, nil
}

// Receive returns the next frame. An expired poll yields core.ErrTimeout.
func (a *AFPacket) Receive() ([]byte, error) {
	data, _, err := a.handle.ReadPacketData()
	if err != nil {
		if errors.Is(err, afpacket.ErrTimeout) {
			return nil, core.ErrTimeout
		}
		return nil, fmt.Errorf("read %s: %w", a.name, err)
	}
	return data, nil
}

func (a *AFPacket) Send(frame []byte) error {
	if err := a.handle.WritePacketData(frame); err != nil {
		return fmt.Errorf("write %s: %w", a.name, err)
	}
	return nil
}

func (a *AFPacket) Name() string { return a.name }

func (a *AFPacket) Close() error {
	a.handle.Close()
	return nil
}
