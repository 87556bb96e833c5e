//go:build !linux || !cgo

package transport

import (
	"fmt"

	"firestige.xyz/framesmith/internal/core"
)

// AFPacket is only available on Linux.
type AFPacket struct{}

func NewAFPacket(opts Options) (*AFPacket, error) {
	return nil, fmt.Errorf("afpacket on %s: unsupported platform: %w", opts.Interface, core.ErrInterface)
}

func (a *AFPacket) Receive() ([]byte, error) { return nil, core.ErrChannel }
func (a *AFPacket) Send([]byte) error        { return core.ErrChannel }
func (a *AFPacket) Name() string             { return "" }
func (a *AFPacket) Close() error             { return nil }
