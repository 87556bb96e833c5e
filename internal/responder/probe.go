package responder

import (
	"context"
	"errors"
	"fmt"
	"io"

	"firestige.xyz/framesmith/internal/core"
	"firestige.xyz/framesmith/internal/frame"
	"firestige.xyz/framesmith/internal/match"
)

// Probe sends request and returns the first received frame matching expect.
// It fails with core.ErrTimeout when ctx expires or the transport runs dry
// before a match.
func Probe(ctx context.Context, t Transport, request *frame.Frame, expect match.Predicate) (*frame.Frame, error) {
	if request.Bytes() == nil {
		if err := request.Build(); err != nil {
			return nil, fmt.Errorf("probe: %w", err)
		}
	}
	if err := t.Send(request.Bytes()); err != nil {
		return nil, fmt.Errorf("probe send: %w: %w", core.ErrChannel, err)
	}

	for {
		if err := ctx.Err(); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return nil, fmt.Errorf("probe: no reply matching %s: %w", expect, core.ErrTimeout)
			}
			return nil, err
		}

		raw, err := t.Receive()
		if err != nil {
			switch {
			case errors.Is(err, core.ErrTimeout):
				continue
			case errors.Is(err, io.EOF):
				return nil, fmt.Errorf("probe: transport exhausted before a reply matching %s: %w", expect, core.ErrTimeout)
			default:
				return nil, fmt.Errorf("probe receive: %w: %w", core.ErrChannel, err)
			}
		}

		if f := frame.Parse(raw); expect.Match(f) {
			return f, nil
		}
	}
}
