// Package capture records received frames to pcap files.
package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"firestige.xyz/framesmith/internal/core"
	"firestige.xyz/framesmith/internal/frame"
	"firestige.xyz/framesmith/internal/log"
	"firestige.xyz/framesmith/internal/match"
	"firestige.xyz/framesmith/internal/metrics"
)

// Receiver is the receive half of a transport.
type Receiver interface {
	Receive() ([]byte, error)
}

// Sink stores captured frames.
type Sink interface {
	Append(raw []byte, ts time.Time) error
	Name() string
	io.Closer
}

// PcapSink writes Ethernet frames in pcap format.
type PcapSink struct {
	name    string
	snapLen int
	w       *pcapgo.Writer
	closer  io.Closer
}

// NewPcapSink writes the pcap file header to w. Frames longer than snapLen
// are truncated.
func NewPcapSink(name string, w io.Writer, snapLen int) (*PcapSink, error) {
	if snapLen <= 0 {
		return nil, fmt.Errorf("pcap sink %s: snaplen %d: %w", name, snapLen, core.ErrConfigInvalid)
	}
	pw := pcapgo.NewWriter(w)
	if err := pw.WriteFileHeader(uint32(snapLen), layers.LinkTypeEthernet); err != nil {
		return nil, fmt.Errorf("pcap sink %s header: %w", name, err)
	}
	s := &PcapSink{name: name, snapLen: snapLen, w: pw}
	if c, ok := w.(io.Closer); ok {
		s.closer = c
	}
	return s, nil
}

// CreatePcapFile creates (or truncates) path and returns a sink writing to it.
func CreatePcapFile(path string, snapLen int) (*PcapSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create capture file: %w", err)
	}
	s, err := NewPcapSink(path, f, snapLen)
	if err != nil {
		f.Close()
		return nil, err
	}
	return s, nil
}

func (s *PcapSink) Append(raw []byte, ts time.Time) error {
	data := raw
	if len(data) > s.snapLen {
		data = data[:s.snapLen]
	}
	ci := gopacket.CaptureInfo{
		Timestamp:     ts,
		CaptureLength: len(data),
		Length:        len(raw),
	}
	if err := s.w.WritePacket(ci, data); err != nil {
		return fmt.Errorf("pcap sink %s: %w", s.name, err)
	}
	return nil
}

func (s *PcapSink) Name() string { return s.name }

func (s *PcapSink) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// Recorder copies frames from a Receiver into a Sink.
type Recorder struct {
	src    Receiver
	sink   Sink
	filter match.Predicate
	count  int
	now    func() time.Time
	logger log.Logger
}

type Option func(*Recorder)

// WithCount stops recording after n frames. Zero means until the source ends
// or the context is cancelled.
func WithCount(n int) Option {
	return func(r *Recorder) { r.count = n }
}

// WithFilter records only frames the predicate matches.
func WithFilter(p match.Predicate) Option {
	return func(r *Recorder) { r.filter = p }
}

func WithLogger(l log.Logger) Option {
	return func(r *Recorder) { r.logger = l }
}

func NewRecorder(src Receiver, sink Sink, opts ...Option) *Recorder {
	r := &Recorder{
		src:    src,
		sink:   sink,
		now:    time.Now,
		logger: log.GetLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.WithField("sink", sink.Name())
	return r
}

// Run records until the count is reached, the source is exhausted or ctx is
// done. It returns the number of frames written.
func (r *Recorder) Run(ctx context.Context) (int, error) {
	written := 0
	for r.count == 0 || written < r.count {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		raw, err := r.src.Receive()
		switch {
		case errors.Is(err, core.ErrTimeout):
			continue
		case errors.Is(err, io.EOF):
			return written, nil
		case err != nil:
			return written, fmt.Errorf("receive: %w: %w", core.ErrChannel, err)
		}

		if r.filter != nil && !r.filter.Match(frame.Parse(raw)) {
			continue
		}
		if err := r.sink.Append(raw, r.now()); err != nil {
			return written, err
		}
		written++
		metrics.CaptureFramesTotal.WithLabelValues(r.sink.Name()).Inc()
		if r.logger.IsDebugEnabled() {
			r.logger.Debugf("captured frame %d (%d bytes)", written, len(raw))
		}
	}
	r.logger.Infof("capture finished after %d frames", written)
	return written, nil
}
