package transport

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

// Replay receives frames from a pcap stream and records sent frames to an
// optional pcap stream. Receive returns io.EOF once the input is exhausted.
type Replay struct {
	name    string
	reader  *pcapgo.Reader
	writer  *pcapgo.Writer
	closers []io.Closer
	now     func() time.Time
	sent    int
}

// NewReplay reads pcap data from in; sent frames go to out when it is not nil.
func NewReplay(name string, in io.Reader, out io.Writer) (*Replay, error) {
	r, err := pcapgo.NewReader(in)
	if err != nil {
		return nil, fmt.Errorf("replay %s: %w", name, err)
	}
	if lt := r.LinkType(); lt != layers.LinkTypeEthernet {
		return nil, fmt.Errorf("replay %s: link type %s, want ethernet", name, lt)
	}
	rp := &Replay{name: name, reader: r, now: time.Now}
	if out != nil {
		w := pcapgo.NewWriter(out)
		if err := w.WriteFileHeader(uint32(r.Snaplen()), layers.LinkTypeEthernet); err != nil {
			return nil, fmt.Errorf("replay %s output header: %w", name, err)
		}
		rp.writer = w
	}
	return rp, nil
}

// OpenReplay opens inPath for reading and, when outPath is set, creates it
// for the frames sent.
func OpenReplay(inPath, outPath string) (*Replay, error) {
	in, err := os.Open(inPath)
	if err != nil {
		return nil, fmt.Errorf("open replay input: %w", err)
	}
	closers := []io.Closer{in}

	var out io.Writer
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			in.Close()
			return nil, fmt.Errorf("create replay output: %w", err)
		}
		out = f
		closers = append(closers, f)
	}

	rp, err := NewReplay(inPath, in, out)
	if err != nil {
		for _, c := range closers {
			c.Close()
		}
		return nil, err
	}
	rp.closers = closers
	return rp, nil
}

func (r *Replay) Receive() ([]byte, error) {
	data, _, err := r.reader.ReadPacketData()
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (r *Replay) Send(frame []byte) error {
	r.sent++
	if r.writer == nil {
		return nil
	}
	ci := gopacket.CaptureInfo{
		Timestamp:     r.now(),
		CaptureLength: len(frame),
		Length:        len(frame),
	}
	if err := r.writer.WritePacket(ci, frame); err != nil {
		return fmt.Errorf("replay %s write: %w", r.name, err)
	}
	return nil
}

// Sent returns the number of frames passed to Send.
func (r *Replay) Sent() int { return r.sent }

func (r *Replay) Name() string { return r.name }

func (r *Replay) Close() error {
	var first error
	for _, c := range r.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
