package transport

import (
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/bpf"

	"firestige.xyz/framesmith/internal/core"
)

func TestRecomputeSize(t *testing.T) {
	tests := []struct {
		name     string
		bufferMB int
		snapLen  int
		pageSize int
	}{
		{"default", 2, 1600, 4096},
		{"jumbo", 8, 9000, 4096},
		{"tiny", 1, 64, 4096},
		{"large page", 4, 1600, 65536},
		{"odd snaplen", 2, 1501, 4096},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frameSize, blockSize, numBlocks, err := recomputeSize(tt.bufferMB, tt.snapLen, tt.pageSize)
			require.NoError(t, err)

			assert.Zero(t, frameSize%16, "frame size aligned")
			assert.GreaterOrEqual(t, frameSize, tt.snapLen)
			assert.Zero(t, blockSize%tt.pageSize, "block size page multiple")
			assert.Zero(t, blockSize%frameSize, "block size frame multiple")
			assert.GreaterOrEqual(t, numBlocks, 1)
		})
	}
}

func TestRecomputeSizeInvalid(t *testing.T) {
	_, _, _, err := recomputeSize(0, 1600, 4096)
	assert.Error(t, err)
	_, _, _, err = recomputeSize(2, 0, 4096)
	assert.Error(t, err)
	_, _, _, err = recomputeSize(2, 1600, 1000)
	assert.Error(t, err)
}

func TestLCM(t *testing.T) {
	assert.Equal(t, 12, lcm(4, 6))
	assert.Equal(t, 4096, lcm(4096, 16))
	assert.Equal(t, 0, lcm(0, 5))
	assert.Equal(t, 6, gcd(54, 24))
}

func ethFrame(etherType uint16) []byte {
	frame := make([]byte, 60)
	frame[12] = byte(etherType >> 8)
	frame[13] = byte(etherType)
	return frame
}

func TestEtherTypeFilter(t *testing.T) {
	prog, err := etherTypeProgram([]string{"arp", "IPv4"})
	require.NoError(t, err)
	vm, err := bpf.NewVM(prog)
	require.NoError(t, err)

	for _, tt := range []struct {
		name      string
		etherType uint16
		accept    bool
	}{
		{"arp", 0x0806, true},
		{"ipv4", 0x0800, true},
		{"ipv6", 0x86dd, false},
		{"vlan", 0x8100, false},
	} {
		t.Run(tt.name, func(t *testing.T) {
			n, err := vm.Run(ethFrame(tt.etherType))
			require.NoError(t, err)
			if tt.accept {
				assert.NotZero(t, n)
			} else {
				assert.Zero(t, n)
			}
		})
	}

	raw, err := EtherTypeFilter("arp")
	require.NoError(t, err)
	assert.Len(t, raw, 4)
}

func TestEtherTypeFilterInvalid(t *testing.T) {
	_, err := EtherTypeFilter()
	assert.ErrorIs(t, err, core.ErrConfigInvalid)
	_, err = EtherTypeFilter("ipv6")
	assert.ErrorIs(t, err, core.ErrConfigInvalid)
}

func pcapOf(t *testing.T, frames ...[]byte) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	w := pcapgo.NewWriter(&buf)
	require.NoError(t, w.WriteFileHeader(1600, layers.LinkTypeEthernet))
	for _, f := range frames {
		ci := captureInfo(f)
		require.NoError(t, w.WritePacket(ci, f))
	}
	return &buf
}

func captureInfo(frame []byte) gopacket.CaptureInfo {
	return gopacket.CaptureInfo{
		Timestamp:     time.Unix(1700000000, 0),
		CaptureLength: len(frame),
		Length:        len(frame),
	}
}

func TestReplay(t *testing.T) {
	arp := ethFrame(0x0806)
	ip := ethFrame(0x0800)
	in := pcapOf(t, arp, ip)

	var out bytes.Buffer
	rp, err := NewReplay("test", in, &out)
	require.NoError(t, err)
	fixed := time.Unix(1700000000, 0)
	rp.now = func() time.Time { return fixed }

	got, err := rp.Receive()
	require.NoError(t, err)
	assert.Equal(t, arp, got)
	got, err = rp.Receive()
	require.NoError(t, err)
	assert.Equal(t, ip, got)
	_, err = rp.Receive()
	assert.ErrorIs(t, err, io.EOF)

	reply := ethFrame(0x0806)
	reply[0] = 0xaa
	require.NoError(t, rp.Send(reply))
	assert.Equal(t, 1, rp.Sent())
	assert.Equal(t, "test", rp.Name())
	require.NoError(t, rp.Close())

	r, err := pcapgo.NewReader(&out)
	require.NoError(t, err)
	data, ci, err := r.ReadPacketData()
	require.NoError(t, err)
	assert.Equal(t, reply, data)
	assert.True(t, ci.Timestamp.Equal(fixed))
}

func TestReplayWithoutOutput(t *testing.T) {
	rp, err := NewReplay("test", pcapOf(t), nil)
	require.NoError(t, err)
	require.NoError(t, rp.Send(ethFrame(0x0800)))
	assert.Equal(t, 1, rp.Sent())
}

func TestReplayRejectsOtherLinkType(t *testing.T) {
	var buf bytes.Buffer
	w := pcapgo.NewWriter(&buf)
	require.NoError(t, w.WriteFileHeader(1600, layers.LinkTypeRaw))
	_, err := NewReplay("raw", &buf, nil)
	assert.Error(t, err)

	_, err = NewReplay("garbage", bytes.NewReader([]byte("not a pcap file at all")), nil)
	assert.Error(t, err)
}

func TestOpenReplayMissingFile(t *testing.T) {
	_, err := OpenReplay(t.TempDir()+"/missing.pcap", "")
	assert.Error(t, err)
}

func TestPickDefault(t *testing.T) {
	ip := core.IPv4Addr{10, 0, 0, 2}
	ifaces := []Interface{
		{Name: "lo", Up: true, Loopback: true, IPv4: []core.IPv4Addr{{127, 0, 0, 1}}},
		{Name: "eth0", Up: false, IPv4: []core.IPv4Addr{ip}},
		{Name: "eth1", Up: true},
		{Name: "eth2", Up: true, IPv4: []core.IPv4Addr{ip}},
	}
	got, err := PickDefault(ifaces)
	require.NoError(t, err)
	assert.Equal(t, "eth2", got.Name)
	assert.Equal(t, ip, got.PrimaryIPv4())

	_, err = PickDefault(ifaces[:3])
	assert.ErrorIs(t, err, core.ErrInterface)
	assert.Equal(t, core.IPv4Addr{}, Interface{}.PrimaryIPv4())
}
