package responder

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/framesmith/internal/core"
	"firestige.xyz/framesmith/internal/frame"
	"firestige.xyz/framesmith/internal/header"
	"firestige.xyz/framesmith/internal/match"
)

func buildReply(t *testing.T, senderIP string) []byte {
	t.Helper()
	a, err := header.NewARP("bb:bb:bb:bb:bb:bb", senderIP, "aa:aa:aa:aa:aa:aa", "192.168.1.100")
	require.NoError(t, err)
	a.SetReply()
	e, err := header.NewEthernet("bb:bb:bb:bb:bb:bb", "aa:aa:aa:aa:aa:aa", header.EtherTypeARP)
	require.NoError(t, err)
	f := frame.New().Header(e).Header(a)
	require.NoError(t, f.Build())
	return f.Bytes()
}

func probeRequest(t *testing.T) *frame.Frame {
	t.Helper()
	return frame.Parse(arpRequest(t, "aa:aa:aa:aa:aa:aa", "192.168.1.100"))
}

func TestProbeReturnsFirstMatch(t *testing.T) {
	tr := &queueTransport{in: [][]byte{
		buildReply(t, "192.168.1.50"),
		nil,
		buildReply(t, "192.168.1.101"),
	}}
	expect := match.NewARPQuery().WithOpcode(header.OpReply).WithSrcIP(core.IPv4Addr{192, 168, 1, 101})

	got, err := Probe(context.Background(), tr, probeRequest(t), expect)
	require.NoError(t, err)
	require.Len(t, tr.sent, 1)

	network, ok := got.Network()
	require.True(t, ok)
	a, err := network.ARP()
	require.NoError(t, err)
	assert.Equal(t, "bb:bb:bb:bb:bb:bb", a.SrcMAC.String())
}

func TestProbeBuildsUnbuiltRequest(t *testing.T) {
	a, err := header.NewARP("aa:aa:aa:aa:aa:aa", "192.168.1.100", "00:00:00:00:00:00", "192.168.1.101")
	require.NoError(t, err)
	req := frame.New().Header(header.EthernetFrom(core.HardwareAddr{0xaa}, core.BroadcastMAC, header.EtherTypeARP)).Header(a)

	tr := &queueTransport{in: [][]byte{buildReply(t, "192.168.1.101")}}
	_, err = Probe(context.Background(), tr, req, match.NewARPQuery().WithOpcode(header.OpReply))
	require.NoError(t, err)
	assert.Len(t, tr.sent[0], header.MinFrameLen)

	_, err = Probe(context.Background(), tr, frame.New(), match.NewARPQuery())
	assert.ErrorIs(t, err, core.ErrMissingLayer)
}

func TestProbeTimesOut(t *testing.T) {
	tr := &queueTransport{in: [][]byte{buildReply(t, "192.168.1.50")}}
	_, err := Probe(context.Background(), tr, probeRequest(t), match.NewARPQuery().WithSrcIP(core.IPv4Addr{10, 0, 0, 1}))
	assert.ErrorIs(t, err, core.ErrTimeout)

	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()
	tr = &queueTransport{}
	_, err = Probe(ctx, tr, probeRequest(t), match.NewARPQuery())
	assert.ErrorIs(t, err, core.ErrTimeout)
}
