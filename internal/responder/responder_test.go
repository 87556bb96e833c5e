package responder

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"firestige.xyz/framesmith/internal/core"
	"firestige.xyz/framesmith/internal/frame"
	"firestige.xyz/framesmith/internal/header"
	"firestige.xyz/framesmith/internal/log"
	"firestige.xyz/framesmith/internal/match"
)

// queueTransport replays queued frames and records sent ones.
type queueTransport struct {
	in   [][]byte
	sent [][]byte
}

func (q *queueTransport) Receive() ([]byte, error) {
	if len(q.in) == 0 {
		return nil, io.EOF
	}
	raw := q.in[0]
	q.in = q.in[1:]
	if raw == nil {
		return nil, core.ErrTimeout
	}
	return raw, nil
}

func (q *queueTransport) Send(b []byte) error {
	q.sent = append(q.sent, append([]byte(nil), b...))
	return nil
}

type mockTransport struct {
	mock.Mock
}

func (m *mockTransport) Receive() ([]byte, error) {
	args := m.Called()
	b, _ := args.Get(0).([]byte)
	return b, args.Error(1)
}

func (m *mockTransport) Send(b []byte) error {
	return m.Called(b).Error(0)
}

func arpRequest(t *testing.T, senderMAC, senderIP string) []byte {
	t.Helper()
	a, err := header.NewARP(senderMAC, senderIP, "00:00:00:00:00:00", "192.168.1.101")
	require.NoError(t, err)
	e, err := header.NewEthernet(senderMAC, "ff:ff:ff:ff:ff:ff", header.EtherTypeARP)
	require.NoError(t, err)
	f := frame.New().Header(e).Header(a)
	require.NoError(t, f.Build())
	return f.Bytes()
}

var ourMAC = core.HardwareAddr{0xbb, 0xbb, 0xbb, 0xbb, 0xbb, 0xbb}

// swapReply answers an ARP request with ourMAC.
func swapReply(f *frame.Frame) (*frame.Frame, error) {
	link, _ := f.Link()
	eth, err := link.Ethernet()
	if err != nil {
		return nil, err
	}
	network, _ := f.Network()
	req, err := network.ARP()
	if err != nil {
		return nil, err
	}
	reply := header.ARPFrom(ourMAC, req.DstIP, req.SrcMAC, req.SrcIP)
	reply.SetReply()
	return frame.New().
		Header(header.EthernetFrom(ourMAC, eth.Src, header.EtherTypeARP)).
		Header(reply), nil
}

func requestRules() *match.RuleTable {
	rules := match.NewRuleTable()
	rules.AddRule(match.NewARPQuery().WithOpcode(header.OpRequest), swapReply)
	return rules
}

func TestRunRepliesOnceAndStops(t *testing.T) {
	tr := &queueTransport{in: [][]byte{
		arpRequest(t, "aa:aa:aa:aa:aa:aa", "192.168.1.100"),
		arpRequest(t, "aa:aa:aa:aa:aa:ab", "192.168.1.102"),
	}}
	r := New(tr, requestRules(), WithLimit(1), WithLogger(log.Discard()))

	require.NoError(t, r.Run(context.Background()))
	assert.Equal(t, 1, r.Sent())
	require.Len(t, tr.sent, 1)
	assert.Len(t, tr.in, 1, "the loop must stop before reading past the limit")
	assert.Equal(t, StateStopped, r.State())

	reply := frame.Parse(tr.sent[0])
	network, ok := reply.Network()
	require.True(t, ok)
	a, err := network.ARP()
	require.NoError(t, err)
	assert.True(t, a.IsReply())
	assert.Equal(t, ourMAC, a.SrcMAC)
	assert.Equal(t, "192.168.1.101", a.SrcIP.String())
	assert.Equal(t, "aa:aa:aa:aa:aa:aa", a.DstMAC.String())
	assert.Equal(t, "192.168.1.100", a.DstIP.String())
	assert.Len(t, tr.sent[0], header.MinFrameLen)
}

func TestRunSkipsUnmatchedAndTimeouts(t *testing.T) {
	ip, err := header.NewIPv4("10.0.0.1", "10.0.0.2", header.ProtoUDP)
	require.NoError(t, err)
	e, err := header.NewEthernet("aa:aa:aa:aa:aa:aa", "bb:bb:bb:bb:bb:bb", header.EtherTypeIPv4)
	require.NoError(t, err)
	other := frame.New().Header(e).Header(ip)
	require.NoError(t, other.Build())

	tr := &queueTransport{in: [][]byte{
		other.Bytes(),
		nil, // poll timeout
		arpRequest(t, "aa:aa:aa:aa:aa:aa", "192.168.1.100"),
	}}
	r := New(tr, requestRules(), WithLogger(log.Discard()))

	require.NoError(t, r.Run(context.Background()))
	assert.Equal(t, 1, r.Sent())
	assert.Empty(t, tr.in)
}

func TestRunDropsFailedTransformAndBuild(t *testing.T) {
	rules := match.NewRuleTable()
	rules.Add(match.Rule{
		Name:      "broken",
		Predicate: match.NewARPQuery().WithSrcIP(core.IPv4Addr{192, 168, 1, 100}),
		Transform: func(*frame.Frame) (*frame.Frame, error) { return nil, errors.New("no") },
	})
	rules.Add(match.Rule{
		Name:      "unbuildable",
		Predicate: match.NewARPQuery().WithSrcIP(core.IPv4Addr{192, 168, 1, 102}),
		Transform: func(*frame.Frame) (*frame.Frame, error) { return frame.New(), nil },
	})
	rules.Add(match.Rule{
		Name:      "silent",
		Predicate: match.NewARPQuery().WithSrcIP(core.IPv4Addr{192, 168, 1, 103}),
		Transform: func(*frame.Frame) (*frame.Frame, error) { return nil, nil },
	})
	rules.AddRule(match.NewARPQuery(), swapReply)

	tr := &queueTransport{in: [][]byte{
		arpRequest(t, "aa:aa:aa:aa:aa:aa", "192.168.1.100"),
		arpRequest(t, "aa:aa:aa:aa:aa:aa", "192.168.1.102"),
		arpRequest(t, "aa:aa:aa:aa:aa:aa", "192.168.1.103"),
		arpRequest(t, "aa:aa:aa:aa:aa:aa", "192.168.1.104"),
	}}
	r := New(tr, rules, WithLogger(log.Discard()))

	require.NoError(t, r.Run(context.Background()))
	assert.Equal(t, 1, r.Sent())
	assert.Len(t, tr.sent, 1)
}

func TestRunSendFailureEndsRun(t *testing.T) {
	tr := new(mockTransport)
	tr.On("Receive").Return(arpRequest(t, "aa:aa:aa:aa:aa:aa", "192.168.1.100"), nil).Once()
	tr.On("Send", mock.Anything).Return(errors.New("link down")).Once()

	r := New(tr, requestRules(), WithLogger(log.Discard()))
	err := r.Run(context.Background())

	assert.ErrorIs(t, err, core.ErrChannel)
	assert.Contains(t, err.Error(), "link down")
	assert.Equal(t, 0, r.Sent())
	tr.AssertExpectations(t)
}

func TestRunReceiveFailureEndsRun(t *testing.T) {
	tr := new(mockTransport)
	tr.On("Receive").Return(nil, errors.New("socket closed")).Once()

	err := New(tr, requestRules(), WithLogger(log.Discard())).Run(context.Background())
	assert.ErrorIs(t, err, core.ErrChannel)
	tr.AssertExpectations(t)
}

func TestRunHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tr := &queueTransport{in: [][]byte{arpRequest(t, "aa:aa:aa:aa:aa:aa", "192.168.1.100")}}
	err := New(tr, requestRules(), WithLogger(log.Discard())).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, tr.sent)
}

func TestCooldownSuppressesRepeats(t *testing.T) {
	req := arpRequest(t, "aa:aa:aa:aa:aa:aa", "192.168.1.100")
	tr := &queueTransport{in: [][]byte{
		req,
		req,
		arpRequest(t, "aa:aa:aa:aa:aa:ab", "192.168.1.102"),
	}}
	r := New(tr, requestRules(), WithCooldown(time.Minute), WithLogger(log.Discard()))

	require.NoError(t, r.Run(context.Background()))
	assert.Equal(t, 2, r.Sent())
}

func TestZeroCooldownRepliesEveryTime(t *testing.T) {
	req := arpRequest(t, "aa:aa:aa:aa:aa:aa", "192.168.1.100")
	tr := &queueTransport{in: [][]byte{req, req}}
	r := New(tr, requestRules(), WithCooldown(0), WithLogger(log.Discard()))

	require.NoError(t, r.Run(context.Background()))
	assert.Equal(t, 2, r.Sent())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "waiting", StateWaiting.String())
	assert.Equal(t, "dispatching", StateDispatching.String())
	assert.Equal(t, "stopped", StateStopped.String())
}

func TestSetRulesTakesEffectOnNextFrame(t *testing.T) {
	tr := new(mockTransport)
	r := New(tr, match.NewRuleTable(), WithLogger(log.Discard()))

	req := arpRequest(t, "aa:aa:aa:aa:aa:aa", "192.168.1.100")
	tr.On("Receive").Return(req, nil).Once()
	tr.On("Receive").Return(req, nil).Once().Run(func(mock.Arguments) {
		r.SetRules(requestRules())
	})
	tr.On("Receive").Return(nil, io.EOF).Once()
	tr.On("Send", mock.Anything).Return(nil).Once()

	require.NoError(t, r.Run(context.Background()))
	assert.Equal(t, 1, r.Sent())
	tr.AssertExpectations(t)
}
