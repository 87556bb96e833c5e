package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/framesmith/internal/bits"
	"firestige.xyz/framesmith/internal/core"
	"firestige.xyz/framesmith/internal/frame"
	"firestige.xyz/framesmith/internal/header"
)

func arpFrame(t *testing.T, reply bool) *frame.Frame {
	t.Helper()
	a, err := header.NewARP("aa:aa:aa:aa:aa:aa", "192.168.1.100", "bb:bb:bb:bb:bb:bb", "192.168.1.101")
	require.NoError(t, err)
	if reply {
		a.SetReply()
	}
	e, err := header.NewEthernet("aa:aa:aa:aa:aa:aa", "ff:ff:ff:ff:ff:ff", header.EtherTypeARP)
	require.NoError(t, err)
	return frame.New().Header(e).Header(a)
}

func ipv4Frame(t *testing.T) *frame.Frame {
	t.Helper()
	ip, err := header.NewIPv4("192.168.1.1", "192.168.10.2", header.ProtoTCP)
	require.NoError(t, err)
	e, err := header.NewEthernet("aa:aa:aa:aa:aa:aa", "bb:bb:bb:bb:bb:bb", header.EtherTypeIPv4)
	require.NoError(t, err)
	return frame.New().Header(e).Header(ip)
}

func TestOpcodeQueryMatchesAnyReply(t *testing.T) {
	q := NewARPQuery().WithOpcode(header.OpReply)

	assert.True(t, q.Match(arpFrame(t, true)))
	assert.False(t, q.Match(arpFrame(t, false)))
	assert.False(t, q.Match(ipv4Frame(t)))

	other, err := header.NewARP("01:02:03:04:05:06", "10.1.1.1", "06:05:04:03:02:01", "10.1.1.2")
	require.NoError(t, err)
	other.SetReply()
	assert.True(t, q.MatchHeader(other.Get()))
}

func TestEmptyQueryMatchesEveryHeaderOfItsKind(t *testing.T) {
	assert.True(t, NewARPQuery().Match(arpFrame(t, false)))
	assert.True(t, NewARPQuery().Match(arpFrame(t, true)))
	assert.True(t, NewIPv4Query().Match(ipv4Frame(t)))
	assert.True(t, NewEthernetQuery().Match(ipv4Frame(t)))

	assert.False(t, NewARPQuery().Match(ipv4Frame(t)))
	assert.False(t, NewIPv4Query().Match(arpFrame(t, false)))
}

func TestQueryOnMissingLayer(t *testing.T) {
	e, err := header.NewEthernet("aa:aa:aa:aa:aa:aa", "bb:bb:bb:bb:bb:bb", 0x86dd)
	require.NoError(t, err)
	f := frame.New().Header(e)

	assert.False(t, NewARPQuery().Match(f))
	assert.False(t, NewARPQuery().Match(nil))
	assert.True(t, NewEthernetQuery().WithEtherType(0x86dd).Match(f))
}

func TestSingleFieldQueries(t *testing.T) {
	f := arpFrame(t, false)

	tests := []struct {
		name  string
		query Predicate
		want  bool
	}{
		{"target ip hit", must(NewARPQuery().WithDstIPText("192.168.1.101")), true},
		{"target ip miss", must(NewARPQuery().WithDstIPText("192.168.1.102")), false},
		{"sender mac hit", must(NewARPQuery().WithSrcMACText("aa:aa:aa:aa:aa:aa")), true},
		{"sender mac miss", must(NewARPQuery().WithSrcMACText("aa:aa:aa:aa:aa:ab")), false},
		{"proto type", NewARPQuery().WithProtoType(header.EtherTypeIPv4), true},
		{"hw type miss", NewARPQuery().WithHWType(6), false},
		{"ethernet broadcast", must(NewEthernetQuery().WithDstText("ff:ff:ff:ff:ff:ff")), true},
		{"ethernet type miss", NewEthernetQuery().WithEtherType(header.EtherTypeIPv4), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.query.Match(f))
		})
	}
}

func TestIPv4QueryFields(t *testing.T) {
	f := ipv4Frame(t)

	q, err := NewIPv4Query().WithProtocol(header.ProtoTCP).WithSrcText("192.168.1.1")
	require.NoError(t, err)
	assert.True(t, q.Match(f))

	assert.False(t, NewIPv4Query().WithProtocol(header.ProtoUDP).Match(f))
	assert.False(t, NewIPv4Query().WithTTL(1).Match(f))
	assert.True(t, NewIPv4Query().WithTTL(64).WithID(0).Match(f))
}

func TestQueryComparesValueNotWidth(t *testing.T) {
	wide, err := bits.New(uint64(header.OpRequest), 32)
	require.NoError(t, err)
	q := NewARPQuery()
	q.Opcode = &wide

	assert.True(t, q.Match(arpFrame(t, false)))
}

func TestTextBuildersRejectMalformedInput(t *testing.T) {
	// Wrong group counts are construction errors, bad octets parse errors.
	_, err := NewARPQuery().WithDstIPText("192.168.1")
	assert.ErrorIs(t, err, core.ErrConstruct)
	assert.NotErrorIs(t, err, core.ErrParse)
	_, err = NewARPQuery().WithSrcMACText("not-a-mac")
	assert.ErrorIs(t, err, core.ErrConstruct)
	_, err = NewARPQuery().WithDstMACText("zz:aa:aa:aa:aa:aa")
	assert.ErrorIs(t, err, core.ErrParse)
	_, err = NewIPv4Query().WithDstText("300.1.1.1")
	assert.ErrorIs(t, err, core.ErrParse)
	_, err = NewEthernetQuery().WithSrcText("aa:bb")
	assert.ErrorIs(t, err, core.ErrConstruct)
	assert.ErrorContains(t, err, "want 6 octets, got 2")
}

func TestKeyIsCanonical(t *testing.T) {
	a := must(NewARPQuery().WithOpcode(header.OpRequest).WithDstIPText("10.0.0.1"))
	b := must(NewARPQuery().WithDstIPText("10.0.0.1"))
	b.WithOpcode(header.OpRequest)

	assert.Equal(t, a.Key(), b.Key())
	assert.Equal(t, "arp{opcode=1,dst_ip=10.0.0.1}", a.Key())
	assert.Equal(t, "arp{}", NewARPQuery().Key())
	assert.Equal(t, "ethernet{type=0x0806}", NewEthernetQuery().WithEtherType(header.EtherTypeARP).Key())
}

func TestAllAcrossLayers(t *testing.T) {
	q := All{
		NewEthernetQuery().WithEtherType(header.EtherTypeARP),
		NewARPQuery().WithOpcode(header.OpRequest),
	}
	assert.Equal(t, header.LayerNetwork, q.Layer())
	assert.True(t, q.Match(arpFrame(t, false)))
	assert.False(t, q.Match(arpFrame(t, true)))
	assert.False(t, All{}.Match(arpFrame(t, false)))

	network, ok := arpFrame(t, false).Network()
	require.True(t, ok)
	assert.True(t, q.MatchHeader(network))
}

func TestRuleTableOrderAndOverwrite(t *testing.T) {
	table := NewRuleTable()
	calls := ""
	tag := func(s string) Transform {
		return func(f *frame.Frame) (*frame.Frame, error) {
			calls += s
			return f, nil
		}
	}

	table.AddRule(NewARPQuery().WithOpcode(header.OpRequest), tag("a"))
	table.AddRule(NewARPQuery(), tag("b"))
	table.AddRule(NewARPQuery().WithOpcode(header.OpRequest), tag("c"))
	require.Equal(t, 2, table.Len())

	rule, ok := table.First(arpFrame(t, false))
	require.True(t, ok)
	assert.Equal(t, "arp{opcode=1}", rule.Name)
	_, err := rule.Transform(nil)
	require.NoError(t, err)
	assert.Equal(t, "c", calls, "the overwritten rule keeps its position")

	rule, ok = table.First(arpFrame(t, true))
	require.True(t, ok)
	assert.Equal(t, "arp{}", rule.Name)

	_, ok = table.First(ipv4Frame(t))
	assert.False(t, ok)
}

func TestRuleTableNamedRules(t *testing.T) {
	table := NewRuleTable()
	table.Add(Rule{Name: "answer", Predicate: NewARPQuery(), Transform: nil})

	rules := table.Rules()
	require.Len(t, rules, 1)
	assert.Equal(t, "answer", rules[0].Name)

	rules[0].Name = "changed"
	assert.Equal(t, "answer", table.Rules()[0].Name)
}

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}
