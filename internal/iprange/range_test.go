package iprange

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParsePorts_RangeAndCount(t *testing.T) {
	t.Parallel()
	s, err := ParsePorts("1-3,80")
	require.NoError(t, err)
	require.Equal(t, uint64(4), s.Count())
	require.Equal(t, uint32(1), s.Pick(0))
	require.Equal(t, uint32(2), s.Pick(1))
	require.Equal(t, uint32(3), s.Pick(2))
	require.Equal(t, uint32(80), s.Pick(3))
}

func TestParsePorts_OverlapMerges(t *testing.T) {
	t.Parallel()
	s, err := ParsePorts("10-20,15-25,5")
	require.NoError(t, err)
	require.Equal(t, uint64(17), s.Count()) // {5} U [10,25]
}

func TestParsePorts_Invalid(t *testing.T) {
	t.Parallel()
	cases := []string{"70000", "-1", "abc", "10-5", ""}
	for _, c := range cases {
		_, err := ParsePorts(c)
		if c == "" {
			require.NoError(t, err) // empty token list: count 0, not an error
			continue
		}
		require.ErrorIs(t, err, ErrInvalidRange, "input %q", c)
	}
}

func TestParseTargets_SingleHost(t *testing.T) {
	t.Parallel()
	s, err := ParseTargets("192.0.2.5/32")
	require.NoError(t, err)
	require.Equal(t, uint64(1), s.Count())
	require.Equal(t, ip4(192, 0, 2, 5), s.Pick(0))
}

func TestParseTargets_CIDRExpansion(t *testing.T) {
	t.Parallel()
	s, err := ParseTargets("10.0.0.0/30")
	require.NoError(t, err)
	require.Equal(t, uint64(4), s.Count())
	require.Equal(t, ip4(10, 0, 0, 0), s.Pick(0))
	require.Equal(t, ip4(10, 0, 0, 3), s.Pick(3))
}

func TestParseTargets_Range(t *testing.T) {
	t.Parallel()
	s, err := ParseTargets("10.0.0.1-10.0.0.3")
	require.NoError(t, err)
	require.Equal(t, uint64(3), s.Count())
	require.Equal(t, ip4(10, 0, 0, 1), s.Pick(0))
	require.Equal(t, ip4(10, 0, 0, 3), s.Pick(2))
}

func TestParseTargets_BadCIDRPrefix(t *testing.T) {
	t.Parallel()
	_, err := ParseTargets("10.0.0.0/33")
	require.ErrorIs(t, err, ErrInvalidRange)
}

func TestPick_Bijection(t *testing.T) {
	t.Parallel()
	s, err := ParseTargets("10.0.0.0/28,10.0.1.0-10.0.1.9")
	require.NoError(t, err)
	seen := map[uint32]bool{}
	for i := uint64(0); i < s.Count(); i++ {
		v := s.Pick(i)
		require.False(t, seen[v], "duplicate at ordinal %d", i)
		seen[v] = true
	}
	require.Len(t, seen, int(s.Count()))
}

func TestPick_OutOfRangePanics(t *testing.T) {
	t.Parallel()
	s, err := ParsePorts("1")
	require.NoError(t, err)
	require.Panics(t, func() { s.Pick(1) })
}

func ip4(a, b, c, d uint32) uint32 {
	return a<<24 | b<<16 | c<<8 | d
}
