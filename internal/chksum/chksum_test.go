package chksum

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInternet_KnownVector(t *testing.T) {
	t.Parallel()
	// A stock IPv4 header: computing the checksum with the checksum field
	// zeroed, then writing it back in, must verify to zero.
	full := []byte{0x45, 0x00, 0x00, 0x3c, 0x1c, 0x46, 0x40, 0x00, 0x40, 0x06, 0x00, 0x00, 0xac, 0x10, 0x0a, 0x63, 0xac, 0x10, 0x0a, 0x0c}
	binary.BigEndian.PutUint16(full[10:12], 0)
	c := Internet(full)
	binary.BigEndian.PutUint16(full[10:12], c)
	require.True(t, Verify(full))
}

func TestInternet_OddLength(t *testing.T) {
	t.Parallel()
	b := []byte{0x01, 0x02, 0x03}
	// Must not panic and must treat the odd tail byte as high-order.
	c1 := Internet(b)
	c2 := Internet([]byte{0x01, 0x02, 0x03, 0x00})
	require.Equal(t, c1, c2)
}

func TestCookie_Deterministic(t *testing.T) {
	t.Parallel()
	k := NewKeyFromSeed(1234)
	a := k.Cookie32(0x0A000001, 0x0A000002, 1234, 80)
	b := k.Cookie32(0x0A000001, 0x0A000002, 1234, 80)
	require.Equal(t, a, b)

	k2 := NewKeyFromSeed(1234)
	c := k2.Cookie32(0x0A000001, 0x0A000002, 1234, 80)
	require.Equal(t, a, c, "same seed must reproduce the same cookie across Key instances")
}

func TestCookie_DistinctTuplesDiffer(t *testing.T) {
	t.Parallel()
	k := NewKeyFromSeed(42)
	seen := map[uint32]bool{}
	collisions := 0
	for port := uint16(1); port <= 200; port++ {
		v := k.Cookie32(0x0A000001, 0x0A000002, 64434, port)
		if seen[v] {
			collisions++
		}
		seen[v] = true
	}
	require.Less(t, collisions, 2, "cookie32 should not collide across 200 distinct ports")
}

func TestCookie16_DifferentFromCookie32Truncation(t *testing.T) {
	t.Parallel()
	k := NewKeyFromSeed(7)
	c16 := k.Cookie16(1, 2, 3, 4)
	c32 := k.Cookie32(1, 2, 3, 4)
	require.NotEqual(t, uint32(c16), c32, "cookie16 folds the high bits rather than truncating")
}
