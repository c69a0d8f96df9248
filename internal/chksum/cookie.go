package chksum

import (
	"crypto/rand"
	"encoding/binary"
	"math/bits"
)

// Key is the process-wide 128-bit seed used to derive reply cookies. It is
// either expanded from the user-supplied --seed or pulled from OS entropy;
// either way it never changes for the lifetime of the process, satisfying
// the contract that cookie*(a,b,p,q) is stable within one run.
type Key struct {
	k0, k1 uint64
}

// NewKeyFromSeed expands a single 64-bit --seed value into a 128-bit key.
// The expansion just needs to avoid k0==k1==seed; it is not meant to be
// cryptographically strong, only to decorrelate the two halves of the
// SipHash state.
func NewKeyFromSeed(seed uint64) Key {
	return Key{
		k0: seed,
		k1: bits.RotateLeft64(seed, 32) ^ 0x9e3779b97f4a7c15,
	}
}

// NewRandomKey draws a 128-bit key from OS entropy, used when the operator
// did not pass --seed.
func NewRandomKey() (Key, error) {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return Key{}, err
	}
	return Key{
		k0: binary.LittleEndian.Uint64(b[0:8]),
		k1: binary.LittleEndian.Uint64(b[8:16]),
	}, nil
}

// tuple packs (src, dst, sport, dport) into the 12-byte run hashed for a
// cookie.
func tuple(src, dst uint32, sport, dport uint16) [12]byte {
	var b [12]byte
	binary.BigEndian.PutUint32(b[0:4], src)
	binary.BigEndian.PutUint32(b[4:8], dst)
	binary.BigEndian.PutUint16(b[8:10], sport)
	binary.BigEndian.PutUint16(b[10:12], dport)
	return b
}

// Cookie32 returns a 32-bit keyed hash of the flow tuple, used as the
// initial TCP sequence number or ICMP-adjacent correlator for replies.
func (k Key) Cookie32(src, dst uint32, sport, dport uint16) uint32 {
	h := k.sipHash(tuple(src, dst, sport, dport))
	return uint32(h)
}

// Cookie16 returns a 16-bit keyed hash of the flow tuple, used as the
// ICMP echo sequence number.
func (k Key) Cookie16(src, dst uint32, sport, dport uint16) uint16 {
	h := k.sipHash(tuple(src, dst, sport, dport))
	return uint16(h ^ (h >> 32))
}

// sipHash implements SipHash-1-3 over a short fixed-length message. It is
// not used as a cryptographic primitive here; it is chosen purely for its
// speed and resistance to naive guessing under a keyed, per-process-secret
// seed.
func (k Key) sipHash(msg [12]byte) uint64 {
	v0 := k.k0 ^ 0x736f6d6570736575
	v1 := k.k1 ^ 0x646f72616e646f6d
	v2 := k.k0 ^ 0x6c7967656e657261
	v3 := k.k1 ^ 0x7465646279746573

	round := func() {
		v0 += v1
		v1 = bits.RotateLeft64(v1, 13)
		v1 ^= v0
		v0 = bits.RotateLeft64(v0, 32)
		v2 += v3
		v3 = bits.RotateLeft64(v3, 16)
		v3 ^= v2
		v0 += v3
		v3 = bits.RotateLeft64(v3, 21)
		v3 ^= v0
		v2 += v1
		v1 = bits.RotateLeft64(v1, 17)
		v1 ^= v2
		v2 = bits.RotateLeft64(v2, 32)
	}

	var m uint64
	m = binary.LittleEndian.Uint64(msg[0:8])
	v3 ^= m
	round() // c=1
	v0 ^= m

	var last [8]byte
	copy(last[:4], msg[8:12])
	last[7] = byte(len(msg))
	m = binary.LittleEndian.Uint64(last[:])
	v3 ^= m
	round() // c=1
	v0 ^= m

	v2 ^= 0xff
	round() // d=3
	round()
	round()

	return v0 ^ v1 ^ v2 ^ v3
}
