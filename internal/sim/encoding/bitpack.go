package encoding

import (
	"fmt"
	"math/bits"

	"github.com/Tnze/go-mc/level"
)

// BitsPerBlock is the width needed to store indices of a palette with size
// entries: max(1, ceil(log2(size))).
func BitsPerBlock(size int) int {
	if size <= 2 {
		return 1
	}
	return bits.Len(uint(size - 1))
}

// PackedLen is the number of 64-bit words Pack produces for total indices.
func PackedLen(total, bitsPerBlock int) int {
	per := 64 / bitsPerBlock
	return (total + per - 1) / per
}

// Pack stores palette indices in 64-bit words, 64/bitsPerBlock per word,
// lowest bits first. An index never straddles two words; the leftover high
// bits of each word stay zero.
func Pack(ids []uint16, bitsPerBlock int) []uint64 {
	if bitsPerBlock < 1 || bitsPerBlock > 16 {
		panic(fmt.Sprintf("encoding: bits per block out of range: %d", bitsPerBlock))
	}
	mask := 1<<bitsPerBlock - 1
	bs := level.NewBitStorage(bitsPerBlock, len(ids), nil)
	for i, id := range ids {
		bs.Set(i, int(id)&mask)
	}
	return bs.Raw()
}

// Unpack is the inverse of Pack for the first total indices. Words beyond
// PackedLen(total) are ignored.
func Unpack(words []uint64, bitsPerBlock, total int) ([]uint16, error) {
	if bitsPerBlock < 1 || bitsPerBlock > 16 {
		return nil, fmt.Errorf("bits per block out of range: %d", bitsPerBlock)
	}
	if total < 0 {
		return nil, fmt.Errorf("negative block count: %d", total)
	}
	need := PackedLen(total, bitsPerBlock)
	if len(words) < need {
		return nil, fmt.Errorf("packed data too short: got %d words want %d", len(words), need)
	}
	bs := level.NewBitStorage(bitsPerBlock, total, words[:need])
	out := make([]uint16, total)
	for i := range out {
		out[i] = uint16(bs.Get(i))
	}
	return out, nil
}
