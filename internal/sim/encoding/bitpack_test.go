package encoding

import (
	"math/rand"
	"testing"
)

func TestBitsPerBlock(t *testing.T) {
	cases := map[int]int{1: 1, 2: 1, 3: 2, 4: 2, 5: 3, 16: 4, 17: 5, 26: 5, 32: 5, 33: 6, 256: 8}
	for size, want := range cases {
		if got := BitsPerBlock(size); got != want {
			t.Fatalf("BitsPerBlock(%d): got %d want %d", size, got, want)
		}
	}
}

func TestPack_RoundTripAllPaletteSizes(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for size := 1; size <= 256; size++ {
		b := BitsPerBlock(size)
		for _, total := range []int{0, 1, 63, 64, 65, 1000} {
			in := make([]uint16, total)
			for i := range in {
				in[i] = uint16(rng.Intn(size))
			}
			words := Pack(in, b)
			if len(words) != PackedLen(total, b) {
				t.Fatalf("size=%d total=%d: got %d words want %d", size, total, len(words), PackedLen(total, b))
			}
			out, err := Unpack(words, b, total)
			if err != nil {
				t.Fatalf("size=%d total=%d: Unpack: %v", size, total, err)
			}
			for i := range in {
				if out[i] != in[i] {
					t.Fatalf("size=%d total=%d: mismatch at %d: got %d want %d", size, total, i, out[i], in[i])
				}
			}
		}
	}
}

func TestPack_Layout(t *testing.T) {
	// 5 bits per block -> 12 indices per word, top 4 bits unused.
	in := make([]uint16, 13)
	for i := range in {
		in[i] = uint16(i + 1)
	}
	words := Pack(in, 5)
	if len(words) != 2 {
		t.Fatalf("words: got %d want 2", len(words))
	}
	if got := words[0] & 0x1F; got != 1 {
		t.Fatalf("first index: got %d want 1", got)
	}
	if got := (words[0] >> 55) & 0x1F; got != 12 {
		t.Fatalf("12th index: got %d want 12", got)
	}
	if words[0]>>60 != 0 {
		t.Fatalf("padding bits should be zero: %x", words[0])
	}
	if words[1] != 13 {
		t.Fatalf("second word: got %d want 13", words[1])
	}
}

func TestUnpack_IgnoresTrailingWords(t *testing.T) {
	in := []uint16{3, 1, 4, 1, 5}
	words := append(Pack(in, 3), 0xFFFF)
	out, err := Unpack(words, 3, len(in))
	if err != nil {
		t.Fatalf("Unpack: %v", err)
	}
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("index %d: got %d want %d", i, out[i], in[i])
		}
	}
}

func TestUnpack_RejectsShortInput(t *testing.T) {
	if _, err := Unpack(make([]uint64, 1), 5, 13); err == nil {
		t.Fatalf("expected error for short input")
	}
	if _, err := Unpack(nil, 0, 0); err == nil {
		t.Fatalf("expected error for zero bits")
	}
}
