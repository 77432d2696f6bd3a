package encoding

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrRunOverflow reports an RLE stream that expands past the expected volume.
var ErrRunOverflow = errors.New("rle: runs exceed volume")

// EncodeRLE writes palette indices as base64 of uvarint (index, run) pairs,
// in buffer order.
func EncodeRLE(ids []uint16) string {
	out := make([]byte, 0, 16)
	for i := 0; i < len(ids); {
		j := i + 1
		for j < len(ids) && ids[j] == ids[i] {
			j++
		}
		out = binary.AppendUvarint(out, uint64(ids[i]))
		out = binary.AppendUvarint(out, uint64(j-i))
		i = j
	}
	return base64.StdEncoding.EncodeToString(out)
}

// DecodeRLE expands an EncodeRLE string. When volume > 0 the result must
// hold exactly volume indices; runs are checked before they are expanded.
func DecodeRLE(b64 string, volume int) ([]uint16, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, err
	}
	out := make([]uint16, 0, max(volume, 0))
	for off := 0; off < len(raw); {
		id, n := binary.Uvarint(raw[off:])
		if n <= 0 {
			return nil, fmt.Errorf("rle: bad index varint at byte %d", off)
		}
		off += n
		run, n := binary.Uvarint(raw[off:])
		if n <= 0 || run == 0 {
			return nil, fmt.Errorf("rle: bad run at byte %d", off)
		}
		off += n
		if id > 0xFFFF {
			return nil, fmt.Errorf("rle: palette index %d out of range", id)
		}
		if volume > 0 && run > uint64(volume-len(out)) {
			return nil, ErrRunOverflow
		}
		for ; run > 0; run-- {
			out = append(out, uint16(id))
		}
	}
	if volume > 0 && len(out) != volume {
		return nil, fmt.Errorf("rle: decoded %d indices, want %d", len(out), volume)
	}
	return out, nil
}
