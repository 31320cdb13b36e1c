package mask

import "fmt"

// String returns the compressed LEB128-like text form of the counts used by
// COCO files. Each count after the second is stored as a delta from the count
// two positions earlier, in 5-bit groups offset by '0'.
func (r RLE) String() string {
	s := make([]byte, 0, len(r.Counts)*2)
	for i, c := range r.Counts {
		x := int64(c)
		if i > 2 {
			x -= int64(r.Counts[i-2])
		}
		more := true
		for more {
			ch := byte(x & 0x1f)
			x >>= 5
			if ch&0x10 != 0 {
				more = x != -1
			} else {
				more = x != 0
			}
			if more {
				ch |= 0x20
			}
			s = append(s, ch+48)
		}
	}
	return string(s)
}

// FromString decodes compressed counts produced by String.
func FromString(s string, h, w int) (RLE, error) {
	counts := make([]uint32, 0, len(s))
	p := 0
	for p < len(s) {
		var x int64
		k := 0
		more := true
		for more {
			if p >= len(s) {
				return RLE{}, fmt.Errorf("truncated rle counts at byte %d", p)
			}
			if s[p] < 48 || s[p] > 48+0x3f {
				return RLE{}, fmt.Errorf("invalid rle counts byte %q at %d", s[p], p)
			}
			c := int64(s[p] - 48)
			x |= (c & 0x1f) << (5 * k)
			more = c&0x20 != 0
			p++
			k++
			if !more && c&0x10 != 0 {
				x |= -1 << (5 * k)
			}
		}
		if len(counts) > 2 {
			x += int64(counts[len(counts)-2])
		}
		counts = append(counts, uint32(x))
	}
	return RLE{H: h, W: w, Counts: counts}, nil
}
