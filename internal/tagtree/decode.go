package tagtree

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Decode parses a binary tagged tree ("NBT") stream into a Value tree.
// The wire format is exactly the one spec §4.B names (region-file chunk
// payloads, nested-storage .dat blobs): a type byte, a name (absent for
// TAG_End and for list elements), and a type-dependent payload, with
// compounds terminated by a TAG_End.
//
// Parse failures are returned to the caller rather than panicking; the
// region codec treats them as a single skipped chunk (spec §4.B step 6).
func Decode(r io.Reader) (*Value, error) {
	br := bufio.NewReader(r)
	d := &decoder{r: br}
	tagType, err := d.readByte()
	if err != nil {
		return nil, err
	}
	if Kind(tagType) == KindEnd {
		return Compound(map[string]*Value{}), nil
	}
	if _, err := d.readName(); err != nil {
		return nil, err
	}
	return d.readPayload(Kind(tagType), 0)
}

const maxNestDepth = 512

type decoder struct {
	r io.Reader
}

func (d *decoder) readByte() (byte, error) {
	var b [1]byte
	if _, err := io.ReadFull(d.r, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

func (d *decoder) readName() (string, error) {
	var l uint16
	if err := binary.Read(d.r, binary.BigEndian, &l); err != nil {
		return "", err
	}
	buf := make([]byte, l)
	if _, err := io.ReadFull(d.r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func (d *decoder) readPayload(kind Kind, depth int) (*Value, error) {
	if depth > maxNestDepth {
		return nil, fmt.Errorf("tagtree: nesting too deep")
	}
	switch kind {
	case KindByte:
		b, err := d.readByte()
		if err != nil {
			return nil, err
		}
		return &Value{Kind: kind, I64: int64(int8(b))}, nil
	case KindShort:
		var v int16
		if err := binary.Read(d.r, binary.BigEndian, &v); err != nil {
			return nil, err
		}
		return &Value{Kind: kind, I64: int64(v)}, nil
	case KindInt:
		var v int32
		if err := binary.Read(d.r, binary.BigEndian, &v); err != nil {
			return nil, err
		}
		return &Value{Kind: kind, I64: int64(v)}, nil
	case KindLong:
		var v int64
		if err := binary.Read(d.r, binary.BigEndian, &v); err != nil {
			return nil, err
		}
		return &Value{Kind: kind, I64: v}, nil
	case KindFloat:
		var v uint32
		if err := binary.Read(d.r, binary.BigEndian, &v); err != nil {
			return nil, err
		}
		return &Value{Kind: kind, F64: float64(math.Float32frombits(v))}, nil
	case KindDouble:
		var v uint64
		if err := binary.Read(d.r, binary.BigEndian, &v); err != nil {
			return nil, err
		}
		return &Value{Kind: kind, F64: math.Float64frombits(v)}, nil
	case KindByteArray:
		n, err := d.readInt32()
		if err != nil {
			return nil, err
		}
		arr := make([]int8, n)
		for i := range arr {
			b, err := d.readByte()
			if err != nil {
				return nil, err
			}
			arr[i] = int8(b)
		}
		return &Value{Kind: kind, ByteArr: arr}, nil
	case KindString:
		s, err := d.readName()
		if err != nil {
			return nil, err
		}
		return &Value{Kind: kind, Str: s}, nil
	case KindList:
		elemType, err := d.readByte()
		if err != nil {
			return nil, err
		}
		n, err := d.readInt32()
		if err != nil {
			return nil, err
		}
		list := make([]*Value, 0, clampListLen(n))
		for i := int32(0); i < n; i++ {
			if Kind(elemType) == KindEnd {
				continue
			}
			v, err := d.readPayload(Kind(elemType), depth+1)
			if err != nil {
				return nil, err
			}
			list = append(list, v)
		}
		return &Value{Kind: kind, List: list}, nil
	case KindCompound:
		fields := make(map[string]*Value)
		for {
			childType, err := d.readByte()
			if err != nil {
				return nil, err
			}
			if Kind(childType) == KindEnd {
				break
			}
			name, err := d.readName()
			if err != nil {
				return nil, err
			}
			v, err := d.readPayload(Kind(childType), depth+1)
			if err != nil {
				return nil, err
			}
			fields[name] = v
		}
		return &Value{Kind: kind, Compound: fields}, nil
	case KindIntArray:
		n, err := d.readInt32()
		if err != nil {
			return nil, err
		}
		arr := make([]int32, n)
		for i := range arr {
			if err := binary.Read(d.r, binary.BigEndian, &arr[i]); err != nil {
				return nil, err
			}
		}
		return &Value{Kind: kind, IntArr: arr}, nil
	case KindLongArray:
		n, err := d.readInt32()
		if err != nil {
			return nil, err
		}
		arr := make([]int64, n)
		for i := range arr {
			if err := binary.Read(d.r, binary.BigEndian, &arr[i]); err != nil {
				return nil, err
			}
		}
		return &Value{Kind: kind, LongArr: arr}, nil
	default:
		return nil, fmt.Errorf("tagtree: unknown tag type %d", kind)
	}
}

func (d *decoder) readInt32() (int32, error) {
	var v int32
	err := binary.Read(d.r, binary.BigEndian, &v)
	return v, err
}

// clampListLen bounds the pre-allocation for a claimed list length so a
// corrupt/malicious length prefix can't force a huge allocation before
// the read itself fails.
func clampListLen(n int32) int32 {
	const maxPrealloc = 1 << 16
	if n < 0 || n > maxPrealloc {
		return 0
	}
	return n
}
