package nbt

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/klauspost/compress/gzip"
)

const (
	maxDepth = 512
	// upper bound on a single array/list length, guards against corrupt
	// headers asking for gigabytes
	maxLen = 1 << 24
)

var errTooDeep = errors.New("nbt: nesting too deep")

// Decode reads one named root tag from r.
func Decode(r io.Reader) (string, Tag, error) {
	d := decoder{r: bufio.NewReader(r)}
	typ, err := d.u8()
	if err != nil {
		return "", nil, fmt.Errorf("nbt: read root type: %w", err)
	}
	if TagType(typ) == TagEnd {
		return "", nil, fmt.Errorf("nbt: root is an End tag")
	}
	name, err := d.str()
	if err != nil {
		return "", nil, fmt.Errorf("nbt: read root name: %w", err)
	}
	tag, err := d.payload(TagType(typ), 0)
	if err != nil {
		return "", nil, err
	}
	return name, tag, nil
}

// ReadFile decodes the file at path.  Gzip-compressed files are detected by
// their magic bytes and decompressed transparently.
func ReadFile(path string) (string, Tag, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", nil, err
	}
	defer f.Close()

	br := bufio.NewReader(f)
	magic, _ := br.Peek(2)
	if len(magic) == 2 && magic[0] == 0x1f && magic[1] == 0x8b {
		zr, err := gzip.NewReader(br)
		if err != nil {
			return "", nil, fmt.Errorf("nbt: open gzip stream: %w", err)
		}
		defer zr.Close()
		return Decode(zr)
	}
	return Decode(br)
}

// Encode writes tag to w as a named root tag.
func Encode(w io.Writer, name string, tag Tag) error {
	bw := bufio.NewWriter(w)
	e := encoder{w: bw}
	e.u8(byte(tag.Type()))
	e.str(name)
	e.payload(tag)
	if e.err != nil {
		return e.err
	}
	return bw.Flush()
}

// WriteFile encodes tag (uncompressed) and replaces path atomically.
func WriteFile(path, name string, tag Tag) error {
	var buf bytes.Buffer
	if err := Encode(&buf, name, tag); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	tmpFile := path + ".tmp"
	if err := os.WriteFile(tmpFile, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tmpFile, path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Decoder
// ---------------------------------------------------------------------------

type decoder struct {
	r   *bufio.Reader
	buf [8]byte
}

func (d *decoder) read(n int) ([]byte, error) {
	if _, err := io.ReadFull(d.r, d.buf[:n]); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return d.buf[:n], nil
}

func (d *decoder) u8() (byte, error) {
	b, err := d.read(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (d *decoder) u16() (uint16, error) {
	b, err := d.read(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (d *decoder) u32() (uint32, error) {
	b, err := d.read(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (d *decoder) u64() (uint64, error) {
	b, err := d.read(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

func (d *decoder) length() (int, error) {
	n, err := d.u32()
	if err != nil {
		return 0, err
	}
	l := int32(n)
	if l < 0 || l > maxLen {
		return 0, fmt.Errorf("nbt: invalid length %d", l)
	}
	return int(l), nil
}

func (d *decoder) str() (string, error) {
	n, err := d.u16()
	if err != nil {
		return "", err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(d.r, b); err != nil {
		return "", io.ErrUnexpectedEOF
	}
	return string(b), nil
}

func (d *decoder) payload(typ TagType, depth int) (Tag, error) {
	if depth > maxDepth {
		return nil, errTooDeep
	}
	switch typ {
	case TagByte:
		v, err := d.u8()
		return Byte(int8(v)), err
	case TagShort:
		v, err := d.u16()
		return Short(int16(v)), err
	case TagInt:
		v, err := d.u32()
		return Int(int32(v)), err
	case TagLong:
		v, err := d.u64()
		return Long(int64(v)), err
	case TagFloat:
		v, err := d.u32()
		return Float(math.Float32frombits(v)), err
	case TagDouble:
		v, err := d.u64()
		return Double(math.Float64frombits(v)), err
	case TagByteArray:
		n, err := d.length()
		if err != nil {
			return nil, err
		}
		b := make([]byte, n)
		if _, err := io.ReadFull(d.r, b); err != nil {
			return nil, io.ErrUnexpectedEOF
		}
		return ByteArray(b), nil
	case TagString:
		s, err := d.str()
		return String(s), err
	case TagList:
		elem, err := d.u8()
		if err != nil {
			return nil, err
		}
		n, err := d.length()
		if err != nil {
			return nil, err
		}
		if TagType(elem) == TagEnd && n > 0 {
			return nil, fmt.Errorf("nbt: list of End tags with length %d", n)
		}
		l := &List{Elem: TagType(elem), Items: make([]Tag, 0, min(n, 1024))}
		for i := 0; i < n; i++ {
			item, err := d.payload(TagType(elem), depth+1)
			if err != nil {
				return nil, err
			}
			l.Items = append(l.Items, item)
		}
		return l, nil
	case TagCompound:
		c := Compound{}
		for {
			t, err := d.u8()
			if err != nil {
				return nil, err
			}
			if TagType(t) == TagEnd {
				return c, nil
			}
			name, err := d.str()
			if err != nil {
				return nil, err
			}
			v, err := d.payload(TagType(t), depth+1)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			c[name] = v
		}
	case TagIntArray:
		n, err := d.length()
		if err != nil {
			return nil, err
		}
		a := make(IntArray, 0, min(n, 1024))
		for i := 0; i < n; i++ {
			v, err := d.u32()
			if err != nil {
				return nil, err
			}
			a = append(a, int32(v))
		}
		return a, nil
	case TagLongArray:
		n, err := d.length()
		if err != nil {
			return nil, err
		}
		a := make(LongArray, 0, min(n, 1024))
		for i := 0; i < n; i++ {
			v, err := d.u64()
			if err != nil {
				return nil, err
			}
			a = append(a, int64(v))
		}
		return a, nil
	default:
		return nil, fmt.Errorf("nbt: unknown tag type %d", byte(typ))
	}
}

// ---------------------------------------------------------------------------
// Encoder
// ---------------------------------------------------------------------------

type encoder struct {
	w   *bufio.Writer
	buf [8]byte
	err error
}

func (e *encoder) write(b []byte) {
	if e.err != nil {
		return
	}
	_, e.err = e.w.Write(b)
}

func (e *encoder) u8(v byte) { e.write([]byte{v}) }

func (e *encoder) u16(v uint16) {
	binary.BigEndian.PutUint16(e.buf[:2], v)
	e.write(e.buf[:2])
}

func (e *encoder) u32(v uint32) {
	binary.BigEndian.PutUint32(e.buf[:4], v)
	e.write(e.buf[:4])
}

func (e *encoder) u64(v uint64) {
	binary.BigEndian.PutUint64(e.buf[:8], v)
	e.write(e.buf[:8])
}

func (e *encoder) str(s string) {
	if len(s) > math.MaxUint16 {
		if e.err == nil {
			e.err = fmt.Errorf("nbt: string of %d bytes is too long", len(s))
		}
		return
	}
	e.u16(uint16(len(s)))
	e.write([]byte(s))
}

func (e *encoder) payload(t Tag) {
	switch v := t.(type) {
	case Byte:
		e.u8(byte(v))
	case Short:
		e.u16(uint16(v))
	case Int:
		e.u32(uint32(v))
	case Long:
		e.u64(uint64(v))
	case Float:
		e.u32(math.Float32bits(float32(v)))
	case Double:
		e.u64(math.Float64bits(float64(v)))
	case ByteArray:
		e.u32(uint32(len(v)))
		e.write(v)
	case String:
		e.str(string(v))
	case *List:
		elem := v.Elem
		if len(v.Items) == 0 {
			elem = TagEnd
		}
		e.u8(byte(elem))
		e.u32(uint32(len(v.Items)))
		for _, item := range v.Items {
			if item.Type() != v.Elem && e.err == nil {
				e.err = fmt.Errorf("nbt: %s item in list of %s", item.Type(), v.Elem)
			}
			e.payload(item)
		}
	case Compound:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			e.u8(byte(v[k].Type()))
			e.str(k)
			e.payload(v[k])
		}
		e.u8(byte(TagEnd))
	case IntArray:
		e.u32(uint32(len(v)))
		for _, x := range v {
			e.u32(uint32(x))
		}
	case LongArray:
		e.u32(uint32(len(v)))
		for _, x := range v {
			e.u64(uint64(x))
		}
	default:
		if e.err == nil {
			e.err = fmt.Errorf("nbt: cannot encode %T", t)
		}
	}
}
