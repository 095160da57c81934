// Package nbt reads and writes the named binary tag format used by the game
// for servers.dat and similar save files.
//
// Tags form a closed set: every node is one of the concrete types below and
// nothing outside this package can add another.  Callers pull values out of
// a tree with the typed accessors on Compound, which return *ShapeError when
// the file does not have the expected structure.
package nbt

import (
	"errors"
	"fmt"
)

// TagType is the one-byte type id written before every named tag.
type TagType byte

const (
	TagEnd TagType = iota
	TagByte
	TagShort
	TagInt
	TagLong
	TagFloat
	TagDouble
	TagByteArray
	TagString
	TagList
	TagCompound
	TagIntArray
	TagLongArray
)

var tagNames = [...]string{
	"End", "Byte", "Short", "Int", "Long", "Float", "Double",
	"ByteArray", "String", "List", "Compound", "IntArray", "LongArray",
}

func (t TagType) String() string {
	if int(t) < len(tagNames) {
		return tagNames[t]
	}
	return fmt.Sprintf("TagType(%d)", byte(t))
}

// Tag is a node in the tree.
type Tag interface {
	Type() TagType
	isTag()
}

type (
	Byte      int8
	Short     int16
	Int       int32
	Long      int64
	Float     float32
	Double    float64
	ByteArray []byte
	String    string
	IntArray  []int32
	LongArray []int64
)

// List is a homogeneous sequence.  Elem is the element type even when the
// list is empty.
type List struct {
	Elem  TagType
	Items []Tag
}

// Compound is a set of named tags.
type Compound map[string]Tag

func (Byte) Type() TagType      { return TagByte }
func (Short) Type() TagType     { return TagShort }
func (Int) Type() TagType       { return TagInt }
func (Long) Type() TagType      { return TagLong }
func (Float) Type() TagType     { return TagFloat }
func (Double) Type() TagType    { return TagDouble }
func (ByteArray) Type() TagType { return TagByteArray }
func (String) Type() TagType    { return TagString }
func (*List) Type() TagType     { return TagList }
func (Compound) Type() TagType  { return TagCompound }
func (IntArray) Type() TagType  { return TagIntArray }
func (LongArray) Type() TagType { return TagLongArray }

func (Byte) isTag()      {}
func (Short) isTag()     {}
func (Int) isTag()       {}
func (Long) isTag()      {}
func (Float) isTag()     {}
func (Double) isTag()    {}
func (ByteArray) isTag() {}
func (String) isTag()    {}
func (*List) isTag()     {}
func (Compound) isTag()  {}
func (IntArray) isTag()  {}
func (LongArray) isTag() {}

// ErrShape matches every *ShapeError.
var ErrShape = errors.New("nbt: unexpected shape")

// ShapeError reports a tag that is missing or has the wrong type.
type ShapeError struct {
	Path string
	Want TagType
	Got  TagType // TagEnd when the key is missing
}

func (e *ShapeError) Error() string {
	if e.Got == TagEnd {
		return fmt.Sprintf("nbt: %s: missing %s tag", e.Path, e.Want)
	}
	return fmt.Sprintf("nbt: %s: want %s tag, got %s", e.Path, e.Want, e.Got)
}

func (e *ShapeError) Is(target error) bool { return target == ErrShape }

// AsCompound returns t as a Compound, or a *ShapeError naming path.
func AsCompound(path string, t Tag) (Compound, error) {
	c, ok := t.(Compound)
	if !ok {
		return nil, &ShapeError{Path: path, Want: TagCompound, Got: typeOf(t)}
	}
	return c, nil
}

// String returns the string stored under key.
func (c Compound) String(key string) (string, error) {
	s, ok := c[key].(String)
	if !ok {
		return "", &ShapeError{Path: key, Want: TagString, Got: typeOf(c[key])}
	}
	return string(s), nil
}

// List returns the list stored under key.
func (c Compound) List(key string) (*List, error) {
	l, ok := c[key].(*List)
	if !ok {
		return nil, &ShapeError{Path: key, Want: TagList, Got: typeOf(c[key])}
	}
	return l, nil
}

// Compound returns the compound stored under key.
func (c Compound) Compound(key string) (Compound, error) {
	return AsCompound(key, c[key])
}

// Compounds returns the items of a list of compounds.
func (l *List) Compounds(path string) ([]Compound, error) {
	if len(l.Items) > 0 && l.Elem != TagCompound {
		return nil, &ShapeError{Path: path + "[]", Want: TagCompound, Got: l.Elem}
	}
	out := make([]Compound, 0, len(l.Items))
	for i, item := range l.Items {
		c, err := AsCompound(fmt.Sprintf("%s[%d]", path, i), item)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func typeOf(t Tag) TagType {
	if t == nil {
		return TagEnd
	}
	return t.Type()
}
