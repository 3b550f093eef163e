// Package datatree implements a hierarchical, schema-described, in-memory
// data tree. A node either holds a typed strided view over a byte region or
// an ordered mapping of named child nodes, so heterogeneous numeric data can
// be assembled and traversed without copying the underlying buffers.
package datatree

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"github.com/scigolib/datatree/internal/utils"
)

// Kind identifies the primitive element type of a leaf.
type Kind uint8

// Kind constants cover the primitive types a leaf may carry.
const (
	KindNone    Kind = 0  // Empty descriptor.
	KindUInt8   Kind = 1  // Unsigned 8-bit.
	KindUInt16  Kind = 2  // Unsigned 16-bit.
	KindUInt32  Kind = 3  // Unsigned 32-bit.
	KindUInt64  Kind = 4  // Unsigned 64-bit.
	KindInt8    Kind = 5  // Signed 8-bit.
	KindInt16   Kind = 6  // Signed 16-bit.
	KindInt32   Kind = 7  // Signed 32-bit.
	KindInt64   Kind = 8  // Signed 64-bit.
	KindFloat32 Kind = 9  // IEEE 754 single precision.
	KindFloat64 Kind = 10 // IEEE 754 double precision.
	KindChar8   Kind = 11 // 8-bit character data.
)

var kindNames = map[Kind]string{
	KindNone:    "none",
	KindUInt8:   "uint8",
	KindUInt16:  "uint16",
	KindUInt32:  "uint32",
	KindUInt64:  "uint64",
	KindInt8:    "int8",
	KindInt16:   "int16",
	KindInt32:   "int32",
	KindInt64:   "int64",
	KindFloat32: "float32",
	KindFloat64: "float64",
	KindChar8:   "char8",
}

// String returns the schema name of the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind_%d", uint8(k))
}

// KindFromName resolves a schema kind name. Returns KindNone and false for
// unknown names.
func KindFromName(name string) (Kind, bool) {
	for k, n := range kindNames {
		if n == name {
			return k, true
		}
	}
	return KindNone, false
}

// Size returns the natural element size of the kind in bytes.
func (k Kind) Size() int {
	switch k {
	case KindUInt8, KindInt8, KindChar8:
		return 1
	case KindUInt16, KindInt16:
		return 2
	case KindUInt32, KindInt32, KindFloat32:
		return 4
	case KindUInt64, KindInt64, KindFloat64:
		return 8
	default:
		return 0
	}
}

// IsInteger reports whether the kind is a fixed-point type.
func (k Kind) IsInteger() bool {
	switch k {
	case KindUInt8, KindUInt16, KindUInt32, KindUInt64,
		KindInt8, KindInt16, KindInt32, KindInt64:
		return true
	default:
		return false
	}
}

// IsSigned reports whether the kind is a signed fixed-point type.
func (k Kind) IsSigned() bool {
	switch k {
	case KindInt8, KindInt16, KindInt32, KindInt64:
		return true
	default:
		return false
	}
}

// IsFloat reports whether the kind is a floating-point type.
func (k Kind) IsFloat() bool {
	return k == KindFloat32 || k == KindFloat64
}

// IsNumeric reports whether the kind is integer or floating-point.
func (k Kind) IsNumeric() bool {
	return k.IsInteger() || k.IsFloat()
}

// Endianness selects the byte order of a typed view.
type Endianness uint8

// Byte order constants. Little-endian is the default for freshly built
// descriptors.
const (
	LittleEndian Endianness = 0
	BigEndian    Endianness = 1
)

// String returns the schema name of the byte order.
func (e Endianness) String() string {
	if e == BigEndian {
		return "big"
	}
	return "little"
}

// ByteOrder returns the encoding/binary order for numeric access.
func (e Endianness) ByteOrder() binary.ByteOrder {
	if e == BigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// DataType describes a strided typed view over a byte region: element kind,
// logical element count, byte stride between elements, byte offset of the
// first element, per-element byte size and byte order. The byte index of
// logical element i is OffsetBytes + i*StrideBytes. A DataType is a pure
// value; equality is field-wise via ==.
type DataType struct {
	Kind         Kind
	Count        int
	OffsetBytes  int
	StrideBytes  int
	ElementBytes int
	Endianness   Endianness
}

// EmptyType returns the descriptor of an empty or object node.
func EmptyType() DataType {
	return DataType{}
}

// NewDataType builds a fully parameterized descriptor.
func NewDataType(kind Kind, count, offsetBytes, strideBytes, elementBytes int, endianness Endianness) DataType {
	return DataType{
		Kind:         kind,
		Count:        count,
		OffsetBytes:  offsetBytes,
		StrideBytes:  strideBytes,
		ElementBytes: elementBytes,
		Endianness:   endianness,
	}
}

func compactType(kind Kind, count int) DataType {
	size := kind.Size()
	return DataType{
		Kind:         kind,
		Count:        count,
		StrideBytes:  size,
		ElementBytes: size,
		Endianness:   LittleEndian,
	}
}

// UInt8 returns a compact little-endian descriptor for count uint8 elements.
func UInt8(count int) DataType { return compactType(KindUInt8, count) }

// UInt16 returns a compact little-endian descriptor for count uint16 elements.
func UInt16(count int) DataType { return compactType(KindUInt16, count) }

// UInt32 returns a compact little-endian descriptor for count uint32 elements.
func UInt32(count int) DataType { return compactType(KindUInt32, count) }

// UInt64 returns a compact little-endian descriptor for count uint64 elements.
func UInt64(count int) DataType { return compactType(KindUInt64, count) }

// Int8 returns a compact little-endian descriptor for count int8 elements.
func Int8(count int) DataType { return compactType(KindInt8, count) }

// Int16 returns a compact little-endian descriptor for count int16 elements.
func Int16(count int) DataType { return compactType(KindInt16, count) }

// Int32 returns a compact little-endian descriptor for count int32 elements.
func Int32(count int) DataType { return compactType(KindInt32, count) }

// Int64 returns a compact little-endian descriptor for count int64 elements.
func Int64(count int) DataType { return compactType(KindInt64, count) }

// Float32 returns a compact little-endian descriptor for count float32 elements.
func Float32(count int) DataType { return compactType(KindFloat32, count) }

// Float64 returns a compact little-endian descriptor for count float64 elements.
func Float64(count int) DataType { return compactType(KindFloat64, count) }

// Char8 returns a compact descriptor for count 8-bit characters.
func Char8(count int) DataType { return compactType(KindChar8, count) }

// IsEmpty reports whether the descriptor describes no typed view at all.
func (dt DataType) IsEmpty() bool {
	return dt.Kind == KindNone
}

// NumberOfElements returns the logical element count.
func (dt DataType) NumberOfElements() int {
	return dt.Count
}

// BytesCompact returns the byte size of the view when densely packed.
func (dt DataType) BytesCompact() int {
	return dt.Count * dt.ElementBytes
}

// IsCompact reports whether the view is densely packed from byte zero.
func (dt DataType) IsCompact() bool {
	return dt.OffsetBytes == 0 && dt.StrideBytes == dt.ElementBytes
}

// IsNumeric reports whether the element kind is numeric.
func (dt DataType) IsNumeric() bool {
	return dt.Kind.IsNumeric()
}

// IsInteger reports whether the element kind is fixed-point.
func (dt DataType) IsInteger() bool {
	return dt.Kind.IsInteger()
}

// IsFloat reports whether the element kind is floating-point.
func (dt DataType) IsFloat() bool {
	return dt.Kind.IsFloat()
}

// ElementOffset returns the byte index of logical element i.
func (dt DataType) ElementOffset(i int) int {
	return dt.OffsetBytes + i*dt.StrideBytes
}

// SpanBytes returns the number of bytes a region must provide for every
// element of the view to fall inside it.
func (dt DataType) SpanBytes() (uint64, error) {
	if dt.Count < 0 || dt.StrideBytes < 0 || dt.OffsetBytes < 0 || dt.ElementBytes < 0 {
		return 0, fmt.Errorf("negative descriptor field in %s", dt)
	}
	span, err := utils.ElementRegionSize(
		uint64(dt.Count), uint64(dt.StrideBytes), uint64(dt.OffsetBytes), uint64(dt.ElementBytes))
	if err != nil {
		return 0, utils.WrapError("descriptor span", err)
	}
	return span, nil
}

// compact returns the densely packed descriptor with the same kind, count and
// byte order.
func (dt DataType) compact() DataType {
	size := dt.Kind.Size()
	return DataType{
		Kind:         dt.Kind,
		Count:        dt.Count,
		StrideBytes:  size,
		ElementBytes: size,
		Endianness:   dt.Endianness,
	}
}

// String emits the leaf schema form, omitting attributes at their defaults.
// The emitted string parses back through ParseSchema.
func (dt DataType) String() string {
	var sb strings.Builder
	sb.WriteString(dt.Kind.String())
	if dt.Kind == KindNone {
		return sb.String()
	}

	natural := dt.Kind.Size()
	fmt.Fprintf(&sb, ", count=%d", dt.Count)
	if dt.OffsetBytes != 0 {
		fmt.Fprintf(&sb, ", offset=%d", dt.OffsetBytes)
	}
	if dt.StrideBytes != natural {
		fmt.Fprintf(&sb, ", stride=%d", dt.StrideBytes)
	}
	if dt.ElementBytes != natural {
		fmt.Fprintf(&sb, ", element_bytes=%d", dt.ElementBytes)
	}
	if dt.Endianness != LittleEndian {
		fmt.Fprintf(&sb, ", endianness=%s", dt.Endianness)
	}
	return sb.String()
}

// readInt64 decodes element i of the view over data as a widened int64.
// Unsigned 64-bit values wrap into the signed range.
func (dt DataType) readInt64(data []byte, i int) int64 {
	off := dt.ElementOffset(i)
	order := dt.Endianness.ByteOrder()
	switch dt.Kind {
	case KindUInt8, KindChar8:
		return int64(data[off])
	case KindUInt16:
		return int64(order.Uint16(data[off:]))
	case KindUInt32:
		return int64(order.Uint32(data[off:]))
	case KindUInt64:
		return int64(order.Uint64(data[off:]))
	case KindInt8:
		return int64(int8(data[off]))
	case KindInt16:
		return int64(int16(order.Uint16(data[off:])))
	case KindInt32:
		return int64(int32(order.Uint32(data[off:])))
	case KindInt64:
		return int64(order.Uint64(data[off:]))
	case KindFloat32:
		return int64(math.Float32frombits(order.Uint32(data[off:])))
	case KindFloat64:
		return int64(math.Float64frombits(order.Uint64(data[off:])))
	default:
		return 0
	}
}

// readFloat64 decodes element i of the view over data as a widened float64.
func (dt DataType) readFloat64(data []byte, i int) float64 {
	off := dt.ElementOffset(i)
	order := dt.Endianness.ByteOrder()
	switch dt.Kind {
	case KindFloat32:
		return float64(math.Float32frombits(order.Uint32(data[off:])))
	case KindFloat64:
		return math.Float64frombits(order.Uint64(data[off:]))
	case KindUInt64:
		return float64(order.Uint64(data[off:]))
	default:
		return float64(dt.readInt64(data, i))
	}
}

// writeInt64 stores v, narrowed to the element kind, into element i of the
// view over data.
func (dt DataType) writeInt64(data []byte, i int, v int64) {
	off := dt.ElementOffset(i)
	order := dt.Endianness.ByteOrder()
	switch dt.Kind {
	case KindUInt8, KindChar8, KindInt8:
		data[off] = byte(v)
	case KindUInt16, KindInt16:
		order.PutUint16(data[off:], uint16(v))
	case KindUInt32, KindInt32:
		order.PutUint32(data[off:], uint32(v))
	case KindUInt64, KindInt64:
		order.PutUint64(data[off:], uint64(v))
	case KindFloat32:
		order.PutUint32(data[off:], math.Float32bits(float32(v)))
	case KindFloat64:
		order.PutUint64(data[off:], math.Float64bits(float64(v)))
	}
}

// writeFloat64 stores v, narrowed to the element kind, into element i of the
// view over data.
func (dt DataType) writeFloat64(data []byte, i int, v float64) {
	off := dt.ElementOffset(i)
	order := dt.Endianness.ByteOrder()
	switch dt.Kind {
	case KindFloat32:
		order.PutUint32(data[off:], math.Float32bits(float32(v)))
	case KindFloat64:
		order.PutUint64(data[off:], math.Float64bits(v))
	default:
		dt.writeInt64(data, i, int64(v))
	}
}
