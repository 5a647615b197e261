package layer

import (
	"encoding/binary"
	"math"

	"github.com/chinifabio/renoir-go/coord"
	"github.com/chinifabio/renoir-go/element"
	"github.com/chinifabio/renoir-go/errs"
	"github.com/chinifabio/renoir-go/row"
)

// EncodeFrame serializes (meta, e) into the canonical byte
// representation of §6: element tag occupies one byte, timestamps 8
// bytes big-endian, schema-typed payloads encoded cell tag + value. The
// result is the frame body; transports are responsible for their own
// outer length-prefixing or message-boundary framing (Kafka and Redis
// both already preserve message boundaries, so this package does not
// add a redundant length prefix of its own).
func EncodeFrame(meta MessageMetadata, e element.StreamElement[row.Row]) []byte {
	var buf []byte
	buf = appendString(buf, meta.LayerName)
	buf = appendString(buf, string(meta.Fingerprint))
	buf = appendUint32(buf, uint32(meta.Parallelism))

	buf = append(buf, byte(e.Tag()))
	switch e.Tag() {
	case element.TagTimestamped, element.TagWatermark:
		buf = appendUint64(buf, uint64(e.Timestamp()))
	}
	if v, ok := e.Payload(); ok {
		buf = appendUint32(buf, uint32(v.KeyLen))
		buf = appendUint32(buf, uint32(len(v.Cells)))
		for _, c := range v.Cells {
			buf = appendCell(buf, c)
		}
	}
	return buf
}

// DecodeFrame is EncodeFrame's inverse.
func DecodeFrame(buf []byte) (MessageMetadata, element.StreamElement[row.Row], error) {
	var meta MessageMetadata
	var zero element.StreamElement[row.Row]

	layerName, rest, err := readString(buf)
	if err != nil {
		return meta, zero, err
	}
	fp, rest, err := readString(rest)
	if err != nil {
		return meta, zero, err
	}
	parallelism, rest, err := readUint32(rest)
	if err != nil {
		return meta, zero, err
	}
	meta = MessageMetadata{LayerName: layerName, Fingerprint: coord.Fingerprint(fp), Parallelism: int(parallelism)}

	if len(rest) < 1 {
		return meta, zero, errs.New(errs.CodeInvalid, "layer: frame truncated before tag byte")
	}
	tag := element.Tag(rest[0])
	rest = rest[1:]

	switch tag {
	case element.TagTimestamped:
		ts, r2, err := readUint64(rest)
		if err != nil {
			return meta, zero, err
		}
		rest = r2
		v, _, err := readRow(rest)
		if err != nil {
			return meta, zero, err
		}
		return meta, element.Timestamped(v, element.Timestamp(ts)), nil
	case element.TagWatermark:
		ts, _, err := readUint64(rest)
		if err != nil {
			return meta, zero, err
		}
		return meta, element.Watermark[row.Row](element.Timestamp(ts)), nil
	case element.TagItem:
		v, _, err := readRow(rest)
		if err != nil {
			return meta, zero, err
		}
		return meta, element.Item(v), nil
	case element.TagFlushBatch:
		return meta, element.FlushBatch[row.Row](), nil
	case element.TagFlushAndRestart:
		return meta, element.FlushAndRestart[row.Row](), nil
	case element.TagTerminate:
		return meta, element.Terminate[row.Row](), nil
	default:
		return meta, zero, errs.Newf(errs.CodeInvalid, "layer: unknown element tag %d", tag)
	}
}

func appendString(buf []byte, s string) []byte {
	buf = appendUint32(buf, uint32(len(s)))
	return append(buf, s...)
}

func appendUint32(buf []byte, v uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return append(buf, b[:]...)
}

func appendUint64(buf []byte, v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return append(buf, b[:]...)
}

func appendCell(buf []byte, c row.Cell) []byte {
	buf = append(buf, byte(c.Kind()))
	switch c.Kind() {
	case row.KindBool:
		b, _ := c.AsBool()
		if b {
			buf = append(buf, 1)
		} else {
			buf = append(buf, 0)
		}
	case row.KindInt32:
		n, _ := c.AsInt32()
		buf = appendUint32(buf, uint32(n))
	case row.KindFloat32:
		f, _ := c.AsFloat32()
		buf = appendUint32(buf, math.Float32bits(f))
	}
	return buf
}

func readString(buf []byte) (string, []byte, error) {
	n, rest, err := readUint32(buf)
	if err != nil {
		return "", nil, err
	}
	if uint32(len(rest)) < n {
		return "", nil, errs.New(errs.CodeInvalid, "layer: frame truncated reading string")
	}
	return string(rest[:n]), rest[n:], nil
}

func readUint32(buf []byte) (uint32, []byte, error) {
	if len(buf) < 4 {
		return 0, nil, errs.New(errs.CodeInvalid, "layer: frame truncated reading uint32")
	}
	return binary.BigEndian.Uint32(buf), buf[4:], nil
}

func readUint64(buf []byte) (uint64, []byte, error) {
	if len(buf) < 8 {
		return 0, nil, errs.New(errs.CodeInvalid, "layer: frame truncated reading uint64")
	}
	return binary.BigEndian.Uint64(buf), buf[8:], nil
}

func readRow(buf []byte) (row.Row, []byte, error) {
	keyLen, rest, err := readUint32(buf)
	if err != nil {
		return row.Row{}, nil, err
	}
	n, rest, err := readUint32(rest)
	if err != nil {
		return row.Row{}, nil, err
	}
	cells := make([]row.Cell, n)
	for i := range cells {
		c, r2, err := readCell(rest)
		if err != nil {
			return row.Row{}, nil, err
		}
		cells[i] = c
		rest = r2
	}
	return row.Row{Cells: cells, KeyLen: int(keyLen)}, rest, nil
}

func readCell(buf []byte) (row.Cell, []byte, error) {
	if len(buf) < 1 {
		return row.Cell{}, nil, errs.New(errs.CodeInvalid, "layer: frame truncated reading cell tag")
	}
	kind := row.Kind(buf[0])
	rest := buf[1:]
	switch kind {
	case row.KindNone:
		return row.None(), rest, nil
	case row.KindNaN:
		return row.NaNCell(), rest, nil
	case row.KindBool:
		if len(rest) < 1 {
			return row.Cell{}, nil, errs.New(errs.CodeInvalid, "layer: frame truncated reading bool cell")
		}
		return row.Bool(rest[0] != 0), rest[1:], nil
	case row.KindInt32:
		v, r2, err := readUint32(rest)
		if err != nil {
			return row.Cell{}, nil, err
		}
		return row.Int32(int32(v)), r2, nil
	case row.KindFloat32:
		v, r2, err := readUint32(rest)
		if err != nil {
			return row.Cell{}, nil, err
		}
		return row.Float32(math.Float32frombits(v)), r2, nil
	default:
		return row.Cell{}, nil, errs.Newf(errs.CodeInvalid, "layer: unknown cell kind %d", kind)
	}
}
