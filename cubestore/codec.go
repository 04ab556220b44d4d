package cubestore

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/janelia-flyem/segedit/vol"

	"github.com/blang/semver"
	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/tinylib/msgp/msgp"
)

// RecordVersion is the version of the encoded cube record.  Records with a different
// major version are rejected.
var RecordVersion = semver.MustParse("1.0.0")

// Compression is the codec applied to a cube's label payload.
type Compression uint8

const (
	Uncompressed Compression = iota
	Snappy
	Zstd
)

func (c Compression) String() string {
	switch c {
	case Uncompressed:
		return "none"
	case Snappy:
		return "snappy"
	case Zstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown compression %d", c)
	}
}

// ParseCompression converts a configuration string into a Compression.  The empty
// string selects snappy.
func ParseCompression(s string) (Compression, error) {
	switch strings.ToLower(s) {
	case "", "snappy":
		return Snappy, nil
	case "zstd":
		return Zstd, nil
	case "none", "uncompressed":
		return Uncompressed, nil
	default:
		return Uncompressed, fmt.Errorf("unknown cube compression %q", s)
	}
}

// Codec serializes cubes into self-describing records: a msgpack map holding the
// record version, cube edge, compression and compressed little-endian labels.
// A Codec is safe for concurrent use.
type Codec struct {
	compression Compression
	zenc        *zstd.Encoder
	zdec        *zstd.Decoder
}

// NewCodec returns a codec that writes records with the given compression.  It can
// read records of any compression.
func NewCodec(compression Compression) (*Codec, error) {
	zenc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("can't create zstd encoder: %v", err)
	}
	zdec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("can't create zstd decoder: %v", err)
	}
	return &Codec{compression: compression, zenc: zenc, zdec: zdec}, nil
}

// Compression returns the compression used for encoding.
func (cd *Codec) Compression() Compression {
	return cd.compression
}

// Encode returns the record for a cube.
func (cd *Codec) Encode(c *Cube) ([]byte, error) {
	raw := make([]byte, 8*len(c.labels))
	for i, label := range c.labels {
		binary.LittleEndian.PutUint64(raw[i*8:], label)
	}
	var payload []byte
	switch cd.compression {
	case Uncompressed:
		payload = raw
	case Snappy:
		payload = snappy.Encode(nil, raw)
	case Zstd:
		payload = cd.zenc.EncodeAll(raw, nil)
	default:
		return nil, fmt.Errorf("can't encode cube %s with %s", c.Coord, cd.compression)
	}

	b := make([]byte, 0, len(payload)+48)
	b = msgp.AppendMapHeader(b, 4)
	b = msgp.AppendString(b, "version")
	b = msgp.AppendString(b, RecordVersion.String())
	b = msgp.AppendString(b, "edge")
	b = msgp.AppendInt32(b, c.edge)
	b = msgp.AppendString(b, "compression")
	b = msgp.AppendString(b, cd.compression.String())
	b = msgp.AppendString(b, "labels")
	b = msgp.AppendBytes(b, payload)
	return b, nil
}

// Decode returns the cube stored in a record.
func (cd *Codec) Decode(coord vol.ChunkPoint3d, record []byte) (*Cube, error) {
	sz, b, err := msgp.ReadMapHeaderBytes(record)
	if err != nil {
		return nil, fmt.Errorf("bad record header for cube %s: %v", coord, err)
	}
	var (
		version     semver.Version
		edge        int32
		compression = Uncompressed
		payload     []byte
		key         string
	)
	for i := uint32(0); i < sz; i++ {
		if key, b, err = msgp.ReadStringBytes(b); err != nil {
			return nil, fmt.Errorf("bad record key for cube %s: %v", coord, err)
		}
		switch key {
		case "version":
			var s string
			if s, b, err = msgp.ReadStringBytes(b); err == nil {
				version, err = semver.Parse(s)
			}
		case "edge":
			edge, b, err = msgp.ReadInt32Bytes(b)
		case "compression":
			var s string
			if s, b, err = msgp.ReadStringBytes(b); err == nil {
				compression, err = ParseCompression(s)
			}
		case "labels":
			payload, b, err = msgp.ReadBytesZC(b)
		default:
			b, err = msgp.Skip(b)
		}
		if err != nil {
			return nil, fmt.Errorf("bad %q field in record for cube %s: %v", key, coord, err)
		}
	}
	if version.Major != RecordVersion.Major {
		return nil, fmt.Errorf("cube %s record version %s incompatible with %s", coord, version, RecordVersion)
	}

	var raw []byte
	switch compression {
	case Uncompressed:
		raw = payload
	case Snappy:
		if raw, err = snappy.Decode(nil, payload); err != nil {
			return nil, fmt.Errorf("can't snappy decode cube %s: %v", coord, err)
		}
	case Zstd:
		if raw, err = cd.zdec.DecodeAll(payload, nil); err != nil {
			return nil, fmt.Errorf("can't zstd decode cube %s: %v", coord, err)
		}
	}
	if len(raw)%8 != 0 {
		return nil, fmt.Errorf("cube %s payload of %d bytes isn't a multiple of 8", coord, len(raw))
	}
	labels := make([]uint64, len(raw)/8)
	for i := range labels {
		labels[i] = binary.LittleEndian.Uint64(raw[i*8:])
	}
	return NewCubeFromLabels(coord, edge, labels)
}
