package video

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"

	"github.com/google/uuid"
)

const (
	Magic        = 0x564A5254 // "TRJV"
	TrailerMagic = 0x454A5254 // "TRJE"
	Version      = 1

	HeaderSize       = 64
	RecordHeaderSize = 12
	TrailerSize      = 20

	// DefaultFPS is the nominal playback rate stamped into new segments.
	DefaultFPS = 20
)

var (
	ErrInvalidMagic   = errors.New("video: invalid magic number")
	ErrInvalidVersion = errors.New("video: unsupported version")
	ErrHeaderChecksum = errors.New("video: header checksum mismatch")
	ErrCorruptFrame   = errors.New("video: corrupt frame")
	ErrFrameRange     = errors.New("video: frame index out of range")
	ErrClosed         = errors.New("video: writer is closed")
)

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

func checksum(data []byte) uint32 {
	return crc32.Checksum(data, castagnoli)
}

// Header describes a segment file. It carries the tiling so a segment can be
// cropped without any external configuration.
type Header struct {
	TileWidth   uint32
	TileHeight  uint32
	GridSize    uint32
	NumEnvs     uint32
	FPS         uint32
	Compression Compression
	Ordinal     uint64
	RunID       uuid.UUID
}

// Width is the grid frame width in pixels.
func (h Header) Width() int { return int(h.GridSize * h.TileWidth) }

// Height is the grid frame height in pixels.
func (h Header) Height() int { return int(h.GridSize * h.TileHeight) }

// FrameBytes is the size of one raw grid frame.
func (h Header) FrameBytes() int { return h.Width() * h.Height() * 3 }

// Encode serializes the header.
func (h *Header) Encode() []byte {
	buf := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(buf[0:], Magic)
	binary.LittleEndian.PutUint32(buf[4:], Version)
	binary.LittleEndian.PutUint32(buf[8:], h.TileWidth)
	binary.LittleEndian.PutUint32(buf[12:], h.TileHeight)
	binary.LittleEndian.PutUint32(buf[16:], h.GridSize)
	binary.LittleEndian.PutUint32(buf[20:], h.NumEnvs)
	binary.LittleEndian.PutUint32(buf[24:], h.FPS)
	buf[28] = byte(h.Compression)
	// Padding [29:32]
	binary.LittleEndian.PutUint64(buf[32:], h.Ordinal)
	copy(buf[40:56], h.RunID[:])
	binary.LittleEndian.PutUint32(buf[56:], checksum(buf[:56]))
	return buf
}

// DecodeHeader parses and verifies a header.
func DecodeHeader(buf []byte) (*Header, error) {
	if len(buf) < HeaderSize {
		return nil, fmt.Errorf("video: header too short (%d < %d)", len(buf), HeaderSize)
	}
	if binary.LittleEndian.Uint32(buf[0:]) != Magic {
		return nil, ErrInvalidMagic
	}
	if v := binary.LittleEndian.Uint32(buf[4:]); v != Version {
		return nil, fmt.Errorf("%w: %d", ErrInvalidVersion, v)
	}
	if binary.LittleEndian.Uint32(buf[56:]) != checksum(buf[:56]) {
		return nil, ErrHeaderChecksum
	}
	h := &Header{
		TileWidth:   binary.LittleEndian.Uint32(buf[8:]),
		TileHeight:  binary.LittleEndian.Uint32(buf[12:]),
		GridSize:    binary.LittleEndian.Uint32(buf[16:]),
		NumEnvs:     binary.LittleEndian.Uint32(buf[20:]),
		FPS:         binary.LittleEndian.Uint32(buf[24:]),
		Compression: Compression(buf[28]),
		Ordinal:     binary.LittleEndian.Uint64(buf[32:]),
	}
	copy(h.RunID[:], buf[40:56])
	return h, nil
}

type recordHeader struct {
	rawLen    uint32
	storedLen uint32
	sum       uint32
}

func (r recordHeader) payloadLen() int64 {
	if r.storedLen == 0 {
		return int64(r.rawLen)
	}
	return int64(r.storedLen)
}

func (r recordHeader) encode(buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:], r.rawLen)
	binary.LittleEndian.PutUint32(buf[4:], r.storedLen)
	binary.LittleEndian.PutUint32(buf[8:], r.sum)
}

func decodeRecordHeader(buf []byte) recordHeader {
	return recordHeader{
		rawLen:    binary.LittleEndian.Uint32(buf[0:]),
		storedLen: binary.LittleEndian.Uint32(buf[4:]),
		sum:       binary.LittleEndian.Uint32(buf[8:]),
	}
}

func encodeFooter(offsets []uint64, tableOff int64) []byte {
	buf := make([]byte, len(offsets)*8+TrailerSize)
	for i, off := range offsets {
		binary.LittleEndian.PutUint64(buf[i*8:], off)
	}
	table := buf[:len(offsets)*8]
	t := buf[len(table):]
	binary.LittleEndian.PutUint64(t[0:], uint64(tableOff))
	binary.LittleEndian.PutUint32(t[8:], uint32(len(offsets)))
	binary.LittleEndian.PutUint32(t[12:], checksum(table))
	binary.LittleEndian.PutUint32(t[16:], TrailerMagic)
	return buf
}
