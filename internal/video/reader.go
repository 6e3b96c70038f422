package video

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/hupe1980/trajstore/internal/fs"
	"github.com/hupe1980/trajstore/internal/mmap"
)

// Reader provides random access to the frames of a segment file.
type Reader struct {
	r       io.ReaderAt
	size    int64
	closer  io.Closer
	hdr     Header
	offsets []uint64
	sealed  bool
}

// NewReader parses the segment in r. A missing or damaged footer is not an
// error: the offset table is rebuilt by scanning records.
func NewReader(r io.ReaderAt, size int64) (*Reader, error) {
	buf := make([]byte, HeaderSize)
	if _, err := r.ReadAt(buf, 0); err != nil {
		return nil, fmt.Errorf("video: read header: %w", err)
	}
	hdr, err := DecodeHeader(buf)
	if err != nil {
		return nil, err
	}
	rd := &Reader{r: r, size: size, hdr: *hdr}
	if offsets, ok := rd.readFooter(); ok {
		rd.offsets = offsets
		rd.sealed = true
	} else {
		rd.offsets = rd.scan()
	}
	return rd, nil
}

// OpenFile opens a segment through fsys. Use it for the active segment,
// whose size changes while it is written.
func OpenFile(fsys fs.FileSystem, path string) (*Reader, error) {
	if fsys == nil {
		fsys = fs.Default
	}
	f, err := fs.Open(fsys, path)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	rd, err := NewReader(f, info.Size())
	if err != nil {
		f.Close()
		return nil, err
	}
	rd.closer = f
	return rd, nil
}

// OpenMapped memory-maps a sealed segment.
func OpenMapped(path string) (*Reader, error) {
	m, err := mmap.Open(path)
	if err != nil {
		return nil, err
	}
	_ = m.Advise(mmap.AccessRandom)
	rd, err := NewReader(m, m.Size())
	if err != nil {
		m.Close()
		return nil, err
	}
	rd.closer = m
	return rd, nil
}

// Header returns the segment header.
func (r *Reader) Header() Header { return r.hdr }

// Frames returns the number of readable frames.
func (r *Reader) Frames() int { return len(r.offsets) }

// Sealed reports whether the segment carried a valid footer.
func (r *Reader) Sealed() bool { return r.sealed }

// Frame decodes frame i.
func (r *Reader) Frame(i int) ([]byte, error) {
	if i < 0 || i >= len(r.offsets) {
		return nil, fmt.Errorf("%w: %d not in [0,%d)", ErrFrameRange, i, len(r.offsets))
	}
	off := int64(r.offsets[i])
	var hb [RecordHeaderSize]byte
	if _, err := r.r.ReadAt(hb[:], off); err != nil {
		return nil, fmt.Errorf("%w: frame %d: %v", ErrCorruptFrame, i, err)
	}
	rec := decodeRecordHeader(hb[:])
	if int(rec.rawLen) != r.hdr.FrameBytes() {
		return nil, fmt.Errorf("%w: frame %d: raw length %d", ErrCorruptFrame, i, rec.rawLen)
	}
	if rec.storedLen > rec.rawLen || off+RecordHeaderSize+rec.payloadLen() > r.size {
		return nil, fmt.Errorf("%w: frame %d: stored length %d", ErrCorruptFrame, i, rec.storedLen)
	}
	payload := make([]byte, rec.payloadLen())
	if _, err := r.r.ReadAt(payload, off+RecordHeaderSize); err != nil {
		return nil, fmt.Errorf("%w: frame %d: %v", ErrCorruptFrame, i, err)
	}
	raw := payload
	if rec.storedLen != 0 {
		var err error
		raw, err = decompressFrame(payload, int(rec.rawLen), r.hdr.Compression)
		if err != nil {
			return nil, fmt.Errorf("%w: frame %d: %v", ErrCorruptFrame, i, err)
		}
	}
	if checksum(raw) != rec.sum {
		return nil, fmt.Errorf("%w: frame %d: checksum mismatch", ErrCorruptFrame, i)
	}
	return raw, nil
}

// Close releases the underlying file or mapping.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	err := r.closer.Close()
	r.closer = nil
	return err
}

func (r *Reader) readFooter() ([]uint64, bool) {
	if r.size < HeaderSize+TrailerSize {
		return nil, false
	}
	var t [TrailerSize]byte
	if _, err := r.r.ReadAt(t[:], r.size-TrailerSize); err != nil {
		return nil, false
	}
	if binary.LittleEndian.Uint32(t[16:]) != TrailerMagic {
		return nil, false
	}
	tableOff := int64(binary.LittleEndian.Uint64(t[0:]))
	count := int64(binary.LittleEndian.Uint32(t[8:]))
	if tableOff < HeaderSize || tableOff+count*8+TrailerSize != r.size {
		return nil, false
	}
	table := make([]byte, count*8)
	if _, err := r.r.ReadAt(table, tableOff); err != nil && !errors.Is(err, io.EOF) {
		return nil, false
	}
	if checksum(table) != binary.LittleEndian.Uint32(t[12:]) {
		return nil, false
	}
	offsets := make([]uint64, count)
	for i := range offsets {
		offsets[i] = binary.LittleEndian.Uint64(table[i*8:])
	}
	return offsets, true
}

// scan walks records from the header until the data runs out or a record
// does not look like a frame of this segment.
func (r *Reader) scan() []uint64 {
	var (
		offsets []uint64
		hb      [RecordHeaderSize]byte
		pos     = int64(HeaderSize)
		want    = uint32(r.hdr.FrameBytes())
	)
	for pos+RecordHeaderSize <= r.size {
		if _, err := r.r.ReadAt(hb[:], pos); err != nil {
			break
		}
		rec := decodeRecordHeader(hb[:])
		if rec.rawLen != want || rec.storedLen > want {
			break
		}
		end := pos + RecordHeaderSize + rec.payloadLen()
		if end > r.size {
			break
		}
		offsets = append(offsets, uint64(pos))
		pos = end
	}
	return offsets
}
