package video

import (
	"bufio"
	"fmt"

	"github.com/hupe1980/trajstore/internal/fs"
)

type countingWriter struct {
	w *bufio.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}

// Writer appends grid frames to a new segment file. It is not safe for
// concurrent use.
type Writer struct {
	f       fs.File
	cw      *countingWriter
	path    string
	hdr     Header
	offsets []uint64
	recHdr  [RecordHeaderSize]byte
	closed  bool
	err     error // sticky write error
}

// Create creates (or truncates) path and writes the segment header.
func Create(fsys fs.FileSystem, path string, hdr Header) (*Writer, error) {
	if fsys == nil {
		fsys = fs.Default
	}
	if hdr.FPS == 0 {
		hdr.FPS = DefaultFPS
	}
	if hdr.FrameBytes() <= 0 {
		return nil, fmt.Errorf("video: empty frame geometry %dx%d", hdr.Width(), hdr.Height())
	}
	f, err := fs.Create(fsys, path)
	if err != nil {
		return nil, err
	}
	w := &Writer{
		f:    f,
		cw:   &countingWriter{w: bufio.NewWriterSize(f, 256*1024)},
		path: path,
		hdr:  hdr,
	}
	if _, err := w.cw.Write(hdr.Encode()); err != nil {
		f.Close()
		return nil, err
	}
	if err := w.cw.w.Flush(); err != nil {
		f.Close()
		return nil, err
	}
	return w, nil
}

// Path returns the file path of the segment.
func (w *Writer) Path() string { return w.path }

// Header returns the segment header.
func (w *Writer) Header() Header { return w.hdr }

// Frames returns the number of frames appended so far.
func (w *Writer) Frames() int { return len(w.offsets) }

// Append encodes one grid frame.
func (w *Writer) Append(frame []byte) error {
	if w.closed {
		return ErrClosed
	}
	if w.err != nil {
		return w.err
	}
	if len(frame) != w.hdr.FrameBytes() {
		return fmt.Errorf("video: frame has %d bytes, expected %d", len(frame), w.hdr.FrameBytes())
	}

	stored, err := compressFrame(frame, w.hdr.Compression)
	if err != nil {
		return w.fail(fmt.Errorf("video: compress frame %d: %w", len(w.offsets), err))
	}
	rec := recordHeader{rawLen: uint32(len(frame)), sum: checksum(frame)}
	payload := frame
	if stored != nil {
		rec.storedLen = uint32(len(stored))
		payload = stored
	}
	rec.encode(w.recHdr[:])

	start := w.cw.n
	if _, err := w.cw.Write(w.recHdr[:]); err != nil {
		return w.fail(err)
	}
	if _, err := w.cw.Write(payload); err != nil {
		return w.fail(err)
	}
	w.offsets = append(w.offsets, uint64(start))
	return nil
}

// Flush pushes buffered records to the file so readers of the still-open
// segment can see them.
func (w *Writer) Flush() error {
	if w.closed {
		return ErrClosed
	}
	if w.err != nil {
		return w.err
	}
	if err := w.cw.w.Flush(); err != nil {
		return w.fail(err)
	}
	return nil
}

// Close writes the footer, syncs and releases the file. It is terminal; a
// second Close returns nil.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	err := w.err
	if err == nil {
		if _, werr := w.cw.Write(encodeFooter(w.offsets, w.cw.n)); werr != nil {
			err = werr
		}
	}
	if err == nil {
		err = w.cw.w.Flush()
	}
	if err == nil {
		err = w.f.Sync()
	}
	if cerr := w.f.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

func (w *Writer) fail(err error) error {
	w.err = err
	return err
}
