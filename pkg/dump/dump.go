// Package dump stores captured fixed-size records in a flat file: a short
// header followed by the records back to back, optionally zstd-compressed.
// Reading a dump yields a []B that aliases one decoded buffer.
package dump

import (
	"errors"
	"fmt"
	"io"
	"math"
	"unsafe"

	"github.com/klauspost/compress/zstd"
	"github.com/rawbytedev/recast"
)

var (
	ErrBadMagic   = errors.New("dump: bad magic")
	ErrVersion    = errors.New("dump: unsupported version")
	ErrRecordSize = errors.New("dump: record size mismatch")
	ErrTruncated  = errors.New("dump: truncated")
	ErrClosed     = errors.New("dump: writer closed")
	ErrCorrupt    = errors.New("dump: corrupt header")
)

// Options controls how the body is stored.
type Options struct {
	Compress bool
	Level    zstd.EncoderLevel // zero means zstd.SpeedDefault
}

// ParseLevel maps "fastest", "default", "better" or "best" to a zstd level.
func ParseLevel(s string) (zstd.EncoderLevel, error) {
	ok, l := zstd.EncoderLevelFromString(s)
	if !ok {
		return 0, fmt.Errorf("dump: unknown compression level %q", s)
	}
	return l, nil
}

// Writer buffers records and writes the dump on Close.
type Writer struct {
	w          io.Writer
	recordSize int
	opts       Options
	body       []byte
	count      uint64
	closed     bool
}

// NewWriter starts a dump of recordSize-byte records.
func NewWriter(w io.Writer, recordSize int, opts Options) (*Writer, error) {
	if recordSize <= 0 || recordSize > math.MaxUint32 {
		return nil, fmt.Errorf("%w: %d", ErrRecordSize, recordSize)
	}
	return &Writer{w: w, recordSize: recordSize, opts: opts}, nil
}

// Append adds one record. rec must be exactly one record long.
func (w *Writer) Append(rec []byte) error {
	if w.closed {
		return ErrClosed
	}
	if len(rec) != w.recordSize {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrRecordSize, len(rec), w.recordSize)
	}
	w.body = append(w.body, rec...)
	w.count++
	return nil
}

func (w *Writer) Count() uint64 { return w.count }

// Close writes the header and body. The underlying writer is not closed.
func (w *Writer) Close() error {
	if w.closed {
		return ErrClosed
	}
	w.closed = true
	h := Header{
		Magic:      Magic,
		Version:    Version,
		RecordSize: uint32(w.recordSize),
		Count:      w.count,
	}
	body := w.body
	if w.opts.Compress {
		comp, err := compress(body, w.opts.Level)
		if err != nil {
			return err
		}
		body = comp
		h.Flags |= FlagZstd
	}
	if len(body) > math.MaxUint32 {
		return fmt.Errorf("dump: body of %d bytes too large", len(body))
	}
	h.BodyLen = uint32(len(body))
	if _, err := w.w.Write(EncodeHeader(make([]byte, 0, HeaderSize), h)); err != nil {
		return fmt.Errorf("dump: write header: %w", err)
	}
	if _, err := w.w.Write(body); err != nil {
		return fmt.Errorf("dump: write body: %w", err)
	}
	return nil
}

func compress(raw []byte, level zstd.EncoderLevel) ([]byte, error) {
	if level == 0 {
		level = zstd.SpeedDefault
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(level))
	if err != nil {
		return nil, fmt.Errorf("dump: zstd encoder: %w", err)
	}
	defer enc.Close()
	return enc.EncodeAll(raw, nil), nil
}

// WriteRecords writes records as a complete dump.
func WriteRecords[B any](w io.Writer, records []B, opts Options) error {
	var b B
	dw, err := NewWriter(w, int(unsafe.Sizeof(b)), opts)
	if err != nil {
		return err
	}
	dw.body = recast.AsBytes(records)
	dw.count = uint64(len(records))
	return dw.Close()
}

// ReadAll reads a dump and returns its header and decoded body. The body
// starts on an 8-byte boundary so it can be viewed with recast.FromBytes.
func ReadAll(r io.Reader) (Header, []byte, error) {
	hb := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, hb); err != nil {
		return Header{}, nil, fmt.Errorf("%w: header: %v", ErrTruncated, err)
	}
	h, err := ParseHeader(hb)
	if err != nil {
		return h, nil, err
	}
	rawLen := h.RawLen()
	if rawLen > math.MaxInt32 {
		return h, nil, fmt.Errorf("dump: body of %d bytes too large", rawLen)
	}
	body := alignedBuffer(int(rawLen))
	if !h.Compressed() {
		if uint64(h.BodyLen) != rawLen {
			return h, nil, fmt.Errorf("%w: body length %d, want %d", ErrTruncated, h.BodyLen, rawLen)
		}
		if _, err := io.ReadFull(r, body); err != nil {
			return h, nil, fmt.Errorf("%w: body: %v", ErrTruncated, err)
		}
		return h, body, nil
	}
	if rawLen == 0 {
		return h, body, nil
	}
	stored := make([]byte, h.BodyLen)
	if _, err := io.ReadFull(r, stored); err != nil {
		return h, nil, fmt.Errorf("%w: body: %v", ErrTruncated, err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return h, nil, fmt.Errorf("dump: zstd decoder: %w", err)
	}
	defer dec.Close()
	out, err := dec.DecodeAll(stored, body[:0])
	if err != nil {
		return h, nil, fmt.Errorf("dump: decompress: %w", err)
	}
	if uint64(len(out)) != rawLen {
		return h, nil, fmt.Errorf("%w: decoded %d bytes, want %d", ErrTruncated, len(out), rawLen)
	}
	return h, out, nil
}

// ReadRecords reads a dump of B records as one contiguous slice.
func ReadRecords[B any](r io.Reader) ([]B, error) {
	h, body, err := ReadAll(r)
	if err != nil {
		return nil, err
	}
	var b B
	if uintptr(h.RecordSize) != unsafe.Sizeof(b) {
		return nil, fmt.Errorf("%w: dump holds %d-byte records, %T is %d bytes",
			ErrRecordSize, h.RecordSize, b, unsafe.Sizeof(b))
	}
	return recast.FromBytes[B](body)
}

func alignedBuffer(n int) []byte {
	if n == 0 {
		return []byte{}
	}
	words := make([]uint64, (n+7)/8)
	return recast.AsBytes(words)[:n]
}
