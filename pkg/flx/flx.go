// Package flx reads FLX resource archives.
//
// An archive is a fixed 0x80-byte header followed by a table of {offset, size}
// records. Offsets are counted from the start of the file. No compression is
// applied to record payloads.
package flx

import (
	"errors"
	"fmt"
	"os"

	"github.com/Faultbox/u9assets/pkg/binio"
)

// HeaderSize is the size in bytes of the archive header.
const HeaderSize = 0x80

// RecordSize is the size in bytes of one record table entry.
const RecordSize = 8

// Archive errors.
var (
	ErrTruncatedHeader  = errors.New("truncated FLX header")
	ErrTruncatedRecords = errors.New("truncated FLX record table")
	ErrRecordIndex      = errors.New("FLX record index out of range")
	ErrRecordBounds     = errors.New("FLX record outside archive")
	ErrEmptyRecord      = errors.New("FLX record is empty")
)

// Header is the fixed archive header.
type Header struct {
	Reserved1 [0x4C]byte
	Reserved2 uint32 // 0x4C
	Count     uint32 // 0x50
	Version   uint32 // 0x54, usually 2
	Size      uint32 // 0x58
	Size2     uint32 // 0x5C
	Reserved3 [4]uint32
	Reserved4 [0x10]byte
}

// SizeConsistent reports whether both declared sizes match the actual file length.
func (h *Header) SizeConsistent(fileLen int) bool {
	return int(h.Size) == fileLen && int(h.Size2) == fileLen
}

// Record addresses one payload in the archive.
type Record struct {
	Offset uint32
	Size   uint32
}

// End returns the offset one past the last payload byte.
func (r Record) End() uint64 {
	return uint64(r.Offset) + uint64(r.Size)
}

// Empty reports whether the record holds no data.
func (r Record) Empty() bool {
	return r.Offset == 0 || r.Size == 0
}

// Within reports whether the record lies entirely inside a file of the given length.
func (r Record) Within(fileLen int) bool {
	return r.End() <= uint64(fileLen)
}

// ReadHeader decodes the archive header at the reader's cursor.
func ReadHeader(r *binio.Reader) (Header, error) {
	var h Header
	r.ReadInto(h.Reserved1[:])
	h.Reserved2 = r.U32()
	h.Count = r.U32()
	h.Version = r.U32()
	h.Size = r.U32()
	h.Size2 = r.U32()
	for i := range h.Reserved3 {
		h.Reserved3[i] = r.U32()
	}
	r.ReadInto(h.Reserved4[:])
	if err := r.Err(); err != nil {
		return Header{}, fmt.Errorf("%w: %w", ErrTruncatedHeader, err)
	}
	return h, nil
}

// ReadRecords decodes exactly count records at the reader's cursor.
func ReadRecords(r *binio.Reader, count uint32) ([]Record, error) {
	if uint64(count)*RecordSize > uint64(r.Remaining()) {
		return nil, fmt.Errorf("%w: %d records need %d bytes, have %d",
			ErrTruncatedRecords, count, uint64(count)*RecordSize, r.Remaining())
	}
	records := make([]Record, count)
	for i := range records {
		records[i] = Record{Offset: r.U32(), Size: r.U32()}
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTruncatedRecords, err)
	}
	return records, nil
}

// Archive is an FLX archive held in memory.
type Archive struct {
	data    []byte
	header  Header
	records []Record
}

// Open reads and parses an archive file.
func Open(path string) (*Archive, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	return Parse(data)
}

// Parse parses an archive from raw bytes. The archive keeps a reference to data.
func Parse(data []byte) (*Archive, error) {
	r := binio.NewReader(data)

	header, err := ReadHeader(r)
	if err != nil {
		return nil, err
	}

	records, err := ReadRecords(r, header.Count)
	if err != nil {
		return nil, err
	}

	return &Archive{
		data:    data,
		header:  header,
		records: records,
	}, nil
}

// Close releases the archive buffer.
func (a *Archive) Close() error {
	a.data = nil
	a.records = nil
	return nil
}

// Header returns the archive header.
func (a *Archive) Header() Header { return a.header }

// Len returns the archive length in bytes.
func (a *Archive) Len() int { return len(a.data) }

// Count returns the number of records in the table.
func (a *Archive) Count() int { return len(a.records) }

// Records returns the record table. The slice is shared and must not be modified.
func (a *Archive) Records() []Record { return a.records }

// Record returns record i.
func (a *Archive) Record(i int) (Record, error) {
	if i < 0 || i >= len(a.records) {
		return Record{}, fmt.Errorf("%w: %d (count %d)", ErrRecordIndex, i, len(a.records))
	}
	return a.records[i], nil
}

// Read returns the exact payload of record i.
func (a *Archive) Read(i int) ([]byte, error) {
	rec, err := a.Record(i)
	if err != nil {
		return nil, err
	}
	if !rec.Within(len(a.data)) {
		return nil, fmt.Errorf("%w: record %d [%d, %d) in %d bytes",
			ErrRecordBounds, i, rec.Offset, rec.End(), len(a.data))
	}
	return a.data[rec.Offset:rec.End()], nil
}

// Section returns the archive bytes from record i's offset to the end of the file.
// Offsets stored inside a record are relative to its start, and the declared size
// is not always reliable, so decoders address the record through this view.
func (a *Archive) Section(i int) ([]byte, error) {
	rec, err := a.Record(i)
	if err != nil {
		return nil, err
	}
	if rec.Offset == 0 {
		return nil, fmt.Errorf("%w: %d", ErrEmptyRecord, i)
	}
	if int64(rec.Offset) > int64(len(a.data)) {
		return nil, fmt.Errorf("%w: record %d offset %d in %d bytes",
			ErrRecordBounds, i, rec.Offset, len(a.data))
	}
	return a.data[rec.Offset:], nil
}

// List returns the indexes of all non-empty records.
func (a *Archive) List() []int {
	result := make([]int, 0, len(a.records))
	for i, rec := range a.records {
		if !rec.Empty() {
			result = append(result, i)
		}
	}
	return result
}

// Stats summarizes the record table.
type Stats struct {
	Records        int
	Used           int
	OutOfBounds    int
	PayloadBytes   uint64
	SizeConsistent bool
}

// Stats returns record table statistics.
func (a *Archive) Stats() Stats {
	s := Stats{
		Records:        len(a.records),
		SizeConsistent: a.header.SizeConsistent(len(a.data)),
	}
	for _, rec := range a.records {
		if rec.Empty() {
			continue
		}
		s.Used++
		s.PayloadBytes += uint64(rec.Size)
		if !rec.Within(len(a.data)) {
			s.OutOfBounds++
		}
	}
	return s
}
