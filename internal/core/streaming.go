package core

// streaming.go decodes uploaded bytes before they reach the CSV reader.
//
//   - A UTF-8, UTF-16LE, or UTF-16BE byte order mark selects the encoding and
//     is dropped (golang.org/x/text BOMOverride).
//   - Unmarked input is read as UTF-8; StreamingUTF8Sanitizer replaces
//     invalid bytes with '?' so one bad byte does not fail the whole file.
//
// Use NewUploadReader to apply both in the correct order.

import (
	"bytes"
	"fmt"
	"io"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// NewUploadReader wraps r so it yields sanitized UTF-8 with no byte order
// mark.
func NewUploadReader(r io.Reader) io.Reader {
	decoded := transform.NewReader(r, unicode.BOMOverride(transform.Nop))
	return NewStreamingUTF8Sanitizer(decoded)
}

// ReadUpload reads at most maxSize bytes from r. Larger input fails with
// FILE_TOO_LARGE; maxSize <= 0 means no limit.
func ReadUpload(r io.Reader, maxSize int64) ([]byte, error) {
	if maxSize <= 0 {
		return io.ReadAll(r)
	}
	data, err := io.ReadAll(io.LimitReader(r, maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > maxSize {
		return nil, newError(KindInput, CodeFileTooLarge, "File exceeds the %d byte upload limit", maxSize)
	}
	return data, nil
}

// decodeUpload runs data through NewUploadReader.
func decodeUpload(data []byte) ([]byte, error) {
	out, err := io.ReadAll(NewUploadReader(bytes.NewReader(data)))
	if err != nil {
		return nil, fmt.Errorf("encoding error: %w", err)
	}
	return out, nil
}

// StreamingUTF8Sanitizer wraps an io.Reader and replaces invalid UTF-8
// bytes with '?' on the fly. Multi-byte sequences split across reads are
// carried over to the next Read.
type StreamingUTF8Sanitizer struct {
	reader io.Reader

	// Leftover bytes from previous read that may form a multi-byte sequence
	pending []byte
}

// NewStreamingUTF8Sanitizer creates a new streaming UTF-8 sanitizer.
func NewStreamingUTF8Sanitizer(r io.Reader) *StreamingUTF8Sanitizer {
	return &StreamingUTF8Sanitizer{
		reader:  r,
		pending: make([]byte, 0, utf8.UTFMax),
	}
}

// Read implements io.Reader.
func (s *StreamingUTF8Sanitizer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	offset := 0
	if len(s.pending) > 0 {
		offset = copy(p, s.pending)
		s.pending = s.pending[:0]
	}

	n, err := s.reader.Read(p[offset:])
	n += offset
	if n == 0 {
		return 0, err
	}

	if isAllASCII(p[:n]) {
		return n, err
	}
	return s.sanitize(p[:n], err == io.EOF), err
}

// isAllASCII is the fast path for plain CSV data.
func isAllASCII(data []byte) bool {
	for _, b := range data {
		if b >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// sanitize rewrites data in place and returns the number of bytes to emit.
// Unless atEOF, an incomplete trailing sequence is held back in pending.
// Invalid bytes become '?' rather than U+FFFD so the output never grows.
func (s *StreamingUTF8Sanitizer) sanitize(data []byte, atEOF bool) int {
	if utf8.Valid(data) {
		if !atEOF {
			if trailing := incompleteTrailingBytes(data); trailing > 0 {
				s.pending = append(s.pending, data[len(data)-trailing:]...)
				return len(data) - trailing
			}
		}
		return len(data)
	}

	write := 0
	for read := 0; read < len(data); {
		if !atEOF && !utf8.FullRune(data[read:]) {
			s.pending = append(s.pending, data[read:]...)
			return write
		}
		r, size := utf8.DecodeRune(data[read:])
		if r == utf8.RuneError && size == 1 {
			data[write] = '?'
			write++
			read++
			continue
		}
		copy(data[write:], data[read:read+size])
		write += size
		read += size
	}
	return write
}

// incompleteTrailingBytes returns how many bytes at the end of data start a
// multi-byte sequence that is not yet complete.
func incompleteTrailingBytes(data []byte) int {
	for i := 1; i <= utf8.UTFMax-1 && i <= len(data); i++ {
		b := data[len(data)-i]
		if b >= 0xC0 {
			if i < sequenceLen(b) {
				return i
			}
			return 0
		}
		if b&0xC0 != 0x80 {
			return 0
		}
	}
	return 0
}

// sequenceLen returns the encoded length announced by a UTF-8 lead byte.
func sequenceLen(b byte) int {
	switch {
	case b < 0x80:
		return 1
	case b < 0xC0:
		return 0
	case b < 0xE0:
		return 2
	case b < 0xF0:
		return 3
	}
	return 4
}
