package core

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"
)

func TestNewUploadReader(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  string
	}{
		{
			name:  "utf-8 with BOM",
			input: append([]byte{0xEF, 0xBB, 0xBF}, "name,zip"...),
			want:  "name,zip",
		},
		{
			name:  "plain utf-8",
			input: []byte("name,zip"),
			want:  "name,zip",
		},
		{
			name:  "utf-16le with BOM",
			input: []byte{0xFF, 0xFE, 'n', 0, 'a', 0, 'm', 0, 'e', 0},
			want:  "name",
		},
		{
			name:  "utf-16be with BOM",
			input: []byte{0xFE, 0xFF, 0, 'z', 0, 'i', 0, 'p'},
			want:  "zip",
		},
		{
			name:  "invalid byte replaced",
			input: []byte{'h', 'e', 0x80, 'l', 'o'},
			want:  "he?lo",
		},
		{
			name:  "empty",
			input: []byte{},
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := io.ReadAll(NewUploadReader(bytes.NewReader(tt.input)))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStreamingUTF8Sanitizer(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected string
	}{
		{"valid ASCII", []byte("hello,world"), "hello,world"},
		{"valid multibyte", []byte("Zoë,Ñandú"), "Zoë,Ñandú"},
		{"invalid single byte replaced", []byte{'h', 'e', 0x80, 'l', 'o'}, "he?lo"},
		{"truncated sequence at EOF", []byte{'a', 0xC3}, "a?"},
		{"empty input", []byte{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := NewStreamingUTF8Sanitizer(bytes.NewReader(tt.input))
			result, err := io.ReadAll(reader)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(result) != tt.expected {
				t.Errorf("got %q, want %q", string(result), tt.expected)
			}
		})
	}
}

func TestStreamingUTF8Sanitizer_SplitSequence(t *testing.T) {
	// One byte per Read splits every multi-byte rune across calls.
	input := "Zoë Ñandú, São Paulo"
	reader := NewStreamingUTF8Sanitizer(iotest.OneByteReader(strings.NewReader(input)))

	got, err := io.ReadAll(reader)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != input {
		t.Errorf("got %q, want %q", got, input)
	}
}

func TestReadUpload(t *testing.T) {
	data, err := ReadUpload(strings.NewReader("abc"), 3)
	if err != nil {
		t.Fatalf("ReadUpload() error = %v", err)
	}
	if string(data) != "abc" {
		t.Errorf("ReadUpload() = %q, want %q", data, "abc")
	}

	_, err = ReadUpload(strings.NewReader("abcd"), 3)
	if e, ok := AsError(err); !ok || e.Code != CodeFileTooLarge {
		t.Errorf("ReadUpload() error = %v, want %s", err, CodeFileTooLarge)
	}

	data, err = ReadUpload(strings.NewReader("unbounded"), 0)
	if err != nil || string(data) != "unbounded" {
		t.Errorf("ReadUpload(no limit) = %q, %v", data, err)
	}

	boom := errors.New("boom")
	if _, err := ReadUpload(iotest.ErrReader(boom), 10); !errors.Is(err, boom) {
		t.Errorf("ReadUpload() error = %v, want wrapped %v", err, boom)
	}
}
