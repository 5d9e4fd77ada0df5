package parser

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/afero"
)

// maxLineBytes bounds a single trace line. ASC lines are short; anything longer
// is not a frame and is dropped without ending the read.
const maxLineBytes = 1024 * 1024

const readBufferSize = 64 * 1024

// Source is a single-pass reader over the lines of one log resource.
// It owns the underlying file handle until Close is called.
type Source struct {
	file    afero.File
	reader  *bufio.Reader
	buf     []byte
	text    string
	lines   int
	dropped int
	err     error
}

// OpenSource opens path on fs for line-by-line reading.
func OpenSource(fs afero.Fs, path string) (*Source, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening log %s: %w", path, err)
	}

	return &Source{file: f, reader: bufio.NewReaderSize(f, readBufferSize)}, nil
}

// Next advances to the next line. It returns false at end of input or on a read error.
// Lines longer than maxLineBytes are consumed and skipped.
func (s *Source) Next() bool {
	for s.err == nil {
		line, overlong, err := s.readLine()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				s.err = err
			}
			return false
		}
		s.lines++
		if overlong {
			s.dropped++
			continue
		}
		s.text = string(line)
		return true
	}
	return false
}

// readLine assembles one logical line from the reader's chunks. Once a line
// passes maxLineBytes the rest of it is discarded.
func (s *Source) readLine() (line []byte, overlong bool, err error) {
	s.buf = s.buf[:0]
	for {
		chunk, isPrefix, rerr := s.reader.ReadLine()
		if rerr != nil {
			return nil, false, rerr
		}
		if !overlong {
			if len(s.buf)+len(chunk) > maxLineBytes {
				overlong = true
				s.buf = s.buf[:0]
			} else {
				s.buf = append(s.buf, chunk...)
			}
		}
		if !isPrefix {
			return s.buf, overlong, nil
		}
	}
}

// Text returns the current line.
func (s *Source) Text() string {
	return s.text
}

// LinesRead returns how many lines have been pulled so far, dropped ones included.
func (s *Source) LinesRead() int {
	return s.lines
}

// Dropped returns how many lines were skipped for exceeding the line limit.
func (s *Source) Dropped() int {
	return s.dropped
}

// Err returns the first non-EOF read error.
func (s *Source) Err() error {
	return s.err
}

// Close releases the file handle. Safe to call more than once.
func (s *Source) Close() error {
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}
