package ingest

import (
	"bufio"
	"bytes"
	"errors"
	"io"
)

// lineReader reads newline-terminated lines of any length. Only the first
// MaxLineBytes of a line are kept; the rest is read and discarded.
type lineReader struct {
	r   *bufio.Reader
	buf []byte
}

func newLineReader(r io.Reader) *lineReader {
	return &lineReader{r: bufio.NewReaderSize(r, initialLineBuffer)}
}

// next returns the next line without its terminator. truncated is set when
// the line was longer than MaxLineBytes. io.EOF is returned once no bytes are
// left; a final line without newline is returned like any other.
func (lr *lineReader) next() (line string, truncated bool, err error) {
	lr.buf = lr.buf[:0]
	read := 0
	for {
		chunk, err := lr.r.ReadSlice('\n')
		read += len(chunk)
		if room := MaxLineBytes + 1 - len(lr.buf); room > 0 {
			lr.buf = append(lr.buf, chunk[:min(len(chunk), room)]...)
		}

		switch {
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF):
			if read == 0 {
				return "", false, io.EOF
			}
		case err != nil:
			return "", false, err
		}

		content := bytes.TrimSuffix(lr.buf, []byte("\n"))
		if len(content) > MaxLineBytes {
			return string(content[:MaxLineBytes]), true, nil
		}
		return string(bytes.TrimSuffix(content, []byte("\r"))), false, nil
	}
}
