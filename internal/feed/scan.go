package feed

import (
	"bufio"
	"context"
	"errors"
	"io"

	"github.com/rotisserie/eris"
)

// maxLineBytes bounds a single line. Expanded descriptions can run long.
const maxLineBytes = 1 << 20

// Stats counts parse outcomes for a file.
type Stats struct {
	Parsed    int
	Malformed int
	Skipped   int
}

// Record tallies err into the stats and returns it unchanged.
func (s *Stats) Record(err error) error {
	switch {
	case err == nil:
		s.Parsed++
	case errors.Is(err, ErrSkipped):
		s.Skipped++
	case errors.Is(err, ErrMalformedRecord):
		s.Malformed++
	}
	return err
}

// Scan calls fn for every non-empty line of r with its 1-based line number.
// It stops at the first error from fn or when ctx is done.
func Scan(ctx context.Context, r io.Reader, fn func(lineNo int, line string) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)

	lineNo := 0
	for sc.Scan() {
		lineNo++
		if lineNo%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		line := sc.Text()
		if line == "" {
			continue
		}
		if err := fn(lineNo, line); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return eris.Wrapf(err, "feed: scan line %d", lineNo+1)
	}
	return nil
}

// CountLines returns the number of non-empty lines in r.
func CountLines(r io.Reader) (int, error) {
	n := 0
	err := Scan(context.Background(), r, func(int, string) error {
		n++
		return nil
	})
	return n, err
}
