package features

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

const (
	maxLineBytes  = 16 << 20
	ctxCheckLines = 4096
)

// ReadMatrix parses whitespace-separated rows of numbers, one timestep per
// line, as written by numpy.savetxt. Blank lines and lines starting with '#'
// are skipped. Every row must have the width of the first.
func ReadMatrix(ctx context.Context, r io.Reader, channel string) (Channel, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), maxLineBytes)

	out := Channel{Name: channel}
	line := 0

	for sc.Scan() {
		line++

		if line%ctxCheckLines == 0 {
			if err := ctx.Err(); err != nil {
				return Channel{}, err
			}
		}

		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		fields := strings.Fields(text)
		if out.Width == 0 {
			out.Width = len(fields)
		} else if len(fields) != out.Width {
			return Channel{}, fmt.Errorf("%w: %s line %d has %d values, want %d",
				ErrShapeMismatch, channel, line, len(fields), out.Width)
		}

		for _, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return Channel{}, fmt.Errorf("features: %s line %d: invalid number %q", channel, line, f)
			}

			out.Data = append(out.Data, v)
		}
	}

	if err := sc.Err(); err != nil {
		return Channel{}, fmt.Errorf("features: read %s: %w", channel, err)
	}

	if len(out.Data) == 0 {
		return Channel{}, fmt.Errorf("%w: %s has no frames", ErrShapeMismatch, channel)
	}

	return out, nil
}

// ReadMatrixFile is ReadMatrix over the file at path.
func ReadMatrixFile(ctx context.Context, path, channel string) (Channel, error) {
	f, err := os.Open(path)
	if err != nil {
		return Channel{}, fmt.Errorf("features: open %s: %w", channel, err)
	}
	defer f.Close()

	return ReadMatrix(ctx, bufio.NewReaderSize(f, 1<<20), channel)
}

// WriteMatrix writes c in the layout ReadMatrix accepts, using numpy's
// default %.18e formatting.
func WriteMatrix(w io.Writer, c Channel) error {
	bw := bufio.NewWriter(w)
	buf := make([]byte, 0, 32)

	for t := range c.Rows() {
		for j, v := range c.Row(t) {
			if j > 0 {
				if err := bw.WriteByte(' '); err != nil {
					return err
				}
			}

			buf = strconv.AppendFloat(buf[:0], v, 'e', 18, 64)
			if _, err := bw.Write(buf); err != nil {
				return err
			}
		}

		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}

	return bw.Flush()
}

// WriteMatrixFile writes c to path, replacing any existing file.
func WriteMatrixFile(path string, c Channel) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("features: create %s: %w", path, err)
	}

	if err := WriteMatrix(f, c); err != nil {
		f.Close()
		return fmt.Errorf("features: write %s: %w", path, err)
	}

	return f.Close()
}
