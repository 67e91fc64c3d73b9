package audio

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// sampleDigits keeps 17 significant digits, enough to round-trip a float64.
const sampleDigits = 16

// WriteSamples writes one sample per line.
func WriteSamples(w io.Writer, samples []float64) error {
	bw := bufio.NewWriter(w)
	buf := make([]byte, 0, 32)

	for _, s := range samples {
		buf = strconv.AppendFloat(buf[:0], s, 'e', sampleDigits, 64)
		buf = append(buf, '\n')

		if _, err := bw.Write(buf); err != nil {
			return err
		}
	}

	return bw.Flush()
}

// ReadSamples reads the layout WriteSamples produces. Blank lines are
// skipped.
func ReadSamples(r io.Reader) ([]float64, error) {
	sc := bufio.NewScanner(r)

	var out []float64

	line := 0
	for sc.Scan() {
		line++

		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}

		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, fmt.Errorf("samples line %d: invalid number %q", line, text)
		}

		out = append(out, v)
	}

	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read samples: %w", err)
	}

	return out, nil
}

// WriteSamplesFile writes samples to path, replacing any existing file.
func WriteSamplesFile(path string, samples []float64) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	if err := WriteSamples(f, samples); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}

	return f.Close()
}

// ReadSamplesFile is ReadSamples over the file at path.
func ReadSamplesFile(path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	return ReadSamples(f)
}
