// Package dataset loads the (x, y) samples a search is fitted against.
package dataset

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/copyleftdev/symfit/internal/errors"
)

// Point is one sample.
type Point struct {
	X, Y float64
}

// Dataset is an immutable ordered sequence of samples.
type Dataset struct {
	xs []float64
	ys []float64
}

// New returns a dataset holding a copy of points.
func New(points []Point) *Dataset {
	d := &Dataset{
		xs: make([]float64, len(points)),
		ys: make([]float64, len(points)),
	}
	for i, p := range points {
		d.xs[i], d.ys[i] = p.X, p.Y
	}
	return d
}

// Len returns the number of samples.
func (d *Dataset) Len() int { return len(d.xs) }

// At returns the i-th sample.
func (d *Dataset) At(i int) Point { return Point{X: d.xs[i], Y: d.ys[i]} }

// Xs returns the inputs. The slice is shared and must not be modified.
func (d *Dataset) Xs() []float64 { return d.xs }

// Ys returns the observed outputs. The slice is shared and must not be
// modified.
func (d *Dataset) Ys() []float64 { return d.ys }

// FormatError reports a malformed dataset.
type FormatError struct {
	// Line is 1-based; 0 means the file as a whole.
	Line int
	Text string
	Msg  string
}

func (e *FormatError) Error() string {
	if e.Line == 0 {
		return "dataset: " + e.Msg
	}
	return fmt.Sprintf("dataset: line %d %q: %s", e.Line, e.Text, e.Msg)
}

// maxLineSize bounds a single dataset line.
const maxLineSize = 1 << 20

// Read parses samples from r. Each non-blank line holds x and y separated
// by whitespace.
func Read(r io.Reader) (*Dataset, error) {
	var points []Point
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	n := 0
	for sc.Scan() {
		n++
		line := sc.Text()
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if len(fields) != 2 {
			return nil, &FormatError{Line: n, Text: line, Msg: fmt.Sprintf("want 2 fields, got %d", len(fields))}
		}
		x, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, &FormatError{Line: n, Text: line, Msg: "invalid x value"}
		}
		y, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, &FormatError{Line: n, Text: line, Msg: "invalid y value"}
		}
		if !finite(x) || !finite(y) {
			return nil, &FormatError{Line: n, Text: line, Msg: "non-finite value"}
		}
		points = append(points, Point{X: x, Y: y})
	}
	if err := sc.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return nil, &FormatError{Line: n + 1, Msg: fmt.Sprintf("line exceeds %d bytes", maxLineSize)}
		}
		return nil, errors.Wrap(err, "read dataset").WithComponent("dataset")
	}
	if len(points) == 0 {
		return nil, &FormatError{Msg: "no samples"}
	}
	return New(points), nil
}

// Load reads the dataset stored at path.
func Load(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open dataset %s", path).
			WithOperation("Load").
			WithComponent("dataset")
	}
	defer f.Close()

	d, err := Read(f)
	if err != nil {
		return nil, err
	}
	return d, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
