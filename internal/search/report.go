package search

import (
	"fmt"
	"io"
	"strings"
)

const ruleWidth = 42

// Reporter writes the human-readable search transcript.
type Reporter struct {
	w io.Writer
}

// NewReporter returns a Reporter writing to w.
func NewReporter(w io.Writer) *Reporter {
	return &Reporter{w: w}
}

// Throughput prints the generated and fitted counters with their rates.
func (r *Reporter) Throughput(s Stats) {
	fmt.Fprintf(r.w, "candidates generated: %d\t%s/s\n", s.Generated, FormatRate(s.GeneratedRate()))
	fmt.Fprintf(r.w, "candidates fitted   : %d\t%s/s\n", s.Fitted, FormatRate(s.FittedRate()))
}

// NewBest prints the announcement block for an improved best function.
func (r *Reporter) NewBest(b Best) {
	fmt.Fprintln(r.w)
	fmt.Fprintln(r.w, "FOUND NEW BEST FUNCTION:")
	r.Result(b)
	fmt.Fprintln(r.w)
	fmt.Fprintln(r.w, "searching...")
}

// Template prints the template about to be fitted.
func (r *Reporter) Template(text string) {
	fmt.Fprintf(r.w, "f = %s\n", text)
}

// Result prints a fitted function with its residual and R-squared.
func (r *Reporter) Result(b Best) {
	fmt.Fprintf(r.w, "fit_iters: %d\n", b.FitIterations)
	fmt.Fprintln(r.w, "FUNCTION:")
	fmt.Fprintln(r.w, b.Candidate.PlotString())
	fmt.Fprintf(r.w, "residue = %v\n", b.Residual)
	fmt.Fprintf(r.w, "r_squared = %v\n", b.RSquared)
	fmt.Fprintln(r.w, strings.Repeat("-", ruleWidth))
}

// Stopped prints why the search ended.
func (r *Reporter) Stopped(reason string, s Stats) {
	fmt.Fprintf(r.w, "search stopped: %s\n", reason)
	r.Throughput(s)
}

// FormatRate renders a per-second rate with fewer decimals the larger it is.
func FormatRate(x float64) string {
	return fmt.Sprintf("%.*f", rateDecimals(x), x)
}

func rateDecimals(x float64) int {
	switch {
	case x > 1000:
		return 0
	case x > 100:
		return 1
	case x > 10:
		return 2
	case x > 0.1:
		return 3
	case x > 0.01:
		return 4
	case x > 0.001:
		return 5
	default:
		return 6
	}
}
