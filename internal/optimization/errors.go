package optimization

import (
	"errors"
	"fmt"
)

// FitErrorKind classifies why a fit failed.
type FitErrorKind int

const (
	// NotConverged means the iteration cap was reached first.
	NotConverged FitErrorKind = iota + 1
	// Diverged means the residual never became finite.
	Diverged
	// NoParameters means there was nothing to optimize.
	NoParameters
)

func (k FitErrorKind) String() string {
	switch k {
	case NotConverged:
		return "not converged"
	case Diverged:
		return "diverged"
	case NoParameters:
		return "no parameters"
	}
	return fmt.Sprintf("FitErrorKind(%d)", int(k))
}

// Sentinels for errors.Is; only the kind is compared.
var (
	ErrNotConverged = &FitError{Kind: NotConverged}
	ErrDiverged     = &FitError{Kind: Diverged}
	ErrNoParameters = &FitError{Kind: NoParameters}
)

// FitError reports a failed fit. It is recoverable: the search discards
// the candidate and moves on.
type FitError struct {
	Kind FitErrorKind
	// Op is the operation that failed.
	Op string
	// Component is the fitter that failed.
	Component string
	// Residual and Iterations describe the state the fit stopped in.
	Residual   float64
	Iterations int
	// Err is the underlying error, if any.
	Err error
}

// NewFitError returns a FitError of the given kind.
func NewFitError(kind FitErrorKind, residual float64, iterations int) *FitError {
	return &FitError{Kind: kind, Residual: residual, Iterations: iterations}
}

// Error returns the string representation of the error.
func (e *FitError) Error() string {
	if e == nil {
		return "<nil>"
	}
	var prefix string
	if e.Component != "" && e.Op != "" {
		prefix = fmt.Sprintf("%s: %s: ", e.Component, e.Op)
	} else if e.Component != "" {
		prefix = e.Component + ": "
	} else if e.Op != "" {
		prefix = e.Op + ": "
	}
	msg := fmt.Sprintf("%sfit %s after %d iterations (residual %g)", prefix, e.Kind, e.Iterations, e.Residual)
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying error, if any.
func (e *FitError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches any FitError of the same kind.
func (e *FitError) Is(target error) bool {
	t, ok := target.(*FitError)
	return ok && e != nil && t != nil && e.Kind == t.Kind
}

// WithOperation adds operation context to the error.
func (e *FitError) WithOperation(op string) *FitError {
	e.Op = op
	return e
}

// WithComponent adds component context to the error.
func (e *FitError) WithComponent(component string) *FitError {
	e.Component = component
	return e
}

// WithCause records the underlying error.
func (e *FitError) WithCause(err error) *FitError {
	e.Err = err
	return e
}

// AsFitError returns the FitError in err's chain, if any.
func AsFitError(err error) (*FitError, bool) {
	var fe *FitError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}
