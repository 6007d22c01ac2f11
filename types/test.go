package types

import (
	"fmt"
	"strings"
	"time"
)

// TestStatus represents the possible outcomes of a work unit
type TestStatus string

const (
	TestStatusPass  TestStatus = "pass"
	TestStatusFail  TestStatus = "fail"
	TestStatusSkip  TestStatus = "skip"
	TestStatusError TestStatus = "error"
)

// Description identifies a test, a suite or a whole run in report events.
type Description struct {
	DisplayName string
	Suite       string
	Method      string
	Children    []*Description
}

// NewSuiteDescription creates a description for a suite of tests
func NewSuiteDescription(name string, children ...*Description) *Description {
	return &Description{DisplayName: name, Suite: name, Children: children}
}

// NewTestDescription creates a description for a single test method of a suite
func NewTestDescription(suite, method string) *Description {
	return &Description{
		DisplayName: fmt.Sprintf("%s(%s)", method, suite),
		Suite:       suite,
		Method:      method,
	}
}

// IsSuite reports whether the description names a suite rather than a single test
func (d *Description) IsSuite() bool {
	return d.Method == ""
}

// TestCount returns the number of leaf tests below (and including) this description
func (d *Description) TestCount() int {
	if d == nil {
		return 0
	}
	if !d.IsSuite() {
		return 1
	}
	n := 0
	for _, c := range d.Children {
		n += c.TestCount()
	}
	return n
}

func (d *Description) String() string {
	if d == nil {
		return "<nil>"
	}
	return d.DisplayName
}

// Failure pairs a failed test with the error that caused it
type Failure struct {
	Description *Description
	Err         error
}

// Message returns the failure message, or an empty string when no error is attached
func (f *Failure) Message() string {
	if f == nil || f.Err == nil {
		return ""
	}
	return f.Err.Error()
}

func (f *Failure) String() string {
	return fmt.Sprintf("%s: %s", f.Description, f.Message())
}

// Result summarises a finished run
type Result struct {
	RunCount               int
	FailureCount           int
	IgnoreCount            int
	AssumptionFailureCount int
	RunTime                time.Duration
	Failures               []*Failure
}

// WasSuccessful reports whether the run finished without failures
func (r *Result) WasSuccessful() bool {
	return r.FailureCount == 0
}

func (r *Result) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "run=%d failed=%d ignored=%d assumptions=%d time=%s",
		r.RunCount, r.FailureCount, r.IgnoreCount, r.AssumptionFailureCount, r.RunTime)
	return b.String()
}
