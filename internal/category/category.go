// Package category defines the closed product-category label set and the
// per-URL classification result shared by the classifiers and the runner.
package category

import "strings"

// Code is a product-category label written to the Product column.
type Code string

// Category codes. The set is closed; anything else is coerced to None.
const (
	ClothingAndShoes Code = "9"
	Clothing         Code = "8"
	Shoes            Code = "7"
	Lingerie         Code = "6"
	None             Code = "-"
)

var labels = map[Code]string{
	ClothingAndShoes: "Clothing + Shoes",
	Clothing:         "Clothing",
	Shoes:            "Shoes",
	Lingerie:         "Lingerie",
	None:             "No match",
}

// Codes lists every valid code in taxonomy order.
func Codes() []Code {
	return []Code{ClothingAndShoes, Clothing, Shoes, Lingerie, None}
}

// Parse trims raw and reports whether it is exactly one of the valid codes.
func Parse(raw string) (Code, bool) {
	c := Code(strings.TrimSpace(raw))
	if !c.Valid() {
		return None, false
	}
	return c, true
}

// Valid reports whether c belongs to the closed label set.
func (c Code) Valid() bool {
	_, ok := labels[c]
	return ok
}

// Label returns a human-readable name for the code.
func (c Code) Label() string {
	if l, ok := labels[c]; ok {
		return l
	}
	return "unknown"
}

func (c Code) String() string { return string(c) }

// Status is the value written to the Status column.
type Status int

// Status values.
const (
	Failed    Status = 0
	Succeeded Status = 1
)

func (s Status) String() string {
	if s == Succeeded {
		return "1"
	}
	return "0"
}

// Source names the classifier that produced a result.
type Source string

// Result sources.
const (
	SourceNone  Source = "none"
	SourceRules Source = "rules"
	SourceLLM   Source = "llm"
)

// Result is the outcome of classifying one URL. It is immutable once built;
// use the constructors so the status/code invariant always holds.
type Result struct {
	Code   Code
	Status Status
	Source Source
}

// FailedResult is the degraded ("-", 0) result every absorbed error maps to.
func FailedResult() Result {
	return Result{Code: None, Status: Failed, Source: SourceNone}
}

// FromRules wraps a rule-classifier code. Rule routing always succeeds.
func FromRules(code Code) Result {
	if !code.Valid() {
		code = None
	}
	return Result{Code: code, Status: Succeeded, Source: SourceRules}
}

// FromLLM wraps the language-model classifier output. A failed call must
// carry None, so any other code reported with Failed is discarded.
func FromLLM(code Code, status Status) Result {
	if status != Succeeded {
		return FailedResult()
	}
	if !code.Valid() {
		code = None
	}
	return Result{Code: code, Status: Succeeded, Source: SourceLLM}
}

// OK reports whether the result was produced by a classifier.
func (r Result) OK() bool { return r.Status == Succeeded }
