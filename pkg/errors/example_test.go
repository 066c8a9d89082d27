// Package errors provides examples of structured error handling in colgen.
package errors_test

import (
	"fmt"
	"io"

	"github.com/branchprice/colgen/pkg/errors"
)

// Example demonstrates basic error creation with context details.
func Example() {
	// Create a new error with type
	err := errors.New(errors.ErrorTypeConfig, "efficacy weight must be nonnegative")

	// Add context details
	err = err.WithDetail("weight", -0.5).
		WithDetail("field", "efficacy_weight")

	// Details travel with the error but stay out of the message
	fmt.Println(err.Error())

	// Output:
	// config: efficacy weight must be nonnegative
}

// ExampleWrap shows how to wrap existing errors with context.
func ExampleWrap() {
	// Simulate an underlying error
	originalErr := io.ErrUnexpectedEOF

	// Wrap the error with context
	err := errors.Wrap(originalErr, errors.ErrorTypeIO, "failed to read instance file").
		WithDetail("file", "waste.yaml")

	// Check the error type
	if errors.IsType(err, errors.ErrorTypeIO) {
		fmt.Println("This is an io error")
	}

	// The original error stays reachable through the chain
	if err.Unwrap() == originalErr {
		fmt.Println("Unwrap returns the original error")
	}

	// Output:
	// This is an io error
	// Unwrap returns the original error
}

// ExampleErrorType demonstrates the error categories used across the
// solver.
func ExampleErrorType() {
	// Validation error from instance checking
	valErr := errors.Newf(errors.ErrorTypeValidation, "item %d: width must be positive", 2)
	fmt.Printf("Validation error: %v\n", valErr)

	// Numeric error from the master LP
	numErr := errors.New(errors.ErrorTypeNumeric, "master LP is unbounded")
	fmt.Printf("Numeric error: %v\n", numErr)

	// Config error from store construction
	cfgErr := errors.New(errors.ErrorTypeConfig, "lambda mode is reserved").
		WithDetail("mode", "lambda")
	fmt.Printf("Config error: %v\n", cfgErr)

	// Output:
	// Validation error: validation: item 2: width must be positive
	// Numeric error: numeric: master LP is unbounded
	// Config error: config: lambda mode is reserved
}

// Example_errorChain shows how errors gain context as they cross
// component boundaries.
func Example_errorChain() {
	// A failed master solve surfaces through the pricing round
	err := solveMaster()
	if err != nil {
		err = errors.Wrap(err, errors.ErrorTypeInternal, "pricing round failed").
			WithDetail("round", 17).
			WithDetail("phase", "redcost")

		fmt.Println("Full error chain:", err)
	}

	// Output:
	// Full error chain: internal: pricing round failed: numeric: simplex failed to converge
}

// solveMaster simulates a master LP failure
func solveMaster() error {
	return errors.New(errors.ErrorTypeNumeric, "simplex failed to converge").
		WithDetail("iterations", 2000)
}

// Example_errorHandling demonstrates type-directed handling in an
// admission loop.
func Example_errorHandling() {
	// Candidate coefficient vectors must match the master's row count
	lengths := []int{4, 4, 3, 4}

	for i, n := range lengths {
		err := checkCandidate(4, n)
		if err != nil {
			switch {
			case errors.IsType(err, errors.ErrorTypeValidation):
				fmt.Printf("Skipping candidate %d: %v\n", i, err)
				continue
			default:
				fmt.Printf("Fatal error at candidate %d: %v\n", i, err)
				return
			}
		}
	}

	// Output:
	// Skipping candidate 2: validation: coefficient length mismatch
}

// checkCandidate simulates candidate validation
func checkCandidate(rows, n int) error {
	if n != rows {
		return errors.New(errors.ErrorTypeValidation, "coefficient length mismatch").
			WithDetail("rows", rows).
			WithDetail("got", n)
	}
	return nil
}

// ExampleIsType demonstrates checking error types.
func ExampleIsType() {
	cfgErr := errors.New(errors.ErrorTypeConfig, "unknown efficacy mode")
	valErr := errors.New(errors.ErrorTypeValidation, "instance has no items")

	// Wrapping replaces the reported type with the outermost one
	wrappedErr := errors.Wrap(cfgErr, errors.ErrorTypeInternal, "store construction failed")

	fmt.Printf("Is config error: %v\n", errors.IsType(cfgErr, errors.ErrorTypeConfig))
	fmt.Printf("Is validation error: %v\n", errors.IsType(valErr, errors.ErrorTypeValidation))

	// IsType reports the outermost structured type in the chain
	fmt.Printf("Wrapped error is internal: %v\n", errors.IsType(wrappedErr, errors.ErrorTypeInternal))
	fmt.Printf("Wrapped error reports config: %v\n", errors.IsType(wrappedErr, errors.ErrorTypeConfig))

	// Output:
	// Is config error: true
	// Is validation error: true
	// Wrapped error is internal: true
	// Wrapped error reports config: false
}

// Example_customErrorHandling shows how to pull structured fields out of
// an error for reporting.
func Example_customErrorHandling() {
	handleError := func(err error) {
		if err == nil {
			return
		}

		if solveErr, ok := err.(*errors.Error); ok {
			fmt.Printf("Error Type: %s\n", solveErr.Type)
			fmt.Printf("Message: %s\n", solveErr.Message)

			if len(solveErr.Details) > 0 {
				fmt.Println("Details:")
				// Print details in a deterministic order
				if round, ok := solveErr.Details["round"]; ok {
					fmt.Printf("  round: %v\n", round)
				}
				if objective, ok := solveErr.Details["objective"]; ok {
					fmt.Printf("  objective: %v\n", objective)
				}
				if tolerance, ok := solveErr.Details["tolerance"]; ok {
					fmt.Printf("  tolerance: %v\n", tolerance)
				}
			}
		}
	}

	err := errors.New(errors.ErrorTypeNumeric, "dual values diverged").
		WithDetail("round", 42).
		WithDetail("objective", 5.59).
		WithDetail("tolerance", 1e-7)

	handleError(err)

	// Output:
	// Error Type: numeric
	// Message: dual values diverged
	// Details:
	//   round: 42
	//   objective: 5.59
	//   tolerance: 1e-07
}
