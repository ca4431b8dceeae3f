package errors_test

import (
	"fmt"
	"os"

	"github.com/jeannie068/analogplace/pkg/errors"
)

func ExampleNew() {
	// Create a coded error for a malformed input line
	err := errors.New(errors.ErrCodeInvalidInput, "module %q has no dimensions", "M3")

	fmt.Println(err)
	fmt.Println("Code:", errors.GetCode(err))
	// Output:
	// INVALID_INPUT: module "M3" has no dimensions
	// Code: INVALID_INPUT
}

func ExampleWrap() {
	// Wrap a filesystem error while keeping the cause in the chain
	err := errors.Wrap(errors.ErrCodeFileNotFound, os.ErrNotExist, "open %s", "circuit.txt")

	fmt.Println(err)
	fmt.Println("Not found:", errors.Is(err, errors.ErrCodeFileNotFound))
	fmt.Println("Timeout:", errors.Is(err, errors.ErrCodeTimeout))
	// Output:
	// FILE_NOT_FOUND: open circuit.txt: file does not exist
	// Not found: true
	// Timeout: false
}

func ExampleUserMessage() {
	// UserMessage strips the code prefix for display to end users
	err := errors.New(errors.ErrCodeViolatesSymmetry, "modules M1 and M2 are not mirrored")

	fmt.Println(errors.UserMessage(err))
	// Output:
	// modules M1 and M2 are not mirrored
}

func ExampleIsFatal() {
	// Input errors abort the run; solver-side errors are contained
	parse := errors.New(errors.ErrCodeInvalidInput, "bad record")
	overlap := errors.New(errors.ErrCodeOverlapDetected, "M1 overlaps M2")

	fmt.Println("Parse fatal:", errors.IsFatal(parse))
	fmt.Println("Overlap fatal:", errors.IsFatal(overlap))
	// Output:
	// Parse fatal: true
	// Overlap fatal: false
}
