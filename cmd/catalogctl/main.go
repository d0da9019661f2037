package main

import (
	"errors"
	"fmt"
	"os"
)

const (
	ExitSuccess = 0
	// ExitRejected: the catalog or the candidate was rejected.
	ExitRejected = 1
	ExitError    = 2
)

// RejectedError marks outcomes that are answers rather than failures, such
// as a catalog with validation problems.
type RejectedError struct {
	Message string
}

func (e *RejectedError) Error() string {
	return e.Message
}

func main() {
	if err := execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)

		var rejected *RejectedError
		if errors.As(err, &rejected) {
			os.Exit(ExitRejected)
		}
		os.Exit(ExitError)
	}
}
