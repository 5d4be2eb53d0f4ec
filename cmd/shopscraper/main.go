package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// Process exit codes. Partial scrape failures still exit 0.
const (
	exitOK     = 0
	exitConfig = 2
	exitSetup  = 3
	exitOutput = 4
)

// exitError carries the exit code a command failure should produce
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }

func (e *exitError) Unwrap() error { return e.err }

func exitWith(code int, err error) error {
	return &exitError{code: code, err: err}
}

// exitCode maps a command error to a process exit code. Errors that carry
// no code come from flag and argument parsing.
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return exitConfig
}

func main() {
	err := rootCmd.ExecuteContext(context.Background())
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(exitCode(err))
}
