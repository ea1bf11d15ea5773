package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"optimal_execution/internal/cli"
	apperrors "optimal_execution/pkg/errors"
)

func main() {
	rootCmd := cli.NewRootCmd()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	switch {
	case errors.Is(err, context.Canceled):
		return 130
	case errors.Is(err, apperrors.ErrConfiguration):
		return 2
	case errors.Is(err, apperrors.ErrDataUnavailable):
		return 3
	default:
		return 1
	}
}
