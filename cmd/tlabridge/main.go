package main

import (
	"errors"
	"fmt"
	"os"
)

// Exit codes for different failure modes
const (
	ExitSuccess      = 0 // Command completed
	ExitExportFailed = 1 // A tool in the export pipeline failed
	ExitError        = 2 // Configuration or runtime error
)

// ExportFailedError indicates that the export ran, but one of its tools
// exited unsuccessfully or the request was refused.
type ExportFailedError struct {
	Message string
}

func (e *ExportFailedError) Error() string {
	return e.Message
}

func main() {
	if err := execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)

		var exportErr *ExportFailedError
		if errors.As(err, &exportErr) {
			os.Exit(ExitExportFailed)
		}

		os.Exit(ExitError)
	}
}
