package ui

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Confirm asks the user for a yes/no confirmation on stdin.
func Confirm(message string, defaultValue bool) (bool, error) {
	return confirm(os.Stdin, message, defaultValue)
}

func confirm(in io.Reader, message string, defaultValue bool) (bool, error) {
	defaultStr := "y/N"
	if defaultValue {
		defaultStr = "Y/n"
	}

	fmt.Fprintf(os.Stdout, "%s [%s]: ", message, defaultStr)

	reader := bufio.NewReader(in)
	input, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}

	trimmed := strings.ToLower(strings.TrimSpace(input))
	if trimmed == "" {
		return defaultValue, nil
	}

	return trimmed == "y" || trimmed == "yes", nil
}
