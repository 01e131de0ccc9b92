package parser

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// ReadLines reads a text file into a line sequence. Trailing carriage returns
// are removed so files written on Windows segment the same way.
func ReadLines(path string) ([]string, error) {
	f, err := os.Open(path) // #nosec G304 -- project paths come from the operator
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		lines = append(lines, strings.TrimRight(scanner.Text(), "\r"))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return lines, nil
}

func trim(s string) string {
	return strings.TrimSpace(s)
}
