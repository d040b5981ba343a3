// Package hashlist reads newline-delimited transaction hash lists.
package hashlist

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Read collects one hash per line. Blank lines and lines starting with
// '#' are skipped so lists can carry comments.
func Read(r io.Reader) ([]string, error) {
	var out []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read hash list: %w", err)
	}
	return out, nil
}

// Load reads a hash list file. The path "-" selects stdin.
func Load(path string) ([]string, error) {
	if path == "-" {
		return Read(os.Stdin)
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open hash list: %w", err)
	}
	defer file.Close()
	return Read(file)
}
