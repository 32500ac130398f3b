package dictionary

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// ReadPatterns reads one pattern per line. Blank lines and lines starting
// with '#' are skipped; a trailing '\r' is dropped.
func ReadPatterns(r io.Reader) ([]string, error) {
	var patterns []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1<<20)
	for sc.Scan() {
		line := strings.TrimSuffix(sc.Text(), "\r")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, line)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "read patterns")
	}
	return patterns, nil
}

// ReadPatternsFile is ReadPatterns over the named file.
func ReadPatternsFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open patterns %s", path)
	}
	defer f.Close()
	return ReadPatterns(f)
}
