package resolve

import (
	"io"
	"strings"
)

const maxInputBytes = 64 << 10

func readAll(r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxInputBytes))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// SplitInputs breaks batch input into one entry per non-blank line.
func SplitInputs(text string) []string {
	var inputs []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			inputs = append(inputs, line)
		}
	}
	return inputs
}
