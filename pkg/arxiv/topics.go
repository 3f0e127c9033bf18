package arxiv

import (
	"bufio"
	"io"
	"strings"
)

// LoadTopics reads a topics file: one topic per line, blank lines and
// lines starting with '#' ignored, duplicates removed case-insensitively.
func LoadTopics(r io.Reader) ([]string, error) {
	seen := make(map[string]bool)
	var topics []string

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key := strings.ToLower(line)
		if seen[key] {
			continue
		}
		seen[key] = true
		topics = append(topics, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return topics, nil
}
