package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

const maxQueries = 10

// queryFile accepts either a bare array or {"job_titles": [...]}.
type queryFile struct {
	JobTitles *[]string `json:"job_titles"`
}

// resolveQueries merges the positional comma list with --query-file
// entries, positional first, dropping case-insensitive duplicates.
func resolveQueries(raw string, path string) ([]string, error) {
	queries := splitQueries(raw)
	if strings.TrimSpace(path) != "" {
		fromFile, err := loadQueryFile(path)
		if err != nil {
			return nil, err
		}
		queries = append(queries, fromFile...)
	}

	unique := make([]string, 0, len(queries))
	taken := make(map[string]bool, len(queries))
	for _, query := range queries {
		query = strings.TrimSpace(query)
		key := strings.ToLower(query)
		if query == "" || taken[key] {
			continue
		}
		taken[key] = true
		unique = append(unique, query)
	}

	switch {
	case len(unique) == 0:
		return nil, fmt.Errorf("at least one non-empty query is required")
	case len(unique) > maxQueries:
		return nil, fmt.Errorf("too many queries: max %d", maxQueries)
	}
	return unique, nil
}

func splitQueries(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func loadQueryFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read --query-file %q: %w", path, err)
	}
	data = bytes.TrimSpace(data)
	invalid := fmt.Errorf("invalid --query-file %q: expected a string array or an object with a \"job_titles\" string array", path)

	var titles []string
	switch {
	case bytes.HasPrefix(data, []byte("[")):
		if err := json.Unmarshal(data, &titles); err != nil {
			return nil, fmt.Errorf("%w: %v", invalid, err)
		}
	case bytes.HasPrefix(data, []byte("{")):
		var file queryFile
		if err := json.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("%w: %v", invalid, err)
		}
		if file.JobTitles == nil {
			return nil, invalid
		}
		titles = *file.JobTitles
	default:
		return nil, invalid
	}
	return titles, nil
}
