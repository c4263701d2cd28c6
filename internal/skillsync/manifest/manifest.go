// Package manifest reads the display metadata from a SKILL.md header.
package manifest

import (
	"strings"

	"gopkg.in/yaml.v3"
)

const delimiter = "---"

// Metadata is the display information declared by a manifest. Empty fields
// were not declared.
type Metadata struct {
	Name        string
	Description string
}

// Parse extracts name and description from the header section of a
// manifest. A missing or unterminated header yields empty Metadata.
func Parse(text string) Metadata {
	header, ok := headerSection(text)
	if !ok {
		return Metadata{}
	}

	var fields map[string]yaml.Node
	if err := yaml.Unmarshal([]byte(header), &fields); err == nil {
		return Metadata{
			Name:        scalar(fields["name"]),
			Description: scalar(fields["description"]),
		}
	}

	return scanLines(header)
}

func headerSection(text string) (string, bool) {
	text = strings.TrimPrefix(text, "\ufeff")
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != delimiter {
		return "", false
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == delimiter {
			return strings.Join(lines[1:i], "\n"), true
		}
	}
	return "", false
}

// scanLines is the fallback for headers that are not valid YAML.
func scanLines(header string) Metadata {
	var md Metadata
	for _, line := range strings.Split(header, "\n") {
		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		value = unquote(strings.TrimSpace(value))
		switch strings.TrimSpace(key) {
		case "name":
			md.Name = value
		case "description":
			md.Description = value
		}
	}
	return md
}

func unquote(s string) string {
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '"' || first == '\'') && first == last {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// scalar returns the source text of a scalar node, so dates and numbers keep
// the spelling the author wrote.
func scalar(n yaml.Node) string {
	if n.Kind != yaml.ScalarNode || n.Tag == "!!null" {
		return ""
	}
	return strings.TrimSpace(n.Value)
}
