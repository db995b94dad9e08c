package importer

import (
	"strings"
)

// SplitLine tokenizes a single CSV line. A double quote toggles quoted mode
// and is dropped; commas inside quotes are kept. Every field is trimmed and
// the content after the last comma is always emitted, so the result has at
// least one element. Quoted fields never span lines; an unbalanced quote
// just leaves the rest of the line in the last field.
func SplitLine(line string) []string {
	var (
		fields   []string
		current  strings.Builder
		inQuotes bool
	)

	for _, r := range line {
		switch {
		case r == '"':
			inQuotes = !inQuotes
		case r == ',' && !inQuotes:
			fields = append(fields, strings.TrimSpace(current.String()))
			current.Reset()
		default:
			current.WriteRune(r)
		}
	}

	return append(fields, strings.TrimSpace(current.String()))
}
