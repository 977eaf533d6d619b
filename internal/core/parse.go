package core

import (
	"strconv"
	"strings"
)

// ParseEntries splits a raw expense command into validated entries, one per
// line. The line grammar is
//
//	category_text SP signed_integer [SP "M"]
//
// where a trailing M (any case) marks the entry as recurring. The flag is
// strictly per-line: a later unflagged line gets a normal timestamp again.
// Any line that fails the grammar fails the whole parse; nothing is dropped.
func ParseEntries(raw string) ([]ParsedEntry, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, &ParseError{Line: raw}
	}

	lines := strings.Split(raw, "\n")
	entries := make([]ParsedEntry, 0, len(lines))
	for _, line := range lines {
		entry, err := parseLine(line)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func parseLine(line string) (ParsedEntry, error) {
	fields := strings.Fields(line)
	recurring := false
	if len(fields) > 0 && strings.EqualFold(fields[len(fields)-1], "m") {
		recurring = true
		fields = fields[:len(fields)-1]
	}
	// At minimum a category word and an amount must remain.
	if len(fields) < 2 {
		return ParsedEntry{}, &ParseError{Line: line}
	}

	amount, err := parseSignedInt(fields[len(fields)-1])
	if err != nil {
		return ParsedEntry{}, &ParseError{Line: line}
	}

	name := NormalizeName(strings.Join(fields[:len(fields)-1], " "))
	if name == "" {
		return ParsedEntry{}, &ParseError{Line: line}
	}

	return ParsedEntry{CategoryName: name, Amount: amount, Recurring: recurring}, nil
}

// ParseCategorySpec parses the add-category grammar "name" or "name amount"
// where amount is an optional signed monthly limit.
func ParseCategorySpec(raw string) (string, *int64, error) {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return "", nil, &ParseError{Line: raw}
	}

	var limit *int64
	if len(fields) > 1 {
		if v, err := parseSignedInt(fields[len(fields)-1]); err == nil {
			limit = &v
			fields = fields[:len(fields)-1]
		}
	}

	name := NormalizeName(strings.Join(fields, " "))
	if name == "" {
		return "", nil, &ParseError{Line: raw}
	}
	return name, limit, nil
}

// parseSignedInt accepts digits with an optional leading minus. A leading
// plus is not part of the grammar.
func parseSignedInt(s string) (int64, error) {
	if strings.HasPrefix(s, "+") {
		return 0, strconv.ErrSyntax
	}
	return strconv.ParseInt(s, 10, 64)
}
