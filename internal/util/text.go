package util

import "strings"

// JoinList joins values with the multi-value delimiter used in flat-file
// columns. Empty values are dropped.
func JoinList(values []string) string {
	kept := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" {
			kept = append(kept, v)
		}
	}
	return strings.Join(kept, ";")
}

// SplitList splits a delimited string into trimmed, non-empty items.
func SplitList(value, delimiter string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, delimiter)
	items := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			items = append(items, p)
		}
	}
	return items
}

// CleanText strips a UTF-8 BOM and surrounding whitespace from registry
// export fields.
func CleanText(value string) string {
	value = strings.ReplaceAll(value, "\ufeff", "")
	return strings.TrimSpace(value)
}
