package output

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

// Grouping decides whether artifacts are sharded by the document key token.
type Grouping string

const (
	GroupByPrefix Grouping = "by-prefix"
	GroupFlat     Grouping = "flat"
)

// ParseGrouping accepts by-prefix (alias prefix) or flat.
func ParseGrouping(s string) (Grouping, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "by-prefix", "prefix":
		return GroupByPrefix, nil
	case "flat":
		return GroupFlat, nil
	}
	return GroupByPrefix, fmt.Errorf("unknown grouping %q (want by-prefix|flat)", s)
}

// KeyToken is the first "_" separated segment of the document name without
// its extension. An empty first segment falls back to the whole stem.
func KeyToken(name string) string {
	base := filepath.Base(name)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	token, _, _ := strings.Cut(stem, "_")
	if token == "" {
		return stem
	}
	return token
}

// FileName formats {key}_{index+1:04d}_{suffix}.jpg; index is the 0-based extraction order.
func FileName(name string, index int, suffix string) string {
	return fmt.Sprintf("%s_%04d_%s.jpg", KeyToken(name), index+1, suffix)
}

// RelPath is the slash separated artifact path relative to the output root.
func RelPath(name string, index int, suffix string, g Grouping) string {
	file := FileName(name, index, suffix)
	if g == GroupFlat {
		return file
	}
	return path.Join(KeyToken(name), file)
}

// Resolve joins RelPath onto a local output root.
func Resolve(root, name string, index int, suffix string, g Grouping) string {
	return filepath.Join(root, filepath.FromSlash(RelPath(name, index, suffix, g)))
}
