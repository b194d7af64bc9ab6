package cleaner

import (
	"path"
	"strings"
)

// FileRecord is one file or directory the build is about to write.
// RelativePath is relative to the build source root and slash separated.
type FileRecord struct {
	RelativePath string `json:"relative_path"`
	IsDir        bool   `json:"is_dir"`
}

// Resolve maps rec to the destination-relative path(s) it will be written to.
//
// Directories and runs without extension remapping pass through unchanged.
// Otherwise the first rule whose From token occurs in the path produces one
// output per To token. A non-empty From is replaced at its first occurrence;
// an empty From replaces the final extension. A path matching no rule is
// returned unchanged, so the result is never empty.
func Resolve(rec FileRecord, exts ExtensionMap) []string {
	if rec.IsDir || len(exts) == 0 {
		return []string{rec.RelativePath}
	}

	for _, rule := range exts {
		if !strings.Contains(rec.RelativePath, rule.From) {
			continue
		}
		if len(rule.To) == 0 {
			break
		}
		out := make([]string, 0, len(rule.To))
		for _, to := range rule.To {
			out = append(out, substitute(rec.RelativePath, rule.From, to))
		}
		return out
	}

	return []string{rec.RelativePath}
}

func substitute(p, from, to string) string {
	if from != "" {
		return strings.Replace(p, from, to, 1)
	}
	return replaceExtension(p, to)
}

// replaceExtension swaps the final extension of p's base name for ext.
// A leading dot (".env") is part of the name, not an extension.
func replaceExtension(p, ext string) string {
	if p == "" {
		return p
	}
	dir, base := path.Split(p)
	if old := path.Ext(base); old != base {
		base = strings.TrimSuffix(base, old)
	}
	return dir + base + ext
}
