package cleaner

import (
	"path"
	"sort"
	"strings"
)

// KeepMarker prefixes patterns that must be protected from deletion.
const KeepMarker = "!"

// globMeta lists characters the deletion engine treats as glob syntax.
// The destination is spliced into patterns unescaped, so none may appear there.
const globMeta = "*?[]{}"

// Options is the user-facing configuration of a Stage.
//
// Extension accepts a string, a list of strings, or a mapping from an old
// extension to a string or list of new extensions. Exclude accepts a string
// or a list of strings. Both are canonicalised once by Normalize.
type Options struct {
	Extension any
	Exclude   any
	DryRun    bool
}

// ExtensionRule maps one old-extension token to its replacement tokens.
// An empty From applies to every file.
type ExtensionRule struct {
	From string   `json:"from" yaml:"from"`
	To   []string `json:"to" yaml:"to"`
}

// ExtensionMap is the canonical, ordered form of the extension option.
type ExtensionMap []ExtensionRule

// NormalizedConfig is the canonical configuration a Stage runs with.
type NormalizedConfig struct {
	// Destination is the cleaned, slash-separated destination root.
	Destination string
	// Extensions is nil when no extension remapping is configured.
	Extensions ExtensionMap
	// Excludes holds destination-anchored paths without the keep marker.
	Excludes []string
	DryRun   bool
}

// Normalize validates the destination and canonicalises the options.
// It performs no I/O.
func Normalize(destination string, opts Options) (*NormalizedConfig, error) {
	dest, err := normalizeDestination(destination)
	if err != nil {
		return nil, err
	}

	exts, err := normalizeExtensions(opts.Extension)
	if err != nil {
		return nil, err
	}

	return &NormalizedConfig{
		Destination: dest,
		Extensions:  exts,
		Excludes:    normalizeExcludes(dest, opts.Exclude),
		DryRun:      opts.DryRun,
	}, nil
}

// normalizeDestination rejects empty or wildcard destinations and cleans the rest.
func normalizeDestination(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", invalidConfigf("destination path is required")
	}
	if strings.ContainsAny(raw, globMeta) {
		return "", invalidConfigf("destination path %q must not contain any of %q", raw, globMeta)
	}
	return path.Clean(toSlash(raw)), nil
}

// normalizeExtensions folds every accepted extension shape into an ExtensionMap.
func normalizeExtensions(raw any) (ExtensionMap, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case string:
		return ExtensionMap{{From: "", To: []string{v}}}, nil
	case []string:
		return ExtensionMap{{From: "", To: append([]string(nil), v...)}}, nil
	case []any:
		to, err := stringList(v)
		if err != nil {
			return nil, invalidConfigf("extension list: %v", err)
		}
		return ExtensionMap{{From: "", To: to}}, nil
	case ExtensionMap:
		return cloneExtensionMap(v), nil
	case map[string]string:
		out := make(ExtensionMap, 0, len(v))
		for _, k := range sortedKeys(v) {
			out = append(out, ExtensionRule{From: k, To: []string{v[k]}})
		}
		return out, nil
	case map[string][]string:
		out := make(ExtensionMap, 0, len(v))
		for _, k := range sortedKeys(v) {
			out = append(out, ExtensionRule{From: k, To: append([]string(nil), v[k]...)})
		}
		return out, nil
	case map[string]any:
		out := make(ExtensionMap, 0, len(v))
		for _, k := range sortedKeys(v) {
			to, err := coerceTargets(v[k])
			if err != nil {
				return nil, invalidConfigf("extension %q: %v", k, err)
			}
			out = append(out, ExtensionRule{From: k, To: to})
		}
		return out, nil
	default:
		return nil, invalidConfigf("unsupported extension option of type %T", raw)
	}
}

// coerceTargets turns a single string into a one-element list.
func coerceTargets(raw any) ([]string, error) {
	switch v := raw.(type) {
	case string:
		return []string{v}, nil
	case []string:
		return append([]string(nil), v...), nil
	case []any:
		return stringList(v)
	default:
		return nil, invalidConfigf("unsupported value of type %T", raw)
	}
}

func stringList(items []any) ([]string, error) {
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, invalidConfigf("expected string, got %T", item)
		}
		out = append(out, s)
	}
	return out, nil
}

func cloneExtensionMap(m ExtensionMap) ExtensionMap {
	if m == nil {
		return nil
	}
	out := make(ExtensionMap, len(m))
	for i, r := range m {
		out[i] = ExtensionRule{From: r.From, To: append([]string(nil), r.To...)}
	}
	return out
}

// normalizeExcludes anchors every exclude entry under dest. Entries that are
// neither a string nor a list are ignored, as are non-string list items.
func normalizeExcludes(dest string, raw any) []string {
	var entries []string
	switch v := raw.(type) {
	case string:
		entries = []string{v}
	case []string:
		entries = v
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				entries = append(entries, s)
			}
		}
	}

	out := make([]string, 0, len(entries))
	for _, e := range entries {
		e = strings.TrimPrefix(toSlash(e), KeepMarker)
		out = append(out, path.Join(dest, e))
	}
	return out
}

func toSlash(p string) string {
	if strings.Contains(p, `\`) {
		return strings.ReplaceAll(p, `\`, `/`)
	}
	return p
}

// sortedKeys orders map keys lexically with the catch-all "" key last, so
// specific extension rules are tried before it.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i] == "" || keys[j] == "" {
			return keys[j] == "" && keys[i] != ""
		}
		return keys[i] < keys[j]
	})
	return keys
}
