package category

import "strings"

// Category paths arrive in dot form ("products.electronics.smartphones")
// or slash form ("products/electronics/smartphones"). Lookups try the
// exact input first, then the converted forms; the first hit wins and is
// reported back as matched_path.

// PathCandidates returns the lookup candidates for a raw path, in order:
// exact input, dot converted to slash, slash converted to dot. Duplicates
// are dropped while preserving order.
func PathCandidates(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	candidates := []string{raw}
	if strings.Contains(raw, ".") {
		candidates = append(candidates, strings.ReplaceAll(raw, ".", "/"))
	}
	if strings.Contains(raw, "/") {
		candidates = append(candidates, strings.ReplaceAll(raw, "/", "."))
	}

	seen := make(map[string]bool, len(candidates))
	out := candidates[:0]
	for _, c := range candidates {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}

// PathSegments splits a path on either separator.
func PathSegments(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if strings.Contains(raw, "/") {
		return strings.Split(raw, "/")
	}
	return strings.Split(raw, ".")
}

// ParentPath returns the path one level up, preserving the separator of
// the input, or "" at the root.
func ParentPath(raw string) string {
	sep := "."
	if strings.Contains(raw, "/") {
		sep = "/"
	}
	segments := PathSegments(raw)
	if len(segments) <= 1 {
		return ""
	}
	return strings.Join(segments[:len(segments)-1], sep)
}

// RootSegment returns the first path segment.
func RootSegment(raw string) string {
	segments := PathSegments(raw)
	if len(segments) == 0 {
		return ""
	}
	return segments[0]
}

// Slugify converts a display name to a URL-safe slug.
func Slugify(name string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
