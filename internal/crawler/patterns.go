package crawler

import (
	"path"
	"strings"
)

// pathFilter decides which same-site paths are enqueued.
// Ignore patterns win over follow patterns; with no follow patterns every
// path that is not ignored is followed.
type pathFilter struct {
	ignore []string
	follow []string
}

func (f pathFilter) allows(p string) bool {
	if p == "" {
		p = "/"
	}
	for _, pattern := range f.ignore {
		if matchPattern(pattern, p) {
			return false
		}
	}
	if len(f.follow) == 0 {
		return true
	}
	for _, pattern := range f.follow {
		if matchPattern(pattern, p) {
			return true
		}
	}
	return false
}

// matchPattern checks if a URL path matches a glob pattern.
//
//   - "/admin/*" matches "/admin" and everything below it
//   - "*.pdf" matches any path ending in ".pdf"
//   - other patterns use path.Match; patterns without a slash are also
//     tried against the last path element
func matchPattern(pattern, p string) bool {
	if prefix, ok := strings.CutSuffix(pattern, "/*"); ok {
		if p == prefix || strings.HasPrefix(p, prefix+"/") {
			return true
		}
	}

	if ext, ok := strings.CutPrefix(pattern, "*"); ok && strings.HasPrefix(ext, ".") && !strings.ContainsAny(ext, "*?[/") {
		if strings.HasSuffix(p, ext) {
			return true
		}
	}

	if matched, err := path.Match(pattern, p); err == nil && matched {
		return true
	}

	if strings.ContainsAny(pattern, "*?[") && !strings.Contains(pattern, "/") {
		if matched, err := path.Match(pattern, path.Base(p)); err == nil && matched {
			return true
		}
	}
	return false
}
