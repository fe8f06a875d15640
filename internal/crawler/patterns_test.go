package crawler

import "testing"

func TestMatchPattern(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		pattern string
		path    string
		want    bool
	}{
		// Prefix patterns with /*
		{"admin prefix match", "/admin/*", "/admin/dashboard", true},
		{"admin prefix exact", "/admin/*", "/admin", true},
		{"admin prefix no match", "/admin/*", "/user/profile", false},
		{"admin prefix partial no match", "/admin/*", "/administrator", false},
		{"nested admin", "/admin/*", "/admin/users/edit", true},

		// Extension patterns with *.
		{"pdf extension", "*.pdf", "/docs/file.pdf", true},
		{"pdf extension nested", "*.pdf", "/a/b/c/report.pdf", true},
		{"pdf extension no match", "*.pdf", "/docs/file.txt", false},

		// Exact match patterns
		{"exact match", "/logout", "/logout", true},
		{"exact no match", "/logout", "/login", false},

		// Wildcard in middle
		{"wildcard middle", "/api/v?/users", "/api/v1/users", true},
		{"wildcard middle no match", "/api/v?/users", "/api/v10/users", false},

		// Base name patterns
		{"base name glob", "draft-*", "/blog/draft-1", true},
		{"base name glob no match", "draft-*", "/blog/final-1", false},

		// Root path
		{"root path", "/", "/", true},
		{"root no match prefix", "/admin/*", "/", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := matchPattern(tt.pattern, tt.path)
			if got != tt.want {
				t.Errorf("matchPattern(%q, %q) = %v, want %v", tt.pattern, tt.path, got, tt.want)
			}
		})
	}
}

// TestPathFilter tests URL filtering based on patterns.
func TestPathFilter(t *testing.T) {
	t.Parallel()

	t.Run("no patterns allows all", func(t *testing.T) {
		t.Parallel()

		if !(pathFilter{}).allows("/any/path") {
			t.Error("expected all paths to be allowed when no patterns set")
		}
		if !(pathFilter{}).allows("") {
			t.Error("expected empty path to be allowed")
		}
	})

	t.Run("ignore patterns block matching paths", func(t *testing.T) {
		t.Parallel()

		f := pathFilter{ignore: []string{"/admin/*", "*.pdf"}}
		tests := []struct {
			path string
			want bool
		}{
			{"/admin/dashboard", false},
			{"/docs/file.pdf", false},
			{"/public/page", true},
		}
		for _, tt := range tests {
			if got := f.allows(tt.path); got != tt.want {
				t.Errorf("allows(%q) = %v, want %v", tt.path, got, tt.want)
			}
		}
	})

	t.Run("follow patterns restrict paths", func(t *testing.T) {
		t.Parallel()

		f := pathFilter{follow: []string{"/docs/*"}}
		if !f.allows("/docs/intro") {
			t.Error("expected /docs/intro to be followed")
		}
		if f.allows("/blog/post") {
			t.Error("expected /blog/post to be rejected")
		}
	})

	t.Run("ignore wins over follow", func(t *testing.T) {
		t.Parallel()

		f := pathFilter{ignore: []string{"/docs/private/*"}, follow: []string{"/docs/*"}}
		if f.allows("/docs/private/key") {
			t.Error("expected ignored path to be rejected")
		}
	})
}
