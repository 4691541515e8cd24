package classify

import "testing"

func TestLanguage(t *testing.T) {
	cases := []struct {
		path string
		want string
	}{
		{"main.go", "go"},
		{"internal/indexer/indexer_test.go", "go"},
		{"app.py", "python"},
		{"component.tsx", "typescript"},
		{"service.rb", "ruby"},
		{"README.md", "markdown"},
		{"Dockerfile", "dockerfile"},
		{"deploy/Dockerfile", "dockerfile"},
		{"notes.txt", ""},
		{"Makefile", ""},
	}
	for _, c := range cases {
		got := Language(c.path)
		if got != c.want {
			t.Errorf("Language(%q) = %q, want %q", c.path, got, c.want)
		}
	}
}
