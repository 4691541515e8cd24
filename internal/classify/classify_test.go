package classify

import "testing"

func TestIsDocumentationFile(t *testing.T) {
	cases := []struct {
		path string
		want bool
	}{
		{"README.md", true},
		{"readme", true},
		{"LICENSE", true},
		{"CONTRIBUTING.md", true},
		{"CHANGELOG.txt", true},
		{"COPYING", true},
		{"docs/guide.md", true},
		{"documentation/index.rst", true},
		{"wiki/Home.adoc", true},
		{"guides/setup.mdx", true},
		{"examples/demo.md", true},
		{"internal/indexer/indexer.go", false},
		{"cmd/care/main.go", false},
		{"notes.yaml", false},
	}
	for _, c := range cases {
		got := IsDocumentationFile(c.path)
		if got != c.want {
			t.Errorf("IsDocumentationFile(%q) = %v, want %v", c.path, got, c.want)
		}
	}
}

func TestIsDocumentationFileIsCaseInsensitive(t *testing.T) {
	if !IsDocumentationFile("Readme.MD") {
		t.Error("expected Readme.MD to be classified as documentation")
	}
	if !IsDocumentationFile("DOCS/Guide.MD") {
		t.Error("expected DOCS/Guide.MD to be classified as documentation")
	}
}

func TestIsTestFile(t *testing.T) {
	cases := []struct {
		path string
		want bool
	}{
		{"internal/indexer/indexer_test.go", true},
		{"src/__tests__/app.js", true},
		{"tests/unit/foo.go", true},
		{"specs/foo_spec.rb", true},
		{"component.spec.ts", true},
		{"component.test.ts", true},
		{"foo_spec.py", true},
		{"internal/indexer/indexer.go", false},
		{"cmd/care/main.go", false},
		{"testdata/fixture.json", false},
	}
	for _, c := range cases {
		got := IsTestFile(c.path)
		if got != c.want {
			t.Errorf("IsTestFile(%q) = %v, want %v", c.path, got, c.want)
		}
	}
}

func TestIsTestFileIsCaseInsensitive(t *testing.T) {
	if !IsTestFile("Component.Spec.TS") {
		t.Error("expected Component.Spec.TS to be classified as a test file")
	}
}
