package export

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSanitizeName(t *testing.T) {
	cases := []struct {
		in   string
		max  int
		want string
	}{
		{"storyboard", 0, "storyboard"},
		{"分镜表 v2", 0, "分镜表 v2"},
		{"a/b\\c:d", 0, "a_b_c_d"},
		{"  spaced  ", 0, "spaced"},
		{"trailing...", 0, "trailing"},
		{"with\x00control", 0, "withcontrol"},
		{"abcdef", 3, "abc"},
	}
	for _, tc := range cases {
		if got := SanitizeName(tc.in, tc.max); got != tc.want {
			t.Errorf("SanitizeName(%q, %d) = %q, want %q", tc.in, tc.max, got, tc.want)
		}
	}
}

func TestValidateOutputDir(t *testing.T) {
	dir := t.TempDir()
	if err := ValidateOutputDir(dir); err != nil {
		t.Fatalf("valid dir rejected: %v", err)
	}

	if err := ValidateOutputDir(""); err == nil {
		t.Fatalf("empty dir accepted")
	}
	if err := ValidateOutputDir(filepath.Join(dir, "..", "elsewhere")); err == nil {
		t.Fatalf("traversal accepted")
	}
	if err := ValidateOutputDir(filepath.Join(dir, "missing")); err == nil {
		t.Fatalf("missing dir accepted")
	}

	file := filepath.Join(dir, "plain.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := ValidateOutputDir(file); err == nil {
		t.Fatalf("plain file accepted as dir")
	}
}
