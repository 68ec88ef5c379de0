package sandbox

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/CageChen/syntaxia/internal/errs"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr errs.Kind
	}{
		{"", "", errs.Unknown},
		{"/", "", errs.Unknown},
		{"docs/guide.md", "docs/guide.md", errs.Unknown},
		{"/docs/guide.md", "docs/guide.md", errs.Unknown},
		{"../../etc/passwd", "", errs.InvalidPath},
		{"a/../../b", "", errs.InvalidPath},
		{"a/./b", "", errs.InvalidPath},
		{"a//b", "", errs.InvalidPath},
		{"//etc/passwd", "", errs.InvalidPath},
		{"docs/", "", errs.InvalidPath},
		{"a\\..\\b", "", errs.InvalidPath},
		{"a\x00b", "", errs.InvalidPath},
		{"..hidden/ok", "..hidden/ok", errs.Unknown},
	}

	for _, tt := range tests {
		got, err := Normalize(tt.input)
		if tt.wantErr != errs.Unknown {
			if errs.KindOf(err) != tt.wantErr {
				t.Errorf("Normalize(%q) error = %v, want kind %v", tt.input, err, tt.wantErr)
			}
			continue
		}
		if err != nil {
			t.Errorf("Normalize(%q) unexpected error: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func setupRoot(t *testing.T) (string, string) {
	t.Helper()

	base := t.TempDir()
	root := filepath.Join(base, "repo")
	outside := filepath.Join(base, "outside")
	for _, dir := range []string{filepath.Join(root, "docs"), outside} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(root, "docs", "a.md"), []byte("# A\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(outside, "secret"), []byte("s3cret"), 0o644); err != nil {
		t.Fatal(err)
	}
	return root, outside
}

func TestResolve(t *testing.T) {
	root, outside := setupRoot(t)

	if err := os.Symlink(filepath.Join(outside, "secret"), filepath.Join(root, "evil")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}
	if err := os.Symlink(filepath.Join(root, "docs"), filepath.Join(root, "alias")); err != nil {
		t.Fatal(err)
	}

	realRoot, _ := filepath.EvalSymlinks(root)

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr errs.Kind
	}{
		{"root", "", realRoot, errs.Unknown},
		{"file", "docs/a.md", filepath.Join(realRoot, "docs", "a.md"), errs.Unknown},
		{"symlink inside", "alias/a.md", filepath.Join(realRoot, "docs", "a.md"), errs.Unknown},
		{"symlink outside", "evil", "", errs.OutsideRoot},
		{"traversal", "../../etc/passwd", "", errs.InvalidPath},
		{"nested traversal", "a/../../b", "", errs.InvalidPath},
		{"missing", "docs/missing.md", "", errs.NotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(root, tt.input)
			if tt.wantErr != errs.Unknown {
				if errs.KindOf(err) != tt.wantErr {
					t.Fatalf("Resolve(%q) error = %v, want kind %v", tt.input, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("Resolve(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestContainReturnsRelative(t *testing.T) {
	root, _ := setupRoot(t)
	if err := os.Symlink(filepath.Join(root, "docs"), filepath.Join(root, "alias")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	_, rel, err := Contain(root, "alias/a.md")
	if err != nil {
		t.Fatalf("Contain failed: %v", err)
	}
	if rel != "docs/a.md" {
		t.Errorf("expected canonical relative path docs/a.md, got %q", rel)
	}
}

func TestParentAndBase(t *testing.T) {
	if _, ok := Parent(""); ok {
		t.Error("root must have no parent")
	}
	if p, ok := Parent("docs"); !ok || p != "" {
		t.Errorf("Parent(docs) = %q, %v", p, ok)
	}
	if p, _ := Parent("docs/api/x.go"); p != "docs/api" {
		t.Errorf("Parent(docs/api/x.go) = %q", p)
	}
	if b := Base("docs/api/x.go"); b != "x.go" {
		t.Errorf("Base = %q", b)
	}
	if j := Join("", "a"); j != "a" {
		t.Errorf("Join = %q", j)
	}
	if j := Join("a", "b"); j != "a/b" {
		t.Errorf("Join = %q", j)
	}
}
