package naming

import (
	"errors"
	"testing"
)

func TestExtension(t *testing.T) {
	cases := map[string]string{
		"python":     ".py",
		"Python":     ".py",
		"JAVASCRIPT": ".js",
		"go":         ".go",
		"rust":       ".rs",
		"r":          ".r",
		"matlab":     ".m",
		"txt":        ".txt",
		"markdown":   ".txt",
		"":           ".txt",
	}
	for lang, want := range cases {
		if got := Extension(lang); got != want {
			t.Errorf("Extension(%q) = %q, want %q", lang, got, want)
		}
	}
}

func TestSanitize(t *testing.T) {
	cases := []struct {
		title string
		dir   bool
		want  string
	}{
		{"Hello World!", false, "Hello_World_"},
		{"a   b", false, "a_b"},
		{"keep-this.name_ok", false, "keep-this.name_ok"},
		{"src/main", false, "src_main"},
		{"src/main", true, "src/main"},
		{"src/my file", true, "src/my_file"},
	}
	for _, c := range cases {
		if got := Sanitize(c.title, c.dir); got != c.want {
			t.Errorf("Sanitize(%q, %v) = %q, want %q", c.title, c.dir, got, c.want)
		}
	}
}

func TestAllocateBasic(t *testing.T) {
	used := NewUsedNames()
	got, err := Allocate("foo", "python", 0, used, false)
	if err != nil {
		t.Fatal(err)
	}
	if got != "1_foo.py" {
		t.Errorf("expected 1_foo.py, got %s", got)
	}
	if !used.Has("1_foo.py") {
		t.Error("expected allocated name to be recorded")
	}
}

func TestAllocateCollisionSuffixes(t *testing.T) {
	used := NewUsedNames()
	want := []string{"3_app.js", "3_app_*.js", "3_app_**.js", "3_app_***.js"}
	for i, w := range want {
		got, err := Allocate("app", "javascript", 2, used, false)
		if err != nil {
			t.Fatal(err)
		}
		if got != w {
			t.Errorf("call %d: expected %s, got %s", i, w, got)
		}
	}
	if used.Len() != len(want) {
		t.Errorf("expected %d used names, got %d", len(want), used.Len())
	}
}

func TestAllocateOnePriorCollision(t *testing.T) {
	used := NewUsedNames()
	used.Add("1_foo.py")

	got, err := Allocate("foo", "python", 0, used, false)
	if err != nil {
		t.Fatal(err)
	}
	if got != "1_foo_*.py" {
		t.Errorf("expected exactly one suffix level, got %s", got)
	}
}

func TestAllocateNeverReturnsUsed(t *testing.T) {
	used := NewUsedNames()
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		got, err := Allocate("same title", "go", i%3, used, i%2 == 0)
		if err != nil {
			t.Fatal(err)
		}
		if seen[got] {
			t.Fatalf("duplicate path %s", got)
		}
		seen[got] = true
	}
}

func TestAllocateFlatModeCollapsesSlashes(t *testing.T) {
	got, err := Allocate("src/utils/helpers", "typescript", 4, NewUsedNames(), false)
	if err != nil {
		t.Fatal(err)
	}
	if got != "5_src_utils_helpers.ts" {
		t.Errorf("expected 5_src_utils_helpers.ts, got %s", got)
	}
}

func TestAllocateDirectoryMode(t *testing.T) {
	used := NewUsedNames()

	got, err := Allocate("src/utils/helpers", "typescript", 4, used, true)
	if err != nil {
		t.Fatal(err)
	}
	if got != "src/utils/5_helpers.ts" {
		t.Errorf("expected src/utils/5_helpers.ts, got %s", got)
	}

	got, err = Allocate("src/utils/helpers", "typescript", 4, used, true)
	if err != nil {
		t.Fatal(err)
	}
	if got != "src/utils/5_helpers_*.ts" {
		t.Errorf("expected src/utils/5_helpers_*.ts, got %s", got)
	}

	got, err = Allocate("plain", "css", 0, used, true)
	if err != nil {
		t.Fatal(err)
	}
	if got != "1_plain.css" {
		t.Errorf("expected 1_plain.css, got %s", got)
	}
}

func TestAllocateDirectoryModeDropsTraversal(t *testing.T) {
	got, err := Allocate("../../etc//passwd", "txt", 0, NewUsedNames(), true)
	if err != nil {
		t.Fatal(err)
	}
	if got != "etc/1_passwd.txt" {
		t.Errorf("expected etc/1_passwd.txt, got %s", got)
	}
}

func TestAllocateDirectoryModeTrailingSlash(t *testing.T) {
	used := NewUsedNames()
	cases := []struct{ title, want string }{
		{"a/", "1_a.py"},
		{"src/lib/", "src/1_lib.py"},
		{"/", "1_.py"},
	}
	for _, tc := range cases {
		got, err := Allocate(tc.title, "python", 0, used, true)
		if err != nil {
			t.Fatal(err)
		}
		if got != tc.want {
			t.Errorf("Allocate(%q): expected %s, got %s", tc.title, tc.want, got)
		}
	}
}

func TestAllocateExhausted(t *testing.T) {
	used := NewUsedNames()
	used.Add("1_x.txt")
	for i := 1; i < maxAttempts; i++ {
		used.Add("1_x_" + repeatStar(i) + ".txt")
	}

	_, err := Allocate("x", "txt", 0, used, false)
	if !errors.Is(err, ErrNameExhausted) {
		t.Fatalf("expected ErrNameExhausted, got %v", err)
	}
}

func repeatStar(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = '*'
	}
	return string(b)
}
