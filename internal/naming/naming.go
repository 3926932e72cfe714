// Package naming maps artifact titles to unique file paths inside an archive.
package naming

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// maxAttempts bounds the collision suffix length.
const maxAttempts = 10000

// ErrNameExhausted is returned when no free path was found within maxAttempts.
var ErrNameExhausted = errors.New("no free file name")

var (
	flatRe = regexp.MustCompile(`[^\w\-.]+`)
	dirRe  = regexp.MustCompile(`[^\w\-./]+`)
)

var extensions = map[string]string{
	"javascript": ".js",
	"html":       ".html",
	"css":        ".css",
	"python":     ".py",
	"java":       ".java",
	"c":          ".c",
	"cpp":        ".cpp",
	"ruby":       ".rb",
	"php":        ".php",
	"swift":      ".swift",
	"go":         ".go",
	"rust":       ".rs",
	"typescript": ".ts",
	"shell":      ".sh",
	"sql":        ".sql",
	"kotlin":     ".kt",
	"scala":      ".scala",
	"r":          ".r",
	"matlab":     ".m",
}

// Extension returns the file extension for language, matched
// case-insensitively. Unknown languages map to ".txt".
func Extension(language string) string {
	if ext, ok := extensions[strings.ToLower(language)]; ok {
		return ext
	}
	return ".txt"
}

// UsedNames is the set of paths already handed out for one archive.
type UsedNames struct {
	names map[string]struct{}
}

func NewUsedNames() *UsedNames {
	return &UsedNames{names: make(map[string]struct{})}
}

func (u *UsedNames) Has(name string) bool {
	_, ok := u.names[name]
	return ok
}

func (u *UsedNames) Add(name string) {
	u.names[name] = struct{}{}
}

func (u *UsedNames) Len() int {
	return len(u.names)
}

// Sanitize replaces every run of characters outside [A-Za-z0-9_.-] with a
// single underscore. In directory mode "/" is kept as well.
func Sanitize(title string, directoryMode bool) string {
	if directoryMode {
		return dirRe.ReplaceAllString(title, "_")
	}
	return flatRe.ReplaceAllString(title, "_")
}

// Allocate returns a path for the artifact that is not yet in used and
// records it there. The ordinal is the message index; paths take the form
// "{ordinal+1}_{title}{ext}". In directory mode a title containing "/" is
// split so the leaf carries the ordinal prefix under its directory.
// Collisions append "_*", "_**", ... before the extension.
func Allocate(title, language string, ordinal int, used *UsedNames, directoryMode bool) (string, error) {
	base := Sanitize(title, directoryMode)
	ext := Extension(language)

	dir, leaf := "", base
	if directoryMode {
		dir, leaf = splitDir(base)
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		suffix := ""
		if attempt > 0 {
			suffix = "_" + strings.Repeat("*", attempt)
		}
		candidate := fmt.Sprintf("%d_%s%s%s", ordinal+1, leaf, suffix, ext)
		if dir != "" {
			candidate = dir + "/" + candidate
		}
		if !used.Has(candidate) {
			used.Add(candidate)
			return candidate, nil
		}
	}
	return "", fmt.Errorf("allocate %q: %w", title, ErrNameExhausted)
}

// splitDir separates a slash-delimited name into directory and leaf. Empty,
// "." and ".." segments are dropped so the result stays inside the archive.
func splitDir(name string) (string, string) {
	var parts []string
	for _, p := range strings.Split(name, "/") {
		if p == "" || p == "." || p == ".." {
			continue
		}
		parts = append(parts, p)
	}
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return "", parts[0]
	}
	return strings.Join(parts[:len(parts)-1], "/"), parts[len(parts)-1]
}
