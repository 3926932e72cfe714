// Package extract lifts artifact blocks out of assistant message text.
package extract

import (
	"regexp"
	"strings"

	"github.com/user/artifactdl/internal/types"
)

const (
	DefaultTitle    = "Untitled"
	DefaultLanguage = "txt"
)

var (
	artifactRe = regexp.MustCompile(`<antArtifact([^>]*)>([\s\S]*?)</antArtifact>`)
	titleRe    = regexp.MustCompile(`\btitle="([^"]*)`)
	languageRe = regexp.MustCompile(`\blanguage="([^"]*)`)
)

// Extract returns every artifact tag in text, in document order. Attributes
// are read from the opening tag only; a missing title or language falls back
// to DefaultTitle or DefaultLanguage. Nested tags are not supported.
func Extract(text string) []types.Artifact {
	matches := artifactRe.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}

	artifacts := make([]types.Artifact, 0, len(matches))
	for _, m := range matches {
		attrs, body := m[1], m[2]
		artifacts = append(artifacts, types.Artifact{
			Title:    attr(titleRe, attrs, DefaultTitle),
			Language: attr(languageRe, attrs, DefaultLanguage),
			Content:  strings.TrimSpace(body),
		})
	}
	return artifacts
}

func attr(re *regexp.Regexp, attrs, fallback string) string {
	if m := re.FindStringSubmatch(attrs); m != nil {
		return m[1]
	}
	return fallback
}
