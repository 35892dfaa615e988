// internal/importer/names.go
package importer

import (
	"net/url"
	"path"
	"regexp"
	"strings"
)

const (
	defaultName    = "animation"
	maxTitleLength = 50
)

var (
	brandWordsRegex   = regexp.MustCompile(`(?i)lottie(files)?|animation`)
	titleSpecialRegex = regexp.MustCompile(`[^\w\s-]`)
)

// CleanName derives a project name from a page title. Titles that are empty,
// longer than 50 characters or contain punctuation are replaced by the last
// path segment of pageURL with dashes read as spaces. Brand words are removed
// and whitespace collapsed; the result defaults to "animation".
func CleanName(title, pageURL string) string {
	name := strings.TrimSpace(title)
	if name == "" || len(name) > maxTitleLength || titleSpecialRegex.MatchString(name) {
		if u, err := url.Parse(pageURL); err == nil {
			name = segmentName(u.Path)
		} else {
			name = ""
		}
	}
	return firstNonEmpty(cleanName(name), defaultName)
}

func cleanName(s string) string {
	s = brandWordsRegex.ReplaceAllString(s, "")
	s = strings.Join(strings.Fields(s), " ")
	return strings.Trim(s, " -_|")
}

// segmentName turns the last non-empty path segment into words.
func segmentName(p string) string {
	base := path.Base(strings.TrimRight(p, "/"))
	if base == "." || base == "/" {
		return ""
	}
	base = strings.TrimSuffix(base, path.Ext(base))
	return strings.Join(strings.Split(base, "-"), " ")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
