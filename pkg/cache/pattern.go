package cache

import (
	"errors"
	"regexp"
	"strings"
)

// compilePattern converts a glob-style key pattern ("user:*:123") into an
// anchored regular expression. Only "*" is special; every other character
// matches literally.
func compilePattern(pattern string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteString("^")
	for _, part := range strings.Split(pattern, "*") {
		if part != "" {
			b.WriteString(regexp.QuoteMeta(part))
		}
		b.WriteString(".*")
	}
	expr := strings.TrimSuffix(b.String(), ".*") + "$"

	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, errors.Join(ErrInvalidPattern, err)
	}
	return re, nil
}
