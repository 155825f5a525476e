package model

import (
	"fmt"
	"net/url"
	"strings"
)

// NormalizeRepo accepts owner/name, an https://github.com/owner/name URL or a
// git@github.com:owner/name.git remote and returns owner/name.
func NormalizeRepo(input string) (string, error) {
	s := strings.TrimRight(strings.TrimSpace(input), "/")
	s = strings.TrimSuffix(s, ".git")

	switch {
	case strings.HasPrefix(s, "http://"), strings.HasPrefix(s, "https://"):
		u, err := url.Parse(s)
		if err != nil {
			return "", fmt.Errorf("parsing repo URL %q: %w", input, err)
		}
		s = strings.Trim(u.Path, "/")
	case strings.HasPrefix(s, "git@"):
		if _, path, ok := strings.Cut(s, ":"); ok {
			s = path
		}
	}

	parts := strings.SplitN(s, "/", 3)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", fmt.Errorf("invalid repo %q: expected owner/name", input)
	}
	return parts[0] + "/" + parts[1], nil
}
