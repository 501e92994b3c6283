package security

import "strings"

// IsValidRedirect reports whether path is safe to use as a post-login
// redirect target. Only relative paths within this site are accepted;
// protocol-relative ("//host") and absolute URLs are rejected.
func IsValidRedirect(path string) bool {
	if path == "" {
		return false
	}
	if !strings.HasPrefix(path, "/") {
		return false
	}
	if strings.HasPrefix(path, "//") || strings.HasPrefix(path, "/\\") {
		return false
	}
	if strings.Contains(path, "://") {
		return false
	}
	return true
}

// ValidateRedirect returns path when it is a safe redirect target, and "/"
// otherwise.
func ValidateRedirect(path string) string {
	if IsValidRedirect(path) {
		return path
	}
	return "/"
}
