// Package validate rejects archive member paths and link targets that could
// escape an extraction root.
package validate

import (
	"path"
	"strings"

	"github.com/jmgilman/go/archive/errors"
)

// PathValidator checks member paths and symlink targets before extraction.
// Paths are archive paths: slash-separated and relative to the root.
type PathValidator struct {
	// AllowHidden permits path components starting with a dot.
	AllowHidden bool

	// AllowNonASCII permits non-ASCII characters. Control characters are
	// always rejected.
	AllowNonASCII bool
}

// NewPathValidator returns a validator that rejects hidden files and
// accepts non-ASCII names.
func NewPathValidator() *PathValidator {
	return &PathValidator{AllowNonASCII: true}
}

func violation(msg, p string) error {
	return errors.WithContext(errors.New(errors.CodeSecurityViolation, msg), "path", p)
}

// ValidatePath returns a SECURITY_VIOLATION error when p is empty,
// absolute, traverses upward or contains problematic characters.
func (v *PathValidator) ValidatePath(p string) error {
	if strings.TrimSpace(p) == "" {
		return violation("empty path", p)
	}
	if isAbsolute(p) {
		return violation("absolute path not allowed", p)
	}
	if err := detectTraversal(p); err != nil {
		return err
	}
	if err := v.detectProblematicCharacters(p); err != nil {
		return err
	}
	if !v.AllowHidden && isHidden(p) {
		return violation("hidden files not allowed", p)
	}
	return nil
}

// ValidateSymlink checks that target, resolved against the directory of
// the link at linkPath, stays inside the extraction root.
func (v *PathValidator) ValidateSymlink(linkPath, target string) error {
	if target == "" {
		return violation("empty symlink target", linkPath)
	}
	if isAbsolute(target) {
		return errors.WithContextMap(
			errors.New(errors.CodeSecurityViolation, "symlink target is absolute"),
			map[string]interface{}{"path": linkPath, "target": target})
	}
	if hasEncodedTraversal(target) {
		return violation("encoded path traversal in symlink target", linkPath)
	}

	resolved := path.Clean(path.Join(path.Dir(linkPath), target))
	if resolved == ".." || strings.HasPrefix(resolved, "../") {
		return errors.WithContextMap(
			errors.New(errors.CodeSecurityViolation, "symlink target escapes extraction root"),
			map[string]interface{}{"path": linkPath, "target": target, "resolved": resolved})
	}
	return nil
}

// ValidateHardlink checks that a hard link target names a member inside
// the extraction root.
func (v *PathValidator) ValidateHardlink(linkPath, target string) error {
	if err := v.ValidatePath(target); err != nil {
		return errors.WithContext(err, "link", linkPath)
	}
	return nil
}

func detectTraversal(p string) error {
	if hasEncodedTraversal(p) {
		return violation("encoded path traversal detected", p)
	}
	if c := path.Clean(p); c == ".." || strings.HasPrefix(c, "../") {
		return violation("path traversal detected", p)
	}
	for _, sep := range []string{"/", "\\"} {
		for _, part := range strings.Split(p, sep) {
			if part == ".." {
				return violation("path traversal detected", p)
			}
		}
	}
	return nil
}

func hasEncodedTraversal(p string) bool {
	lower := strings.ToLower(p)
	for _, variant := range []string{
		"..%2f", "..%5c",
		"%2e%2e%2f", "%2e%2e%5c",
		"%2e%2e/", "%2e%2e\\",
		"..%c0%af", "..%c1%9c",
	} {
		if strings.Contains(lower, variant) {
			return true
		}
	}
	return false
}

func (v *PathValidator) detectProblematicCharacters(p string) error {
	for _, r := range p {
		switch {
		case r == 0:
			return violation("NUL byte in path", p)
		case r < 32 || r == 127:
			return violation("control character in path", p)
		case r > 127 && !v.AllowNonASCII:
			return violation("non-ASCII character in path", p)
		}
	}
	return nil
}

func isHidden(p string) bool {
	for _, part := range strings.Split(p, "/") {
		if strings.HasPrefix(part, ".") && part != "." && part != ".." {
			return true
		}
	}
	return false
}

// isAbsolute recognizes Unix, Windows drive and UNC absolute paths.
func isAbsolute(p string) bool {
	if strings.HasPrefix(p, "/") || strings.HasPrefix(p, "\\\\") {
		return true
	}
	if len(p) >= 3 && p[1] == ':' && (p[2] == '\\' || p[2] == '/') {
		d := p[0]
		return (d >= 'A' && d <= 'Z') || (d >= 'a' && d <= 'z')
	}
	return false
}
