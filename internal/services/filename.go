package services

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// SecureFilename reduces name to a flat ASCII file name safe to display and
// log: separators become spaces, whitespace runs become underscores, anything
// outside [A-Za-z0-9_.-] is dropped and leading or trailing dots and
// underscores are trimmed. The result may be empty.
func SecureFilename(name string) string {
	decomposed := norm.NFKD.String(name)

	var ascii strings.Builder
	for _, r := range decomposed {
		if r < utf8.RuneSelf {
			ascii.WriteRune(r)
		}
	}
	flat := strings.NewReplacer("/", " ", `\`, " ").Replace(ascii.String())
	joined := strings.Join(strings.Fields(flat), "_")

	var out strings.Builder
	for _, r := range joined {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '.', r == '-':
			out.WriteRune(r)
		}
	}
	return strings.Trim(out.String(), "._")
}

// hasAllowedExtension reports whether name ends in one of exts, compared
// case-insensitively. A name without a dot never matches.
func hasAllowedExtension(name string, exts []string) bool {
	i := strings.LastIndex(name, ".")
	if i < 0 {
		return false
	}
	ext := strings.ToLower(name[i+1:])
	for _, allowed := range exts {
		if ext == strings.ToLower(strings.TrimPrefix(strings.TrimSpace(allowed), ".")) {
			return true
		}
	}
	return false
}
