// fingerprint.go generates stable hashes for grouping similar crashes.

package crashreport

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

// Fingerprint generates a hash for grouping similar crash events.
// The fingerprint is based on:
//   - the type of every exception
//   - the first 3 frames of every exception (function names only, normalized)
//
// Messages, line numbers, event ids and timestamps are ignored.
// An event without exceptions has an empty fingerprint.
func Fingerprint(event *Event) string {
	if event == nil || len(event.Exceptions) == 0 {
		return ""
	}

	var parts []string
	for _, exc := range event.Exceptions {
		parts = append(parts, exc.Type)
		parts = append(parts, normalizeFrames(exc.Frames)...)
	}

	input := strings.Join(parts, "|")
	hash := sha256.Sum256([]byte(input))

	// first 16 bytes, 32 hex chars
	return hex.EncodeToString(hash[:16])
}

var (
	// Java-style lambda and anonymous class suffixes: lambda$submit$0, Foo$1
	syntheticSuffixPattern = regexp.MustCompile(`\$(lambda\$)?[0-9]+$`)

	// Go closure suffixes: main.run.func1, main.run.func1.2
	closureSuffixPattern = regexp.MustCompile(`\.func[0-9]+(\.[0-9]+)*$`)

	// Go generic instantiations: pkg.Map[...]
	genericPattern = regexp.MustCompile(`\[[^\]]*\]`)
)

// normalizeFrames returns up to 3 normalized function names.
func normalizeFrames(frames []Frame) []string {
	var names []string
	for _, f := range frames {
		name := strings.TrimSpace(f.Function)
		if name == "" {
			continue
		}
		name = genericPattern.ReplaceAllString(name, "")
		name = closureSuffixPattern.ReplaceAllString(name, "")
		name = syntheticSuffixPattern.ReplaceAllString(name, "")
		names = append(names, name)
		if len(names) >= 3 {
			break
		}
	}
	return names
}
