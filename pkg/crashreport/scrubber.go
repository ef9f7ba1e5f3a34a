// scrubber.go implements fail-closed sensitive data redaction for crash events.

package crashreport

import (
	"fmt"
	"regexp"
	"strings"
)

// ScrubberConfig controls scrubbing behavior.
type ScrubberConfig struct {
	// SensitivePatterns contains additional substrings for sensitive extra/tag keys.
	SensitivePatterns []string

	// MaxMessageSize is the maximum length for exception messages (default: 4096).
	MaxMessageSize int

	// MaxNoteSize is the maximum length for the user's note (default: 8192).
	MaxNoteSize int

	// MaxFrames is the maximum number of frames kept per exception (default: 250).
	MaxFrames int

	// MaxExtraValueSize is the maximum length per extra string value (default: 1024).
	MaxExtraValueSize int

	// ScrubMessages enables scrubbing of messages and the note for secrets/PII (default: true).
	ScrubMessages bool

	// FailClosed redacts values the scrubber cannot inspect instead of passing them through (default: true).
	FailClosed bool
}

// DefaultScrubberConfig returns production-safe defaults.
func DefaultScrubberConfig() ScrubberConfig {
	return ScrubberConfig{
		MaxMessageSize:    4096,
		MaxNoteSize:       8192,
		MaxFrames:         250,
		MaxExtraValueSize: 1024,
		ScrubMessages:     true,
		FailClosed:        true,
	}
}

// Compiled regex patterns for message scrubbing (compiled once at package init)
var messageScrubPatterns = []*regexp.Regexp{
	// API keys and tokens
	regexp.MustCompile(`(?i)(api[_-]?key|token)[=:\s]+['"]?[\w\-\.]+['"]?`),
	regexp.MustCompile(`(?i)(authorization|bearer)[=:\s]+['"]?[\w\-\.]+['"]?[\s]+['"]?[\w\-\.]+['"]?`), // Authorization: Bearer <token>
	regexp.MustCompile(`(?i)ghp_[a-zA-Z0-9]{36}`),                                                      // GitHub tokens
	regexp.MustCompile(`(?i)github_pat_[a-zA-Z0-9_]{22,}`),                                             // GitHub PAT
	regexp.MustCompile(`(?i)xox[baprs]-[a-zA-Z0-9\-]{10,}`),                                            // Slack tokens
	regexp.MustCompile(`(?i)eyJ[a-zA-Z0-9_-]*\.eyJ[a-zA-Z0-9_-]*\.[a-zA-Z0-9_-]*`),                     // JWT tokens

	// Credentials
	regexp.MustCompile(`(?i)password[=:\s]+['"]?[^\s'"",]+['"]?`),
	regexp.MustCompile(`(?i)secret[=:\s]+['"]?[^\s'"",]+['"]?`),
	regexp.MustCompile(`(?i)passwd[=:\s]+['"]?[^\s'"",]+['"]?`),
	regexp.MustCompile(`(?i)credential[=:\s]+['"]?[^\s'"",]+['"]?`),

	// PII
	regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Z|a-z]{2,}\b`), // Email
	regexp.MustCompile(`\b\d{4}[\s-]?\d{4}[\s-]?\d{4}[\s-]?\d{4}\b`),          // Credit card
}

// Sensitive key patterns (case-insensitive substring match)
var sensitiveKeyPatterns = []string{
	"token",
	"key",
	"secret",
	"password",
	"credential",
	"auth",
	"passwd",
}

// User directories in frame paths and messages
var pathNormalizationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`/home/[^/]+/`),
	regexp.MustCompile(`/Users/[^/]+/`),
	regexp.MustCompile(`(?i)C:\\Users\\[^\\]+\\`),
}

// Keys the reporter writes itself; never redacted by key name.
var reservedExtraKeys = map[string]bool{
	ExtraLastAction:     true,
	ExtraAdditionalInfo: true,
	ExtraSystem:         true,
}

// Scrubber redacts sensitive data from events.
type Scrubber struct {
	cfg ScrubberConfig
}

// NewScrubber creates a new scrubber with the given configuration.
func NewScrubber(cfg ScrubberConfig) *Scrubber {
	return &Scrubber{cfg: cfg}
}

// ScrubEvent scrubs event in place.
func (s *Scrubber) ScrubEvent(event *Event) {
	if event == nil {
		return
	}
	for i := range event.Exceptions {
		exc := &event.Exceptions[i]
		exc.Message = s.ScrubMessage(exc.Message)
		exc.Frames = s.ScrubFrames(exc.Frames)
	}
	if note, ok := event.Extra[ExtraAdditionalInfo].(string); ok {
		event.Extra[ExtraAdditionalInfo] = s.ScrubNote(note)
	}
	event.Extra = s.ScrubExtra(event.Extra)
	event.ServerName = ""
}

// ScrubMessage scrubs sensitive patterns from an exception message.
func (s *Scrubber) ScrubMessage(msg string) string {
	return s.scrubText(msg, s.cfg.MaxMessageSize)
}

// ScrubNote scrubs the user's free-text note.
func (s *Scrubber) ScrubNote(note string) string {
	return s.scrubText(note, s.cfg.MaxNoteSize)
}

func (s *Scrubber) scrubText(text string, maxSize int) string {
	if text == "" {
		return text
	}
	// redact before truncating so a secret cut by the cap still matches
	if s.cfg.ScrubMessages {
		text = normalizePaths(text)
		for _, pattern := range messageScrubPatterns {
			text = pattern.ReplaceAllString(text, "[REDACTED]")
		}
	}
	if maxSize > 0 && len(text) > maxSize {
		text = truncateWithMarker(text, maxSize)
	}
	return text
}

// ScrubFrames removes user directories from file paths and caps the frame count.
// The input slice is not modified.
func (s *Scrubber) ScrubFrames(frames []Frame) []Frame {
	if len(frames) == 0 {
		return frames
	}
	if s.cfg.MaxFrames > 0 && len(frames) > s.cfg.MaxFrames {
		frames = frames[:s.cfg.MaxFrames]
	}
	result := make([]Frame, len(frames))
	for i, f := range frames {
		f.File = normalizePaths(f.File)
		result[i] = f
	}
	return result
}

// ScrubExtra redacts sensitive keys and bounds string values. Values the
// scrubber cannot inspect are redacted when FailClosed is set.
func (s *Scrubber) ScrubExtra(extra map[string]any) map[string]any {
	if extra == nil {
		return nil
	}

	result := make(map[string]any, len(extra))
	for key, value := range extra {
		if !reservedExtraKeys[key] && s.isSensitiveKey(key) {
			result[key] = "[REDACTED]"
			continue
		}
		switch v := value.(type) {
		case string:
			if key != ExtraAdditionalInfo && s.cfg.MaxExtraValueSize > 0 && len(v) > s.cfg.MaxExtraValueSize {
				v = truncateWithMarker(v, s.cfg.MaxExtraValueSize)
			}
			result[key] = v
		case nil, bool, int, int64, float64, map[string]any:
			result[key] = v
		default:
			if s.cfg.FailClosed {
				result[key] = fmt.Sprintf("[REDACTED:%T]", v)
			} else {
				result[key] = v
			}
		}
	}
	return result
}

// isSensitiveKey checks if a key matches sensitive patterns.
func (s *Scrubber) isSensitiveKey(key string) bool {
	keyLower := strings.ToLower(key)
	for _, pattern := range sensitiveKeyPatterns {
		if strings.Contains(keyLower, pattern) {
			return true
		}
	}
	for _, pattern := range s.cfg.SensitivePatterns {
		if pattern != "" && strings.Contains(keyLower, strings.ToLower(pattern)) {
			return true
		}
	}
	return false
}

func normalizePaths(text string) string {
	for _, pattern := range pathNormalizationPatterns {
		text = pattern.ReplaceAllString(text, "/[PATH]/")
	}
	return text
}

// truncateWithMarker truncates a string and adds a truncation marker.
func truncateWithMarker(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	marker := "...[TRUNCATED]"
	if maxLen <= len(marker) {
		return marker[:maxLen]
	}
	return s[:maxLen-len(marker)] + marker
}
