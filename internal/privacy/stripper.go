// Package privacy keeps sensitive text on the local machine. Anything
// the user wraps in <private> tags is removed before a message is
// stored or sent to the model backend, and command output is scanned
// for credential-shaped strings before it leaves the process.
package privacy

import (
	"regexp"
	"strings"
)

// privateTagRegex matches <private>...</private> tags
var privateTagRegex = regexp.MustCompile(`(?s)<private>.*?</private>`)

var secretPatterns = []*regexp.Regexp{
	// AWS access key IDs
	regexp.MustCompile(`\bAKIA[0-9A-Z]{16}\b`),
	// Google API keys
	regexp.MustCompile(`\bAIza[0-9A-Za-z_-]{35}\b`),
	// Bearer tokens in headers or pasted output
	regexp.MustCompile(`(?i)\bbearer\s+[A-Za-z0-9._~+/-]{20,}=*`),
	// key=value style assignments of keys, tokens, passwords
	regexp.MustCompile(`(?i)\b(api[_-]?key|token|secret|password)(\s*[=:]\s*)\S+`),
	// long hex blobs (session ids, keys dumped in hex)
	regexp.MustCompile(`\b[0-9a-fA-F]{40,}\b`),
}

const redactedMarker = "[REDACTED]"

// StripPrivateTags removes all <private>...</private> content from text.
func StripPrivateTags(text string) string {
	return privateTagRegex.ReplaceAllString(text, "")
}

// RedactSecrets replaces credential-shaped substrings with a marker.
// Applied to command output before it is included in a model prompt.
func RedactSecrets(text string) string {
	for _, re := range secretPatterns {
		if re.NumSubexp() == 2 {
			text = re.ReplaceAllString(text, "${1}${2}"+redactedMarker)
			continue
		}
		text = re.ReplaceAllString(text, redactedMarker)
	}
	return text
}

// IsEntirelyPrivate reports whether nothing would remain after
// stripping private tags.
func IsEntirelyPrivate(text string) bool {
	return strings.TrimSpace(StripPrivateTags(text)) == ""
}

// Clean strips private tags and redacts secrets. This is the function
// to use on user text before it is stored or sent anywhere.
func Clean(text string) string {
	return strings.TrimSpace(RedactSecrets(StripPrivateTags(text)))
}
