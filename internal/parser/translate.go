package parser

import "regexp"

// Best-effort rewrite of Unix-flavored command lines into Windows
// equivalents. Purely syntactic: a flag that happens to start with /
// can be mis-rewritten. The result is advisory and still goes through
// user confirmation before execution.

var (
	homeTildeRe = regexp.MustCompile(`~`)
	homePathRe  = regexp.MustCompile(`/home/\w+`)
	pathSegRe   = regexp.MustCompile(`/([A-Za-z0-9_.-]+)`)
)

// utilityTable maps Unix utility names to Windows equivalents.
// Multi-word entries come first so "ls -la" wins over bare "ls".
var utilityTable = []struct {
	re      *regexp.Regexp
	windows string
}{
	{regexp.MustCompile(`\bls -la\b`), "dir /a"},
	{regexp.MustCompile(`\bls -l\b`), "dir"},
	{regexp.MustCompile(`\bls\b`), "dir"},
	{regexp.MustCompile(`\bcat\b`), "type"},
	{regexp.MustCompile(`\bgrep\b`), "findstr"},
	{regexp.MustCompile(`\bpwd\b`), "cd"},
	{regexp.MustCompile(`\bps\b`), "tasklist"},
	{regexp.MustCompile(`\bkill\b`), "taskkill"},
	{regexp.MustCompile(`\bcp\b`), "copy"},
	{regexp.MustCompile(`\bmv\b`), "move"},
	{regexp.MustCompile(`\brm\b`), "del"},
	{regexp.MustCompile(`\bmkdir\b`), "mkdir"},
	{regexp.MustCompile(`\brmdir\b`), "rmdir"},
	{regexp.MustCompile(`\bwhoami\b`), "whoami"},
}

// ToWindowsCommand rewrites command from a Unix shell dialect to a
// Windows one. Always returns a string; no validation of the result.
func ToWindowsCommand(command string) string {
	out := homeTildeRe.ReplaceAllString(command, "%USERPROFILE%")
	out = homePathRe.ReplaceAllString(out, "%USERPROFILE%")

	// Rewrite /segment path fragments to \segment.
	out = pathSegRe.ReplaceAllString(out, `\$1`)

	for _, entry := range utilityTable {
		out = entry.re.ReplaceAllString(out, entry.windows)
	}
	return out
}
