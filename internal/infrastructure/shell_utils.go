package infrastructure

import "strings"

// shellMeta lists the characters that force quoting in a logged command line
const shellMeta = " \t\n\r'\"$`\\!*?[](){}|;<>&~#%"

// sensitiveFlags take a value that must not reach the logs
var sensitiveFlags = map[string]bool{
	"--cookies":        true,
	"--username":       true,
	"--password":       true,
	"--video-password": true,
	"--add-header":     true,
}

const redacted = "<redacted>"

// quoteArg renders one argument the way a POSIX shell would need it.
// exec.Command never sees this form; it only feeds log lines.
func quoteArg(s string) string {
	if s == "" {
		return "''"
	}
	if !strings.ContainsAny(s, shellMeta) {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}

// CommandLine renders an extractor invocation for the logs. Values of
// credential flags are masked.
func CommandLine(binary string, args ...string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, quoteArg(binary))

	maskNext := false
	for _, arg := range args {
		switch {
		case maskNext:
			parts = append(parts, redacted)
			maskNext = false
		case sensitiveFlags[arg]:
			parts = append(parts, arg)
			maskNext = true
		default:
			if flag, _, found := strings.Cut(arg, "="); found && sensitiveFlags[flag] {
				parts = append(parts, flag+"="+redacted)
				continue
			}
			parts = append(parts, quoteArg(arg))
		}
	}
	return strings.Join(parts, " ")
}
