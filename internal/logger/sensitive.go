package logger

import (
	"regexp"
)

// SensitiveDataPatterns contains regex patterns for data that must not reach log output.
// Station source URLs may carry access tokens in their query string.
var SensitiveDataPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(bearer\s+)([A-Za-z0-9-._~+/]+=*)`),
	regexp.MustCompile(`(?i)([?&](?:access_token|token|api_key|apikey|key|sig|signature)=)([^&\s]+)`),
	regexp.MustCompile(`(?i)((?:password|passwd|secret)[\s:=]+)([^;,\s]{3,})`),
	regexp.MustCompile(`(?i)(https?://[^:/\s]+:)([^@/\s]+)(@)`),
}

// RedactSensitiveData replaces sensitive information with "[REDACTED]"
func RedactSensitiveData(input string) string {
	if input == "" {
		return input
	}
	for _, pattern := range SensitiveDataPatterns {
		if pattern.NumSubexp() == 3 {
			input = pattern.ReplaceAllString(input, "$1[REDACTED]$3")
			continue
		}
		input = pattern.ReplaceAllString(input, "$1[REDACTED]")
	}
	return input
}
