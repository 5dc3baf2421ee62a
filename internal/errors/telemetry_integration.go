// Package errors - telemetry integration (optional)
package errors

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
	"unicode"

	"github.com/getsentry/sentry-go"
)

// TelemetryReporter is an interface for reporting errors to telemetry systems
type TelemetryReporter interface {
	ReportError(err *EnhancedError)
	IsEnabled() bool
}

// SentryReporter implements TelemetryReporter for Sentry
type SentryReporter struct {
	enabled bool
}

// NewSentryReporter creates a new Sentry telemetry reporter
func NewSentryReporter(enabled bool) *SentryReporter {
	return &SentryReporter{enabled: enabled}
}

// InitSentry initializes the Sentry SDK and installs a reporter for it.
// An empty DSN leaves telemetry disabled.
func InitSentry(dsn, release string) error {
	if dsn == "" {
		SetTelemetryReporter(nil)
		return nil
	}
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Release:          release,
		AttachStacktrace: false,
	}); err != nil {
		return fmt.Errorf("sentry initialization failed: %w", err)
	}
	SetTelemetryReporter(NewSentryReporter(true))
	return nil
}

// IsEnabled returns whether Sentry telemetry is enabled
func (sr *SentryReporter) IsEnabled() bool {
	return sr.enabled
}

// ReportError reports an enhanced error to Sentry with privacy protection
func (sr *SentryReporter) ReportError(ee *EnhancedError) {
	if !sr.enabled || ee.IsReported() {
		return
	}

	message := scrubMessageForPrivacy(fmt.Sprintf("[%s] %s", ee.Category, ee.Err.Error()))
	component := ee.GetComponent()

	sentry.WithScope(func(scope *sentry.Scope) {
		title := generateErrorTitle(ee)

		scope.SetTag("error_title", title)
		scope.SetTag("component", component)
		scope.SetTag("category", string(ee.Category))
		scope.SetTag("error_type", fmt.Sprintf("%T", ee.Err))

		for key, value := range ee.GetContext() {
			if strValue, ok := value.(string); ok {
				value = scrubMessageForPrivacy(strValue)
			}
			scope.SetContext(key, map[string]any{"value": value})
		}

		level := getErrorLevel(ee.Category)
		scope.SetLevel(level)
		scope.SetFingerprint([]string{title, component, string(ee.Category)})

		event := sentry.NewEvent()
		event.Message = message
		event.Level = level
		event.Exception = []sentry.Exception{{Type: title, Value: message}}

		sentry.CaptureEvent(event)
	})

	ee.MarkReported()
}

// generateErrorTitle creates a grouping title from component, category and operation
func generateErrorTitle(ee *EnhancedError) string {
	var titleParts []string

	if component := ee.GetComponent(); component != "" && component != ComponentUnknown {
		titleParts = append(titleParts, titleCase(component))
	}

	if categoryTitle := formatCategoryForTitle(ee.Category); categoryTitle != "" {
		titleParts = append(titleParts, categoryTitle)
	}

	if operation, ok := ee.GetContext()["operation"].(string); ok && operation != "" {
		titleParts = append(titleParts, formatOperationForTitle(operation))
	}

	if len(titleParts) == 0 {
		return fmt.Sprintf("%T", ee.Err)
	}

	return strings.Join(titleParts, " ")
}

// formatCategoryForTitle converts error categories to human-readable titles
func formatCategoryForTitle(category ErrorCategory) string {
	switch category {
	case CategorySourceUnavailable:
		return "Source Unavailable"
	case CategoryNetwork:
		return "Network Error"
	case CategoryFileIO:
		return "File I/O Error"
	case CategoryFileParsing:
		return "Parse Error"
	case CategoryEncoding:
		return "Encoding Error"
	case CategoryValidation:
		return "Validation Error"
	case CategoryConfiguration:
		return "Configuration Error"
	default:
		return string(category)
	}
}

// formatOperationForTitle converts operation context to human-readable format
func formatOperationForTitle(operation string) string {
	words := strings.Fields(strings.ReplaceAll(operation, "_", " "))
	for i, word := range words {
		words[i] = titleCase(word)
	}
	return strings.Join(words, " ")
}

// titleCase capitalizes the first letter of a string
func titleCase(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// getErrorLevel returns appropriate Sentry level based on category
func getErrorLevel(category ErrorCategory) sentry.Level {
	switch category {
	case CategoryNetwork, CategoryHTTP:
		return sentry.LevelWarning // Often transient
	case CategoryFileIO:
		return sentry.LevelWarning
	default:
		return sentry.LevelError
	}
}

var (
	telemetryMu             sync.RWMutex
	globalTelemetryReporter TelemetryReporter
)

// SetTelemetryReporter sets the global telemetry reporter; nil disables reporting
func SetTelemetryReporter(reporter TelemetryReporter) {
	telemetryMu.Lock()
	defer telemetryMu.Unlock()
	globalTelemetryReporter = reporter
	hasActiveReporting.Store(reporter != nil && reporter.IsEnabled())
}

// GetTelemetryReporter returns the current telemetry reporter
func GetTelemetryReporter() TelemetryReporter {
	telemetryMu.RLock()
	defer telemetryMu.RUnlock()
	return globalTelemetryReporter
}

// reportToTelemetry reports an error to the configured telemetry system
func reportToTelemetry(ee *EnhancedError) {
	reporter := GetTelemetryReporter()
	if reporter != nil && reporter.IsEnabled() {
		reporter.ReportError(ee)
	}
}

// Pre-compiled scrubbing patterns
var (
	urlQueryRegex   = regexp.MustCompile(`(https?://[^?\s]+)\?\S*`)
	queryParamRegex = regexp.MustCompile(`[?&]([^=\s]+)=([^&\s]+)`)
	apiKeyRegexes   = []*regexp.Regexp{
		regexp.MustCompile(`api[_-]?key[=:]\S+`),
		regexp.MustCompile(`token[=:]\S+`),
		regexp.MustCompile(`auth[=:]\S+`),
		regexp.MustCompile(`[0-9a-fA-F]{32,}`),
	}
)

// scrubMessageForPrivacy removes query strings and credentials from messages
func scrubMessageForPrivacy(message string) string {
	return basicURLScrub(message)
}

// basicURLScrub provides basic URL anonymization
func basicURLScrub(message string) string {
	scrubbed := urlQueryRegex.ReplaceAllString(message, "$1?[REDACTED]")
	scrubbed = queryParamRegex.ReplaceAllString(scrubbed, "?[REDACTED]")
	for _, re := range apiKeyRegexes {
		scrubbed = re.ReplaceAllString(scrubbed, "[API_KEY_REDACTED]")
	}
	return scrubbed
}
