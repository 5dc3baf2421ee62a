// Package errors provides centralized error handling with optional telemetry integration
package errors

import (
	stderrors "errors"
	"fmt"
	"maps"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// ErrorCategory represents the type of error for better categorization
type ErrorCategory string

// CategorizedError is an interface for errors that can specify their own category
type CategorizedError interface {
	error
	ErrorCategory() ErrorCategory
}

const (
	CategorySourceUnavailable ErrorCategory = "source-unavailable" // No readable reference table source
	CategoryNetwork           ErrorCategory = "network"            // Remote fetch failures
	CategoryFileIO            ErrorCategory = "file-io"
	CategoryFileParsing       ErrorCategory = "file-parsing"
	CategoryEncoding          ErrorCategory = "text-encoding"
	CategoryValidation        ErrorCategory = "validation"
	CategoryConfiguration     ErrorCategory = "configuration"
	CategoryNotFound          ErrorCategory = "not-found"
	CategoryHTTP              ErrorCategory = "http-request"
	CategoryExport            ErrorCategory = "export"
	CategoryGeneric           ErrorCategory = "generic"
)

// Priority constants for error prioritization
const (
	PriorityLow      = "low"
	PriorityMedium   = "medium"
	PriorityHigh     = "high"
	PriorityCritical = "critical"
)

// ComponentUnknown is used when the component cannot be determined.
const ComponentUnknown = "unknown"

// modulePath is skipped while walking the stack for component detection.
const modulePath = "github.com/sharksmhi/ctdstations/internal/errors"

// hasActiveReporting is flipped when a telemetry reporter is installed so that
// Build can stay on the cheap path otherwise.
var hasActiveReporting atomic.Bool

// EnhancedError wraps an error with additional context and metadata
type EnhancedError struct {
	Err       error          // Original error
	component string         // Component where error occurred (lazily detected)
	Category  ErrorCategory  // Error category for better grouping
	Priority  string         // Explicit priority override (optional)
	Context   map[string]any // Additional context data
	Timestamp time.Time      // When the error occurred
	reported  bool           // Whether telemetry has been sent
	mu        sync.RWMutex   // Mutex to protect concurrent access
	detected  bool           // Whether component has been auto-detected
}

// Error implements the error interface
func (ee *EnhancedError) Error() string {
	return ee.Err.Error()
}

// Unwrap implements the error unwrapping interface
func (ee *EnhancedError) Unwrap() error {
	return ee.Err
}

// Is implements error type checking. Two enhanced errors match when they share
// a category, which lets callers keep category sentinels around.
func (ee *EnhancedError) Is(target error) bool {
	if ee2, ok := target.(*EnhancedError); ok {
		return ee.Category == ee2.Category
	}
	return Is(ee.Err, target)
}

// GetComponent returns the component name, detecting it lazily if needed
func (ee *EnhancedError) GetComponent() string {
	ee.mu.RLock()
	if ee.detected || ee.component != "" {
		component := ee.component
		ee.mu.RUnlock()
		return component
	}
	ee.mu.RUnlock()

	ee.mu.Lock()
	defer ee.mu.Unlock()

	if ee.component == "" && !ee.detected {
		ee.component = detectComponent()
		ee.detected = true
		if ee.component == "" {
			ee.component = ComponentUnknown
		}
	}

	return ee.component
}

// GetCategory returns the error category
func (ee *EnhancedError) GetCategory() string {
	return string(ee.Category)
}

// GetPriority returns the explicit priority if set, empty string otherwise
func (ee *EnhancedError) GetPriority() string {
	return ee.Priority
}

// GetContext returns a copy of the error context
func (ee *EnhancedError) GetContext() map[string]any {
	ee.mu.RLock()
	defer ee.mu.RUnlock()

	if ee.Context == nil {
		return nil
	}

	contextCopy := make(map[string]any, len(ee.Context))
	maps.Copy(contextCopy, ee.Context)
	return contextCopy
}

// GetTimestamp returns when the error occurred
func (ee *EnhancedError) GetTimestamp() time.Time {
	return ee.Timestamp
}

// MarkReported marks this error as reported to telemetry
func (ee *EnhancedError) MarkReported() {
	ee.mu.Lock()
	defer ee.mu.Unlock()
	ee.reported = true
}

// IsReported returns whether this error has been reported
func (ee *EnhancedError) IsReported() bool {
	ee.mu.RLock()
	defer ee.mu.RUnlock()
	return ee.reported
}

// ErrorBuilder provides a fluent interface for creating enhanced errors
type ErrorBuilder struct {
	err       error
	component string
	category  ErrorCategory
	priority  string
	context   map[string]any
}

// New creates a new error with enhanced context
func New(err error) *ErrorBuilder {
	return &ErrorBuilder{err: err}
}

// Newf creates a new formatted error with enhanced context
func Newf(format string, args ...any) *ErrorBuilder {
	return New(fmt.Errorf(format, args...))
}

// Component sets the component name (auto-detected if not set)
func (eb *ErrorBuilder) Component(component string) *ErrorBuilder {
	eb.component = component
	return eb
}

// Category sets the error category for better grouping
func (eb *ErrorBuilder) Category(category ErrorCategory) *ErrorBuilder {
	eb.category = category
	return eb
}

// Priority sets the explicit priority override for the error.
// Unknown values fall back to medium.
func (eb *ErrorBuilder) Priority(priority string) *ErrorBuilder {
	switch priority {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		eb.priority = priority
	case "":
	default:
		eb.priority = PriorityMedium
	}
	return eb
}

// Context adds context data to the error
func (eb *ErrorBuilder) Context(key string, value any) *ErrorBuilder {
	if eb.context == nil {
		eb.context = make(map[string]any)
	}
	eb.context[key] = value
	return eb
}

// FileContext adds file-specific context (path is anonymized)
func (eb *ErrorBuilder) FileContext(filePath string) *ErrorBuilder {
	if filePath == "" {
		return eb
	}
	eb.Context("file_type", categorizeFilePath(filePath))
	eb.Context("file_extension", getFileExtension(filePath))
	return eb
}

// NetworkContext adds network-specific context (URLs are anonymized)
func (eb *ErrorBuilder) NetworkContext(url string, timeout time.Duration) *ErrorBuilder {
	if url != "" {
		eb.Context("url_category", categorizeURL(url))
	}
	if timeout > 0 {
		eb.Context("timeout_seconds", timeout.Seconds())
	}
	return eb
}

// Timing adds performance timing context
func (eb *ErrorBuilder) Timing(operation string, duration time.Duration) *ErrorBuilder {
	eb.Context("operation", operation)
	eb.Context("duration_ms", duration.Milliseconds())
	return eb
}

// Build creates the EnhancedError and triggers optional telemetry reporting
func (eb *ErrorBuilder) Build() *EnhancedError {
	if !hasActiveReporting.Load() {
		ee := &EnhancedError{
			Err:       eb.err,
			component: eb.component,
			Category:  eb.category,
			Priority:  eb.priority,
			Context:   eb.context,
			Timestamp: time.Now(),
			detected:  eb.component != "",
		}
		if ee.component == "" {
			ee.component = ComponentUnknown
			ee.detected = true
		}
		if ee.Category == "" {
			ee.Category = CategoryGeneric
		}
		return ee
	}

	if eb.component == "" {
		eb.component = detectComponent()
	}
	if eb.category == "" {
		eb.category = detectCategory(eb.err)
	}

	ee := &EnhancedError{
		Err:       eb.err,
		component: eb.component,
		Category:  eb.category,
		Priority:  eb.priority,
		Context:   eb.context,
		Timestamp: time.Now(),
		detected:  true,
	}

	reportToTelemetry(ee)

	return ee
}

// Component registry for dynamic component detection
var (
	componentRegistry = make(map[string]string)
	registryMutex     sync.RWMutex
)

// RegisterComponent registers a package path pattern with a component name
func RegisterComponent(packagePattern, componentName string) {
	registryMutex.Lock()
	defer registryMutex.Unlock()
	componentRegistry[packagePattern] = componentName
}

func init() {
	RegisterComponent("internal/stations", "stations")
	RegisterComponent("internal/geo", "geo")
	RegisterComponent("internal/httpclient", "httpclient")
	RegisterComponent("internal/conf", "configuration")
	RegisterComponent("internal/api", "api")
	RegisterComponent("internal/export", "export")
}

// detectComponent walks the call stack to find the first recognizable component
func detectComponent() string {
	pcs := make([]uintptr, 16)
	n := runtime.Callers(2, pcs)
	if n == len(pcs) {
		pcs = make([]uintptr, 32)
		n = runtime.Callers(2, pcs)
	}

	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.Function, modulePath) {
			if component := lookupComponent(frame.Function); component != ComponentUnknown {
				return component
			}
		}
		if !more {
			break
		}
	}

	return ComponentUnknown
}

// lookupComponent searches the registry for a matching component
func lookupComponent(funcName string) string {
	registryMutex.RLock()
	defer registryMutex.RUnlock()

	for pattern, component := range componentRegistry {
		if strings.Contains(funcName, pattern) {
			return component
		}
	}

	return ComponentUnknown
}

// detectCategory derives a category from the wrapped error when none was given
func detectCategory(err error) ErrorCategory {
	var catErr CategorizedError
	if stderrors.As(err, &catErr) {
		return catErr.ErrorCategory()
	}

	var enhErr *EnhancedError
	if stderrors.As(err, &enhErr) && enhErr.Category != "" {
		return enhErr.Category
	}

	if err == nil {
		return CategoryGeneric
	}

	errorMsg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errorMsg, "connection"), strings.Contains(errorMsg, "timeout"):
		return CategoryNetwork
	case strings.Contains(errorMsg, "parse"), strings.Contains(errorMsg, "wrong number of fields"):
		return CategoryFileParsing
	case strings.Contains(errorMsg, "file"), strings.Contains(errorMsg, "open"):
		return CategoryFileIO
	case strings.Contains(errorMsg, "invalid"):
		return CategoryValidation
	}

	return CategoryGeneric
}

// categorizeFilePath anonymizes file paths while preserving useful structure info
func categorizeFilePath(path string) string {
	if strings.HasPrefix(path, "/") || strings.Contains(path, ":\\") {
		return "absolute-path"
	}
	return "relative-path"
}

// getFileExtension extracts file extension for categorization
func getFileExtension(path string) string {
	if lastDot := strings.LastIndex(path, "."); lastDot > 0 && lastDot < len(path)-1 {
		return strings.ToLower(path[lastDot+1:])
	}
	return "none"
}

// categorizeURL anonymizes URLs while preserving protocol
func categorizeURL(url string) string {
	url = strings.ToLower(url)
	switch {
	case strings.HasPrefix(url, "http://"):
		return "http-endpoint"
	case strings.HasPrefix(url, "https://"):
		return "https-endpoint"
	case strings.HasPrefix(url, "file://"):
		return "local-file"
	default:
		return "other-protocol"
	}
}

// Convenience functions for common error patterns

// Wrap wraps an existing error with enhanced context
func Wrap(err error) *ErrorBuilder {
	return New(err)
}

// FileError creates a file I/O error with appropriate context
func FileError(err error, filePath string) *EnhancedError {
	return New(err).
		Category(CategoryFileIO).
		FileContext(filePath).
		Build()
}

// NetworkError creates a network error with appropriate context
func NetworkError(err error, url string, timeout time.Duration) *EnhancedError {
	return New(err).
		Category(CategoryNetwork).
		NetworkContext(url, timeout).
		Build()
}

// ValidationError creates a validation error
func ValidationError(message string) *EnhancedError {
	return New(NewStd(message)).
		Category(CategoryValidation).
		Build()
}

// Standard library passthrough functions so this package can replace "errors"

// NewStd creates a new standard error
func NewStd(text string) error {
	return stderrors.New(text)
}

// Is reports whether any error in err's tree matches target
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's tree that matches target
func As(err error, target any) bool {
	return stderrors.As(err, target)
}

// Unwrap returns the result of calling the Unwrap method on err
func Unwrap(err error) error {
	return stderrors.Unwrap(err)
}

// Join returns an error that wraps the given errors
func Join(errs ...error) error {
	return stderrors.Join(errs...)
}

// IsCategory checks if an error is an EnhancedError with the specified category.
func IsCategory(err error, category ErrorCategory) bool {
	var enhancedErr *EnhancedError
	return As(err, &enhancedErr) && enhancedErr.Category == category
}

// IsNotFound checks if an error is an EnhancedError with CategoryNotFound.
func IsNotFound(err error) bool {
	return IsCategory(err, CategoryNotFound)
}
