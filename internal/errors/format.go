package errors

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
)

// FormatForCLI renders err for the terminal:
//
//	Error: store is in use by another process
//	  lock: /home/x/.orderdesk/orderdesk.db.lock
//	  Hint: Close the other orderdesk process and retry
//	  Code: ERR_205_STORE_LOCKED
//
// Errors without a DeskError in their chain are reported as internal.
func FormatForCLI(err error) string {
	if err == nil {
		return ""
	}
	de, ok := As(err)
	if !ok {
		de = Wrap(ErrCodeInternal, err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Error: %s\n", de.Message)
	for _, k := range slices.Sorted(maps.Keys(de.Details)) {
		fmt.Fprintf(&sb, "  %s: %s\n", k, de.Details[k])
	}
	if de.Suggestion != "" {
		fmt.Fprintf(&sb, "  Hint: %s\n", de.Suggestion)
	}
	fmt.Fprintf(&sb, "  Code: %s\n", de.Code)
	return sb.String()
}

type jsonError struct {
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Category   Category          `json:"category"`
	Severity   Severity          `json:"severity"`
	Retryable  bool              `json:"retryable"`
	Details    map[string]string `json:"details,omitempty"`
	Suggestion string            `json:"suggestion,omitempty"`
	Cause      string            `json:"cause,omitempty"`
}

// FormatJSON renders err as a JSON object for --format json consumers.
func FormatJSON(err error) ([]byte, error) {
	if err == nil {
		return []byte("null"), nil
	}
	de, ok := As(err)
	if !ok {
		de = Wrap(ErrCodeInternal, err)
	}
	je := jsonError{
		Code:       de.Code,
		Message:    de.Message,
		Category:   de.Category,
		Severity:   de.Severity,
		Retryable:  de.Retryable,
		Details:    de.Details,
		Suggestion: de.Suggestion,
	}
	if de.Cause != nil {
		je.Cause = de.Cause.Error()
	}
	return json.Marshal(je)
}

// LogAttrs returns err as slog attributes. Details become a "details"
// group.
func LogAttrs(err error) []slog.Attr {
	if err == nil {
		return nil
	}
	de, ok := As(err)
	if !ok {
		return []slog.Attr{slog.String("error", err.Error())}
	}

	attrs := []slog.Attr{
		slog.String("error_code", de.Code),
		slog.String("error", de.Message),
		slog.String("severity", string(de.Severity)),
		slog.Bool("retryable", de.Retryable),
	}
	if de.Cause != nil {
		attrs = append(attrs, slog.String("cause", de.Cause.Error()))
	}
	if len(de.Details) > 0 {
		details := make([]any, 0, len(de.Details))
		for _, k := range slices.Sorted(maps.Keys(de.Details)) {
			details = append(details, slog.String(k, de.Details[k]))
		}
		attrs = append(attrs, slog.Group("details", details...))
	}
	return attrs
}
