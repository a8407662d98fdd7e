// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package logging

import (
	"log/slog"
	"regexp"
	"strings"
)

// RedactedValue replaces sensitive values in log output.
const RedactedValue = "***"

// FieldSeparator ends a field=value pair inside free-text log values.
const FieldSeparator = ";"

// DefaultPIIFields are the attribute keys treated as personal data.
var DefaultPIIFields = []string{"name", "email", "phone", "ssn", "password"}

// RedactAttr returns a slog ReplaceAttr function that masks the values of
// the given keys. Keys match case-insensitively at any group depth. String
// values of other keys, the message included, have embedded field=value
// pairs masked as FilterDatum does with FieldSeparator.
func RedactAttr(fields ...string) func(groups []string, a slog.Attr) slog.Attr {
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[strings.ToLower(f)] = struct{}{}
	}
	datum := compileDatum(fields, FieldSeparator, true)

	return func(_ []string, a slog.Attr) slog.Attr {
		if a.Value.Kind() == slog.KindGroup {
			return a
		}
		if _, ok := set[strings.ToLower(a.Key)]; ok {
			return slog.String(a.Key, RedactedValue)
		}
		if a.Value.Kind() == slog.KindString && strings.Contains(a.Value.String(), "=") {
			return slog.String(a.Key, datum.filter(RedactedValue, a.Value.String()))
		}
		return a
	}
}

// FilterDatum replaces the value of every field=value pair in message with
// redaction. A value ends at separator or at the end of the message. An
// empty separator leaves message unchanged.
//
//	FilterDatum([]string{"password"}, "xxx", "name=bob;password=hunter2;", ";")
//	// "name=bob;password=xxx;"
func FilterDatum(fields []string, redaction, message, separator string) string {
	if separator == "" {
		return message
	}
	return compileDatum(fields, separator, false).filter(redaction, message)
}

type datumPatterns []*regexp.Regexp

func compileDatum(fields []string, separator string, foldCase bool) datumPatterns {
	flags := "(?s)"
	if foldCase {
		flags = "(?is)"
	}
	sep := regexp.QuoteMeta(separator)
	patterns := make(datumPatterns, 0, len(fields))
	for _, f := range fields {
		if f == "" {
			continue
		}
		patterns = append(patterns, regexp.MustCompile(flags+"("+regexp.QuoteMeta(f)+")=.*?("+sep+"|$)"))
	}
	return patterns
}

func (p datumPatterns) filter(redaction, message string) string {
	repl := "${1}=" + strings.ReplaceAll(redaction, "$", "$$") + "${2}"
	for _, re := range p {
		message = re.ReplaceAllString(message, repl)
	}
	return message
}
