// Package filter parses the small, fixed filter-expression grammar
// shared by point search and scroll/query into a backend-neutral AST.
// Unrecognized input is never an error: it yields an absent filter and
// a logged warning.
package filter

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/helixml/kodit/internal/domain"
)

var (
	// fieldPattern matches the grammar's field identifier.
	fieldPattern = `[A-Za-z_][A-Za-z0-9_]*`

	inPattern  = regexp.MustCompile(`(?i)^\s*(` + fieldPattern + `)\s+in\s+\[(.*)\]\s*$`)
	eqPattern  = regexp.MustCompile(`(?i)^\s*(` + fieldPattern + `)\s*==\s*(.+?)\s*$`)
	neqPattern = regexp.MustCompile(`(?i)^\s*(` + fieldPattern + `)\s*!=\s*(.+?)\s*$`)
)

// Parse parses expr into a domain.Filter. A nil filter means "no
// filter": Parse never returns an error, matching spec's ParseWarning
// error kind, which is logged, never raised. A nil logger defaults to
// slog.Default().
func Parse(expr string, logger *slog.Logger) domain.Filter {
	if logger == nil {
		logger = slog.Default()
	}

	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil
	}

	if m := inPattern.FindStringSubmatch(expr); m != nil {
		field := m[1]
		values := splitValues(m[2])
		if len(values) == 0 {
			logger.Warn("filter expression 'in' list is empty, ignoring filter", "expr", expr)
			return nil
		}
		predicates := make([]domain.EqualsFilter, 0, len(values))
		for _, v := range values {
			predicates = append(predicates, domain.EqualsFilter{Field: field, Value: unquote(v)})
		}
		return domain.AnyFilter{Predicates: predicates}
	}

	if m := neqPattern.FindStringSubmatch(expr); m != nil {
		return domain.MustNotFilter{Predicate: domain.EqualsFilter{Field: m[1], Value: unquote(m[2])}}
	}

	if m := eqPattern.FindStringSubmatch(expr); m != nil {
		return domain.MustFilter{Predicate: domain.EqualsFilter{Field: m[1], Value: unquote(m[2])}}
	}

	logger.Warn("unrecognized filter expression, filter omitted", "expr", expr)
	return nil
}

// splitValues splits a comma-separated value list, tolerating
// whitespace around each entry.
func splitValues(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// unquote strips a single matching pair of single or double quotes.
func unquote(raw string) string {
	raw = strings.TrimSpace(raw)
	if len(raw) >= 2 {
		first, last := raw[0], raw[len(raw)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
			return raw[1 : len(raw)-1]
		}
	}
	return raw
}
