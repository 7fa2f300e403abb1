// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package deps

import (
	"sort"
	"strconv"
	"strings"
)

// Poetry 2 records `fastapi@^0.110` as "fastapi (>=0.110,<0.111)" under
// [project].dependencies, so constraints are compared after expanding both
// sides into sorted PEP 440 clauses with trailing zero components dropped.

var comparisonOps = []string{"===", "==", "!=", "<=", ">=", "<", ">"}

func sameConstraint(a, b string) bool {
	return normalizeConstraint(a) == normalizeConstraint(b)
}

func normalizeConstraint(c string) string {
	c = strings.ReplaceAll(c, " ", "")
	if c == "" || c == "*" {
		return ""
	}
	var clauses []string
	for _, part := range strings.Split(c, ",") {
		if part != "" {
			clauses = append(clauses, expandClause(part)...)
		}
	}
	sort.Strings(clauses)
	return strings.Join(clauses, ",")
}

func expandClause(s string) []string {
	switch {
	case strings.HasPrefix(s, "^"):
		return bounded(s, s[1:], caretBump)
	case strings.HasPrefix(s, "~="):
		return bounded(s, s[2:], compatibleBump)
	case strings.HasPrefix(s, "~"):
		return bounded(s, s[1:], tildeBump)
	case strings.HasSuffix(s, ".*") && (!hasOperator(s) || strings.HasPrefix(s, "==")):
		v := strings.TrimSuffix(strings.TrimPrefix(s, "=="), ".*")
		return bounded(s, v, func(parts []int) int { return len(parts) - 1 })
	}
	for _, op := range comparisonOps {
		if strings.HasPrefix(s, op) {
			return []string{op + trimZeros(s[len(op):])}
		}
	}
	// A bare version pins exactly.
	return []string{"==" + trimZeros(s)}
}

// bounded turns a range operator into a lower and upper clause. bump picks
// the component that is incremented for the upper bound. Versions that are
// not purely numeric are left as written.
func bounded(orig, version string, bump func(parts []int) int) []string {
	parts, ok := numericParts(version)
	if !ok {
		return []string{orig}
	}
	i := bump(parts)
	if i < 0 {
		return []string{orig}
	}
	upper := append([]int(nil), parts[:i+1]...)
	upper[i]++
	return []string{">=" + trimZeros(version), "<" + trimZeros(joinParts(upper))}
}

// caretBump allows changes that keep the first non-zero component.
func caretBump(parts []int) int {
	for i, p := range parts {
		if p != 0 {
			return i
		}
	}
	return len(parts) - 1
}

// tildeBump allows patch changes, or minor ones when only a major is given.
func tildeBump(parts []int) int {
	if len(parts) == 1 {
		return 0
	}
	return 1
}

// compatibleBump is PEP 440 "~=": the last given component may grow.
func compatibleBump(parts []int) int {
	if len(parts) < 2 {
		return -1
	}
	return len(parts) - 2
}

func hasOperator(s string) bool {
	for _, op := range comparisonOps {
		if strings.HasPrefix(s, op) {
			return true
		}
	}
	return false
}

func numericParts(version string) ([]int, bool) {
	fields := strings.Split(version, ".")
	parts := make([]int, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil || n < 0 {
			return nil, false
		}
		parts = append(parts, n)
	}
	return parts, true
}

func joinParts(parts []int) string {
	s := make([]string, len(parts))
	for i, p := range parts {
		s[i] = strconv.Itoa(p)
	}
	return strings.Join(s, ".")
}

func trimZeros(version string) string {
	fields := strings.Split(version, ".")
	for len(fields) > 1 && fields[len(fields)-1] == "0" {
		fields = fields[:len(fields)-1]
	}
	return strings.Join(fields, ".")
}
