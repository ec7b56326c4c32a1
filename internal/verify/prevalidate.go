package verify

import (
	"fmt"
	"regexp"
	"strings"
)

// Pre-validation catches the defects generated programs most often have
// before the oracle is invoked. Each check pinpoints a line, which the
// parser's own errors frequently do not.

var (
	uppercaseHead = regexp.MustCompile(`^[A-Z][A-Za-z0-9_]*\s*\(`)
	prologComment = regexp.MustCompile(`^%`)
	emptyBody     = regexp.MustCompile(`:-\s*\.`)
)

// prevalidate runs structural line checks over a program. An empty result
// means the program may still fail to parse, but none of the known cheap
// defects are present.
func prevalidate(source string) []Violation {
	trimmed := strings.TrimSpace(source)
	if trimmed == "" {
		return []Violation{{
			Kind:    KindSyntax,
			Message: "empty program: no logic-program text was produced",
		}}
	}

	var issues []Violation
	lines := strings.Split(source, "\n")

	lastCodeLine := 0
	atStatementStart := true
	for i, raw := range lines {
		lineNo := i + 1
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if prologComment.MatchString(line) {
			issues = append(issues, Violation{
				Kind:    KindSyntax,
				Line:    lineNo,
				Message: "comments use '#', not '%'",
			})
			continue
		}

		lastCodeLine = lineNo

		// The uppercase check applies only where a clause head can appear;
		// body continuation lines may start with anything.
		if atStatementStart && uppercaseHead.MatchString(line) {
			issues = append(issues, Violation{
				Kind:    KindSyntax,
				Line:    lineNo,
				Message: "predicate names must start lowercase; uppercase identifiers are variables",
			})
		}

		if emptyBody.MatchString(line) {
			issues = append(issues, Violation{
				Kind:    KindSyntax,
				Line:    lineNo,
				Message: "rule has ':-' but no body",
			})
		}

		atStatementStart = strings.HasSuffix(line, ".")
	}

	if lastCodeLine > 0 {
		if last := lastNonComment(lines); last != "" && !strings.HasSuffix(last, ".") {
			issues = append(issues, Violation{
				Kind:    KindSyntax,
				Line:    lastCodeLine,
				Message: "final statement is not terminated with '.'",
			})
		}
	}

	// Parenthesis balance over whole statements, not single lines, since
	// rules may span lines.
	issues = append(issues, checkParens(source)...)

	return issues
}

func lastNonComment(lines []string) string {
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "%") {
			continue
		}
		return line
	}
	return ""
}

// checkParens verifies every statement balances its parentheses and
// brackets. Comments and string bodies are skipped, a dot between digits is
// a decimal point rather than a terminator, and at most one finding is
// reported per statement.
func checkParens(source string) []Violation {
	var issues []Violation
	runes := []rune(source)
	depth := 0
	line := 1
	stmtStartLine := 0
	stmtFlagged := false
	inString := false
	lineStart := true

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r == '\n' {
			line++
			lineStart = true
			continue
		}
		if inString {
			if r == '"' {
				inString = false
			}
			continue
		}
		if r == ' ' || r == '\t' {
			continue
		}
		if r == '#' || (lineStart && r == '%') {
			for i+1 < len(runes) && runes[i+1] != '\n' {
				i++
			}
			continue
		}
		lineStart = false
		if r == '"' {
			inString = true
			continue
		}
		if stmtStartLine == 0 {
			stmtStartLine = line
		}
		switch r {
		case '(', '[':
			depth++
		case ')', ']':
			depth--
			if depth < 0 {
				if !stmtFlagged {
					issues = append(issues, Violation{
						Kind:    KindSyntax,
						Line:    line,
						Message: "unmatched closing parenthesis",
					})
					stmtFlagged = true
				}
				depth = 0
			}
		case '.':
			if i > 0 && i+1 < len(runes) && isDigit(runes[i-1]) && isDigit(runes[i+1]) {
				continue
			}
			if depth > 0 && !stmtFlagged {
				issues = append(issues, Violation{
					Kind:    KindSyntax,
					Line:    stmtStartLine,
					Message: fmt.Sprintf("statement has %d unclosed parenthesis(es)", depth),
				})
			}
			depth = 0
			stmtStartLine = 0
			stmtFlagged = false
		}
	}
	if depth > 0 && !stmtFlagged {
		issues = append(issues, Violation{
			Kind:    KindSyntax,
			Line:    stmtStartLine,
			Message: fmt.Sprintf("statement has %d unclosed parenthesis(es)", depth),
		})
	}
	return issues
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }
