package verify

import (
	"regexp"
	"strconv"
)

// Parser error text carries positions in a few different shapes. These
// patterns are tried in order; the first match wins.
var positionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`line (\d+)[,:]?\s*(?:col(?:umn)? (\d+))?`),
	regexp.MustCompile(`(\d+):(\d+):`),
	regexp.MustCompile(`at line (\d+)`),
}

// extractLineCol pulls a line and column out of an oracle error message.
// Returns zeros when the message carries no position.
func extractLineCol(detail string) (line, col int) {
	for _, p := range positionPatterns {
		m := p.FindStringSubmatch(detail)
		if m == nil {
			continue
		}
		line, _ = strconv.Atoi(m[1])
		if len(m) > 2 && m[2] != "" {
			col, _ = strconv.Atoi(m[2])
		}
		return line, col
	}
	return 0, 0
}
