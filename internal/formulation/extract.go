package formulation

import (
	"regexp"
	"strings"
)

var (
	openFence  = regexp.MustCompile("^```[a-zA-Z]*\\s*")
	closeFence = regexp.MustCompile("\\s*```$")
)

// ExtractProgram extracts the logic-program text from an LLM response.
// Models are instructed to answer with bare program text, but in practice
// wrap it in markdown fences or prefix it with prose; this recovers the
// program from the common shapes. Returns "" when nothing program-like is
// found.
func ExtractProgram(response string) string {
	response = strings.TrimSpace(response)
	if response == "" {
		return ""
	}

	// Whole response fenced: strip the fences.
	if strings.HasPrefix(response, "```") && strings.HasSuffix(response, "```") {
		inner := openFence.ReplaceAllString(response, "")
		inner = closeFence.ReplaceAllString(inner, "")
		return strings.TrimSpace(inner)
	}

	// Embedded fenced block: take the first one with program content.
	if block := firstFencedBlock(response); block != "" {
		return block
	}

	// Bare text: accept it if it contains at least one clause terminator.
	if strings.Contains(response, ".") && strings.Contains(response, "(") {
		return response
	}

	return ""
}

func firstFencedBlock(response string) string {
	idx := strings.Index(response, "```")
	if idx < 0 {
		return ""
	}
	start := idx + 3
	// Skip the language identifier line if present.
	if newline := strings.Index(response[start:], "\n"); newline >= 0 {
		first := strings.TrimSpace(response[start : start+newline])
		if !strings.Contains(first, "(") {
			start += newline + 1
		}
	}
	end := strings.Index(response[start:], "```")
	if end <= 0 {
		return ""
	}
	return strings.TrimSpace(response[start : start+end])
}
