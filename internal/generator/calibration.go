package generator

import (
	"context"
	"fmt"
	"strings"

	"github.com/SRIRUPINPOTULA/Warehouse-Planning-using-LLM/internal/logging"
)

// calibrationPrompt is a small closed-form exercise used to confirm a
// backend can emit well-formed program text before a run spends real
// iterations on it. Reachability is used because the expected answer is
// short and unambiguous.
const calibrationPrompt = `Write a Mangle Datalog program for graph reachability.

Facts: edge(/a, /b). edge(/b, /c). edge(/c, /d).
Define reachable(X, Y) as the transitive closure of edge.
Also define unreachable_pair() deriving a fact if /a cannot reach /d.

STRICT OUTPUT RULES:
1. Respond with ONLY the logic program. No prose before or after.
2. Do not wrap the program in markdown code fences.
3. Facts and rules are terminated with '.', rules use ':-', comments start with '#'.`

// Calibrate sends the warm-up exercise and checks the response looks like
// program text. It does not verify the answer's correctness; a backend
// that cannot even produce clause-shaped output fails here instead of
// wasting a refinement budget.
func (g *Gemini) Calibrate(ctx context.Context) error {
	logging.Generator("running calibration warm-up against %s", g.model)

	resp, err := g.Generate(ctx, nil, calibrationPrompt)
	if err != nil {
		return fmt.Errorf("calibration call failed: %w", err)
	}

	if !looksLikeProgram(resp) {
		return fmt.Errorf("calibration response does not look like a logic program: %.120s", resp)
	}

	logging.Generator("calibration passed: %d bytes of program-shaped output", len(resp))
	return nil
}

func looksLikeProgram(resp string) bool {
	resp = strings.TrimSpace(resp)
	return resp != "" &&
		strings.Contains(resp, "(") &&
		strings.Contains(resp, ".") &&
		strings.Contains(resp, ":-")
}
