package browserloop

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
)

// actionSignature computes a deterministic signature for a dispatched action
// (tool name + hash of its parameters).
func actionSignature(a Action) string {
	raw, _ := json.Marshal(a.Parameters)
	h := sha256.Sum256(raw)
	return fmt.Sprintf("%s:%x", a.Tool, h[:8])
}

// DetectRepetition reports whether the last windowSize dispatched actions
// follow a repeating pattern of length 1 or 2. A model stuck re-clicking the
// same selector or re-fetching the same page produces exactly this shape.
func DetectRepetition(dispatched []Action, windowSize int) bool {
	if windowSize < 2 || len(dispatched) < windowSize {
		return false
	}
	recent := dispatched[len(dispatched)-windowSize:]
	sigs := make([]string, len(recent))
	for i, a := range recent {
		sigs[i] = actionSignature(a)
	}

	for patternLen := 1; patternLen <= 2; patternLen++ {
		if patternLen >= windowSize || windowSize%patternLen != 0 {
			continue
		}
		pattern := sigs[:patternLen]
		allMatch := true
		for i := patternLen; i < windowSize && allMatch; i += patternLen {
			for j := 0; j < patternLen; j++ {
				if sigs[i+j] != pattern[j] {
					allMatch = false
					break
				}
			}
		}
		if allMatch {
			return true
		}
	}
	return false
}
