package matching

import "strings"

// IsGenderSwap reports whether a and b differ only by a final 'a' versus 'o',
// as in "maria" and "mario". It is a narrow suffix heuristic, not a gender
// classifier.
func IsGenderSwap(a, b string) bool {
	a, b = strings.ToLower(a), strings.ToLower(b)

	swapped := (strings.HasSuffix(a, "a") && strings.HasSuffix(b, "o")) ||
		(strings.HasSuffix(a, "o") && strings.HasSuffix(b, "a"))
	if !swapped {
		return false
	}
	return a[:len(a)-1] == b[:len(b)-1]
}

// isElElleSwap reports whether one token ends in "el" and the other in "elle",
// as in "michael" and "michelle".
func isElElleSwap(a, b string) bool {
	return (strings.HasSuffix(a, "el") && strings.HasSuffix(b, "elle")) ||
		(strings.HasSuffix(a, "elle") && strings.HasSuffix(b, "el"))
}
