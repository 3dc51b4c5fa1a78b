package verifier

import (
	"fmt"
	"strings"
)

const minimalTemplate = `Verify whether these two names are considered a match.

target_name: %q
search_name: %q

Respond ONLY in valid JSON using the following schema:
{
  "match": true or false,
  "confidence": 0-100,
  "explanation": "short explanation"
}`

const elaboratedHeader = `You are a financial identity verification expert.
Analyze if these two names refer to the same person.

Target Name: %q
Candidate Name: %q
`

const phoneticRiskContext = `
[IMPORTANT CONTEXT]
These names have been detected as phonetically similar (Double Metaphone match).
However, there may be subtle differences that affect identity:
- Check for suffix variations (e.g., 'Rashid' vs 'Rashidi' - different surname roots)
- Check for gender differences (e.g., 'Maria' vs 'Mario')
- Check for cultural/linguistic variations that change meaning
Focus specifically on these potential differences rather than phonetic similarity.
`

const verificationRules = `
[Strict Verification Rules]
1. Nicknames: Accept 'Bob' for 'Robert', but REJECT 'Liam' for 'William' because Liam is an independent name.
2. Surname Roots: REJECT if the surname root changes, even by one letter (e.g., 'Rashid' vs 'Rashidi').
3. Order: If the name order is swapped, it is a NO MATCH.
4. Phonetic variants OK: Steven=Stephen, Johnson=Jonson, -ov=-off
`

const elaboratedFooter = `
Respond ONLY in valid JSON:
{
  "match": boolean,
  "confidence": 0-100,
  "explanation": "short reason"
}`

// MinimalPrompt renders the baseline prompt with no rules context.
func MinimalPrompt(target, candidate string) string {
	return fmt.Sprintf(minimalTemplate, target, candidate)
}

// ElaboratedPrompt renders the expert prompt with the verification rules. When
// phoneticHint is set it also explains that the names sound alike but tripped
// a risk heuristic.
func ElaboratedPrompt(target, candidate string, phoneticHint bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, elaboratedHeader, target, candidate)
	if phoneticHint {
		b.WriteString(phoneticRiskContext)
	}
	b.WriteString(verificationRules)
	b.WriteString(elaboratedFooter)
	return b.String()
}
