package matching

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"nameguard/internal/names/phonetic"
)

// pinnedCodes fixes phonetic codes so rule tests do not depend on the
// encoder library's exact output.
var pinnedCodes = phonetic.Table{
	"steven":    {"STFN", ""},
	"stephen":   {"STFN", ""},
	"smith":     {"SM0", "XMT"},
	"smyth":     {"SM0", "XMT"},
	"jon":       {"JN", "AN"},
	"john":      {"JN", "AN"},
	"johan":     {"JN", "AN"},
	"rashid":    {"RXT", ""},
	"rashidi":   {"RXT", ""},
	"michael":   {"MXL", "MKL"},
	"michelle":  {"MXL", ""},
	"maria":     {"MR", ""},
	"mario":     {"MR", ""},
	"gonzalez":  {"KNSLS", ""},
	"gonzales":  {"KNSLS", ""},
	"catherine": {"K0RN", "KTRN"},
	"katherine": {"K0RN", "KTRN"},
	"ali":       {"AL", ""},
	"alin":      {"ALN", ""},
	"hassan":    {"HSN", ""},
	"robert":    {"RPRT", ""},
	"william":   {"ALM", "FLM"},
}

type CascadeSuite struct {
	suite.Suite
	cascade *Cascade
}

func TestCascadeSuite(t *testing.T) {
	suite.Run(t, new(CascadeSuite))
}

func (s *CascadeSuite) SetupTest() {
	s.cascade = NewCascade(DefaultThreshold, pinnedCodes)
}

// =============================================================================
// Rule order
// =============================================================================

func (s *CascadeSuite) TestGenderSwapRule() {
	s.Run("aligned a/o swap is a non-match", func() {
		d, rule := s.cascade.Evaluate("Maria Gonzalez", "Mario Gonzalez")
		s.Equal(RuleGenderSwap, rule)
		s.Equal(ConfidenceGenderSwap, d.Confidence)
		s.False(d.Match)
		s.Equal(ExplainGenderSwap, d.Explanation)
	})

	s.Run("swap in any position fires", func() {
		_, rule := s.cascade.Evaluate("Ana Paula Costa", "Ana Paulo Costa")
		s.Equal(RuleGenderSwap, rule)
	})

	s.Run("token count mismatch skips the rule", func() {
		_, rule := s.cascade.Evaluate("Maria Gonzalez", "Mario Gonzalez Ruiz")
		s.NotEqual(RuleGenderSwap, rule)
	})
}

func (s *CascadeSuite) TestExactMatchRule() {
	cases := []struct {
		target, candidate string
	}{
		{"John O'Brien", "john obrien"},
		{"José García", "Jose Garcia"},
		{"Anne-Marie Dupont", "annemarie dupont"},
		{"  Ali   Hassan ", "ali hassan"},
		{"J. Smith", "j smith"},
	}
	for _, tc := range cases {
		s.Run(tc.target+" vs "+tc.candidate, func() {
			d, rule := s.cascade.Evaluate(tc.target, tc.candidate)
			s.Equal(RuleExactMatch, rule)
			s.Equal(100, d.Confidence)
			s.True(d.Match)
			s.Equal(ExplainExactMatch, d.Explanation)
		})
	}
}

func (s *CascadeSuite) TestTokenOrderRule() {
	s.Run("swapped tokens are a non-match", func() {
		d, rule := s.cascade.Evaluate("Ali Hassan", "Hassan Ali")
		s.Equal(RuleTokenOrder, rule)
		s.Equal(ConfidenceTokenOrder, d.Confidence)
		s.False(d.Match)
		s.Equal(ExplainTokenOrder, d.Explanation)
	})

	s.Run("token sets compare without multiplicity", func() {
		_, rule := s.cascade.Evaluate("Ali Ali Hassan", "Hassan Ali")
		s.Equal(RuleTokenOrder, rule)
	})

	s.Run("different token sets do not fire", func() {
		_, rule := s.cascade.Evaluate("Ali Hassan", "Hassan Alin")
		s.NotEqual(RuleTokenOrder, rule)
	})
}

func (s *CascadeSuite) TestSafePhoneticRule() {
	d, rule := s.cascade.Evaluate("Steven Smith", "Stephen Smyth")
	s.Equal(RuleSafePhonetic, rule)
	s.Equal(ConfidenceSafePhonetic, d.Confidence)
	s.True(d.Match)
	s.Equal(ExplainSafePhonetic, d.Explanation)
}

func (s *CascadeSuite) TestDefers() {
	cases := []struct {
		name              string
		target, candidate string
	}{
		{"short token pair", "Jon Smith", "John Smith"},
		{"short candidate token", "Johan Smith", "Jon Smith"},
		{"i-suffix divergence", "Rashid Hassan", "Rashidi Hassan"},
		{"el/elle endings", "Michael Smith", "Michelle Smith"},
		{"phonetically unrelated", "Robert Smith", "William Smith"},
		{"token count differs", "Steven Smith", "Steven"},
		{"unknown tokens", "Zed Quux", "Zeb Quux"},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			_, ok := s.cascade.Check(tc.target, tc.candidate)
			s.False(ok)
		})
	}
}

func (s *CascadeSuite) TestRiskShortCircuitsAcrossPairs() {
	// The first pair alone would be approved; the short second pair blocks it.
	_, ok := s.cascade.Check("Stephen Jon", "Steven John")
	s.False(ok)
}

func (s *CascadeSuite) TestGenderSwapBeatsExactMatch() {
	// Rule 1 runs before rule 2 even when both could apply.
	cascade := NewCascade(DefaultThreshold, pinnedCodes)
	_, rule := cascade.Evaluate("Maria", "Mario")
	s.Equal(RuleGenderSwap, rule)
}

func (s *CascadeSuite) TestEmptyNames() {
	d, rule := s.cascade.Evaluate("", "")
	s.Equal(RuleExactMatch, rule)
	s.True(d.Match)

	_, ok := s.cascade.Check("", "John Smith")
	s.False(ok)
}

// =============================================================================
// Phonetic risk assessment
// =============================================================================

func (s *CascadeSuite) TestAssessPhoneticRisk() {
	s.Run("count mismatch defers", func() {
		_, ok := s.cascade.AssessPhoneticRisk([]string{"steven"}, []string{"stephen", "smith"})
		s.False(ok)
	})

	s.Run("gender swap defers", func() {
		_, ok := s.cascade.AssessPhoneticRisk([]string{"maria"}, []string{"mario"})
		s.False(ok)
	})

	s.Run("identical short tokens carry no risk", func() {
		d, ok := s.cascade.AssessPhoneticRisk([]string{"ali", "steven"}, []string{"ali", "stephen"})
		s.True(ok)
		s.Equal(ConfidenceSafePhonetic, d.Confidence)
	})

	s.Run("approves when every differing pair is long and safe", func() {
		d, ok := s.cascade.AssessPhoneticRisk([]string{"catherine", "smith"}, []string{"katherine", "smyth"})
		s.True(ok)
		s.True(d.Match)
	})
}

func (s *CascadeSuite) TestPhoneticallyMatched() {
	s.True(s.cascade.PhoneticallyMatched("Rashid Hassan", "Rashidi Hassan"))
	s.True(s.cascade.PhoneticallyMatched("Jon Smith", "John Smith"))
	s.False(s.cascade.PhoneticallyMatched("Robert Smith", "William Smith"))
	s.False(s.cascade.PhoneticallyMatched("Jon Smith", "John"))
}

// =============================================================================
// Library-backed encoder
// =============================================================================

func TestCascade_DoubleMetaphone(t *testing.T) {
	cascade := NewCascade(DefaultThreshold, nil)

	d, ok := cascade.Check("Stephen Johnson", "Steven Johnson")
	require.True(t, ok)
	assert.Equal(t, ConfidenceSafePhonetic, d.Confidence)

	_, ok = cascade.Check("Ali Smith", "Alee Smith")
	assert.False(t, ok, "short tokens must not be auto-approved")
}

func TestCascade_ConcurrentUse(t *testing.T) {
	cascade := NewCascade(DefaultThreshold, nil)

	var wg sync.WaitGroup
	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				d, rule := cascade.Evaluate("José-García", "jose garcia")
				assert.Equal(t, RuleExactMatch, rule)
				assert.True(t, d.Match)
			}
		}()
	}
	wg.Wait()
}
