package verify

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body interface{}) error
	GetResponseField(field string) (interface{}, error)
}

const verifyPath = "/v1/names/verify"

// RegisterSteps registers name verification step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &verifySteps{tc: tc}

	ctx.Step(`^I verify "([^"]*)" against "([^"]*)"$`, steps.verifyPair)
	ctx.Step(`^the names should match with confidence (\d+)$`, steps.shouldMatchWithConfidence)
	ctx.Step(`^the names should not match with confidence (\d+)$`, steps.shouldNotMatchWithConfidence)
	ctx.Step(`^the decision should come from rule "([^"]*)"$`, steps.decisionFromRule)
	ctx.Step(`^the decision should come from the semantic verifier$`, steps.decisionFromVerifier)
}

type verifySteps struct {
	tc TestContext
}

func (s *verifySteps) verifyPair(ctx context.Context, target, candidate string) error {
	return s.tc.POST(verifyPath, map[string]string{
		"target_name":    target,
		"candidate_name": candidate,
	})
}

func (s *verifySteps) shouldMatchWithConfidence(ctx context.Context, confidence int) error {
	return s.expectDecision(true, confidence)
}

func (s *verifySteps) shouldNotMatchWithConfidence(ctx context.Context, confidence int) error {
	return s.expectDecision(false, confidence)
}

func (s *verifySteps) expectDecision(match bool, confidence int) error {
	m, err := s.tc.GetResponseField("match")
	if err != nil {
		return err
	}
	if got, ok := m.(bool); !ok || got != match {
		return fmt.Errorf("expected match=%v, got %v", match, m)
	}
	c, err := s.tc.GetResponseField("confidence")
	if err != nil {
		return err
	}
	// JSON numbers decode as float64.
	if got, ok := c.(float64); !ok || int(got) != confidence {
		return fmt.Errorf("expected confidence=%d, got %v", confidence, c)
	}
	return nil
}

func (s *verifySteps) decisionFromRule(ctx context.Context, rule string) error {
	if err := s.expectField("source", "hard_rule"); err != nil {
		return err
	}
	return s.expectField("rule", rule)
}

func (s *verifySteps) decisionFromVerifier(ctx context.Context) error {
	return s.expectField("source", "semantic_verifier")
}

func (s *verifySteps) expectField(field, want string) error {
	v, err := s.tc.GetResponseField(field)
	if err != nil {
		return err
	}
	if got, _ := v.(string); got != want {
		return fmt.Errorf("expected %s=%q, got %v", field, want, v)
	}
	return nil
}
