// Package screening runs labelled name pairs through the verification
// service and reports accuracy, by expected class and by decision source.
package screening

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Case is one labelled name pair.
type Case struct {
	Target    string `yaml:"target"`
	Candidate string `yaml:"candidate"`
	Expected  bool   `yaml:"expected"`
	Reason    string `yaml:"reason"`
}

type caseFile struct {
	Cases []rawCase `yaml:"cases"`
}

// rawCase keeps expected as a pointer so a missing label is an error rather
// than a silent false.
type rawCase struct {
	Target    string `yaml:"target"`
	Candidate string `yaml:"candidate"`
	Expected  *bool  `yaml:"expected"`
	Reason    string `yaml:"reason"`
}

// LoadCases reads a YAML document with a top-level "cases" list.
func LoadCases(r io.Reader) ([]Case, error) {
	var file caseFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("case file is empty")
		}
		return nil, fmt.Errorf("decode case file: %w", err)
	}
	if len(file.Cases) == 0 {
		return nil, errors.New("case file has no cases")
	}

	cases := make([]Case, 0, len(file.Cases))
	for i, rc := range file.Cases {
		if strings.TrimSpace(rc.Target) == "" {
			return nil, fmt.Errorf("case %d: target is required", i+1)
		}
		if rc.Expected == nil {
			return nil, fmt.Errorf("case %d: expected is required", i+1)
		}
		cases = append(cases, Case{
			Target:    rc.Target,
			Candidate: rc.Candidate,
			Expected:  *rc.Expected,
			Reason:    rc.Reason,
		})
	}
	return cases, nil
}
