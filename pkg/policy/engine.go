// Package policy gates provisioning runs with OPA. Builtin rules catch
// obviously bad requests (service running as root, empty package set);
// operators can add their own Rego files alongside.
package policy

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/open-policy-agent/opa/rego"
	"github.com/rs/zerolog"
)

// Engine evaluates Rego policies against provisioning inputs.
type Engine struct {
	policies []Policy
	logger   zerolog.Logger
}

// NewEngine creates an engine preloaded with the builtin policies.
func NewEngine(logger zerolog.Logger) *Engine {
	return &Engine{
		policies: builtinPolicies(),
		logger:   logger.With().Str("component", "policy").Logger(),
	}
}

// LoadDir loads operator-supplied *.rego files from dir. A missing
// directory is not an error.
func (e *Engine) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read policy directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".rego") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return fmt.Errorf("failed to read policy %s: %w", entry.Name(), err)
		}
		e.policies = append(e.policies, Policy{
			Name:     strings.TrimSuffix(entry.Name(), ".rego"),
			Severity: SeverityError,
			Enabled:  true,
			Rego:     string(data),
		})
		e.logger.Debug().Str("policy", entry.Name()).Msg("Loaded operator policy")
	}
	return nil
}

// Policies returns the loaded policies.
func (e *Engine) Policies() []Policy {
	return e.policies
}

// Evaluate runs every enabled policy against the input. The run is allowed
// only if no error-severity violation is produced.
func (e *Engine) Evaluate(ctx context.Context, input *Input) (*Result, error) {
	// A nil slice marshals as JSON null, which count() cannot evaluate,
	// so the package-set rule would never fire. Normalize to an empty
	// list before handing the input to Rego.
	if input.Packages == nil {
		normalized := *input
		normalized.Packages = []string{}
		input = &normalized
	}

	var violations []Violation

	for i := range e.policies {
		p := &e.policies[i]
		if !p.Enabled {
			continue
		}

		found, err := e.evaluatePolicy(ctx, p, input)
		if err != nil {
			return nil, fmt.Errorf("policy %s evaluation failed: %w", p.Name, err)
		}
		violations = append(violations, found...)
	}

	allowed := true
	for i := range violations {
		if violations[i].Severity == string(SeverityError) {
			allowed = false
			break
		}
	}

	return &Result{Allowed: allowed, Violations: violations}, nil
}

func (e *Engine) evaluatePolicy(ctx context.Context, p *Policy, input *Input) ([]Violation, error) {
	query := fmt.Sprintf("data.%s.deny", extractPackageName(p.Rego))

	r := rego.New(
		rego.Module(p.Name, p.Rego),
		rego.Query(query),
		rego.Input(input),
	)

	results, err := r.Eval(ctx)
	if err != nil {
		return nil, err
	}

	var violations []Violation
	for _, result := range results {
		for _, expr := range result.Expressions {
			denySet, ok := expr.Value.([]interface{})
			if !ok {
				continue
			}
			for _, d := range denySet {
				violations = append(violations, makeViolation(p, d))
			}
		}
	}
	return violations, nil
}

func makeViolation(p *Policy, result interface{}) Violation {
	v := Violation{
		Policy:   p.Name,
		Severity: string(p.Severity),
	}
	switch value := result.(type) {
	case string:
		v.Message = value
	case map[string]interface{}:
		if msg, ok := value["message"].(string); ok {
			v.Message = msg
		}
		if sev, ok := value["severity"].(string); ok {
			v.Severity = sev
		}
	}
	return v
}

// extractPackageName extracts the package path from Rego source.
func extractPackageName(src string) string {
	for _, line := range strings.Split(src, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "package ") {
			parts := strings.Fields(trimmed)
			if len(parts) >= 2 {
				return parts[1]
			}
		}
	}
	return "bringup.policies"
}
