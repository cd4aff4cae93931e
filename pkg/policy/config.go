package policy

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/snagtrack/snag/pkg/auth"
)

// Policy bundles the workflow and matrix tables for injection
type Policy struct {
	Workflow *Workflow
	Matrix   *Matrix
}

// Default returns the canonical policy tables
func Default() *Policy {
	return &Policy{
		Workflow: DefaultWorkflow(),
		Matrix:   DefaultMatrix(),
	}
}

// fileSpec is the YAML shape of a policy override file. Sections left out
// keep their defaults.
type fileSpec struct {
	Workflow struct {
		Transitions map[string][]string `yaml:"transitions"`
		StatusRoles map[string][]string `yaml:"status_roles"`
	} `yaml:"workflow"`
	Moderators   []string            `yaml:"moderators"`
	UserManagers []string            `yaml:"user_managers"`
	Assignable   map[string][]string `yaml:"assignable_roles"`
}

// Load reads a policy override from r, starting from the defaults
func Load(r io.Reader) (*Policy, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy: %w", err)
	}

	var spec fileSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("failed to parse policy: %w", err)
	}

	p := Default()

	if len(spec.Workflow.Transitions) > 0 {
		transitions := make(map[Status][]Status, len(spec.Workflow.Transitions))
		for from, targets := range spec.Workflow.Transitions {
			if !ValidStatus(from) {
				return nil, fmt.Errorf("unknown status %q in transitions", from)
			}
			adjacent := make([]Status, 0, len(targets))
			for _, to := range targets {
				if !ValidStatus(to) {
					return nil, fmt.Errorf("unknown status %q in transitions for %q", to, from)
				}
				adjacent = append(adjacent, Status(to))
			}
			transitions[Status(from)] = adjacent
		}
		p.Workflow.Transitions = transitions
	}

	if len(spec.Workflow.StatusRoles) > 0 {
		statusRoles := make(map[Status][]auth.Role, len(spec.Workflow.StatusRoles))
		for status, roles := range spec.Workflow.StatusRoles {
			if !ValidStatus(status) {
				return nil, fmt.Errorf("unknown status %q in status_roles", status)
			}
			parsed, err := parseRoles(roles)
			if err != nil {
				return nil, err
			}
			statusRoles[Status(status)] = parsed
		}
		p.Workflow.StatusRoles = statusRoles
	}

	if len(spec.Moderators) > 0 {
		parsed, err := parseRoles(spec.Moderators)
		if err != nil {
			return nil, err
		}
		p.Matrix.Moderators = parsed
	}

	if len(spec.UserManagers) > 0 {
		parsed, err := parseRoles(spec.UserManagers)
		if err != nil {
			return nil, err
		}
		p.Matrix.UserManagers = parsed
	}

	if len(spec.Assignable) > 0 {
		assignable := make(map[auth.Role][]auth.Role, len(spec.Assignable))
		for granter, grantable := range spec.Assignable {
			if !auth.ValidRole(granter) {
				return nil, fmt.Errorf("unknown role %q in assignable_roles", granter)
			}
			parsed, err := parseRoles(grantable)
			if err != nil {
				return nil, err
			}
			assignable[auth.Role(granter)] = parsed
		}
		p.Matrix.Assignable = assignable
	}

	return p, nil
}

// LoadFile reads a policy override from a YAML file
func LoadFile(path string) (*Policy, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open policy file: %w", err)
	}
	defer f.Close()
	return Load(f)
}

func parseRoles(names []string) ([]auth.Role, error) {
	roles := make([]auth.Role, 0, len(names))
	for _, name := range names {
		if !auth.ValidRole(name) {
			return nil, fmt.Errorf("unknown role %q", name)
		}
		roles = append(roles, auth.Role(name))
	}
	return roles, nil
}
