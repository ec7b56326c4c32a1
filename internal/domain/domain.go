// Package domain holds the static description of a warehouse planning
// problem: the objects a formulation must model and the hard constraints it
// must satisfy. A Domain is validated once at load and read-only afterwards,
// so it is safe to share across concurrent runs.
package domain

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ObjectKind tags a domain object with its role in the warehouse.
type ObjectKind string

const (
	KindRobot          ObjectKind = "robot"
	KindShelf          ObjectKind = "shelf"
	KindProduct        ObjectKind = "product"
	KindPickingStation ObjectKind = "pickingStation"
	KindNode           ObjectKind = "node"
	KindHighway        ObjectKind = "highway"
	KindOrder          ObjectKind = "order"
)

// ObjectRef names a single entity of the planning instance.
type ObjectRef struct {
	Name string     `yaml:"name"`
	Kind ObjectKind `yaml:"kind"`
}

// CheckMode describes how a constraint's diagnostic predicate is evaluated
// against the derived model.
type CheckMode string

const (
	// ModeForbid means the model must contain no instances of the predicate.
	ModeForbid CheckMode = "forbid"
	// ModeRequire means the model must contain at least one instance.
	ModeRequire CheckMode = "require"
	// ModeExactly means the model must contain exactly Count instances.
	ModeExactly CheckMode = "exactly"
)

// ConstraintSpec is one machine-checkable requirement on a formulation.
// The formulation must define Predicate; the verifier then counts its
// instances in the derived model and applies Mode.
type ConstraintSpec struct {
	ID        string    `yaml:"id"`
	Predicate string    `yaml:"predicate"`
	Mode      CheckMode `yaml:"mode"`
	Count     int       `yaml:"count,omitempty"`
	Objects   []string  `yaml:"objects,omitempty"`
	Rationale string    `yaml:"rationale"`
}

// Domain is the immutable problem description a run verifies against.
type Domain struct {
	name        string
	objects     []ObjectRef
	constraints []ConstraintSpec
}

// LoadError reports why a domain definition was rejected.
type LoadError struct {
	Problems []string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("domain load failed: %s", strings.Join(e.Problems, "; "))
}

// New validates and constructs a Domain. Constraint identifiers must be
// unique and every object a constraint references must exist.
func New(name string, objects []ObjectRef, constraints []ConstraintSpec) (*Domain, error) {
	var problems []string

	known := make(map[string]bool, len(objects))
	for _, obj := range objects {
		if obj.Name == "" {
			problems = append(problems, "object with empty name")
			continue
		}
		if known[obj.Name] {
			problems = append(problems, fmt.Sprintf("duplicate object %q", obj.Name))
		}
		known[obj.Name] = true
	}

	seen := make(map[string]bool, len(constraints))
	for _, c := range constraints {
		if c.ID == "" {
			problems = append(problems, "constraint with empty identifier")
			continue
		}
		if seen[c.ID] {
			problems = append(problems, fmt.Sprintf("duplicate constraint identifier %q", c.ID))
		}
		seen[c.ID] = true

		if c.Predicate == "" {
			problems = append(problems, fmt.Sprintf("constraint %q has no predicate", c.ID))
		}
		switch c.Mode {
		case ModeForbid, ModeRequire:
		case ModeExactly:
			if c.Count < 0 {
				problems = append(problems, fmt.Sprintf("constraint %q: negative count %d", c.ID, c.Count))
			}
		default:
			problems = append(problems, fmt.Sprintf("constraint %q: unknown mode %q", c.ID, c.Mode))
		}
		for _, ref := range c.Objects {
			if !known[ref] {
				problems = append(problems, fmt.Sprintf("constraint %q references unknown object %q", c.ID, ref))
			}
		}
	}

	if len(problems) > 0 {
		return nil, &LoadError{Problems: problems}
	}

	d := &Domain{
		name:        name,
		objects:     make([]ObjectRef, len(objects)),
		constraints: make([]ConstraintSpec, len(constraints)),
	}
	copy(d.objects, objects)
	copy(d.constraints, constraints)
	return d, nil
}

// Name returns the domain's display name.
func (d *Domain) Name() string { return d.name }

// Objects returns a copy of the object set.
func (d *Domain) Objects() []ObjectRef {
	out := make([]ObjectRef, len(d.objects))
	copy(out, d.objects)
	return out
}

// Constraints returns a copy of the ordered constraint sequence. Order is
// load order and determines violation reporting order.
func (d *Domain) Constraints() []ConstraintSpec {
	out := make([]ConstraintSpec, len(d.constraints))
	copy(out, d.constraints)
	return out
}

// fileSpec is the on-disk YAML shape of a domain definition.
type fileSpec struct {
	Name        string           `yaml:"name"`
	Objects     []ObjectRef      `yaml:"objects"`
	Constraints []ConstraintSpec `yaml:"constraints"`
}

// LoadFile reads and validates a domain definition from a YAML file.
func LoadFile(path string) (*Domain, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read domain %s: %w", path, err)
	}
	return Parse(data)
}

// Parse validates a YAML domain definition.
func Parse(data []byte) (*Domain, error) {
	var spec fileSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, &LoadError{Problems: []string{fmt.Sprintf("invalid YAML: %v", err)}}
	}
	if spec.Name == "" {
		spec.Name = "unnamed"
	}
	return New(spec.Name, spec.Objects, spec.Constraints)
}
