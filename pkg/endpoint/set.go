package endpoint

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Set is an ordered, validated collection of endpoint specs.
type Set struct {
	specs []Spec
}

// NewSet validates specs and returns them ordered by Order.
func NewSet(specs ...Spec) (*Set, error) {
	seen := make(map[Name]bool, len(specs))
	for i := range specs {
		if err := specs[i].validate(); err != nil {
			return nil, err
		}
		if seen[specs[i].Name] {
			return nil, fmt.Errorf("endpoint: duplicate spec for %s", specs[i].Name)
		}
		seen[specs[i].Name] = true
	}
	for _, required := range Order[:4] {
		if !seen[required] {
			return nil, fmt.Errorf("endpoint: missing spec for %s", required)
		}
	}
	if err := checkCollisions(specs); err != nil {
		return nil, err
	}

	ordered := make([]Spec, len(specs))
	for i := range specs {
		ordered[i] = specs[i].clone()
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return position(ordered[i].Name) < position(ordered[j].Name)
	})
	return &Set{specs: ordered}, nil
}

// Specs returns a deep copy of the specs in set order.
func (s *Set) Specs() []Spec {
	out := make([]Spec, len(s.specs))
	for i := range s.specs {
		out[i] = s.specs[i].clone()
	}
	return out
}

// Len is the number of specs.
func (s *Set) Len() int {
	return len(s.specs)
}

// Get returns a copy of the spec for name, if present.
func (s *Set) Get(name Name) (Spec, bool) {
	for i := range s.specs {
		if s.specs[i].Name == name {
			return s.specs[i].clone(), true
		}
	}
	return Spec{}, false
}

// Has reports whether the set carries a spec for name.
func (s *Set) Has(name Name) bool {
	_, ok := s.Get(name)
	return ok
}

// ValidatePath checks that path is usable as a filesystem address.
func ValidatePath(path string) error {
	if path == "" {
		return fmt.Errorf("path is empty")
	}
	if strings.IndexByte(path, 0) >= 0 {
		return fmt.Errorf("path %q contains a NUL byte", path)
	}
	return nil
}

func (s *Spec) clone() Spec {
	out := *s
	if s.Aux != nil {
		out.Aux = make([]Aux, len(s.Aux))
		copy(out.Aux, s.Aux)
	}
	return out
}

func (s *Spec) validate() error {
	if position(s.Name) < 0 {
		return fmt.Errorf("endpoint: unknown endpoint name %q", s.Name)
	}
	if err := ValidatePath(s.Path); err != nil {
		return fmt.Errorf("endpoint: %s: %w", s.Name, err)
	}
	if s.Kind != SocketDirectory && s.Kind != SocketFile {
		return fmt.Errorf("endpoint: %s: unknown kind %q", s.Name, s.Kind)
	}
	if !s.Permission.Valid() {
		return fmt.Errorf("endpoint: %s: invalid permission %d", s.Name, int(s.Permission))
	}
	for _, a := range s.Aux {
		if err := ValidatePath(a.Path); err != nil {
			return fmt.Errorf("endpoint: %s.%s: %w", s.Name, a.Role, err)
		}
	}
	return nil
}

type address struct {
	owner string
	kind  Kind
}

// checkCollisions rejects two sockets bound to one path. Directories may be
// shared; a socket file may not equal another socket file or a directory.
func checkCollisions(specs []Spec) error {
	byPath := make(map[string][]address)
	for _, s := range specs {
		byPath[s.Path] = append(byPath[s.Path], address{owner: string(s.Name), kind: s.Kind})
		for _, a := range s.Aux {
			byPath[a.Path] = append(byPath[a.Path], address{owner: string(s.Name) + "." + a.Role, kind: a.Kind})
		}
	}

	paths := make([]string, 0, len(byPath))
	for p := range byPath {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, p := range paths {
		addrs := byPath[p]
		if len(addrs) < 2 {
			continue
		}
		for _, a := range addrs {
			if a.kind == SocketFile {
				owners := make([]string, len(addrs))
				for i, o := range addrs {
					owners[i] = o.owner
				}
				return &CollisionError{Path: p, Owners: owners}
			}
		}
	}
	return nil
}

// CollisionError reports two subsystems resolved onto the same socket.
type CollisionError struct {
	Path   string
	Owners []string
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("endpoint: socket path %q is shared by %s", e.Path, strings.Join(e.Owners, ", "))
}

func position(n Name) int {
	for i, o := range Order {
		if o == n {
			return i
		}
	}
	return -1
}

// MarshalJSON encodes the set as an array of specs in set order.
func (s *Set) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.specs)
}

// UnmarshalJSON decodes an array of specs and re-validates it.
func (s *Set) UnmarshalJSON(data []byte) error {
	var specs []Spec
	if err := json.Unmarshal(data, &specs); err != nil {
		return fmt.Errorf("endpoint: decode set: %w", err)
	}
	decoded, err := NewSet(specs...)
	if err != nil {
		return err
	}
	*s = *decoded
	return nil
}
