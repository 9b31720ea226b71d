// Package endpoint defines the resolved IPC topology: named socket endpoints,
// their access permissions, and the set handed to the subsystems that bind them.
package endpoint

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Name identifies a cooperating subcomponent of the voice-control topology.
type Name string

// Subcomponents, in EndpointSet order.
const (
	ExecutionController     Name = "ExecutionController"
	PlatformInterfaceRouter Name = "PlatformInterfaceRouter"
	ArtifactIngestion       Name = "ArtifactIngestion"
	LocalSkillService       Name = "LocalSkillService"
	LocalSearchNavigation   Name = "LocalSearchNavigation"
)

// Order is the fixed position of each subcomponent within a Set.
var Order = []Name{
	ExecutionController,
	PlatformInterfaceRouter,
	ArtifactIngestion,
	LocalSkillService,
	LocalSearchNavigation,
}

// Kind says whether Path is a directory the engine creates its socket in,
// or the socket file itself.
type Kind string

const (
	SocketDirectory Kind = "directory"
	SocketFile      Kind = "socket"
)

// Auxiliary socket roles.
const (
	RoleMessageRouter = "messageRouter"
	RolePOIEER        = "poiEER"
)

// Aux is an additional socket owned by the same subcomponent.
type Aux struct {
	Role string `json:"role"`
	Path string `json:"path"`
	Kind Kind   `json:"kind"`
}

// Spec is one resolved endpoint.
type Spec struct {
	Name       Name       `json:"name"`
	Path       string     `json:"path"`
	Kind       Kind       `json:"kind"`
	Permission Permission `json:"permission"`
	Aux        []Aux      `json:"aux,omitempty"`
}

// AuxPath returns the path of the auxiliary socket with the given role, or "".
func (s *Spec) AuxPath(role string) string {
	for _, a := range s.Aux {
		if a.Role == role {
			return a.Path
		}
	}
	return ""
}

// Mode is the octal file mode a binder applies to the socket, e.g. "0660".
func (s Spec) Mode() string {
	return fmt.Sprintf("%#o", uint32(s.Permission.FileMode().Perm()))
}

// MarshalJSON adds the derived mode to the encoded spec. Decoding ignores it.
func (s Spec) MarshalJSON() ([]byte, error) {
	type plain Spec
	return json.Marshal(struct {
		plain
		Mode string `json:"mode"`
	}{plain: plain(s), Mode: s.Mode()})
}

// Capability names an optional feature of the host that changes the topology.
type Capability string

// CapabilityLocalSearch enables the local search / navigation POI service.
const CapabilityLocalSearch Capability = "localSearch"

// Capabilities is the caller's enabled-capability set.
type Capabilities map[Capability]bool

// NewCapabilities builds a set from capability names. Blank entries are ignored.
func NewCapabilities(names ...string) Capabilities {
	caps := make(Capabilities, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		caps[Capability(n)] = true
	}
	return caps
}

// Has reports whether c is enabled. A nil set has nothing enabled.
func (c Capabilities) Has(name Capability) bool {
	return c[name]
}
