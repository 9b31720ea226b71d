// Package engineconfig renders a resolved endpoint set into the configuration
// documents the native voice-control engine reads at startup.
package engineconfig

import (
	"encoding/json"
	"fmt"

	"github.com/morezero/lvc-bridge/pkg/endpoint"
)

// DefaultAddress is the loopback address the engine listens on.
const DefaultAddress = "127.0.0.1"

// Opts tunes rendering.
type Opts struct {
	// Address overrides DefaultAddress.
	Address string
}

// LocalVoiceControl is the aace.localVoiceControl block.
type LocalVoiceControl struct {
	ControllerSocketDirectory    string `json:"controllerSocketDirectory"`
	ControllerSocketPermissions  string `json:"controllerSocketPermissions"`
	PlatformSocketDirectory      string `json:"platformSocketDirectory"`
	PlatformSocketPermissions    string `json:"platformSocketPermissions"`
	Address                      string `json:"address"`
	MessageRouterSocketDirectory string `json:"messageRouterSocketDirectory"`
}

// LocalSkillService is the aace.localSkillService block.
type LocalSkillService struct {
	LSSSocketPath string `json:"lssSocketPath"`
	ERSocketPath  string `json:"erSocketPath"`
}

// LocalSearch is the aace.localNavigation.localSearch block.
type LocalSearch struct {
	NavigationPOISocketPath string `json:"navigationPOISocketPath"`
	POIEERSocketPath        string `json:"poiEERSocketPath"`
}

// Config is the full set of engine configuration documents for one topology.
// LocalSearch is nil when local search is not part of the set.
type Config struct {
	LocalVoiceControl LocalVoiceControl
	LocalSkillService LocalSkillService
	LocalSearch       *LocalSearch
}

// Render builds the engine configuration for set.
func Render(set *endpoint.Set, opts Opts) (*Config, error) {
	if set == nil {
		return nil, fmt.Errorf("engineconfig: nil endpoint set")
	}
	address := opts.Address
	if address == "" {
		address = DefaultAddress
	}

	controller, err := lookup(set, endpoint.ExecutionController)
	if err != nil {
		return nil, err
	}
	platform, err := lookup(set, endpoint.PlatformInterfaceRouter)
	if err != nil {
		return nil, err
	}
	ingestion, err := lookup(set, endpoint.ArtifactIngestion)
	if err != nil {
		return nil, err
	}
	lss, err := lookup(set, endpoint.LocalSkillService)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		LocalVoiceControl: LocalVoiceControl{
			ControllerSocketDirectory:    controller.Path,
			ControllerSocketPermissions:  enginePermission(controller.Permission),
			PlatformSocketDirectory:      platform.Path,
			PlatformSocketPermissions:    enginePermission(platform.Permission),
			Address:                      address,
			MessageRouterSocketDirectory: controller.AuxPath(endpoint.RoleMessageRouter),
		},
		LocalSkillService: LocalSkillService{
			LSSSocketPath: lss.Path,
			ERSocketPath:  ingestion.Path,
		},
	}
	if cfg.LocalVoiceControl.MessageRouterSocketDirectory == "" {
		cfg.LocalVoiceControl.MessageRouterSocketDirectory = controller.Path
	}

	if nav, ok := set.Get(endpoint.LocalSearchNavigation); ok {
		cfg.LocalSearch = &LocalSearch{
			NavigationPOISocketPath: nav.Path,
			POIEERSocketPath:        nav.AuxPath(endpoint.RolePOIEER),
		}
	}
	return cfg, nil
}

// Documents returns each engine configuration document keyed by its top-level
// namespace, ready to be written or streamed to the engine.
func (c *Config) Documents() map[string]any {
	docs := map[string]any{
		"aace.localVoiceControl": c.LocalVoiceControl,
		"aace.localSkillService": c.LocalSkillService,
	}
	if c.LocalSearch != nil {
		docs["aace.localNavigation"] = map[string]any{"localSearch": c.LocalSearch}
	}
	return docs
}

// MarshalJSON encodes the merged documents as a single JSON object.
func (c *Config) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Documents())
}

func lookup(set *endpoint.Set, name endpoint.Name) (endpoint.Spec, error) {
	spec, ok := set.Get(name)
	if !ok {
		return endpoint.Spec{}, fmt.Errorf("engineconfig: endpoint set has no %s", name)
	}
	return spec, nil
}

// enginePermission spells a permission the way the engine expects; the engine
// calls world access "ALL".
func enginePermission(p endpoint.Permission) string {
	if p == endpoint.PermissionWorld {
		return "ALL"
	}
	return p.String()
}
