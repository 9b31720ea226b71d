package engineconfig

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/morezero/lvc-bridge/pkg/endpoint"
	"github.com/morezero/lvc-bridge/pkg/resolver"
)

func TestRender_Defaults(t *testing.T) {
	set, err := resolver.Resolve(nil, "/data/app", endpoint.NewCapabilities("localSearch"))
	require.NoError(t, err)

	cfg, err := Render(set, Opts{})
	require.NoError(t, err)

	raw, err := json.Marshal(cfg)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"aace.localVoiceControl": {
			"controllerSocketDirectory": "/data/app",
			"controllerSocketPermissions": "OWNER",
			"platformSocketDirectory": "/data/app",
			"platformSocketPermissions": "OWNER",
			"address": "127.0.0.1",
			"messageRouterSocketDirectory": "/data/app"
		},
		"aace.localSkillService": {
			"lssSocketPath": "/data/app/LSS.socket",
			"erSocketPath": "/data/app/ER.socket"
		},
		"aace.localNavigation": {
			"localSearch": {
				"navigationPOISocketPath": "/data/app/navigationPOI.socket",
				"poiEERSocketPath": "/data/app/poiEER.socket"
			}
		}
	}`, string(raw))
}

func TestRender_WithoutLocalSearch(t *testing.T) {
	set, err := resolver.Resolve(nil, "/data/app", nil)
	require.NoError(t, err)

	cfg, err := Render(set, Opts{Address: "10.0.0.2"})
	require.NoError(t, err)
	assert.Nil(t, cfg.LocalSearch)
	assert.Equal(t, "10.0.0.2", cfg.LocalVoiceControl.Address)
	assert.NotContains(t, cfg.Documents(), "aace.localNavigation")
}

func TestRender_WorldIsAll(t *testing.T) {
	set, err := endpoint.NewSet(
		endpoint.Spec{Name: endpoint.ExecutionController, Path: "/c", Kind: endpoint.SocketDirectory, Permission: endpoint.PermissionWorld},
		endpoint.Spec{Name: endpoint.PlatformInterfaceRouter, Path: "/p", Kind: endpoint.SocketDirectory, Permission: endpoint.PermissionGroup},
		endpoint.Spec{Name: endpoint.ArtifactIngestion, Path: "/er", Kind: endpoint.SocketFile, Permission: endpoint.PermissionOwner},
		endpoint.Spec{Name: endpoint.LocalSkillService, Path: "/lss", Kind: endpoint.SocketFile, Permission: endpoint.PermissionOwner},
	)
	require.NoError(t, err)

	cfg, err := Render(set, Opts{})
	require.NoError(t, err)
	assert.Equal(t, "ALL", cfg.LocalVoiceControl.ControllerSocketPermissions)
	assert.Equal(t, "GROUP", cfg.LocalVoiceControl.PlatformSocketPermissions)
	// No message router aux: the controller directory is used.
	assert.Equal(t, "/c", cfg.LocalVoiceControl.MessageRouterSocketDirectory)
}

func TestRender_NilSet(t *testing.T) {
	_, err := Render(nil, Opts{})
	assert.Error(t, err)
}
