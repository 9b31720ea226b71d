package resolver

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/morezero/lvc-bridge/pkg/configdoc"
	"github.com/morezero/lvc-bridge/pkg/endpoint"
)

var localSearch = endpoint.NewCapabilities(string(endpoint.CapabilityLocalSearch))

func fullTree() map[string]any {
	return map[string]any{
		"AlexaHybridEngine": map[string]any{
			"ExecutionController": map[string]any{
				"PlatformInterfaceSocketPath":        "/run/lvc/ec",
				"PlatformInterfaceSocketPermissions": "GROUP",
				"MessageRouterSocketPath":            "/run/lvc/mr",
			},
			"PlatformInterfaces": map[string]any{
				"UnixDomainSocketPath":        "/run/lvc/pi",
				"UnixDomainSocketPermissions": "WORLD",
			},
			"ArtifactManager": map[string]any{
				"IngestionEP": map[string]any{
					"UnixDomainSocketPath": "/run/lvc/er.socket",
				},
			},
		},
		"AACE": map[string]any{
			"LocalSkillService": map[string]any{
				"UnixDomainSocketPath": "/run/lvc/lss.socket",
			},
			"LocalSearch": map[string]any{
				"NavigationPOISocketDir":  "/run/lvc",
				"NavigationPOISocketName": "nav.socket",
				"POIEERSocketDir":         "/run/lvc",
				"POIEERSocketName":        "eer.socket",
			},
		},
	}
}

// without returns fullTree with the field at path removed.
func without(path ...string) map[string]any {
	tree := fullTree()
	node := tree
	for _, key := range path[:len(path)-1] {
		node = node[key].(map[string]any)
	}
	delete(node, path[len(path)-1])
	return tree
}

// with returns fullTree with the field at path set to value.
func with(value any, path ...string) map[string]any {
	tree := fullTree()
	node := tree
	for _, key := range path[:len(path)-1] {
		node = node[key].(map[string]any)
	}
	node[path[len(path)-1]] = value
	return tree
}

func doc(tree map[string]any) *configdoc.Document {
	return configdoc.FromMap(tree, "test")
}

func get(t *testing.T, set *endpoint.Set, name endpoint.Name) endpoint.Spec {
	t.Helper()
	spec, ok := set.Get(name)
	require.True(t, ok, "missing %s", name)
	return spec
}

type recordingSuppressor struct {
	calls [][2]string
	err   error
}

func (s *recordingSuppressor) SuppressDefaultHandler(_ context.Context, module, iface string) error {
	s.calls = append(s.calls, [2]string{module, iface})
	return s.err
}

func TestResolve_Defaults(t *testing.T) {
	set, err := Resolve(nil, "/data/app", localSearch)
	require.NoError(t, err)
	require.Equal(t, 5, set.Len())

	lss := get(t, set, endpoint.LocalSkillService)
	assert.Equal(t, "/data/app/LSS.socket", lss.Path)
	assert.Equal(t, endpoint.PermissionOwner, lss.Permission)

	assert.Equal(t, "/data/app/ER.socket", get(t, set, endpoint.ArtifactIngestion).Path)

	ec := get(t, set, endpoint.ExecutionController)
	assert.Equal(t, "/data/app", ec.Path)
	assert.Equal(t, "/data/app", ec.AuxPath(endpoint.RoleMessageRouter))
	assert.Equal(t, "/data/app", get(t, set, endpoint.PlatformInterfaceRouter).Path)

	nav := get(t, set, endpoint.LocalSearchNavigation)
	assert.Equal(t, "/data/app/navigationPOI.socket", nav.Path)
	assert.Equal(t, "/data/app/poiEER.socket", nav.AuxPath(endpoint.RolePOIEER))

	for _, spec := range set.Specs() {
		assert.Equal(t, endpoint.PermissionOwner, spec.Permission, spec.Name)
	}
}

func TestResolve_DefaultsWithoutLocalSearch(t *testing.T) {
	set, err := Resolve(nil, "/data/app", nil)
	require.NoError(t, err)
	assert.Equal(t, 4, set.Len())
	assert.False(t, set.Has(endpoint.LocalSearchNavigation))
}

func TestResolve_DefaultsEmptyAppDataDir(t *testing.T) {
	set, err := Resolve(nil, "", nil)
	require.NoError(t, err)
	assert.Equal(t, "./LSS.socket", get(t, set, endpoint.LocalSkillService).Path)
}

func TestResolve_DefaultsTrailingSlashKept(t *testing.T) {
	set, err := Resolve(nil, "/data/app/", nil)
	require.NoError(t, err)
	assert.Equal(t, "/data/app//LSS.socket", get(t, set, endpoint.LocalSkillService).Path)
}

func TestResolve_Document(t *testing.T) {
	set, err := Resolve(doc(fullTree()), "/ignored", localSearch)
	require.NoError(t, err)
	require.Equal(t, 5, set.Len())

	ec := get(t, set, endpoint.ExecutionController)
	assert.Equal(t, "/run/lvc/ec", ec.Path)
	assert.Equal(t, endpoint.PermissionGroup, ec.Permission)
	assert.Equal(t, "/run/lvc/mr", ec.AuxPath(endpoint.RoleMessageRouter))

	pi := get(t, set, endpoint.PlatformInterfaceRouter)
	assert.Equal(t, "/run/lvc/pi", pi.Path)
	assert.Equal(t, endpoint.PermissionWorld, pi.Permission)

	assert.Equal(t, "/run/lvc/er.socket", get(t, set, endpoint.ArtifactIngestion).Path)
	assert.Equal(t, "/run/lvc/lss.socket", get(t, set, endpoint.LocalSkillService).Path)

	nav := get(t, set, endpoint.LocalSearchNavigation)
	assert.Equal(t, "/run/lvc/nav.socket", nav.Path)
	assert.Equal(t, "/run/lvc/eer.socket", nav.AuxPath(endpoint.RolePOIEER))
}

func TestResolve_DocumentWithoutLocalSearchIgnoresSection(t *testing.T) {
	set, err := Resolve(doc(without("AACE", "LocalSearch")), "", nil)
	require.NoError(t, err)
	assert.Equal(t, 4, set.Len())
}

func TestResolve_DocumentLocalSearchRequiredWhenEnabled(t *testing.T) {
	_, err := Resolve(doc(without("AACE", "LocalSearch")), "", localSearch)
	var re *ResolutionError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, "AACE.LocalSearch", re.Path)
	assert.Equal(t, ReasonMissing, re.Reason)
}

func TestResolve_MissingFieldReportsPath(t *testing.T) {
	paths := [][]string{
		{"AlexaHybridEngine"},
		{"AlexaHybridEngine", "ExecutionController"},
		{"AlexaHybridEngine", "ExecutionController", "PlatformInterfaceSocketPath"},
		{"AlexaHybridEngine", "ExecutionController", "PlatformInterfaceSocketPermissions"},
		{"AlexaHybridEngine", "ExecutionController", "MessageRouterSocketPath"},
		{"AlexaHybridEngine", "PlatformInterfaces", "UnixDomainSocketPath"},
		{"AlexaHybridEngine", "PlatformInterfaces", "UnixDomainSocketPermissions"},
		{"AlexaHybridEngine", "ArtifactManager", "IngestionEP", "UnixDomainSocketPath"},
		{"AACE", "LocalSkillService", "UnixDomainSocketPath"},
		{"AACE", "LocalSearch", "NavigationPOISocketDir"},
		{"AACE", "LocalSearch", "NavigationPOISocketName"},
		{"AACE", "LocalSearch", "POIEERSocketDir"},
		{"AACE", "LocalSearch", "POIEERSocketName"},
	}
	for _, path := range paths {
		dotted := joinDotted(path)
		t.Run(dotted, func(t *testing.T) {
			set, err := Resolve(doc(without(path...)), "", localSearch)
			assert.Nil(t, set)
			var re *ResolutionError
			require.True(t, errors.As(err, &re))
			assert.Equal(t, ReasonMissing, re.Reason)
			assert.Equal(t, dotted, re.Path)
		})
	}
}

func TestResolve_EmptyStringIsFailure(t *testing.T) {
	_, err := Resolve(doc(with("", "AACE", "LocalSkillService", "UnixDomainSocketPath")), "", nil)
	var re *ResolutionError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, ReasonEmpty, re.Reason)
	assert.Equal(t, "AACE.LocalSkillService.UnixDomainSocketPath", re.Path)
}

func TestResolve_WrongType(t *testing.T) {
	_, err := Resolve(doc(with(float64(7), "AlexaHybridEngine", "PlatformInterfaces", "UnixDomainSocketPath")), "", nil)
	var re *ResolutionError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, ReasonWrongType, re.Reason)
	assert.Equal(t, "AlexaHybridEngine.PlatformInterfaces.UnixDomainSocketPath", re.Path)
}

func TestResolve_UnknownPermission(t *testing.T) {
	for _, token := range []string{"EVERYONE", "owner"} {
		t.Run(token, func(t *testing.T) {
			_, err := Resolve(doc(with(token, "AlexaHybridEngine", "ExecutionController", "PlatformInterfaceSocketPermissions")), "", nil)
			var re *ResolutionError
			require.True(t, errors.As(err, &re))
			assert.Equal(t, ReasonUnknownPermission, re.Reason)
			assert.Equal(t, "AlexaHybridEngine.ExecutionController.PlatformInterfaceSocketPermissions", re.Path)
			var unknown *endpoint.ErrUnknownPermission
			assert.True(t, errors.As(err, &unknown))
		})
	}
}

func TestResolve_InvalidPath(t *testing.T) {
	_, err := Resolve(doc(with("/run/\x00lss", "AACE", "LocalSkillService", "UnixDomainSocketPath")), "", nil)
	var re *ResolutionError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, ReasonInvalidPath, re.Reason)
	assert.Equal(t, "AACE.LocalSkillService.UnixDomainSocketPath", re.Path)
}

func TestResolve_LocalSearchJoinNotNormalized(t *testing.T) {
	tree := with("/run/lvc/", "AACE", "LocalSearch", "NavigationPOISocketDir")
	set, err := Resolve(doc(tree), "", localSearch)
	require.NoError(t, err)
	assert.Equal(t, "/run/lvc//nav.socket", get(t, set, endpoint.LocalSearchNavigation).Path)
}

func TestResolve_Collision(t *testing.T) {
	tree := with("/run/lvc/lss.socket", "AlexaHybridEngine", "ArtifactManager", "IngestionEP", "UnixDomainSocketPath")
	_, err := Resolve(doc(tree), "", nil)
	var re *ResolutionError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, ReasonCollision, re.Reason)
	assert.Equal(t, "/run/lvc/lss.socket", re.Path)
}

func TestResolve_DocumentSharedDirectories(t *testing.T) {
	tree := with("/run/lvc/ec", "AlexaHybridEngine", "PlatformInterfaces", "UnixDomainSocketPath")
	node := tree["AlexaHybridEngine"].(map[string]any)["ExecutionController"].(map[string]any)
	node["MessageRouterSocketPath"] = "/run/lvc/ec"

	set, err := Resolve(doc(tree), "", localSearch)
	require.NoError(t, err)
	assert.Equal(t, "/run/lvc/ec", get(t, set, endpoint.PlatformInterfaceRouter).Path)
	ec := get(t, set, endpoint.ExecutionController)
	assert.Equal(t, "/run/lvc/ec", ec.Path)
	assert.Equal(t, "/run/lvc/ec", ec.AuxPath(endpoint.RoleMessageRouter))
}

func TestResolve_SocketFileOnDirectoryCollides(t *testing.T) {
	tree := with("/run/lvc/ec", "AACE", "LocalSkillService", "UnixDomainSocketPath")
	_, err := Resolve(doc(tree), "", localSearch)
	var re *ResolutionError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, ReasonCollision, re.Reason)
	assert.Equal(t, "/run/lvc/ec", re.Path)
}

func TestResolve_Deterministic(t *testing.T) {
	first, err := Resolve(doc(fullTree()), "", localSearch)
	require.NoError(t, err)
	second, err := Resolve(doc(fullTree()), "", localSearch)
	require.NoError(t, err)
	assert.Equal(t, first.Specs(), second.Specs())
}

func TestResolver_SuppressesOnLocalSearchSuccess(t *testing.T) {
	s := &recordingSuppressor{}
	r := New(s)

	_, err := r.Resolve(context.Background(), nil, "/data/app", localSearch)
	require.NoError(t, err)
	require.Len(t, s.calls, 1)
	assert.Equal(t, [2]string{"localNavigation", "LocalSearchProvider"}, s.calls[0])
}

func TestResolver_NoSuppressionWithoutLocalSearch(t *testing.T) {
	s := &recordingSuppressor{}
	_, err := New(s).Resolve(context.Background(), doc(fullTree()), "", nil)
	require.NoError(t, err)
	assert.Empty(t, s.calls)
}

func TestResolver_NoSuppressionOnFailure(t *testing.T) {
	s := &recordingSuppressor{}
	_, err := New(s).Resolve(context.Background(), doc(without("AACE")), "", localSearch)
	require.Error(t, err)
	assert.Empty(t, s.calls)
}

func TestResolver_SuppressorErrorFailsResolve(t *testing.T) {
	s := &recordingSuppressor{err: errors.New("router down")}
	set, err := New(s).Resolve(context.Background(), nil, "/data/app", localSearch)
	assert.Nil(t, set)
	assert.ErrorContains(t, err, "router down")
}

func joinDotted(path []string) string {
	out := path[0]
	for _, p := range path[1:] {
		out += "." + p
	}
	return out
}
