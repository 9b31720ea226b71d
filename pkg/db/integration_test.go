//go:build integration

package db

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/morezero/lvc-bridge/pkg/endpoint"
	"github.com/morezero/lvc-bridge/pkg/semver"
)

// testDBEnv returns the database URL for integration tests; skips the test if not set.
func testDBEnv(t *testing.T) string {
	t.Helper()
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("db:integration_test - DATABASE_URL not set, skipping")
	}
	return url
}

func setupIntegrationDB(t *testing.T) (context.Context, *Repository) {
	t.Helper()
	ctx := context.Background()

	pool, err := NewPool(ctx, testDBEnv(t))
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	migrationSQL, err := LoadMigrationFiles("")
	require.NoError(t, err)
	require.NoError(t, RunMigrations(ctx, pool, migrationSQL))

	applied, files, err := MigrationStatus(ctx, pool, "")
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, len(migrationSQL), files)

	return ctx, NewRepository(pool)
}

func testSet(t *testing.T, dir string) *endpoint.Set {
	t.Helper()
	set, err := endpoint.NewSet(
		endpoint.Spec{Name: endpoint.ExecutionController, Path: dir, Kind: endpoint.SocketDirectory, Permission: endpoint.PermissionOwner},
		endpoint.Spec{Name: endpoint.PlatformInterfaceRouter, Path: dir, Kind: endpoint.SocketDirectory, Permission: endpoint.PermissionGroup},
		endpoint.Spec{Name: endpoint.ArtifactIngestion, Path: dir + "/ER.socket", Kind: endpoint.SocketFile, Permission: endpoint.PermissionOwner},
		endpoint.Spec{Name: endpoint.LocalSkillService, Path: dir + "/LSS.socket", Kind: endpoint.SocketFile, Permission: endpoint.PermissionOwner},
	)
	require.NoError(t, err)
	return set
}

func TestIntegration_SaveAndLoadLatest(t *testing.T) {
	ctx, repo := setupIntegrationDB(t)

	first, err := repo.SaveTopology(ctx, SaveTopologyParams{Source: "defaults", AppDataDir: "/data/a", Endpoints: testSet(t, "/data/a")})
	require.NoError(t, err)
	second, err := repo.SaveTopology(ctx, SaveTopologyParams{
		Source:       "/etc/lvc.json",
		AppDataDir:   "/data/b",
		Capabilities: []string{"localSearch"},
		Endpoints:    testSet(t, "/data/b"),
	})
	require.NoError(t, err)
	assert.Greater(t, second.Revision, first.Revision)
	assert.Equal(t, semver.FormatVersion, second.FormatVersion)

	latest, err := repo.LatestTopology(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, second.Revision, latest.Revision)
	assert.Equal(t, []string{"localSearch"}, latest.Capabilities)

	lss, ok := latest.Endpoints.Get(endpoint.LocalSkillService)
	require.True(t, ok)
	assert.Equal(t, "/data/b/LSS.socket", lss.Path)

	pi, _ := latest.Endpoints.Get(endpoint.PlatformInterfaceRouter)
	assert.Equal(t, endpoint.PermissionGroup, pi.Permission)

	list, err := repo.ListTopologies(ctx, 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.Revision, list[0].Revision)
}

func TestIntegration_SaveRequiresEndpoints(t *testing.T) {
	ctx, repo := setupIntegrationDB(t)
	_, err := repo.SaveTopology(ctx, SaveTopologyParams{Source: "x"})
	assert.Error(t, err)
}
