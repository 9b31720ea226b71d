// Package resolver turns an IPC configuration document, or its absence, into
// a validated endpoint set for the voice-control subsystems.
package resolver

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/morezero/lvc-bridge/pkg/configdoc"
	"github.com/morezero/lvc-bridge/pkg/endpoint"
)

const logPrefix = "resolver:resolve"

// Default socket names under the app data directory.
const (
	DefaultSkillServiceSocket  = "LSS.socket"
	DefaultIngestionSocket     = "ER.socket"
	DefaultNavigationPOISocket = "navigationPOI.socket"
	DefaultPOIEERSocket        = "poiEER.socket"
)

// Handler that a successful local-search resolution suppresses in the host
// message-routing layer.
const (
	LocalSearchModule    = "localNavigation"
	LocalSearchInterface = "LocalSearchProvider"
)

// HandlerSuppressor is the host message-routing layer. It is told to drop
// its default handler for an interface the caller will provide itself.
type HandlerSuppressor interface {
	SuppressDefaultHandler(ctx context.Context, module, iface string) error
}

// Resolver resolves endpoint sets and emits the handler suppression signal.
type Resolver struct {
	suppressor HandlerSuppressor
}

// New creates a Resolver. A nil suppressor disables the signal.
func New(suppressor HandlerSuppressor) *Resolver {
	return &Resolver{suppressor: suppressor}
}

// Resolve builds the endpoint set without any side effect.
func Resolve(doc *configdoc.Document, appDataDir string, caps endpoint.Capabilities) (*endpoint.Set, error) {
	return New(nil).Resolve(context.Background(), doc, appDataDir, caps)
}

// Resolve builds the endpoint set from doc, or from the default layout under
// appDataDir when doc is nil. With local search enabled, a successful
// resolution tells the suppressor to drop the default LocalSearchProvider
// handler; a failure to deliver that signal fails the call.
func (r *Resolver) Resolve(ctx context.Context, doc *configdoc.Document, appDataDir string, caps endpoint.Capabilities) (*endpoint.Set, error) {
	withLocalSearch := caps.Has(endpoint.CapabilityLocalSearch)

	var (
		set *endpoint.Set
		err error
	)
	if doc == nil {
		slog.Info(fmt.Sprintf("%s - No configuration document, using defaults under %q", logPrefix, appDataDir))
		set, err = defaultSet(appDataDir, withLocalSearch)
	} else {
		slog.Info(fmt.Sprintf("%s - Resolving endpoints from %s", logPrefix, doc.Source()))
		set, err = documentSet(doc, withLocalSearch)
	}
	if err != nil {
		slog.Error(fmt.Sprintf("%s - Resolution failed: %v", logPrefix, err))
		return nil, err
	}

	if withLocalSearch && r.suppressor != nil {
		if err := r.suppressor.SuppressDefaultHandler(ctx, LocalSearchModule, LocalSearchInterface); err != nil {
			return nil, fmt.Errorf("%s - failed to suppress default %s.%s handler: %w", logPrefix, LocalSearchModule, LocalSearchInterface, err)
		}
		slog.Info(fmt.Sprintf("%s - Suppressed default %s.%s handler", logPrefix, LocalSearchModule, LocalSearchInterface))
	}

	slog.Debug(fmt.Sprintf("%s - Resolved %d endpoints", logPrefix, set.Len()))
	return set, nil
}

func defaultSet(appDataDir string, withLocalSearch bool) (*endpoint.Set, error) {
	dir := appDataDir
	if dir == "" {
		slog.Warn(fmt.Sprintf("%s - Empty app data directory, rooting defaults at \".\"", logPrefix))
		dir = "."
	}

	specs := []endpoint.Spec{
		{
			Name:       endpoint.ExecutionController,
			Path:       dir,
			Kind:       endpoint.SocketDirectory,
			Permission: endpoint.PermissionOwner,
			Aux:        []endpoint.Aux{{Role: endpoint.RoleMessageRouter, Path: dir, Kind: endpoint.SocketDirectory}},
		},
		{
			Name:       endpoint.PlatformInterfaceRouter,
			Path:       dir,
			Kind:       endpoint.SocketDirectory,
			Permission: endpoint.PermissionOwner,
		},
		{
			Name:       endpoint.ArtifactIngestion,
			Path:       joinSocket(dir, DefaultIngestionSocket),
			Kind:       endpoint.SocketFile,
			Permission: endpoint.PermissionOwner,
		},
		{
			Name:       endpoint.LocalSkillService,
			Path:       joinSocket(dir, DefaultSkillServiceSocket),
			Kind:       endpoint.SocketFile,
			Permission: endpoint.PermissionOwner,
		},
	}
	if withLocalSearch {
		specs = append(specs, localSearchSpec(
			joinSocket(dir, DefaultNavigationPOISocket),
			joinSocket(dir, DefaultPOIEERSocket),
		))
	}

	set, err := endpoint.NewSet(specs...)
	if err != nil {
		return nil, &ResolutionError{Path: "appDataDir", Reason: ReasonInvalidPath, Err: err}
	}
	return set, nil
}

func documentSet(doc *configdoc.Document, withLocalSearch bool) (*endpoint.Set, error) {
	s, err := decodeDocument(doc, withLocalSearch)
	if err != nil {
		return nil, err
	}

	specs := []endpoint.Spec{
		{
			Name:       endpoint.ExecutionController,
			Path:       s.controllerSocketDir,
			Kind:       endpoint.SocketDirectory,
			Permission: s.controllerPermission,
			Aux:        []endpoint.Aux{{Role: endpoint.RoleMessageRouter, Path: s.messageRouterSocketDir, Kind: endpoint.SocketDirectory}},
		},
		{
			Name:       endpoint.PlatformInterfaceRouter,
			Path:       s.platformSocketDir,
			Kind:       endpoint.SocketDirectory,
			Permission: s.platformPermission,
		},
		{
			Name:       endpoint.ArtifactIngestion,
			Path:       s.ingestionSocketPath,
			Kind:       endpoint.SocketFile,
			Permission: endpoint.PermissionOwner,
		},
		{
			Name:       endpoint.LocalSkillService,
			Path:       s.skillServiceSocketPath,
			Kind:       endpoint.SocketFile,
			Permission: endpoint.PermissionOwner,
		},
	}
	if s.localSearch != nil {
		specs = append(specs, localSearchSpec(
			joinSocket(s.localSearch.navigationPOISocketDir, s.localSearch.navigationPOISocketName),
			joinSocket(s.localSearch.poiEERSocketDir, s.localSearch.poiEERSocketName),
		))
	}

	set, err := endpoint.NewSet(specs...)
	if err != nil {
		return nil, setFailure(err)
	}
	return set, nil
}

func localSearchSpec(navigationPOI, poiEER string) endpoint.Spec {
	return endpoint.Spec{
		Name:       endpoint.LocalSearchNavigation,
		Path:       navigationPOI,
		Kind:       endpoint.SocketFile,
		Permission: endpoint.PermissionOwner,
		Aux:        []endpoint.Aux{{Role: endpoint.RolePOIEER, Path: poiEER, Kind: endpoint.SocketFile}},
	}
}

// joinSocket joins dir and name with exactly one literal "/". Neither side is
// cleaned, so "dir/" + "name" yields "dir//name".
func joinSocket(dir, name string) string {
	return dir + "/" + name
}
