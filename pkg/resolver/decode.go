package resolver

import (
	"errors"

	"github.com/morezero/lvc-bridge/pkg/configdoc"
	"github.com/morezero/lvc-bridge/pkg/endpoint"
)

// Document keys.
const (
	keyHybridEngine        = "AlexaHybridEngine"
	keyExecutionController = "ExecutionController"
	keyPISocketPath        = "PlatformInterfaceSocketPath"
	keyPISocketPermissions = "PlatformInterfaceSocketPermissions"
	keyMRSocketPath        = "MessageRouterSocketPath"
	keyPlatformInterfaces  = "PlatformInterfaces"
	keyUDSPath             = "UnixDomainSocketPath"
	keyUDSPermissions      = "UnixDomainSocketPermissions"
	keyArtifactManager     = "ArtifactManager"
	keyIngestionEP         = "IngestionEP"
	keyAACE                = "AACE"
	keyLocalSkillService   = "LocalSkillService"
	keyLocalSearch         = "LocalSearch"
	keyNavPOISocketDir     = "NavigationPOISocketDir"
	keyNavPOISocketName    = "NavigationPOISocketName"
	keyPOIEERSocketDir     = "POIEERSocketDir"
	keyPOIEERSocketName    = "POIEERSocketName"
)

// topologySettings is the typed form of a configuration document, produced
// before any endpoint is built.
type topologySettings struct {
	controllerSocketDir    string
	controllerPermission   endpoint.Permission
	messageRouterSocketDir string
	platformSocketDir      string
	platformPermission     endpoint.Permission
	ingestionSocketPath    string
	skillServiceSocketPath string
	localSearch            *localSearchSettings
}

type localSearchSettings struct {
	navigationPOISocketDir  string
	navigationPOISocketName string
	poiEERSocketDir         string
	poiEERSocketName        string
}

// fieldReader reads required fields and keeps the first failure, so the
// decode below reads as a flat list of fields.
type fieldReader struct {
	err error
}

func (r *fieldReader) object(n configdoc.Node, key string) configdoc.Node {
	if r.err != nil {
		return configdoc.Node{}
	}
	child, err := n.Object(key)
	if err != nil {
		r.err = fieldFailure(err)
	}
	return child
}

func (r *fieldReader) path(n configdoc.Node, key string) string {
	if r.err != nil {
		return ""
	}
	s, err := n.String(key)
	if err != nil {
		r.err = fieldFailure(err)
		return ""
	}
	if err := endpoint.ValidatePath(s); err != nil {
		r.err = &ResolutionError{Path: dotted(n, key), Reason: ReasonInvalidPath, Err: err}
		return ""
	}
	return s
}

// name reads a bare socket file name; it is validated as a path fragment.
func (r *fieldReader) name(n configdoc.Node, key string) string {
	return r.path(n, key)
}

func (r *fieldReader) permission(n configdoc.Node, key string) endpoint.Permission {
	if r.err != nil {
		return 0
	}
	token, err := n.String(key)
	if err != nil {
		r.err = fieldFailure(err)
		return 0
	}
	p, err := endpoint.ParsePermission(token)
	if err != nil {
		r.err = &ResolutionError{Path: dotted(n, key), Reason: ReasonUnknownPermission, Err: err}
		return 0
	}
	return p
}

func dotted(n configdoc.Node, key string) string {
	if n.Path() == "" {
		return key
	}
	return n.Path() + "." + key
}

// decodeDocument walks the fixed field sequence of the document. The
// LocalSearch section is only read, and then required, when withLocalSearch
// is set.
func decodeDocument(doc *configdoc.Document, withLocalSearch bool) (*topologySettings, error) {
	if doc == nil {
		return nil, errors.New("resolver: decodeDocument called without a document")
	}
	r := &fieldReader{}
	root := doc.Root()
	s := &topologySettings{}

	ahe := r.object(root, keyHybridEngine)

	ec := r.object(ahe, keyExecutionController)
	s.controllerSocketDir = r.path(ec, keyPISocketPath)
	s.controllerPermission = r.permission(ec, keyPISocketPermissions)
	s.messageRouterSocketDir = r.path(ec, keyMRSocketPath)

	pi := r.object(ahe, keyPlatformInterfaces)
	s.platformSocketDir = r.path(pi, keyUDSPath)
	s.platformPermission = r.permission(pi, keyUDSPermissions)

	am := r.object(ahe, keyArtifactManager)
	ingestion := r.object(am, keyIngestionEP)
	s.ingestionSocketPath = r.path(ingestion, keyUDSPath)

	aace := r.object(root, keyAACE)
	lss := r.object(aace, keyLocalSkillService)
	s.skillServiceSocketPath = r.path(lss, keyUDSPath)

	if withLocalSearch {
		ls := r.object(aace, keyLocalSearch)
		s.localSearch = &localSearchSettings{
			navigationPOISocketDir:  r.path(ls, keyNavPOISocketDir),
			navigationPOISocketName: r.name(ls, keyNavPOISocketName),
			poiEERSocketDir:         r.path(ls, keyPOIEERSocketDir),
			poiEERSocketName:        r.name(ls, keyPOIEERSocketName),
		}
	}

	if r.err != nil {
		return nil, r.err
	}
	return s, nil
}
