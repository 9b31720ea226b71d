package commsutil

import "fmt"

// Default COMMS subjects.
const (
	SubjectPrefix = "lvc"

	SubjectSearchRequest  = "lvc.localNavigation.poiSearch.request"
	SubjectSearchResponse = "lvc.localNavigation.poiSearch.response"
	SubjectLookupRequest  = "lvc.localNavigation.poiLookup.request"
	SubjectLookupResponse = "lvc.localNavigation.poiLookup.response"

	SubjectTopology = "lvc.topology"

	SubjectHandlerSuppressed = "lvc.events.handlerSuppressed"
	SubjectTopologyResolved  = "lvc.events.topologyResolved"
)

// BuildSuppressionSubject builds the granular subject for a suppressed
// platform interface handler.
func BuildSuppressionSubject(module, iface string) string {
	return fmt.Sprintf("%s.%s.%s", SubjectHandlerSuppressed, module, iface)
}

// BuildProviderSubject builds the subject an external provider listens on
// for one request kind (e.g. "search", "lookup").
func BuildProviderSubject(base, kind string) string {
	return fmt.Sprintf("%s.%s", base, kind)
}
