// Package events defines the host-facing events of the bridge and the
// publishers that deliver them.
package events

import "github.com/morezero/lvc-bridge/pkg/endpoint"

// HandlerSuppressedEvent tells the host message-routing layer to drop its
// default handler for a platform interface the bridge provides itself.
type HandlerSuppressedEvent struct {
	Module    string `json:"module"`
	Interface string `json:"interface"`
	Timestamp string `json:"timestamp"`
}

// TopologyResolvedEvent announces a newly resolved endpoint set.
type TopologyResolvedEvent struct {
	Source        string        `json:"source"`
	FormatVersion string        `json:"formatVersion"`
	Revision      int64         `json:"revision,omitempty"`
	Endpoints     *endpoint.Set `json:"endpoints"`
	Timestamp     string        `json:"timestamp"`
}
