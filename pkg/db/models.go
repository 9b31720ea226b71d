package db

import (
	"time"

	"github.com/morezero/lvc-bridge/pkg/endpoint"
)

// TopologyRecord represents a row in the endpoint_topologies table.
type TopologyRecord struct {
	Revision      int64         `json:"revision"`
	Source        string        `json:"source"`
	AppDataDir    string        `json:"app_data_dir"`
	Capabilities  []string      `json:"capabilities"`
	FormatVersion string        `json:"format_version"`
	Endpoints     *endpoint.Set `json:"endpoints"`
	Created       time.Time     `json:"created"`
}

// SaveTopologyParams holds parameters for SaveTopology.
type SaveTopologyParams struct {
	Source       string
	AppDataDir   string
	Capabilities []string
	Endpoints    *endpoint.Set
}
