package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/morezero/lvc-bridge/pkg/configdoc"
	"github.com/morezero/lvc-bridge/pkg/db"
	"github.com/morezero/lvc-bridge/pkg/endpoint"
	"github.com/morezero/lvc-bridge/pkg/engineconfig"
	"github.com/morezero/lvc-bridge/pkg/events"
	"github.com/morezero/lvc-bridge/pkg/semver"
)

const topologyLogPrefix = "server:topology"

// SourceDefaults is the source recorded when no configuration document is used.
const SourceDefaults = "defaults"

// Topology is one resolved endpoint set with its rendered engine configuration.
type Topology struct {
	Source        string               `json:"source"`
	Revision      int64                `json:"revision,omitempty"`
	FormatVersion string               `json:"formatVersion"`
	Endpoints     *endpoint.Set        `json:"endpoints"`
	Engine        *engineconfig.Config `json:"engineConfig"`
	ResolvedAt    time.Time            `json:"resolvedAt"`
}

// current returns the active topology, or nil before the first resolution.
func (s *Server) current() *Topology {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.topology
}

// resolveTopology loads the configuration document, resolves it and, only
// when every step succeeds, makes the result the active topology. On failure
// the previous topology stays active.
func (s *Server) resolveTopology(ctx context.Context) (*Topology, error) {
	doc, err := configdoc.Load(s.cfg.ConfigFile)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to load configuration document: %w", topologyLogPrefix, err)
	}
	source := SourceDefaults
	if doc != nil {
		source = doc.Source()
	}

	set, err := s.resolver.Resolve(ctx, doc, s.cfg.AppDataDir, s.cfg.EnabledCapabilities())
	if err != nil {
		return nil, fmt.Errorf("%s - failed to resolve endpoints from %s: %w", topologyLogPrefix, source, err)
	}

	engine, err := engineconfig.Render(set, engineconfig.Opts{Address: s.cfg.EngineAddress})
	if err != nil {
		return nil, fmt.Errorf("%s - failed to render engine configuration: %w", topologyLogPrefix, err)
	}

	t := &Topology{
		Source:        source,
		FormatVersion: semver.FormatVersion,
		Endpoints:     set,
		Engine:        engine,
		ResolvedAt:    time.Now().UTC(),
	}

	if s.repo != nil {
		rec, err := s.repo.SaveTopology(ctx, db.SaveTopologyParams{
			Source:       source,
			AppDataDir:   s.cfg.AppDataDir,
			Capabilities: s.cfg.Capabilities,
			Endpoints:    set,
		})
		if err != nil {
			return nil, fmt.Errorf("%s - failed to persist topology: %w", topologyLogPrefix, err)
		}
		t.Revision = rec.Revision
	}

	s.mu.Lock()
	s.topology = t
	s.mu.Unlock()

	err = s.publisher.PublishTopologyResolved(ctx, &events.TopologyResolvedEvent{
		Source:        t.Source,
		FormatVersion: t.FormatVersion,
		Revision:      t.Revision,
		Endpoints:     t.Endpoints,
		Timestamp:     t.ResolvedAt.Format(time.RFC3339),
	})
	if err != nil {
		slog.Warn(fmt.Sprintf("%s - failed to publish topology event: %v", topologyLogPrefix, err))
	}

	slog.Info(fmt.Sprintf("%s - Active topology from %s (%d endpoints, revision %d)", topologyLogPrefix, t.Source, set.Len(), t.Revision))
	return t, nil
}
