package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/morezero/lvc-bridge/internal/config"
	"github.com/morezero/lvc-bridge/pkg/bridge"
	"github.com/morezero/lvc-bridge/pkg/commsutil"
)

type probeOptions struct {
	query     string
	lookupIDs []string
	timeout   time.Duration
}

func newProbeCmd() *cobra.Command {
	opts := &probeOptions{}
	cmd := &cobra.Command{
		Use:       "probe search|lookup",
		Short:     "Send one request through a running bridge and print the correlated response",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{string(bridge.KindSearch), string(bridge.KindLookup)},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProbe(cmd, bridge.Kind(args[0]), opts)
		},
	}
	cmd.Flags().StringVarP(&opts.query, "query", "q", "coffee", "search query")
	cmd.Flags().StringSliceVar(&opts.lookupIDs, "id", nil, "POI id to look up, repeatable")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 15*time.Second, "how long to wait for the response")
	return cmd
}

// buildProbeRequest builds a request payload with a fresh requestId.
func buildProbeRequest(kind bridge.Kind, opts *probeOptions) (string, []byte, error) {
	id := uuid.NewString()
	var payload any
	if kind == bridge.KindLookup {
		payload = bridge.LookupQuery{RequestID: id, LookupIDs: opts.lookupIDs}
	} else {
		payload = bridge.SearchQuery{RequestID: id, Query: opts.query}
	}
	data, err := json.Marshal(payload)
	return id, data, err
}

func runProbe(cmd *cobra.Command, kind bridge.Kind, opts *probeOptions) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	setupCLILogging(cmd, cfg.LogLevel)

	requestSubject := commsutil.SubjectSearchRequest
	responseSubject := commsutil.SubjectSearchResponse
	if cfg.SearchRequestSubject != "" {
		requestSubject = cfg.SearchRequestSubject
	}
	if cfg.SearchResponseSubject != "" {
		responseSubject = cfg.SearchResponseSubject
	}
	if kind == bridge.KindLookup {
		requestSubject = commsutil.SubjectLookupRequest
		responseSubject = commsutil.SubjectLookupResponse
		if cfg.LookupRequestSubject != "" {
			requestSubject = cfg.LookupRequestSubject
		}
		if cfg.LookupResponseSubject != "" {
			responseSubject = cfg.LookupResponseSubject
		}
	}

	nc, err := commsutil.Connect(cfg.COMMSURL, cfg.COMMSName+"-probe")
	if err != nil {
		return err
	}
	defer nc.Close()

	sub, err := nc.SubscribeSync(responseSubject)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", responseSubject, err)
	}
	defer sub.Unsubscribe()

	id, payload, err := buildProbeRequest(kind, opts)
	if err != nil {
		return err
	}

	reply, err := nc.Request(requestSubject, payload, opts.timeout)
	if err != nil {
		return fmt.Errorf("request %s: %w", requestSubject, err)
	}
	var ack commsutil.Ack
	if err := commsutil.DecodePayload(reply.Data, &ack); err != nil {
		return fmt.Errorf("decode ack: %w", err)
	}
	if !ack.Handled {
		return fmt.Errorf("bridge did not handle request %s: %s", id, ack.Error)
	}

	deadline := time.Now().Add(opts.timeout)
	for {
		msg, err := sub.NextMsg(time.Until(deadline))
		if err != nil {
			return fmt.Errorf("waiting for response to %s: %w", id, err)
		}
		var resp bridge.Response
		if err := json.Unmarshal(msg.Data, &resp); err != nil || resp.RequestID != id {
			continue
		}
		out, err := json.MarshalIndent(resp, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	}
}
