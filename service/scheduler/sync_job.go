package scheduler

import (
	"context"

	"github.com/rs/zerolog"
)

// ConfiguredSymbolSyncer refreshes the cached prices of every saved configuration
type ConfiguredSymbolSyncer interface {
	SyncConfiguredSymbols(ctx context.Context) (int, error)
}

// SyncJob keeps the price cache warm so analyses of saved configurations skip the upstream fetch
type SyncJob struct {
	syncer ConfiguredSymbolSyncer
	log    zerolog.Logger
}

func NewSyncJob(syncer ConfiguredSymbolSyncer, log zerolog.Logger) *SyncJob {
	return &SyncJob{syncer: syncer, log: log}
}

func (j *SyncJob) Name() string {
	return "sync_configured_symbols"
}

func (j *SyncJob) Run(ctx context.Context) error {
	n, err := j.syncer.SyncConfiguredSymbols(ctx)
	j.log.Info().Int("synced", n).Msg("price cache sync finished")
	return err
}
