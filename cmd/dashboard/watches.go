package main

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/wnt/mychain-dash/internal/config"
	"github.com/wnt/mychain-dash/internal/queue"
	"github.com/wnt/mychain-dash/internal/signing"
)

// restoreWatches schedules the configured addresses and the address of the
// persisted wallet session for an immediate poll
func restoreWatches(ctx context.Context, cfg config.Config, store *queue.Client, logr zerolog.Logger) {
	addresses := append([]string(nil), cfg.WatchAddresses...)

	session, err := store.Session(ctx)
	if err != nil {
		logr.Warn().Err(err).Msg("Failed to restore wallet session")
	} else if session != nil {
		logr.Info().Str("address", session.Address).Str("wallet_kind", string(session.WalletKind)).Msg("Restored wallet session")
		addresses = append(addresses, session.Address)
	}

	now := time.Now()
	for _, addr := range addresses {
		if err := signing.ValidateAddress(addr, cfg.Bech32Prefix); err != nil {
			logr.Warn().Err(err).Str("address", addr).Msg("Skipping invalid watch address")
			continue
		}
		if err := store.Watch(ctx, addr, now); err != nil {
			logr.Error().Err(err).Str("address", addr).Msg("Failed to watch address")
		}
	}
}
