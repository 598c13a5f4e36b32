package ws

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/teralabs/queuewatch/internal/queue"
)

// Streamer pushes per-server snapshot JSON to active hub groups on a
// fixed interval.
type Streamer struct {
	hub      *Hub
	store    *queue.Store
	interval time.Duration
	logger   *zap.Logger
}

// NewStreamer creates a streamer over the given store.
func NewStreamer(hub *Hub, store *queue.Store, interval time.Duration, logger *zap.Logger) *Streamer {
	return &Streamer{
		hub:      hub,
		store:    store,
		interval: interval,
		logger:   logger,
	}
}

// Run starts the streaming loop. Call in a goroutine; returns when ctx
// is cancelled.
func (s *Streamer) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("snapshot streamer started", zap.Duration("interval", s.interval))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("snapshot streamer stopping")
			return

		case <-ticker.C:
			s.broadcastSnapshots()
		}
	}
}

// broadcastSnapshots builds one payload per subscribed server. The
// store is read once per tick; servers share the same point in time.
func (s *Streamer) broadcastSnapshots() {
	servers := s.hub.ActiveServers()
	if len(servers) == 0 {
		return
	}

	dungeons, battlegrounds, lastUpdated := s.store.SnapshotAll()
	now := time.Now().UTC().Format(time.RFC3339)

	for _, server := range servers {
		payload, err := json.Marshal(map[string]any{
			"server": server,
			"data": map[string]any{
				"dungeons":    filterRows(dungeons, server),
				"bgs":         filterRows(battlegrounds, server),
				"lastUpdated": lastUpdated.UTC().Format(time.RFC3339),
			},
			"timestamp": now,
		})
		if err != nil {
			s.logger.Debug("failed to encode snapshot",
				zap.String("server", server),
				zap.Error(err),
			)
			continue
		}
		s.hub.Broadcast(server, payload)
	}
}

func filterRows(rows []queue.Row, server string) []queue.Row {
	out := make([]queue.Row, 0, len(rows))
	for _, row := range rows {
		if row.Server == server {
			out = append(out, row)
		}
	}
	return out
}
