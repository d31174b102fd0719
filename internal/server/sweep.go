package server

import (
	"context"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/plumeai/plume/internal/logging"
	"github.com/plumeai/plume/internal/svc"
	"github.com/plumeai/plume/internal/types"
)

// sweepLookback bounds which conversations the first sweep visits: anything
// with activity since the previous day. Later sweeps pick up from the
// recorded end of the previous one.
const sweepLookback = 24 * time.Hour

const lastSweepKey = "memory_last_sweep_at"

// startSweep schedules the periodic memory-extraction sweep. Returns nil
// when the memory feature is off.
func startSweep(svcCtx *svc.ServiceContext) *cron.Cron {
	if !svcCtx.Config.IsMemoryEnabled() {
		return nil
	}
	c := cron.New()
	spec := svcCtx.Config.Memory.SweepCron
	if _, err := c.AddFunc(spec, func() { runSweep(svcCtx) }); err != nil {
		logging.Errorf("sweep: invalid cron spec %q: %v", spec, err)
		return nil
	}
	c.Start()
	logging.Infof("memory extraction sweep scheduled: %s", spec)
	return c
}

// runSweep extracts memories from every recently active conversation. Each
// conversation fails independently; one bad extraction never stops the
// sweep.
func runSweep(svcCtx *svc.ServiceContext) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	started := time.Now()
	since := started.Add(-sweepLookback)
	if v, err := svcCtx.DB.Settings.Get(ctx, lastSweepKey, ""); err == nil && v != "" {
		if unix, err := strconv.ParseInt(v, 10, 64); err == nil {
			since = time.Unix(unix, 0)
		}
	}

	ids, err := svcCtx.DB.Turns.ListActiveConversations(ctx, since)
	if err != nil {
		logging.Errorf("sweep: list active conversations: %v", err)
		return
	}
	if len(ids) == 0 {
		markSweepDone(ctx, svcCtx, started)
		return
	}

	window := svcCtx.Config.Memory.SweepWindow
	inserted, skipped := 0, 0
	for _, id := range ids {
		turns, err := svcCtx.DB.Turns.RecentTurns(ctx, id, window)
		if err != nil {
			logging.Warnf("sweep: load turns for %s: %v", id, err)
			continue
		}
		msgs := make([]types.Message, 0, len(turns))
		for _, t := range turns {
			msgs = append(msgs, types.Message{Role: t.Role, Content: t.Content})
		}
		res, err := svcCtx.Memories.Run(ctx, msgs)
		if err != nil {
			logging.Warnf("sweep: extraction for %s: %v", id, err)
			continue
		}
		inserted += res.Inserted
		skipped += res.Skipped
	}
	logging.Infof("sweep: visited %d conversations, inserted %d memories, skipped %d",
		len(ids), inserted, skipped)
	markSweepDone(ctx, svcCtx, started)
}

func markSweepDone(ctx context.Context, svcCtx *svc.ServiceContext, at time.Time) {
	if err := svcCtx.DB.Settings.Set(ctx, lastSweepKey, strconv.FormatInt(at.Unix(), 10)); err != nil {
		logging.Warnf("sweep: record sweep time: %v", err)
	}
}
