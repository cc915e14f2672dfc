package trigger

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"github.com/kbnam33/scheduleflow-mvp-sub001/internal/config"
	"github.com/kbnam33/scheduleflow-mvp-sub001/internal/llm"
	"github.com/kbnam33/scheduleflow-mvp-sub001/internal/store"
)

// Engine is the timer-driven job that scans recent events and produces
// AI-generated suggestions for users who keep re-triggering the watched
// event type.
type Engine struct {
	db        *store.DB
	completer *llm.Completer
	cfg       config.TriggerConfig
	stopCh    chan struct{}
	running   atomic.Bool // single-flight: a tick never overlaps the previous one
}

// New creates a trigger engine. Zero-value config fields fall back to
// the standard cadence (5 min interval, 30 min lookback, threshold 4).
func New(db *store.DB, completer *llm.Completer, cfg config.TriggerConfig) *Engine {
	if cfg.IntervalSeconds <= 0 {
		cfg.IntervalSeconds = 300
	}
	if cfg.LookbackSeconds <= 0 {
		cfg.LookbackSeconds = 1800
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = 4
	}
	if cfg.EventType == "" {
		cfg.EventType = "home_opened"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 256
	}
	return &Engine{
		db:        db,
		completer: completer,
		cfg:       cfg,
		stopCh:    make(chan struct{}),
	}
}

// Start launches the self-scheduling tick loop.
func (e *Engine) Start() {
	go func() {
		ticker := time.NewTicker(time.Duration(e.cfg.IntervalSeconds) * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := e.RunOnce(context.Background()); err != nil {
					log.Printf("trigger: tick failed: %v", err)
				}
			case <-e.stopCh:
				return
			}
		}
	}()
}

// Stop shuts down the tick loop.
func (e *Engine) Stop() {
	close(e.stopCh)
}

// RunOnce executes one tick: aggregate recent trigger events per user,
// and for every user at or above the threshold generate one nudge
// suggestion. A failure for one user never aborts the others. If the
// previous tick is still running, the new one is skipped.
func (e *Engine) RunOnce(ctx context.Context) error {
	if !e.running.CompareAndSwap(false, true) {
		log.Printf("trigger: previous tick still running, skipping")
		return nil
	}
	defer e.running.Store(false)

	now := time.Now()
	lookback := time.Duration(e.cfg.LookbackSeconds) * time.Second
	since := now.Add(-lookback)

	counts, err := e.db.CountEventsByUserSince(e.cfg.EventType, since)
	if err != nil {
		return err
	}

	for userID, count := range counts {
		if count < e.cfg.Threshold {
			continue
		}
		if e.onCooldown(userID, now) {
			continue
		}

		message, err := e.completer.Text(ctx, llm.NudgePrompt(userID, count, lookback), e.cfg.MaxTokens)
		if err != nil {
			log.Printf("trigger: nudge generation failed for %s: %v", userID, err)
			continue
		}

		if _, err := e.db.InsertSuggestion(userID, message); err != nil {
			log.Printf("trigger: store suggestion for %s: %v", userID, err)
			continue
		}
		log.Printf("trigger: suggestion created for %s (%d %s events)", userID, count, e.cfg.EventType)
	}

	return nil
}

// onCooldown suppresses repeat nudges: a user whose event count stays
// above threshold across consecutive ticks gets at most one suggestion
// per cooldown window. CooldownSeconds <= 0 disables suppression.
func (e *Engine) onCooldown(userID string, now time.Time) bool {
	if e.cfg.CooldownSeconds <= 0 {
		return false
	}
	latest, err := e.db.LatestSuggestionTime(userID)
	if err != nil {
		log.Printf("trigger: cooldown check for %s: %v", userID, err)
		return false
	}
	if latest == 0 {
		return false
	}
	cutoff := now.Add(-time.Duration(e.cfg.CooldownSeconds) * time.Second).UnixMilli()
	return latest > cutoff
}
