// services/rewards.go
package services

import (
	"context"
	"fmt"

	"rewards-dashboard/metrics"
	"rewards-dashboard/models"
	"rewards-dashboard/store"

	log "github.com/sirupsen/logrus"
)

// Receipt collects the points events and achievements produced by one operation.
type Receipt struct {
	Events       []models.PointEvent  `json:"events"`
	Achievements []models.Achievement `json:"achievementsUnlocked"`
}

// Total is the sum of points credited.
func (r *Receipt) Total() int64 {
	var n int64
	for _, e := range r.Events {
		n += e.Points
	}
	return n
}

// publish records metrics; call only after the surrounding transaction committed.
func (r *Receipt) publish() {
	for _, e := range r.Events {
		metrics.RecordPoints(string(e.Source), e.Points)
	}
}

type grant struct {
	UserID    string
	Source    models.PointSource
	Points    int64
	Reference string
	Note      string
	Extra     store.UserDelta
}

// rewarder is the only code path that changes a user's points.
type rewarder struct {
	clock        Clock
	achievements *AchievementService
}

// credit applies g atomically and appends a history event when points change.
func (r *rewarder) credit(ctx context.Context, tx store.Store, rc *Receipt, g grant) error {
	delta := g.Extra
	delta.Points = g.Points
	if err := tx.IncrementUser(ctx, g.UserID, delta); err != nil {
		return fmt.Errorf("credit %s points: %w", g.Source, notFoundAs(err, ErrUserNotFound))
	}
	if g.Points == 0 {
		return nil
	}

	ev := models.PointEvent{
		UserID:    g.UserID,
		Source:    g.Source,
		Points:    g.Points,
		Reference: g.Reference,
		Note:      g.Note,
		CreatedAt: r.clock().UTC(),
	}
	if err := tx.AppendPointEvent(ctx, &ev); err != nil {
		return fmt.Errorf("append point event: %w", err)
	}
	rc.Events = append(rc.Events, ev)

	log.WithFields(log.Fields{
		"user_id": g.UserID,
		"source":  g.Source,
		"points":  g.Points,
		"ref":     g.Reference,
	}).Debug("points credited")
	return nil
}

// Grant credits points and then unlocks any achievements the new counters reach.
func (r *rewarder) Grant(ctx context.Context, tx store.Store, rc *Receipt, g grant) error {
	if err := r.credit(ctx, tx, rc, g); err != nil {
		return err
	}
	return r.achievements.evaluate(ctx, tx, rc, g.UserID, r)
}
