package catalog

import (
	"context"
	"errors"
)

// ChangeSet aggregates entry insertions/updates and deletions.
type ChangeSet struct {
	Upserts   []Entry
	Deletions []string
}

// Merge combines another change set into the receiver.
func (c *ChangeSet) Merge(other ChangeSet) {
	if len(other.Upserts) > 0 {
		c.Upserts = append(c.Upserts, other.Upserts...)
	}
	if len(other.Deletions) > 0 {
		c.Deletions = append(c.Deletions, other.Deletions...)
	}
}

// IsEmpty reports whether there are no recorded changes.
func (c ChangeSet) IsEmpty() bool {
	return len(c.Upserts) == 0 && len(c.Deletions) == 0
}

// SyncTarget consumes entry change notifications.
type SyncTarget interface {
	ApplyChanges(ctx context.Context, changes ChangeSet) error
}

// RegisterSyncTarget adds a target that receives every non-empty change set.
func (c *Catalog) RegisterSyncTarget(target SyncTarget) {
	if target == nil {
		return
	}
	c.targets = append(c.targets, target)
}

func (c *Catalog) initTargets() {
	c.initMeilisearch()
	if target := newShellTarget(&c.opts.Shell); target != nil {
		c.RegisterSyncTarget(target)
	}
}

// dispatchChanges hands changes to every target. All targets are attempted;
// their failures are joined.
func (c *Catalog) dispatchChanges(ctx context.Context, changes ChangeSet) error {
	if changes.IsEmpty() || len(c.targets) == 0 {
		return nil
	}

	logger := c.loggerOrDefault()
	var errs []error
	for _, target := range c.targets {
		if err := target.ApplyChanges(ctx, changes); err != nil {
			logger.Error("Sync target failed", "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
