// Package owner makes sure only one process rebuilds the warehouse at a time.
// The drop and create statements are destructive, so a second run starting
// halfway through the first would leave both with broken tables.
package owner

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/pingcap/errors"
	"github.com/pingcap/log"
	"github.com/sparkify/dwhetl/pkg/owner/config"
	"github.com/sparkify/dwhetl/pkg/owner/meta"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	ErrOwnerHeld = errors.Normalize("another run is in progress, owned by %s",
		errors.RFCCodeText("DWH:Owner:ErrOwnerHeld"))
	ErrLeaseLost = errors.Normalize("lost the owner lease of %s",
		errors.RFCCodeText("DWH:Owner:ErrLeaseLost"))
)

type Campaign struct {
	cfg config.OwnerConfig

	backend meta.Backend

	isOwner atomic.Bool
}

func NewCampaign(cfg config.OwnerConfig, backend meta.Backend) *Campaign {
	return &Campaign{
		cfg:     cfg.WithDefaults(),
		backend: backend,
	}
}

// Acquire bootstraps the lease table and takes the lease once. It does not
// wait for another holder to finish.
func (c *Campaign) Acquire(ctx context.Context) error {
	if err := c.backend.Bootstrap(ctx); err != nil {
		return errors.Annotate(err, "failed to bootstrap owner table")
	}
	success, err := c.backend.TryCampaignOwner(ctx, c.cfg.Who, c.cfg.LeaseDuration)
	if err != nil {
		return errors.Annotate(err, "failed to campaign owner")
	}
	if !success {
		holder, err := c.backend.GetOwner(ctx)
		if err != nil {
			return errors.Trace(err)
		}
		return ErrOwnerHeld.GenWithStackByArgs(holder)
	}
	c.isOwner.Store(true)
	log.Info("Acquired owner lease", zap.String("who", c.cfg.Who), zap.Duration("lease", c.cfg.LeaseDuration))
	return nil
}

// Start renews the lease until ctx is done. Losing the lease fails the group,
// which cancels the run sharing its context.
func (c *Campaign) Start(eg *errgroup.Group, ctx context.Context) {
	eg.Go(func() error {
		ticker := time.NewTicker(c.cfg.LeaseRenewInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				success, err := c.backend.RenewOwnerLease(ctx, c.cfg.Who, c.cfg.LeaseDuration)
				if err != nil {
					if ctx.Err() != nil {
						return nil
					}
					log.Warn("Failed to renew owner lease", zap.Error(err))
					continue
				}
				if !success {
					// Someone else has taken the owner
					c.isOwner.Store(false)
					return ErrLeaseLost.GenWithStackByArgs(c.cfg.Who)
				}
			case <-ctx.Done():
				return nil
			}
		}
	})
}

// Release gives the lease back so the next run does not wait for expiry.
func (c *Campaign) Release(ctx context.Context) error {
	if !c.isOwner.Swap(false) {
		return nil
	}
	if err := c.backend.ReleaseOwner(ctx, c.cfg.Who); err != nil {
		return errors.Annotate(err, "failed to release owner lease")
	}
	log.Info("Released owner lease", zap.String("who", c.cfg.Who))
	return nil
}

func (c *Campaign) IsOwner() bool {
	return c.isOwner.Load()
}
