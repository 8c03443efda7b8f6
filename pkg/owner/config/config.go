package config

import "time"

const (
	DefaultTable              = "dwhetl_owner"
	DefaultLeaseDuration      = 5 * time.Minute
	DefaultLeaseRenewInterval = 30 * time.Second
)

type OwnerConfig struct {
	// Identity written into the lease row, usually host:pid
	Who string
	// Table holding the single lease row
	Table string

	// Owner Lease Duration
	LeaseDuration time.Duration
	// Owner Lease Renew Interval
	LeaseRenewInterval time.Duration
}

// WithDefaults fills every zero field.
func (c OwnerConfig) WithDefaults() OwnerConfig {
	if c.Table == "" {
		c.Table = DefaultTable
	}
	if c.LeaseDuration <= 0 {
		c.LeaseDuration = DefaultLeaseDuration
	}
	if c.LeaseRenewInterval <= 0 {
		c.LeaseRenewInterval = DefaultLeaseRenewInterval
	}
	return c
}
