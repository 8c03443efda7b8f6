package config

import "github.com/pingcap/errors"

var (
	// ErrConfigNotFound is returned when the configuration file can not be read.
	ErrConfigNotFound = errors.Normalize("configuration file %s not found",
		errors.RFCCodeText("DWH:Config:ErrConfigNotFound"))
	// ErrMissingKey is returned when a required key is absent or empty.
	ErrMissingKey = errors.Normalize("missing configuration key [%s] %s",
		errors.RFCCodeText("DWH:Config:ErrMissingKey"))
	// ErrInvalidValue is returned when a key is present but its value can not be used.
	ErrInvalidValue = errors.Normalize("invalid value for configuration key [%s] %s: %s",
		errors.RFCCodeText("DWH:Config:ErrInvalidValue"))
)
