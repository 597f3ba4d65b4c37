package cmd

import "time"

func (d *deviceConfig) commandTimeout(defaultTimeout time.Duration) time.Duration {
	if d.CommandTimeout <= 0 {
		return defaultTimeout
	}
	return d.CommandTimeout
}
