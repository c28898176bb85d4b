package rulestore

import "time"

// Strategy says whether the store loads once or keeps refreshing.
type Strategy struct {
	Refresh  bool
	Interval time.Duration
}

func LoadOnce() Strategy {
	return Strategy{}
}

func LoadAndRefreshPeriodically(interval time.Duration) Strategy {
	return Strategy{Refresh: true, Interval: interval}
}
