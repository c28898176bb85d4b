// Package rulestore keeps the active breaker rule set and refreshes it from a
// Source in the background.
//
// Readers call Current and get the latest fully published Snapshot without
// taking a lock. A refresh builds a new Snapshot off to the side and then
// swaps a single atomic pointer, so a reader sees either the old rule set or
// the new one, never a mix.
//
// Usage:
//
//	store, err := rulestore.New(ctx, source, rulestore.LoadAndRefreshPeriodically(30*time.Second),
//	    rulestore.WithEventLogger(events))
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	for _, r := range store.Current().Rules {
//	    // ...
//	}
package rulestore
