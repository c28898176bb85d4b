// Package circuitbreaker implements the rule-driven circuit breaker that sits
// in front of an upstream API.
//
// Circuit state is partitioned by rule key (see rule.Key) and lives in a
// Table of immutable Context snapshots. The Engine runs two operations around
// every forwarded call:
//
//   - FindOpenCircuit, before forwarding: returns the first open circuit (in
//     rule order) matching the request, closing circuits whose cooldown has
//     expired along the way. A black-listed client always gets an open
//     circuit.
//   - CheckCircuit, after forwarding: counts matching failures per key, emits
//     a low-watermark event and opens the circuit once the high watermark is
//     reached. A non-matching response resets the counter only.
//
// Usage:
//
//	engine := circuitbreaker.NewEngine(store, address.NewFinder(false),
//	    circuitbreaker.WithEventLogger(events))
//
//	if open := engine.FindOpenCircuit(r); open != nil {
//	    // reject with open.Rule.Enforcement
//	}
//	// forward...
//	engine.CheckCircuit(r, resp.StatusCode)
//
// All internal faults degrade to letting the request through.
package circuitbreaker
