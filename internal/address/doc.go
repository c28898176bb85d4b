// Package address resolves the network address of the caller behind an
// inbound request. It is the default AddressSource used by per-client rules,
// white lists and black lists.
package address
