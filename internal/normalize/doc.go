// Package normalize reduces raw catalog responses to the canonical schema in [models].
//
// Upstream items are semi-structured: the same logical field shows up under different keys
// or with different types depending on the endpoint that produced it. Each ambiguous field has
// one accessor in fields.go that tries an ordered list of keys and shapes.
//
// Nothing in this package returns an error. An item that cannot be resolved is dropped from
// its list and the drop is logged.
package normalize
