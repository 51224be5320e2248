// Package store provides durable session-sandbox binding persistence.
//
// The store package holds the one piece of shared mutable state in the
// system: the mapping from a session identifier to its currently-assigned
// sandbox identifier. Request handlers are stateless and independently
// scheduled, so all coordination across them happens through this store.
// The CompareAndSwap primitive is what lets concurrent sandbox
// recreations for one session resolve races without locks.
package store
