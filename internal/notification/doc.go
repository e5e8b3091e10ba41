// Package notification holds the value type that moves through toasts and the
// two pure stages every fetched batch passes through before it is displayed.
//
// record.go defines Record. Identity is the (Source, UID) pair; Title and Body
// are not part of it, so a source editing a message's text does not make it
// new. Records without a UID are synthetic (overflow and error records) and
// never compare equal to anything.
//
// history.go provides History, the per-client memory of identities that were
// already let through. History.FilterNew is the only mutator.
//
// throttle.go provides the pure Throttle function that caps a batch and appends
// a single overflow record describing what was held back.
package notification
