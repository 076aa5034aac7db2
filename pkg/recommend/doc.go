// Package recommend builds bounded, deduplicated lists of suggested menu items.
//
// A Request names an ordered list of strategies. The Pipeline consults them in
// that order against a shrinking need, each strategy excluding whatever
// is already chosen, and tops up with RandomFallback when the declared sources
// run dry. Service puts a cache-aside layer in front of the pipeline: results
// are stored under a key derived from the canonical request and dropped by
// prefix when menu items or orders change.
//
// Every returned list holds at most Request.Limit items, none of them excluded
// or in the cart, none repeated, all active and available, grouped in the
// order their strategies were consulted.
//
// Store failures of a single strategy are logged and skipped. Cache failures
// degrade to direct computation. Only a store that fails for every strategy
// attempted surfaces as ErrBackendUnavailable.
package recommend
