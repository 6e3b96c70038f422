// Package cache provides a size-bounded LRU cache.
//
// It keeps parsed index tables of sealed segments in memory. Sealed files
// never change, so entries are never stale; eviction only bounds memory.
package cache
