// Package cache keeps decoded narration clips so repeated steps, replays and
// language toggles do not refetch them. A byte-bounded memory LRU sits in
// front of a zstd-compressed disk cache that survives restarts.
package cache
