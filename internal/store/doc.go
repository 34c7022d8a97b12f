// Package store persists dapp sessions and queues bridge messages.
//
// It contains concrete implementations of the domain storage interfaces:
//   - Sessions on disk, optionally sealed under a passphrase (FileSessionStore)
//   - Sessions in Redis (RedisSessionStore)
//   - Pending bridge messages in memory (MemoryQueue) or Redis (RedisQueue)
//
// File stores serialise JSON and replace files atomically. All types are
// safe for concurrent use.
package store
