// Package redis provides the Redis client plus the small coordination
// primitives built on it: webhook event deduplication and the scheduled-job
// leader lock.
package redis
