// Package common holds sentinel errors shared across the storage layers.
package common

import "errors"

var (
	// ErrKeyNotFound names an absent key. The tree's Remove and Get report
	// an absent key through their boolean result and do not return it.
	ErrKeyNotFound = errors.New("key not found")

	// ErrDuplicateKey names a key that is already present. The tree's
	// Insert reports a duplicate through its boolean result and does not
	// return it.
	ErrDuplicateKey = errors.New("key already exists")

	// ErrClosed names use of a closed storage engine. No package in this
	// module returns it.
	ErrClosed = errors.New("storage engine closed")

	// ErrBufferPoolExhausted is returned when no frame can be evicted to
	// satisfy a fetch or allocation; the tree treats this as fatal.
	ErrBufferPoolExhausted = errors.New("buffer pool exhausted: no evictable frame")

	// ErrPageNotPinned is returned by Unpin when the page is not resident
	// or already has a zero pin count.
	ErrPageNotPinned = errors.New("page is not pinned")

	// ErrPagePinned is returned when an operation that requires a page to
	// be unpinned (e.g. deleting it from the pool) finds it still pinned.
	ErrPagePinned = errors.New("page is still pinned")
)
