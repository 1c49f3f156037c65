// Package store provides the durable single-key persistence primitive the
// position log and device config are built on. Every Write is atomic and
// durable once it returns; there are no multi-key transactions and the
// write-ahead protocol is designed not to need any.
package store

// Store is a single-key read/write primitive.
type Store interface {
	// Read returns the value stored under key, or found == false when the
	// key has never been written.
	Read(key string) (value []byte, found bool, err error)

	// Write durably stores value under key. On return the value survives
	// power loss.
	Write(key string, value []byte) error
}
