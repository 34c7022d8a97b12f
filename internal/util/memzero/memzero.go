// Package memzero wipes derived key material once it has been used.
package memzero

// Zero overwrites each buffer with zeros. Nil and empty buffers are skipped.
func Zero(bufs ...[]byte) {
	for _, b := range bufs {
		clear(b)
	}
}
