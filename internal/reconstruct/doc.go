// Package reconstruct decodes the frames of one episode from a set of
// segments and crops the requested environment's tile out of each.
//
// Every source segment is decoded by its own goroutine (bounded by the
// configured concurrency) into output slots assigned up front, so the result
// order depends only on the order of the sources and their offsets.
package reconstruct
