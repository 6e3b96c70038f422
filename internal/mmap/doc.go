// Package mmap maps sealed segment files read-only into memory.
//
// Sealed video segments are immutable, so retrieval reads frame records
// straight out of the mapping instead of issuing one pread per frame:
//
//	m, err := mmap.Open("frames_3.trjv")
//	if err != nil { ... }
//	defer m.Close()
//	_ = m.Advise(mmap.AccessRandom)
//
// On Unix the mapping uses mmap(2)/madvise(2) via golang.org/x/sys/unix. Other
// platforms fall back to reading the file into memory behind the same API.
//
// Close is idempotent. Callers must not touch slices returned by Bytes after
// Close returns.
package mmap
