// Package fs provides the filesystem seam used by the segment writer, the
// index log, and segment discovery.
//
//   - [File]: an open file with read/write/seek/sync capabilities
//   - [FileSystem]: open, remove, rename, stat, mkdir and directory listing
//
// Production code uses [Default] ([LocalFS]). Tests wrap it in [FaultyFS] to
// make specific files fail on open, write, sync, close or rename:
//
//	ffs := fs.NewFaultyFS(nil)
//	ffs.AddRule("episodes_", fs.Fault{FailOnRename: true})
//
// Operations take no context.Context: local file I/O is not interruptible at
// the syscall level.
package fs
