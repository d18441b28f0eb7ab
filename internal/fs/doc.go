// Package fs abstracts the file system calls of the local blob store so tests
// can inject I/O failures.
//
// Production code uses fs.Default, which is [LocalFS]. Tests wrap it in a
// [FaultyFS]:
//
//	ffs := fs.NewFaultyFS(nil)
//	ffs.AddRule(".tmp", fs.Fault{FailAfterBytes: 1024})
//	store := blobstore.NewLocalStore(dir, blobstore.WithFileSystem(ffs))
//
// Calls take no context.Context; local file operations cannot be interrupted
// at the syscall level.
package fs
