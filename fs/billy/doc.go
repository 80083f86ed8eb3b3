// Package billy provides core.FS implementations backed by go-billy.
//
// NewLocal wraps osfs and NewMemory wraps memfs; New adapts any other
// billy.Filesystem. Unwrap returns the billy filesystem underneath for
// callers that need the billy API directly.
//
//	fsys := billy.NewLocal("/")
//	m, err := archiver.Extract(ctx, r, fsys, "/tmp/out")
package billy
