package core

import (
	"io"
	"io/fs"
	"os"
)

// CopyFile copies the contents of src to dst within fsys, creating or
// truncating dst with perm. An error from closing dst is returned.
func CopyFile(fsys FS, src, dst string, perm fs.FileMode) error {
	in, err := fsys.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := fsys.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
