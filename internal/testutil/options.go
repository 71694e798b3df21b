package testutil

import "os"

// FileOption configures a file added with WithFile.
type FileOption func(*fileData)

// Mode sets the file permission bits.
func Mode(mode os.FileMode) FileOption {
	return func(f *fileData) {
		f.mode = mode
	}
}
