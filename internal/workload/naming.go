package workload

import (
	"path/filepath"
	"strconv"
)

const (
	dirPrefix  = "dir."
	filePrefix = "file."

	renameSuffix = "_moved"
)

// DirPath returns the path of directory i under root.
func DirPath(root string, i int) string {
	return filepath.Join(root, dirPrefix+strconv.Itoa(i))
}

// FilePath returns the path of file j in directory i. With no directories
// configured (flat layout) the file lives directly under root and i is
// ignored.
func FilePath(root string, i, j, dirs int) string {
	base := root
	if dirs > 0 {
		base = DirPath(root, i)
	}
	return filepath.Join(base, filePrefix+strconv.Itoa(j))
}
