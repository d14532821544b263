// Package fsinfo identifies the filesystem a benchmark target lives on.
package fsinfo

// Info describes the filesystem backing a path.
type Info struct {
	Type       string
	BlockSize  int64
	TotalBytes uint64
	FreeBytes  uint64
	FreeInodes uint64
}
