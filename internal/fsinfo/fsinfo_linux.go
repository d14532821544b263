//go:build linux

package fsinfo

import (
	"fmt"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

var magicNames = map[int64]string{
	0x0000ef53: "ext4",
	0x58465342: "xfs",
	0x9123683e: "btrfs",
	0x01021994: "tmpfs",
	0x00006969: "nfs",
	0x794c7630: "overlayfs",
	0x00c36400: "cephfs",
	0x0bd00bd0: "lustre",
	0x47504653: "gpfs",
	0x65735546: "fuse",
	0x2fc12fc1: "zfs",
	0xff534d42: "cifs",
	0x5346544e: "ntfs",
	0x4d44:     "vfat",
}

// Probe runs statfs on path.
func Probe(path string) (Info, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return Info{}, errors.Wrapf(err, "statfs %s", path)
	}
	bsize := int64(st.Bsize)
	return Info{
		Type:       typeName(int64(st.Type)),
		BlockSize:  bsize,
		TotalBytes: st.Blocks * uint64(bsize),
		FreeBytes:  st.Bavail * uint64(bsize),
		FreeInodes: st.Ffree,
	}, nil
}

func typeName(magic int64) string {
	if name, ok := magicNames[magic]; ok {
		return name
	}
	return fmt.Sprintf("0x%x", magic)
}
