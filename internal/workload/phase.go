package workload

import "fmt"

// Phase identifies one ordered stage of the workload.
type Phase int

const (
	DirCreate Phase = iota
	FileCreate
	FileStat
	FileChmod
	FileRename
	DirStat
	FileRemove
	DirRemove
)

var phaseTitles = map[Phase]string{
	DirCreate:  "dir creates",
	FileCreate: "file creates",
	FileStat:   "file stats",
	FileChmod:  "file chmods",
	FileRename: "file renames",
	DirStat:    "dir stats",
	FileRemove: "file removes",
	DirRemove:  "dir removes",
}

func (p Phase) String() string {
	if t, ok := phaseTitles[p]; ok {
		return t
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// OpError reports a failed filesystem call. The run is aborted on the first
// one; the tree is left as it was at the time of failure.
type OpError struct {
	Phase Phase
	Op    string
	Path  string
	Err   error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Phase, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}
