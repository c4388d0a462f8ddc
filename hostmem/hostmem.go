// Package hostmem reads the host's actual memory usage from procfs, a
// stand-in for the external collaborator a real kernel's physical
// memory detector would be: this allocator manages a simulated page
// table, and hostmem is how a process embedding it can sanity-check
// its configured frame count against what the machine it's running on
// actually has.
package hostmem

import (
	"github.com/prometheus/procfs"

	"kalloc/page"
)

// Snapshot summarizes /proc/meminfo in terms this allocator's
// configuration can be compared against.
type Snapshot struct {
	TotalBytes     uint64
	FreeBytes      uint64
	AvailableBytes uint64
}

// FramesAvailable reports how many page.Size frames the snapshot's
// available memory could back. It uses AvailableBytes rather than
// FreeBytes: on a host with anything resident in the page cache, the
// two diverge substantially, and MemAvailable is the figure that
// actually estimates reclaimable capacity.
func (s Snapshot) FramesAvailable() int {
	return int(s.AvailableBytes / page.Size)
}

// Read fetches a fresh snapshot from /proc/meminfo.
func Read() (Snapshot, error) {
	fs, err := procfs.NewDefaultFS()
	if err != nil {
		return Snapshot{}, err
	}
	info, err := fs.Meminfo()
	if err != nil {
		return Snapshot{}, err
	}

	var s Snapshot
	if info.MemTotal != nil {
		s.TotalBytes = *info.MemTotal * 1024
	}
	if info.MemFree != nil {
		s.FreeBytes = *info.MemFree * 1024
	}
	if info.MemAvailable != nil {
		s.AvailableBytes = *info.MemAvailable * 1024
	}
	return s, nil
}
