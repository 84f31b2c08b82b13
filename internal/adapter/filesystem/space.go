package filesystem

import (
	"os"
	"path/filepath"

	"github.com/skgchp/shoveover/internal/domain"
	"github.com/skgchp/shoveover/internal/port"
)

// DiskUsage represents disk usage statistics
type DiskUsage struct {
	Total   uint64  // Total disk space in bytes
	Used    uint64  // Used disk space in bytes
	Free    uint64  // Free disk space in bytes
	UsedPct float64 // Used percentage (0-100)
}

// Monitor reports free space via the platform's filesystem stats.
type Monitor struct{}

// Ensure Monitor implements port.SpaceMonitor
var _ port.SpaceMonitor = (*Monitor)(nil)

// NewMonitor creates a new space monitor
func NewMonitor() *Monitor {
	return &Monitor{}
}

// FreePercent returns free space as a whole percentage of the
// filesystem containing path.
func (m *Monitor) FreePercent(path string) (int, error) {
	usage, err := diskUsage(path)
	if err != nil {
		return 0, &domain.SpaceQueryError{Path: path, Err: err}
	}
	return 100 - int(usage.UsedPct), nil
}

// TreeSize returns the total size in bytes of all regular files under
// root, following no symlinks.
func TreeSize(root string) (int64, error) {
	var size int64
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.Mode().IsRegular() {
			size += info.Size()
		}
		return nil
	})
	return size, err
}
