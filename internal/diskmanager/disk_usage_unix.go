//go:build linux || darwin

package diskmanager

import (
	"fmt"
	"syscall"
)

// GetDiskUsage returns the disk usage percentage for the filesystem
// containing the given path.
func GetDiskUsage(path string) (float64, error) {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		return 0, fmt.Errorf("failed to get disk stats: %w", err)
	}

	totalBlocks := stat.Blocks
	freeBlocks := stat.Bfree
	usedBlocks := totalBlocks - freeBlocks

	return float64(usedBlocks) / float64(totalBlocks) * 100.0, nil
}
