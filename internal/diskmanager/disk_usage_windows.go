//go:build windows

package diskmanager

import (
	"fmt"
	"syscall"
	"unsafe"
)

// GetDiskUsage returns the disk usage percentage for the filesystem
// containing the given path.
func GetDiskUsage(path string) (float64, error) {
	kernel32 := syscall.NewLazyDLL("kernel32.dll")
	getDiskFreeSpaceEx := kernel32.NewProc("GetDiskFreeSpaceExW")

	var freeBytesAvailable, totalNumberOfBytes, totalNumberOfFreeBytes int64

	utf16Path, err := syscall.UTF16PtrFromString(path)
	if err != nil {
		return 0, fmt.Errorf("failed to convert path to UTF16: %w", err)
	}

	_, _, callErr := getDiskFreeSpaceEx.Call(
		uintptr(unsafe.Pointer(utf16Path)),
		uintptr(unsafe.Pointer(&freeBytesAvailable)),
		uintptr(unsafe.Pointer(&totalNumberOfBytes)),
		uintptr(unsafe.Pointer(&totalNumberOfFreeBytes)),
	)
	if callErr != syscall.Errno(0) {
		return 0, fmt.Errorf("failed to get disk free space: %w", callErr)
	}

	used := totalNumberOfBytes - totalNumberOfFreeBytes
	return float64(used) / float64(totalNumberOfBytes) * 100.0, nil
}
