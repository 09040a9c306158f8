package util

import (
	"fmt"
	"os"
	"syscall"
)

// FileInfo identifies one version of a file on disk. Atomic rename-based
// writes always change Inode, so a reader can detect replacement even when
// size and mtime collide.
type FileInfo struct {
	ModTime int64  // Modification time in Unix nanoseconds
	Size    int64  // File size in bytes
	Inode   uint64 // Inode number (unique file identifier on Unix-like systems)
}

// GetFileInfo retrieves file information, including the inode number.
// Supported on Linux and macOS.
func GetFileInfo(filepath string) (*FileInfo, error) {
	stat, err := os.Stat(filepath)
	if err != nil {
		return nil, err
	}
	return FileInfoFromStat(stat)
}

// FileInfoFromStat builds a FileInfo from an existing stat result, such as
// the one returned by (*os.File).Stat.
func FileInfoFromStat(stat os.FileInfo) (*FileInfo, error) {
	sysStat, ok := stat.Sys().(*syscall.Stat_t)
	if !ok {
		return nil, fmt.Errorf("failed to get file system information: %s", stat.Name())
	}

	return &FileInfo{
		ModTime: stat.ModTime().UnixNano(),
		Size:    stat.Size(),
		Inode:   sysStat.Ino,
	}, nil
}

// Same reports whether two infos describe the same file version.
func (fi *FileInfo) Same(other *FileInfo) bool {
	if fi == nil || other == nil {
		return false
	}
	return fi.ModTime == other.ModTime && fi.Size == other.Size && fi.Inode == other.Inode
}
