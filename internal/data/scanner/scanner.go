package scanner

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/penwyp/go-activity-report/internal/util"
)

const activityExt = ".jsonl"

// FileScanner finds activity exports under a directory
type FileScanner struct {
	baseDir string
}

// NewFileScanner creates a new FileScanner instance
func NewFileScanner(baseDir string) *FileScanner {
	return &FileScanner{
		baseDir: baseDir,
	}
}

// Scan returns all .jsonl file paths under the base directory in lexical
// order. A base path that is itself a file is returned as is.
func (s *FileScanner) Scan() ([]string, error) {
	start := time.Now()

	info, err := os.Stat(s.baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to stat input %s: %w", s.baseDir, err)
	}
	if !info.IsDir() {
		return []string{s.baseDir}, nil
	}

	var files []string
	dirCount := 0
	totalCount := 0

	util.LogDebugf("Start scanning directory: %s", s.baseDir)

	err = filepath.Walk(s.baseDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			util.LogDebugf("Skip file (error): %s - %v", path, err)
			return nil
		}

		if info.IsDir() {
			dirCount++
			return nil
		}

		totalCount++
		if strings.HasSuffix(strings.ToLower(path), activityExt) {
			files = append(files, path)
		}

		return nil
	})

	slices.Sort(files)
	util.LogDebugf("File scan completed: duration %v, scanned %d directories, %d files, found %d JSONL files",
		time.Since(start), dirCount, totalCount, len(files))

	return files, err
}
