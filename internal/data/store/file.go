package store

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"

	"github.com/penwyp/go-activity-report/internal/util"
)

const (
	fileExt        = ".json"
	tempFilePrefix = "."
)

type MissReason int

const (
	MissReasonNone MissReason = iota
	MissReasonError
	MissReasonInode
	MissReasonSize
	MissReasonModTime
	MissReasonNotFound
)

func (r MissReason) String() string {
	switch r {
	case MissReasonNone:
		return "none"
	case MissReasonError:
		return "error"
	case MissReasonInode:
		return "inode"
	case MissReasonSize:
		return "size"
	case MissReasonModTime:
		return "modtime"
	case MissReasonNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

type fileEntry struct {
	value []byte
	info  *util.FileInfo
}

// FileBackend stores one file per key inside the app-group directory. Reads
// are served from memory while the file on disk is unchanged; writes go
// through a temp file and a rename so readers never see partial content.
type FileBackend struct {
	baseDir     string
	mu          sync.RWMutex
	memoryCache map[string]*fileEntry
	lastMiss    MissReason
}

// NewFileBackend creates the app-group directory under storeDir if needed.
func NewFileBackend(storeDir, appGroup string) (*FileBackend, error) {
	baseDir := filepath.Join(storeDir, url.PathEscape(appGroup))
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory %s: %w", baseDir, err)
	}

	return &FileBackend{
		baseDir:     baseDir,
		memoryCache: make(map[string]*fileEntry),
	}, nil
}

// Dir returns the directory holding the key files.
func (f *FileBackend) Dir() string {
	return f.baseDir
}

// KeyFromPath maps a key file path back to its key. Temp files and files
// without the key extension report false.
func KeyFromPath(path string) (string, bool) {
	name := filepath.Base(path)
	if strings.HasPrefix(name, tempFilePrefix) || !strings.HasSuffix(name, fileExt) {
		return "", false
	}
	key, err := url.PathUnescape(strings.TrimSuffix(name, fileExt))
	if err != nil {
		return "", false
	}
	return key, true
}

func (f *FileBackend) path(key string) string {
	return filepath.Join(f.baseDir, url.PathEscape(key)+fileExt)
}

func (f *FileBackend) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	path := f.path(key)
	f.lastMiss = MissReasonNotFound
	if entry, exists := f.memoryCache[key]; exists {
		if reason := validateEntry(path, entry); reason == MissReasonNone {
			f.lastMiss = MissReasonNone
			return slices.Clone(entry.value), nil
		} else {
			f.lastMiss = reason
			delete(f.memoryCache, key)
		}
	}

	entry, err := readEntry(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		f.lastMiss = MissReasonError
		return nil, fmt.Errorf("failed to read key %s: %w", key, err)
	}

	f.memoryCache[key] = entry
	return slices.Clone(entry.value), nil
}

// LastMissReason reports why the most recent Get could not be served from
// memory.
func (f *FileBackend) LastMissReason() MissReason {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.lastMiss
}

func validateEntry(path string, entry *fileEntry) MissReason {
	currentInfo, err := util.GetFileInfo(path)
	if err != nil {
		if os.IsNotExist(err) {
			return MissReasonNotFound
		}
		util.LogDebugf("Store validation failed for %s: unable to get file info: %v", path, err)
		return MissReasonError
	}

	if currentInfo.Inode != entry.info.Inode {
		util.LogDebugf("Store entry invalidated for %s: inode changed (cached: %d, current: %d)",
			path, entry.info.Inode, currentInfo.Inode)
		return MissReasonInode
	}
	if currentInfo.Size != entry.info.Size {
		util.LogDebugf("Store entry invalidated for %s: size changed (cached: %d, current: %d)",
			path, entry.info.Size, currentInfo.Size)
		return MissReasonSize
	}
	if currentInfo.ModTime != entry.info.ModTime {
		util.LogDebugf("Store entry invalidated for %s: modtime changed (cached: %d, current: %d)",
			path, entry.info.ModTime, currentInfo.ModTime)
		return MissReasonModTime
	}
	return MissReasonNone
}

// readEntry reads a file together with the info of the version it read.
// The info comes from the open handle so a concurrent rename cannot pair new
// info with old content.
func readEntry(path string) (*fileEntry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, err
	}
	info, err := util.FileInfoFromStat(stat)
	if err != nil {
		return nil, err
	}
	value, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}
	return &fileEntry{value: value, info: info}, nil
}

func (f *FileBackend) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	path := f.path(key)
	tmp, err := os.CreateTemp(f.baseDir, tempFilePrefix+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", key, err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write key %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write key %s: %w", key, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to commit key %s: %w", key, err)
	}

	info, err := util.GetFileInfo(path)
	if err != nil {
		delete(f.memoryCache, key)
		return nil
	}
	f.memoryCache[key] = &fileEntry{value: slices.Clone(value), info: info}
	return nil
}

func (f *FileBackend) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.memoryCache, key)
	if err := os.Remove(f.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete key %s: %w", key, err)
	}
	return nil
}

func (f *FileBackend) Keys(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	paths, err := f.keyFiles()
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(paths))
	for _, path := range paths {
		if key, ok := KeyFromPath(path); ok && strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	slices.Sort(keys)
	return keys, nil
}

func (f *FileBackend) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.memoryCache = make(map[string]*fileEntry)
	return nil
}

// Clear removes every key file and empties the memory front.
func (f *FileBackend) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.memoryCache = make(map[string]*fileEntry)

	paths, err := f.keyFiles()
	if err != nil {
		return err
	}
	for _, path := range paths {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove %s: %w", path, err)
		}
	}
	return nil
}

func (f *FileBackend) keyFiles() ([]string, error) {
	entries, err := os.ReadDir(f.baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to scan store directory: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if _, ok := KeyFromPath(entry.Name()); ok {
			paths = append(paths, filepath.Join(f.baseDir, entry.Name()))
		}
	}
	return paths, nil
}

// Preload reads every key file into memory using a worker pool.
func (f *FileBackend) Preload() error {
	files, err := f.keyFiles()
	if err != nil {
		return err
	}

	if len(files) == 0 {
		util.LogDebug("Store directory is empty, skipping preload")
		return nil
	}

	numWorkers := runtime.NumCPU()
	if numWorkers > len(files) {
		numWorkers = len(files)
	}

	util.LogDebugf("Preloading %d store files with %d workers", len(files), numWorkers)

	filesChan := make(chan string, len(files))
	resultsChan := make(chan preloadResult, len(files))

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go preloadWorker(filesChan, resultsChan, &wg)
	}

	for _, file := range files {
		filesChan <- file
	}
	close(filesChan)

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	loaded := 0
	errors := 0

	f.mu.Lock()
	for result := range resultsChan {
		if result.err != nil {
			errors++
			util.LogWarnf("Failed to preload store file %s: %v", result.filePath, result.err)
			continue
		}
		f.memoryCache[result.key] = result.entry
		loaded++
	}
	f.mu.Unlock()

	util.LogDebugf("Store preload complete: %d loaded, %d errors (total %d)", loaded, errors, len(files))
	return nil
}

type preloadResult struct {
	filePath string
	key      string
	entry    *fileEntry
	err      error
}

func preloadWorker(filesChan <-chan string, resultsChan chan<- preloadResult, wg *sync.WaitGroup) {
	defer wg.Done()

	for filePath := range filesChan {
		result := preloadResult{filePath: filePath}

		key, ok := KeyFromPath(filePath)
		if !ok {
			result.err = fmt.Errorf("invalid store file name format")
			resultsChan <- result
			continue
		}
		result.key = key

		entry, err := readEntry(filePath)
		if err != nil {
			result.err = err
			resultsChan <- result
			continue
		}
		result.entry = entry
		resultsChan <- result
	}
}

// Stats returns the number of keys held in memory and on disk.
func (f *FileBackend) Stats() (memoryCount, fileCount int) {
	f.mu.RLock()
	memoryCount = len(f.memoryCache)
	f.mu.RUnlock()

	files, err := f.keyFiles()
	if err == nil {
		fileCount = len(files)
	}
	return memoryCount, fileCount
}
