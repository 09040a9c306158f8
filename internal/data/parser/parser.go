// Package parser streams activity records from JSONL exports produced by the
// host. It is the adapter between files on disk and the aggregator fold.
package parser

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"iter"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bytedance/sonic"
	"github.com/penwyp/go-activity-report/internal/core/model"
	"github.com/penwyp/go-activity-report/internal/util"
)

const maxLineSize = 10 * 1024 * 1024

// Parser is a struct for parsing activity record files.
type Parser struct {
	concurrency int
	mu          sync.Mutex
	cache       map[string]cachedFile

	lines   atomic.Int64
	records atomic.Int64
	skipped atomic.Int64
}

type cachedFile struct {
	info    *util.FileInfo
	records []model.ActivityRecord
}

// ParseResult represents the result of parsing a single file.
type ParseResult struct {
	File    string
	Records []model.ActivityRecord
	Error   error
}

// Stats counts lines seen across all files parsed by a Parser.
type Stats struct {
	Lines   int64
	Records int64
	Skipped int64
}

// NewParser creates a new Parser instance.
func NewParser(concurrency int) *Parser {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Parser{
		concurrency: concurrency,
		cache:       make(map[string]cachedFile),
	}
}

// Stats returns the running line counters.
func (p *Parser) Stats() Stats {
	return Stats{
		Lines:   p.lines.Load(),
		Records: p.records.Load(),
		Skipped: p.skipped.Load(),
	}
}

// ParseFile parses the file at path. Invalid lines are skipped. Results are
// cached until the file changes on disk.
func (p *Parser) ParseFile(path string) ([]model.ActivityRecord, error) {
	info, infoErr := util.GetFileInfo(path)

	p.mu.Lock()
	if cached, ok := p.cache[path]; ok && infoErr == nil && cached.info.Same(info) {
		p.mu.Unlock()
		return cached.records, nil
	}
	p.mu.Unlock()

	util.LogDebugf("Start parsing file: %s", path)

	file, err := os.Open(path)
	if err != nil {
		util.LogDebugf("Failed to open file: %s - %v", path, err)
		return nil, err
	}
	defer file.Close()

	var records []model.ActivityRecord
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	lineCount := 0
	for scanner.Scan() {
		lineCount++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		p.lines.Add(1)

		var record model.ActivityRecord
		if line[0] != '{' {
			p.skipped.Add(1)
			util.LogDebugf("Skip non-object line %s:%d", path, lineCount)
			continue
		}
		if err := sonic.Unmarshal(line, &record); err != nil {
			p.skipped.Add(1)
			util.LogDebugf("Skip invalid JSON line %s:%d - %v", path, lineCount, err)
			continue
		}
		p.records.Add(1)
		records = append(records, record)
	}

	if err := scanner.Err(); err != nil {
		util.LogDebugf("Error scanning file: %s - %v", path, err)
		return nil, fmt.Errorf("failed to scan %s: %w", path, err)
	}

	if infoErr == nil {
		p.mu.Lock()
		p.cache[path] = cachedFile{info: info, records: records}
		p.mu.Unlock()
	}

	return records, nil
}

// ParseFiles parses multiple files concurrently and returns a channel of
// ParseResult. Files not yet started when ctx is cancelled report ctx.Err().
func (p *Parser) ParseFiles(ctx context.Context, files []string) <-chan ParseResult {
	start := time.Now()
	results := make(chan ParseResult, len(files))
	var wg sync.WaitGroup

	util.LogDebugf("Start concurrent parsing of %d files, concurrency: %d", len(files), p.concurrency)

	semaphore := make(chan struct{}, p.concurrency)

	for _, file := range files {
		wg.Add(1)
		go func(f string) {
			defer wg.Done()

			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			if err := ctx.Err(); err != nil {
				results <- ParseResult{File: f, Error: err}
				return
			}

			fileStart := time.Now()
			records, err := p.ParseFile(f)
			if err != nil {
				util.LogDebugf("File parsing failed: %s, duration %v - %v", f, time.Since(fileStart), err)
			}

			results <- ParseResult{
				File:    f,
				Records: records,
				Error:   err,
			}
		}(file)
	}

	go func() {
		wg.Wait()
		close(results)
		util.LogDebugf("Concurrent parsing finished, total duration: %v", time.Since(start))
	}()

	return results
}

// Records streams every record of files. Files that cannot be read are
// logged and skipped. Iteration stops early when ctx is cancelled or the
// consumer stops; in-flight workers finish into the buffered channel.
func (p *Parser) Records(ctx context.Context, files []string) iter.Seq[model.ActivityRecord] {
	return func(yield func(model.ActivityRecord) bool) {
		for result := range p.ParseFiles(ctx, files) {
			if result.Error != nil {
				if ctx.Err() == nil {
					util.LogWarnf("Skipping unreadable activity file %s: %v", result.File, result.Error)
				}
				continue
			}
			for _, record := range result.Records {
				if ctx.Err() != nil {
					return
				}
				if !yield(record) {
					return
				}
			}
		}
	}
}
