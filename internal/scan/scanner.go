// Package scan tokenizes files and interns every token, reporting how much
// the interning deduplicated.
package scan

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"

	"github.com/standardbeagle/atom/internal/alloc"
	"github.com/standardbeagle/atom/internal/config"
	"github.com/standardbeagle/atom/internal/debug"
	atomerrors "github.com/standardbeagle/atom/internal/errors"
	"github.com/standardbeagle/atom/internal/sniff"
	"github.com/standardbeagle/atom/pkg/atom"
	"github.com/standardbeagle/atom/pkg/pathutil"
)

// Scanner walks a directory tree and interns the tokens of every accepted
// file. A Scanner may be reused and is safe for concurrent use.
type Scanner struct {
	config    *config.Config
	tokenize  Tokenizer
	buffers   *alloc.SlabAllocator[atom.Atom]
	exclusion []string
	inclusion []string
}

// New creates a scanner for cfg. cfg should already be validated; an unknown
// tokenize mode falls back to words.
func New(cfg *config.Config) *Scanner {
	tokenize, err := TokenizerFor(cfg.Scan.Tokenize)
	if err != nil {
		debug.LogScan("%v, using words\n", err)
		tokenize = Words
	}

	return &Scanner{
		config:    cfg,
		tokenize:  tokenize,
		buffers:   alloc.NewTokenSlabAllocator[atom.Atom](),
		exclusion: append([]string(nil), cfg.Exclude...),
		inclusion: append([]string(nil), cfg.Include...),
	}
}

// BufferStats reports token buffer reuse across scans.
func (s *Scanner) BufferStats() alloc.AllocatorStats {
	return s.buffers.GetStats()
}

// candidate is a file accepted by the walk
type candidate struct {
	path string
	size int64
}

// Scan walks the configured root, tokenizes every accepted file using up to
// Performance.Workers goroutines and interns each token. Per-file failures
// are recorded in Report.Errors; the returned error is only set when the
// walk itself fails or ctx is cancelled.
func (s *Scanner) Scan(ctx context.Context) (*Report, error) {
	start := time.Now()
	root := s.config.Scan.Root
	report := &Report{Root: root}

	debug.LogScan("Starting scan of %s\n", root)

	files, skipped, err := s.collect(ctx, root)
	if err != nil {
		return nil, atomerrors.NewScanError(root, err)
	}
	report.SkippedFiles = skipped

	var (
		mu        sync.Mutex
		counts    = make(map[atom.Atom]int)
		fileErrs  []error
		bytesSeen int64
		tokens    int
		scanned   int
	)

	g, gctx := errgroup.WithContext(ctx)
	workers := s.config.Performance.Workers
	if workers <= 0 {
		workers = 1
	}
	g.SetLimit(workers)

	for _, f := range files {
		f := f
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			buf, binary, err := s.tokenizeFile(f.path, f.size)
			if err != nil {
				mu.Lock()
				fileErrs = append(fileErrs, err)
				mu.Unlock()
				return nil
			}

			mu.Lock()
			if binary {
				report.SkippedFiles++
			} else {
				scanned++
				tokens += len(buf)
				for _, a := range buf {
					counts[a]++
					bytesSeen += int64(a.Len())
				}
			}
			mu.Unlock()

			s.buffers.Put(buf)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, atomerrors.NewScanError(root, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, atomerrors.NewScanError(root, err)
	}

	report.Files = scanned
	report.Tokens = tokens
	report.UniqueTokens = len(counts)
	report.BytesSeen = bytesSeen
	for a := range counts {
		report.BytesUnique += int64(a.Len())
	}
	report.Top = topEntries(counts, s.config.Report.Top)
	report.Registry = atom.ReadStats()
	if err := atomerrors.NewMultiError(fileErrs).ErrorOrNil(); err != nil {
		for _, e := range fileErrs {
			report.Errors = append(report.Errors, e.Error())
		}
		debug.LogScan("Scan of %s finished with %d file errors: %v\n", root, len(fileErrs), err)
	}
	report.Duration = time.Since(start)

	debug.LogScan("Scanned %d files, %d tokens, %d unique in %v\n",
		report.Files, report.Tokens, report.UniqueTokens, report.Duration)
	return report, nil
}

// ScanFile tokenizes and interns a single file. Binary files yield an empty
// result.
func (s *Scanner) ScanFile(path string) (FileResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileResult{}, atomerrors.NewFileError("stat", path, err)
	}
	if info.IsDir() {
		return FileResult{}, atomerrors.NewFileError("scan", path, fmt.Errorf("is a directory"))
	}

	buf, _, err := s.tokenizeFile(path, info.Size())
	if err != nil {
		return FileResult{}, err
	}
	defer s.buffers.Put(buf)

	distinct := make(map[atom.Atom]struct{}, len(buf))
	for _, a := range buf {
		distinct[a] = struct{}{}
	}
	return FileResult{
		Path:     path,
		Size:     info.Size(),
		Tokens:   len(buf),
		Distinct: len(distinct),
	}, nil
}

// tokenizeFile reads path and interns its tokens into a pooled buffer. The
// caller must return the buffer with s.buffers.Put.
func (s *Scanner) tokenizeFile(path string, size int64) (buf []atom.Atom, binary bool, err error) {
	if size > s.config.Scan.MaxFileSize {
		return nil, false, atomerrors.NewFileError("read", path,
			fmt.Errorf("%w: %d > %d bytes", atomerrors.ErrTooLarge, size, s.config.Scan.MaxFileSize))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false, atomerrors.NewFileError("read", path, err)
	}

	if sniff.IsBinary(data) {
		debug.LogScan("Skipping binary file %s (%s)\n", path, sniff.Signature(data))
		return nil, true, nil
	}

	minLen := s.config.Scan.MinTokenLength
	buf = s.buffers.Get(len(data)/6 + 1)
	s.tokenize(data, func(tok []byte) {
		if minLen > 0 && (len(tok) < minLen || utf8.RuneCount(tok) < minLen) {
			return
		}
		if len(buf) == cap(buf) {
			buf = s.buffers.GrowSlice(buf, 1)
		}
		buf = append(buf, atom.FromBytes(tok))
	})
	return buf, false, nil
}

// collect walks root and returns the accepted files. skipped counts files
// that matched the patterns but exceed MaxFileSize.
func (s *Scanner) collect(ctx context.Context, root string) ([]candidate, int, error) {
	var (
		files   []candidate
		skipped int
		visited = make(map[string]bool)
	)

	realRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		realRoot = root
	}

	// walk lists dir, reporting paths under displayDir. dir is resolved first
	// because WalkDir does not descend into a symlinked root.
	var walk func(dir, displayDir string) error
	walk = func(dir, displayDir string) error {
		if real, err := filepath.EvalSymlinks(dir); err == nil {
			if visited[real] {
				debug.LogScan("Cycle detected, skipping already visited: %s -> %s\n", displayDir, real)
				return nil
			}
			visited[real] = true
			dir = real
		}

		return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if err != nil {
				if path == dir {
					return err
				}
				debug.LogScan("Scanner error for %s: %v\n", path, err)
				return nil
			}

			display := displayDir
			if path != dir {
				rel, _ := filepath.Rel(dir, path)
				display = filepath.Join(displayDir, rel)
			}
			rel := pathutil.MatchKey(display, root)

			if d.Type()&fs.ModeSymlink != 0 {
				if !s.config.Scan.FollowSymlinks {
					return nil
				}
				target, err := filepath.EvalSymlinks(path)
				if err != nil {
					return nil
				}
				// Targets under the root are reached, and matched, by their own path
				if within(realRoot, target) {
					debug.LogScan("Skipping link into the root: %s -> %s\n", display, target)
					return nil
				}
				info, err := os.Stat(target)
				if err != nil {
					return nil
				}
				if info.IsDir() {
					if s.excludeDir(rel) {
						return nil
					}
					return walk(path, display)
				}
				s.consider(rel, display, info.Size(), &files, &skipped)
				return nil
			}

			if d.IsDir() {
				if path != dir && s.excludeDir(rel) {
					return filepath.SkipDir
				}
				if path != dir && visitedReal(path, visited) {
					return filepath.SkipDir
				}
				return nil
			}

			if !d.Type().IsRegular() {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return nil
			}
			s.consider(rel, display, info.Size(), &files, &skipped)
			return nil
		})
	}

	if err := walk(root, root); err != nil {
		return nil, 0, err
	}
	return files, skipped, nil
}

// within reports whether path is dir or lies below it.
func within(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// visitedReal records a directory reached through the normal walk so a
// symlink pointing at it later is not walked twice.
func visitedReal(path string, visited map[string]bool) bool {
	real, err := filepath.EvalSymlinks(path)
	if err != nil {
		return false
	}
	if visited[real] {
		return true
	}
	visited[real] = true
	return false
}

func (s *Scanner) consider(rel, path string, size int64, files *[]candidate, skipped *int) {
	if !s.acceptFile(rel) {
		return
	}
	if size > s.config.Scan.MaxFileSize {
		debug.LogScan("Skipping oversized file %s (%d bytes > %d limit)\n", path, size, s.config.Scan.MaxFileSize)
		*skipped++
		return
	}
	*files = append(*files, candidate{path: path, size: size})
}

// Accepts reports whether path under root would be scanned by name alone.
func (s *Scanner) Accepts(root, path string) bool {
	return s.acceptFile(pathutil.MatchKey(path, root))
}

// ExcludesDir reports whether the directory path under root is pruned.
func (s *Scanner) ExcludesDir(root, path string) bool {
	if path == root {
		return false
	}
	return s.excludeDir(pathutil.MatchKey(path, root))
}

func (s *Scanner) acceptFile(rel string) bool {
	return !s.shouldExclude(rel) && s.shouldInclude(rel)
}

func (s *Scanner) excludeDir(rel string) bool {
	return s.shouldExclude(rel) || s.shouldExclude(rel+"/")
}

func (s *Scanner) shouldExclude(rel string) bool {
	for _, pattern := range s.exclusion {
		if matched, err := doublestar.Match(pattern, rel); err == nil && matched {
			return true
		}
	}
	return false
}

// shouldInclude reports whether rel matches an include pattern; no patterns
// means everything is included.
func (s *Scanner) shouldInclude(rel string) bool {
	if len(s.inclusion) == 0 {
		return true
	}
	for _, pattern := range s.inclusion {
		if matched, err := doublestar.Match(pattern, rel); err == nil && matched {
			return true
		}
	}
	return false
}
