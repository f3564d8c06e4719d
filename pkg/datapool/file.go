package datapool

import (
	"bufio"
	"fmt"
	"io"
	"iter"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// metaLineInterval bounds how many line/offset pairs the sidecar index
// file carries: one entry per interval lines, capped so a huge datapool
// doesn't produce a huge index (a 100M-line file gets 100 checkpoints).
const metaLineInterval = 1_000_000

type metaEntry struct {
	line   int
	offset int64
}

// File is a large-text-file-backed datapool. It maintains a ".<name>.meta"
// sidecar of (line_number, byte_offset) pairs so checkout can seek close to
// the requested range instead of scanning the whole file.
type File struct {
	path       string
	metaPath   string
	recyclable bool
	index      int

	metaEntries []metaEntry

	lenOnce  sync.Once
	lenCache int
	lenErr   error
}

// NewFile opens filename as a non-recyclable file datapool, building (or
// loading) its sidecar metadata index.
func NewFile(filename string) (*File, error) {
	return newFile(filename, false)
}

// NewRecyclableFile is the wrap-around variant: checkout with stop < start
// yields the tail of the file then wraps to the head.
func NewRecyclableFile(filename string) (*File, error) {
	return newFile(filename, true)
}

func newFile(filename string, recyclable bool) (*File, error) {
	if _, err := os.Stat(filename); err != nil {
		return nil, fmt.Errorf("%s doesn't exist: %w", filename, err)
	}

	metaPath := filepath.Join(filepath.Dir(filename), "."+filepath.Base(filename)+".meta")
	if metaStale(filename, metaPath) {
		if err := buildMetaIndex(filename, metaPath); err != nil {
			return nil, err
		}
	}

	entries, err := loadMetaIndex(metaPath)
	if err != nil {
		// A corrupt sidecar (bad format, non-numeric fields) is rebuilt
		// from scratch rather than surfaced to the caller.
		if rerr := buildMetaIndex(filename, metaPath); rerr != nil {
			return nil, rerr
		}
		if entries, err = loadMetaIndex(metaPath); err != nil {
			return nil, err
		}
	}

	return &File{path: filename, metaPath: metaPath, recyclable: recyclable, metaEntries: entries}, nil
}

func (d *File) Recyclable() bool { return d.recyclable }
func (d *File) Index() int       { return d.index }
func (d *File) SetIndex(i int)   { d.index = i }

// Len counts remaining lines from the last known meta checkpoint onward,
// so a cold count scans fewer than metaLineInterval lines instead of the
// whole file, then caches the result.
func (d *File) Len() (int, error) {
	d.lenOnce.Do(func() {
		lineNumber, offset := 0, int64(0)
		if n := len(d.metaEntries); n > 0 {
			last := d.metaEntries[n-1]
			lineNumber, offset = last.line, last.offset
		}

		f, err := os.Open(d.path)
		if err != nil {
			d.lenErr = err
			return
		}
		defer f.Close()
		if _, err := f.Seek(offset, io.SeekStart); err != nil {
			d.lenErr = err
			return
		}

		reader := bufio.NewReader(f)
		for {
			line, err := reader.ReadString('\n')
			if len(line) > 0 {
				lineNumber++
			}
			if err != nil {
				break
			}
		}
		d.lenCache = lineNumber
	})
	return d.lenCache, d.lenErr
}

// Checkout yields lines in [start, stop). A nil stop reads to the end. For
// a recyclable file, stop < start wraps: lines[start:len) then lines[0:stop).
func (d *File) Checkout(start int, stop *int) (iter.Seq[string], error) {
	if start < 0 {
		return nil, fmt.Errorf("%w: start %d must be non-negative", ErrDatapoolExhausted, start)
	}
	n, err := d.Len()
	if err != nil {
		return nil, err
	}
	if start > n {
		return nil, fmt.Errorf("%w: start %d exceeds length %d", ErrDatapoolExhausted, start, n)
	}
	if stop != nil && *stop < 0 {
		return nil, fmt.Errorf("%w: stop %d must be non-negative", ErrDatapoolExhausted, *stop)
	}

	if stop != nil && *stop < start {
		if !d.recyclable {
			return nil, fmt.Errorf("%w: stop %d before start %d on a non-recyclable datapool", ErrDatapoolExhausted, *stop, start)
		}
		first, err := d.extractChunk(start, &n)
		if err != nil {
			return nil, err
		}
		second, err := d.extractChunk(0, stop)
		if err != nil {
			return nil, err
		}
		return func(yield func(string) bool) {
			for v := range first {
				if !yield(v) {
					return
				}
			}
			for v := range second {
				if !yield(v) {
					return
				}
			}
		}, nil
	}

	return d.extractChunk(start, stop)
}

// extractChunk seeks to the closest indexed point at or before start and
// scans forward, counting physical lines 1-based. Yielding covers lines
// (start, stop]: the first yielded physical line is start+1, which is the
// item at 0-based position start, so the file pool hands out the same
// half-open [start, stop) item range as the in-memory pool.
func (d *File) extractChunk(start int, stop *int) (iter.Seq[string], error) {
	if stop != nil && *stop <= start {
		return func(func(string) bool) {}, nil
	}

	closestLine, closestOffset := 0, int64(0)
	if start != 0 {
		closestLine, closestOffset = d.seekClosestPoint(start)
	}

	f, err := os.Open(d.path)
	if err != nil {
		return nil, err
	}
	if _, err := f.Seek(closestOffset, io.SeekStart); err != nil {
		f.Close()
		return nil, err
	}

	return func(yield func(string) bool) {
		defer f.Close()
		reader := bufio.NewReader(f)
		currentLine := closestLine
		for {
			line, err := reader.ReadString('\n')
			if len(line) > 0 {
				currentLine++
				if currentLine > start {
					if !yield(strings.TrimRight(line, "\r\n")) {
						return
					}
				}
				if stop != nil && currentLine >= *stop {
					return
				}
			}
			if err != nil {
				return
			}
		}
	}, nil
}

// seekClosestPoint returns the largest (line, offset) meta checkpoint with
// line <= start.
func (d *File) seekClosestPoint(start int) (int, int64) {
	i := sort.Search(len(d.metaEntries), func(i int) bool { return d.metaEntries[i].line > start })
	if i == 0 {
		return 0, 0
	}
	e := d.metaEntries[i-1]
	return e.line, e.offset
}

// metaStale reports whether the sidecar is missing or older than the data
// file it indexes.
func metaStale(filename, metaPath string) bool {
	metaInfo, err := os.Stat(metaPath)
	if err != nil {
		return true
	}
	dataInfo, err := os.Stat(filename)
	if err != nil {
		return true
	}
	return metaInfo.ModTime().Before(dataInfo.ModTime())
}

func loadMetaIndex(metaPath string) ([]metaEntry, error) {
	f, err := os.Open(metaPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var entries []metaEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, ",", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("datapool: malformed index line %q in %s", line, metaPath)
		}
		lineNumber, err := strconv.Atoi(parts[0])
		if err != nil {
			return nil, fmt.Errorf("datapool: non-numeric line number %q in %s", parts[0], metaPath)
		}
		offset, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("datapool: non-numeric offset %q in %s", parts[1], metaPath)
		}
		entries = append(entries, metaEntry{line: lineNumber, offset: offset})
	}
	return entries, scanner.Err()
}

// buildMetaIndex writes a line_number,byte_offset sidecar: a first pass
// counts total lines, a second pass records a checkpoint every
// min(lineCount, metaLineInterval) lines.
func buildMetaIndex(filename, metaPath string) error {
	lineCount, err := countLines(filename)
	if err != nil {
		return err
	}
	if lineCount == 0 {
		return os.WriteFile(metaPath, nil, 0o644)
	}

	interval := lineCount
	if interval > metaLineInterval {
		interval = metaLineInterval
	}

	f, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	mf, err := os.Create(metaPath)
	if err != nil {
		return err
	}
	defer mf.Close()

	writer := bufio.NewWriter(mf)
	defer writer.Flush()

	reader := bufio.NewReader(f)
	var lineNumber int
	var seekPoint int64
	for {
		line, err := reader.ReadString('\n')
		if len(line) > 0 {
			lineNumber++
			seekPoint += int64(len(line))
			if lineNumber%interval == 0 {
				fmt.Fprintf(writer, "%d,%d\n", lineNumber, seekPoint)
			}
		}
		if err != nil {
			break
		}
	}
	return nil
}

func countLines(filename string) (int, error) {
	f, err := os.Open(filename)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	reader := bufio.NewReader(f)
	var count int
	for {
		line, err := reader.ReadString('\n')
		if len(line) > 0 {
			count++
		}
		if err != nil {
			break
		}
	}
	return count, nil
}
