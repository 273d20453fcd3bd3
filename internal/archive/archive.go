// Package archive keeps a raw copy of every feed snapshot as
// newline-delimited JSON, rotated daily with the previous day
// compressed. The archive is independent of the database: it is the
// untouched source data, replayable if the schema ever changes.
package archive

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Archive writes raw snapshots to daily files
type Archive struct {
	dir      string
	file     *os.File
	mu       sync.Mutex
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// New creates a new Archive writing into dir
func New(dir string) *Archive {
	return &Archive{
		dir:      dir,
		stopChan: make(chan struct{}),
	}
}

// Start opens today's archive file and starts the rotation timer
func (a *Archive) Start() error {
	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create archive directory: %w", err)
	}

	a.mu.Lock()
	err := a.openFile()
	a.mu.Unlock()
	if err != nil {
		return err
	}

	a.wg.Add(1)
	go a.rotationTimer()

	return nil
}

// Stop closes the current file and stops the rotation timer
func (a *Archive) Stop() error {
	close(a.stopChan)
	a.wg.Wait()

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.file != nil {
		return a.file.Close()
	}
	return nil
}

// WriteSnapshot appends one raw snapshot document as a single line
func (a *Archive) WriteSnapshot(data []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.file == nil {
		if err := a.openFile(); err != nil {
			return err
		}
	}

	if len(data) > 0 && data[len(data)-1] == '\n' {
		_, err := a.file.Write(data)
		return err
	}
	_, err := a.file.Write(append(data, '\n'))
	return err
}

// rotationTimer rotates at midnight UTC
func (a *Archive) rotationTimer() {
	defer a.wg.Done()

	for {
		now := time.Now().UTC()
		nextMidnight := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, time.UTC)

		select {
		case <-time.After(nextMidnight.Sub(now)):
			if err := a.rotateAndCompress(); err != nil {
				fmt.Printf("Error during archive rotation: %v\n", err)
			}
		case <-a.stopChan:
			return
		}
	}
}

// rotateAndCompress closes the current file, gzips yesterday's file
// and opens a new one for today.
func (a *Archive) rotateAndCompress() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.file != nil {
		a.file.Close()
		a.file = nil
	}

	yesterday := time.Now().UTC().AddDate(0, 0, -1)
	yesterdayFile := a.fileName(yesterday)

	if _, err := os.Stat(yesterdayFile); err == nil {
		if err := compressFile(yesterdayFile); err != nil {
			return fmt.Errorf("failed to compress archive: %w", err)
		}
	}

	return a.openFile()
}

// openFile opens today's archive file for appending. Callers hold a.mu.
func (a *Archive) openFile() error {
	file, err := os.OpenFile(a.fileName(time.Now().UTC()), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open archive file: %w", err)
	}
	a.file = file
	return nil
}

func (a *Archive) fileName(day time.Time) string {
	return filepath.Join(a.dir, fmt.Sprintf("aircraft_%s.jsonl", day.Format("2006-01-02")))
}

// compressFile gzips a file in place and removes the original
func compressFile(path string) error {
	source, err := os.Open(path)
	if err != nil {
		return err
	}
	defer source.Close()

	target, err := os.Create(path + ".gz")
	if err != nil {
		return err
	}
	defer target.Close()

	gz := gzip.NewWriter(target)
	if _, err := io.Copy(gz, source); err != nil {
		gz.Close()
		return err
	}
	if err := gz.Close(); err != nil {
		return err
	}

	return os.Remove(path)
}
