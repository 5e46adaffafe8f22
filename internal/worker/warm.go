package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/tabfind/internal/model"
)

// Refresher refreshes the cached copy of a source
type Refresher interface {
	Warm(ctx context.Context, url string) (*model.LoadResult, error)
}

// WarmJob refreshes one source
type WarmJob struct {
	URL       string
	Refresher Refresher
}

// Execute executes the warm job
func (j *WarmJob) Execute(ctx context.Context) Result {
	result, err := j.Refresher.Warm(ctx, j.URL)
	if err != nil {
		return &WarmResult{URL: j.URL, Error: err}
	}
	return &WarmResult{URL: j.URL, Load: result}
}

// WarmResult represents the outcome of a warm job
type WarmResult struct {
	URL   string
	Load  *model.LoadResult
	Error error
}

// GetError returns the error from the warm result
func (r *WarmResult) GetError() error {
	return r.Error
}

// Warmer refreshes many sources concurrently
type Warmer struct {
	refresher   Refresher
	concurrency int
}

// NewWarmer creates a new warmer
func NewWarmer(refresher Refresher, concurrency int) *Warmer {
	return &Warmer{
		refresher:   refresher,
		concurrency: concurrency,
	}
}

// WarmURLs refreshes every URL. Results come back in input order.
func (w *Warmer) WarmURLs(ctx context.Context, urls []string) []*WarmResult {
	if len(urls) == 0 {
		return []*WarmResult{}
	}

	pool := NewPoolWithContext(ctx, w.concurrency)
	pool.Start()

	for _, url := range urls {
		pool.Submit(&WarmJob{URL: url, Refresher: w.refresher})
	}

	results := pool.Wait()

	byURL := make(map[string]*WarmResult, len(results))
	for _, result := range results {
		r := result.(*WarmResult)
		byURL[r.URL] = r
	}

	ordered := make([]*WarmResult, 0, len(urls))
	for _, url := range urls {
		if r, ok := byURL[url]; ok {
			ordered = append(ordered, r)
		} else if ctx.Err() != nil {
			ordered = append(ordered, &WarmResult{URL: url, Error: ctx.Err()})
		}
	}
	return ordered
}

// WarmFile reads URLs from a file and refreshes them concurrently
func (w *Warmer) WarmFile(ctx context.Context, filePath string) ([]*WarmResult, error) {
	urls, err := ReadURLsFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read URLs: %w", err)
	}

	return w.WarmURLs(ctx, urls), nil
}

// ReadURLsFromFile reads URLs from a file (one per line)
func ReadURLsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var urls []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !seen[line] {
			seen[line] = true
			urls = append(urls, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return urls, nil
}
