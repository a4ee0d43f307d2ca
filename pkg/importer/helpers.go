// CLAUDE:SUMMARY Fixture sources: local files or HTTP(S) downloads with retries and a size cap.
package importer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// maxFixtureBytes caps how much of a fixture is read.
const maxFixtureBytes = 32 << 20

var httpClient = &http.Client{Timeout: 2 * time.Minute}

// retryBase is the first backoff between download attempts.
var retryBase = time.Second

// Load reads and decodes a fixture from a file path or an http(s) URL.
func Load(ctx context.Context, src string) (*Fixture, error) {
	format, err := ForPath(src)
	if err != nil {
		return nil, err
	}

	var data []byte
	if isURL(src) {
		data, err = download(ctx, src)
	} else {
		data, err = readFile(src)
	}
	if err != nil {
		return nil, err
	}
	return format.Decode(bytes.NewReader(data))
}

func isURL(src string) bool {
	return strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://")
}

func readFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open fixture: %w", err)
	}
	defer f.Close()
	return readCapped(f)
}

func readCapped(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxFixtureBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	if len(data) > maxFixtureBytes {
		return nil, fmt.Errorf("fixture larger than %d bytes", maxFixtureBytes)
	}
	return data, nil
}

// download fetches url with retries and exponential backoff. Client errors
// (4xx) are not retried.
func download(ctx context.Context, url string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		if attempt > 0 {
			backoff := retryBase << uint(attempt-1)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}

		resp, err := httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			lastErr = fmt.Errorf("HTTP %d for %s", resp.StatusCode, url)
			if resp.StatusCode >= 400 && resp.StatusCode < 500 {
				return nil, lastErr
			}
			continue
		}

		data, err := readCapped(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}
		return data, nil
	}
	return nil, fmt.Errorf("download %s failed after 3 attempts: %w", url, lastErr)
}
