package fetcher

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

const requestTimeout = 60 * time.Second

var (
	// Two known Google Drive share-link shapes:
	//   https://drive.google.com/file/d/<id>/view?usp=sharing
	//   https://drive.google.com/open?id=<id>  (and uc?id=<id> variants)
	drivePathIDRe  = regexp.MustCompile(`/file/d/([a-zA-Z0-9_-]+)`)
	driveQueryIDRe = regexp.MustCompile(`[?&]id=([a-zA-Z0-9_-]+)`)

	// Confirmation token embedded in the large-file warning page
	driveConfirmRe = regexp.MustCompile(`confirm=([0-9A-Za-z_-]+)`)
)

type Fetcher struct {
	client *http.Client

	// driveBase is overridable in tests; production uses Google's endpoint.
	driveBase string
}

func New() *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Timeout: requestTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		driveBase: "https://drive.google.com",
	}
}

// Fetch resolves a source URL to a local file at destination, creating parent
// directories as needed. Google Drive share links get the direct-download
// treatment, including the consent-token retry for large files; anything else
// is a plain streamed GET.
func (f *Fetcher) Fetch(ctx context.Context, url, destination string) error {
	if fileID, ok := driveFileID(url); ok {
		return f.fetchDrive(ctx, fileID, destination)
	}
	return f.fetchDirect(ctx, url, destination)
}

// driveFileID extracts the Drive file identifier from either known URL shape.
func driveFileID(url string) (string, bool) {
	if !strings.Contains(url, "drive.google.com") {
		return "", false
	}
	if m := drivePathIDRe.FindStringSubmatch(url); m != nil {
		return m[1], true
	}
	if m := driveQueryIDRe.FindStringSubmatch(url); m != nil {
		return m[1], true
	}
	return "", false
}

func (f *Fetcher) fetchDirect(ctx context.Context, url, destination string) error {
	resp, err := f.get(ctx, url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("fetch %s failed with status %d: %s", url, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return writeBody(destination, resp.Body)
}

// fetchDrive downloads a Drive file via the uc endpoint. When Drive responds
// with its HTML large-file warning instead of the binary, the confirmation
// token is pulled from the page and the download retried once with it.
func (f *Fetcher) fetchDrive(ctx context.Context, fileID, destination string) error {
	url := fmt.Sprintf("%s/uc?export=download&id=%s", f.driveBase, fileID)

	resp, err := f.get(ctx, url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("drive fetch %s failed with status %d", fileID, resp.StatusCode)
	}

	if !isHTML(resp) {
		return writeBody(destination, resp.Body)
	}

	// Large-file warning page — extract the consent token and retry once
	page, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read drive warning page: %w", err)
	}

	m := driveConfirmRe.FindSubmatch(page)
	if m == nil {
		return fmt.Errorf("drive returned HTML for file %s but no confirmation token was found", fileID)
	}
	token := string(m[1])

	log.Printf("[Fetcher] Drive large-file warning for %s, retrying with confirm token", fileID)

	confirmed, err := f.get(ctx, url+"&confirm="+token)
	if err != nil {
		return err
	}
	defer confirmed.Body.Close()

	if confirmed.StatusCode < 200 || confirmed.StatusCode >= 300 {
		return fmt.Errorf("drive confirmed fetch %s failed with status %d", fileID, confirmed.StatusCode)
	}
	if isHTML(confirmed) {
		return fmt.Errorf("drive still returned HTML for file %s after confirmation", fileID)
	}

	return writeBody(destination, confirmed.Body)
}

func (f *Fetcher) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	return resp, nil
}

func isHTML(resp *http.Response) bool {
	return strings.Contains(resp.Header.Get("Content-Type"), "text/html")
}

// writeBody streams the response body to destination. A partial write removes
// the file so a failed fetch never leaves a truncated asset behind.
func writeBody(destination string, body io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(destination), 0755); err != nil {
		return fmt.Errorf("failed to create destination dir: %w", err)
	}

	out, err := os.Create(destination)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", destination, err)
	}

	if _, err := io.Copy(out, body); err != nil {
		out.Close()
		os.Remove(destination)
		return fmt.Errorf("failed to write %s: %w", destination, err)
	}

	return out.Close()
}
