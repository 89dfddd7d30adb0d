package bulk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// Link-visible Google Sheets can be exported as CSV without credentials via
// the /export?format=csv endpoint.
var (
	sheetIDRe  = regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9-_]+)`)
	sheetGIDRe = regexp.MustCompile(`[#&?]gid=([0-9]+)`)
)

const maxSheetBytes = 10 << 20

// SheetFetcher downloads the CSV export of a shared Google Sheet.
type SheetFetcher struct {
	httpClient *http.Client
	baseURL    string
}

func NewSheetFetcher() *SheetFetcher {
	return &SheetFetcher{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    "https://docs.google.com",
	}
}

// IsSheetURL reports whether src names a manifest to fetch over HTTP rather
// than read from disk.
func IsSheetURL(src string) bool {
	return strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://")
}

// Fetch downloads the CSV behind a Sheets share URL. The URL may be any of
// the share-link shapes: the sheet id is taken from the path, the tab gid
// from the query or fragment when present.
func (f *SheetFetcher) Fetch(ctx context.Context, shareURL string) (string, error) {
	exportURL, err := f.exportURL(shareURL)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, exportURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("sheet download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("sheet export returned HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSheetBytes+1))
	if err != nil {
		return "", fmt.Errorf("failed to read sheet export: %w", err)
	}
	if len(body) > maxSheetBytes {
		return "", fmt.Errorf("sheet export exceeds %d bytes", maxSheetBytes)
	}
	return string(body), nil
}

func (f *SheetFetcher) exportURL(raw string) (string, error) {
	id := extractSheetID(raw)
	if id == "" {
		return "", errors.New("unable to extract sheet id from URL")
	}
	u := f.baseURL + "/spreadsheets/d/" + id + "/export?format=csv"
	if gid := extractSheetGID(raw); gid != "" {
		u += "&gid=" + gid
	}
	return u, nil
}

func extractSheetID(raw string) string {
	if raw == "" {
		return ""
	}
	if m := sheetIDRe.FindStringSubmatch(raw); m != nil {
		return m[1]
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Query().Get("id")
}

func extractSheetGID(raw string) string {
	if raw == "" {
		return ""
	}
	if m := sheetGIDRe.FindStringSubmatch(raw); m != nil {
		return m[1]
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	if gid := u.Query().Get("gid"); gid != "" {
		return gid
	}
	if frag, err := url.ParseQuery(u.Fragment); err == nil {
		if gid := frag.Get("gid"); gid != "" {
			return gid
		}
	}
	return ""
}
