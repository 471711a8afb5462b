// Package transport speaks the dashcam's plaintext HTTP protocol: one
// unauthenticated GET for the recording index, one GET per file. The device
// runs an embedded HTTP/1.0 server over a bandwidth-constrained Wi-Fi link,
// so there is exactly one connection and no retrying within a run; the next
// scheduled invocation is the retry mechanism.
package transport

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/TheMichaelB/dashsync/internal/codec"
	"github.com/TheMichaelB/dashsync/internal/events"
	"github.com/TheMichaelB/dashsync/internal/models"
)

const (
	listingPath = "/blackvue_vod.cgi"
	recordPath  = "/Record/"
)

// Client communicates with one dashcam.
type Client struct {
	client  *http.Client
	baseURL string
	addr    string
	logger  *events.Logger
}

// NewClient creates a dashcam client. The timeout bounds connection
// establishment and response headers, not whole transfers: a multi-hundred-
// megabyte video over slow Wi-Fi may legitimately take minutes.
func NewClient(address string, timeout time.Duration, logger *events.Logger) *Client {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: timeout,
		}).DialContext,
		ResponseHeaderTimeout: timeout,
		MaxIdleConns:          1,
		IdleConnTimeout:       90 * time.Second,
	}

	return &Client{
		client: &http.Client{
			Transport: transport,
		},
		baseURL: "http://" + address,
		addr:    address,
		logger:  logger.WithField("component", "transport"),
	}
}

// Listing fetches and parses the device's recording index. Connectivity
// failures come back as RemoteError so callers can tell an offline device
// from a firmware incompatibility.
func (c *Client) Listing(ctx context.Context) ([]models.FileEntry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+listingPath, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	c.logger.WithField("url", req.URL.String()).Debug("Fetching recording index")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, c.classify(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, &models.RemoteError{
			Kind: models.RemoteServer,
			Addr: c.addr,
			Err:  fmt.Errorf("HTTP %d from listing endpoint", resp.StatusCode),
		}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &models.RemoteError{
			Kind: models.RemoteProtocol,
			Addr: c.addr,
			Err:  fmt.Errorf("HTTP %d from listing endpoint", resp.StatusCode),
		}
	}

	entries, err := c.parseListing(resp.Body)
	if err != nil {
		return nil, &models.RemoteError{Kind: models.RemoteProtocol, Addr: c.addr, Err: err}
	}

	c.logger.WithField("entries", len(entries)).Debug("Parsed recording index")
	return entries, nil
}

// parseListing decodes the line-oriented index body: a "v:<version>" marker
// followed by "n:<path>,s:<size>" entries. Entries whose filenames do not
// parse as recordings are skipped with a warning; a body with no
// recognizable structure at all is a protocol error.
func (c *Client) parseListing(body io.Reader) ([]models.FileEntry, error) {
	var entries []models.FileEntry
	sawStructure := false

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "v:") {
			sawStructure = true
			continue
		}

		if !strings.HasPrefix(line, "n:") {
			continue
		}

		name, size, ok := splitIndexLine(line)
		if !ok {
			continue
		}
		sawStructure = true

		entry, err := codec.Parse(name)
		if err != nil {
			c.logger.WithError(err).Warn("Skipping unrecognized recording filename")
			continue
		}

		entry.Size = size
		entries = append(entries, entry)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read listing body: %w", err)
	}

	if !sawStructure {
		return nil, errors.New("listing body has no version marker or file entries")
	}

	return entries, nil
}

// splitIndexLine parses one "n:/Record/<name>,s:<size>" line. The size field
// may be missing or bogus on some firmware; those entries carry SizeUnknown.
func splitIndexLine(line string) (name string, size int64, ok bool) {
	rest := strings.TrimPrefix(line, "n:")

	size = models.SizeUnknown
	if idx := strings.LastIndex(rest, ",s:"); idx >= 0 {
		if n, err := strconv.ParseInt(rest[idx+3:], 10, 64); err == nil && n >= 0 {
			size = n
		}
		rest = rest[:idx]
	}

	if rest == "" {
		return "", 0, false
	}

	// Path is absolute on the device; only the basename matters.
	if idx := strings.LastIndexByte(rest, '/'); idx >= 0 {
		rest = rest[idx+1:]
	}

	return rest, size, true
}

// FetchInfo describes an open file transfer.
type FetchInfo struct {
	// Resumed is true when the device honored the range request and the
	// body continues from the requested offset.
	Resumed bool

	// Length is the body length as reported, or SizeUnknown.
	Length int64
}

// FetchRecording opens a download of one recording file. A nonzero offset
// asks the device to resume from that byte; if the device ignores the range
// the caller must restart the local file from zero. Single-file failures are
// TransferError so the executor can skip and continue.
func (c *Client) FetchRecording(ctx context.Context, name string, offset int64) (io.ReadCloser, FetchInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+recordPath+url.PathEscape(name), nil)
	if err != nil {
		return nil, FetchInfo{}, fmt.Errorf("create request: %w", err)
	}

	if offset > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", offset))
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, FetchInfo{}, &models.TransferError{Name: name, Err: err}
	}

	info := FetchInfo{Length: models.SizeUnknown}
	if resp.ContentLength >= 0 {
		info.Length = resp.ContentLength
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return resp.Body, info, nil
	case http.StatusPartialContent:
		info.Resumed = true
		return resp.Body, info, nil
	default:
		resp.Body.Close()
		return nil, FetchInfo{}, &models.TransferError{Name: name, Status: resp.StatusCode}
	}
}

// classify maps a low-level request error onto the connectivity taxonomy.
func (c *Client) classify(err error) error {
	kind := models.RemoteUnreachable

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		kind = models.RemoteTimeout
	} else if errors.Is(err, context.DeadlineExceeded) {
		kind = models.RemoteTimeout
	}

	return &models.RemoteError{Kind: kind, Addr: c.addr, Err: err}
}
