// Package testutil provides a mock dashcam HTTP server and recording
// fixtures shared by unit and integration tests.
package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// MockDashcam emulates the device's embedded HTTP server: the
// blackvue_vod.cgi index and per-file /Record/ downloads, with optional
// range support and failure injection.
type MockDashcam struct {
	*httptest.Server

	mu            sync.Mutex
	files         map[string][]byte
	rangeSupport  bool
	listingStatus int
	fileStatus    map[string]int
	truncateAfter map[string]int
}

// NewMockDashcam starts a mock device with range support enabled.
func NewMockDashcam() *MockDashcam {
	d := &MockDashcam{
		files:         make(map[string][]byte),
		rangeSupport:  true,
		fileStatus:    make(map[string]int),
		truncateAfter: make(map[string]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/blackvue_vod.cgi", d.handleListing)
	mux.HandleFunc("/Record/", d.handleRecord)

	d.Server = httptest.NewServer(mux)
	return d
}

// Address returns the host:port the mock listens on.
func (d *MockDashcam) Address() string {
	return strings.TrimPrefix(d.URL, "http://")
}

// Content generates deterministic file content for a name and size, so
// tests can compare downloaded bytes against the source.
func Content(name string, size int) []byte {
	data := make([]byte, size)
	for i := range data {
		data[i] = name[i%len(name)]
	}
	return data
}

// AddFile exposes one file for download without listing it in the index.
func (d *MockDashcam) AddFile(name string, size int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.files[name] = Content(name, size)
}

// AddRecording exposes a video and its sidecar files. Only the video
// appears in the index, as on real firmware; sidecars are fetchable by
// their derived names.
func (d *MockDashcam) AddRecording(videoName string, size int, sidecars ...string) {
	d.AddFile(videoName, size)
	for _, sidecar := range sidecars {
		d.AddFile(sidecar, 64)
	}
}

// RemoveFile drops a file from the mock, as when device storage rotates.
func (d *MockDashcam) RemoveFile(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.files, name)
}

// SetListingStatus forces a status code on the index endpoint.
func (d *MockDashcam) SetListingStatus(code int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listingStatus = code
}

// SetFileStatus forces a status code on one file download.
func (d *MockDashcam) SetFileStatus(name string, code int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fileStatus[name] = code
}

// SetRangeSupport toggles whether range requests are honored.
func (d *MockDashcam) SetRangeSupport(ok bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rangeSupport = ok
}

// TruncateAfter makes one file's transfer drop mid-stream after n bytes,
// simulating a flaky Wi-Fi link.
func (d *MockDashcam) TruncateAfter(name string, n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.truncateAfter[name] = n
}

func (d *MockDashcam) handleListing(w http.ResponseWriter, r *http.Request) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.listingStatus != 0 && d.listingStatus != http.StatusOK {
		w.WriteHeader(d.listingStatus)
		return
	}

	// Real firmware lists only the videos.
	var names []string
	for name := range d.files {
		if strings.HasSuffix(name, ".mp4") {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	var sb strings.Builder
	sb.WriteString("v:1.00\r\n")
	for _, name := range names {
		fmt.Fprintf(&sb, "n:/Record/%s,s:%d\r\n", name, len(d.files[name]))
	}

	w.Header().Set("Content-Type", "text/html")
	_, _ = w.Write([]byte(sb.String()))
}

func (d *MockDashcam) handleRecord(w http.ResponseWriter, r *http.Request) {
	d.mu.Lock()
	defer d.mu.Unlock()

	name := strings.TrimPrefix(r.URL.Path, "/Record/")

	if code, ok := d.fileStatus[name]; ok {
		w.WriteHeader(code)
		return
	}

	data, ok := d.files[name]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	status := http.StatusOK
	if rng := r.Header.Get("Range"); rng != "" && d.rangeSupport {
		if offset, ok := parseRangeStart(rng); ok && offset > 0 && offset <= int64(len(data)) {
			w.Header().Set("Content-Range",
				fmt.Sprintf("bytes %d-%d/%d", offset, len(data)-1, len(data)))
			data = data[offset:]
			status = http.StatusPartialContent
		}
	}

	if n, ok := d.truncateAfter[name]; ok && n < len(data) {
		// Declare the full length but send a prefix; the client sees an
		// unexpected EOF mid-transfer.
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		w.WriteHeader(status)
		_, _ = w.Write(data[:n])
		return
	}

	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func parseRangeStart(header string) (int64, bool) {
	header = strings.TrimPrefix(header, "bytes=")
	idx := strings.IndexByte(header, '-')
	if idx < 0 {
		return 0, false
	}
	offset, err := strconv.ParseInt(header[:idx], 10, 64)
	if err != nil {
		return 0, false
	}
	return offset, true
}
