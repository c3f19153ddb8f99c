package crawler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"plurkbackup/internal/downloader"
	errs "plurkbackup/pkg/errors"
)

// fakeCaller answers API calls from per-endpoint handlers
type fakeCaller struct {
	mu       sync.Mutex
	handlers map[string]func(params url.Values) (interface{}, error)
	calls    []fakeCall
}

type fakeCall struct {
	Endpoint string
	Params   url.Values
}

func newFakeCaller() *fakeCaller {
	return &fakeCaller{handlers: map[string]func(url.Values) (interface{}, error){}}
}

func (f *fakeCaller) on(endpoint string, h func(params url.Values) (interface{}, error)) {
	f.handlers[endpoint] = h
}

func (f *fakeCaller) Call(ctx context.Context, endpoint string, params url.Values) (json.RawMessage, error) {
	f.mu.Lock()
	f.calls = append(f.calls, fakeCall{Endpoint: endpoint, Params: params})
	h := f.handlers[endpoint]
	f.mu.Unlock()

	if h == nil {
		return nil, errs.New(errs.ErrorTypeNotFound, endpoint, "no handler")
	}
	v, err := h(params)
	if err != nil {
		return nil, err
	}
	return json.Marshal(v)
}

func (f *fakeCaller) callsTo(endpoint string) []fakeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []fakeCall
	for _, c := range f.calls {
		if c.Endpoint == endpoint {
			out = append(out, c)
		}
	}
	return out
}

// fakeMedia treats every URL in reachable as existing and downloadable
type fakeMedia struct {
	mu        sync.Mutex
	reachable map[string]bool
	failing   map[string]bool
	checked   []string
	downloads []string
}

func newFakeMedia(urls ...string) *fakeMedia {
	m := &fakeMedia{reachable: map[string]bool{}, failing: map[string]bool{}}
	for _, u := range urls {
		m.reachable[u] = true
	}
	return m
}

func (m *fakeMedia) Exists(ctx context.Context, u string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checked = append(m.checked, u)
	return m.reachable[u]
}

func (m *fakeMedia) Download(ctx context.Context, u string, store downloader.MediaStore, name string) error {
	m.mu.Lock()
	m.downloads = append(m.downloads, u)
	fail := m.failing[u]
	m.mu.Unlock()

	if fail {
		return errs.New(errs.ErrorTypeServerError, "download "+name, "unexpected status 500")
	}
	return store.Save(strings.NewReader("data:"+u), name)
}

func (m *fakeMedia) downloadCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.downloads)
}

// recordingPrinter captures progress lines
type recordingPrinter struct {
	mu    sync.Mutex
	lines []string
}

func (p *recordingPrinter) add(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lines = append(p.lines, s)
}

func (p *recordingPrinter) Downloading(name string)       { p.add("[✓] downloading " + name) }
func (p *recordingPrinter) AlreadyDownloaded(name string) { p.add("[✗] " + name + " was already downloaded.") }
func (p *recordingPrinter) Failed(name string, err error) { p.add(fmt.Sprintf("[!] %s: %v", name, err)) }
func (p *recordingPrinter) Error(msg string, err error) {
	if err != nil {
		msg = fmt.Sprintf("%s: %v", msg, err)
	}
	p.add(msg)
}

func (p *recordingPrinter) all() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.lines...)
}
