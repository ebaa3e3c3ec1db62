package api

import (
	"bytes"
	"io"
	"sync"

	fhttp "github.com/bogdanfinn/fhttp"
)

// MockResponseBody is a ReadCloser that simulates reading response data
type MockResponseBody struct {
	data []byte
	pos  int
}

// NewMockResponseBody creates a new MockResponseBody with the given data
func NewMockResponseBody(data []byte) *MockResponseBody {
	return &MockResponseBody{data: data, pos: 0}
}

// Read implements the io.Reader interface
func (m *MockResponseBody) Read(p []byte) (n int, err error) {
	if m.pos >= len(m.data) {
		return 0, io.EOF
	}
	n = copy(p, m.data[m.pos:])
	m.pos += n
	return n, nil
}

// Close implements the io.Closer interface
func (m *MockResponseBody) Close() error {
	return nil
}

// mockReply is one scripted answer of MockHttpClient.
type mockReply struct {
	status      int
	body        string
	contentType string
	location    string
	err         error
}

// recordedRequest captures what the client sent.
type recordedRequest struct {
	Method string
	URL    string
	Header fhttp.Header
	Body   []byte
}

// MockHttpClient replays scripted replies in order; the last one repeats.
type MockHttpClient struct {
	mu       sync.Mutex
	replies  []mockReply
	Requests []recordedRequest
}

func newMock(replies ...mockReply) *MockHttpClient {
	return &MockHttpClient{replies: replies}
}

// Do implements HTTPDoer
func (m *MockHttpClient) Do(req *fhttp.Request) (*fhttp.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec := recordedRequest{Method: req.Method, URL: req.URL.String(), Header: req.Header.Clone()}
	if req.Body != nil {
		rec.Body, _ = io.ReadAll(req.Body)
	}
	m.Requests = append(m.Requests, rec)

	reply := m.replies[0]
	if len(m.replies) > 1 {
		m.replies = m.replies[1:]
	}
	if reply.err != nil {
		return nil, reply.err
	}

	header := make(fhttp.Header)
	ct := reply.contentType
	if ct == "" {
		ct = "application/json"
	}
	header.Set("Content-Type", ct)
	if reply.location != "" {
		header.Set("Location", reply.location)
	}
	return &fhttp.Response{
		StatusCode: reply.status,
		Body:       io.NopCloser(bytes.NewReader([]byte(reply.body))),
		Header:     header,
	}, nil
}

func (m *MockHttpClient) requestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}

func (m *MockHttpClient) lastRequest() recordedRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Requests[len(m.Requests)-1]
}

func newTestClient(mock *MockHttpClient) *Client {
	client, err := NewClient(
		WithHTTPClient(mock),
		WithBaseURL("https://api.test/v4"),
		WithRateLimit(0, 0),
	)
	if err != nil {
		panic(err)
	}
	return client
}
