package llm

import (
	"fmt"
	"strings"
)

// StatusError is a non-200 HTTP response from a single endpoint.
type StatusError struct {
	URL    string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("endpoint %s returned status %d: %s", e.URL, e.Status, e.Body)
}

// NetworkError is a connection or timeout failure against a single endpoint.
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("endpoint %s unreachable: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// UnknownError is any endpoint failure that is neither an HTTP status
// error nor a transport error (e.g. an unparseable response body).
type UnknownError struct {
	URL string
	Err error
}

func (e *UnknownError) Error() string {
	return fmt.Sprintf("endpoint %s failed: %v", e.URL, e.Err)
}

func (e *UnknownError) Unwrap() error { return e.Err }

// Attempt records the failure of one endpoint during a completion.
type Attempt struct {
	URL string
	Err error
}

// ExhaustedError reports that every configured endpoint failed for one
// completion. It is the only unrecoverable outcome of Complete.
type ExhaustedError struct {
	Attempts []Attempt
}

func (e *ExhaustedError) Error() string {
	urls := e.FailedURLs()
	if len(urls) == 0 {
		return "no completion endpoints configured"
	}
	var b strings.Builder
	b.WriteString("all completion endpoints failed:")
	for _, u := range urls {
		b.WriteString("\n- ")
		b.WriteString(u)
	}
	return b.String()
}

// FailedURLs returns each distinct failing endpoint URL exactly once,
// in encounter order.
func (e *ExhaustedError) FailedURLs() []string {
	seen := make(map[string]struct{}, len(e.Attempts))
	urls := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		if _, ok := seen[a.URL]; ok {
			continue
		}
		seen[a.URL] = struct{}{}
		urls = append(urls, a.URL)
	}
	return urls
}
