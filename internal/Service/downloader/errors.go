package downloader

import (
	"errors"
	"fmt"
)

// Error kinds. A *DownloadError matches exactly one of them with errors.Is.
var (
	ErrIO       = errors.New("io error")
	ErrNetwork  = errors.New("network error")
	ErrProtocol = errors.New("protocol error")

	ErrTooManyRedirects = errors.New("too many redirects")
	ErrMissingLocation  = errors.New("redirect without Location header")
)

type DownloadError struct {
	Kind       error
	Url        string
	Path       string
	StatusCode int
	Err        error
}

func (e *DownloadError) Error() string {
	msg := fmt.Sprintf("download %s to %s: %v", e.Url, e.Path, e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(": status %d", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DownloadError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
