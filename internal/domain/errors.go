package domain

import "errors"

// Error kinds shared by every package. Call sites wrap them so callers can
// classify failures with errors.Is.
var (
	ErrNotFound          = errors.New("not found")          // missing folder or unknown identity
	ErrIO                = errors.New("io error")           // file open/read failure
	ErrDecode            = errors.New("decode error")       // unreadable or corrupt image
	ErrPersistence       = errors.New("persistence error")  // per-folder store failure
	ErrUnsupportedFormat = errors.New("unsupported format") // upload destination is not JPEG
	ErrNetwork           = errors.New("network error")      // remote list/send failure
)
