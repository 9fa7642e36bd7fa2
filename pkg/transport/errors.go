package transport

import "fmt"

// OpenError reports a failed open attempt. Open failures are terminal for the
// attempt; the operator must re-issue the open.
type OpenError struct {
	Kind Kind
	Err  error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("open %s: %v", e.Kind, e.Err)
}

func (e *OpenError) Unwrap() error { return e.Err }

// ExchangeError reports I/O failure on an open handle. It surfaces as a log
// entry and aborts the operation using the handle, but does not imply a
// disconnect; only the disconnect notification does.
type ExchangeError struct {
	Op  string // "exchange" or "close"
	Err error
}

func (e *ExchangeError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ExchangeError) Unwrap() error { return e.Err }
