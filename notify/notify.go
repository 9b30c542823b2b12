package notify

import (
	"log"
	"sync"
)

// Kinds entendidos pelo widget de alerta do front.
const (
	KindSuccess = "success"
	KindError   = "error"
	KindInfo    = "info"
	KindWarning = "warning"
)

// Notifier is the only contract the checkout core has with the UI alert
// layer: a message and a kind. Everything else (modals, toasts, styling)
// lives on the front end.
type Notifier interface {
	Notify(message, kind string)
}

// Log writes notifications to the server log. Used in production where the
// actual rendering happens client-side from the HTTP responses.
type Log struct{}

func (Log) Notify(message, kind string) {
	log.Printf("[NOTIFY][%s] %s", kind, message)
}

// Recorder captures notifications for assertions in tests.
type Recorder struct {
	mu      sync.Mutex
	Entries []Entry
}

type Entry struct {
	Message string
	Kind    string
}

func (r *Recorder) Notify(message, kind string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Entries = append(r.Entries, Entry{Message: message, Kind: kind})
}

// Last returns the most recent entry, or a zero Entry when none exists.
func (r *Recorder) Last() Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Entries) == 0 {
		return Entry{}
	}
	return r.Entries[len(r.Entries)-1]
}
