package activity

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/2beens/clientportal/internal/auth"

	log "github.com/sirupsen/logrus"
)

const (
	defaultQueueSize   = 128
	locateTimeout      = 3 * time.Second
	recordWriteTimeout = 5 * time.Second
)

// Recorder turns auth events into activity entries. Entries are written
// by a single background worker so the login flow never waits on
// postgres or ipinfo.
type Recorder struct {
	repo    Repo
	locator Locator
	queue   chan Entry

	mu      sync.Mutex
	stopped bool
	wg      sync.WaitGroup
}

func NewRecorder(repo Repo, locator Locator, queueSize int) *Recorder {
	if locator == nil {
		locator = NoopLocator{}
	}
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &Recorder{
		repo:    repo,
		locator: locator,
		queue:   make(chan Entry, queueSize),
	}
}

// Start runs the worker until Stop is called.
func (r *Recorder) Start() {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		for entry := range r.queue {
			r.write(entry)
		}
	}()
}

// Stop drains the queue and waits for the worker to finish.
func (r *Recorder) Stop() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	close(r.queue)
	r.mu.Unlock()

	r.wg.Wait()
}

// HandleAuthEvent has the signature of the auth service event hook.
func (r *Recorder) HandleAuthEvent(ctx context.Context, event auth.Event) {
	entry, ok := entryFromEvent(event)
	if !ok {
		return
	}
	entry.IP = ClientIPFromContext(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return
	}

	select {
	case r.queue <- entry:
	default:
		log.Warnf("activity queue full, dropping [%s] for %s", entry.Action, entry.Email)
	}
}

func (r *Recorder) write(entry Entry) {
	if entry.IP != "" {
		locateCtx, cancel := context.WithTimeout(context.Background(), locateTimeout)
		city, err := r.locator.City(locateCtx, entry.IP)
		cancel()
		if err != nil {
			log.Debugf("activity: locate %s: %s", entry.IP, err)
		} else {
			entry.City = city
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), recordWriteTimeout)
	defer cancel()
	if _, err := r.repo.Add(ctx, &entry); err != nil {
		log.Errorf("activity: add entry for %s: %s", entry.Email, err)
	}
}

func entryFromEvent(event auth.Event) (Entry, bool) {
	entry := Entry{
		Email:     event.Email,
		CreatedAt: event.At,
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	switch event.Type {
	case auth.EventSignedIn:
		entry.Action = "Signed in to the portal"
		entry.Type = TypeSuccess
	case auth.EventSignedOut:
		entry.Action = "Signed out"
		entry.Type = TypeInfo
	case auth.EventOTPFailed:
		entry.Action = "Failed OTP verification"
		entry.Type = TypeWarning
	case auth.EventLoginFailed:
		// unknown addresses are not anyone's activity
		if !errors.Is(event.Err, auth.ErrWrongPassword) {
			return Entry{}, false
		}
		entry.Action = "Failed sign in attempt"
		entry.Type = TypeWarning
	default:
		return Entry{}, false
	}

	if entry.Email == "" {
		return Entry{}, false
	}
	return entry, true
}
