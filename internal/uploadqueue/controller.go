// Package uploadqueue drives multiple file uploads against a single-file
// upload endpoint. Each queued file moves through its own small state
// machine (queued -> uploading -> completed/error/cancelled) independently
// of its siblings; one failure never aborts the rest of the batch.
package uploadqueue

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"sync"
	"time"
)

var (
	ErrNoTargetEntity = errors.New("no target entity selected")
	ErrItemNotFound   = errors.New("upload item not found")
	ErrNotRetryable   = errors.New("only a failed upload can be retried")
)

// NotificationLevel classifies a user-visible notification.
type NotificationLevel string

const (
	LevelSuccess NotificationLevel = "success"
	LevelWarning NotificationLevel = "warning"
	LevelError   NotificationLevel = "error"
)

// Notifier receives the user-visible messages the queue produces: one
// warning per rejected batch and one outcome per finished item.
type Notifier interface {
	Notify(level NotificationLevel, message string)
}

// NopNotifier discards all notifications.
type NopNotifier struct{}

func (NopNotifier) Notify(NotificationLevel, string) {}

// uploadResponse is the wire contract of the upload endpoint.
type uploadResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message,omitempty"`
	Filename string `json:"filename,omitempty"`
}

// Controller owns the upload queue. All item state is guarded by mu;
// uploads themselves run in one goroutine per item with no queue-wide
// concurrency limit and no timeout of their own. An upload that hangs is
// ended by the transport erroring or by Cancel.
type Controller struct {
	endpoint      string
	client        *http.Client
	notifier      Notifier
	dispatchDelay time.Duration

	mu     sync.Mutex
	items  []*item
	nextID int

	wg sync.WaitGroup
}

// Option configures a Controller.
type Option func(*Controller)

// WithHTTPClient replaces the transport used for uploads.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Controller) {
		c.client = client
	}
}

// WithDispatchDelay overrides the pause between enqueue and dispatch. The
// delay exists so the UI can render the queued items before any network
// activity starts.
func WithDispatchDelay(d time.Duration) Option {
	return func(c *Controller) {
		c.dispatchDelay = d
	}
}

// NewController creates a Controller posting to the given upload endpoint.
func NewController(endpoint string, notifier Notifier, opts ...Option) *Controller {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	c := &Controller{
		endpoint:      endpoint,
		client:        &http.Client{},
		notifier:      notifier,
		dispatchDelay: 50 * time.Millisecond,
		nextID:        1,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Enqueue adds the files to the queue for the target entity and starts an
// independent upload for each. If no target entity has been selected the
// whole batch is rejected with a single warning and nothing is enqueued.
// Returned IDs are in the order the files were given.
func (c *Controller) Enqueue(files []File, entityType string, entityID uint64) ([]int, error) {
	if entityType == "" || entityID == 0 {
		c.notifier.Notify(LevelWarning, "Select a target before uploading files")
		return nil, ErrNoTargetEntity
	}

	c.mu.Lock()
	ids := make([]int, 0, len(files))
	queued := make([]*item, 0, len(files))
	for _, f := range files {
		it := &item{
			id:         c.nextID,
			file:       f,
			entityType: entityType,
			entityID:   entityID,
			status:     StatusQueued,
		}
		c.nextID++
		c.items = append(c.items, it)
		ids = append(ids, it.id)
		queued = append(queued, it)
	}
	c.mu.Unlock()

	for _, it := range queued {
		c.wg.Add(1)
		go c.dispatch(it)
	}

	return ids, nil
}

// Cancel aborts the item's upload. A queued item is cancelled before it ever
// reaches the network; an in-flight one has its request aborted. Cancelling
// an already finished item is a no-op.
func (c *Controller) Cancel(id int) error {
	c.mu.Lock()
	it := c.find(id)
	if it == nil {
		c.mu.Unlock()
		return ErrItemNotFound
	}

	var abort context.CancelFunc
	switch it.status {
	case StatusQueued:
		it.status = StatusCancelled
	case StatusUploading:
		// Progress keeps its last observed value.
		it.status = StatusCancelled
		abort = it.cancel
	}
	c.mu.Unlock()

	if abort != nil {
		abort()
	}
	return nil
}

// Retry re-queues a failed item and restarts its upload from the beginning,
// with progress reset to zero.
func (c *Controller) Retry(id int) error {
	c.mu.Lock()
	it := c.find(id)
	if it == nil {
		c.mu.Unlock()
		return ErrItemNotFound
	}
	if it.status != StatusError {
		c.mu.Unlock()
		return ErrNotRetryable
	}

	it.status = StatusQueued
	it.progress = 0
	it.message = ""
	c.mu.Unlock()

	c.wg.Add(1)
	go c.dispatch(it)
	return nil
}

// Snapshot returns the current view of every item, in enqueue order.
func (c *Controller) Snapshot() []Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Snapshot, len(c.items))
	for i, it := range c.items {
		out[i] = it.snapshot()
	}
	return out
}

// Stats recomputes the queue aggregates from the full item list.
func (c *Controller) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	var s Stats
	for _, it := range c.items {
		s.Total++
		s.TotalBytes += it.file.Size
		switch it.status {
		case StatusQueued:
			s.Queued++
		case StatusUploading:
			s.Uploading++
		case StatusCompleted:
			s.Completed++
		case StatusError:
			s.Errors++
		case StatusCancelled:
			s.Cancelled++
		}
	}
	return s
}

// Wait blocks until every dispatched upload has reached a terminal state.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// dispatch runs one item's upload from queued to a terminal state.
func (c *Controller) dispatch(it *item) {
	defer c.wg.Done()

	time.Sleep(c.dispatchDelay)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c.mu.Lock()
	if it.status != StatusQueued {
		// Cancelled before dispatch.
		c.mu.Unlock()
		return
	}
	it.status = StatusUploading
	it.progress = 0
	it.cancel = cancel
	c.mu.Unlock()

	resp, err := c.upload(ctx, it)
	if err != nil {
		c.finishTransportError(it, err)
		return
	}
	defer resp.Body.Close()

	c.finishResponse(it, resp)
}

// upload posts the item as a multipart request, reporting byte progress
// through the body reader.
func (c *Controller) upload(ctx context.Context, it *item) (*http.Response, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("entity_type", it.entityType); err != nil {
		return nil, err
	}
	if err := w.WriteField("entity_id", strconv.FormatUint(it.entityID, 10)); err != nil {
		return nil, err
	}
	part, err := w.CreateFormFile("file", it.file.Name)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(it.file.Content); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	total := int64(buf.Len())
	body := &progressReader{
		r: bytes.NewReader(buf.Bytes()),
		onRead: func(read int64) {
			c.setProgress(it, int(read*100/total))
		},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.ContentLength = total

	return c.client.Do(req)
}

// setProgress records byte progress. Progress only moves forward and only
// while the item is uploading; error and cancel keep the last value.
func (c *Controller) setProgress(it *item, p int) {
	if p > 100 {
		p = 100
	}
	c.mu.Lock()
	if it.status == StatusUploading && p > it.progress {
		it.progress = p
	}
	c.mu.Unlock()
}

// finishTransportError maps a client.Do failure to cancelled or error.
func (c *Controller) finishTransportError(it *item, err error) {
	c.mu.Lock()
	if it.status == StatusCancelled {
		// Cancel already claimed this item; the aborted request is expected.
		it.cancel = nil
		c.mu.Unlock()
		return
	}
	it.status = StatusError
	it.message = fmt.Sprintf("upload failed: %v", err)
	it.cancel = nil
	msg := fmt.Sprintf("%s: %s", it.file.Name, it.message)
	c.mu.Unlock()

	c.notifier.Notify(LevelError, msg)
}

// finishResponse maps the HTTP response to the item's terminal state.
func (c *Controller) finishResponse(it *item, resp *http.Response) {
	raw, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	var status ItemStatus
	var message string
	var filename string

	switch {
	case resp.StatusCode == http.StatusRequestEntityTooLarge:
		status = StatusError
		message = fmt.Sprintf("%s is too large", it.file.Name)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		status = StatusError
		message = fmt.Sprintf("upload failed with status %d", resp.StatusCode)
		var parsed uploadResponse
		if readErr == nil && json.Unmarshal(raw, &parsed) == nil && parsed.Message != "" {
			message = fmt.Sprintf("upload failed with status %d: %s", resp.StatusCode, parsed.Message)
		}
	default:
		var parsed uploadResponse
		if readErr != nil || json.Unmarshal(raw, &parsed) != nil {
			status = StatusError
			message = "invalid response from server"
		} else if !parsed.Success {
			status = StatusError
			message = parsed.Message
			if message == "" {
				message = "upload rejected by server"
			}
		} else {
			status = StatusCompleted
			filename = parsed.Filename
			if filename == "" {
				filename = it.file.Name
			}
		}
	}

	c.mu.Lock()
	if it.status == StatusCancelled {
		// The user cancelled while the response was in flight; their view wins.
		it.cancel = nil
		c.mu.Unlock()
		return
	}
	it.status = status
	it.message = message
	it.cancel = nil
	if status == StatusCompleted {
		it.progress = 100
	}
	name := it.file.Name
	c.mu.Unlock()

	if status == StatusCompleted {
		c.notifier.Notify(LevelSuccess, fmt.Sprintf("%s uploaded as %s", name, filename))
	} else {
		c.notifier.Notify(LevelError, fmt.Sprintf("%s: %s", name, message))
	}
}

// find returns the item with the given id. Caller holds mu.
func (c *Controller) find(id int) *item {
	for _, it := range c.items {
		if it.id == id {
			return it
		}
	}
	return nil
}

// progressReader counts the bytes the transport has consumed from the
// request body and reports the running total.
type progressReader struct {
	r      io.Reader
	read   int64
	onRead func(total int64)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.read += int64(n)
		p.onRead(p.read)
	}
	return n, err
}
