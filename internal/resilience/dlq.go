package resilience

import (
	"bufio"
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/hatchline/opportunity-cli/internal/model"
)

// DLQEntry records a submission whose enrichment failed so the batch can be
// retried later without re-collecting.
type DLQEntry struct {
	ID           string           `json:"id"`
	Submission   model.Submission `json:"submission"`
	Service      string           `json:"service"`
	Error        string           `json:"error"`
	ErrorType    string           `json:"error_type"` // "transient" or "permanent"
	RetryCount   int              `json:"retry_count"`
	MaxRetries   int              `json:"max_retries"`
	NextRetryAt  time.Time        `json:"next_retry_at"`
	CreatedAt    time.Time        `json:"created_at"`
	LastFailedAt time.Time        `json:"last_failed_at"`
}

// NewDLQEntry builds an entry for a failed enrichment attempt.
func NewDLQEntry(sub model.Submission, service string, err error, maxRetries int) DLQEntry {
	now := time.Now().UTC()
	return DLQEntry{
		ID:           uuid.New().String(),
		Submission:   sub,
		Service:      service,
		Error:        err.Error(),
		ErrorType:    ClassifyError(err),
		MaxRetries:   maxRetries,
		NextRetryAt:  now.Add(5 * time.Minute),
		CreatedAt:    now,
		LastFailedAt: now,
	}
}

// CanRetry returns true if this entry hasn't exceeded its max retry count.
func (e *DLQEntry) CanRetry() bool {
	return e.RetryCount < e.MaxRetries
}

// ClassifyError categorizes an error as "transient" or "permanent".
func ClassifyError(err error) string {
	if IsTransient(err) {
		return "transient"
	}
	return "permanent"
}

// FileDLQ appends dead-letter entries to a JSONL file, one entry per line.
type FileDLQ struct {
	mu   sync.Mutex
	path string
}

// NewFileDLQ creates a file-backed dead letter queue at path.
func NewFileDLQ(path string) *FileDLQ {
	return &FileDLQ{path: path}
}

// Append writes entries to the end of the queue file.
func (q *FileDLQ) Append(entries ...DLQEntry) error {
	if len(entries) == 0 {
		return nil
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	f, err := os.OpenFile(q.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return eris.Wrap(err, "dlq: open queue file")
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, e := range entries {
		line, err := json.Marshal(e)
		if err != nil {
			return eris.Wrap(err, "dlq: marshal entry")
		}
		if _, err := w.Write(append(line, '\n')); err != nil {
			return eris.Wrap(err, "dlq: write entry")
		}
	}
	if err := w.Flush(); err != nil {
		return eris.Wrap(err, "dlq: flush queue file")
	}
	return nil
}

// Load reads all retryable entries from the queue file. A missing file is an
// empty queue, not an error.
func (q *FileDLQ) Load() ([]DLQEntry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	f, err := os.Open(q.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "dlq: open queue file")
	}
	defer f.Close()

	var entries []DLQEntry
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		var e DLQEntry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return nil, eris.Wrap(err, "dlq: decode entry")
		}
		if e.CanRetry() {
			entries = append(entries, e)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, eris.Wrap(err, "dlq: read queue file")
	}
	return entries, nil
}

// Truncate empties the queue file after a successful retry pass.
func (q *FileDLQ) Truncate() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	err := os.Truncate(q.path, 0)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return eris.Wrap(err, "dlq: truncate queue file")
	}
	return nil
}
