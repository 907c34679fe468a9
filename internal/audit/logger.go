// Package audit appends structured attendance events to day-partitioned
// JSON containers. Logging is best-effort: a failed append is reported but
// never surfaces to the operation that produced the event.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Actions recorded in the audit trail.
const (
	ActionCadastro    = "cadastro_facial"
	ActionVerificacao = "verificacao_facial"
	ActionConfirmado  = "comparecimento_confirmado"
	ActionDeletado    = "cadastro_deletado"
)

// Entry is one immutable audit record.
type Entry struct {
	Timestamp        time.Time `json:"timestamp"`
	Processo         string    `json:"processo"`
	Action           string    `json:"action"`
	Success          *bool     `json:"success,omitempty"`
	Confidence       *float64  `json:"confidence,omitempty"`
	Distance         *float64  `json:"distance,omitempty"`
	Metodo           string    `json:"metodo,omitempty"`
	ComparecimentoID string    `json:"comparecimento_id,omitempty"`
}

// Sink receives a best-effort mirror of every entry (e.g. a message bus for
// downstream consumers). May be nil.
type Sink interface {
	Publish(ctx context.Context, entry Entry) error
}

// Logger owns the day-partition files. All writes flow through a single
// goroutine fed by a channel, so the read-append-rewrite of a day container
// can never lose a concurrently appended entry.
type Logger struct {
	dir       string
	sink      Sink
	entries   chan Entry
	done      chan struct{}
	closeOnce sync.Once
}

// New creates the logs directory if needed and starts the writer. sink may
// be nil.
func New(dir string, sink Sink) (*Logger, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create logs dir %s: %w", dir, err)
	}

	l := &Logger{
		dir:     dir,
		sink:    sink,
		entries: make(chan Entry, 256),
		done:    make(chan struct{}),
	}
	go l.run()
	return l, nil
}

// Append queues an entry for writing. It never blocks business logic: when
// the writer is saturated the entry is dropped with a warning.
func (l *Logger) Append(entry Entry) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	select {
	case l.entries <- entry:
	default:
		slog.Warn("audit writer saturated, dropping entry",
			"action", entry.Action, "processo", entry.Processo)
	}
}

// Close flushes queued entries and stops the writer. Safe to call more
// than once.
func (l *Logger) Close() {
	l.closeOnce.Do(func() {
		close(l.entries)
	})
	<-l.done
}

func (l *Logger) run() {
	defer close(l.done)
	for entry := range l.entries {
		if err := l.write(entry); err != nil {
			slog.Error("append audit entry", "error", err, "action", entry.Action)
		}
		if l.sink != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			if err := l.sink.Publish(ctx, entry); err != nil {
				slog.Warn("mirror audit entry", "error", err, "action", entry.Action)
			}
			cancel()
		}
	}
}

// write appends the entry to the current day's container. The container
// stays a single JSON array for compatibility with consumers of the log
// files; only this goroutine ever rewrites it.
func (l *Logger) write(entry Entry) error {
	path := l.partitionPath(entry.Timestamp)

	var entries []Entry
	data, err := os.ReadFile(path)
	if err == nil {
		if err := json.Unmarshal(data, &entries); err != nil {
			return fmt.Errorf("parse log container %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("read log container %s: %w", path, err)
	}

	entries = append(entries, entry)

	out, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal log container: %w", err)
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("write log container %s: %w", path, err)
	}
	return nil
}

func (l *Logger) partitionPath(ts time.Time) string {
	return filepath.Join(l.dir, "facial_recognition_"+ts.Format("20060102")+".json")
}

// ReadDay returns all entries recorded for the given date, empty when no
// container exists for it.
func (l *Logger) ReadDay(date time.Time) ([]Entry, error) {
	data, err := os.ReadFile(l.partitionPath(date))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read log container: %w", err)
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse log container: %w", err)
	}
	return entries, nil
}
