package service

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/samber/oops"

	"go-trip-planner/internal/event"
	"go-trip-planner/internal/model"
	"go-trip-planner/pkg/apierror"
)

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 200
)

// AuditService appends security events to a JSON-lines file and serves
// filtered, paginated reads of it.
type AuditService struct {
	filePath string
	mu       sync.Mutex
}

func NewAuditService(filePath string) (*AuditService, error) {
	if err := os.MkdirAll(filepath.Dir(filePath), 0o750); err != nil {
		return nil, oops.Code("AUDIT_INIT_FAILED").With("path", filePath).Wrap(err)
	}

	f, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY, 0o640)
	if err != nil {
		return nil, oops.Code("AUDIT_INIT_FAILED").With("path", filePath).Wrap(err)
	}
	_ = f.Close()

	return &AuditService{filePath: filePath}, nil
}

func (s *AuditService) Record(e event.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return oops.Code("AUDIT_WRITE_FAILED").Wrap(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o640)
	if err != nil {
		return oops.Code("AUDIT_WRITE_FAILED").With("path", s.filePath).Wrap(err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return oops.Code("AUDIT_WRITE_FAILED").With("path", s.filePath).Wrap(err)
	}
	return nil
}

// Run records every event published on bus until ctx is done.
func (s *AuditService) Run(ctx context.Context, bus event.Bus, onError func(error)) error {
	events, unsubscribe := bus.Subscribe()
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return nil
		case e, ok := <-events:
			if !ok {
				return nil
			}
			if err := s.Record(e); err != nil && onError != nil {
				onError(err)
			}
		}
	}
}

// Query returns matching entries newest first.
func (s *AuditService) Query(query model.AuditQuery) ([]event.Event, model.Meta, error) {
	if query.Page < 1 {
		query.Page = 1
	}
	if query.Limit <= 0 {
		query.Limit = defaultAuditLimit
	}
	if query.Limit > maxAuditLimit {
		query.Limit = maxAuditLimit
	}

	from, err := parseAuditTime(query.From)
	if err != nil {
		return nil, model.Meta{}, apierror.New("BAD_REQUEST", "invalid 'from' datetime format", query.From, http.StatusBadRequest)
	}
	to, err := parseAuditTime(query.To)
	if err != nil {
		return nil, model.Meta{}, apierror.New("BAD_REQUEST", "invalid 'to' datetime format", query.To, http.StatusBadRequest)
	}

	eventType := strings.ToLower(strings.TrimSpace(query.Type))
	actorID := strings.TrimSpace(query.ActorID)

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.filePath)
	if err != nil {
		return nil, model.Meta{}, oops.Code("AUDIT_READ_FAILED").With("path", s.filePath).Wrap(err)
	}
	defer f.Close()

	items := make([]event.Event, 0, 128)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var e event.Event
		if json.Unmarshal([]byte(line), &e) != nil {
			continue
		}

		if eventType != "" && string(e.Type) != eventType {
			continue
		}
		if actorID != "" && e.ActorID != actorID {
			continue
		}
		if !from.IsZero() && e.Timestamp.Before(from) {
			continue
		}
		if !to.IsZero() && e.Timestamp.After(to) {
			continue
		}

		items = append(items, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, model.Meta{}, oops.Code("AUDIT_READ_FAILED").With("path", s.filePath).Wrap(err)
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Timestamp.After(items[j].Timestamp)
	})

	total := len(items)
	start := min((query.Page-1)*query.Limit, total)
	end := min(start+query.Limit, total)

	totalPages := 0
	if total > 0 {
		totalPages = (total + query.Limit - 1) / query.Limit
	}

	meta := model.Meta{Page: query.Page, Limit: query.Limit, Total: total, TotalPages: totalPages}
	return items[start:end], meta, nil
}

func parseAuditTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}

	value, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, err
	}
	return value.UTC(), nil
}
