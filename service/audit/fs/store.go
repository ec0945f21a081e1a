package fs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/option"
	"github.com/viant/afs/url"
	"github.com/viant/reconciler/service/audit"
	"github.com/viant/reconciler/service/dao"
)

const ext = ".json"

// Store keeps one JSON document per entry under a base URL. Any afs backed
// location works (local disk, mem://, cloud storage).
type Store struct {
	baseURL string
	fs      afs.Service
	logger  zerolog.Logger
	mu      sync.RWMutex
}

// Option customises a Store.
type Option func(s *Store)

// WithLogger sets the logger used for unreadable documents.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithFs replaces the default afs service.
func WithFs(fs afs.Service) Option {
	return func(s *Store) { s.fs = fs }
}

// Append writes the entry; an existing document with the same sequence is
// never overwritten.
func (s *Store) Append(ctx context.Context, entry *audit.Entry) error {
	if entry == nil {
		return dao.ErrNilEntity
	}
	if entry.Seq == 0 {
		return dao.ErrInvalidID
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal audit entry: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	URL := s.entryURL(entry.Seq)
	exists, err := s.fs.Exists(ctx, URL)
	if err != nil {
		return fmt.Errorf("failed to check audit entry %s: %w", URL, err)
	}
	if exists {
		return fmt.Errorf("%w: seq %d", dao.ErrDuplicate, entry.Seq)
	}
	if err = s.fs.Upload(ctx, URL, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to save audit entry to %s: %w", URL, err)
	}
	return nil
}

// List reads every document and returns the matching entries by sequence.
func (s *Store) List(ctx context.Context, parameters ...*dao.Parameter) ([]*audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	objects, err := s.fs.List(ctx, s.baseURL, option.NewRecursive(false))
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	var entries []*audit.Entry
	for _, object := range objects {
		if object.IsDir() || !strings.HasSuffix(object.Name(), ext) {
			continue
		}
		data, err := s.fs.Download(ctx, object)
		if err != nil {
			s.logger.Warn().Err(err).Str("url", object.URL()).Msg("skipping unreadable audit entry")
			continue
		}
		entry := &audit.Entry{}
		if err := json.Unmarshal(data, entry); err != nil {
			s.logger.Warn().Err(err).Str("url", object.URL()).Msg("skipping malformed audit entry")
			continue
		}
		if audit.Match(entry, parameters) {
			entries = append(entries, entry)
		}
	}
	audit.SortBySeq(entries)
	return entries, nil
}

// LastSeq returns the highest persisted sequence number.
func (s *Store) LastSeq(ctx context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	objects, err := s.fs.List(ctx, s.baseURL, option.NewRecursive(false))
	if err != nil {
		return 0, fmt.Errorf("failed to list audit entries: %w", err)
	}
	var last uint64
	for _, object := range objects {
		name := object.Name()
		if object.IsDir() || !strings.HasSuffix(name, ext) {
			continue
		}
		seq, err := strconv.ParseUint(strings.TrimSuffix(name, ext), 10, 64)
		if err != nil {
			continue
		}
		if seq > last {
			last = seq
		}
	}
	return last, nil
}

func (s *Store) entryURL(seq uint64) string {
	return url.Join(s.baseURL, fmt.Sprintf("%020d%s", seq, ext))
}

// New creates a store rooted at baseURL, creating the location if needed.
func New(ctx context.Context, baseURL string, options ...Option) (*Store, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("audit base URL cannot be empty")
	}
	ret := &Store{logger: zerolog.Nop()}
	for _, opt := range options {
		opt(ret)
	}
	if ret.fs == nil {
		ret.fs = afs.New()
	}
	ret.baseURL = url.Normalize(baseURL, file.Scheme)
	exists, _ := ret.fs.Exists(ctx, ret.baseURL)
	if !exists {
		if err := ret.fs.Create(ctx, ret.baseURL, file.DefaultDirOsMode, true); err != nil {
			return nil, fmt.Errorf("failed to create audit location %s: %w", ret.baseURL, err)
		}
	}
	return ret, nil
}

var _ audit.Store = (*Store)(nil)
var _ audit.Sequencer = (*Store)(nil)
