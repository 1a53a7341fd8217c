package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/AzielCF/az-social/scheduling/domain/common"
	"github.com/sirupsen/logrus"
)

const (
	schedulesFile = "schedules.json"
	pendingFile   = "pending_posts.json"
	historyFile   = "post_history.json"
	campaignsFile = "campaigns.json"
)

type schedulesDocument struct {
	Schedules []common.Schedule `json:"schedules"`
}

type campaignsDocument struct {
	Campaigns []common.Campaign `json:"campaigns"`
}

// JSONStore keeps every collection in its own file under dir. Each write replaces the
// whole file through a temp file and a rename.
type JSONStore struct {
	mu           sync.Mutex
	dir          string
	historyLimit int
}

func NewJSONStore(dir string, historyLimit int) *JSONStore {
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}
	return &JSONStore{dir: dir, historyLimit: historyLimit}
}

func (s *JSONStore) Init(ctx context.Context) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create storage dir: %w", err)
	}
	logrus.Infof("[STORE] using JSON files in %s", s.dir)
	return nil
}

func (s *JSONStore) LoadSchedules(ctx context.Context) ([]common.Schedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var doc schedulesDocument
	if err := s.read(schedulesFile, &doc); err != nil {
		return nil, err
	}
	return doc.Schedules, nil
}

func (s *JSONStore) SaveSchedules(ctx context.Context, schedules []common.Schedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if schedules == nil {
		schedules = []common.Schedule{}
	}
	return s.write(schedulesFile, schedulesDocument{Schedules: schedules})
}

func (s *JSONStore) LoadPending(ctx context.Context) ([]common.ScheduledPost, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var posts []common.ScheduledPost
	if err := s.read(pendingFile, &posts); err != nil {
		return nil, err
	}
	return sortedCopy(posts), nil
}

func (s *JSONStore) SavePending(ctx context.Context, posts []common.ScheduledPost) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(pendingFile, sortedCopy(posts))
}

func (s *JSONStore) RecordOutcome(ctx context.Context, post common.ScheduledPost) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var history []common.ScheduledPost
	if err := s.read(historyFile, &history); err != nil {
		return err
	}
	history = append([]common.ScheduledPost{post}, history...)
	if len(history) > s.historyLimit {
		history = history[:s.historyLimit]
	}
	return s.write(historyFile, history)
}

func (s *JSONStore) ListHistory(ctx context.Context, limit int) ([]common.ScheduledPost, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var history []common.ScheduledPost
	if err := s.read(historyFile, &history); err != nil {
		return nil, err
	}
	if limit > 0 && len(history) > limit {
		history = history[:limit]
	}
	return history, nil
}

func (s *JSONStore) LoadCampaigns(ctx context.Context) ([]common.Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var doc campaignsDocument
	if err := s.read(campaignsFile, &doc); err != nil {
		return nil, err
	}
	return doc.Campaigns, nil
}

func (s *JSONStore) SaveCampaigns(ctx context.Context, campaigns []common.Campaign) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if campaigns == nil {
		campaigns = []common.Campaign{}
	}
	return s.write(campaignsFile, campaignsDocument{Campaigns: campaigns})
}

// read leaves v untouched when the file does not exist yet.
func (s *JSONStore) read(name string, v any) error {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}

func (s *JSONStore) write(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}

	tmp, err := os.CreateTemp(s.dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := os.Rename(tmpName, filepath.Join(s.dir, name)); err != nil {
		return fmt.Errorf("replace %s: %w", name, err)
	}
	return nil
}
