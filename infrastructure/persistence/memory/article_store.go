package memory

import (
	"context"
	"sync"

	"newsroom/domain/model"
	"newsroom/domain/repository"
)

type ArticleStore struct {
	mu    sync.RWMutex
	items map[string]model.Article
}

var _ repository.IArticle = (*ArticleStore)(nil)

func NewArticleStore(seed ...model.Article) *ArticleStore {
	s := &ArticleStore{items: map[string]model.Article{}}
	for _, a := range seed {
		s.items[a.ID] = a
	}
	return s
}

func (s *ArticleStore) Put(a model.Article) {
	s.mu.Lock()
	s.items[a.ID] = a
	s.mu.Unlock()
}

func (s *ArticleStore) GetByIDs(_ context.Context, ids []string) ([]model.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Article, 0, len(ids))
	for _, id := range ids {
		if a, ok := s.items[id]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

// SettingsStore serves a fixed settings value, or ErrNotFound when none was set.
type SettingsStore struct {
	mu       sync.RWMutex
	settings *model.Settings
}

var _ repository.ISettings = (*SettingsStore)(nil)

func NewSettingsStore(s *model.Settings) *SettingsStore { return &SettingsStore{settings: s} }

func (s *SettingsStore) Set(v *model.Settings) {
	s.mu.Lock()
	s.settings = v
	s.mu.Unlock()
}

func (s *SettingsStore) Get(_ context.Context) (*model.Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.settings == nil {
		return nil, model.ErrNotFound
	}
	cp := *s.settings
	return &cp, nil
}
