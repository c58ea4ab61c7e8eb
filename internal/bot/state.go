package bot

import (
	"sync"

	"renderai/internal/render"
)

// Settings are the per-chat render preferences applied to photo captions.
type Settings struct {
	Style      string
	Lighting   string
	Resolution render.Resolution
	UsePro     bool
}

type SettingsStore struct {
	mu       sync.Mutex
	m        map[int64]*Settings
	defaults Settings
}

func NewSettingsStore(defaults Settings) *SettingsStore {
	if defaults.Resolution == "" {
		defaults.Resolution = render.Res2K
	}
	return &SettingsStore{
		m:        make(map[int64]*Settings),
		defaults: defaults,
	}
}

func (s *SettingsStore) Get(chatID int64) Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.getOrCreateLocked(chatID)
}

func (s *SettingsStore) Update(chatID int64, fn func(*Settings)) Settings {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.getOrCreateLocked(chatID)
	if fn != nil {
		fn(st)
	}
	return *st
}

func (s *SettingsStore) Reset(chatID int64) Settings {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.defaults
	s.m[chatID] = &st
	return st
}

func (s *SettingsStore) getOrCreateLocked(chatID int64) *Settings {
	if st, ok := s.m[chatID]; ok {
		return st
	}
	st := s.defaults
	s.m[chatID] = &st
	return s.m[chatID]
}
