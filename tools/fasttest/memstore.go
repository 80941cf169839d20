package main

import (
	"context"
	"fmt"
	"sync"

	"opsguard/common/model"
	"opsguard/pkg/errorutil"
)

// memStore 进程内事件与事故存储（skip-db 模式）
type memStore struct {
	mu        sync.Mutex
	events    map[int64]*model.RawEvent
	incidents map[int64]*model.Incident
}

func newMemStore() *memStore {
	return &memStore{
		events:    make(map[int64]*model.RawEvent),
		incidents: make(map[int64]*model.Incident),
	}
}

func (s *memStore) InsertRawEvent(_ context.Context, ev *model.RawEvent) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := int64(len(s.events) + 1)
	cp := *ev
	cp.ID = id
	s.events[id] = &cp
	return id, nil
}

func (s *memStore) GetRawEvent(_ context.Context, id int64) (*model.RawEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev, ok := s.events[id]
	if !ok {
		return nil, errorutil.NotFound(fmt.Sprintf("raw event %d not found", id))
	}
	return ev, nil
}

func (s *memStore) InsertIncident(_ context.Context, inc *model.Incident) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := int64(len(s.incidents) + 1)
	cp := *inc
	cp.ID = id
	s.incidents[id] = &cp
	return id, nil
}

func (s *memStore) GetIncident(_ context.Context, id int64) (*model.Incident, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inc, ok := s.incidents[id]
	if !ok {
		return nil, errorutil.NotFound(fmt.Sprintf("incident %d not found", id))
	}
	return inc, nil
}

// stdoutChannel 把通知打印到终端
type stdoutChannel struct{}

func (stdoutChannel) Name() string { return "stdout" }

func (stdoutChannel) Send(_ context.Context, payload []byte) error {
	fmt.Printf("  📡 %s\n", payload)
	return nil
}
