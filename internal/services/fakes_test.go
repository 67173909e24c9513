package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"roomchat/internal/mocks"
	"roomchat/internal/models"
	"roomchat/internal/repositories"
)

type recordedEvent struct {
	roomID string
	event  models.Event
}

type fakeHub struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (h *fakeHub) BroadcastToRoom(roomID string, event models.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, recordedEvent{roomID: roomID, event: event})
}

func (h *fakeHub) recorded() []recordedEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]recordedEvent(nil), h.events...)
}

type fakeMembers map[string][]string

func (m fakeMembers) IsMember(_ context.Context, userID, roomID string) (bool, error) {
	for _, id := range m[roomID] {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}

type staticSenders map[string]models.Sender

func (s staticSenders) Sender(_ context.Context, userID string) (models.Sender, error) {
	sender, ok := s[userID]
	if !ok {
		return models.Sender{}, repositories.ErrUserNotFound
	}
	return sender, nil
}

// historyRepo serves ListMessagesBefore from memory and everything else from the mock.
type historyRepo struct {
	mocks.MessageRepositoryMock
	mu    sync.Mutex
	msgs  []models.Message
	calls int
}

func newHistoryRepo(roomID string, n int) *historyRepo {
	repo := &historyRepo{}
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		repo.msgs = append(repo.msgs, models.Message{
			ID:        idFor(i),
			RoomID:    roomID,
			SenderID:  "u1",
			Content:   idFor(i),
			Kind:      models.KindText,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
	}
	return repo
}

func idFor(i int) string {
	return fmt.Sprintf("m%03d", i)
}

func (r *historyRepo) ListMessagesBefore(_ context.Context, roomID string, cursor models.HistoryCursor, limit int) ([]models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	sorted := append([]models.Message(nil), r.msgs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].CreatedAt.After(sorted[j].CreatedAt) })
	var out []models.Message
	for _, m := range sorted {
		if m.RoomID != roomID {
			continue
		}
		if !cursor.IsZero() && !m.CreatedAt.Before(cursor.CreatedAt) {
			continue
		}
		out = append(out, m)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *historyRepo) fetches() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

type fakeSink struct {
	mu       sync.Mutex
	alive    bool
	events   []models.Event
	dieAfter int
}

func newSink() *fakeSink { return &fakeSink{alive: true} }

func (s *fakeSink) Alive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.alive
}

func (s *fakeSink) Send(event models.Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.alive {
		return false
	}
	s.events = append(s.events, event)
	if s.dieAfter > 0 && len(s.events) >= s.dieAfter {
		s.alive = false
	}
	return true
}

func (s *fakeSink) received() []models.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Event(nil), s.events...)
}
