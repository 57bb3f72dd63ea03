package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"pushdispatch/internal/model"
	"pushdispatch/internal/repository"
	"pushdispatch/pkg/push"
)

var fixedNow = time.Date(2025, 3, 10, 18, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

type fakeSender struct {
	mu    sync.Mutex
	fail  map[string]error
	calls []push.Message
}

func newFakeSender() *fakeSender {
	return &fakeSender{fail: map[string]error{}}
}

func (s *fakeSender) Send(_ context.Context, msg push.Message) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, msg)
	if err, ok := s.fail[msg.Token]; ok {
		return "", err
	}
	if msg.Token == "" {
		return "", errors.New("invalid registration token")
	}
	return "projects/test/messages/" + msg.Token, nil
}

func (s *fakeSender) tokens() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, c := range s.calls {
		out = append(out, c.Token)
	}
	sort.Strings(out)
	return out
}

// record mirrors the status columns shared by notifications and reminders.
type record struct {
	sent     bool
	sentAt   *time.Time
	errorAt  *time.Time
	err      *string
	response *string
	writes   int
}

type fakeNotificationStore struct {
	mu       sync.Mutex
	records  map[string]*record
	writeErr error
}

func newFakeNotificationStore() *fakeNotificationStore {
	return &fakeNotificationStore{records: map[string]*record{}}
}

func (s *fakeNotificationStore) get(id string) *record {
	r, ok := s.records[id]
	if !ok {
		r = &record{}
		s.records[id] = r
	}
	return r
}

func (s *fakeNotificationStore) MarkSent(_ context.Context, id string, at time.Time, response string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return false, s.writeErr
	}
	r := s.get(id)
	r.writes++
	if r.sent {
		return false, nil
	}
	r.sent, r.sentAt, r.response = true, &at, &response
	r.err, r.errorAt = nil, nil
	return true, nil
}

func (s *fakeNotificationStore) MarkFailed(_ context.Context, id string, at time.Time, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return s.writeErr
	}
	r := s.get(id)
	r.writes++
	if !r.sent {
		r.err, r.errorAt, r.sentAt = &reason, &at, nil
	}
	return nil
}

// fakeReminderStore evaluates the due-selection predicate in memory.
type fakeReminderStore struct {
	mu        sync.Mutex
	reminders []*model.Reminder
	writes    map[string]int
	listErr   error

	// failWriteErr is returned by the next MarkFailed, then cleared.
	failWriteErr error
	gotNow    time.Time
	gotFrom   time.Time
	gotLimit  int
}

func newFakeReminderStore(reminders ...*model.Reminder) *fakeReminderStore {
	return &fakeReminderStore{reminders: reminders, writes: map[string]int{}}
}

func (s *fakeReminderStore) ListDue(_ context.Context, now, from time.Time, limit int) ([]*model.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gotNow, s.gotFrom, s.gotLimit = now, from, limit
	if s.listErr != nil {
		return nil, s.listErr
	}

	var due []*model.Reminder
	for _, r := range s.reminders {
		if r.Sent || r.ScheduledFor.After(now) || r.ScheduledFor.Before(from) {
			continue
		}
		cp := *r
		due = append(due, &cp)
	}
	sort.Slice(due, func(i, j int) bool { return due[i].ScheduledFor.Before(due[j].ScheduledFor) })
	if len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (s *fakeReminderStore) find(id string) *model.Reminder {
	for _, r := range s.reminders {
		if r.ID == id {
			return r
		}
	}
	return nil
}

func (s *fakeReminderStore) MarkSent(_ context.Context, id string, at time.Time, response string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes[id]++
	r := s.find(id)
	if r == nil || r.Sent {
		return false, nil
	}
	r.Sent, r.SentAt, r.Response = true, &at, &response
	r.Error, r.ErrorAt = nil, nil
	return true, nil
}

func (s *fakeReminderStore) MarkFailed(_ context.Context, id string, at time.Time, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failWriteErr; err != nil {
		s.failWriteErr = nil
		return err
	}
	s.writes[id]++
	if r := s.find(id); r != nil && !r.Sent {
		r.Error, r.ErrorAt, r.SentAt = &reason, &at, nil
	}
	return nil
}

type fakeUserStore struct {
	users map[string]*model.User
	err   error
}

func (s *fakeUserStore) GetByID(_ context.Context, id string) (*model.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return u, nil
}

type fakeClaimer struct {
	mu       sync.Mutex
	claimed  map[string]bool
	released []string
	// releaseCtxErrs holds ctx.Err() as seen by each Release.
	releaseCtxErrs []error
}

func newFakeClaimer() *fakeClaimer {
	return &fakeClaimer{claimed: map[string]bool{}}
}

func (c *fakeClaimer) AcquireOnce(_ context.Context, handler, id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := handler + ":" + id
	if c.claimed[key] {
		return false
	}
	c.claimed[key] = true
	return true
}

func (c *fakeClaimer) Release(ctx context.Context, handler, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.releaseCtxErrs = append(c.releaseCtxErrs, ctx.Err())
	delete(c.claimed, handler+":"+id)
	c.released = append(c.released, id)
	return nil
}

type sweepRecord struct {
	sent    bool
	sentAt  *time.Time
	errorAt *time.Time
}

type fakeSweepStore struct {
	mu        sync.Mutex
	records   map[string]sweepRecord
	listErr   error
	deleteErr map[string]error
}

func newFakeSweepStore(records map[string]sweepRecord) *fakeSweepStore {
	return &fakeSweepStore{records: records, deleteErr: map[string]error{}}
}

func (s *fakeSweepStore) list(match func(sweepRecord) bool, limit int) []string {
	var ids []string
	for id, r := range s.records {
		if match(r) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids
}

func (s *fakeSweepStore) ListSentBefore(_ context.Context, cutoff time.Time, limit int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.list(func(r sweepRecord) bool {
		return r.sent && r.sentAt != nil && !r.sentAt.After(cutoff)
	}, limit), nil
}

func (s *fakeSweepStore) ListFailedBefore(_ context.Context, cutoff time.Time, limit int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.list(func(r sweepRecord) bool {
		return !r.sent && r.errorAt != nil && !r.errorAt.After(cutoff)
	}, limit), nil
}

func (s *fakeSweepStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.deleteErr[id]; err != nil {
		return err
	}
	delete(s.records, id)
	return nil
}

func (s *fakeSweepStore) has(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.records[id]
	return ok
}

func strPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time { return &t }
