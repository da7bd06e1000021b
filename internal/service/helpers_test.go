package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"ironworks/gym-app/internal/domain"
	"ironworks/gym-app/internal/repository"
	"ironworks/gym-app/internal/repository/memory"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// fakeClock is a settable Clock.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(t time.Time) *fakeClock { return &fakeClock{t: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// mapCache is an in-process Cache for asserting hits and invalidations.
type mapCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	gets    int
	hits    int
}

func newMapCache() *mapCache { return &mapCache{entries: map[string][]byte{}} }

func (c *mapCache) GetJSON(_ context.Context, key string, dst interface{}) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	b, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	c.hits++
	return true, json.Unmarshal(b, dst)
}

func (c *mapCache) SetJSON(_ context.Context, key string, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = b
	return nil
}

func (c *mapCache) DeletePrefix(_ context.Context, prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
		}
	}
	return nil
}

func (c *mapCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// fakeStorage keeps uploaded objects in memory.
type fakeStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
}

func newFakeStorage() *fakeStorage { return &fakeStorage{objects: map[string][]byte{}} }

func (s *fakeStorage) PutObject(_ context.Context, key, _ string, body io.Reader, _ int64) error {
	if s.putErr != nil {
		return s.putErr
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, body); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = buf.Bytes()
	return nil
}

func (s *fakeStorage) GeneratePresignedDownloadURL(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://storage.test/" + key + "?signed=1", nil
}

func (s *fakeStorage) DeleteObject(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

// failingExportRepo rejects every write.
type failingExportRepo struct{}

func (failingExportRepo) Create(context.Context, *domain.AttendanceExport) (primitive.ObjectID, error) {
	return primitive.NilObjectID, errors.New("disk full")
}

func (failingExportRepo) GetByID(context.Context, primitive.ObjectID) (*domain.AttendanceExport, error) {
	return nil, repository.ErrNotFound
}

// challengeFixture wires the challenge services over memory repositories.
type challengeFixture struct {
	clock          *fakeClock
	cache          *mapCache
	challenges     repository.ChallengeRepository
	participations repository.ParticipationRepository
	challengeSvc   ChallengeService
	leaderboardSvc LeaderboardService
	participation  ParticipationService
}

func newChallengeFixture(t *testing.T) *challengeFixture {
	t.Helper()
	f := &challengeFixture{
		clock:          newFakeClock(time.Date(2025, 10, 1, 9, 0, 0, 0, time.UTC)),
		cache:          newMapCache(),
		challenges:     memory.NewChallengeRepository(),
		participations: memory.NewParticipationRepository(),
	}
	log := zap.NewNop()
	f.challengeSvc = NewChallengeService(f.challenges, f.participations, f.cache, log, f.clock.Now)
	f.leaderboardSvc = NewLeaderboardService(f.challenges, f.participations, f.cache, 10, log, f.clock.Now)
	f.participation = NewParticipationService(f.challenges, f.participations, f.leaderboardSvc, log, f.clock.Now)
	return f
}

// createTaskChallenge creates an active challenge with tasks on days 1..days.
func (f *challengeFixture) createTaskChallenge(t *testing.T, days int) *domain.Challenge {
	t.Helper()
	tasks := make([]domain.ChallengeTask, days)
	for i := range tasks {
		tasks[i] = domain.ChallengeTask{Day: i + 1, Description: fmt.Sprintf("day %d", i+1)}
	}
	c, err := f.challengeSvc.CreateChallenge(context.Background(), &domain.Challenge{
		Title:    "Push-up ladder",
		Type:     domain.ChallengeTypeTask,
		Tasks:    tasks,
		IsActive: true,
	}, "trainer-1")
	require.NoError(t, err)
	return c
}

func (f *challengeFixture) join(t *testing.T, challengeID primitive.ObjectID, userID string) *domain.Participation {
	t.Helper()
	p, err := f.participation.JoinChallenge(context.Background(), challengeID, userID, "User "+userID, JoinOptions{})
	require.NoError(t, err)
	return p
}

func (f *challengeFixture) mark(t *testing.T, challengeID primitive.ObjectID, userID string, days ...int) {
	t.Helper()
	for _, d := range days {
		_, err := f.participation.MarkProgress(context.Background(), challengeID, userID, d, true)
		require.NoError(t, err)
	}
}
