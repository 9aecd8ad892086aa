package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/rocketscienceinc/gameroom-backend/internal/apperror"
	"github.com/rocketscienceinc/gameroom-backend/internal/entity"
	"github.com/rocketscienceinc/gameroom-backend/internal/repository"
)

var (
	start = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	alice = entity.Player{ID: "p1", Nickname: "alice"}
	bob   = entity.Player{ID: "p2", Nickname: "bob"}
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *fakeClock {
	return &fakeClock{now: start}
}

func (that *fakeClock) Now() time.Time {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.now
}

func (that *fakeClock) Advance(d time.Duration) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.now = that.now.Add(d)
}

func sequentialIDs() func() string {
	var next int

	return func() string {
		next++
		return fmt.Sprintf("session-%d", next)
	}
}

// memStore keeps JSON copies so callers can't alias stored records.
type memStore[T repository.Record] struct {
	mu      sync.Mutex
	records map[string][]byte
	writes  int

	// listed is reported by PendingResets on top of the records that are pending.
	listed []string
	// interleave runs once at the start of the next UpdateIf, outside the lock.
	interleave func()
}

func newMemStore[T repository.Record]() *memStore[T] {
	return &memStore[T]{records: map[string][]byte{}}
}

func (that *memStore[T]) GetByID(_ context.Context, id string) (*T, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.load(id)
}

func (that *memStore[T]) load(id string) (*T, error) {
	data, ok := that.records[id]
	if !ok {
		return nil, apperror.ErrSessionNotFound
	}

	var rec T
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}

	return &rec, nil
}

func (that *memStore[T]) Insert(_ context.Context, rec *T) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	id := (*rec).SessionID()
	if _, ok := that.records[id]; ok {
		return apperror.ErrSessionExists
	}

	return that.store(id, rec)
}

func (that *memStore[T]) UpdateIf(_ context.Context, expected entity.Guard, rec *T) error {
	that.mu.Lock()
	interleave := that.interleave
	that.interleave = nil
	that.mu.Unlock()

	if interleave != nil {
		interleave()
	}

	that.mu.Lock()
	defer that.mu.Unlock()

	id := (*rec).SessionID()

	stored, err := that.load(id)
	if err != nil {
		return err
	}

	if (*stored).Guard() != expected {
		return apperror.ErrStaleState
	}

	return that.store(id, rec)
}

func (that *memStore[T]) store(id string, rec *T) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	that.records[id] = data
	that.writes++

	return nil
}

func (that *memStore[T]) PendingResets(_ context.Context) ([]string, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	ids := append([]string(nil), that.listed...)
	for id := range that.records {
		rec, err := that.load(id)
		if err != nil {
			return nil, err
		}

		if pending, ok := any(rec).(interface{ HasPendingMismatch() bool }); ok && pending.HasPendingMismatch() {
			ids = append(ids, id)
		}
	}

	return ids, nil
}

func (that *memStore[T]) Delete(_ context.Context, id string) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	delete(that.records, id)

	return nil
}

func (that *memStore[T]) Writes() int {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.writes
}

type mockTicTacToeRepo struct {
	mock.Mock
}

func (that *mockTicTacToeRepo) GetByID(ctx context.Context, id string) (*entity.TicTacToeSession, error) {
	args := that.Called(ctx, id)
	session, _ := args.Get(0).(*entity.TicTacToeSession)

	return session, args.Error(1)
}

func (that *mockTicTacToeRepo) Insert(ctx context.Context, rec *entity.TicTacToeSession) error {
	return that.Called(ctx, rec).Error(0)
}

func (that *mockTicTacToeRepo) UpdateIf(ctx context.Context, expected entity.Guard, rec *entity.TicTacToeSession) error {
	return that.Called(ctx, expected, rec).Error(0)
}

func (that *mockTicTacToeRepo) PendingResets(ctx context.Context) ([]string, error) {
	args := that.Called(ctx)
	ids, _ := args.Get(0).([]string)

	return ids, args.Error(1)
}

func (that *mockTicTacToeRepo) Delete(ctx context.Context, id string) error {
	return that.Called(ctx, id).Error(0)
}

type mockPlayerRegistry struct {
	mock.Mock
}

func (that *mockPlayerRegistry) Remember(ctx context.Context, player entity.Player, seenAt time.Time) error {
	return that.Called(ctx, player, seenAt).Error(0)
}

func (that *mockPlayerRegistry) Lookup(ctx context.Context, id string) (*entity.Player, error) {
	args := that.Called(ctx, id)
	player, _ := args.Get(0).(*entity.Player)

	return player, args.Error(1)
}

type mockResults struct {
	mock.Mock
}

func (that *mockResults) Record(ctx context.Context, results ...repository.GameResult) error {
	return that.Called(ctx, results).Error(0)
}
