package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"manejobot/internal/database"
	"manejobot/internal/models"
)

// ErrThreadBusy means another turn for the same thread is in flight.
var ErrThreadBusy = errors.New("outra mensagem desta conversa está sendo processada")

const (
	turnLockTTL    = 90 * time.Second
	turnLockPrefix = "manejobot:lock:thread:"
)

// ConversationService persists per-thread dialogue state and serializes
// turns. Serialization is two-level: a keyed mutex within the process and
// a Redis lock across instances.
type ConversationService struct {
	col   *mongo.Collection
	redis *RedisService

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewConversationService(mongoDB *database.Mongo, redis *RedisService) *ConversationService {
	return &ConversationService{
		col:   mongoDB.Collection("conversations"),
		redis: redis,
		locks: make(map[string]*sync.Mutex),
	}
}

func (s *ConversationService) threadMutex(threadID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.locks[threadID]
	if !ok {
		m = &sync.Mutex{}
		s.locks[threadID] = m
	}
	return m
}

// WithThread runs fn holding the turn lock for the thread. State is loaded
// before fn and saved after it, even when fn's outcome is an error reply;
// a partially filled conversation is still progress.
func (s *ConversationService) WithThread(ctx context.Context, threadID, userID string, pmoID int64, fn func(conv *models.Conversation) error) error {
	m := s.threadMutex(threadID)
	m.Lock()
	defer m.Unlock()

	if s.redis != nil {
		key := turnLockPrefix + threadID
		ok, err := s.redis.AcquireLock(ctx, key, turnLockTTL)
		if err != nil {
			return fmt.Errorf("erro ao travar conversa: %w", err)
		}
		if !ok {
			return ErrThreadBusy
		}
		defer func() { _ = s.redis.ReleaseLock(context.Background(), key) }()
	}

	conv, err := s.load(ctx, threadID, userID, pmoID)
	if err != nil {
		return err
	}

	fnErr := fn(conv)

	conv.UpdatedAt = time.Now()
	if saveErr := s.save(ctx, conv); saveErr != nil {
		if fnErr != nil {
			return fnErr
		}
		return saveErr
	}
	return fnErr
}

func (s *ConversationService) load(ctx context.Context, threadID, userID string, pmoID int64) (*models.Conversation, error) {
	var conv models.Conversation
	err := s.col.FindOne(ctx, bson.M{"_id": threadID}).Decode(&conv)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.NewConversation(threadID, userID, pmoID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("erro ao carregar conversa: %w", err)
	}
	if conv.Slots == nil {
		conv.Slots = make(map[string]string)
	}
	return &conv, nil
}

func (s *ConversationService) save(ctx context.Context, conv *models.Conversation) error {
	_, err := s.col.ReplaceOne(ctx,
		bson.M{"_id": conv.ThreadID}, conv, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("erro ao salvar conversa: %w", err)
	}
	return nil
}

// CountActiveSince counts conversations updated in the window, feeding the
// active-conversations gauge.
func (s *ConversationService) CountActiveSince(ctx context.Context, since time.Time) (int64, error) {
	return s.col.CountDocuments(ctx, bson.M{"updated_at": bson.M{"$gte": since}})
}

// PruneIdleLocks drops in-process mutexes no turn currently holds, keeping
// the map from growing one entry per thread ever seen.
func (s *ConversationService) PruneIdleLocks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	pruned := 0
	for id, m := range s.locks {
		if m.TryLock() {
			m.Unlock()
			delete(s.locks, id)
			pruned++
		}
	}
	return pruned
}
