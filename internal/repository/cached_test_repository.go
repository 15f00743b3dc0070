package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/500AN/Question-Bank/internal/model"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// cachedTestRepository keeps the hydrated question set of a test in Redis
// for ttl. The test row itself is always read from the database so that
// availability flags, windows and restrictions take effect immediately.
// Cache failures fall through to the wrapped repository.
type cachedTestRepository struct {
	next TestRepository
	rdb  *redis.Client
	ttl  time.Duration
}

func NewCachedTestRepository(next TestRepository, rdb *redis.Client, ttl time.Duration) TestRepository {
	return &cachedTestRepository{next: next, rdb: rdb, ttl: ttl}
}

func testCacheKey(id uint) string {
	return fmt.Sprintf("qb:test:%d:questions", id)
}

func (r *cachedTestRepository) FindByID(ctx context.Context, id uint) (*model.Test, error) {
	return r.next.FindByID(ctx, id)
}

func (r *cachedTestRepository) FindByIDUnscoped(ctx context.Context, id uint) (*model.Test, error) {
	return r.next.FindByIDUnscoped(ctx, id)
}

func (r *cachedTestRepository) FindByIDs(ctx context.Context, ids []uint) ([]model.Test, error) {
	return r.next.FindByIDs(ctx, ids)
}

func (r *cachedTestRepository) FindByIDWithQuestions(ctx context.Context, id uint) (*model.Test, error) {
	key := testCacheKey(id)
	if questions, ok := r.cachedQuestions(ctx, key); ok {
		test, err := r.next.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		test.Questions = questions
		return test, nil
	}

	test, err := r.next.FindByIDWithQuestions(ctx, id)
	if err != nil {
		return nil, err
	}
	if buf, err := json.Marshal(test.Questions); err == nil {
		if err := r.rdb.Set(ctx, key, buf, r.ttl).Err(); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("Test cache write failed")
		}
	}
	return test, nil
}

func (r *cachedTestRepository) cachedQuestions(ctx context.Context, key string) ([]model.Question, bool) {
	raw, err := r.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Str("key", key).Msg("Test cache read failed, falling back to database")
		}
		return nil, false
	}
	var questions []model.Question
	if err := json.Unmarshal(raw, &questions); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Discarding undecodable cached question set")
		return nil, false
	}
	return questions, true
}
