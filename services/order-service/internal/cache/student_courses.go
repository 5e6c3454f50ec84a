package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/you/course-enrollment/services/order-service/internal/domain"
)

const (
	keyPrefix = "student-courses:"
	genPrefix = "student-courses-gen:"
)

// StudentCourses keeps a student's purchased-course list in Redis as JSON.
//
// Each student also has a generation counter that Invalidate bumps. Readers
// take the generation before loading from the database and pass it to Set,
// which drops the write if an invalidation happened in between.
type StudentCourses struct {
	rdb redis.UniversalClient
	ttl time.Duration
}

func NewStudentCourses(rdb redis.UniversalClient, ttl time.Duration) *StudentCourses {
	return &StudentCourses{rdb: rdb, ttl: ttl}
}

func key(studentID string) string    { return keyPrefix + studentID }
func genKey(studentID string) string { return genPrefix + studentID }

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func generation(ctx context.Context, g getter, studentID string) (int64, error) {
	n, err := g.Get(ctx, genKey(studentID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get generation: %w", err)
	}
	return n, nil
}

// Generation returns the student's current cache generation, 0 if it was
// never invalidated.
func (c *StudentCourses) Generation(ctx context.Context, studentID string) (int64, error) {
	return generation(ctx, c.rdb, studentID)
}

// Get reports ok=false on a miss.
func (c *StudentCourses) Get(ctx context.Context, studentID string) ([]domain.PurchasedCourse, bool, error) {
	raw, err := c.rdb.Get(ctx, key(studentID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	var courses []domain.PurchasedCourse
	if err := json.Unmarshal(raw, &courses); err != nil {
		return nil, false, fmt.Errorf("decode cached courses: %w", err)
	}
	return courses, true, nil
}

// Set stores courses only while the student's generation still equals gen.
// A stale write is skipped without error.
func (c *StudentCourses) Set(ctx context.Context, studentID string, gen int64, courses []domain.PurchasedCourse) error {
	raw, err := json.Marshal(courses)
	if err != nil {
		return err
	}
	err = c.rdb.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := generation(ctx, tx, studentID)
		if err != nil {
			return err
		}
		if cur != gen {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key(studentID), raw, c.ttl)
			return nil
		})
		return err
	}, genKey(studentID))
	if errors.Is(err, redis.TxFailedErr) {
		return nil
	}
	return err
}

func (c *StudentCourses) Invalidate(ctx context.Context, studentID string) error {
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, genKey(studentID))
		pipe.Del(ctx, key(studentID))
		return nil
	})
	return err
}
