package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/you/course-enrollment/services/order-service/internal/cache"
	"github.com/you/course-enrollment/services/order-service/internal/domain"
)

// interleavedStore runs between once, after the first Courses read has
// loaded its rows and before the caller sees them.
type interleavedStore struct {
	StudentCourseStore
	once    sync.Once
	between func()
}

func (s *interleavedStore) Courses(ctx context.Context, studentID string) ([]domain.PurchasedCourse, error) {
	courses, err := s.StudentCourseStore.Courses(ctx, studentID)
	s.once.Do(s.between)
	return courses, err
}

func TestEnrollmentSvc_StudentCoursesReadThrough(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := NewEnrollmentSvc(f.students, f.rosters, f.cache, f.log)
	f.seed(t, "o1", "gw1", "u1", "c1", 500)
	_, err := f.finalizer.Finalize(ctx, f.request("o1", "gw1", "pay1"))
	require.NoError(t, err)

	courses, err := svc.StudentCourses(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, courses, 1)
	cached, ok, _ := f.cache.Get(ctx, "u1")
	require.True(t, ok)
	assert.Equal(t, courses, cached)

	// a new purchase drops the cached list
	f.seed(t, "o2", "gw2", "u1", "c2", 500)
	_, err = f.finalizer.Finalize(ctx, f.request("o2", "gw2", "pay2"))
	require.NoError(t, err)
	courses, err = svc.StudentCourses(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, courses, 2)
}

func TestEnrollmentSvc_PurchaseDuringMissIsNotOverwritten(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	courseCache := cache.NewStudentCourses(rdb, time.Minute)

	projector := NewProjector(f.orders, f.students, f.rosters, courseCache, f.log)
	finalizer := NewFinalizer(f.orders, f.verifier, projector, f.pub, f.log)
	f.seed(t, "o1", "gw1", "u1", "c1", 500)

	store := &interleavedStore{StudentCourseStore: f.students, between: func() {
		_, err := finalizer.Finalize(ctx, f.request("o1", "gw1", "pay1"))
		require.NoError(t, err)
	}}
	svc := NewEnrollmentSvc(store, f.rosters, courseCache, f.log)

	// the miss read the list from before the purchase
	courses, err := svc.StudentCourses(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, courses)
	assert.False(t, mr.Exists("student-courses:u1"))

	courses, err = svc.StudentCourses(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.Equal(t, "c1", courses[0].CourseID)

	cached, ok, err := courseCache.Get(ctx, "u1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, cached, 1)
}

func TestEnrollmentSvc_StaleFillIsDropped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, "o1", "gw1", "u1", "c1", 500)
	store := &interleavedStore{StudentCourseStore: f.students, between: func() {
		_, err := f.finalizer.Finalize(ctx, f.request("o1", "gw1", "pay1"))
		require.NoError(t, err)
	}}
	svc := NewEnrollmentSvc(store, f.rosters, f.cache, f.log)

	_, err := svc.StudentCourses(ctx, "u1")
	require.NoError(t, err)
	_, ok, _ := f.cache.Get(ctx, "u1")
	assert.False(t, ok)
	assert.Equal(t, []string{"u1"}, f.cache.invalidated)
}

func TestEnrollmentSvc_CacheErrorFallsBackToStore(t *testing.T) {
	f := newFixture(t)
	f.cache.getErr = errors.New("redis down")
	svc := NewEnrollmentSvc(f.students, f.rosters, f.cache, f.log)

	courses, err := svc.StudentCourses(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, courses)
}

func TestEnrollmentSvc_NoCache(t *testing.T) {
	f := newFixture(t)
	svc := NewEnrollmentSvc(f.students, f.rosters, nil, f.log)

	courses, err := svc.StudentCourses(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, courses)

	_, err = svc.StudentCourses(context.Background(), " ")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestEnrollmentSvc_CourseStudents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := NewEnrollmentSvc(f.students, f.rosters, nil, f.log)
	f.seed(t, "o1", "gw1", "u1", "c1", 500)
	f.seed(t, "o2", "gw2", "u2", "c1", 500)
	for _, r := range []FinalizeRequest{f.request("o1", "gw1", "p1"), f.request("o2", "gw2", "p2")} {
		_, err := f.finalizer.Finalize(ctx, r)
		require.NoError(t, err)
	}

	students, err := svc.CourseStudents(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, students, 2)
	assert.Equal(t, "u1", students[0].StudentID)
	assert.Equal(t, "u2", students[1].StudentID)

	_, err = svc.CourseStudents(ctx, "")
	assert.ErrorIs(t, err, domain.ErrValidation)
}
