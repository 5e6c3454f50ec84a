package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"

	"github.com/you/course-enrollment/pkg/db/dbtest"
	"github.com/you/course-enrollment/services/order-service/internal/domain"
	"github.com/you/course-enrollment/services/order-service/internal/payment"
	"github.com/you/course-enrollment/services/order-service/internal/repository"
)

const testSecret = "rzp_test_secret"

type published struct {
	key string
	v   any
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (p *fakePublisher) Publish(_ context.Context, key string, v any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, published{key: key, v: v})
	return nil
}

func (p *fakePublisher) keys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.msgs))
	for _, m := range p.msgs {
		out = append(out, m.key)
	}
	return out
}

type fakeCache struct {
	mu          sync.Mutex
	entries     map[string][]domain.PurchasedCourse
	gens        map[string]int64
	invalidated []string
	getErr      error
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string][]domain.PurchasedCourse{}, gens: map[string]int64{}}
}

func (c *fakeCache) Get(_ context.Context, id string) ([]domain.PurchasedCourse, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	v, ok := c.entries[id]
	return v, ok, nil
}

func (c *fakeCache) Generation(_ context.Context, id string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[id], nil
}

func (c *fakeCache) Set(_ context.Context, id string, gen int64, courses []domain.PurchasedCourse) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[id] == gen {
		c.entries[id] = courses
	}
	return nil
}

func (c *fakeCache) Invalidate(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
	c.gens[id]++
	c.invalidated = append(c.invalidated, id)
	return nil
}

// flakyRoster fails the first failures calls to AddStudent.
type flakyRoster struct {
	CourseRosterStore
	mu       sync.Mutex
	failures int
}

func (f *flakyRoster) AddStudent(ctx context.Context, e domain.EnrolledStudent) (bool, error) {
	f.mu.Lock()
	if f.failures > 0 {
		f.failures--
		f.mu.Unlock()
		return false, errors.New("roster store down")
	}
	f.mu.Unlock()
	return f.CourseRosterStore.AddStudent(ctx, e)
}

type fixture struct {
	db        *gorm.DB
	orders    *repository.OrderRepo
	students  *repository.StudentCourseRepo
	rosters   *repository.CourseRosterRepo
	verifier  *payment.Verifier
	pub       *fakePublisher
	cache     *fakeCache
	log       *zap.Logger
	projector *Projector
	finalizer *Finalizer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gdb := dbtest.Open(t)
	f := &fixture{
		db:       gdb,
		orders:   repository.NewOrderRepo(gdb),
		students: repository.NewStudentCourseRepo(gdb),
		rosters:  repository.NewCourseRosterRepo(gdb),
		pub:      &fakePublisher{},
		cache:    newFakeCache(),
		log:      zaptest.NewLogger(t),
	}
	require.NoError(t, f.orders.Migrate())
	require.NoError(t, f.students.Migrate())
	require.NoError(t, f.rosters.Migrate())

	v, err := payment.NewVerifier(testSecret)
	require.NoError(t, err)
	f.verifier = v
	f.wire(f.rosters)
	return f
}

// wire rebuilds the projector and finalizer around rosters.
func (f *fixture) wire(rosters CourseRosterStore) {
	f.projector = NewProjector(f.orders, f.students, rosters, f.cache, f.log)
	f.finalizer = NewFinalizer(f.orders, f.verifier, f.projector, f.pub, f.log)
}

// seed stores a pending order with a fixed id.
func (f *fixture) seed(t *testing.T, id, gatewayRef, buyer, course string, price int64) *domain.Order {
	t.Helper()
	o, err := domain.NewPendingOrder(domain.NewOrder{
		Buyer:    domain.Party{ID: buyer, Name: "Student " + buyer, Email: buyer + "@example.com"},
		Seller:   domain.Party{ID: "i1", Name: "Instructor"},
		Course:   domain.Course{ID: course, Title: "Course " + course, Image: "img/" + course + ".png"},
		Price:    price,
		Currency: "INR",
	}, gatewayRef, time.Now())
	require.NoError(t, err)
	o.ID = id
	require.NoError(t, f.orders.CreatePending(context.Background(), o))
	return o
}

func (f *fixture) request(id, gatewayRef, paymentRef string) FinalizeRequest {
	return FinalizeRequest{
		OrderID:           id,
		GatewayOrderRef:   gatewayRef,
		GatewayPaymentRef: paymentRef,
		ClaimedSignature:  f.verifier.Sign(gatewayRef, paymentRef),
	}
}

func (f *fixture) counts(t *testing.T) (courses, students int64) {
	t.Helper()
	require.NoError(t, f.db.Model(&domain.PurchasedCourse{}).Count(&courses).Error)
	require.NoError(t, f.db.Model(&domain.EnrolledStudent{}).Count(&students).Error)
	return courses, students
}
