package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/you/course-enrollment/services/order-service/internal/domain"
)

type CourseRosterRepo struct{ db *gorm.DB }

func NewCourseRosterRepo(db *gorm.DB) *CourseRosterRepo {
	return &CourseRosterRepo{db: db}
}

func (r *CourseRosterRepo) Migrate() error {
	return r.db.AutoMigrate(&domain.CourseRoster{}, &domain.EnrolledStudent{})
}

// AddStudent inserts entry into the course roster with set semantics keyed by
// student id. An existing entry is left untouched.
func (r *CourseRosterRepo) AddStudent(ctx context.Context, entry domain.EnrolledStudent) (inserted bool, err error) {
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		roster := domain.CourseRoster{CourseID: entry.CourseID, CreatedAt: now, UpdatedAt: now}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Omit(clause.Associations).Create(&roster).Error; err != nil {
			return err
		}

		entry.ID = 0
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&entry)
		if res.Error != nil {
			return res.Error
		}
		inserted = res.RowsAffected > 0
		if !inserted {
			return nil
		}
		return tx.Model(&domain.CourseRoster{}).
			Where("course_id = ?", entry.CourseID).
			Update("updated_at", now).Error
	})
	if err != nil {
		return false, fmt.Errorf("%w: enroll student %s in %s: %w", domain.ErrPersistence, entry.StudentID, entry.CourseID, err)
	}
	return inserted, nil
}

func (r *CourseRosterRepo) Students(ctx context.Context, courseID string) ([]domain.EnrolledStudent, error) {
	out := []domain.EnrolledStudent{}
	if err := r.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("id ASC").
		Find(&out).Error; err != nil {
		return nil, fmt.Errorf("%w: list roster of %s: %w", domain.ErrPersistence, courseID, err)
	}
	return out, nil
}
