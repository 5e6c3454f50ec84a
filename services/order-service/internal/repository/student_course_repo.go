package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/you/course-enrollment/services/order-service/internal/domain"
)

type StudentCourseRepo struct{ db *gorm.DB }

func NewStudentCourseRepo(db *gorm.DB) *StudentCourseRepo {
	return &StudentCourseRepo{db: db}
}

func (r *StudentCourseRepo) Migrate() error {
	return r.db.AutoMigrate(&domain.StudentCourseList{}, &domain.PurchasedCourse{})
}

// AddCourse creates the student's list on first use and appends entry unless
// the list already holds that course. inserted is false for the no-op case.
func (r *StudentCourseRepo) AddCourse(ctx context.Context, entry domain.PurchasedCourse) (inserted bool, err error) {
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		list := domain.StudentCourseList{StudentID: entry.StudentID, CreatedAt: now, UpdatedAt: now}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Omit(clause.Associations).Create(&list).Error; err != nil {
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
		return tx.Model(&domain.StudentCourseList{}).
			Where("student_id = ?", entry.StudentID).
			Update("updated_at", now).Error
	})
	if err != nil {
		return false, fmt.Errorf("%w: add course %s for student %s: %w", domain.ErrPersistence, entry.CourseID, entry.StudentID, err)
	}
	return inserted, nil
}

// Courses lists a student's purchases in the order they were added.
func (r *StudentCourseRepo) Courses(ctx context.Context, studentID string) ([]domain.PurchasedCourse, error) {
	out := []domain.PurchasedCourse{}
	if err := r.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("id ASC").
		Find(&out).Error; err != nil {
		return nil, fmt.Errorf("%w: list courses of %s: %w", domain.ErrPersistence, studentID, err)
	}
	return out, nil
}
