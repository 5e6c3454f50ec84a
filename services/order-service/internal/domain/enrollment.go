package domain

import "time"

// StudentCourseList is the per-buyer projection of confirmed orders.
type StudentCourseList struct {
	StudentID string            `gorm:"primaryKey" json:"userId"`
	Courses   []PurchasedCourse `gorm:"foreignKey:StudentID;references:StudentID" json:"courses"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

// PurchasedCourse is unique per (StudentID, CourseID); ID keeps append order.
type PurchasedCourse struct {
	ID             uint      `gorm:"primaryKey" json:"-"`
	StudentID      string    `gorm:"not null;uniqueIndex:uq_student_course" json:"-"`
	CourseID       string    `gorm:"not null;uniqueIndex:uq_student_course" json:"courseId"`
	Title          string    `json:"title"`
	InstructorID   string    `json:"instructorId"`
	InstructorName string    `json:"instructorName"`
	CourseImage    string    `json:"courseImage"`
	DateOfPurchase time.Time `json:"dateOfPurchase"`
}

// CourseRoster is the per-course projection of confirmed orders.
type CourseRoster struct {
	CourseID  string            `gorm:"primaryKey" json:"courseId"`
	Students  []EnrolledStudent `gorm:"foreignKey:CourseID;references:CourseID" json:"students"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

// EnrolledStudent is unique per (CourseID, StudentID).
type EnrolledStudent struct {
	ID           uint   `gorm:"primaryKey" json:"-"`
	CourseID     string `gorm:"not null;uniqueIndex:uq_course_student" json:"-"`
	StudentID    string `gorm:"not null;uniqueIndex:uq_course_student" json:"studentId"`
	StudentName  string `json:"studentName"`
	StudentEmail string `json:"studentEmail"`
	PaidAmount   int64  `json:"paidAmount"`
}

// PurchasedCourseFrom derives the student-side entry of a Finalized order.
func PurchasedCourseFrom(o *Order) PurchasedCourse {
	at := o.OrderDate
	if o.ConfirmedAt != nil {
		at = *o.ConfirmedAt
	}
	return PurchasedCourse{
		StudentID:      o.UserID,
		CourseID:       o.CourseID,
		Title:          o.CourseTitle,
		InstructorID:   o.InstructorID,
		InstructorName: o.InstructorName,
		CourseImage:    o.CourseImage,
		DateOfPurchase: at,
	}
}

// EnrolledStudentFrom derives the course-side entry of a Finalized order.
func EnrolledStudentFrom(o *Order) EnrolledStudent {
	return EnrolledStudent{
		CourseID:     o.CourseID,
		StudentID:    o.UserID,
		StudentName:  o.UserName,
		StudentEmail: o.UserEmail,
		PaidAmount:   o.CoursePricing,
	}
}
