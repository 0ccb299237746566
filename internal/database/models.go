package database

import (
	"time"

	"gorm.io/gorm"
)

// User roles. Role-specific profile fields are only meaningful for the
// matching role but may be stored regardless, mirroring the client forms.
const (
	RoleJobSeeker = "Job Seeker"
	RoleRecruiter = "Recruiter"
	RoleAdmin     = "Admin"
)

// Account statuses. Only active accounts may authenticate.
const (
	StatusActive      = "active"
	StatusPending     = "pending"
	StatusDeactivated = "deactivated"
)

// Application lifecycle statuses.
const (
	ApplicationPending     = "Pending"
	ApplicationShortlisted = "Shortlisted"
	ApplicationInterview   = "Interview Scheduled"
	ApplicationAccepted    = "Accepted"
	ApplicationRejected    = "Rejected"
)

// User is an account record for any of the three roles.
type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Name     string  `gorm:"size:255;not null" json:"name"`
	Email    string  `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Password string  `gorm:"size:255" json:"-"`
	Role     string  `gorm:"size:32;default:'Job Seeker'" json:"role"`
	GoogleID *string `gorm:"uniqueIndex;size:255" json:"googleId,omitempty"`
	Avatar   string  `gorm:"size:512" json:"avatar,omitempty"`
	Status   string  `gorm:"size:32;default:'active'" json:"status"`

	// Job-seeker profile fields.
	Department string   `gorm:"size:255" json:"department,omitempty"`
	Year       string   `gorm:"size:32" json:"year,omitempty"`
	CGPA       *float64 `json:"cgpa,omitempty"`
	Skills     string   `gorm:"size:1024" json:"skills,omitempty"`
	Resume     string   `gorm:"size:255" json:"resume,omitempty"`

	// Recruiter profile field.
	CompanyName string `gorm:"size:255" json:"companyName,omitempty"`

	SavedJobs []Job `gorm:"many2many:user_saved_jobs" json:"-"`
}

// IsStaff reports whether the user may post jobs and review applications.
func (u *User) IsStaff() bool {
	return u.Role == RoleRecruiter || u.Role == RoleAdmin
}

// Job is a posting owned by a recruiter or admin.
type Job struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Title           string `gorm:"size:255;not null" json:"title"`
	Company         string `gorm:"size:255;not null" json:"company"`
	Location        string `gorm:"size:255" json:"location"`
	Type            string `gorm:"size:64" json:"type"`
	Department      string `gorm:"size:255" json:"department,omitempty"`
	Description     string `gorm:"type:text" json:"description"`
	Salary          string `gorm:"size:128" json:"salary,omitempty"`
	MinSalary       *int   `json:"minSalary,omitempty"`
	MaxSalary       *int   `json:"maxSalary,omitempty"`
	ExperienceLevel string `gorm:"size:64;default:'Entry Level'" json:"experienceLevel"`

	PostedByID uint `gorm:"index;not null" json:"postedBy"`
	PostedBy   User `gorm:"foreignKey:PostedByID" json:"-"`
}

// Application records one candidate applying to one job. The composite
// unique index backs up the handler-level duplicate check under races.
type Application struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	JobID       uint   `gorm:"uniqueIndex:idx_job_applicant;not null" json:"job"`
	Job         Job    `gorm:"foreignKey:JobID" json:"-"`
	ApplicantID uint   `gorm:"uniqueIndex:idx_job_applicant;not null" json:"applicant"`
	Applicant   User   `gorm:"foreignKey:ApplicantID" json:"-"`
	Resume      string `gorm:"size:512" json:"resume,omitempty"`
	Status      string `gorm:"size:32;default:'Pending'" json:"status"`
	Feedback    string `gorm:"type:text" json:"feedback,omitempty"`
}

// Resume is the metadata pointer for a candidate's externally stored PDF.
// One record per candidate; re-uploads replace the locator in place.
type Resume struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	CandidateID uint      `gorm:"uniqueIndex;not null" json:"candidateId"`
	ObjectKey   string    `gorm:"size:512;not null" json:"-"`
	FileName    string    `gorm:"size:255;not null" json:"fileName"`
	MimeType    string    `gorm:"size:128;not null" json:"mimeType"`
	FileSize    int64     `gorm:"not null" json:"fileSize"`
	UploadedAt  time.Time `json:"uploadedAt"`
}

// NormalizeRole maps loose client-supplied role strings onto the canonical
// enum. Unrecognized values fall back to Job Seeker.
func NormalizeRole(role string) string {
	switch role {
	case "job-seeker", RoleJobSeeker:
		return RoleJobSeeker
	case "recruiter", RoleRecruiter:
		return RoleRecruiter
	default:
		return RoleJobSeeker
	}
}
