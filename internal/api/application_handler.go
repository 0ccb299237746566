package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"hirehub/internal/api/middleware"
	"hirehub/internal/database"
)

// ApplicationHandler serves the application ledger: applying to jobs and
// reviewing/updating applications.
type ApplicationHandler struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewApplicationHandler constructs the handler.
func NewApplicationHandler(db *gorm.DB, logger *slog.Logger) *ApplicationHandler {
	return &ApplicationHandler{db: db, logger: logger}
}

type applyRequest struct {
	Resume string `json:"resume"`
}

// applicantProfile is the applicant view exposed to reviewers. No password,
// no account status.
type applicantProfile struct {
	ID         uint     `json:"id"`
	Name       string   `json:"name"`
	Email      string   `json:"email"`
	Resume     string   `json:"resume,omitempty"`
	Skills     string   `json:"skills,omitempty"`
	CGPA       *float64 `json:"cgpa,omitempty"`
	Year       string   `json:"year,omitempty"`
	Department string   `json:"department,omitempty"`
}

func newApplicantProfile(u *database.User) applicantProfile {
	return applicantProfile{
		ID:         u.ID,
		Name:       u.Name,
		Email:      u.Email,
		Resume:     u.Resume,
		Skills:     u.Skills,
		CGPA:       u.CGPA,
		Year:       u.Year,
		Department: u.Department,
	}
}

// reviewedApplication annotates an application with the applicant's profile
// and display fields of the job it targets.
type reviewedApplication struct {
	database.Application
	Applicant applicantProfile `json:"applicant"`
	JobTitle  string           `json:"jobTitle"`
	Company   string           `json:"company"`
}

// Apply creates an application for the caller against one job. Staff
// accounts cannot apply, and applying twice to the same job is an error.
func (h *ApplicationHandler) Apply(c *gin.Context) {
	ctx := c.Request.Context()

	caller, err := resolveCaller(ctx, h.db, c)
	if err != nil {
		AbortUnauthorized(c)
		return
	}
	if caller.IsStaff() {
		BadRequest(c, "Recruiters cannot apply")
		return
	}

	var req applyRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			BadRequest(c, err.Error())
			return
		}
	}

	jobID, ok := idParam(c, "id")
	if !ok {
		NotFound(c, "Job not found")
		return
	}

	var job database.Job
	if err := h.db.WithContext(ctx).First(&job, jobID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "Job not found")
			return
		}
		ServerError(c)
		return
	}

	var existing database.Application
	err = h.db.WithContext(ctx).
		Where("job_id = ? AND applicant_id = ?", job.ID, caller.ID).
		First(&existing).Error
	if err == nil {
		BadRequest(c, "Already applied")
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		ServerError(c)
		return
	}

	resume := caller.Resume
	if resume == "" {
		resume = req.Resume
	}

	application := database.Application{
		JobID:       job.ID,
		ApplicantID: caller.ID,
		Resume:      resume,
		Status:      database.ApplicationPending,
	}
	if err := h.db.WithContext(ctx).Create(&application).Error; err != nil {
		middleware.LoggerFromContext(c).Error("create application failed", slog.Any("error", err))
		ServerError(c)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "application": application})
}

// myApplication annotates the caller's application with display fields of
// the job for the dashboard list.
type myApplication struct {
	database.Application
	JobRefID uint   `json:"jobId"`
	JobTitle string `json:"jobTitle"`
	Company  string `json:"company"`
}

// MyApplications returns every application the caller has submitted.
func (h *ApplicationHandler) MyApplications(c *gin.Context) {
	ctx := c.Request.Context()

	caller, err := resolveCaller(ctx, h.db, c)
	if err != nil {
		AbortUnauthorized(c)
		return
	}

	var applications []database.Application
	if err := h.db.WithContext(ctx).
		Preload("Job").
		Where("applicant_id = ?", caller.ID).
		Find(&applications).Error; err != nil {
		middleware.LoggerFromContext(c).Error("list own applications failed", slog.Any("error", err))
		ServerError(c)
		return
	}

	items := make([]myApplication, 0, len(applications))
	for _, app := range applications {
		items = append(items, myApplication{
			Application: app,
			JobRefID:    app.JobID,
			JobTitle:    app.Job.Title,
			Company:     app.Job.Company,
		})
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "applications": items})
}

// JobApplications returns every application against one job, annotated with
// the applicant's profile. Allowed for the job's owner or an Admin.
func (h *ApplicationHandler) JobApplications(c *gin.Context) {
	ctx := c.Request.Context()

	caller, err := resolveCaller(ctx, h.db, c)
	if err != nil {
		AbortUnauthorized(c)
		return
	}

	jobID, ok := idParam(c, "id")
	if !ok {
		NotFound(c, "Job not found")
		return
	}

	var job database.Job
	if err := h.db.WithContext(ctx).First(&job, jobID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "Job not found")
			return
		}
		ServerError(c)
		return
	}

	if caller.Role != database.RoleAdmin && job.PostedByID != caller.ID {
		Forbidden(c, "Not authorized")
		return
	}

	var applications []database.Application
	if err := h.db.WithContext(ctx).
		Preload("Applicant").
		Where("job_id = ?", job.ID).
		Find(&applications).Error; err != nil {
		middleware.LoggerFromContext(c).Error("list job applications failed", slog.Any("error", err))
		ServerError(c)
		return
	}

	items := make([]reviewedApplication, 0, len(applications))
	for _, app := range applications {
		items = append(items, reviewedApplication{
			Application: app,
			Applicant:   newApplicantProfile(&app.Applicant),
			JobTitle:    job.Title,
			Company:     job.Company,
		})
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "applications": items})
}

// AllApplications returns every application across the caller's postings,
// newest first. Recruiter/Admin only.
func (h *ApplicationHandler) AllApplications(c *gin.Context) {
	ctx := c.Request.Context()

	caller, err := resolveCaller(ctx, h.db, c)
	if err != nil {
		AbortUnauthorized(c)
		return
	}
	if !caller.IsStaff() {
		Forbidden(c, "Not authorized")
		return
	}

	var applications []database.Application
	if err := h.db.WithContext(ctx).
		Preload("Applicant").
		Preload("Job").
		Where("job_id IN (?)", h.db.Model(&database.Job{}).Select("id").Where("posted_by_id = ?", caller.ID)).
		Order("created_at DESC").
		Find(&applications).Error; err != nil {
		middleware.LoggerFromContext(c).Error("list recruiter applications failed", slog.Any("error", err))
		ServerError(c)
		return
	}

	items := make([]reviewedApplication, 0, len(applications))
	for _, app := range applications {
		items = append(items, reviewedApplication{
			Application: app,
			Applicant:   newApplicantProfile(&app.Applicant),
			JobTitle:    app.Job.Title,
			Company:     app.Job.Company,
		})
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "applications": items})
}

type updateApplicationRequest struct {
	Status   string `json:"status"`
	Feedback string `json:"feedback"`
}

// UpdateApplication changes the status and/or feedback of one application.
// Allowed for the owning recruiter or an Admin; only supplied fields change.
func (h *ApplicationHandler) UpdateApplication(c *gin.Context) {
	ctx := c.Request.Context()

	caller, err := resolveCaller(ctx, h.db, c)
	if err != nil {
		AbortUnauthorized(c)
		return
	}

	var req updateApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	applicationID, ok := idParam(c, "id")
	if !ok {
		NotFound(c, "Application not found")
		return
	}

	var application database.Application
	if err := h.db.WithContext(ctx).Preload("Job").First(&application, applicationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "Application not found")
			return
		}
		ServerError(c)
		return
	}

	// The job may have been deleted out from under the application.
	if application.Job.ID == 0 {
		NotFound(c, "Job associated with this application not found")
		return
	}

	if caller.Role != database.RoleAdmin && application.Job.PostedByID != caller.ID {
		Forbidden(c, "Not authorized")
		return
	}

	updates := map[string]any{}
	if req.Status != "" {
		updates["status"] = req.Status
		application.Status = req.Status
	}
	if req.Feedback != "" {
		updates["feedback"] = req.Feedback
		application.Feedback = req.Feedback
	}

	if len(updates) > 0 {
		if err := h.db.WithContext(ctx).Model(&database.Application{}).
			Where("id = ?", application.ID).
			Updates(updates).Error; err != nil {
			middleware.LoggerFromContext(c).Error("update application failed", slog.Any("error", err))
			ServerError(c)
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "application": application})
}
