package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"hirehub/internal/api/middleware"
	"hirehub/internal/database"
)

// JobHandler serves the job catalog: listing with filters, posting,
// deletion, dashboard stats and the caller's saved-jobs set.
type JobHandler struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewJobHandler constructs the handler.
func NewJobHandler(db *gorm.DB, logger *slog.Logger) *JobHandler {
	return &JobHandler{db: db, logger: logger}
}

// ListJobs returns all postings matching the optional filters, newest first.
// Public, no authentication required.
func (h *JobHandler) ListJobs(c *gin.Context) {
	ctx := c.Request.Context()
	query := h.db.WithContext(ctx).Model(&database.Job{})

	if search := c.Query("search"); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(company) LIKE ?", pattern, pattern)
	}
	if department := c.Query("department"); department != "" {
		query = query.Where("department = ?", department)
	}
	if location := c.Query("location"); location != "" {
		query = query.Where("LOWER(location) LIKE ?", "%"+strings.ToLower(location)+"%")
	}
	if jobType := c.Query("type"); jobType != "" {
		query = query.Where("type = ?", jobType)
	}
	if level := c.Query("experienceLevel"); level != "" {
		query = query.Where("experience_level = ?", level)
	}
	if raw := c.Query("minSalary"); raw != "" {
		if min, err := strconv.Atoi(raw); err == nil {
			query = query.Where("min_salary >= ?", min)
		}
	}
	if raw := c.Query("maxSalary"); raw != "" {
		if max, err := strconv.Atoi(raw); err == nil {
			query = query.Where("max_salary <= ?", max)
		}
	}

	var jobs []database.Job
	if err := query.Order("created_at DESC").Find(&jobs).Error; err != nil {
		middleware.LoggerFromContext(c).Error("list jobs failed", slog.Any("error", err))
		ServerError(c)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "jobs": jobs, "total": len(jobs)})
}

// MyJobs returns the postings owned by the caller. Recruiter/Admin only.
func (h *JobHandler) MyJobs(c *gin.Context) {
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

	var jobs []database.Job
	if err := h.db.WithContext(ctx).
		Where("posted_by_id = ?", caller.ID).
		Order("created_at DESC").
		Find(&jobs).Error; err != nil {
		middleware.LoggerFromContext(c).Error("list own jobs failed", slog.Any("error", err))
		ServerError(c)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "jobs": jobs})
}

type createJobRequest struct {
	Title           string `json:"title" binding:"required"`
	Company         string `json:"company"`
	Location        string `json:"location" binding:"required"`
	Type            string `json:"type" binding:"required"`
	Department      string `json:"department"`
	Description     string `json:"description" binding:"required"`
	Salary          string `json:"salary"`
	MinSalary       *int   `json:"minSalary"`
	MaxSalary       *int   `json:"maxSalary"`
	ExperienceLevel string `json:"experienceLevel"`
}

// CreateJob posts a new job owned by the caller. Recruiter/Admin only; the
// company falls back to the caller's profile company when absent.
func (h *JobHandler) CreateJob(c *gin.Context) {
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

	var req createJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	company := req.Company
	if company == "" {
		company = caller.CompanyName
	}
	level := req.ExperienceLevel
	if level == "" {
		level = "Entry Level"
	}

	job := database.Job{
		Title:           req.Title,
		Company:         company,
		Location:        req.Location,
		Type:            req.Type,
		Department:      req.Department,
		Description:     req.Description,
		Salary:          req.Salary,
		MinSalary:       req.MinSalary,
		MaxSalary:       req.MaxSalary,
		ExperienceLevel: level,
		PostedByID:      caller.ID,
	}

	if err := h.db.WithContext(ctx).Create(&job).Error; err != nil {
		middleware.LoggerFromContext(c).Error("create job failed", slog.Any("error", err))
		ServerError(c)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "job": job})
}

// DeleteJob removes a posting. Allowed for its owner or an Admin.
// Applications against the job are left in place.
func (h *JobHandler) DeleteJob(c *gin.Context) {
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

	if err := h.db.WithContext(ctx).Delete(&job).Error; err != nil {
		middleware.LoggerFromContext(c).Error("delete job failed", slog.Any("error", err))
		ServerError(c)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Job removed"})
}

// Stats returns role-scoped dashboard counts.
func (h *JobHandler) Stats(c *gin.Context) {
	ctx := c.Request.Context()

	caller, err := resolveCaller(ctx, h.db, c)
	if err != nil {
		AbortUnauthorized(c)
		return
	}

	var jobsCount, applicationsCount, usersCount int64

	switch caller.Role {
	case database.RoleAdmin:
		if err := h.db.WithContext(ctx).Model(&database.Job{}).Count(&jobsCount).Error; err != nil {
			ServerError(c)
			return
		}
		if err := h.db.WithContext(ctx).Model(&database.Application{}).Count(&applicationsCount).Error; err != nil {
			ServerError(c)
			return
		}
		if err := h.db.WithContext(ctx).Model(&database.User{}).Count(&usersCount).Error; err != nil {
			ServerError(c)
			return
		}
	case database.RoleRecruiter:
		if err := h.db.WithContext(ctx).Model(&database.Job{}).
			Where("posted_by_id = ?", caller.ID).
			Count(&jobsCount).Error; err != nil {
			ServerError(c)
			return
		}
		if err := h.db.WithContext(ctx).Model(&database.Application{}).
			Where("job_id IN (?)", h.db.Model(&database.Job{}).Select("id").Where("posted_by_id = ?", caller.ID)).
			Count(&applicationsCount).Error; err != nil {
			ServerError(c)
			return
		}
	default:
		if err := h.db.WithContext(ctx).Model(&database.Job{}).Count(&jobsCount).Error; err != nil {
			ServerError(c)
			return
		}
		if err := h.db.WithContext(ctx).Model(&database.Application{}).
			Where("applicant_id = ?", caller.ID).
			Count(&applicationsCount).Error; err != nil {
			ServerError(c)
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "stats": gin.H{
		"jobsCount":         jobsCount,
		"applicationsCount": applicationsCount,
		"usersCount":        usersCount,
	}})
}

// SaveJob adds a posting to the caller's saved set. Saving twice is an error.
func (h *JobHandler) SaveJob(c *gin.Context) {
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

	saved, err := h.savedJobIDs(c, caller)
	if err != nil {
		ServerError(c)
		return
	}
	for _, id := range saved {
		if id == job.ID {
			BadRequest(c, "Job already saved")
			return
		}
	}

	if err := h.db.WithContext(ctx).Model(caller).Association("SavedJobs").Append(&job); err != nil {
		middleware.LoggerFromContext(c).Error("save job failed", slog.Any("error", err))
		ServerError(c)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "savedJobs": append(saved, job.ID)})
}

// UnsaveJob removes a posting from the caller's saved set. Idempotent.
func (h *JobHandler) UnsaveJob(c *gin.Context) {
	ctx := c.Request.Context()

	caller, err := resolveCaller(ctx, h.db, c)
	if err != nil {
		AbortUnauthorized(c)
		return
	}

	jobID, ok := idParam(c, "id")
	if !ok {
		BadRequest(c, "Invalid job id")
		return
	}

	if err := h.db.WithContext(ctx).Model(caller).
		Association("SavedJobs").
		Delete(&database.Job{ID: jobID}); err != nil {
		middleware.LoggerFromContext(c).Error("unsave job failed", slog.Any("error", err))
		ServerError(c)
		return
	}

	saved, err := h.savedJobIDs(c, caller)
	if err != nil {
		ServerError(c)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "savedJobs": saved})
}

// SavedJobs returns the caller's saved postings, fully resolved.
func (h *JobHandler) SavedJobs(c *gin.Context) {
	ctx := c.Request.Context()

	caller, err := resolveCaller(ctx, h.db, c)
	if err != nil {
		AbortUnauthorized(c)
		return
	}

	var jobs []database.Job
	if err := h.db.WithContext(ctx).Model(caller).Association("SavedJobs").Find(&jobs); err != nil {
		middleware.LoggerFromContext(c).Error("list saved jobs failed", slog.Any("error", err))
		ServerError(c)
		return
	}
	if jobs == nil {
		jobs = []database.Job{}
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "jobs": jobs})
}

func (h *JobHandler) savedJobIDs(c *gin.Context, caller *database.User) ([]uint, error) {
	var jobs []database.Job
	if err := h.db.WithContext(c.Request.Context()).Model(caller).Association("SavedJobs").Find(&jobs); err != nil {
		return nil, err
	}
	ids := make([]uint, 0, len(jobs))
	for _, job := range jobs {
		ids = append(ids, job.ID)
	}
	return ids, nil
}
