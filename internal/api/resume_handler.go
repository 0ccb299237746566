package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	clamd "github.com/dutchcoders/go-clamd"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"hirehub/internal/api/middleware"
	"hirehub/internal/database"
)

// maxResumeSize caps uploads at 10 MiB, checked before any storage write.
const maxResumeSize = 10 << 20

const resumeURLTTL = time.Hour

// ObjectStorage is the narrow slice of the storage client the resume
// handler needs. Tests substitute a fake.
type ObjectStorage interface {
	UploadFile(ctx context.Context, objectKey string, reader io.Reader, size int64, contentType string) error
	GeneratePresignedURL(ctx context.Context, objectKey string, duration time.Duration) (string, error)
	DeleteObject(ctx context.Context, objectKey string) error
}

// ResumeHandler serves resume upload and time-limited retrieval links.
type ResumeHandler struct {
	db        *gorm.DB
	storage   ObjectStorage
	logger    *slog.Logger
	clamdAddr string
}

// NewResumeHandler constructs the handler. An empty clamdAddr disables the
// virus scan.
func NewResumeHandler(db *gorm.DB, storage ObjectStorage, logger *slog.Logger, clamdAddr string) *ResumeHandler {
	return &ResumeHandler{
		db:        db,
		storage:   storage,
		logger:    logger,
		clamdAddr: clamdAddr,
	}
}

// Upload stores a candidate's PDF resume. Re-uploading replaces the
// metadata record in place and removes the previous binary from the bucket.
func (h *ResumeHandler) Upload(c *gin.Context) {
	ctx := c.Request.Context()
	logger := middleware.LoggerFromContext(c)

	caller, err := resolveCaller(ctx, h.db, c)
	if err != nil {
		AbortUnauthorized(c)
		return
	}
	if caller.Role != database.RoleJobSeeker {
		Forbidden(c, "Only Job Seekers can upload resumes")
		return
	}

	file, err := c.FormFile("resume")
	if err != nil {
		BadRequest(c, "No file uploaded. check multipart/form-data")
		return
	}

	if file.Header.Get("Content-Type") != "application/pdf" {
		BadRequest(c, "Only PDF files are allowed")
		return
	}
	if file.Size > maxResumeSize {
		BadRequest(c, "File exceeds the 10MB limit")
		return
	}

	if h.clamdAddr != "" {
		infected, err := h.scanFile(file)
		if err != nil {
			logger.Error("scan resume failed", slog.Any("error", err))
			Internal(c, "Failed to scan file")
			return
		}
		if infected {
			BadRequest(c, "Malicious file detected")
			return
		}
	}

	reader, err := file.Open()
	if err != nil {
		Internal(c, "Failed to open file")
		return
	}
	defer reader.Close()

	objectKey := fmt.Sprintf("resumes/%d_%d.pdf", caller.ID, time.Now().Unix())
	if err := h.storage.UploadFile(ctx, objectKey, reader, file.Size, "application/pdf"); err != nil {
		logger.Error("upload resume failed", slog.Any("error", err))
		Internal(c, "Storage upload failed")
		return
	}

	now := time.Now()
	var previousKey string
	var resume database.Resume
	err = h.db.WithContext(ctx).Where("candidate_id = ?", caller.ID).First(&resume).Error
	switch {
	case err == nil:
		previousKey = resume.ObjectKey
		resume.ObjectKey = objectKey
		resume.FileName = file.Filename
		resume.MimeType = "application/pdf"
		resume.FileSize = file.Size
		resume.UploadedAt = now
	case errors.Is(err, gorm.ErrRecordNotFound):
		resume = database.Resume{
			CandidateID: caller.ID,
			ObjectKey:   objectKey,
			FileName:    file.Filename,
			MimeType:    "application/pdf",
			FileSize:    file.Size,
			UploadedAt:  now,
		}
	default:
		ServerError(c)
		return
	}

	if err := h.db.WithContext(ctx).Save(&resume).Error; err != nil {
		logger.Error("save resume metadata failed", slog.Any("error", err))
		ServerError(c)
		return
	}

	if err := h.db.WithContext(ctx).Model(&database.User{}).
		Where("id = ?", caller.ID).
		Update("resume", "uploaded").Error; err != nil {
		logger.Error("flag user resume failed", slog.Any("error", err))
		ServerError(c)
		return
	}

	// Best effort: an orphaned old binary is not worth failing the upload.
	if previousKey != "" && previousKey != objectKey {
		if err := h.storage.DeleteObject(ctx, previousKey); err != nil {
			logger.Warn("delete previous resume failed",
				slog.String("object_key", previousKey),
				slog.Any("error", err),
			)
		}
	}

	logger.Info("resume uploaded",
		slog.Uint64("user_id", uint64(caller.ID)),
		slog.String("object_key", objectKey),
	)
	c.JSON(http.StatusCreated, gin.H{
		"success":  true,
		"message":  "Resume uploaded successfully",
		"resumeId": resume.ID,
	})
}

// GetURL returns a one-hour signed download link for a candidate's resume.
// Job seekers may only fetch their own; recruiters and admins may fetch any.
func (h *ResumeHandler) GetURL(c *gin.Context) {
	ctx := c.Request.Context()

	caller, err := resolveCaller(ctx, h.db, c)
	if err != nil {
		AbortUnauthorized(c)
		return
	}

	candidateID, ok := idParam(c, "candidateId")
	if !ok {
		BadRequest(c, "Invalid candidate id")
		return
	}

	if caller.Role == database.RoleJobSeeker && caller.ID != candidateID {
		Forbidden(c, "Not authorized to view this resume")
		return
	}

	var resume database.Resume
	if err := h.db.WithContext(ctx).Where("candidate_id = ?", candidateID).First(&resume).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "Resume not found")
			return
		}
		ServerError(c)
		return
	}

	url, err := h.storage.GeneratePresignedURL(ctx, resume.ObjectKey, resumeURLTTL)
	if err != nil {
		middleware.LoggerFromContext(c).Error("generate resume url failed", slog.Any("error", err))
		Internal(c, "Failed to generate url")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"url":      url,
		"fileName": resume.FileName,
	})
}

func (h *ResumeHandler) scanFile(file *multipart.FileHeader) (bool, error) {
	reader, err := file.Open()
	if err != nil {
		return false, fmt.Errorf("open file: %w", err)
	}
	defer reader.Close()

	clamdClient := clamd.NewClamd(h.clamdAddr)
	abortChan := make(chan bool)
	defer close(abortChan)

	scanChan, err := clamdClient.ScanStream(reader, abortChan)
	if err != nil {
		return false, fmt.Errorf("scan stream: %w", err)
	}

	for result := range scanChan {
		if result.Status != clamd.RES_OK {
			return true, nil
		}
	}
	return false, nil
}
