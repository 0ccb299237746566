package api

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"hirehub/internal/database"
)

func uploadResume(t *testing.T, h *ResumeHandler, userID uint, filename, contentType string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	body, formContentType := newMultipartResume(t, "resume", filename, contentType, content)
	req := httptest.NewRequest(http.MethodPost, "/api/resume/upload", bytes.NewReader(body.Bytes()))
	req.Header.Set("Content-Type", formContentType)
	c, w := newAuthedContext(t, req, userID)
	h.Upload(c)
	return w
}

func TestUploadResume_StoresFileAndFlagsUser(t *testing.T) {
	db := newTestDB(t)
	storage := newFakeStorage()
	h := NewResumeHandler(db, storage, slog.Default(), "")

	seeker := seedUser(t, db, database.User{Name: "S", Email: "s@x.test", Role: database.RoleJobSeeker})

	w := uploadResume(t, h, seeker.ID, "cv.pdf", "application/pdf", []byte("%PDF-1.4 fake"))
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", w.Code, w.Body.String())
	}
	if storage.uploads != 1 {
		t.Fatalf("uploads = %d, want 1", storage.uploads)
	}

	var resume database.Resume
	if err := db.Where("candidate_id = ?", seeker.ID).First(&resume).Error; err != nil {
		t.Fatalf("load resume metadata: %v", err)
	}
	if resume.FileName != "cv.pdf" || resume.MimeType != "application/pdf" {
		t.Fatalf("metadata = %+v", resume)
	}
	if !strings.HasPrefix(resume.ObjectKey, "resumes/") {
		t.Fatalf("object key = %q", resume.ObjectKey)
	}
	if _, stored := storage.uploaded[resume.ObjectKey]; !stored {
		t.Fatalf("object %q not in storage", resume.ObjectKey)
	}

	var user database.User
	if err := db.First(&user, seeker.ID).Error; err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if user.Resume != "uploaded" {
		t.Fatalf("user resume flag = %q, want uploaded", user.Resume)
	}
}

func TestUploadResume_RejectsNonPDFWithoutStorageWrite(t *testing.T) {
	db := newTestDB(t)
	storage := newFakeStorage()
	h := NewResumeHandler(db, storage, slog.Default(), "")

	seeker := seedUser(t, db, database.User{Name: "S", Email: "s@x.test", Role: database.RoleJobSeeker})

	w := uploadResume(t, h, seeker.ID, "cv.docx", "application/msword", []byte("not a pdf"))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400: %s", w.Code, w.Body.String())
	}
	if msg := decodeBody(t, w)["message"]; msg != "Only PDF files are allowed" {
		t.Fatalf("message = %v", msg)
	}
	if storage.uploads != 0 {
		t.Fatalf("uploads = %d, want 0", storage.uploads)
	}
	var count int64
	db.Model(&database.Resume{}).Count(&count)
	if count != 0 {
		t.Fatalf("resume records = %d, want 0", count)
	}
}

func TestUploadResume_StaffForbidden(t *testing.T) {
	db := newTestDB(t)
	storage := newFakeStorage()
	h := NewResumeHandler(db, storage, slog.Default(), "")

	recruiter := seedUser(t, db, database.User{Name: "R", Email: "r@x.test", Role: database.RoleRecruiter})

	w := uploadResume(t, h, recruiter.ID, "cv.pdf", "application/pdf", []byte("%PDF"))
	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
	if msg := decodeBody(t, w)["message"]; msg != "Only Job Seekers can upload resumes" {
		t.Fatalf("message = %v", msg)
	}
}

func TestUploadResume_ReuploadReplacesMetadataInPlace(t *testing.T) {
	db := newTestDB(t)
	storage := newFakeStorage()
	h := NewResumeHandler(db, storage, slog.Default(), "")

	seeker := seedUser(t, db, database.User{Name: "S", Email: "s@x.test", Role: database.RoleJobSeeker})

	if w := uploadResume(t, h, seeker.ID, "v1.pdf", "application/pdf", []byte("one")); w.Code != http.StatusCreated {
		t.Fatalf("first upload: status = %d", w.Code)
	}
	if w := uploadResume(t, h, seeker.ID, "v2.pdf", "application/pdf", []byte("two")); w.Code != http.StatusCreated {
		t.Fatalf("second upload: status = %d", w.Code)
	}

	var count int64
	db.Model(&database.Resume{}).Count(&count)
	if count != 1 {
		t.Fatalf("resume records = %d, want 1", count)
	}
	var resume database.Resume
	if err := db.Where("candidate_id = ?", seeker.ID).First(&resume).Error; err != nil {
		t.Fatalf("load resume metadata: %v", err)
	}
	if resume.FileName != "v2.pdf" {
		t.Fatalf("fileName = %q, want v2.pdf", resume.FileName)
	}
	// The replaced binary must not linger in the bucket.
	if len(storage.uploaded) != 1 {
		t.Fatalf("objects in storage = %d, want 1", len(storage.uploaded))
	}
	if _, stored := storage.uploaded[resume.ObjectKey]; !stored {
		t.Fatalf("current object %q missing from storage", resume.ObjectKey)
	}
}

func TestGetResumeURL_OwnershipRules(t *testing.T) {
	db := newTestDB(t)
	storage := newFakeStorage()
	h := NewResumeHandler(db, storage, slog.Default(), "")

	seeker := seedUser(t, db, database.User{Name: "S", Email: "s@x.test", Role: database.RoleJobSeeker})
	otherSeeker := seedUser(t, db, database.User{Name: "S2", Email: "s2@x.test", Role: database.RoleJobSeeker})
	recruiter := seedUser(t, db, database.User{Name: "R", Email: "r@x.test", Role: database.RoleRecruiter})

	if err := db.Create(&database.Resume{
		CandidateID: seeker.ID,
		ObjectKey:   "resumes/1_1.pdf",
		FileName:    "cv.pdf",
		MimeType:    "application/pdf",
		FileSize:    3,
	}).Error; err != nil {
		t.Fatalf("seed resume: %v", err)
	}
	storage.presign["resumes/1_1.pdf"] = "https://minio.test/resumes/1_1.pdf?signed"

	fetch := func(callerID, candidateID uint) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/resume/1", nil)
		c, w := newAuthedContext(t, req, callerID)
		setParam(c, "candidateId", candidateID)
		h.GetURL(c)
		return w
	}

	if w := fetch(otherSeeker.ID, seeker.ID); w.Code != http.StatusForbidden {
		t.Fatalf("other seeker: status = %d, want 403", w.Code)
	}

	w := fetch(seeker.ID, seeker.ID)
	if w.Code != http.StatusOK {
		t.Fatalf("owner: status = %d, want 200: %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	if body["url"] != "https://minio.test/resumes/1_1.pdf?signed" || body["fileName"] != "cv.pdf" {
		t.Fatalf("body = %v", body)
	}

	if w := fetch(recruiter.ID, seeker.ID); w.Code != http.StatusOK {
		t.Fatalf("recruiter: status = %d, want 200", w.Code)
	}

	if w := fetch(recruiter.ID, otherSeeker.ID); w.Code != http.StatusNotFound {
		t.Fatalf("missing resume: status = %d, want 404", w.Code)
	}
}
