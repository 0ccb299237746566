package api

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"hirehub/internal/database"
)

func TestApply_CreatesOneRowAndRejectsDuplicates(t *testing.T) {
	db := newTestDB(t)
	h := NewApplicationHandler(db, slog.Default())

	recruiter := seedUser(t, db, database.User{Name: "R", Email: "r@x.test", Role: database.RoleRecruiter})
	seeker := seedUser(t, db, database.User{Name: "S", Email: "s@x.test", Role: database.RoleJobSeeker, Resume: "uploaded"})
	job := seedJob(t, db, database.Job{Title: "T", Company: "C", Location: "L", Type: "Full-time", Description: "d", PostedByID: recruiter.ID})

	apply := func() *httptest.ResponseRecorder {
		req := newJSONRequest(t, http.MethodPost, "/api/jobs/1/apply", nil)
		c, w := newAuthedContext(t, req, seeker.ID)
		setParam(c, "id", job.ID)
		h.Apply(c)
		return w
	}

	w := apply()
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", w.Code, w.Body.String())
	}
	app := decodeBody(t, w)["application"].(map[string]any)
	if app["status"] != database.ApplicationPending {
		t.Fatalf("status = %v, want Pending", app["status"])
	}
	if app["resume"] != "uploaded" {
		t.Fatalf("resume = %v, want profile value carried over", app["resume"])
	}

	w = apply()
	if w.Code != http.StatusBadRequest {
		t.Fatalf("duplicate: status = %d, want 400", w.Code)
	}
	if msg := decodeBody(t, w)["message"]; msg != "Already applied" {
		t.Fatalf("message = %v", msg)
	}

	var count int64
	db.Model(&database.Application{}).Count(&count)
	if count != 1 {
		t.Fatalf("applications = %d, want 1", count)
	}
}

func TestApply_StaffRejected(t *testing.T) {
	db := newTestDB(t)
	h := NewApplicationHandler(db, slog.Default())

	recruiter := seedUser(t, db, database.User{Name: "R", Email: "r@x.test", Role: database.RoleRecruiter})
	admin := seedUser(t, db, database.User{Name: "A", Email: "a@x.test", Role: database.RoleAdmin})
	job := seedJob(t, db, database.Job{Title: "T", Company: "C", Location: "L", Type: "Full-time", Description: "d", PostedByID: recruiter.ID})

	for _, userID := range []uint{recruiter.ID, admin.ID} {
		req := newJSONRequest(t, http.MethodPost, "/api/jobs/1/apply", nil)
		c, w := newAuthedContext(t, req, userID)
		setParam(c, "id", job.ID)
		h.Apply(c)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("user %d: status = %d, want 400", userID, w.Code)
		}
		if msg := decodeBody(t, w)["message"]; msg != "Recruiters cannot apply" {
			t.Fatalf("message = %v", msg)
		}
	}
}

func TestApply_MissingJobNotFound(t *testing.T) {
	db := newTestDB(t)
	h := NewApplicationHandler(db, slog.Default())

	seeker := seedUser(t, db, database.User{Name: "S", Email: "s@x.test", Role: database.RoleJobSeeker})

	req := newJSONRequest(t, http.MethodPost, "/api/jobs/999/apply", nil)
	c, w := newAuthedContext(t, req, seeker.ID)
	setParam(c, "id", 999)
	h.Apply(c)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestMyApplications_AnnotatedWithJobFields(t *testing.T) {
	db := newTestDB(t)
	h := NewApplicationHandler(db, slog.Default())

	recruiter := seedUser(t, db, database.User{Name: "R", Email: "r@x.test", Role: database.RoleRecruiter})
	seeker := seedUser(t, db, database.User{Name: "S", Email: "s@x.test", Role: database.RoleJobSeeker})
	job := seedJob(t, db, database.Job{Title: "Backend Engineer", Company: "Initech", Location: "L", Type: "Full-time", Description: "d", PostedByID: recruiter.ID})
	if err := db.Create(&database.Application{JobID: job.ID, ApplicantID: seeker.ID, Status: database.ApplicationPending}).Error; err != nil {
		t.Fatalf("seed application: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/jobs/my-applications", nil)
	c, w := newAuthedContext(t, req, seeker.ID)
	h.MyApplications(c)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	apps := decodeBody(t, w)["applications"].([]any)
	if len(apps) != 1 {
		t.Fatalf("applications = %d, want 1", len(apps))
	}
	app := apps[0].(map[string]any)
	if app["jobTitle"] != "Backend Engineer" || app["company"] != "Initech" {
		t.Fatalf("annotation missing: %v", app)
	}
	if app["jobId"].(float64) != float64(job.ID) {
		t.Fatalf("jobId = %v, want %d", app["jobId"], job.ID)
	}
}

func TestJobApplications_OwnerOnlyAndProfileHasNoPassword(t *testing.T) {
	db := newTestDB(t)
	h := NewApplicationHandler(db, slog.Default())

	owner := seedUser(t, db, database.User{Name: "O", Email: "o@x.test", Role: database.RoleRecruiter})
	other := seedUser(t, db, database.User{Name: "P", Email: "p@x.test", Role: database.RoleRecruiter})
	seeker := seedUser(t, db, database.User{Name: "S", Email: "s@x.test", Role: database.RoleJobSeeker, Skills: "Go, SQL", Password: "hash"})
	job := seedJob(t, db, database.Job{Title: "T", Company: "C", Location: "L", Type: "Full-time", Description: "d", PostedByID: owner.ID})
	if err := db.Create(&database.Application{JobID: job.ID, ApplicantID: seeker.ID, Status: database.ApplicationPending}).Error; err != nil {
		t.Fatalf("seed application: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/jobs/1/applications", nil)
	c, w := newAuthedContext(t, req, other.ID)
	setParam(c, "id", job.ID)
	h.JobApplications(c)
	if w.Code != http.StatusForbidden {
		t.Fatalf("other recruiter: status = %d, want 403", w.Code)
	}

	c, w = newAuthedContext(t, req, owner.ID)
	setParam(c, "id", job.ID)
	h.JobApplications(c)
	if w.Code != http.StatusOK {
		t.Fatalf("owner: status = %d, want 200: %s", w.Code, w.Body.String())
	}

	apps := decodeBody(t, w)["applications"].([]any)
	if len(apps) != 1 {
		t.Fatalf("applications = %d, want 1", len(apps))
	}
	applicant := apps[0].(map[string]any)["applicant"].(map[string]any)
	if applicant["email"] != "s@x.test" || applicant["skills"] != "Go, SQL" {
		t.Fatalf("applicant profile = %v", applicant)
	}
	if _, leaked := applicant["password"]; leaked {
		t.Fatal("applicant profile leaks password")
	}
}

func TestAllApplications_ScopedToCallerPostings(t *testing.T) {
	db := newTestDB(t)
	h := NewApplicationHandler(db, slog.Default())

	mine := seedUser(t, db, database.User{Name: "R", Email: "r@x.test", Role: database.RoleRecruiter})
	theirs := seedUser(t, db, database.User{Name: "R2", Email: "r2@x.test", Role: database.RoleRecruiter})
	seeker := seedUser(t, db, database.User{Name: "S", Email: "s@x.test", Role: database.RoleJobSeeker})

	myJob := seedJob(t, db, database.Job{Title: "Mine", Company: "C", Location: "L", Type: "Full-time", Description: "d", PostedByID: mine.ID})
	theirJob := seedJob(t, db, database.Job{Title: "Theirs", Company: "C", Location: "L", Type: "Full-time", Description: "d", PostedByID: theirs.ID})
	for _, jobID := range []uint{myJob.ID, theirJob.ID} {
		if err := db.Create(&database.Application{JobID: jobID, ApplicantID: seeker.ID, Status: database.ApplicationPending}).Error; err != nil {
			t.Fatalf("seed application: %v", err)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/jobs/applications/all", nil)
	c, w := newAuthedContext(t, req, mine.ID)
	h.AllApplications(c)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	apps := decodeBody(t, w)["applications"].([]any)
	if len(apps) != 1 {
		t.Fatalf("applications = %d, want 1", len(apps))
	}
	if title := apps[0].(map[string]any)["jobTitle"]; title != "Mine" {
		t.Fatalf("jobTitle = %v, want Mine", title)
	}
}

func TestUpdateApplication_OwnerUpdatesStatusOnly(t *testing.T) {
	db := newTestDB(t)
	h := NewApplicationHandler(db, slog.Default())

	owner := seedUser(t, db, database.User{Name: "O", Email: "o@x.test", Role: database.RoleRecruiter})
	other := seedUser(t, db, database.User{Name: "P", Email: "p@x.test", Role: database.RoleRecruiter})
	seeker := seedUser(t, db, database.User{Name: "S", Email: "s@x.test", Role: database.RoleJobSeeker})
	job := seedJob(t, db, database.Job{Title: "T", Company: "C", Location: "L", Type: "Full-time", Description: "d", PostedByID: owner.ID})
	app := database.Application{JobID: job.ID, ApplicantID: seeker.ID, Status: database.ApplicationPending, Feedback: "initial"}
	if err := db.Create(&app).Error; err != nil {
		t.Fatalf("seed application: %v", err)
	}

	req := newJSONRequest(t, http.MethodPut, "/api/jobs/applications/1", map[string]any{"status": database.ApplicationShortlisted})
	c, w := newAuthedContext(t, req, other.ID)
	setParam(c, "id", app.ID)
	h.UpdateApplication(c)
	if w.Code != http.StatusForbidden {
		t.Fatalf("other recruiter: status = %d, want 403", w.Code)
	}

	req = newJSONRequest(t, http.MethodPut, "/api/jobs/applications/1", map[string]any{"status": database.ApplicationShortlisted})
	c, w = newAuthedContext(t, req, owner.ID)
	setParam(c, "id", app.ID)
	h.UpdateApplication(c)
	if w.Code != http.StatusOK {
		t.Fatalf("owner: status = %d, want 200: %s", w.Code, w.Body.String())
	}

	var reloaded database.Application
	if err := db.First(&reloaded, app.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Status != database.ApplicationShortlisted {
		t.Fatalf("status = %q, want Shortlisted", reloaded.Status)
	}
	// Feedback was not in the request, so it must survive untouched.
	if reloaded.Feedback != "initial" {
		t.Fatalf("feedback = %q, want initial", reloaded.Feedback)
	}
}

func TestUpdateApplication_MissingReturnsNotFound(t *testing.T) {
	db := newTestDB(t)
	h := NewApplicationHandler(db, slog.Default())

	admin := seedUser(t, db, database.User{Name: "A", Email: "a@x.test", Role: database.RoleAdmin})

	req := newJSONRequest(t, http.MethodPut, "/api/jobs/applications/999", map[string]any{"status": database.ApplicationAccepted})
	c, w := newAuthedContext(t, req, admin.ID)
	setParam(c, "id", 999)
	h.UpdateApplication(c)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	if msg := decodeBody(t, w)["message"]; msg != "Application not found" {
		t.Fatalf("message = %v", msg)
	}
}
