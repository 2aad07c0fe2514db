package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"textkit/internal/extract"
	"textkit/internal/store"
	"textkit/pkg/api"
)

// handleLeads is the main router for lead extraction endpoints
func (s *Server) handleLeads(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/leads")
	path = strings.TrimPrefix(path, "/")

	// GET/POST /api/leads
	if path == "" {
		switch r.Method {
		case http.MethodGet:
			s.handleJobsList(w, r)
		case http.MethodPost:
			s.handleJobCreate(w, r)
		default:
			writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	parts := strings.SplitN(path, "/", 2)
	jobID := parts[0]

	if len(parts) == 1 {
		// GET/DELETE /api/leads/{id}
		switch r.Method {
		case http.MethodGet:
			s.handleJobGet(w, r, jobID)
		case http.MethodDelete:
			s.handleJobDelete(w, r, jobID)
		default:
			writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	// GET /api/leads/{id}/download
	if parts[1] == "download" && r.Method == http.MethodGet {
		s.handleJobDownload(w, r, jobID)
		return
	}

	writeError(w, "Not found", http.StatusNotFound)
}

// handleJobsList handles GET /api/leads - list extraction jobs
func (s *Server) handleJobsList(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.jobs.ListJobs()
	if err != nil {
		writeError(w, "Failed to list jobs: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]any{
		"jobs": jobs,
	})
}

// handleJobCreate handles POST /api/leads - upload a spreadsheet and
// start an extraction job. The sheet must carry a "raw_data" column.
func (s *Server) handleJobCreate(w http.ResponseWriter, r *http.Request) {
	if !s.extracts.Acquire(r.RemoteAddr) {
		writeError(w, "An extraction job is already running for this client", http.StatusTooManyRequests)
		return
	}
	released := false
	release := func() {
		if !released {
			released = true
			s.extracts.Release(r.RemoteAddr)
		}
	}
	defer release()

	maxBytes := int64(s.config.MaxUploadMB) << 20
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		writeError(w, "Failed to parse upload: "+err.Error(), http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, "Missing file field", http.StatusBadRequest)
		return
	}
	defer file.Close()

	rows, err := extract.ReadRows(header.Filename, file)
	if err != nil {
		writeError(w, "Failed to read spreadsheet: "+err.Error(), http.StatusBadRequest)
		return
	}
	if len(rows) == 0 {
		writeError(w, "Spreadsheet has no data rows", http.StatusBadRequest)
		return
	}

	job := &store.Job{
		ID:        uuid.NewString(),
		Filename:  header.Filename,
		RowCount:  len(rows),
		Status:    store.StatusRunning,
		CreatedAt: time.Now(),
	}
	if err := s.jobs.SaveJob(job); err != nil {
		writeError(w, "Failed to create job: "+err.Error(), http.StatusInternalServerError)
		return
	}

	// Hold the per-client slot until the background run finishes.
	released = true
	go func() {
		defer s.extracts.Release(r.RemoteAddr)
		s.runExtraction(job, rows)
	}()

	s.log.Info("Extraction job started", map[string]any{
		"job_id": job.ID,
		"file":   job.Filename,
		"rows":   job.RowCount,
	})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	writeJSON(w, job)
}

// runExtraction processes the rows and records the outcome. It runs
// detached from the upload request.
func (s *Server) runExtraction(job *store.Job, rows []string) {
	ctx, cancel := context.WithTimeout(context.Background(),
		time.Duration(s.config.LLMTimeout)*time.Second*time.Duration(len(rows)))
	defer cancel()

	leads := s.processor.Process(ctx, rows)

	job.Status = store.StatusCompleted
	if err := s.jobs.SaveLeads(job.ID, leads); err != nil {
		s.log.Errorf("Failed to save leads for job %s: %v", job.ID, err)
		job.Status = store.StatusFailed
	}

	done := time.Now()
	job.CompletedAt = &done
	if err := s.jobs.SaveJob(job); err != nil {
		s.log.Errorf("Failed to finalize job %s: %v", job.ID, err)
		return
	}

	s.log.Info("Extraction job finished", map[string]any{
		"job_id": job.ID,
		"status": job.Status,
	})
}

// handleJobGet handles GET /api/leads/{id} - job status plus results
func (s *Server) handleJobGet(w http.ResponseWriter, r *http.Request, jobID string) {
	job, err := s.jobs.GetJob(jobID)
	if err != nil {
		writeError(w, "Failed to load job: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if job == nil {
		writeError(w, "Job not found: "+jobID, http.StatusNotFound)
		return
	}

	response := map[string]any{
		"job": job,
	}
	if job.Status == store.StatusCompleted {
		leads, err := s.jobs.GetLeads(jobID)
		if err != nil {
			writeError(w, "Failed to load leads: "+err.Error(), http.StatusInternalServerError)
			return
		}
		response["leads"] = leads
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, response)
}

// handleJobDelete handles DELETE /api/leads/{id}
func (s *Server) handleJobDelete(w http.ResponseWriter, r *http.Request, jobID string) {
	if err := s.jobs.DeleteJob(jobID); err != nil {
		writeError(w, "Failed to delete job: "+err.Error(), http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, api.StatusResponse{
		Success: true,
		Message: "Job deleted",
	})
}

// handleJobDownload handles GET /api/leads/{id}/download - the leads
// of a completed job as a JSON file attachment.
func (s *Server) handleJobDownload(w http.ResponseWriter, r *http.Request, jobID string) {
	job, err := s.jobs.GetJob(jobID)
	if err != nil {
		writeError(w, "Failed to load job: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if job == nil {
		writeError(w, "Job not found: "+jobID, http.StatusNotFound)
		return
	}
	if job.Status != store.StatusCompleted {
		writeError(w, "Job is not completed yet", http.StatusConflict)
		return
	}

	leads, err := s.jobs.GetLeads(jobID)
	if err != nil {
		writeError(w, "Failed to load leads: "+err.Error(), http.StatusInternalServerError)
		return
	}

	payload, err := json.MarshalIndent(leads, "", "  ")
	if err != nil {
		writeError(w, "Failed to encode leads", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="leads.json"`)
	fmt.Fprintf(w, "%s\n", payload)
}
