package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/dqtools/segments/internal/scheduler"
	"github.com/dqtools/segments/pkg/logger"
)

// Jobs is the scheduler surface the handlers expose.
type Jobs interface {
	GetAllJobs() []string
	GetJobHistory(jobName string) (*scheduler.JobHistory, error)
	RunJob(jobName string) error
}

// JobsHandler handles scheduled-job API endpoints
type JobsHandler struct {
	jobs   Jobs
	logger *logger.Logger
}

// NewJobsHandler creates a new jobs handler
func NewJobsHandler(jobs Jobs, log *logger.Logger) *JobsHandler {
	return &JobsHandler{
		jobs:   jobs,
		logger: log,
	}
}

// JobStatusResponse represents one job's execution status for API responses
type JobStatusResponse struct {
	Name        string                `json:"name"`
	Runs        int                   `json:"runs"`
	Failures    int                   `json:"failures"`
	SuccessRate float64               `json:"success_rate"`
	Latest      []scheduler.JobResult `json:"latest,omitempty"`
}

// ListJobs returns every registered job with its execution status
// GET /api/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	names := h.jobs.GetAllJobs()

	out := make([]JobStatusResponse, 0, len(names))
	for _, name := range names {
		status := JobStatusResponse{Name: name}
		if history, err := h.jobs.GetJobHistory(name); err == nil {
			status.Runs = len(history.Results)
			status.Failures = len(history.GetFailedResults())
			status.SuccessRate = history.GetSuccessRate()
			status.Latest = history.GetLatestResults(5)
		}
		out = append(out, status)
	}

	respondJSON(w, http.StatusOK, out)
}

// RunJob triggers a job immediately, outside its schedule
// POST /api/jobs/{job}/run
func (h *JobsHandler) RunJob(w http.ResponseWriter, r *http.Request) {
	jobName := mux.Vars(r)["job"]

	if err := h.jobs.RunJob(jobName); err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	h.logger.WithField("job", jobName).Info("Job triggered via API")
	respondJSON(w, http.StatusAccepted, map[string]string{
		"job":    jobName,
		"status": "started",
	})
}
