package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"crocus/internal/services"
)

// JobHandler handles aggregation job runs and status.
type JobHandler struct {
	jobService   services.JobServicer
	auditService services.AuditServicer
}

// NewJobHandler creates a new JobHandler.
func NewJobHandler(jobService services.JobServicer, auditService services.AuditServicer) *JobHandler {
	return &JobHandler{jobService: jobService, auditService: auditService}
}

// RunJobRequest carries the optional window of the date-ranged jobs.
type RunJobRequest struct {
	From string `json:"from" binding:"omitempty,iso_date"`
	To   string `json:"to" binding:"omitempty,iso_date"`
}

// RunJob handles triggering an aggregation job
// @Summary     Run a job
// @Description Run account_daily, pnl_monthly, sales_dashboard, founders, overview, or all of them in order
// @Tags        jobs
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Security    ApiKeyAuth
// @Param       name    path string        true  "Job name"
// @Param       request body RunJobRequest false "Date window"
// @Success     200 {array}  models.JobStatus "Job statuses"
// @Failure     400 {object} ErrorResponse "Invalid window"
// @Failure     404 {object} ErrorResponse "Unknown job"
// @Failure     500 {object} ErrorResponse "Job failed"
// @Router      /jobs/{name}/run [post]
func (h *JobHandler) RunJob(c *gin.Context) {
	actorID, err := getActorID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	name, err := pathID(c, "name")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req RunJobRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, bindError(err))
			return
		}
	}

	h.auditService.Log(actorID, services.AuditRunJob, "job", name, c.ClientIP(),
		map[string]interface{}{"from": req.From, "to": req.To})

	statuses, err := h.jobService.Run(c.Request.Context(), name, services.JobWindow{From: req.From, To: req.To})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"jobs": statuses})
}

// GetJobStatus handles reading the last status of a job
// @Summary     Job status
// @Tags        jobs
// @Produce     json
// @Security    BearerAuth
// @Security    ApiKeyAuth
// @Param       name path string true "Job name"
// @Success     200 {object} models.JobStatus "Status"
// @Failure     404 {object} ErrorResponse "Unknown job or never run"
// @Router      /jobs/{name} [get]
func (h *JobHandler) GetJobStatus(c *gin.Context) {
	name, err := pathID(c, "name")
	if err != nil {
		respondWithError(c, err)
		return
	}

	status, err := h.jobService.Status(name)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"job": status})
}

// ListJobStatus handles listing the status of every job that has run
// @Summary     List job status
// @Tags        jobs
// @Produce     json
// @Security    BearerAuth
// @Security    ApiKeyAuth
// @Success     200 {array} models.JobStatus "Statuses"
// @Router      /jobs [get]
func (h *JobHandler) ListJobStatus(c *gin.Context) {
	statuses, err := h.jobService.ListStatus()
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"jobs": statuses})
}
