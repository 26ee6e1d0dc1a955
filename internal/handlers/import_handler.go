package handlers

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "crocus/internal/errors"
	"crocus/internal/pagination"
	"crocus/internal/services"
)

// maxStatementBytes caps the size of an uploaded statement.
const maxStatementBytes = 10 << 20

// ImportHandler handles bank-statement imports.
type ImportHandler struct {
	importService services.ImportServicer
	auditService  services.AuditServicer
}

// NewImportHandler creates a new ImportHandler.
func NewImportHandler(importService services.ImportServicer, auditService services.AuditServicer) *ImportHandler {
	return &ImportHandler{importService: importService, auditService: auditService}
}

// ImportStatement handles a statement upload
// @Summary     Import a bank statement
// @Description Upload a statement as multipart field "file" or as the raw request body. Rows already imported are skipped by fingerprint, and imported rows are reconciled against planned entries.
// @Tags        imports
// @Accept      multipart/form-data
// @Accept      text/plain
// @Produce     json
// @Security    BearerAuth
// @Param       account_id query    string true  "Target account"
// @Param       source     query    string false "Source label (defaults to the file name)"
// @Param       currency   query    string false "Statement currency (defaults to the account currency)"
// @Param       file       formData file   false "Statement file"
// @Success     201 {object} services.ImportReport "Import report"
// @Failure     400 {object} ErrorResponse "Invalid or empty statement"
// @Failure     404 {object} ErrorResponse "Account not found"
// @Failure     409 {object} ErrorResponse "Account archived"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /imports [post]
func (h *ImportHandler) ImportStatement(c *gin.Context) {
	actorID, err := getActorID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	accountID := strings.TrimSpace(c.Query("account_id"))
	if accountID == "" {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "account_id is required"))
		return
	}
	req := services.ImportRequest{
		AccountID: accountID,
		Source:    c.Query("source"),
		Currency:  strings.ToUpper(c.Query("currency")),
	}

	body, name, err := statementBody(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	defer body.Close()
	if req.Source == "" {
		req.Source = name
	}

	report, err := h.importService.ImportStatement(c.Request.Context(), req, body)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(actorID, services.AuditImport, "import_batch", report.BatchID, c.ClientIP(),
		map[string]interface{}{
			"account_id": accountID,
			"source":     req.Source,
			"imported":   report.Imported,
			"duplicates": report.Duplicates,
			"reconciled": report.Reconciled,
		})

	c.JSON(http.StatusCreated, report)
}

// statementBody returns the uploaded file or the raw body, with a source name.
func statementBody(c *gin.Context) (io.ReadCloser, string, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxStatementBytes)

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		header, err := c.FormFile("file")
		if err != nil {
			return nil, "", apperrors.WithMessage(apperrors.ErrInvalidInput, "multipart field \"file\" is required")
		}
		f, err := header.Open()
		if err != nil {
			return nil, "", apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return f, header.Filename, nil
	}
	return c.Request.Body, "", nil
}

// RollbackImport handles reverting an import batch
// @Summary     Roll back an import
// @Description Delete the batch's transactions and orders and release their planned matches
// @Tags        imports
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Import batch ID"
// @Success     200 {object} models.ImportBatch "Rolled back batch"
// @Failure     404 {object} ErrorResponse "Import not found"
// @Failure     409 {object} ErrorResponse "Already rolled back"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /imports/{id}/rollback [post]
func (h *ImportHandler) RollbackImport(c *gin.Context) {
	actorID, err := getActorID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	batchID, err := pathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	batch, err := h.importService.RollbackImport(c.Request.Context(), batchID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(actorID, services.AuditRollback, "import_batch", batchID, c.ClientIP(),
		map[string]interface{}{"imported": batch.Imported})

	c.JSON(http.StatusOK, gin.H{"import": batch})
}

// ListImports handles listing import batches
// @Summary     List imports
// @Tags        imports
// @Produce     json
// @Security    BearerAuth
// @Param       page      query int false "Page number (default 1)"
// @Param       page_size query int false "Items per page (default 20, max 100)"
// @Param       sort      query string false "Sort key: created_at, imported; prefix - for descending (default -created_at)"
// @Success     200 {object} pagination.PageResponse[models.ImportBatch] "Paginated import batches"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /imports [get]
func (h *ImportHandler) ListImports(c *gin.Context) {
	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	result, err := h.importService.ListImports(page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
