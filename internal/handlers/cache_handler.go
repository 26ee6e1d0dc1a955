package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "crocus/internal/errors"
	"crocus/internal/models"
	"crocus/internal/services"
)

// CacheHandler serves the dashboard caches built by the aggregation jobs.
type CacheHandler struct {
	cacheService services.CacheServicer
}

// NewCacheHandler creates a new CacheHandler.
func NewCacheHandler(cacheService services.CacheServicer) *CacheHandler {
	return &CacheHandler{cacheService: cacheService}
}

// AccountDaily handles the daily planned/actual cache
// @Summary     Account daily cache
// @Tags        caches
// @Produce     json
// @Security    BearerAuth
// @Param       from query string false "First day (YYYY-MM-DD)"
// @Param       to   query string false "Last day (YYYY-MM-DD)"
// @Success     200 {array}  models.AccountDaily "Rows"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Router      /caches/account-daily [get]
func (h *CacheHandler) AccountDaily(c *gin.Context) {
	from, to, err := dayWindow(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	rows, err := h.cacheService.AccountDaily(from, to)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"rows": rows})
}

// PnLMonthly handles the monthly profit and loss cache
// @Summary     P&L monthly cache
// @Tags        caches
// @Produce     json
// @Security    BearerAuth
// @Param       from query string false "First month (YYYY-MM)"
// @Param       to   query string false "Last month (YYYY-MM)"
// @Success     200 {array} models.PnLMonthly "Rows"
// @Router      /caches/pnl-monthly [get]
func (h *CacheHandler) PnLMonthly(c *gin.Context) {
	rows, err := h.cacheService.PnLMonthly(c.Query("from"), c.Query("to"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"rows": rows})
}

// SalesDaily handles the sales dashboard cache
// @Summary     Sales daily cache
// @Description Totals per day; pass operator to get the per-operator breakdown (use "*" for every operator)
// @Tags        caches
// @Produce     json
// @Security    BearerAuth
// @Param       basis    query string false "created (default) or checkin"
// @Param       from     query string false "First day (YYYY-MM-DD)"
// @Param       to       query string false "Last day (YYYY-MM-DD)"
// @Param       operator query string false "Operator filter"
// @Success     200 {array}  models.SalesDaily "Rows"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Router      /caches/sales-daily [get]
func (h *CacheHandler) SalesDaily(c *gin.Context) {
	basis := models.DateBasis(c.DefaultQuery("basis", string(models.BasisCreated)))
	if basis != models.BasisCreated && basis != models.BasisCheckIn {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "basis must be created or checkin"))
		return
	}
	from, to, err := dayWindow(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	operator, byOperator := c.GetQuery("operator")
	if byOperator {
		if operator == "*" {
			operator = ""
		}
		rows, err := h.cacheService.SalesDailyByOperator(basis, from, to, operator)
		if err != nil {
			respondWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"rows": rows})
		return
	}

	rows, err := h.cacheService.SalesDaily(basis, from, to)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"rows": rows})
}

// Founders handles the founders cache document
// @Summary     Founders cache
// @Tags        caches
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} models.FoundersPayload "Owner movements and totals"
// @Failure     404 {object} ErrorResponse "Not built yet"
// @Router      /caches/founders [get]
func (h *CacheHandler) Founders(c *gin.Context) {
	payload, err := h.cacheService.Founders()
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, payload)
}

// Overview handles the overview cache document
// @Summary     Overview cache
// @Tags        caches
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} models.OverviewPayload "Overview"
// @Failure     404 {object} ErrorResponse "Not built yet"
// @Router      /caches/overview [get]
func (h *CacheHandler) Overview(c *gin.Context) {
	payload, err := h.cacheService.Overview()
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, payload)
}

func dayWindow(c *gin.Context) (string, string, error) {
	from, err := dateQuery(c, "from")
	if err != nil {
		return "", "", err
	}
	to, err := dateQuery(c, "to")
	if err != nil {
		return "", "", err
	}
	return from, to, nil
}
