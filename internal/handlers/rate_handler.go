package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"crocus/internal/dates"
	apperrors "crocus/internal/errors"
	"crocus/internal/fx"
	"crocus/internal/services"
)

// RateHandler handles exchange rate tables.
type RateHandler struct {
	rateService  services.RateServicer
	auditService services.AuditServicer
}

// NewRateHandler creates a new RateHandler.
func NewRateHandler(rateService services.RateServicer, auditService services.AuditServicer) *RateHandler {
	return &RateHandler{rateService: rateService, auditService: auditService}
}

// PublishRatesRequest is a day's table in units of currency per one EUR.
type PublishRatesRequest struct {
	Date  string   `json:"date" binding:"required,iso_date"`
	Rates fx.Table `json:"rates" binding:"required"`
}

// RatesResponse is a rate table and the day it was published for.
type RatesResponse struct {
	Requested string   `json:"requested"`
	Date      string   `json:"date"`
	Rates     fx.Table `json:"rates"`
}

// PublishRates handles manual publication or correction of a rate table
// @Summary     Publish rates
// @Tags        rates
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body PublishRatesRequest true "Rate table"
// @Success     200 {object} MessageResponse "Rates published"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /rates [post]
func (h *RateHandler) PublishRates(c *gin.Context) {
	actorID, err := getActorID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req PublishRatesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, bindError(err))
		return
	}

	if err := h.rateService.PublishRates(req.Date, req.Rates, services.RateSourceManual); err != nil {
		respondWithError(c, err)
		return
	}

	changes := make(map[string]interface{}, len(req.Rates))
	for ccy, rate := range req.Rates {
		changes[ccy] = rate.String()
	}
	h.auditService.Log(actorID, services.AuditPublishRates, "fx_rates", req.Date, c.ClientIP(), changes)

	c.JSON(http.StatusOK, MessageResponse{Message: "Rates published"})
}

// GetRates handles reading the table used for a day
// @Summary     Get rates
// @Description Stored table for the day, else the most recent earlier table, else the latest
// @Tags        rates
// @Produce     json
// @Security    BearerAuth
// @Param       date path string true "Day (YYYY-MM-DD)"
// @Success     200 {object} RatesResponse "Rate table"
// @Failure     400 {object} ErrorResponse "Invalid date"
// @Failure     404 {object} ErrorResponse "No rates"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /rates/{date} [get]
func (h *RateHandler) GetRates(c *gin.Context) {
	day, err := ratesDay(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	table, used, err := h.rateService.GetRates(day)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, RatesResponse{Requested: day, Date: used, Rates: table})
}

// FetchRates handles pulling a missing table from the feed
// @Summary     Fetch rates
// @Description Ensure a table exists for the day, pulling it from the rate feed when missing
// @Tags        rates
// @Produce     json
// @Security    BearerAuth
// @Security    ApiKeyAuth
// @Param       date path string true "Day (YYYY-MM-DD)"
// @Success     200 {object} RatesResponse "Rate table"
// @Failure     400 {object} ErrorResponse "Invalid date"
// @Failure     404 {object} ErrorResponse "No rates"
// @Failure     502 {object} ErrorResponse "Feed unavailable"
// @Router      /rates/{date}/fetch [post]
func (h *RateHandler) FetchRates(c *gin.Context) {
	actorID, err := getActorID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	day, err := ratesDay(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	table, used, err := h.rateService.EnsureRates(c.Request.Context(), day)
	if err != nil {
		respondWithError(c, err)
		return
	}
	h.auditService.Log(actorID, services.AuditPublishRates, "fx_rates", used, c.ClientIP(),
		map[string]interface{}{"requested": day})

	c.JSON(http.StatusOK, RatesResponse{Requested: day, Date: used, Rates: table})
}

func ratesDay(c *gin.Context) (string, error) {
	day := c.Param("date")
	if !dates.Valid(day) {
		return "", apperrors.WithMessage(apperrors.ErrInvalidInput, "date must be YYYY-MM-DD")
	}
	return day, nil
}
