package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"rentspace/internal/app/commands"
	"rentspace/internal/app/dto"
	availabilityapp "rentspace/internal/app/handlers/availability"
	"rentspace/internal/app/queries"
)

type AvailabilityHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

func (h AvailabilityHandler) Calendar(c *gin.Context) {
	from, err := parseOptionalDate(c.Query("from"))
	if err != nil {
		badRequest(c, "from must be a date")
		return
	}
	to, err := parseOptionalDate(c.Query("to"))
	if err != nil {
		badRequest(c, "to must be a date")
		return
	}
	query := availabilityapp.GetCalendarQuery{ListingID: c.Param("id"), From: from, To: to}
	result, err := queries.Ask[availabilityapp.GetCalendarQuery, dto.Calendar](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type addWindowRequest struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

func (h AvailabilityHandler) AddWindow(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	var req addWindowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	start, err := parseDate(req.StartDate)
	if err != nil {
		badRequest(c, "start_date must be a date")
		return
	}
	end, err := parseDate(req.EndDate)
	if err != nil {
		badRequest(c, "end_date must be a date")
		return
	}
	cmd := availabilityapp.AddWindowCommand{ListingID: c.Param("id"), OwnerID: user.ID, StartDate: start, EndDate: end}
	result, err := commands.Dispatch[availabilityapp.AddWindowCommand, dto.Calendar](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

type setDayRequest struct {
	Available *bool `json:"available"`
}

func (h AvailabilityHandler) SetDay(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	date, err := parseDate(c.Param("date"))
	if err != nil {
		badRequest(c, "date must be a date")
		return
	}
	var req setDayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if req.Available == nil {
		badRequest(c, "available is required")
		return
	}
	cmd := availabilityapp.SetDayCommand{ListingID: c.Param("id"), OwnerID: user.ID, Date: date, Available: *req.Available}
	result, err := commands.Dispatch[availabilityapp.SetDayCommand, dto.Calendar](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
