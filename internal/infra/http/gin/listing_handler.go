package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"rentspace/internal/app/commands"
	"rentspace/internal/app/dto"
	listingsapp "rentspace/internal/app/handlers/listings"
	"rentspace/internal/app/queries"
)

type ListingHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type createListingRequest struct {
	Title             string `json:"title"`
	Description       string `json:"description"`
	RentalType        string `json:"rental_type"`
	Location          string `json:"location"`
	UnitPrice         string `json:"unit_price"`
	Currency          string `json:"currency"`
	PricingUnit       string `json:"pricing_unit"`
	InstantBook       bool   `json:"instant_book"`
	AvailabilityModel string `json:"availability_model"`
	SeedDays          int    `json:"seed_days"`
}

func (h ListingHandler) Create(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	var req createListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	cmd := listingsapp.CreateListingCommand{
		OwnerID:           user.ID,
		Title:             req.Title,
		Description:       req.Description,
		RentalType:        req.RentalType,
		Location:          req.Location,
		UnitPrice:         req.UnitPrice,
		Currency:          req.Currency,
		PricingUnit:       req.PricingUnit,
		InstantBook:       req.InstantBook,
		AvailabilityModel: req.AvailabilityModel,
		SeedDays:          req.SeedDays,
	}
	result, err := commands.Dispatch[listingsapp.CreateListingCommand, *dto.Listing](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

type updateListingRequest struct {
	UnitPrice   string `json:"unit_price"`
	PricingUnit string `json:"pricing_unit"`
	InstantBook *bool  `json:"instant_book"`
}

// Update lets the owner change price terms; omitted fields stay as they are.
func (h ListingHandler) Update(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	var req updateListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	cmd := listingsapp.UpdateListingCommand{
		ListingID:   c.Param("id"),
		OwnerID:     user.ID,
		UnitPrice:   req.UnitPrice,
		PricingUnit: req.PricingUnit,
		InstantBook: req.InstantBook,
	}
	result, err := commands.Dispatch[listingsapp.UpdateListingCommand, *dto.Listing](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h ListingHandler) Get(c *gin.Context) {
	query := listingsapp.GetListingQuery{ListingID: c.Param("id")}
	result, err := queries.Ask[listingsapp.GetListingQuery, dto.Listing](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Quote prices ?start=&end= for the listing without reserving anything.
func (h ListingHandler) Quote(c *gin.Context) {
	start, err := parseDate(c.Query("start"))
	if err != nil {
		badRequest(c, "start must be a date")
		return
	}
	end, err := parseDate(c.Query("end"))
	if err != nil {
		badRequest(c, "end must be a date")
		return
	}
	query := listingsapp.QuoteListingQuery{ListingID: c.Param("id"), StartDate: start, EndDate: end}
	result, err := queries.Ask[listingsapp.QuoteListingQuery, dto.Quote](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
