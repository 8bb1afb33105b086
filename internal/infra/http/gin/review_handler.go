package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"rentspace/internal/app/commands"
	"rentspace/internal/app/dto"
	reviewsapp "rentspace/internal/app/handlers/reviews"
	"rentspace/internal/app/queries"
)

type ReviewsHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type submitReviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

func (h ReviewsHandler) Submit(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	var req submitReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	cmd := reviewsapp.SubmitReviewCommand{
		BookingID: c.Param("id"),
		AuthorID:  user.ID,
		Rating:    req.Rating,
		Comment:   req.Comment,
	}
	review, err := commands.Dispatch[reviewsapp.SubmitReviewCommand, dto.Review](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, review)
}

func (h ReviewsHandler) ListByListing(c *gin.Context) {
	query := reviewsapp.ListListingReviewsQuery{
		ListingID: c.Param("id"),
		Limit:     parsePositiveInt(c.Query("limit"), 20),
		Offset:    parsePositiveInt(c.Query("offset"), 0),
	}
	result, err := queries.Ask[reviewsapp.ListListingReviewsQuery, dto.ReviewCollection](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
