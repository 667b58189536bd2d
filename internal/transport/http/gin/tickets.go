package httpgin

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kirinyoku/parkgo/internal/domain"
	"github.com/kirinyoku/parkgo/internal/service"
)

// @Summary  Get ticket
// @Param    ticket  path  string  true  "Ticket number"
// @Success  200  {object}  TicketView
// @Failure  404  {object}  ErrorResponse
// @Router   /tickets/{ticket} [get]
func handleGetTicket(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		t, err := svcs.Query.GetTicket(c.Request.Context(), c.Param("ticket"))
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, ticketView(*t))
	}
}

// @Summary  Fee owed on a ticket
// @Param    ticket  path  string  true  "Ticket number"
// @Success  200  {object}  FeeView
// @Failure  404  {object}  ErrorResponse
// @Router   /tickets/{ticket}/fee [get]
func handleCalculateFee(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		number := c.Param("ticket")

		fee, err := svcs.Billing.CalculateFee(c.Request.Context(), number)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.Header("Cache-Control", "no-store")
		c.JSON(http.StatusOK, FeeView{TicketNumber: number, Fee: fee.StringFixed(2)})
	}
}

// @Summary  Fee owed with pricing details
// @Param    ticket  path  string  true  "Ticket number"
// @Success  200  {object}  QuoteView
// @Failure  404  {object}  ErrorResponse
// @Router   /tickets/{ticket}/quote [get]
func handleQuote(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		q, err := svcs.Billing.Quote(c.Request.Context(), c.Param("ticket"))
		if err != nil {
			respondErr(c, err)
			return
		}

		c.Header("Cache-Control", "no-store")
		c.JSON(http.StatusOK, quoteView(q))
	}
}

// @Summary  Active tickets of a vehicle
// @Param    plate  path  string  true  "License plate"
// @Success  200  {array}  TicketView
// @Router   /vehicles/{plate}/tickets [get]
func handleListVehicleTickets(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := svcs.Query.ListActiveTickets(c.Request.Context(), c.Param("plate"))
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, mapSlice(list, ticketView))
	}
}

// @Summary  Whether a vehicle is parked
// @Param    plate  path  string  true  "License plate"
// @Success  200  {object}  ParkedView
// @Router   /vehicles/{plate}/parked [get]
func handleIsVehicleParked(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		plate := domain.NormalizePlate(c.Param("plate"))

		parked, err := svcs.Parking.IsVehicleParked(c.Request.Context(), plate)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, ParkedView{LicensePlate: plate, Parked: parked})
	}
}
