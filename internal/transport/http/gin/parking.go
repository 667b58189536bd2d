package httpgin

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/kirinyoku/parkgo/internal/domain"
	redisrepo "github.com/kirinyoku/parkgo/internal/repository/redis"
	"github.com/kirinyoku/parkgo/internal/service"
	"github.com/kirinyoku/parkgo/internal/service/parking"
)

// @Summary  Park a vehicle (idempotent)
// @Param    req body  ParkRequest true "payload"
// @Header   201 {string} Idempotency-Key "echo"
// @Success  201 {object} TicketView
// @Failure  400 {object} ErrorResponse
// @Failure  404 {object} ErrorResponse "facility not found"
// @Failure  409 {object} ErrorResponse "already parked / full / no compatible spot / idem in progress"
// @Failure  429 {object} ErrorResponse "rate limited"
// @Router   /parking/park [post]
func handlePark(svcs *service.Services, replays *redisrepo.ParkReplays) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ParkRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		v, err := domain.ParseVehicleType(req.VehicleType)
		if err != nil {
			respondErr(c, fmt.Errorf("%w: %v", parking.ErrInvalidVehicleType, err))
			return
		}

		ctx := c.Request.Context()

		idemKey := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
		claimed := false
		if replays != nil && idemKey != "" {
			state, resp, err := replays.Begin(ctx, idemKey)
			if err != nil {
				respondErr(c, err)
				return
			}

			switch state {
			case redisrepo.ReplayDone:
				c.Header("Idempotency-Key", idemKey)
				c.Data(http.StatusCreated, "application/json; charset=utf-8", resp)
				return
			case redisrepo.ReplayInFlight:
				c.Header("Retry-After", "1")
				c.JSON(http.StatusConflict, ErrorResponse{Error: "idempotency key in progress", Code: "IDEMPOTENCY_IN_PROGRESS"})
				return
			}
			claimed = true
		}

		t, err := svcs.Parking.Park(ctx, parking.ParkInput{
			LicensePlate: req.LicensePlate,
			VehicleType:  v,
			FacilityID:   req.FacilityID,
			ClientKey:    "ip:" + c.ClientIP(),
		})
		if err != nil {
			if claimed {
				_ = replays.Abandon(ctx, idemKey)
			}
			respondErr(c, err)
			return
		}

		resp := ticketView(*t)

		if claimed {
			b, _ := json.Marshal(resp)
			_ = replays.Finish(ctx, idemKey, b)
			c.Header("Idempotency-Key", idemKey)
		}

		c.JSON(http.StatusCreated, resp)
	}
}

// @Summary  Exit: charge the fee and free the spot
// @Param    ticket  path  string  true  "Ticket number"
// @Success  200  {object}  TicketView
// @Failure  404  {object}  ErrorResponse
// @Failure  409  {object}  ErrorResponse "ticket not active"
// @Router   /parking/exit/{ticket} [post]
func handleExit(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		t, err := svcs.Parking.Exit(c.Request.Context(), c.Param("ticket"))
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, ticketView(*t))
	}
}

// @Summary  Pay an active ticket
// @Param    ticket  path  string      true  "Ticket number"
// @Param    req     body  PayRequest  true  "payload"
// @Success  200  {object}  TicketView
// @Failure  402  {object}  ErrorResponse "amount below the fee owed"
// @Failure  404  {object}  ErrorResponse
// @Failure  409  {object}  ErrorResponse "ticket not active"
// @Router   /parking/pay/{ticket} [post]
func handlePay(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req PayRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		t, err := svcs.Billing.Pay(c.Request.Context(), c.Param("ticket"), *req.Amount)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, ticketView(*t))
	}
}

// @Summary  Cancel an active ticket without charging it
// @Param    ticket  path  string  true  "Ticket number"
// @Success  200  {object}  TicketView
// @Failure  404  {object}  ErrorResponse
// @Failure  409  {object}  ErrorResponse "ticket not active"
// @Router   /parking/cancel/{ticket} [post]
func handleCancel(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		t, err := svcs.Parking.Cancel(c.Request.Context(), c.Param("ticket"))
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, ticketView(*t))
	}
}
