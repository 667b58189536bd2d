package httpgin

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	redisrepo "github.com/kirinyoku/parkgo/internal/repository/redis"
	"github.com/kirinyoku/parkgo/internal/service"
	"github.com/kirinyoku/parkgo/internal/service/admin"
	"github.com/kirinyoku/parkgo/internal/service/billing"
	"github.com/kirinyoku/parkgo/internal/service/parking"
	"github.com/kirinyoku/parkgo/internal/service/query"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

type RouterDeps struct {
	Services *service.Services
	// Replays is optional; without it Idempotency-Key is ignored.
	Replays *redisrepo.ParkReplays
	Metrics http.Handler
	Logger  *slog.Logger
}

func NewRouter(d RouterDeps, middlewares ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery(), RequestIDMiddleware(), LoggingMiddleware(d.Logger), CORS())
	for _, m := range middlewares {
		if m != nil {
			r.Use(m)
		}
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(d.Metrics))
	}

	svcs := d.Services

	facilities := r.Group("/facilities")
	{
		facilities.POST("", handleCreateFacility(svcs))
		facilities.POST("/custom", handleCreateCustomFacility(svcs))
		facilities.GET("", handleListFacilities(svcs))
		facilities.GET("/:id", handleGetFacility(svcs))
		facilities.PATCH("/:id", handleUpdateFacility(svcs))
		facilities.POST("/:id/deactivate", handleDeactivateFacility(svcs))
		facilities.GET("/:id/spots", handleListSpots(svcs))
		facilities.GET("/:id/spots/best", handleFindSpot(svcs))
		facilities.GET("/:id/tickets", handleListTickets(svcs))
		facilities.GET("/:id/tickets/overdue", handleListOverdueTickets(svcs))
	}

	parkingGroup := r.Group("/parking")
	{
		parkingGroup.POST("/park", handlePark(svcs, d.Replays))
		parkingGroup.POST("/exit/:ticket", handleExit(svcs))
		parkingGroup.POST("/pay/:ticket", handlePay(svcs))
		parkingGroup.POST("/cancel/:ticket", handleCancel(svcs))
	}

	tickets := r.Group("/tickets")
	{
		tickets.GET("/:ticket", handleGetTicket(svcs))
		tickets.GET("/:ticket/fee", handleCalculateFee(svcs))
		tickets.GET("/:ticket/quote", handleQuote(svcs))
	}

	vehicles := r.Group("/vehicles")
	{
		vehicles.GET("/:plate/tickets", handleListVehicleTickets(svcs))
		vehicles.GET("/:plate/parked", handleIsVehicleParked(svcs))
	}

	return r
}

// --- Helpers ---

func parseInt64Param(c *gin.Context, name string) (int64, bool) {
	v, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || v <= 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return v, true
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

func parseDurationDefault(s string, def time.Duration) (time.Duration, error) {
	if s == "" {
		return def, nil
	}
	return time.ParseDuration(s)
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg, Code: "BAD_REQUEST"})
}

type errMapping struct {
	target error
	status int
	code   string
}

// Order matters: typed errors unwrap to the sentinels listed after them.
var errMappings = []errMapping{
	// not found
	{admin.ErrFacilityNotFound, http.StatusNotFound, "FACILITY_NOT_FOUND"},
	{query.ErrFacilityNotFound, http.StatusNotFound, "FACILITY_NOT_FOUND"},
	{parking.ErrTicketNotFound, http.StatusNotFound, "TICKET_NOT_FOUND"},
	{billing.ErrTicketNotFound, http.StatusNotFound, "TICKET_NOT_FOUND"},
	{query.ErrTicketNotFound, http.StatusNotFound, "TICKET_NOT_FOUND"},

	// conflicts and capacity
	{parking.ErrAlreadyParked, http.StatusConflict, "ALREADY_PARKED"},
	{parking.ErrFacilityFull, http.StatusConflict, "FACILITY_FULL"},
	{parking.ErrNoCompatibleSpot, http.StatusConflict, "NO_COMPATIBLE_SPOT"},
	{parking.ErrFacilityInactive, http.StatusConflict, "FACILITY_INACTIVE"},
	{parking.ErrTicketNotActive, http.StatusConflict, "TICKET_NOT_ACTIVE"},
	{billing.ErrTicketNotActive, http.StatusConflict, "TICKET_NOT_ACTIVE"},
	{admin.ErrDuplicateName, http.StatusConflict, "DUPLICATE_NAME"},
	{admin.ErrFacilityOccupied, http.StatusConflict, "FACILITY_OCCUPIED"},

	// payment
	{billing.ErrInsufficientPayment, http.StatusPaymentRequired, "INSUFFICIENT_PAYMENT"},

	// validation
	{parking.ErrInvalidVehicleType, http.StatusBadRequest, "INVALID_VEHICLE_TYPE"},
	{parking.ErrInvalidLicensePlate, http.StatusBadRequest, "INVALID_LICENSE_PLATE"},
	{admin.ErrInvalidLayout, http.StatusBadRequest, "INVALID_LAYOUT"},
	{admin.ErrInvalidName, http.StatusBadRequest, "INVALID_NAME"},
	{billing.ErrInvalidAmount, http.StatusBadRequest, "INVALID_AMOUNT"},

	{parking.ErrRateLimited, http.StatusTooManyRequests, "RATE_LIMITED"},
	{parking.ErrTicketNumberExhausted, http.StatusServiceUnavailable, "TICKET_NUMBER_EXHAUSTED"},
}

func respondErr(c *gin.Context, err error) {
	if err == nil {
		c.Status(http.StatusNoContent)
		return
	}

	var rl parking.RateLimitedError
	if errors.As(err, &rl) {
		c.Header("Retry-After", strconv.Itoa(int(rl.RetryAfter.Seconds()+0.999)))
	}

	for _, m := range errMappings {
		if errors.Is(err, m.target) {
			c.JSON(m.status, ErrorResponse{Error: err.Error(), Code: m.code})
			return
		}
	}

	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error", Code: "INTERNAL"})
}
