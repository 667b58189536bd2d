package httpgin

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kirinyoku/parkgo/internal/domain"
	"github.com/kirinyoku/parkgo/internal/provision"
	"github.com/kirinyoku/parkgo/internal/service"
	"github.com/kirinyoku/parkgo/internal/service/admin"
	"github.com/kirinyoku/parkgo/internal/service/parking"
)

// @Summary  Create facility
// @Param    req body  CreateFacilityRequest true "payload"
// @Success  201 {object} FacilityView
// @Failure  400 {object} ErrorResponse
// @Failure  409 {object} ErrorResponse "duplicate name"
// @Router   /facilities [post]
func handleCreateFacility(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateFacilityRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		f, err := svcs.Admin.CreateFacility(c.Request.Context(), admin.CreateFacilityInput{
			Name:          req.Name,
			Location:      req.Location,
			Floors:        req.Floors,
			SpotsPerFloor: req.SpotsPerFloor,
		})
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusCreated, facilityView(*f))
	}
}

// @Summary  Create facility with an explicit per-floor spot distribution
// @Param    req body  CreateCustomFacilityRequest true "payload"
// @Success  201 {object} FacilityView
// @Failure  400 {object} ErrorResponse
// @Failure  409 {object} ErrorResponse "duplicate name"
// @Router   /facilities/custom [post]
func handleCreateCustomFacility(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateCustomFacilityRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		f, err := svcs.Admin.CreateFacilityWithDistribution(
			c.Request.Context(),
			req.Name,
			req.Location,
			req.Floors,
			provision.Distribution{
				Motorcycle:  req.Motorcycle,
				Compact:     req.Compact,
				Large:       req.Large,
				Handicapped: req.Handicapped,
			},
		)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusCreated, facilityView(*f))
	}
}

// @Summary  List facilities
// @Param    active         query  bool    false "only active facilities"
// @Param    available      query  bool    false "only facilities with a free spot"
// @Param    location       query  string  false "location substring, any case"
// @Param    min_available  query  int     false "minimum free spots"
// @Success  200  {array}  FacilityView
// @Router   /facilities [get]
func handleListFacilities(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		filter := domain.FacilityFilter{
			ActiveOnly:       c.Query("active") == "true",
			WithAvailability: c.Query("available") == "true",
			Location:         strings.TrimSpace(c.Query("location")),
			MinAvailable:     parseIntDefault(c.Query("min_available"), 0),
		}

		list, err := svcs.Query.ListFacilities(c.Request.Context(), filter)
		if err != nil {
			respondErr(c, err)
			return
		}

		writeJSONWithCache(c, http.StatusOK, mapSlice(list, facilityView), "public, max-age=15", true)
	}
}

// @Summary  Get facility with occupancy
// @Param    id  path  int  true  "Facility ID"
// @Success  200  {object}  FacilityView
// @Failure  404  {object}  ErrorResponse
// @Router   /facilities/{id} [get]
func handleGetFacility(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}

		f, err := svcs.Query.GetFacility(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}

		writeJSONWithCache(c, http.StatusOK, facilityView(*f), "public, max-age=15", true)
	}
}

// @Summary  Rename or relocate a facility
// @Param    id  path  int  true  "Facility ID"
// @Param    req body  UpdateFacilityRequest true "payload"
// @Success  200  {object}  FacilityView
// @Failure  404  {object}  ErrorResponse
// @Failure  409  {object}  ErrorResponse "duplicate name"
// @Router   /facilities/{id} [patch]
func handleUpdateFacility(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}

		var req UpdateFacilityRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		f, err := svcs.Admin.UpdateFacility(c.Request.Context(), id, req.Name, req.Location)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, facilityView(*f))
	}
}

// @Summary  Deactivate an empty facility
// @Param    id  path  int  true  "Facility ID"
// @Success  200  {object}  FacilityView
// @Failure  404  {object}  ErrorResponse
// @Failure  409  {object}  ErrorResponse "vehicles still parked"
// @Router   /facilities/{id}/deactivate [post]
func handleDeactivateFacility(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}

		f, err := svcs.Admin.DeactivateFacility(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, facilityView(*f))
	}
}

// @Summary  List facility spots
// @Param    id    path   int     true  "Facility ID"
// @Param    only  query  string  false "available"
// @Success  200  {array}   SpotView
// @Failure  404  {object}  ErrorResponse
// @Router   /facilities/{id}/spots [get]
func handleListSpots(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}

		onlyAvailable := c.Query("only") == "available" || c.Query("only_available") == "true"

		spots, err := svcs.Query.ListSpots(c.Request.Context(), id, onlyAvailable)
		if err != nil {
			respondErr(c, err)
			return
		}

		writeJSONWithCache(c, http.StatusOK, mapSlice(spots, spotView), "public, max-age=15", true)
	}
}

// @Summary  Preview the spot a vehicle would get
// @Param    id            path   int     true  "Facility ID"
// @Param    vehicle_type  query  string  true  "MOTORCYCLE, CAR or TRUCK"
// @Success  200  {object}  SpotView
// @Failure  404  {object}  ErrorResponse
// @Failure  409  {object}  ErrorResponse "no compatible spot"
// @Router   /facilities/{id}/spots/best [get]
func handleFindSpot(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}

		v, err := domain.ParseVehicleType(c.Query("vehicle_type"))
		if err != nil {
			respondErr(c, fmt.Errorf("%w: %v", parking.ErrInvalidVehicleType, err))
			return
		}

		spot, err := svcs.Parking.FindSpot(c.Request.Context(), id, v)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.Header("Cache-Control", "no-store")
		c.JSON(http.StatusOK, spotView(*spot))
	}
}

// @Summary  List facility tickets
// @Param    id  path  int  true  "Facility ID"
// @Success  200  {array}   TicketView
// @Failure  404  {object}  ErrorResponse
// @Router   /facilities/{id}/tickets [get]
func handleListTickets(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}

		list, err := svcs.Query.ListTickets(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, mapSlice(list, ticketView))
	}
}

// @Summary  List tickets parked longer than a duration
// @Param    id          path   int     true  "Facility ID"
// @Param    older_than  query  string  false "Go duration, default 24h"
// @Success  200  {array}   TicketView
// @Failure  400  {object}  ErrorResponse
// @Failure  404  {object}  ErrorResponse
// @Router   /facilities/{id}/tickets/overdue [get]
func handleListOverdueTickets(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}

		olderThan, err := parseDurationDefault(c.Query("older_than"), 24*time.Hour)
		if err != nil || olderThan < 0 {
			badRequest(c, "invalid older_than")
			return
		}

		list, err := svcs.Query.ListOverdueTickets(c.Request.Context(), id, olderThan)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, mapSlice(list, ticketView))
	}
}
