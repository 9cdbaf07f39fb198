package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"presence/internal/attendance"
	"presence/internal/auth"
	"presence/internal/obs"
)

type createAttendanceRequest struct {
	UserID    string  `json:"userId"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	IP        string  `json:"ip"`
	Photo     string  `json:"photo"`
}

type createAttendanceResponse struct {
	AttendanceID string    `json:"attendanceId"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (a *API) createAttendance(c *gin.Context) {
	var req createAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failWithCause(c, http.StatusBadRequest, "invalid request body", err)
		return
	}
	// The body's userId is trusted as sent; the token only fills it in when absent.
	if req.UserID == "" {
		if claims, ok := auth.ClaimsFromGin(c); ok {
			req.UserID = claims.UserID
		}
	}
	if req.IP == "" {
		req.IP = c.ClientIP()
	}

	rec, err := a.attendance.CheckIn(c.Request.Context(), attendance.NewCheckIn{
		UserID:    req.UserID,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		IP:        req.IP,
		Photo:     req.Photo,
	})
	if err != nil {
		if attendance.IsClientError(err) {
			fail(c, http.StatusBadRequest, "userId is required")
			return
		}
		internalError(c, "create attendance", err)
		return
	}

	obs.AttendanceCreated()
	success(c, http.StatusCreated, "Attendance created successfully", createAttendanceResponse{
		AttendanceID: rec.ID,
		CreatedAt:    rec.CreatedAt,
	})
}

func (a *API) filterAttendances(c *gin.Context) {
	q := attendance.Query{
		UserID:   c.Query("userId"),
		FromDate: c.Query("fromDate"),
		ToDate:   c.Query("toDate"),
		Timezone: c.Query("timezone"),
	}
	var err error
	if q.Limit, err = intQuery(c, "limit"); err != nil {
		failWithCause(c, http.StatusBadRequest, "limit must be an integer", err)
		return
	}
	if q.Offset, err = intQuery(c, "offset"); err != nil {
		failWithCause(c, http.StatusBadRequest, "offset must be an integer", err)
		return
	}

	views, err := a.attendance.Filter(c.Request.Context(), q)
	if err != nil {
		a.listFailed(c, err)
		return
	}
	success(c, http.StatusOK, "Attendances filtered and retrieved successfully", views)
}

func (a *API) listAttendances(c *gin.Context) {
	views, err := a.attendance.All(c.Request.Context(), c.Query("timezone"))
	if err != nil {
		a.listFailed(c, err)
		return
	}
	success(c, http.StatusOK, "Attendances retrieved successfully", views)
}

func (a *API) listFailed(c *gin.Context, err error) {
	if attendance.IsClientError(err) {
		failWithCause(c, http.StatusBadRequest, "invalid filter", err)
		return
	}
	internalError(c, "list attendances", err)
}

func intQuery(c *gin.Context, key string) (int, error) {
	v := c.Query(key)
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}
