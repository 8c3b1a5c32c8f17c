package attendance

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}

	r.GET("/attendance", h.ListAll)
	r.POST("/attendance", h.Append)
	r.PUT("/attendance", h.Update)
	// ダウンロード（?format=csv で CSV）
	r.GET("/attendance/export", h.Export)
}

// GET /attendance
func (h *Handler) ListAll(c *gin.Context) {
	records, err := h.svc.ListAll(c.Request.Context())
	if err != nil {
		c.JSON(toHTTPStatus(err), errorBody(err))
		return
	}
	c.JSON(http.StatusOK, records)
}

// POST /attendance
func (h *Handler) Append(c *gin.Context) {
	var req AttendanceRecord
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody(ErrInvalid("invalid json")))
		return
	}
	if _, err := h.svc.Append(c.Request.Context(), req); err != nil {
		c.JSON(toHTTPStatus(err), errorBody(err))
		return
	}
	c.JSON(http.StatusOK, ResultResponse{Success: true, Message: "Record added successfully"})
}

// PUT /attendance
func (h *Handler) Update(c *gin.Context) {
	var req AttendanceRecord
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody(ErrInvalid("invalid json")))
		return
	}
	if _, err := h.svc.Update(c.Request.Context(), req); err != nil {
		c.JSON(toHTTPStatus(err), errorBody(err))
		return
	}
	c.JSON(http.StatusOK, ResultResponse{Success: true, Message: "Record updated successfully"})
}

// GET /attendance/export
func (h *Handler) Export(c *gin.Context) {
	file, err := h.svc.Export(c.Request.Context(), c.DefaultQuery("format", FormatXLSX))
	if err != nil {
		c.JSON(toHTTPStatus(err), errorBody(err))
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+file.Filename)
	c.Data(http.StatusOK, file.ContentType, file.Data)
}
