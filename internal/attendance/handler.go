package attendance

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"AGOS-backend/internal/platform/auth"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRouter, svc *Service) {
	h := &Handler{svc: svc}

	// 本人用
	r.GET("/attendance/today", h.GetToday)
	r.POST("/attendance/checkin", h.CheckIn)
	r.POST("/attendance/checkout", h.CheckOut)
	r.GET("/attendance/history", h.History)
	r.GET("/attendance/recent", h.Recent)

	// 閲覧は admin / government、変更は admin のみ
	staff := r.Group("/attendance/admin", auth.RequireRole(auth.RoleAdmin, auth.RoleGovernment))
	staff.GET("/all", h.AdminList)

	admin := r.Group("/attendance/admin", auth.RequireRole(auth.RoleAdmin))
	admin.POST("/create", h.AdminCreate)
	admin.PUT("/:id", h.AdminUpdate)
	admin.DELETE("/:id", h.AdminDelete)
}

// ---------- handlers ----------

func (h *Handler) GetToday(c *gin.Context) {
	p, ok := auth.PrincipalFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorBody(CodeInternal, "missing principal"))
		return
	}

	res, err := h.svc.GetToday(c.Request.Context(), p.UserID)
	if err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}
	// 未打刻日は null を返す
	c.JSON(http.StatusOK, res)
}

func (h *Handler) CheckIn(c *gin.Context) {
	p, ok := auth.PrincipalFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorBody(CodeInternal, "missing principal"))
		return
	}

	// 位置情報なしの打刻も許す（bodyは省略可）
	var req CheckInRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, errorBody(CodeValidation, "invalid json"))
			return
		}
	}

	res, err := h.svc.CheckIn(c.Request.Context(), actorFrom(c, p), req)
	if err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) CheckOut(c *gin.Context) {
	p, ok := auth.PrincipalFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorBody(CodeInternal, "missing principal"))
		return
	}

	var req CheckOutRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, errorBody(CodeValidation, "invalid json"))
			return
		}
	}

	res, err := h.svc.CheckOut(c.Request.Context(), actorFrom(c, p), req)
	if err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) History(c *gin.Context) {
	p, ok := auth.PrincipalFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorBody(CodeInternal, "missing principal"))
		return
	}

	var from, to *string
	if v := c.Query("start_date"); v != "" {
		from = &v
	}
	if v := c.Query("end_date"); v != "" {
		to = &v
	}
	page := PageRequest{
		Page:     parseIntDefault(c.Query("page"), 1),
		PageSize: parseIntDefault(c.Query("page_size"), DefaultPageSize),
	}

	res, err := h.svc.History(c.Request.Context(), p.UserID, from, to, page)
	if err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Recent(c *gin.Context) {
	p, ok := auth.PrincipalFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorBody(CodeInternal, "missing principal"))
		return
	}

	res, err := h.svc.Recent(c.Request.Context(), p.UserID)
	if err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) AdminList(c *gin.Context) {
	f := ListFilter{}
	if v := c.Query("user_id"); v != "" {
		if id, err := strconv.ParseUint(v, 10, 64); err == nil {
			f.UserID = &id
		}
	}
	if v := c.Query("status"); v != "" {
		st := Status(v)
		f.Status = &st
	}
	if v := c.Query("start_date"); v != "" {
		f.From = &v
	}
	if v := c.Query("end_date"); v != "" {
		f.To = &v
	}
	page := PageRequest{
		Page:     parseIntDefault(c.Query("page"), 1),
		PageSize: parseIntDefault(c.Query("page_size"), AdminPageSize),
	}

	res, err := h.svc.AdminList(c.Request.Context(), f, page)
	if err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) AdminCreate(c *gin.Context) {
	p, ok := auth.PrincipalFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorBody(CodeInternal, "missing principal"))
		return
	}

	var req AdminCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody(CodeValidation, "invalid json or missing required fields"))
		return
	}

	res, err := h.svc.AdminCreate(c.Request.Context(), actorFrom(c, p), req)
	if err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) AdminUpdate(c *gin.Context) {
	p, ok := auth.PrincipalFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorBody(CodeInternal, "missing principal"))
		return
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, errorBody(CodeValidation, "id must be a positive integer"))
		return
	}

	var req AdminUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody(CodeValidation, "invalid json"))
		return
	}

	res, err := h.svc.AdminUpdate(c.Request.Context(), actorFrom(c, p), id, req)
	if err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) AdminDelete(c *gin.Context) {
	p, ok := auth.PrincipalFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorBody(CodeInternal, "missing principal"))
		return
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, errorBody(CodeValidation, "id must be a positive integer"))
		return
	}

	if err := h.svc.AdminDelete(c.Request.Context(), actorFrom(c, p), id); err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "attendance record deleted"})
}

// ---------- helpers ----------

func actorFrom(c *gin.Context, p auth.Principal) Actor {
	return Actor{
		UserID:        p.UserID,
		SourceAddress: c.ClientIP(),
		ClientAgent:   c.Request.UserAgent(),
	}
}

func parseIntDefault(s string, d int) int {
	if s == "" {
		return d
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return d
	}
	return v
}

type errorDTO struct {
	Error struct {
		Code    Code   `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func errorBody(code Code, msg string) errorDTO {
	var e errorDTO
	e.Error.Code = code
	e.Error.Message = msg
	return e
}

func errorFromErr(err error) errorDTO {
	var msg string
	var code Code = CodeInternal
	if api, ok := err.(*APIError); ok {
		code, msg = api.Code, api.Message
	} else {
		msg = err.Error()
	}
	return errorBody(code, msg)
}
