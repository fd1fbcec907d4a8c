package audit

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"AGOS-backend/internal/platform/auth"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRouter, svc *Service) {
	h := &Handler{svc: svc}

	// 監査ログは管理者のみ閲覧可
	admin := r.Group("/audit-logs", auth.RequireRole(auth.RoleAdmin))
	admin.GET("", h.List)
}

// GET /audit-logs?user_id=&entity_type=&action=&from=&to=&page=&page_size=
func (h *Handler) List(c *gin.Context) {
	q := ListQuery{
		Page:     parseIntDefault(c.Query("page"), 1),
		PageSize: parseIntDefault(c.Query("page_size"), DefaultPageSize),
	}
	if v := c.Query("user_id"); v != "" {
		if id, err := strconv.ParseUint(v, 10, 64); err == nil {
			q.UserID = &id
		}
	}
	if v := c.Query("entity_type"); v != "" {
		q.EntityType = &v
	}
	if v := c.Query("action"); v != "" {
		q.Action = &v
	}
	if v := c.Query("from"); v != "" {
		q.From = &v
	}
	if v := c.Query("to"); v != "" {
		q.To = &v
	}

	res, err := h.svc.List(c.Request.Context(), q)
	if err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

// ---------- helpers ----------

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

func errorFromErr(err error) errorDTO {
	var e errorDTO
	if api, ok := err.(*APIError); ok {
		e.Error.Code = api.Code
		e.Error.Message = api.Message
		return e
	}
	e.Error.Code = CodeInternal
	e.Error.Message = err.Error()
	return e
}
