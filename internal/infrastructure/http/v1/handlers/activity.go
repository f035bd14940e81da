package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"shopledger/internal/domain"
	"shopledger/internal/domain/activity"
	"shopledger/internal/infrastructure/http/v1/dto"
)

// ActivityReader lists activity log entries.
type ActivityReader interface {
	List(ctx context.Context, f activity.Filter) (domain.ListResult[*activity.Entry], error)
}

// ActivityHandler serves the activity log.
type ActivityHandler struct {
	*BaseHandler
	reader ActivityReader
}

// NewActivityHandler creates a new activity handler.
func NewActivityHandler(base *BaseHandler, reader ActivityReader) *ActivityHandler {
	return &ActivityHandler{BaseHandler: base, reader: reader}
}

// List handles GET /activity
func (h *ActivityHandler) List(c *gin.Context) {
	var req dto.ActivityListRequest
	if !h.BindQuery(c, &req) {
		return
	}

	res, err := h.reader.List(c.Request.Context(), req.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.NewListResponse(res, func(e *activity.Entry) *activity.Entry { return e }))
}
