package dto

import (
	"time"

	"shopledger/internal/core/id"
	"shopledger/internal/domain/activity"
)

// ActivityListRequest holds GET /activity query parameters.
type ActivityListRequest struct {
	PageRequest
	EntityType string     `form:"entityType"`
	EntityID   string     `form:"entityId" binding:"omitempty,uuid"`
	UserID     string     `form:"userId"`
	From       *time.Time `form:"from" time_format:"2006-01-02"`
	To         *time.Time `form:"to" time_format:"2006-01-02"`
}

// ToFilter converts to the domain filter.
func (r *ActivityListRequest) ToFilter() activity.Filter {
	f := activity.Filter{
		ListFilter: r.ToListFilter(),
		EntityType: r.EntityType,
		UserID:     r.UserID,
		From:       r.From,
		To:         r.To,
	}
	if r.EntityID != "" {
		if eid, err := id.Parse(r.EntityID); err == nil {
			f.EntityID = &eid
		}
	}
	return f
}
