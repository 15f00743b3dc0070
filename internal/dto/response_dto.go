package dto

import "github.com/500AN/Question-Bank/internal/apperror"

// Response is the envelope every endpoint answers with.
type Response struct {
	Success    bool                  `json:"success"`
	Message    string                `json:"message,omitempty"`
	Data       interface{}           `json:"data,omitempty"`
	Pagination *Pagination           `json:"pagination,omitempty"`
	Code       apperror.Kind         `json:"code,omitempty"`
	Errors     []apperror.FieldError `json:"errors,omitempty"`
	AttemptID  *uint                 `json:"attempt_id,omitempty"`
}

type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
}

func NewPagination(page, limit int, total int64) Pagination {
	pages := 0
	if limit > 0 {
		pages = int((total + int64(limit) - 1) / int64(limit))
	}
	return Pagination{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: pages,
		HasNext:    page < pages,
		HasPrev:    page > 1,
	}
}
