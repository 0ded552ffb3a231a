package model

// Response is the success envelope returned by every endpoint.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// ListResponse is the success envelope for collections.
type ListResponse struct {
	Success bool `json:"success"`
	Count   int  `json:"count"`
	Total   int  `json:"total,omitempty"`
	Page    int  `json:"page,omitempty"`
	Pages   int  `json:"pages,omitempty"`
	Data    any  `json:"data"`
}

// ErrorResponse represents a standardised error response.
type ErrorResponse struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	Error         string `json:"error,omitempty"`
	CorrelationID string `json:"correlationId,omitempty"`
}

// Pages returns the number of pages needed for total items at limit per page.
func Pages(total, limit int) int {
	if limit <= 0 || total <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}
