package types

type EnrollRequest struct {
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	AccessLevel int       `json:"access_level"`
	Vector      []float32 `json:"vector"`
}

type UpdateAccessLevelRequest struct {
	AccessLevel *int `json:"access_level"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
