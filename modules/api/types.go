package api

// ErrorResponse is the body of every non-validation error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// FormErrorEntry lists the messages of one form field.
type FormErrorEntry struct {
	Key    string   `json:"key"`
	Errors []string `json:"errors"`
}

// FormErrorsResponse is the body of a 422 response.
type FormErrorsResponse struct {
	Status     string           `json:"status"`
	FormErrors []FormErrorEntry `json:"formErrors"`
}

// RegisterRequest is the JSON or form body of a registration.
type RegisterRequest struct {
	FirstName       string `json:"firstName" form:"firstName"`
	LastName        string `json:"lastName" form:"lastName"`
	Email           string `json:"email" form:"email"`
	Password        string `json:"password" form:"password"`
	ConfirmPassword string `json:"confirmPassword" form:"confirmPassword"`
}

// LoginRequest represents a login request.
type LoginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// RefreshRequest represents a token refresh request.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" form:"refresh_token"`
}

// TaskForm is the JSON or form body of a task create or update.
type TaskForm struct {
	Title            string `json:"title" form:"title"`
	Description      string `json:"description" form:"description"`
	AssigneeID       string `json:"assigneeId" form:"assigneeId"`
	Important        bool   `json:"important" form:"important"`
	ActiveStatus     string `json:"activeStatus" form:"activeStatus"`
	RemoveAttachment bool   `json:"removeAttachment" form:"removeAttachment"`
}

// PermissionsResponse tells a client which mutations it may offer.
type PermissionsResponse struct {
	TaskID int    `json:"task_id"`
	Update string `json:"update"`
	Delete string `json:"delete"`
}

// CreatedResponse is returned after a task is created.
type CreatedResponse struct {
	ID int `json:"id"`
}
