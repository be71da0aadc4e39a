package employees

// CreateEmployeeRequest is the intake payload for a new directory record.
type CreateEmployeeRequest struct {
	Number     string `json:"number" validate:"required,max=30"`
	FullName   string `json:"full_name" validate:"required,max=200"`
	Email      string `json:"email" validate:"required,email"`
	Department string `json:"department" validate:"required,max=100"`
}
