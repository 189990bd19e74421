package user

// User describes a reader account that can hold subscriptions
type User struct {
	ID    string `json:"id" gorm:"primaryKey"`
	Email string `json:"email" gorm:"uniqueIndex"` // User's email address
	Admin bool   `json:"admin"`                    // operator accounts get access to the admin subscription API
}
