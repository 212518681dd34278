package models

// Identity is the principal behind one realtime connection.
type Identity struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	IsGuest  bool   `json:"isGuest"`
}
