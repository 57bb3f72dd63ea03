package model

import "time"

type User struct {
	ID        string
	FCMToken  *string
	UpdatedAt time.Time
}

// Token returns the delivery token or an empty string when none is registered.
func (u *User) Token() string {
	if u == nil || u.FCMToken == nil {
		return ""
	}
	return *u.FCMToken
}
