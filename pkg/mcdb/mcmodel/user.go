package mcmodel

import "time"

type User struct {
	ID        int       `json:"id"`
	UUID      string    `json:"uuid" gorm:"uniqueIndex;size:40"`
	Name      string    `json:"name"`
	Email     string    `json:"email" gorm:"uniqueIndex;size:255"`
	ApiToken  string    `json:"-" gorm:"uniqueIndex;size:64"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}
