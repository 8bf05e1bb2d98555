package domain

type User struct {
	ID           string `gorm:"primaryKey;size:26" json:"id"`
	Username     string `gorm:"uniqueIndex;size:64;not null" json:"username"`
	PasswordHash string `gorm:"column:password;size:191;not null" json:"-"`
}

func (User) TableName() string { return "users" }
