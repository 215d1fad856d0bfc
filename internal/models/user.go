package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Username     string `gorm:"uniqueIndex;not null" json:"username"`
	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"not null" json:"-"`
	FullName     string `json:"full_name"`
	Avatar       string `json:"avatar"`
	Role         string `gorm:"not null;default:user" json:"role"`

	IsBanned  bool       `gorm:"default:false;index" json:"is_banned"`
	BanReason string     `json:"ban_reason"`
	BannedAt  *time.Time `json:"banned_at"`

	IsOnline bool       `gorm:"default:false" json:"is_online"`
	LastSeen *time.Time `json:"last_seen"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

type UserResponse struct {
	ID       uint       `json:"id"`
	Username string     `json:"username"`
	Email    string     `json:"email"`
	FullName string     `json:"full_name"`
	Avatar   string     `json:"avatar"`
	Role     string     `json:"role"`
	IsOnline bool       `json:"is_online"`
	LastSeen *time.Time `json:"last_seen"`
}

func (u *User) ToResponse() UserResponse {
	return UserResponse{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		FullName: u.FullName,
		Avatar:   u.Avatar,
		Role:     u.Role,
		IsOnline: u.IsOnline,
		LastSeen: u.LastSeen,
	}
}

// AdminUserResponse includes moderation fields hidden from regular users.
type AdminUserResponse struct {
	UserResponse
	IsBanned  bool       `json:"is_banned"`
	BanReason string     `json:"ban_reason"`
	BannedAt  *time.Time `json:"banned_at"`
	CreatedAt time.Time  `json:"created_at"`
}

func (u *User) ToAdminResponse() AdminUserResponse {
	return AdminUserResponse{
		UserResponse: u.ToResponse(),
		IsBanned:     u.IsBanned,
		BanReason:    u.BanReason,
		BannedAt:     u.BannedAt,
		CreatedAt:    u.CreatedAt,
	}
}
