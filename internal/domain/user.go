package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// Role 闭合枚举："admin" / "agent" / "individual"
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleAgent      Role = "agent"
	RoleIndividual Role = "individual"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleAgent, RoleIndividual:
		return true
	}
	return false
}

// CanManage 是否可以操作别人的资源（更新/删除/代发）
func (r Role) CanManage() bool { return r == RoleAdmin }

type User struct {
	ID           string `gorm:"primaryKey;type:varchar(32)" json:"id"`
	Username     string `gorm:"uniqueIndex;size:150;not null" json:"username"`
	Email        string `gorm:"uniqueIndex;size:255;not null" json:"email"`
	PasswordHash string `gorm:"size:100;not null" json:"-"`
	FirstName    string `gorm:"size:64" json:"firstName"`
	LastName     string `gorm:"size:64" json:"lastName"`
	Phone        string `gorm:"size:20" json:"phone,omitempty"`
	Role         Role   `gorm:"size:20;not null;default:individual" json:"role"`
	IsActive     bool   `gorm:"not null;default:true" json:"isActive"`
	IsStaff      bool   `gorm:"not null;default:false" json:"isStaff"`

	// 硬删用户时连带删其房源（正常流程走软删，不触发级联）
	Properties []Property `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`

	CreatedAt time.Time      `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string { return "users" }

// Identity 登录成功后的主体，后续鉴权只看这三个字段
type Identity struct {
	UID      string `json:"uid"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

type UserRepository interface {
	Create(ctx context.Context, u *User) error
	FindByID(ctx context.Context, id string) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context, q string, offset, limit int, withDeleted bool) ([]User, int64, error)
	Update(ctx context.Context, u *User) error
	SoftDelete(ctx context.Context, id string) error
}
