package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Role string

const (
	RoleCitizen Role = "citizen"
	RolePolice  Role = "police"
)

func (r Role) Valid() bool { return r == RoleCitizen || r == RolePolice }

// Account 登录凭据，由认证组件独占
type Account struct {
	ID           string    `json:"id" gorm:"primaryKey;size:36"`
	Username     string    `json:"username" gorm:"size:32;uniqueIndex"`
	PasswordHash string    `json:"-" gorm:"size:100"`
	CreatedAt    time.Time `json:"created_at"`
}

func (a *Account) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// AuthSession 服务端会话，令牌与 cookie 只携带会话 ID
type AuthSession struct {
	ID        string     `json:"id" gorm:"primaryKey;size:36"`
	AccountID string     `json:"account_id" gorm:"size:36;index"`
	ExpiresAt time.Time  `json:"expires_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
	IP        string     `json:"-" gorm:"size:64"`
	UserAgent string     `json:"-" gorm:"size:255"`
	CreatedAt time.Time  `json:"created_at"`
}

func (s *AuthSession) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// Active 未撤销且未过期
func (s *AuthSession) Active(now time.Time) bool {
	return s != nil && s.RevokedAt == nil && now.Before(s.ExpiresAt)
}

// Profile 角色与核验信息，ID 与 Account 相同
type Profile struct {
	ID            string    `json:"id" gorm:"primaryKey;size:36"`
	Username      string    `json:"username" gorm:"size:32;uniqueIndex"`
	Email         *string   `json:"email,omitempty" gorm:"size:255"`
	Role          Role      `json:"role" gorm:"size:16;index"`
	FullName      *string   `json:"full_name,omitempty" gorm:"size:128"`
	OfficialEmail *string   `json:"official_email,omitempty" gorm:"size:255"`
	PoliceID      *string   `json:"police_id,omitempty" gorm:"size:64;index"`
	PoliceStation *string   `json:"police_station,omitempty" gorm:"size:255"`
	IDProofURL    *string   `json:"id_proof_url,omitempty" gorm:"size:512"`
	Verified      bool      `json:"verified"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// CanManageAlerts 只有已核验的警方账号可以变更警报
func (p *Profile) CanManageAlerts() bool {
	return p != nil && p.Role == RolePolice && p.Verified
}

// PoliceCredential 警员编号登记表，服务只读
type PoliceCredential struct {
	PoliceID    string    `json:"police_id" gorm:"primaryKey;size:64"`
	IsValid     bool      `json:"is_valid"`
	StationName string    `json:"station_name" gorm:"size:255"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
