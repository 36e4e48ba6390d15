package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AlertStatus string

const (
	AlertActive   AlertStatus = "active"
	AlertResolved AlertStatus = "resolved"
	AlertInactive AlertStatus = "inactive"
)

func (s AlertStatus) Valid() bool {
	switch s {
	case AlertActive, AlertResolved, AlertInactive:
		return true
	}
	return false
}

type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

func (r RiskLevel) Valid() bool {
	return r == RiskLow || r == RiskMedium || r == RiskHigh
}

// Alert 走失儿童警报
type Alert struct {
	ID               string      `json:"id" gorm:"primaryKey;size:36"`
	ChildName        string      `json:"child_name" gorm:"size:128"`
	Age              int         `json:"age"`
	PhotoURL         string      `json:"photo_url" gorm:"size:512;not null"`
	LastSeenLocation string      `json:"last_seen_location" gorm:"size:255"`
	LastSeenLat      *float64    `json:"last_seen_lat,omitempty"`
	LastSeenLng      *float64    `json:"last_seen_lng,omitempty"`
	TimeMissing      time.Time   `json:"time_missing"`
	Description      string      `json:"description" gorm:"type:text"`
	RiskLevel        RiskLevel   `json:"risk_level" gorm:"size:16"`
	Status           AlertStatus `json:"status" gorm:"size:16;index"`
	CreatedBy        *string     `json:"created_by,omitempty" gorm:"size:36;index"`
	CreatedAt        time.Time   `json:"created_at" gorm:"index"`
	UpdatedAt        time.Time   `json:"updated_at" gorm:"index"`
}

func (a *Alert) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// Sighting 市民目击报告，创建后不可修改
type Sighting struct {
	ID              string    `json:"id" gorm:"primaryKey;size:36"`
	AlertID         string    `json:"alert_id" gorm:"size:36;index"`
	Location        string    `json:"location" gorm:"size:255"`
	Lat             *float64  `json:"lat,omitempty"`
	Lng             *float64  `json:"lng,omitempty"`
	Description     *string   `json:"description"`
	ReporterContact *string   `json:"reporter_contact"`
	ReporterID      *string   `json:"reporter_id"`
	PhotoURL        string    `json:"photo_url" gorm:"size:512;not null"`
	CreatedAt       time.Time `json:"created_at" gorm:"index"`
}

func (s *Sighting) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// OperationLog 警方变更操作的审计记录
type OperationLog struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	ActorID   string    `json:"actor_id" gorm:"size:36;index"`
	Action    string    `json:"action" gorm:"size:64"`
	Target    string    `json:"target" gorm:"size:255"`
	Status    int       `json:"status"`
	IP        string    `json:"ip" gorm:"size:64"`
	UserAgent string    `json:"user_agent" gorm:"size:255"`
	Browser   string    `json:"browser" gorm:"size:64"`
	OS        string    `json:"os" gorm:"size:64"`
	Location  string    `json:"location" gorm:"size:128"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
}

// AllModels 需要迁移的全部模型
func AllModels() []any {
	return []any{
		&Account{},
		&AuthSession{},
		&Profile{},
		&PoliceCredential{},
		&Alert{},
		&Sighting{},
		&OperationLog{},
	}
}
