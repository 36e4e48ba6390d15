package store

import (
	"context"
	"time"

	"AmberWatch/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AccountStore struct {
	db *gorm.DB
}

func NewAccountStore(db *gorm.DB) *AccountStore {
	return &AccountStore{db: db}
}

// CreateWithProfile 在同一事务中写入账号与资料
func (s *AccountStore) CreateWithProfile(ctx context.Context, account *models.Account, profile *models.Profile) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.Account{}).Where("username = ?", account.Username).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrDuplicate
		}
		if err := tx.Create(account).Error; err != nil {
			return translate(err)
		}
		profile.ID = account.ID
		return translate(tx.Create(profile).Error)
	})
}

func (s *AccountStore) GetByUsername(ctx context.Context, username string) (*models.Account, error) {
	var account models.Account
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&account).Error; err != nil {
		return nil, translate(err)
	}
	return &account, nil
}

type SessionStore struct {
	db *gorm.DB
}

func NewSessionStore(db *gorm.DB) *SessionStore {
	return &SessionStore{db: db}
}

func (s *SessionStore) Create(ctx context.Context, session *models.AuthSession) error {
	return translate(s.db.WithContext(ctx).Create(session).Error)
}

func (s *SessionStore) Get(ctx context.Context, id string) (*models.AuthSession, error) {
	var session models.AuthSession
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&session).Error; err != nil {
		return nil, translate(err)
	}
	return &session, nil
}

func (s *SessionStore) Revoke(ctx context.Context, id string, at time.Time) error {
	res := s.db.WithContext(ctx).Model(&models.AuthSession{}).
		Where("id = ? AND revoked_at IS NULL", id).
		Update("revoked_at", at)
	return translate(res.Error)
}

type ProfileStore struct {
	db *gorm.DB
}

func NewProfileStore(db *gorm.DB) *ProfileStore {
	return &ProfileStore{db: db}
}

func (s *ProfileStore) Get(ctx context.Context, id string) (*models.Profile, error) {
	var profile models.Profile
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&profile).Error; err != nil {
		return nil, translate(err)
	}
	return &profile, nil
}

type CredentialStore struct {
	db *gorm.DB
}

func NewCredentialStore(db *gorm.DB) *CredentialStore {
	return &CredentialStore{db: db}
}

func (s *CredentialStore) Lookup(ctx context.Context, policeID string) (*models.PoliceCredential, error) {
	var cred models.PoliceCredential
	if err := s.db.WithContext(ctx).Where("police_id = ?", policeID).First(&cred).Error; err != nil {
		return nil, translate(err)
	}
	return &cred, nil
}

// Upsert 运维导入登记表，按 police_id 覆盖
func (s *CredentialStore) Upsert(ctx context.Context, creds []models.PoliceCredential) error {
	if len(creds) == 0 {
		return nil
	}
	return translate(s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "police_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"is_valid", "station_name", "updated_at"}),
	}).Create(&creds).Error)
}

type AuditStore struct {
	db *gorm.DB
}

func NewAuditStore(db *gorm.DB) *AuditStore {
	return &AuditStore{db: db}
}

func (s *AuditStore) Record(ctx context.Context, entry *models.OperationLog) error {
	return translate(s.db.WithContext(ctx).Create(entry).Error)
}

func (s *AuditStore) ListByActor(ctx context.Context, actorID string, limit int) ([]models.OperationLog, error) {
	var logs []models.OperationLog
	err := s.db.WithContext(ctx).Where("actor_id = ?", actorID).Order("created_at DESC").Limit(limit).Find(&logs).Error
	return logs, translate(err)
}
