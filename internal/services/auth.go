package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"sync"
	"time"

	"AmberWatch/internal/models"
	"AmberWatch/internal/store"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"
)

const MinPasswordLength = 6

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]{3,32}$`)

type AccountRepository interface {
	CreateWithProfile(ctx context.Context, account *models.Account, profile *models.Profile) error
	GetByUsername(ctx context.Context, username string) (*models.Account, error)
}

type SessionRepository interface {
	Create(ctx context.Context, session *models.AuthSession) error
	Get(ctx context.Context, id string) (*models.AuthSession, error)
	Revoke(ctx context.Context, id string, at time.Time) error
}

type Verifier interface {
	Verify(ctx context.Context, claimedID string) Verification
}

type SessionEventKind int

const (
	SessionSignedIn SessionEventKind = iota + 1
	SessionSignedOut
)

// SessionEvent 登录态变化，在 SignIn/SignOut 返回前同步派发
type SessionEvent struct {
	Kind      SessionEventKind
	SessionID string
	AccountID string
}

type AuthConfig struct {
	Secret     []byte
	Issuer     string
	SessionTTL time.Duration
	BcryptCost int
}

// SessionMeta 登录请求的来源信息
type SessionMeta struct {
	IP        string
	UserAgent string
}

// PoliceRegistration 警方注册表单；PoliceStation 以登记表为准，客户端传入的值被忽略
type PoliceRegistration struct {
	Username      string `json:"username"`
	Password      string `json:"password"`
	FullName      string `json:"full_name"`
	OfficialEmail string `json:"official_email"`
	PoliceID      string `json:"police_id"`
	PoliceStation string `json:"police_station"`
	IDProofURL    string `json:"id_proof_url"`
}

type AuthService struct {
	accounts AccountRepository
	sessions SessionRepository
	verifier Verifier
	cfg      AuthConfig
	now      func() time.Time

	mu        sync.RWMutex
	nextID    uint64
	listeners map[uint64]func(ctx context.Context, ev SessionEvent)
}

func NewAuthService(accounts AccountRepository, sessions SessionRepository, verifier Verifier, cfg AuthConfig) *AuthService {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 7 * 24 * time.Hour
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	if cfg.Issuer == "" {
		cfg.Issuer = "amberwatch"
	}
	return &AuthService{
		accounts:  accounts,
		sessions:  sessions,
		verifier:  verifier,
		cfg:       cfg,
		now:       time.Now,
		listeners: make(map[uint64]func(ctx context.Context, ev SessionEvent)),
	}
}

// OnSessionChange 注册登录态监听，返回的函数用于退订
func (s *AuthService) OnSessionChange(fn func(ctx context.Context, ev SessionEvent)) func() {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.listeners[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *AuthService) emit(ctx context.Context, ev SessionEvent) {
	s.mu.RLock()
	fns := make([]func(context.Context, SessionEvent), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.RUnlock()
	for _, fn := range fns {
		fn(ctx, ev)
	}
}

func validateCredentials(username, password string) error {
	if !usernamePattern.MatchString(username) {
		return invalid("username must be 3-32 letters, digits or underscores")
	}
	if len(password) < MinPasswordLength {
		return invalid(fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}
	return nil
}

func (s *AuthService) SignUpCitizen(ctx context.Context, username, password string) (*models.Profile, error) {
	username = strings.TrimSpace(username)
	if err := validateCredentials(username, password); err != nil {
		return nil, err
	}
	profile := &models.Profile{Username: username, Role: models.RoleCitizen}
	if err := s.createAccount(ctx, username, password, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// SignUpPolice 警员编号核验通过后才会写入账号，派出所名称取自登记表
func (s *AuthService) SignUpPolice(ctx context.Context, reg PoliceRegistration) (*models.Profile, error) {
	reg.Username = strings.TrimSpace(reg.Username)
	reg.FullName = strings.TrimSpace(reg.FullName)
	reg.OfficialEmail = strings.TrimSpace(reg.OfficialEmail)
	reg.PoliceID = strings.TrimSpace(reg.PoliceID)
	if err := validateCredentials(reg.Username, reg.Password); err != nil {
		return nil, err
	}
	if reg.FullName == "" {
		return nil, invalid("full name is required")
	}
	if _, err := mail.ParseAddress(reg.OfficialEmail); err != nil {
		return nil, invalid("official email is invalid")
	}
	if reg.PoliceID == "" {
		return nil, invalid("police id is required")
	}

	v := s.verifier.Verify(ctx, reg.PoliceID)
	if !v.Valid {
		return nil, ErrVerificationDenied
	}

	profile := &models.Profile{
		Username:      reg.Username,
		Role:          models.RolePolice,
		FullName:      &reg.FullName,
		OfficialEmail: &reg.OfficialEmail,
		PoliceID:      &reg.PoliceID,
		PoliceStation: v.Station,
		IDProofURL:    optional(reg.IDProofURL),
		Verified:      true,
	}
	if err := s.createAccount(ctx, reg.Username, reg.Password, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

func (s *AuthService) createAccount(ctx context.Context, username, password string, profile *models.Profile) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	if err != nil {
		return backend(err, "hash password failed")
	}
	account := &models.Account{Username: username, PasswordHash: string(hash)}
	if err := s.accounts.CreateWithProfile(ctx, account, profile); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return ErrUsernameTaken
		}
		return backend(err, "create account failed")
	}
	return nil
}

// SignIn 返回服务端会话与携带会话 ID 的 JWT
func (s *AuthService) SignIn(ctx context.Context, username, password string, meta SessionMeta) (*models.AuthSession, string, error) {
	account, err := s.accounts.GetByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, store.ErrNotFound) {
		return nil, "", ErrBadCredentials
	}
	if err != nil {
		return nil, "", backend(err, "load account failed")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, "", ErrBadCredentials
	}

	now := s.now().UTC()
	session := &models.AuthSession{
		AccountID: account.ID,
		ExpiresAt: now.Add(s.cfg.SessionTTL),
		IP:        meta.IP,
		UserAgent: meta.UserAgent,
		CreatedAt: now,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, "", backend(err, "create session failed")
	}
	token, err := s.issueToken(session)
	if err != nil {
		return nil, "", backend(err, "sign token failed")
	}

	s.emit(ctx, SessionEvent{Kind: SessionSignedIn, SessionID: session.ID, AccountID: account.ID})
	return session, token, nil
}

func (s *AuthService) SignOut(ctx context.Context, sessionID string) error {
	session, err := s.sessions.Get(ctx, sessionID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrSessionInvalid
	}
	if err != nil {
		return backend(err, "load session failed")
	}
	if err := s.sessions.Revoke(ctx, sessionID, s.now().UTC()); err != nil {
		return backend(err, "revoke session failed")
	}
	s.emit(ctx, SessionEvent{Kind: SessionSignedOut, SessionID: sessionID, AccountID: session.AccountID})
	return nil
}

// CurrentSession 过期或已撤销的会话返回 ErrSessionInvalid
func (s *AuthService) CurrentSession(ctx context.Context, sessionID string) (*models.AuthSession, error) {
	if sessionID == "" {
		return nil, ErrSessionInvalid
	}
	session, err := s.sessions.Get(ctx, sessionID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrSessionInvalid
	}
	if err != nil {
		return nil, backend(err, "load session failed")
	}
	if !session.Active(s.now()) {
		return nil, ErrSessionInvalid
	}
	return session, nil
}

func (s *AuthService) issueToken(session *models.AuthSession) (string, error) {
	claims := jwt.RegisteredClaims{
		ID:        session.ID,
		Subject:   session.AccountID,
		Issuer:    s.cfg.Issuer,
		IssuedAt:  jwt.NewNumericDate(session.CreatedAt),
		ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.cfg.Secret)
}

// ParseToken 校验签名与过期时间，返回会话 ID
func (s *AuthService) ParseToken(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.cfg.Secret, nil
	})
	if err != nil || !token.Valid {
		return "", ErrSessionInvalid
	}
	if claims.Issuer != s.cfg.Issuer || claims.ID == "" {
		return "", ErrSessionInvalid
	}
	return claims.ID, nil
}
