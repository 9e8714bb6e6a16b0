package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/goliatone/go-restaurant-auth/provider/firebase"
	"github.com/uptrace/bun"
)

// ProviderSessionModel is the Bun model for a persisted provider session.
// One row per project and slot.
type ProviderSessionModel struct {
	bun.BaseModel `bun:"table:provider_sessions"`

	ProjectID      string    `bun:"project_id,pk"`
	Slot           string    `bun:"slot,pk"`
	UID            string    `bun:"uid,notnull"`
	Email          string    `bun:"email"`
	DisplayName    string    `bun:"display_name"`
	EmailVerified  bool      `bun:"email_verified,notnull"`
	SignInProvider string    `bun:"sign_in_provider"`
	IDToken        string    `bun:"id_token"`
	RefreshToken   string    `bun:"refresh_token,notnull"`
	ExpiresAt      time.Time `bun:"expires_at"`
	CreatedAt      time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt      time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

// ProviderSessions implements firebase.SessionPersistence using Bun.
type ProviderSessions struct {
	db        bun.IDB
	projectID string
	slot      string
}

var _ firebase.SessionPersistence = (*ProviderSessions)(nil)

// NewProviderSessions stores the session under projectID and slot. The slot
// lets several local profiles share one database.
func NewProviderSessions(db bun.IDB, projectID, slot string) *ProviderSessions {
	if slot == "" {
		slot = "default"
	}
	return &ProviderSessions{db: db, projectID: projectID, slot: slot}
}

// Load implements firebase.SessionPersistence.
func (r *ProviderSessions) Load(ctx context.Context) (*firebase.Session, error) {
	var model ProviderSessionModel
	err := r.db.NewSelect().
		Model(&model).
		Where("project_id = ? AND slot = ?", r.projectID, r.slot).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return toSession(&model), nil
}

// Save implements firebase.SessionPersistence.
func (r *ProviderSessions) Save(ctx context.Context, session *firebase.Session) error {
	if session == nil {
		return r.Clear(ctx)
	}

	model := r.fromSession(session)
	model.UpdatedAt = time.Now()

	_, err := r.db.NewInsert().
		Model(model).
		On("CONFLICT (project_id, slot) DO UPDATE").
		Set("uid = EXCLUDED.uid").
		Set("email = EXCLUDED.email").
		Set("display_name = EXCLUDED.display_name").
		Set("email_verified = EXCLUDED.email_verified").
		Set("sign_in_provider = EXCLUDED.sign_in_provider").
		Set("id_token = EXCLUDED.id_token").
		Set("refresh_token = EXCLUDED.refresh_token").
		Set("expires_at = EXCLUDED.expires_at").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)

	return err
}

// Clear implements firebase.SessionPersistence.
func (r *ProviderSessions) Clear(ctx context.Context) error {
	_, err := r.db.NewDelete().
		Model((*ProviderSessionModel)(nil)).
		Where("project_id = ? AND slot = ?", r.projectID, r.slot).
		Exec(ctx)
	return err
}

func toSession(m *ProviderSessionModel) *firebase.Session {
	return &firebase.Session{
		SubjectID:      m.UID,
		Email:          m.Email,
		DisplayName:    m.DisplayName,
		EmailVerified:  m.EmailVerified,
		SignInProvider: m.SignInProvider,
		IDToken:        m.IDToken,
		RefreshToken:   m.RefreshToken,
		ExpiresAt:      m.ExpiresAt,
	}
}

func (r *ProviderSessions) fromSession(s *firebase.Session) *ProviderSessionModel {
	return &ProviderSessionModel{
		ProjectID:      r.projectID,
		Slot:           r.slot,
		UID:            s.SubjectID,
		Email:          s.Email,
		DisplayName:    s.DisplayName,
		EmailVerified:  s.EmailVerified,
		SignInProvider: s.SignInProvider,
		IDToken:        s.IDToken,
		RefreshToken:   s.RefreshToken,
		ExpiresAt:      s.ExpiresAt.UTC(),
	}
}
