package mock

import (
	"context"
	"slices"
	"sync"

	"github.com/garnizeh/clipmarket/internal/models"
	"github.com/garnizeh/clipmarket/pkg/repository"
)

var (
	_ repository.UserRepo     = (*mockUserRepo)(nil)
	_ repository.SchemaRepo   = (*mockPromptRepo)(nil)
	_ repository.TemplateRepo = (*mockPromptRepo)(nil)
)

// Test helpers and mocks
type Mocks struct {
	UserRepo   *mockUserRepo
	PromptRepo *mockPromptRepo
}

func NewMocks() *Mocks {
	return &Mocks{
		UserRepo:   &mockUserRepo{},
		PromptRepo: &mockPromptRepo{},
	}
}

// mockUserRepo keeps users in memory. CreateErr and GetErr, when set, are
// returned by the matching calls.
type mockUserRepo struct {
	mu        sync.Mutex
	Users     []*models.User
	CreateErr error
	GetErr    error
}

func (m *mockUserRepo) CreateUser(ctx context.Context, u *models.User) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.CreateErr != nil {
		return 0, m.CreateErr
	}
	stored := *u
	stored.ID = int64(len(m.Users) + 1)
	m.Users = append(m.Users, &stored)
	return stored.ID, nil
}

func (m *mockUserRepo) find(match func(*models.User) bool) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.GetErr != nil {
		return nil, m.GetErr
	}
	for _, u := range m.Users {
		if match(u) {
			cp := *u
			cp.TwoFactorBackupCodes = slices.Clone(u.TwoFactorBackupCodes)
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockUserRepo) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	return m.find(func(u *models.User) bool { return u.ID == id })
}

func (m *mockUserRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return m.find(func(u *models.User) bool { return u.Email == email })
}

func (m *mockUserRepo) update(userID int64, fn func(*models.User)) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.Users {
		if u.ID == userID {
			fn(u)
		}
	}
}

func (m *mockUserRepo) EnableTwoFactor(ctx context.Context, userID int64, secret string, backupCodes []string) error {
	m.update(userID, func(u *models.User) {
		u.TwoFactorEnabled = true
		u.TwoFactorSecret = &secret
		u.TwoFactorBackupCodes = slices.Clone(backupCodes)
	})
	return nil
}

func (m *mockUserRepo) DisableTwoFactor(ctx context.Context, userID int64) error {
	m.update(userID, func(u *models.User) {
		u.TwoFactorEnabled = false
		u.TwoFactorSecret = nil
		u.TwoFactorBackupCodes = nil
	})
	return nil
}

func (m *mockUserRepo) ConsumeBackupCode(ctx context.Context, userID int64, code string) (bool, error) {
	removed := false
	m.update(userID, func(u *models.User) {
		if i := slices.Index(u.TwoFactorBackupCodes, code); i >= 0 {
			u.TwoFactorBackupCodes = slices.Delete(u.TwoFactorBackupCodes, i, i+1)
			removed = true
		}
	})
	return removed, nil
}

func (m *mockUserRepo) CountBackupCodes(ctx context.Context, userID int64) (int, error) {
	n := 0
	m.update(userID, func(u *models.User) { n = len(u.TwoFactorBackupCodes) })
	return n, nil
}

// mockPromptRepo serves a fixed template and schema.
type mockPromptRepo struct {
	Template *models.Template
	Schema   *models.Schema
	Err      error
}

func (m *mockPromptRepo) GetTemplate(ctx context.Context, name, version string) (*models.Template, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Template != nil && m.Template.Name == name && m.Template.Version == version {
		return m.Template, nil
	}
	return nil, nil
}

func (m *mockPromptRepo) CreateSchema(ctx context.Context, version, description, schemaJSON string) (int64, error) {
	m.Schema = &models.Schema{ID: 1, Version: version, Description: description, SchemaJSON: schemaJSON}
	return 1, nil
}

func (m *mockPromptRepo) GetSchemaByVersion(ctx context.Context, version string) (*models.Schema, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Schema != nil && m.Schema.Version == version {
		return m.Schema, nil
	}
	return nil, nil
}

func (m *mockPromptRepo) ListSchemas(ctx context.Context) ([]models.Schema, error) {
	if m.Schema == nil {
		return nil, nil
	}
	return []models.Schema{*m.Schema}, nil
}
