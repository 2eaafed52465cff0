package services

import (
	"errors"
	"testing"
	"time"

	"github.com/benwaldman33/gold-drop-production-tracker/internal/models"

	"golang.org/x/crypto/bcrypt"
)

type authFixture struct {
	svc       AuthService
	authRepo  *mockAuthRepo
	auditRepo *mockAuditRepo
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	authRepo := newMockAuthRepo()
	auditRepo := newMockAuditRepo()
	return &authFixture{
		svc:       NewAuthService(authRepo, auditRepo, newTestDB(t), "test-secret", time.Hour),
		authRepo:  authRepo,
		auditRepo: auditRepo,
	}
}

func (f *authFixture) seedUser(t *testing.T, username, password, role string, active bool) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hashing: %v", err)
	}
	return f.authRepo.add(models.User{
		Username:     username,
		PasswordHash: string(hash),
		DisplayName:  username,
		Role:         role,
		IsActive:     active,
	})
}

func TestRegisterUserDefaultsToViewer(t *testing.T) {
	f := newAuthFixture(t)

	user, err := f.svc.RegisterUser(models.RegistrationPayload{
		Username:    "newbie",
		Password:    "password123",
		DisplayName: "New User",
	}, iptr(1))
	if err != nil {
		t.Fatalf("RegisterUser: %v", err)
	}
	if user.Role != models.RoleViewer {
		t.Errorf("role = %q, want viewer", user.Role)
	}
	if !user.IsActive {
		t.Error("new users should start active")
	}
	if user.PasswordHash != "" {
		t.Error("password hash must not leave the service")
	}
	stored := f.authRepo.users[user.ID]
	if stored.PasswordHash == "" || stored.PasswordHash == "password123" {
		t.Error("stored password must be hashed")
	}
}

func TestRegisterUserRejectsDuplicateUsername(t *testing.T) {
	f := newAuthFixture(t)
	f.seedUser(t, "taken", "password123", models.RoleUser, true)

	_, err := f.svc.RegisterUser(models.RegistrationPayload{
		Username: "taken", Password: "password123", DisplayName: "X",
	}, nil)
	if !errors.Is(err, ErrUsernameExists) {
		t.Fatalf("expected ErrUsernameExists, got %v", err)
	}
}

func TestRegisterUserRejectsInvalidRole(t *testing.T) {
	f := newAuthFixture(t)
	_, err := f.svc.RegisterUser(models.RegistrationPayload{
		Username: "x", Password: "password123", DisplayName: "X", Role: "owner",
	}, nil)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestLoginUserIssuesToken(t *testing.T) {
	f := newAuthFixture(t)
	f.seedUser(t, "alice", "correct horse", models.RoleUser, true)

	resp, err := f.svc.LoginUser(models.Credentials{Username: "alice", Password: "correct horse"})
	if err != nil {
		t.Fatalf("LoginUser: %v", err)
	}
	if resp.AccessToken == "" {
		t.Error("expected a signed access token")
	}
	if resp.User.PasswordHash != "" {
		t.Error("password hash must not leave the service")
	}
}

func TestLoginUserRejectsBadCredentials(t *testing.T) {
	f := newAuthFixture(t)
	f.seedUser(t, "alice", "correct horse", models.RoleUser, true)
	f.seedUser(t, "gone", "correct horse", models.RoleUser, false)

	tests := []struct {
		name string
		req  models.Credentials
	}{
		{"wrong password", models.Credentials{Username: "alice", Password: "wrong"}},
		{"unknown user", models.Credentials{Username: "nobody", Password: "correct horse"}},
		{"inactive account", models.Credentials{Username: "gone", Password: "correct horse"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.svc.LoginUser(tt.req); !errors.Is(err, ErrInvalidCredentials) {
				t.Fatalf("expected ErrInvalidCredentials, got %v", err)
			}
		})
	}
}

func TestUpdateUserBlocksSelfDeactivation(t *testing.T) {
	f := newAuthFixture(t)
	admin := f.seedUser(t, "admin", "password123", models.RoleSuperAdmin, true)

	_, err := f.svc.UpdateUser(admin.ID, UpdateUserRequest{IsActive: bptr(false)}, admin.ID)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if !f.authRepo.users[admin.ID].IsActive {
		t.Error("account must stay active")
	}
}

func TestUpdateUserProtectsLastSuperAdmin(t *testing.T) {
	f := newAuthFixture(t)
	admin := f.seedUser(t, "admin", "password123", models.RoleSuperAdmin, true)
	other := f.seedUser(t, "other", "password123", models.RoleUser, true)

	if _, err := f.svc.UpdateUser(admin.ID, UpdateUserRequest{Role: sptr(models.RoleUser)}, other.ID); !errors.Is(err, ErrValidation) {
		t.Fatalf("demote: expected ErrValidation, got %v", err)
	}
	if _, err := f.svc.UpdateUser(admin.ID, UpdateUserRequest{IsActive: bptr(false)}, other.ID); !errors.Is(err, ErrValidation) {
		t.Fatalf("disable: expected ErrValidation, got %v", err)
	}

	// With a second active super admin the demotion goes through.
	f.seedUser(t, "backup", "password123", models.RoleSuperAdmin, true)
	updated, err := f.svc.UpdateUser(admin.ID, UpdateUserRequest{Role: sptr(models.RoleUser)}, other.ID)
	if err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	if updated.Role != models.RoleUser {
		t.Errorf("role = %q, want user", updated.Role)
	}
}

func TestUpdateUserDeactivationRecordsAuditAction(t *testing.T) {
	f := newAuthFixture(t)
	f.seedUser(t, "admin", "password123", models.RoleSuperAdmin, true)
	target := f.seedUser(t, "bob", "password123", models.RoleUser, true)

	if _, err := f.svc.UpdateUser(target.ID, UpdateUserRequest{IsActive: bptr(false)}, 1); err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	last := f.auditRepo.events[len(f.auditRepo.events)-1]
	if last.Action != models.AuditActionDeactivate {
		t.Errorf("audit action = %q, want deactivate", last.Action)
	}
	if last.EntityType != "user" || last.EntityID != target.ID {
		t.Errorf("audit target = %s/%d", last.EntityType, last.EntityID)
	}
}

func TestChangePasswordVerifiesCurrent(t *testing.T) {
	f := newAuthFixture(t)
	user := f.seedUser(t, "alice", "old password", models.RoleUser, true)

	if err := f.svc.ChangePassword(user.ID, ChangePasswordRequest{
		CurrentPassword: "wrong", NewPassword: "new password",
	}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	if err := f.svc.ChangePassword(user.ID, ChangePasswordRequest{
		CurrentPassword: "old password", NewPassword: "short",
	}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for short password, got %v", err)
	}

	if err := f.svc.ChangePassword(user.ID, ChangePasswordRequest{
		CurrentPassword: "old password", NewPassword: "new password",
	}); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}
	if _, err := f.svc.LoginUser(models.Credentials{Username: "alice", Password: "new password"}); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
	if _, err := f.svc.LoginUser(models.Credentials{Username: "alice", Password: "old password"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("old password should stop working, got %v", err)
	}
}

func TestEnsureAdminUserBootstrapsOnce(t *testing.T) {
	f := newAuthFixture(t)

	if err := f.svc.EnsureAdminUser("admin", "bootstrap-pass"); err != nil {
		t.Fatalf("EnsureAdminUser: %v", err)
	}
	admin, err := f.authRepo.FindUserByUsername("admin")
	if err != nil {
		t.Fatalf("admin not created: %v", err)
	}
	if admin.Role != models.RoleSuperAdmin || !admin.IsActive {
		t.Fatalf("admin = %+v, want active super admin", admin)
	}

	// Second boot is a no-op.
	if err := f.svc.EnsureAdminUser("admin", "different-pass"); err != nil {
		t.Fatalf("EnsureAdminUser second run: %v", err)
	}
	if len(f.authRepo.users) != 1 {
		t.Fatalf("users = %d, want 1", len(f.authRepo.users))
	}
	if _, err := f.svc.LoginUser(models.Credentials{Username: "admin", Password: "bootstrap-pass"}); err != nil {
		t.Fatalf("original bootstrap password should still work: %v", err)
	}
}

func TestEnsureAdminUserSkipsWhenUsernameTaken(t *testing.T) {
	f := newAuthFixture(t)
	f.seedUser(t, "admin", "password123", models.RoleViewer, true)

	if err := f.svc.EnsureAdminUser("admin", "bootstrap-pass"); err != nil {
		t.Fatalf("EnsureAdminUser: %v", err)
	}
	if f.authRepo.users[1].Role != models.RoleViewer {
		t.Error("existing account must not be promoted")
	}
}
