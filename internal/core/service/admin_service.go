package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/fakaperformance/contest-api/internal/core/domain"
	"github.com/fakaperformance/contest-api/internal/core/ports"
	"github.com/fakaperformance/contest-api/internal/pkg/session"
)

// AdminService implements admin login, staff tokens and role management.
type AdminService struct {
	users        ports.UserRepository
	roles        ports.RoleRepository
	passwordHash []byte
	jwtSecret    string
	tokenTTL     time.Duration
	log          zerolog.Logger
}

// NewAdminService hashes adminPassword once; an empty password disables
// admin login.
func NewAdminService(
	users ports.UserRepository,
	roles ports.RoleRepository,
	adminPassword, jwtSecret string,
	tokenTTL time.Duration,
	log zerolog.Logger,
) (*AdminService, error) {
	if tokenTTL <= 0 {
		tokenTTL = 12 * time.Hour
	}
	s := &AdminService{users: users, roles: roles, jwtSecret: jwtSecret, tokenTTL: tokenTTL, log: log}
	if adminPassword != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash admin password: %w", err)
		}
		s.passwordHash = hash
	}
	return s, nil
}

// VerifyPassword checks the admin password and returns an admin token.
func (s *AdminService) VerifyPassword(_ context.Context, password string) (string, error) {
	if len(s.passwordHash) == 0 || password == "" {
		return "", domain.ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password)) != nil {
		s.log.Warn().Msg("admin login rejected")
		return "", domain.ErrInvalidCredentials
	}

	token, err := session.Sign(s.jwtSecret, domain.Principal{
		Subject: domain.AdminSubject,
		Roles:   []domain.Role{{Name: domain.RoleAdmin}},
	}, s.tokenTTL)
	if err != nil {
		return "", err
	}
	s.log.Info().Msg("admin session issued")
	return token, nil
}

// IssueStaffToken returns a token carrying the roles of a staff member.
func (s *AdminService) IssueStaffToken(ctx context.Context, username string) (string, error) {
	user, err := s.findUser(ctx, username)
	if err != nil {
		return "", err
	}
	if !domain.IsStaff(user.Roles) {
		return "", fmt.Errorf("%w: %s has no staff role", domain.ErrForbidden, user.Username)
	}

	token, err := session.Sign(s.jwtSecret, domain.Principal{Subject: user.Username, Roles: user.Roles}, s.tokenTTL)
	if err != nil {
		return "", err
	}
	s.log.Info().Str("username", user.Username).Msg("staff session issued")
	return token, nil
}

// CurrentRoles returns the roles username holds now, so that revocations
// apply to tokens already issued.
func (s *AdminService) CurrentRoles(ctx context.Context, username string) ([]domain.Role, error) {
	user, err := s.findUser(ctx, username)
	if err != nil {
		return nil, err
	}
	return user.Roles, nil
}

func (s *AdminService) ListRoles(ctx context.Context) ([]domain.Role, error) {
	roles, err := s.roles.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	return roles, nil
}

func (s *AdminService) CreateRole(ctx context.Context, role domain.Role) (*domain.Role, error) {
	role.ID = 0
	role.Name = strings.TrimSpace(role.Name)
	if role.Permissions == nil {
		role.Permissions = []string{}
	}
	if err := role.Validate(); err != nil {
		return nil, err
	}
	if err := s.roles.Create(ctx, &role); err != nil {
		return nil, fmt.Errorf("create role: %w", err)
	}
	s.log.Info().Str("role", role.Name).Strs("permissions", role.Permissions).Msg("role created")
	return &role, nil
}

func (s *AdminService) DeleteRole(ctx context.Context, id uint) error {
	if err := s.roles.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete role: %w", err)
	}
	s.log.Info().Uint("role_id", id).Msg("role deleted")
	return nil
}

func (s *AdminService) AssignRole(ctx context.Context, username string, roleID uint) (*domain.User, error) {
	user, err := s.findUser(ctx, username)
	if err != nil {
		return nil, err
	}
	if err := s.users.AddRole(ctx, user.ID, roleID); err != nil {
		return nil, fmt.Errorf("assign role: %w", err)
	}
	s.log.Info().Str("username", user.Username).Uint("role_id", roleID).Msg("role assigned")
	return s.users.FindByID(ctx, user.ID)
}

func (s *AdminService) RevokeRole(ctx context.Context, username string, roleID uint) (*domain.User, error) {
	user, err := s.findUser(ctx, username)
	if err != nil {
		return nil, err
	}
	if err := s.users.RemoveRole(ctx, user.ID, roleID); err != nil {
		return nil, fmt.Errorf("revoke role: %w", err)
	}
	s.log.Info().Str("username", user.Username).Uint("role_id", roleID).Msg("role revoked")
	return s.users.FindByID(ctx, user.ID)
}

func (s *AdminService) findUser(ctx context.Context, username string) (*domain.User, error) {
	user, err := s.users.FindByUsername(ctx, domain.NormalizeUsername(username))
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}
