package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/fakaperformance/contest-api/internal/core/domain"
	"github.com/fakaperformance/contest-api/internal/core/ports"
)

// ---------------------------------------------------------------------------
// Request helpers
// ---------------------------------------------------------------------------

func newEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	return e
}

func jsonContext(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return newEcho().NewContext(req, rec), rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("invalid json %q: %v", rec.Body.String(), err)
	}
}

func assertHTTPError(t *testing.T, err error, code int) {
	t.Helper()
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != code {
		t.Fatalf("expected HTTP %d error, got %v", code, err)
	}
}

func assertValidation(t *testing.T, err error, contains string) {
	t.Helper()
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if !strings.Contains(err.Error(), contains) {
		t.Fatalf("expected %q in %q", contains, err.Error())
	}
}

func mustNotCall(t *testing.T) {
	t.Helper()
	t.Fatalf("service should not be called")
}

// ---------------------------------------------------------------------------
// Service stubs
// ---------------------------------------------------------------------------

type stubAccountService struct {
	registerFn     func(ctx context.Context, username string) (*domain.User, error)
	getUserFn      func(ctx context.Context, username string) (*domain.User, error)
	saveIBANFn     func(ctx context.Context, username, iban string) (*domain.User, error)
	transactionsFn func(ctx context.Context, username string, limit int) ([]domain.Transaction, error)
}

func (s *stubAccountService) Register(ctx context.Context, username string) (*domain.User, error) {
	return s.registerFn(ctx, username)
}

func (s *stubAccountService) GetUser(ctx context.Context, username string) (*domain.User, error) {
	return s.getUserFn(ctx, username)
}

func (s *stubAccountService) SaveIBAN(ctx context.Context, username, iban string) (*domain.User, error) {
	return s.saveIBANFn(ctx, username, iban)
}

func (s *stubAccountService) ListTransactions(ctx context.Context, username string, limit int) ([]domain.Transaction, error) {
	return s.transactionsFn(ctx, username, limit)
}

type stubWalletService struct {
	depositFn  func(ctx context.Context, in ports.DepositInput) (*ports.DepositResult, error)
	withdrawFn func(ctx context.Context, in ports.WithdrawInput) (*ports.WithdrawResult, error)
}

func (s *stubWalletService) Deposit(ctx context.Context, in ports.DepositInput) (*ports.DepositResult, error) {
	return s.depositFn(ctx, in)
}

func (s *stubWalletService) Withdraw(ctx context.Context, in ports.WithdrawInput) (*ports.WithdrawResult, error) {
	return s.withdrawFn(ctx, in)
}

type stubEntryService struct {
	submitFn func(ctx context.Context, in ports.SubmitEntryInput) (*domain.Entry, error)
	cancelFn func(ctx context.Context, entryID, userID uint) (*ports.CancelEntryResult, error)
	listFn   func(ctx context.Context, week *int) (int, []domain.Entry, error)
}

func (s *stubEntryService) Submit(ctx context.Context, in ports.SubmitEntryInput) (*domain.Entry, error) {
	return s.submitFn(ctx, in)
}

func (s *stubEntryService) Cancel(ctx context.Context, entryID, userID uint) (*ports.CancelEntryResult, error) {
	return s.cancelFn(ctx, entryID, userID)
}

func (s *stubEntryService) List(ctx context.Context, week *int) (int, []domain.Entry, error) {
	return s.listFn(ctx, week)
}

type stubVoteService struct {
	castFn func(ctx context.Context, in ports.CastVoteInput) (*domain.Vote, error)
}

func (s *stubVoteService) Cast(ctx context.Context, in ports.CastVoteInput) (*domain.Vote, error) {
	return s.castFn(ctx, in)
}

type stubEditionService struct {
	listFn      func(ctx context.Context) ([]domain.Edition, error)
	publishedFn func(ctx context.Context) (*domain.Edition, error)
	upsertFn    func(ctx context.Context, edition domain.Edition) (*domain.Edition, error)
	draftFn     func(ctx context.Context) (*domain.Edition, error)
	publishFn   func(ctx context.Context, id string) (*domain.Edition, error)
	deleteFn    func(ctx context.Context, id string) error
}

func (s *stubEditionService) List(ctx context.Context) ([]domain.Edition, error) {
	return s.listFn(ctx)
}

func (s *stubEditionService) GetPublished(ctx context.Context) (*domain.Edition, error) {
	return s.publishedFn(ctx)
}

func (s *stubEditionService) Upsert(ctx context.Context, edition domain.Edition) (*domain.Edition, error) {
	return s.upsertFn(ctx, edition)
}

func (s *stubEditionService) CreateDraft(ctx context.Context) (*domain.Edition, error) {
	return s.draftFn(ctx)
}

func (s *stubEditionService) Publish(ctx context.Context, id string) (*domain.Edition, error) {
	return s.publishFn(ctx, id)
}

func (s *stubEditionService) Delete(ctx context.Context, id string) error {
	return s.deleteFn(ctx, id)
}

type stubSettingsService struct {
	getFn    func(ctx context.Context) (*domain.Settings, error)
	updateFn func(ctx context.Context, patch domain.SettingsPatch) (*domain.Settings, error)
	publicFn func(ctx context.Context) (*ports.PublicSettings, error)
}

func (s *stubSettingsService) Get(ctx context.Context) (*domain.Settings, error) {
	return s.getFn(ctx)
}

func (s *stubSettingsService) Update(ctx context.Context, patch domain.SettingsPatch) (*domain.Settings, error) {
	return s.updateFn(ctx, patch)
}

func (s *stubSettingsService) Public(ctx context.Context) (*ports.PublicSettings, error) {
	return s.publicFn(ctx)
}

type stubAdminService struct {
	verifyFn     func(ctx context.Context, password string) (string, error)
	staffTokenFn func(ctx context.Context, username string) (string, error)
	currentFn    func(ctx context.Context, username string) ([]domain.Role, error)
	listRolesFn  func(ctx context.Context) ([]domain.Role, error)
	createRoleFn func(ctx context.Context, role domain.Role) (*domain.Role, error)
	deleteRoleFn func(ctx context.Context, id uint) error
	assignFn     func(ctx context.Context, username string, roleID uint) (*domain.User, error)
	revokeFn     func(ctx context.Context, username string, roleID uint) (*domain.User, error)
}

func (s *stubAdminService) VerifyPassword(ctx context.Context, password string) (string, error) {
	return s.verifyFn(ctx, password)
}

func (s *stubAdminService) IssueStaffToken(ctx context.Context, username string) (string, error) {
	return s.staffTokenFn(ctx, username)
}

func (s *stubAdminService) CurrentRoles(ctx context.Context, username string) ([]domain.Role, error) {
	return s.currentFn(ctx, username)
}

func (s *stubAdminService) ListRoles(ctx context.Context) ([]domain.Role, error) {
	return s.listRolesFn(ctx)
}

func (s *stubAdminService) CreateRole(ctx context.Context, role domain.Role) (*domain.Role, error) {
	return s.createRoleFn(ctx, role)
}

func (s *stubAdminService) DeleteRole(ctx context.Context, id uint) error {
	return s.deleteRoleFn(ctx, id)
}

func (s *stubAdminService) AssignRole(ctx context.Context, username string, roleID uint) (*domain.User, error) {
	return s.assignFn(ctx, username, roleID)
}

func (s *stubAdminService) RevokeRole(ctx context.Context, username string, roleID uint) (*domain.User, error) {
	return s.revokeFn(ctx, username, roleID)
}
