package auth_test

import (
	"context"
	"database/sql"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/uptrace/bun"

	auth "github.com/ledgerly/backend"
)

type testLogger struct{}

func (testLogger) Debug(string, ...any) {}
func (testLogger) Info(string, ...any)  {}
func (testLogger) Warn(string, ...any)  {}
func (testLogger) Error(string, ...any) {}

// MockRepositoryManager implements auth.RepositoryManager
type MockRepositoryManager struct {
	mock.Mock
}

func (m *MockRepositoryManager) Validate() error {
	return nil
}

func (m *MockRepositoryManager) MustValidate() {}

func (m *MockRepositoryManager) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	args := m.Called(ctx, opts, f)
	return args.Error(0)
}

func (m *MockRepositoryManager) Users() auth.Users {
	return m.Called().Get(0).(auth.Users)
}

func (m *MockRepositoryManager) UserTokens() auth.UserTokens {
	return m.Called().Get(0).(auth.UserTokens)
}

func (m *MockRepositoryManager) Roles() auth.Roles {
	return m.Called().Get(0).(auth.Roles)
}

// runTx makes a RunInTx expectation actually invoke the callback with a zero
// transaction, so the code under test runs end to end.
func runTx(repo *MockRepositoryManager) *mock.Call {
	return repo.On("RunInTx", mock.Anything, (*sql.TxOptions)(nil), mock.Anything).
		Return(nil).
		Run(func(args mock.Arguments) {
			fn := args.Get(2).(func(context.Context, bun.Tx) error)
			var tx bun.Tx
			_ = fn(args.Get(0).(context.Context), tx)
		})
}

// MockUsers implements auth.Users. The embedded repository interface covers
// the generic CRUD surface; only the methods the tests exercise are mocked.
type MockUsers struct {
	mock.Mock
	repository.Repository[*auth.User]
}

func (m *MockUsers) GetByID(ctx context.Context, id string, criteria ...repository.SelectCriteria) (*auth.User, error) {
	args := m.Called(ctx, id, criteria)
	user, _ := args.Get(0).(*auth.User)
	return user, args.Error(1)
}

func (m *MockUsers) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	args := m.Called(ctx, email)
	user, _ := args.Get(0).(*auth.User)
	return user, args.Error(1)
}

func (m *MockUsers) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*auth.User, error) {
	args := m.Called(ctx, tx, email)
	user, _ := args.Get(0).(*auth.User)
	return user, args.Error(1)
}

func (m *MockUsers) Register(ctx context.Context, user *auth.User) (*auth.User, error) {
	args := m.Called(ctx, user)
	created, _ := args.Get(0).(*auth.User)
	return created, args.Error(1)
}

func (m *MockUsers) RegisterTx(ctx context.Context, tx bun.IDB, user *auth.User) (*auth.User, error) {
	args := m.Called(ctx, tx, user)
	created, _ := args.Get(0).(*auth.User)
	return created, args.Error(1)
}

func (m *MockUsers) TrackSuccessfulLogin(ctx context.Context, user *auth.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUsers) TrackSuccessfulLoginTx(ctx context.Context, tx bun.IDB, user *auth.User) error {
	return m.Called(ctx, tx, user).Error(0)
}

func (m *MockUsers) ActivateTx(ctx context.Context, tx bun.IDB, user *auth.User, roleName string) error {
	return m.Called(ctx, tx, user, roleName).Error(0)
}

func (m *MockUsers) SetPassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	return m.Called(ctx, id, passwordHash).Error(0)
}

func (m *MockUsers) SetPasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string) error {
	return m.Called(ctx, tx, id, passwordHash).Error(0)
}

func (m *MockUsers) GetWithActiveRoleGraph(ctx context.Context, id uuid.UUID) (*auth.User, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*auth.User)
	return user, args.Error(1)
}

func (m *MockUsers) GetWithRecoveryGrant(ctx context.Context, email, moduleName, permissionName string) (*auth.User, bool, error) {
	args := m.Called(ctx, email, moduleName, permissionName)
	user, _ := args.Get(0).(*auth.User)
	return user, args.Bool(1), args.Error(2)
}

// MockUserTokens implements auth.UserTokens
type MockUserTokens struct {
	mock.Mock
	repository.Repository[*auth.UserToken]
}

func (m *MockUserTokens) Replace(ctx context.Context, userID uuid.UUID, purpose auth.TokenPurpose, token string, expiresAt time.Time) (*auth.UserToken, error) {
	args := m.Called(ctx, userID, purpose, token, expiresAt)
	record, _ := args.Get(0).(*auth.UserToken)
	return record, args.Error(1)
}

func (m *MockUserTokens) ReplaceTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, purpose auth.TokenPurpose, token string, expiresAt time.Time) (*auth.UserToken, error) {
	args := m.Called(ctx, tx, userID, purpose, token, expiresAt)
	record, _ := args.Get(0).(*auth.UserToken)
	return record, args.Error(1)
}

func (m *MockUserTokens) Find(ctx context.Context, userID uuid.UUID, token string, purpose auth.TokenPurpose) (*auth.UserToken, error) {
	args := m.Called(ctx, userID, token, purpose)
	record, _ := args.Get(0).(*auth.UserToken)
	return record, args.Error(1)
}

func (m *MockUserTokens) ExistsForPurpose(ctx context.Context, userID uuid.UUID, purpose auth.TokenPurpose) (bool, error) {
	args := m.Called(ctx, userID, purpose)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserTokens) DeleteForPurpose(ctx context.Context, userID uuid.UUID, purpose auth.TokenPurpose) error {
	return m.Called(ctx, userID, purpose).Error(0)
}

func (m *MockUserTokens) DeleteForPurposeTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, purpose auth.TokenPurpose) error {
	return m.Called(ctx, tx, userID, purpose).Error(0)
}

func (m *MockUserTokens) Consume(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockUserTokens) ConsumeTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	return m.Called(ctx, tx, id).Error(0)
}

// MockRoles implements auth.Roles
type MockRoles struct {
	mock.Mock
	repository.Repository[*auth.Role]
}

func (m *MockRoles) GetByName(ctx context.Context, name string) (*auth.Role, error) {
	args := m.Called(ctx, name)
	role, _ := args.Get(0).(*auth.Role)
	return role, args.Error(1)
}

func (m *MockRoles) GetActiveGraphByName(ctx context.Context, name string) (*auth.Role, error) {
	args := m.Called(ctx, name)
	role, _ := args.Get(0).(*auth.Role)
	return role, args.Error(1)
}

// MockEmailSender implements auth.EmailSender
type MockEmailSender struct {
	mock.Mock
}

func (m *MockEmailSender) SendAccountConfirmation(ctx context.Context, email, firstName, token string) error {
	return m.Called(ctx, email, firstName, token).Error(0)
}

func (m *MockEmailSender) SendPasswordReset(ctx context.Context, email, firstName, token string) error {
	return m.Called(ctx, email, firstName, token).Error(0)
}
