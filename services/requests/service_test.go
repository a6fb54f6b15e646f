package requests

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/tradedesk/models"
	"github.com/upb/tradedesk/repositories"
	"github.com/upb/tradedesk/services"
	"go.uber.org/zap"
)

type MockUserRepository struct {
	mock.Mock
	repositories.UserRepository
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	if u := args.Get(0); u != nil {
		return u.(*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockRequestRepository struct {
	mock.Mock
}

func (m *MockRequestRepository) Create(ctx context.Context, req *models.TransactionRequest) error {
	return m.Called(ctx, req).Error(0)
}

func (m *MockRequestRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.TransactionRequest, error) {
	args := m.Called(ctx, id)
	if r := args.Get(0); r != nil {
		return r.(*models.TransactionRequest), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRequestRepository) GetByUserID(ctx context.Context, userID string, limit, offset int) ([]*models.TransactionRequest, error) {
	args := m.Called(ctx, userID, limit, offset)
	if r := args.Get(0); r != nil {
		return r.([]*models.TransactionRequest), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRequestRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.RequestStatus, reviewedBy string) error {
	return m.Called(ctx, id, status, reviewedBy).Error(0)
}

type MockAssetRepository struct {
	mock.Mock
}

func (m *MockAssetRepository) GetByUserID(ctx context.Context, userID string) ([]*models.Asset, error) {
	args := m.Called(ctx, userID)
	if a := args.Get(0); a != nil {
		return a.([]*models.Asset), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAssetRepository) AdjustQuantity(ctx context.Context, userID, symbol string, delta float64) error {
	return m.Called(ctx, userID, symbol, delta).Error(0)
}

// fakeTx records how the transaction ended
type fakeTx struct {
	ctx        context.Context
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Commit() error            { t.committed = true; return nil }
func (t *fakeTx) Rollback() error          { t.rolledBack = true; return nil }
func (t *fakeTx) Context() context.Context { return t.ctx }

type fakeTxManager struct {
	last *fakeTx
}

func (m *fakeTxManager) Begin(ctx context.Context) (repositories.Transaction, error) {
	m.last = &fakeTx{ctx: ctx}
	return m.last, nil
}

func (m *fakeTxManager) InTransaction(ctx context.Context, fn func(ctx context.Context, tx repositories.Transaction) error) error {
	return services.WithTransaction(ctx, m, fn)
}

type fixture struct {
	svc      *Service
	users    *MockUserRepository
	requests *MockRequestRepository
	assets   *MockAssetRepository
	txMgr    *fakeTxManager
}

func newFixture() *fixture {
	f := &fixture{
		users:    new(MockUserRepository),
		requests: new(MockRequestRepository),
		assets:   new(MockAssetRepository),
		txMgr:    &fakeTxManager{},
	}
	repos := &repositories.Repositories{
		Users:               f.users,
		TransactionRequests: f.requests,
		Assets:              f.assets,
	}
	f.svc = NewService(repos, f.txMgr, zap.NewNop())
	return f
}

func TestCreate(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		kyc       models.KYCStatus
		txType    models.TransactionType
		wantErrFn func(error) bool
	}{
		{"verified buy", models.KYCStatusVerified, models.TransactionTypeBuy, nil},
		{"verified withdrawal", models.KYCStatusVerified, models.TransactionTypeWithdrawal, nil},
		{"pending deposit", models.KYCStatusPending, models.TransactionTypeDeposit, nil},
		{"pending buy", models.KYCStatusPending, models.TransactionTypeBuy, services.IsForbiddenError},
		{"submitted sell", models.KYCStatusSubmitted, models.TransactionTypeSell, services.IsForbiddenError},
		{"rejected withdrawal", models.KYCStatusRejected, models.TransactionTypeWithdrawal, services.IsForbiddenError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.users.On("GetByID", ctx, "user-1").Return(&models.User{ID: "user-1", KYCStatus: tt.kyc}, nil)
			f.requests.On("Create", ctx, mock.AnythingOfType("*models.TransactionRequest")).Return(nil).Maybe()

			input := &models.CreateTransactionRequestInput{Type: tt.txType, Asset: "BTC", Amount: 1.5}
			req, err := f.svc.Create(ctx, "user-1", input)

			if tt.wantErrFn != nil {
				require.Error(t, err)
				assert.True(t, tt.wantErrFn(err))
				assert.Equal(t, string(tt.kyc), services.GetErrorDetails(err)["kyc_status"])
				f.requests.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, "user-1", req.UserID)
			assert.Equal(t, tt.txType, req.Type)
			assert.Equal(t, models.RequestStatusPending, req.Status)
			assert.Empty(t, req.ReviewedBy)
		})
	}
}

func TestCreate_UnknownUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.users.On("GetByID", ctx, "user-1").Return(nil, repositories.ErrNotFound)

	_, err := f.svc.Create(ctx, "user-1", &models.CreateTransactionRequestInput{Type: models.TransactionTypeDeposit, Asset: "USD", Amount: 10})
	assert.True(t, services.IsNotFoundError(err))
}

func TestList_ClampsPaging(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		limit, offset         int
		wantLimit, wantOffset int
	}{
		{0, 0, DefaultPageSize, 0},
		{-3, -1, DefaultPageSize, 0},
		{20, 40, 20, 40},
		{500, 0, MaxPageSize, 0},
	}

	for _, tt := range tests {
		f := newFixture()
		f.requests.On("GetByUserID", ctx, "user-1", tt.wantLimit, tt.wantOffset).
			Return([]*models.TransactionRequest{}, nil)

		reqs, err := f.svc.List(ctx, "user-1", tt.limit, tt.offset)
		require.NoError(t, err)
		assert.Empty(t, reqs)
		f.requests.AssertExpectations(t)
	}
}

func pendingRequest(txType models.TransactionType) *models.TransactionRequest {
	return models.NewTransactionRequest("user-1", txType, "BTC", 2, "")
}

func TestUpdateStatus_ApproveAdjustsHoldings(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		txType    models.TransactionType
		wantDelta float64
	}{
		{models.TransactionTypeBuy, 2},
		{models.TransactionTypeDeposit, 2},
		{models.TransactionTypeSell, -2},
		{models.TransactionTypeWithdrawal, -2},
	}

	for _, tt := range tests {
		t.Run(string(tt.txType), func(t *testing.T) {
			f := newFixture()
			req := pendingRequest(tt.txType)
			f.requests.On("GetByID", ctx, req.ID).Return(req, nil)
			f.assets.On("AdjustQuantity", ctx, "user-1", "BTC", tt.wantDelta).Return(nil)
			f.requests.On("UpdateStatus", ctx, req.ID, models.RequestStatusApproved, "admin-1").Return(nil)

			got, err := f.svc.UpdateStatus(ctx, "admin-1", req.ID, models.RequestStatusApproved)
			require.NoError(t, err)
			assert.Equal(t, models.RequestStatusApproved, got.Status)
			assert.Equal(t, "admin-1", got.ReviewedBy)
			assert.True(t, f.txMgr.last.committed)
			f.assets.AssertExpectations(t)
		})
	}
}

func TestUpdateStatus_RejectLeavesHoldings(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	req := pendingRequest(models.TransactionTypeBuy)
	f.requests.On("GetByID", ctx, req.ID).Return(req, nil)
	f.requests.On("UpdateStatus", ctx, req.ID, models.RequestStatusRejected, "admin-1").Return(nil)

	got, err := f.svc.UpdateStatus(ctx, "admin-1", req.ID, models.RequestStatusRejected)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusRejected, got.Status)
	f.assets.AssertNotCalled(t, "AdjustQuantity", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateStatus_AlreadyReviewed(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	req := pendingRequest(models.TransactionTypeBuy)
	req.Status = models.RequestStatusApproved
	f.requests.On("GetByID", ctx, req.ID).Return(req, nil)

	_, err := f.svc.UpdateStatus(ctx, "admin-1", req.ID, models.RequestStatusRejected)
	assert.ErrorIs(t, err, services.ErrRequestAlreadyReviewed)
	assert.Equal(t, "approved", services.GetErrorDetails(err)["status"])
	assert.True(t, f.txMgr.last.rolledBack)
	f.requests.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateStatus_InsufficientHoldings(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	req := pendingRequest(models.TransactionTypeSell)
	f.requests.On("GetByID", ctx, req.ID).Return(req, nil)
	f.assets.On("AdjustQuantity", ctx, "user-1", "BTC", -2.0).Return(repositories.ErrInsufficientQuantity)

	_, err := f.svc.UpdateStatus(ctx, "admin-1", req.ID, models.RequestStatusApproved)
	assert.True(t, services.IsConflictError(err))
	assert.True(t, f.txMgr.last.rolledBack)
	f.requests.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateStatus_NotFound(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	id := uuid.New()
	f.requests.On("GetByID", ctx, id).Return(nil, repositories.ErrNotFound)

	_, err := f.svc.UpdateStatus(ctx, "admin-1", id, models.RequestStatusApproved)
	assert.ErrorIs(t, err, services.ErrRequestNotFound)
}

func TestUpdateStatus_InvalidStatus(t *testing.T) {
	f := newFixture()

	_, err := f.svc.UpdateStatus(context.Background(), "admin-1", uuid.New(), models.RequestStatusPending)
	assert.True(t, services.IsValidationError(err))
	assert.Nil(t, f.txMgr.last, "no transaction should start")
}

func TestUpdateStatus_UpdateFailureIsInternal(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	req := pendingRequest(models.TransactionTypeDeposit)
	f.requests.On("GetByID", ctx, req.ID).Return(req, nil)
	f.assets.On("AdjustQuantity", ctx, "user-1", "BTC", 2.0).Return(nil)
	f.requests.On("UpdateStatus", ctx, req.ID, models.RequestStatusApproved, "admin-1").Return(errors.New("deadlock"))

	_, err := f.svc.UpdateStatus(ctx, "admin-1", req.ID, models.RequestStatusApproved)
	assert.True(t, services.IsInternalError(err))
	assert.True(t, f.txMgr.last.rolledBack)
}

type recordingAuditor struct {
	events []*models.AuditEvent
}

func (r *recordingAuditor) Record(e *models.AuditEvent) error {
	r.events = append(r.events, e)
	return nil
}

func TestAuditTrail(t *testing.T) {
	ctx := context.Background()

	t.Run("submission", func(t *testing.T) {
		f := newFixture()
		a := &recordingAuditor{}
		f.svc.WithAuditor(a)
		f.users.On("GetByID", ctx, "user-1").Return(&models.User{ID: "user-1", KYCStatus: models.KYCStatusVerified}, nil)
		f.requests.On("Create", ctx, mock.Anything).Return(nil)

		req, err := f.svc.Create(ctx, "user-1", &models.CreateTransactionRequestInput{Type: models.TransactionTypeBuy, Asset: "ETH", Amount: 3})
		require.NoError(t, err)

		require.Len(t, a.events, 1)
		assert.Equal(t, "user-1", a.events[0].Actor)
		assert.Equal(t, models.AuditActionRequestCreated, a.events[0].Action)
		assert.Equal(t, req.ID.String(), a.events[0].ResourceID)
	})

	t.Run("committed decision", func(t *testing.T) {
		f := newFixture()
		a := &recordingAuditor{}
		f.svc.WithAuditor(a)
		req := pendingRequest(models.TransactionTypeBuy)
		f.requests.On("GetByID", ctx, req.ID).Return(req, nil)
		f.requests.On("UpdateStatus", ctx, req.ID, models.RequestStatusRejected, "admin-1").Return(nil)

		_, err := f.svc.UpdateStatus(ctx, "admin-1", req.ID, models.RequestStatusRejected)
		require.NoError(t, err)

		require.Len(t, a.events, 1)
		assert.Equal(t, "admin-1", a.events[0].Actor)
		assert.Equal(t, models.AuditActionRequestRejected, a.events[0].Action)
		assert.JSONEq(t, `{"owner":"user-1","type":"buy","asset":"BTC","amount":2}`, string(a.events[0].Details))
	})

	t.Run("rolled back decision is not recorded", func(t *testing.T) {
		f := newFixture()
		a := &recordingAuditor{}
		f.svc.WithAuditor(a)
		req := pendingRequest(models.TransactionTypeSell)
		f.requests.On("GetByID", ctx, req.ID).Return(req, nil)
		f.assets.On("AdjustQuantity", ctx, "user-1", "BTC", float64(-2)).Return(repositories.ErrInsufficientQuantity)

		_, err := f.svc.UpdateStatus(ctx, "admin-1", req.ID, models.RequestStatusApproved)
		require.Error(t, err)
		assert.Empty(t, a.events)
	})
}
