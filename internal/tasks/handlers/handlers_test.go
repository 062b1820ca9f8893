package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/railzwaylabs/partnerops/internal/mailinglist"
	partnerdomain "github.com/railzwaylabs/partnerops/internal/partner/domain"
	"github.com/railzwaylabs/partnerops/internal/tapfiliate"
	"github.com/railzwaylabs/partnerops/internal/tasks/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type networkMock struct {
	mock.Mock
}

func (m *networkMock) CreateAffiliate(ctx context.Context, input tapfiliate.CreateAffiliateInput) (string, error) {
	args := m.Called(ctx, input)
	return args.String(0), args.Error(1)
}

func (m *networkMock) AddAffiliateToProgram(ctx context.Context, programID, affiliateID, referralCode string) error {
	return m.Called(ctx, programID, affiliateID, referralCode).Error(0)
}

type linkerMock struct {
	mock.Mock
}

func (m *linkerMock) LinkAffiliate(ctx context.Context, partnerID string, affiliateID string) (*partnerdomain.Partner, error) {
	args := m.Called(ctx, partnerID, affiliateID)
	p, _ := args.Get(0).(*partnerdomain.Partner)
	return p, args.Error(1)
}

type mailingMock struct {
	mock.Mock
}

func (m *mailingMock) Subscribe(ctx context.Context, sub mailinglist.Subscriber) error {
	return m.Called(ctx, sub).Error(0)
}

func task(t *testing.T, taskType string, payload any) domain.Task {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return domain.Task{ID: "01J0000000000000000000000", Type: taskType, Payload: raw, Attempt: 1}
}

type enqueuerStub struct {
	tasks []domain.Task
	err   error
}

func (e *enqueuerStub) Enqueue(_ context.Context, taskType string, payload any) (string, error) {
	if e.err != nil {
		return "", e.err
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	t := domain.Task{ID: "01J0000000000000000000001", Type: taskType, Payload: raw}
	e.tasks = append(e.tasks, t)
	return t.ID, nil
}

func TestCreateAffiliateQueuesEnroll(t *testing.T) {
	network := new(networkMock)
	linker := new(linkerMock)
	tasks := &enqueuerStub{}
	h := New("prog-1", network, linker, new(mailingMock), tasks, zap.NewNop())

	network.On("CreateAffiliate", mock.Anything, tapfiliate.CreateAffiliateInput{
		FirstName: "Ana", LastName: "Silva", Email: "ana@example.com",
	}).Return("ana-1", nil).Once()

	err := h.CreateAffiliate(context.Background(), task(t, domain.TypeCreateAffiliate, domain.CreateAffiliatePayload{
		PartnerID:    "42",
		Email:        "ana@example.com",
		FirstName:    "Ana",
		LastName:     "Silva",
		ReferralCode: "ana-silva-x1",
		Source:       "application",
	}))
	require.NoError(t, err)

	require.Len(t, tasks.tasks, 1)
	require.Equal(t, domain.TypeEnrollAffiliate, tasks.tasks[0].Type)
	require.JSONEq(t, `{"affiliate_id":"ana-1","partner_id":"42","referral_code":"ana-silva-x1","source":"application"}`, string(tasks.tasks[0].Payload))
	network.AssertNotCalled(t, "AddAffiliateToProgram", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	linker.AssertNotCalled(t, "LinkAffiliate", mock.Anything, mock.Anything, mock.Anything)
}

func TestEnrollRetryDoesNotCreateAgain(t *testing.T) {
	network := new(networkMock)
	linker := new(linkerMock)
	tasks := &enqueuerStub{}
	h := New("prog-1", network, linker, new(mailingMock), tasks, zap.NewNop())

	network.On("CreateAffiliate", mock.Anything, mock.Anything).Return("ana-1", nil).Once()
	linker.On("LinkAffiliate", mock.Anything, "42", "ana-1").Return(&partnerdomain.Partner{}, nil).Twice()
	network.On("AddAffiliateToProgram", mock.Anything, "prog-1", "ana-1", "ana-x1").
		Return(&tapfiliate.StatusError{Method: "POST", Path: "/programs/prog-1/affiliates/", StatusCode: 503}).Once()
	network.On("AddAffiliateToProgram", mock.Anything, "prog-1", "ana-1", "ana-x1").Return(nil).Once()

	err := h.CreateAffiliate(context.Background(), task(t, domain.TypeCreateAffiliate, domain.CreateAffiliatePayload{
		PartnerID:    "42",
		Email:        "ana@example.com",
		ReferralCode: "ana-x1",
	}))
	require.NoError(t, err)
	require.Len(t, tasks.tasks, 1)

	enroll := tasks.tasks[0]
	enroll.Attempt = 1
	err = h.EnrollAffiliate(context.Background(), enroll)
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrPermanent)

	enroll.Attempt = 2
	require.NoError(t, h.EnrollAffiliate(context.Background(), enroll))

	network.AssertNumberOfCalls(t, "CreateAffiliate", 1)
	network.AssertExpectations(t)
	linker.AssertExpectations(t)
}

func TestEnrollForCustomerSkipsLink(t *testing.T) {
	network := new(networkMock)
	linker := new(linkerMock)
	h := New("", network, linker, new(mailingMock), &enqueuerStub{}, zap.NewNop())

	err := h.EnrollAffiliate(context.Background(), task(t, domain.TypeEnrollAffiliate, domain.EnrollAffiliatePayload{
		AffiliateID: "cust-1",
		Source:      "stripe_checkout",
	}))
	require.NoError(t, err)
	network.AssertNotCalled(t, "AddAffiliateToProgram", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	linker.AssertNotCalled(t, "LinkAffiliate", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateAffiliateErrors(t *testing.T) {
	network := new(networkMock)
	tasks := &enqueuerStub{}
	h := New("prog-1", network, new(linkerMock), new(mailingMock), tasks, zap.NewNop())

	err := h.CreateAffiliate(context.Background(), domain.Task{Payload: []byte("{")})
	assert.ErrorIs(t, err, domain.ErrPermanent)

	err = h.CreateAffiliate(context.Background(), task(t, domain.TypeCreateAffiliate, domain.CreateAffiliatePayload{}))
	assert.ErrorIs(t, err, domain.ErrPermanent)

	network.On("CreateAffiliate", mock.Anything, mock.Anything).Return("", errors.New("timeout")).Once()
	err = h.CreateAffiliate(context.Background(), task(t, domain.TypeCreateAffiliate, domain.CreateAffiliatePayload{Email: "a@b.c"}))
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrPermanent)

	network.On("CreateAffiliate", mock.Anything, mock.Anything).Return("", tapfiliate.ErrNotConfigured).Once()
	err = h.CreateAffiliate(context.Background(), task(t, domain.TypeCreateAffiliate, domain.CreateAffiliatePayload{Email: "a@b.c"}))
	assert.ErrorIs(t, err, domain.ErrPermanent)

	tasks.err = domain.ErrQueueFull
	network.On("CreateAffiliate", mock.Anything, mock.Anything).Return("x-1", nil).Once()
	err = h.CreateAffiliate(context.Background(), task(t, domain.TypeCreateAffiliate, domain.CreateAffiliatePayload{Email: "a@b.c"}))
	assert.ErrorIs(t, err, domain.ErrPermanent)
	assert.ErrorIs(t, err, domain.ErrQueueFull)
	assert.Contains(t, err.Error(), "x-1")
}

func TestEnrollAffiliateErrors(t *testing.T) {
	network := new(networkMock)
	linker := new(linkerMock)
	h := New("prog-1", network, linker, new(mailingMock), &enqueuerStub{}, zap.NewNop())

	err := h.EnrollAffiliate(context.Background(), task(t, domain.TypeEnrollAffiliate, domain.EnrollAffiliatePayload{}))
	assert.ErrorIs(t, err, domain.ErrPermanent)

	linker.On("LinkAffiliate", mock.Anything, "7", "x-1").Return(nil, partnerdomain.ErrAffiliateAlreadyLinked).Once()
	err = h.EnrollAffiliate(context.Background(), task(t, domain.TypeEnrollAffiliate, domain.EnrollAffiliatePayload{AffiliateID: "x-1", PartnerID: "7"}))
	assert.ErrorIs(t, err, domain.ErrPermanent)
	assert.ErrorIs(t, err, partnerdomain.ErrAffiliateAlreadyLinked)
	network.AssertNotCalled(t, "AddAffiliateToProgram", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSubscribe(t *testing.T) {
	mailing := new(mailingMock)
	h := New("", new(networkMock), new(linkerMock), mailing, &enqueuerStub{}, zap.NewNop())

	mailing.On("Subscribe", mock.Anything, mailinglist.Subscriber{
		Email:  "ana@example.com",
		Name:   "Ana",
		Fields: map[string]string{"tier": "standard"},
	}).Return(nil).Once()
	err := h.Subscribe(context.Background(), task(t, domain.TypeSubscribe, domain.SubscribePayload{
		Email:  "ana@example.com",
		Name:   "Ana",
		Fields: map[string]string{"tier": "standard"},
	}))
	require.NoError(t, err)

	mailing.On("Subscribe", mock.Anything, mock.Anything).Return(mailinglist.ErrInvalidEmail).Once()
	err = h.Subscribe(context.Background(), task(t, domain.TypeSubscribe, domain.SubscribePayload{}))
	assert.ErrorIs(t, err, domain.ErrPermanent)
}
