package auth

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"horizon/internal/domain/events"
	"horizon/internal/domain/identity"
	"horizon/internal/domain/payments"
	"horizon/internal/domain/user"
	"horizon/internal/shared/errs"
	"horizon/internal/shared/logging"
)

// MockIdentity is a mock implementation of identity.Provider
type MockIdentity struct {
	CreateAccountFunc              func(ctx context.Context, params identity.CreateAccountParams) (*identity.Account, error)
	DeleteAccountFunc              func(ctx context.Context, accountID string) error
	CreateEmailPasswordSessionFunc func(ctx context.Context, email, password string) (*identity.Session, error)
	GetAccountFunc                 func(ctx context.Context, secret string) (*identity.Account, error)
	DeleteSessionFunc              func(ctx context.Context, secret string) error
}

func (m *MockIdentity) CreateAccount(ctx context.Context, params identity.CreateAccountParams) (*identity.Account, error) {
	if m.CreateAccountFunc != nil {
		return m.CreateAccountFunc(ctx, params)
	}
	return &identity.Account{ID: "acct-1", Email: params.Email, Name: params.Name}, nil
}

func (m *MockIdentity) DeleteAccount(ctx context.Context, accountID string) error {
	if m.DeleteAccountFunc != nil {
		return m.DeleteAccountFunc(ctx, accountID)
	}
	return nil
}

func (m *MockIdentity) CreateEmailPasswordSession(ctx context.Context, email, password string) (*identity.Session, error) {
	if m.CreateEmailPasswordSessionFunc != nil {
		return m.CreateEmailPasswordSessionFunc(ctx, email, password)
	}
	return &identity.Session{ID: "sess-1", AccountID: "acct-1", Secret: "secret-1"}, nil
}

func (m *MockIdentity) GetAccount(ctx context.Context, secret string) (*identity.Account, error) {
	if m.GetAccountFunc != nil {
		return m.GetAccountFunc(ctx, secret)
	}
	return &identity.Account{ID: "acct-1"}, nil
}

func (m *MockIdentity) DeleteSession(ctx context.Context, secret string) error {
	if m.DeleteSessionFunc != nil {
		return m.DeleteSessionFunc(ctx, secret)
	}
	return nil
}

// MockRail is a mock implementation of payments.Rail
type MockRail struct {
	CreateCustomerFunc      func(ctx context.Context, params payments.CustomerParams) (string, error)
	DeactivateCustomerFunc  func(ctx context.Context, customerURL string) error
	AddFundingSourceFunc    func(ctx context.Context, params payments.FundingSourceParams) (string, error)
	RemoveFundingSourceFunc func(ctx context.Context, fundingSourceURL string) error
}

func (m *MockRail) CreateCustomer(ctx context.Context, params payments.CustomerParams) (string, error) {
	if m.CreateCustomerFunc != nil {
		return m.CreateCustomerFunc(ctx, params)
	}
	return "https://api-sandbox.dwolla.com/customers/cust-1", nil
}

func (m *MockRail) DeactivateCustomer(ctx context.Context, customerURL string) error {
	if m.DeactivateCustomerFunc != nil {
		return m.DeactivateCustomerFunc(ctx, customerURL)
	}
	return nil
}

func (m *MockRail) AddFundingSource(ctx context.Context, params payments.FundingSourceParams) (string, error) {
	if m.AddFundingSourceFunc != nil {
		return m.AddFundingSourceFunc(ctx, params)
	}
	return "", nil
}

func (m *MockRail) RemoveFundingSource(ctx context.Context, fundingSourceURL string) error {
	if m.RemoveFundingSourceFunc != nil {
		return m.RemoveFundingSourceFunc(ctx, fundingSourceURL)
	}
	return nil
}

// MockUsers is a mock implementation of user.Repository
type MockUsers struct {
	CreateFunc         func(ctx context.Context, params user.CreateParams) (*user.User, error)
	GetByAccountIDFunc func(ctx context.Context, accountID string) (*user.User, error)
}

func (m *MockUsers) Create(ctx context.Context, params user.CreateParams) (*user.User, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, params)
	}
	return nil, nil
}

func (m *MockUsers) GetByAccountID(ctx context.Context, accountID string) (*user.User, error) {
	if m.GetByAccountIDFunc != nil {
		return m.GetByAccountIDFunc(ctx, accountID)
	}
	return nil, user.ErrUserNotFound
}

type recordingPublisher struct {
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, e events.Event) error {
	p.events = append(p.events, e)
	return p.err
}

func signUpParams() user.SignUpParams {
	return user.SignUpParams{
		Profile: user.Profile{
			FirstName:   "Ada",
			LastName:    "Lovelace",
			Address1:    "1 Main St",
			City:        "Springfield",
			State:       "NY",
			PostalCode:  "11101",
			DateOfBirth: "1990-01-01",
			SSN:         "1234",
			Email:       "ada@example.com",
		},
		Password: "correct-horse",
	}
}

// fakeStore keeps created users in memory and records call order.
type fakeStore struct {
	calls *[]string
	users map[string]*user.User
}

func (f *fakeStore) mock() *MockUsers {
	return &MockUsers{
		CreateFunc: func(ctx context.Context, p user.CreateParams) (*user.User, error) {
			*f.calls = append(*f.calls, "users.Create")
			u := &user.User{
				ID:                "doc-1",
				UserID:            p.UserID,
				Email:             p.Email,
				FirstName:         p.FirstName,
				LastName:          p.LastName,
				SSN:               p.SSN,
				DwollaCustomerID:  p.DwollaCustomerID,
				DwollaCustomerURL: p.DwollaCustomerURL,
			}
			f.users[p.UserID] = u
			return u, nil
		},
		GetByAccountIDFunc: func(ctx context.Context, accountID string) (*user.User, error) {
			if u, ok := f.users[accountID]; ok {
				return u, nil
			}
			return nil, user.ErrUserNotFound
		},
	}
}

func TestSignUp_Success(t *testing.T) {
	ctx := context.Background()
	var calls []string
	store := &fakeStore{calls: &calls, users: map[string]*user.User{}}
	pub := &recordingPublisher{}

	idp := &MockIdentity{
		CreateAccountFunc: func(ctx context.Context, p identity.CreateAccountParams) (*identity.Account, error) {
			calls = append(calls, "identity.CreateAccount")
			if p.Name != "Ada Lovelace" {
				t.Errorf("account name = %q, want %q", p.Name, "Ada Lovelace")
			}
			return &identity.Account{ID: "acct-42", Email: p.Email}, nil
		},
		CreateEmailPasswordSessionFunc: func(ctx context.Context, email, password string) (*identity.Session, error) {
			calls = append(calls, "identity.CreateSession")
			return &identity.Session{ID: "sess-1", AccountID: "acct-42", Secret: "s3cret"}, nil
		},
	}
	rail := &MockRail{
		CreateCustomerFunc: func(ctx context.Context, p payments.CustomerParams) (string, error) {
			calls = append(calls, "rail.CreateCustomer")
			if p.Type != "personal" {
				t.Errorf("customer type = %q, want personal", p.Type)
			}
			if p.SSN != "1234" || p.DateOfBirth != "1990-01-01" {
				t.Errorf("customer profile not forwarded: %+v", p)
			}
			return "https://api-sandbox.dwolla.com/customers/cust-9", nil
		},
	}

	svc := NewService(idp, rail, store.mock(), pub, logging.Discard())
	res, err := svc.SignUp(ctx, signUpParams())
	if err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}

	wantCalls := []string{"identity.CreateAccount", "rail.CreateCustomer", "users.Create", "identity.CreateSession"}
	if !reflect.DeepEqual(calls, wantCalls) {
		t.Errorf("calls = %v, want %v", calls, wantCalls)
	}
	if res.User.UserID != "acct-42" {
		t.Errorf("User.UserID = %q, want identity account id", res.User.UserID)
	}
	if res.User.DwollaCustomerID != "cust-9" {
		t.Errorf("DwollaCustomerID = %q, want cust-9", res.User.DwollaCustomerID)
	}
	if res.User.DwollaCustomerURL != "https://api-sandbox.dwolla.com/customers/cust-9" {
		t.Errorf("DwollaCustomerURL = %q", res.User.DwollaCustomerURL)
	}
	if res.Session == nil || res.Session.Secret != "s3cret" {
		t.Errorf("Session = %+v, want secret s3cret", res.Session)
	}
	if len(store.users) != 1 {
		t.Errorf("stored users = %d, want 1", len(store.users))
	}
	if len(pub.events) != 1 || pub.events[0].Type != events.TypeUserEnrolled || pub.events[0].UserID != "doc-1" {
		t.Errorf("events = %+v", pub.events)
	}
}

func TestSignUp_PublishFailureIsIgnored(t *testing.T) {
	var calls []string
	store := &fakeStore{calls: &calls, users: map[string]*user.User{}}
	pub := &recordingPublisher{err: errors.New("broker down")}

	svc := NewService(&MockIdentity{}, &MockRail{}, store.mock(), pub, logging.Discard())
	if _, err := svc.SignUp(context.Background(), signUpParams()); err != nil {
		t.Fatalf("SignUp() error = %v, want nil", err)
	}
}

func TestSignUp_Failures(t *testing.T) {
	tests := []struct {
		name            string
		params          func() user.SignUpParams
		idp             func(*[]string) *MockIdentity
		rail            func(*[]string) *MockRail
		usersErr        error
		wantKind        errs.Kind
		wantUsers       int
		wantCompensated []string
	}{
		{
			name: "missing field",
			params: func() user.SignUpParams {
				p := signUpParams()
				p.SSN = ""
				return p
			},
			wantKind: errs.KindInvalid,
		},
		{
			name: "email taken",
			idp: func(comp *[]string) *MockIdentity {
				return &MockIdentity{
					CreateAccountFunc: func(ctx context.Context, p identity.CreateAccountParams) (*identity.Account, error) {
						return nil, identity.ErrEmailTaken
					},
				}
			},
			wantKind: errs.KindConflict,
		},
		{
			name: "weak password",
			idp: func(comp *[]string) *MockIdentity {
				return &MockIdentity{
					CreateAccountFunc: func(ctx context.Context, p identity.CreateAccountParams) (*identity.Account, error) {
						return nil, identity.ErrWeakPassword
					},
				}
			},
			wantKind: errs.KindInvalid,
		},
		{
			name: "customer creation fails",
			rail: func(comp *[]string) *MockRail {
				return &MockRail{
					CreateCustomerFunc: func(ctx context.Context, p payments.CustomerParams) (string, error) {
						return "", errors.New("dwolla 500")
					},
				}
			},
			wantKind:        errs.KindUpstream,
			wantCompensated: []string{"DeleteAccount"},
		},
		{
			name: "customer url missing",
			rail: func(comp *[]string) *MockRail {
				return &MockRail{
					CreateCustomerFunc: func(ctx context.Context, p payments.CustomerParams) (string, error) {
						return "", nil
					},
				}
			},
			wantKind:        errs.KindMissingResult,
			wantCompensated: []string{"DeleteAccount"},
		},
		{
			name:            "user document fails",
			usersErr:        errors.New("store unavailable"),
			wantKind:        errs.KindUpstream,
			wantCompensated: []string{"DeactivateCustomer", "DeleteAccount"},
		},
		{
			name: "session fails after profile is stored",
			idp: func(comp *[]string) *MockIdentity {
				return &MockIdentity{
					CreateEmailPasswordSessionFunc: func(ctx context.Context, email, password string) (*identity.Session, error) {
						return nil, errors.New("identity timeout")
					},
				}
			},
			wantKind:  errs.KindUpstream,
			wantUsers: 1,
		},
		{
			name: "panic is recovered",
			rail: func(comp *[]string) *MockRail {
				return &MockRail{
					CreateCustomerFunc: func(ctx context.Context, p payments.CustomerParams) (string, error) {
						panic("nil pointer")
					},
				}
			},
			wantKind:        errs.KindInternal,
			wantCompensated: []string{"DeleteAccount"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var compensated []string

			idp := &MockIdentity{}
			if tt.idp != nil {
				idp = tt.idp(&compensated)
			}
			idp.DeleteAccountFunc = func(ctx context.Context, accountID string) error {
				compensated = append(compensated, "DeleteAccount")
				return nil
			}

			rail := &MockRail{}
			if tt.rail != nil {
				rail = tt.rail(&compensated)
			}
			rail.DeactivateCustomerFunc = func(ctx context.Context, customerURL string) error {
				compensated = append(compensated, "DeactivateCustomer")
				return nil
			}

			stored := 0
			users := &MockUsers{
				CreateFunc: func(ctx context.Context, p user.CreateParams) (*user.User, error) {
					if tt.usersErr != nil {
						return nil, tt.usersErr
					}
					stored++
					return &user.User{ID: "doc-1", UserID: p.UserID}, nil
				},
			}

			params := signUpParams()
			if tt.params != nil {
				params = tt.params()
			}

			pub := &recordingPublisher{}
			svc := NewService(idp, rail, users, pub, logging.Discard())
			res, err := svc.SignUp(context.Background(), params)

			if err == nil {
				t.Fatal("SignUp() expected error, got nil")
			}
			if res != nil {
				t.Errorf("SignUp() result = %+v, want nil", res)
			}
			if got := errs.KindOf(err); got != tt.wantKind {
				t.Errorf("kind = %q, want %q (err=%v)", got, tt.wantKind, err)
			}
			if stored != tt.wantUsers {
				t.Errorf("stored users = %d, want %d", stored, tt.wantUsers)
			}
			if !reflect.DeepEqual(compensated, tt.wantCompensated) {
				t.Errorf("compensated = %v, want %v", compensated, tt.wantCompensated)
			}
			if len(pub.events) != 0 {
				t.Errorf("events published on failure: %+v", pub.events)
			}
		})
	}
}

func TestSignIn(t *testing.T) {
	ctx := context.Background()
	profile := &user.User{ID: "doc-1", UserID: "acct-1"}

	tests := []struct {
		name       string
		email      string
		password   string
		sessionErr error
		usersErr   error
		wantKind   errs.Kind
		wantRevoke bool
	}{
		{name: "success", email: "ada@example.com", password: "pw"},
		{name: "missing password", email: "ada@example.com", wantKind: errs.KindInvalid},
		{name: "bad credentials", email: "ada@example.com", password: "pw", sessionErr: identity.ErrInvalidCredentials, wantKind: errs.KindUnauthenticated},
		{name: "provider down", email: "ada@example.com", password: "pw", sessionErr: errors.New("timeout"), wantKind: errs.KindUpstream},
		{name: "no profile", email: "ada@example.com", password: "pw", usersErr: user.ErrUserNotFound, wantKind: errs.KindUnauthenticated, wantRevoke: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			revoked := false
			idp := &MockIdentity{
				CreateEmailPasswordSessionFunc: func(ctx context.Context, email, password string) (*identity.Session, error) {
					if tt.sessionErr != nil {
						return nil, tt.sessionErr
					}
					return &identity.Session{AccountID: "acct-1", Secret: "s3cret"}, nil
				},
				DeleteSessionFunc: func(ctx context.Context, secret string) error {
					revoked = true
					return nil
				},
			}
			users := &MockUsers{
				GetByAccountIDFunc: func(ctx context.Context, accountID string) (*user.User, error) {
					if tt.usersErr != nil {
						return nil, tt.usersErr
					}
					return profile, nil
				},
			}

			svc := NewService(idp, &MockRail{}, users, nil, logging.Discard())
			res, err := svc.SignIn(ctx, tt.email, tt.password)

			if tt.wantKind == "" {
				if err != nil {
					t.Fatalf("SignIn() error = %v", err)
				}
				if res.User != profile || res.Session.Secret != "s3cret" {
					t.Errorf("SignIn() = %+v", res)
				}
				return
			}
			if res != nil {
				t.Errorf("SignIn() result = %+v, want nil", res)
			}
			if got := errs.KindOf(err); got != tt.wantKind {
				t.Errorf("kind = %q, want %q", got, tt.wantKind)
			}
			if revoked != tt.wantRevoke {
				t.Errorf("revoked = %v, want %v", revoked, tt.wantRevoke)
			}
		})
	}
}

func TestGetLoggedInUser(t *testing.T) {
	ctx := context.Background()
	profile := &user.User{ID: "doc-1", UserID: "acct-1"}

	tests := []struct {
		name       string
		secret     string
		accountErr error
		usersErr   error
		wantKind   errs.Kind
	}{
		{name: "success", secret: "s3cret"},
		{name: "no cookie", secret: "", wantKind: errs.KindUnauthenticated},
		{name: "expired session", secret: "old", accountErr: identity.ErrSessionNotFound, wantKind: errs.KindUnauthenticated},
		{name: "provider down", secret: "s3cret", accountErr: errors.New("timeout"), wantKind: errs.KindUpstream},
		{name: "no profile", secret: "s3cret", usersErr: user.ErrUserNotFound, wantKind: errs.KindUnauthenticated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idp := &MockIdentity{
				GetAccountFunc: func(ctx context.Context, secret string) (*identity.Account, error) {
					if tt.accountErr != nil {
						return nil, tt.accountErr
					}
					return &identity.Account{ID: "acct-1"}, nil
				},
			}
			users := &MockUsers{
				GetByAccountIDFunc: func(ctx context.Context, accountID string) (*user.User, error) {
					if tt.usersErr != nil {
						return nil, tt.usersErr
					}
					if accountID != "acct-1" {
						t.Errorf("GetByAccountID(%q), want acct-1", accountID)
					}
					return profile, nil
				},
			}

			svc := NewService(idp, &MockRail{}, users, nil, logging.Discard())
			got, err := svc.GetLoggedInUser(ctx, tt.secret)

			if tt.wantKind == "" {
				if err != nil || got != profile {
					t.Fatalf("GetLoggedInUser() = %v, %v", got, err)
				}
				return
			}
			if got != nil {
				t.Errorf("GetLoggedInUser() = %+v, want nil", got)
			}
			if k := errs.KindOf(err); k != tt.wantKind {
				t.Errorf("kind = %q, want %q", k, tt.wantKind)
			}
		})
	}
}

func TestLogout(t *testing.T) {
	ctx := context.Background()

	var revoked string
	idp := &MockIdentity{
		DeleteSessionFunc: func(ctx context.Context, secret string) error {
			revoked = secret
			return nil
		},
	}
	svc := NewService(idp, &MockRail{}, &MockUsers{}, nil, logging.Discard())

	if err := svc.Logout(ctx, ""); err != nil {
		t.Errorf("Logout(\"\") = %v, want nil", err)
	}
	if revoked != "" {
		t.Error("empty secret should not reach the provider")
	}

	if err := svc.Logout(ctx, "s3cret"); err != nil {
		t.Errorf("Logout() = %v", err)
	}
	if revoked != "s3cret" {
		t.Errorf("revoked = %q, want s3cret", revoked)
	}

	idp.DeleteSessionFunc = func(ctx context.Context, secret string) error {
		return identity.ErrSessionNotFound
	}
	if err := svc.Logout(ctx, "gone"); err != nil {
		t.Errorf("Logout() of missing session = %v, want nil", err)
	}

	idp.DeleteSessionFunc = func(ctx context.Context, secret string) error {
		return errors.New("timeout")
	}
	if err := svc.Logout(ctx, "s3cret"); !errs.Is(err, errs.KindUpstream) {
		t.Errorf("Logout() error = %v, want upstream", err)
	}
}
