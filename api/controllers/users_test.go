package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/userforge/userforge-backend/internal/rbac"
	"github.com/userforge/userforge-backend/internal/users"
	pkgerrors "github.com/userforge/userforge-backend/pkg/errors"
	"github.com/userforge/userforge-backend/pkg/query"
)

type testUsersService struct {
	getFn       func(ctx context.Context, caller rbac.Caller, id uuid.UUID) (*users.UserDTO, error)
	listFn      func(ctx context.Context, caller rbac.Caller, values url.Values) (*query.Page[users.UserDTO], error)
	createFn    func(ctx context.Context, caller rbac.Caller, input users.CreateUserInput) (*users.UserDTO, error)
	setActiveFn func(ctx context.Context, caller rbac.Caller, id uuid.UUID, active bool) (*users.UserDTO, error)
}

func (s *testUsersService) Create(ctx context.Context, caller rbac.Caller, input users.CreateUserInput) (*users.UserDTO, error) {
	if s.createFn != nil {
		return s.createFn(ctx, caller, input)
	}
	return nil, nil
}

func (s *testUsersService) Get(ctx context.Context, caller rbac.Caller, id uuid.UUID) (*users.UserDTO, error) {
	if s.getFn != nil {
		return s.getFn(ctx, caller, id)
	}
	return nil, nil
}

func (s *testUsersService) List(ctx context.Context, caller rbac.Caller, values url.Values) (*query.Page[users.UserDTO], error) {
	if s.listFn != nil {
		return s.listFn(ctx, caller, values)
	}
	return nil, nil
}

func (s *testUsersService) Update(ctx context.Context, caller rbac.Caller, id uuid.UUID, input users.UpdateUserInput) (*users.UserDTO, error) {
	return nil, nil
}

func (s *testUsersService) Delete(ctx context.Context, caller rbac.Caller, id uuid.UUID) error {
	return nil
}

func (s *testUsersService) SetActive(ctx context.Context, caller rbac.Caller, id uuid.UUID, active bool) (*users.UserDTO, error) {
	if s.setActiveFn != nil {
		return s.setActiveFn(ctx, caller, id, active)
	}
	return nil, nil
}

func (s *testUsersService) ChangeRole(ctx context.Context, caller rbac.Caller, id uuid.UUID, input users.ChangeRoleInput) (*users.UserDTO, error) {
	return nil, nil
}

func TestUsersGetRequiresAuthContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/"+uuid.NewString(), nil)
	req = addRouteParam(req, "userId", uuid.NewString())
	resp := httptest.NewRecorder()

	UsersGet(&testUsersService{}, testLogger())(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestUsersGetRejectsMalformedID(t *testing.T) {
	callerID, role := adminCaller()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/not-a-uuid", nil)
	req = authedRequest(t, req, callerID, role)
	req = addRouteParam(req, "userId", "not-a-uuid")
	resp := httptest.NewRecorder()

	UsersGet(&testUsersService{}, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestUsersGetPassesCallerAndID(t *testing.T) {
	callerID, role := adminCaller()
	targetID := uuid.New()
	svc := &testUsersService{
		getFn: func(ctx context.Context, caller rbac.Caller, id uuid.UUID) (*users.UserDTO, error) {
			if caller.ID != callerID {
				t.Fatalf("unexpected caller %s", caller.ID)
			}
			if caller.Role != rbac.RoleAdmin {
				t.Fatalf("unexpected role %s", caller.Role)
			}
			if id != targetID {
				t.Fatalf("unexpected target %s", id)
			}
			return &users.UserDTO{ID: targetID}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/"+targetID.String(), nil)
	req = authedRequest(t, req, callerID, role)
	req = addRouteParam(req, "userId", targetID.String())
	resp := httptest.NewRecorder()

	UsersGet(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var envelope struct {
		Data users.UserDTO `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if envelope.Data.ID != targetID {
		t.Fatalf("unexpected user in response: %s", envelope.Data.ID)
	}
}

func TestUsersListForwardsQueryValues(t *testing.T) {
	callerID, role := adminCaller()
	svc := &testUsersService{
		listFn: func(ctx context.Context, caller rbac.Caller, values url.Values) (*query.Page[users.UserDTO], error) {
			if values.Get("role") != "moderator" {
				t.Fatalf("expected role filter, got %q", values.Get("role"))
			}
			return &query.Page[users.UserDTO]{Data: []users.UserDTO{}}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users?role=moderator", nil)
	req = authedRequest(t, req, callerID, role)
	resp := httptest.NewRecorder()

	UsersList(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestUsersCreateMapsServiceError(t *testing.T) {
	callerID, role := adminCaller()
	svc := &testUsersService{
		createFn: func(ctx context.Context, caller rbac.Caller, input users.CreateUserInput) (*users.UserDTO, error) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		},
	}

	body := `{"email":"dupe@example.com","password":"password123","display_name":"Dupe","role":"user"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req = authedRequest(t, req, callerID, role)
	resp := httptest.NewRecorder()

	UsersCreate(svc, testLogger())(resp, req)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if envelope.Error.Code != string(pkgerrors.CodeConflict) {
		t.Fatalf("unexpected code %s", envelope.Error.Code)
	}
}

func TestUsersDeactivateRoutesToSetActive(t *testing.T) {
	callerID, role := adminCaller()
	targetID := uuid.New()
	var gotActive *bool
	svc := &testUsersService{
		setActiveFn: func(ctx context.Context, caller rbac.Caller, id uuid.UUID, active bool) (*users.UserDTO, error) {
			gotActive = &active
			return &users.UserDTO{ID: id, IsActive: active}, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/"+targetID.String()+"/deactivate", nil)
	req = authedRequest(t, req, callerID, role)
	req = addRouteParam(req, "userId", targetID.String())
	resp := httptest.NewRecorder()

	UsersDeactivate(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if gotActive == nil || *gotActive {
		t.Fatal("expected SetActive(false)")
	}
}
