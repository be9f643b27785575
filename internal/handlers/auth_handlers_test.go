package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/yasinhessnawi1/hideme-auth/internal/auth"
	"github.com/yasinhessnawi1/hideme-auth/internal/config"
	"github.com/yasinhessnawi1/hideme-auth/internal/constants"
	"github.com/yasinhessnawi1/hideme-auth/internal/models"
	"github.com/yasinhessnawi1/hideme-auth/internal/service"
	"github.com/yasinhessnawi1/hideme-auth/internal/utils"
)

// MockAccountService implements AccountServiceInterface
type MockAccountService struct {
	SignupFunc         func(ctx context.Context, req *models.SignupRequest) (*service.Session, error)
	LoginFunc          func(ctx context.Context, req *models.LoginRequest) (*service.Session, error)
	UpdatePasswordFunc func(ctx context.Context, current *models.Account, req *models.UpdatePasswordRequest) (*service.Session, error)
}

func testSession(email string) *service.Session {
	return &service.Session{
		Account:   &models.Account{ID: 1, Email: email},
		Token:     "session_token",
		ExpiresAt: time.Now().Add(time.Hour),
	}
}

func (m *MockAccountService) Signup(ctx context.Context, req *models.SignupRequest) (*service.Session, error) {
	if m.SignupFunc != nil {
		return m.SignupFunc(ctx, req)
	}
	return testSession(req.Email), nil
}

func (m *MockAccountService) Login(ctx context.Context, req *models.LoginRequest) (*service.Session, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, req)
	}
	return testSession(req.Email), nil
}

func (m *MockAccountService) UpdatePassword(ctx context.Context, current *models.Account, req *models.UpdatePasswordRequest) (*service.Session, error) {
	if m.UpdatePasswordFunc != nil {
		return m.UpdatePasswordFunc(ctx, current, req)
	}
	return testSession(current.Email), nil
}

// MockPasswordResetService implements PasswordResetServiceInterface
type MockPasswordResetService struct {
	ForgotPasswordFunc func(ctx context.Context, email string) error
	ResetPasswordFunc  func(ctx context.Context, token string, req *models.ResetPasswordRequest) (*service.Session, error)
}

func (m *MockPasswordResetService) ForgotPassword(ctx context.Context, email string) error {
	if m.ForgotPasswordFunc != nil {
		return m.ForgotPasswordFunc(ctx, email)
	}
	return nil
}

func (m *MockPasswordResetService) ResetPassword(ctx context.Context, token string, req *models.ResetPasswordRequest) (*service.Session, error) {
	if m.ResetPasswordFunc != nil {
		return m.ResetPasswordFunc(ctx, token, req)
	}
	return testSession("reset@example.com"), nil
}

func setupAuthHandlerTest() (*AuthHandler, *MockAccountService, *MockPasswordResetService) {
	accounts := new(MockAccountService)
	resets := new(MockPasswordResetService)
	secure := false
	cookie := &config.CookieSettings{
		Name:   "jwt",
		Expiry: 24 * time.Hour,
		Secure: &secure,
	}

	return NewAuthHandler(accounts, resets, cookie, nil), accounts, resets
}

func jsonRequest(t *testing.T, method, target string, body interface{}) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("Failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set(constants.HeaderContentType, constants.ContentTypeJSON)
	return req
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	return response
}

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == name {
			return cookie
		}
	}
	return nil
}

func withToken(req *http.Request, token string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(constants.ParamResetToken, token)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestNewAuthHandlerPanicsOnNilServices(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Expected panic for nil account service")
		}
	}()
	NewAuthHandler(nil, new(MockPasswordResetService), nil, nil)
}

func TestSignup(t *testing.T) {
	testCases := []struct {
		name             string
		body             string
		mockSetup        func(*MockAccountService)
		expectedStatus   int
		validateResponse func(*testing.T, *httptest.ResponseRecorder)
	}{
		{
			name: "Successful Signup",
			body: `{"email":"new@example.com","password":"Sup3rSecret!","passwordConfirm":"Sup3rSecret!"}`,
			mockSetup: func(mock *MockAccountService) {
				mock.SignupFunc = func(ctx context.Context, req *models.SignupRequest) (*service.Session, error) {
					if req.PasswordConfirm != "Sup3rSecret!" {
						t.Errorf("Expected passwordConfirm to be decoded, got %q", req.PasswordConfirm)
					}
					return testSession(req.Email), nil
				}
			},
			expectedStatus: http.StatusCreated,
			validateResponse: func(t *testing.T, rec *httptest.ResponseRecorder) {
				response := decodeResponse(t, rec)
				if response["status"] != constants.StatusSuccess {
					t.Errorf("Expected status success, got %v", response["status"])
				}
				if response["token"] != "session_token" {
					t.Errorf("Expected token in body, got %v", response["token"])
				}

				data, ok := response["data"].(map[string]interface{})
				if !ok {
					t.Fatalf("Expected data object in response")
				}
				user, ok := data["user"].(map[string]interface{})
				if !ok {
					t.Fatalf("Expected user object in data")
				}
				if user["email"] != "new@example.com" {
					t.Errorf("Expected email new@example.com, got %v", user["email"])
				}
				if strings.Contains(rec.Body.String(), "password") {
					t.Errorf("Response must not carry password fields: %s", rec.Body.String())
				}

				cookie := findCookie(rec, "jwt")
				if cookie == nil {
					t.Fatalf("Expected session cookie")
				}
				if cookie.Value != "session_token" || !cookie.HttpOnly {
					t.Errorf("Unexpected session cookie: %+v", cookie)
				}
			},
		},
		{
			name: "Validation Failure",
			body: `{"email":"new@example.com","password":"Sup3rSecret!","passwordConfirm":"other"}`,
			mockSetup: func(mock *MockAccountService) {
				mock.SignupFunc = func(ctx context.Context, req *models.SignupRequest) (*service.Session, error) {
					return nil, utils.NewValidationError("passwordConfirm", constants.MsgPasswordsDoNotMatch)
				}
			},
			expectedStatus: http.StatusBadRequest,
			validateResponse: func(t *testing.T, rec *httptest.ResponseRecorder) {
				response := decodeResponse(t, rec)
				if response["status"] != constants.StatusFail {
					t.Errorf("Expected status fail, got %v", response["status"])
				}
				if findCookie(rec, "jwt") != nil {
					t.Errorf("No cookie expected on failure")
				}
			},
		},
		{
			name: "Malformed JSON",
			body: `{"email":`,
			mockSetup: func(mock *MockAccountService) {
				mock.SignupFunc = func(ctx context.Context, req *models.SignupRequest) (*service.Session, error) {
					t.Error("Signup must not be called for a malformed body")
					return nil, nil
				}
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "Internal Failure",
			body: `{"email":"new@example.com","password":"Sup3rSecret!","passwordConfirm":"Sup3rSecret!"}`,
			mockSetup: func(mock *MockAccountService) {
				mock.SignupFunc = func(ctx context.Context, req *models.SignupRequest) (*service.Session, error) {
					return nil, errors.New("connection refused")
				}
			},
			expectedStatus: http.StatusInternalServerError,
			validateResponse: func(t *testing.T, rec *httptest.ResponseRecorder) {
				response := decodeResponse(t, rec)
				if response["status"] != constants.StatusError {
					t.Errorf("Expected status error, got %v", response["status"])
				}
				if strings.Contains(rec.Body.String(), "connection refused") {
					t.Errorf("Internal error text leaked: %s", rec.Body.String())
				}
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			handler, accounts, _ := setupAuthHandlerTest()
			tc.mockSetup(accounts)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/users/signup", strings.NewReader(tc.body))
			rec := httptest.NewRecorder()
			handler.Signup(rec, req)

			if rec.Code != tc.expectedStatus {
				t.Errorf("Expected status %d, got %d", tc.expectedStatus, rec.Code)
			}
			if tc.validateResponse != nil {
				tc.validateResponse(t, rec)
			}
		})
	}
}

func TestLogin(t *testing.T) {
	t.Run("Successful Login", func(t *testing.T) {
		handler, _, _ := setupAuthHandlerTest()
		rec := httptest.NewRecorder()
		handler.Login(rec, jsonRequest(t, http.MethodPost, "/api/v1/users/login", map[string]string{
			"email":    "user@example.com",
			"password": "Sup3rSecret!",
		}))

		if rec.Code != http.StatusOK {
			t.Fatalf("Expected status %d, got %d", http.StatusOK, rec.Code)
		}
		if response := decodeResponse(t, rec); response["token"] != "session_token" {
			t.Errorf("Expected token in body, got %v", response["token"])
		}
		if findCookie(rec, "jwt") == nil {
			t.Errorf("Expected session cookie")
		}
	})

	t.Run("Bad Credentials", func(t *testing.T) {
		handler, accounts, _ := setupAuthHandlerTest()
		accounts.LoginFunc = func(ctx context.Context, req *models.LoginRequest) (*service.Session, error) {
			return nil, utils.NewBadCredentialsError()
		}

		rec := httptest.NewRecorder()
		handler.Login(rec, jsonRequest(t, http.MethodPost, "/api/v1/users/login", map[string]string{
			"email":    "user@example.com",
			"password": "wrong",
		}))

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("Expected status %d, got %d", http.StatusUnauthorized, rec.Code)
		}
		if response := decodeResponse(t, rec); response["message"] != constants.MsgBadCredentials {
			t.Errorf("Expected message %q, got %v", constants.MsgBadCredentials, response["message"])
		}
	})

	t.Run("Unknown Field", func(t *testing.T) {
		handler, _, _ := setupAuthHandlerTest()
		rec := httptest.NewRecorder()
		handler.Login(rec, jsonRequest(t, http.MethodPost, "/api/v1/users/login", map[string]string{
			"username": "user",
		}))

		if rec.Code != http.StatusBadRequest {
			t.Errorf("Expected status %d, got %d", http.StatusBadRequest, rec.Code)
		}
	})
}

func TestLogout(t *testing.T) {
	handler, _, _ := setupAuthHandlerTest()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/logout", nil)
	req.AddCookie(&http.Cookie{Name: "jwt", Value: "session_token"})
	rec := httptest.NewRecorder()
	handler.Logout(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if response := decodeResponse(t, rec); response["status"] != constants.StatusSuccess {
		t.Errorf("Expected status success, got %v", response["status"])
	}

	cookie := findCookie(rec, "jwt")
	if cookie == nil {
		t.Fatalf("Session cookie not cleared")
	}
	if cookie.Value != "" {
		t.Errorf("Expected empty cookie value, got %q", cookie.Value)
	}
	if cookie.MaxAge >= 0 {
		t.Errorf("Expected cookie MaxAge < 0, got %d", cookie.MaxAge)
	}
}

func TestForgotPassword(t *testing.T) {
	testCases := []struct {
		name           string
		serviceErr     error
		expectedStatus int
		expectedMsg    string
	}{
		{
			name:           "Token Sent",
			expectedStatus: http.StatusOK,
			expectedMsg:    constants.MsgResetTokenSent,
		},
		{
			name:           "Unknown Email",
			serviceErr:     utils.New(utils.ErrNotFound, http.StatusNotFound, constants.MsgNoAccountForEmail),
			expectedStatus: http.StatusNotFound,
			expectedMsg:    constants.MsgNoAccountForEmail,
		},
		{
			name:           "Delivery Failure",
			serviceErr:     utils.NewDeliveryError(errors.New("smtp down")),
			expectedStatus: http.StatusInternalServerError,
			expectedMsg:    constants.MsgDeliveryFailed,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			handler, _, resets := setupAuthHandlerTest()

			var gotEmail string
			resets.ForgotPasswordFunc = func(ctx context.Context, email string) error {
				gotEmail = email
				return tc.serviceErr
			}

			req := jsonRequest(t, http.MethodPost, "/api/v1/users/forgotPassword", map[string]string{
				"email": "user@example.com",
			})
			rec := httptest.NewRecorder()
			handler.ForgotPassword(rec, req)

			if rec.Code != tc.expectedStatus {
				t.Errorf("Expected status %d, got %d", tc.expectedStatus, rec.Code)
			}
			if gotEmail != "user@example.com" {
				t.Errorf("Expected email to be forwarded, got %q", gotEmail)
			}
			if response := decodeResponse(t, rec); response["message"] != tc.expectedMsg {
				t.Errorf("Expected message %q, got %v", tc.expectedMsg, response["message"])
			}
		})
	}
}

func TestResetPassword(t *testing.T) {
	t.Run("Successful Reset", func(t *testing.T) {
		handler, _, resets := setupAuthHandlerTest()

		var gotToken string
		resets.ResetPasswordFunc = func(ctx context.Context, token string, req *models.ResetPasswordRequest) (*service.Session, error) {
			gotToken = token
			return testSession("reset@example.com"), nil
		}

		req := jsonRequest(t, http.MethodPatch, "/api/v1/users/resetPassword/abc123", map[string]string{
			"password":        "N3wSecret!!",
			"passwordConfirm": "N3wSecret!!",
		})
		rec := httptest.NewRecorder()
		handler.ResetPassword(rec, withToken(req, "abc123"))

		if rec.Code != http.StatusOK {
			t.Fatalf("Expected status %d, got %d", http.StatusOK, rec.Code)
		}
		if gotToken != "abc123" {
			t.Errorf("Expected token abc123, got %q", gotToken)
		}
		if findCookie(rec, "jwt") == nil {
			t.Errorf("Expected session cookie")
		}
	})

	t.Run("Invalid Token", func(t *testing.T) {
		handler, _, resets := setupAuthHandlerTest()
		resets.ResetPasswordFunc = func(ctx context.Context, token string, req *models.ResetPasswordRequest) (*service.Session, error) {
			return nil, utils.NewInvalidOrExpiredTokenError()
		}

		req := jsonRequest(t, http.MethodPatch, "/api/v1/users/resetPassword/stale", map[string]string{
			"password":        "N3wSecret!!",
			"passwordConfirm": "N3wSecret!!",
		})
		rec := httptest.NewRecorder()
		handler.ResetPassword(rec, withToken(req, "stale"))

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("Expected status %d, got %d", http.StatusBadRequest, rec.Code)
		}
		if response := decodeResponse(t, rec); response["message"] != constants.MsgResetTokenInvalid {
			t.Errorf("Expected message %q, got %v", constants.MsgResetTokenInvalid, response["message"])
		}
	})
}

func TestUpdatePassword(t *testing.T) {
	body := map[string]string{
		"passwordCurrent": "Sup3rSecret!",
		"password":        "N3wSecret!!",
		"passwordConfirm": "N3wSecret!!",
	}

	t.Run("Without Session", func(t *testing.T) {
		handler, accounts, _ := setupAuthHandlerTest()
		accounts.UpdatePasswordFunc = func(ctx context.Context, current *models.Account, req *models.UpdatePasswordRequest) (*service.Session, error) {
			t.Error("UpdatePassword must not be called without a session")
			return nil, nil
		}

		rec := httptest.NewRecorder()
		handler.UpdatePassword(rec, jsonRequest(t, http.MethodPatch, "/api/v1/users/updateMyPassword", body))

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("Expected status %d, got %d", http.StatusUnauthorized, rec.Code)
		}
	})

	t.Run("With Session", func(t *testing.T) {
		handler, accounts, _ := setupAuthHandlerTest()

		var gotAccount *models.Account
		accounts.UpdatePasswordFunc = func(ctx context.Context, current *models.Account, req *models.UpdatePasswordRequest) (*service.Session, error) {
			gotAccount = current
			if req.PasswordCurrent != "Sup3rSecret!" {
				t.Errorf("Expected current password to be decoded, got %q", req.PasswordCurrent)
			}
			return testSession(current.Email), nil
		}

		account := &models.Account{ID: 7, Email: "me@example.com"}
		req := jsonRequest(t, http.MethodPatch, "/api/v1/users/updateMyPassword", body)
		req = req.WithContext(auth.WithAccount(req.Context(), account))
		rec := httptest.NewRecorder()
		handler.UpdatePassword(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("Expected status %d, got %d", http.StatusOK, rec.Code)
		}
		if gotAccount != account {
			t.Errorf("Expected the session account to be passed through")
		}
		if findCookie(rec, "jwt") == nil {
			t.Errorf("Expected refreshed session cookie")
		}
	})

	t.Run("Wrong Current Password", func(t *testing.T) {
		handler, accounts, _ := setupAuthHandlerTest()
		accounts.UpdatePasswordFunc = func(ctx context.Context, current *models.Account, req *models.UpdatePasswordRequest) (*service.Session, error) {
			return nil, utils.New(utils.ErrBadCredentials, http.StatusUnauthorized, constants.MsgCurrentPasswordWrong)
		}

		req := jsonRequest(t, http.MethodPatch, "/api/v1/users/updateMyPassword", body)
		req = req.WithContext(auth.WithAccount(req.Context(), &models.Account{ID: 7}))
		rec := httptest.NewRecorder()
		handler.UpdatePassword(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("Expected status %d, got %d", http.StatusUnauthorized, rec.Code)
		}
		if response := decodeResponse(t, rec); response["message"] != constants.MsgCurrentPasswordWrong {
			t.Errorf("Expected message %q, got %v", constants.MsgCurrentPasswordWrong, response["message"])
		}
	})
}

func TestMe(t *testing.T) {
	handler, _, _ := setupAuthHandlerTest()

	account := &models.Account{
		ID:           3,
		Email:        "me@example.com",
		PasswordHash: "hash",
		Salt:         "salt",
	}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	req = req.WithContext(auth.WithAccount(req.Context(), account))
	rec := httptest.NewRecorder()
	handler.Me(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d", http.StatusOK, rec.Code)
	}
	response := decodeResponse(t, rec)
	data, ok := response["data"].(map[string]interface{})
	if !ok {
		t.Fatalf("Expected data object in response")
	}
	user, ok := data["user"].(map[string]interface{})
	if !ok {
		t.Fatalf("Expected user object in data")
	}
	if user["id"] != float64(3) {
		t.Errorf("Expected id 3, got %v", user["id"])
	}
	if strings.Contains(rec.Body.String(), "hash") {
		t.Errorf("Credential fields leaked: %s", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	handler.Me(rec, httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected status %d without a session, got %d", http.StatusUnauthorized, rec.Code)
	}
}
