package httptransport

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	identityservice "veil/internal/identity/service"
	jwttoken "veil/internal/jwt_token"
	personamodels "veil/internal/persona/models"
	"veil/internal/platform/middleware"
	trustmodels "veil/internal/trust/models"
	"veil/internal/transport/http/mocks"
	id "veil/pkg/domain"
	dErrors "veil/pkg/domain-errors"
)

//go:generate mockgen -source=handlers_identity.go -destination=mocks/identity-mocks.go -package=mocks IdentityService
type IdentityHandlerSuite struct {
	suite.Suite
}

func TestIdentityHandlerSuite(t *testing.T) {
	suite.Run(t, new(IdentityHandlerSuite))
}

var testSessionTTL = 24 * time.Hour

func (s *IdentityHandlerSuite) newHandler(t *testing.T) (*mocks.MockIdentityService, *mocks.MockTokenIssuer, *chi.Mux) {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	mockService := mocks.NewMockIdentityService(ctrl)
	mockTokens := mocks.NewMockTokenIssuer(ctrl)
	handler := NewIdentityHandler(mockService, mockTokens, testSessionTTL, logger)
	r := chi.NewRouter()
	handler.RegisterPublic(r)
	return mockService, mockTokens, r
}

func testRegisterResult() *identityservice.RegisterResult {
	acctID := id.NewAccountabilityID()
	personaID := id.NewPersonaID()
	return &identityservice.RegisterResult{
		Persona: personamodels.View{
			ID:          personaID,
			DisplayName: "night_owl",
			TrustLevel:  trustmodels.LevelNew,
			CreatedAt:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		},
		Session: identityservice.Session{
			AccountabilityID: acctID,
			PersonaID:        personaID,
		},
	}
}

func (s *IdentityHandlerSuite) TestHandler_Register() {
	s.T().Run("registration returns persona view and sets session cookie", func(t *testing.T) {
		mockService, mockTokens, router := s.newHandler(t)
		result := testRegisterResult()
		mockService.EXPECT().
			Register(gomock.Any(), "owl@example.com", "hunter22", "night_owl").
			Return(result, nil)
		mockTokens.EXPECT().
			GenerateSessionToken(uuid.UUID(result.Session.AccountabilityID), uuid.UUID(result.Session.PersonaID), jwttoken.RoleUser, testSessionTTL).
			Return("signed-token", nil)

		req := httptest.NewRequest(http.MethodPost, "/auth/register",
			strings.NewReader(`{"email":"owl@example.com","password":"hunter22","display_name":"night_owl"}`))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusCreated, w.Code)

		var body struct {
			Persona personamodels.View `json:"persona"`
		}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.Equal(t, result.Persona.ID, body.Persona.ID)
		assert.Equal(t, "night_owl", body.Persona.DisplayName)

		cookies := w.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, middleware.SessionCookieName, cookies[0].Name)
		assert.Equal(t, "signed-token", cookies[0].Value)
		assert.True(t, cookies[0].HttpOnly)
		assert.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)
	})

	s.T().Run("response body never exposes accountability data", func(t *testing.T) {
		mockService, mockTokens, router := s.newHandler(t)
		result := testRegisterResult()
		mockService.EXPECT().Register(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(result, nil)
		mockTokens.EXPECT().GenerateSessionToken(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return("signed-token", nil)

		req := httptest.NewRequest(http.MethodPost, "/auth/register",
			strings.NewReader(`{"email":"owl@example.com","password":"hunter22","display_name":"night_owl"}`))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		payload := w.Body.String()
		assert.NotContains(t, payload, "accountability")
		assert.NotContains(t, payload, "abuse")
		assert.NotContains(t, payload, "risk")
		assert.NotContains(t, payload, result.Session.AccountabilityID.String())
	})

	s.T().Run("returns 400 when request body is invalid json", func(t *testing.T) {
		mockService, _, router := s.newHandler(t)
		mockService.EXPECT().Register(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

		req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader("{bad-json"))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	s.T().Run("duplicate email maps to 409 with stable reason", func(t *testing.T) {
		mockService, _, router := s.newHandler(t)
		mockService.EXPECT().
			Register(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, dErrors.NewReason(dErrors.CodeConflict, "EMAIL_ALREADY_REGISTERED", "email is already registered"))

		req := httptest.NewRequest(http.MethodPost, "/auth/register",
			strings.NewReader(`{"email":"owl@example.com","password":"hunter22","display_name":"night_owl"}`))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
		var errBody map[string]string
		require.NoError(t, json.NewDecoder(w.Body).Decode(&errBody))
		assert.Equal(t, "EMAIL_ALREADY_REGISTERED", errBody["error"])
	})

	s.T().Run("token issue failure is an opaque 500 with no cookie", func(t *testing.T) {
		mockService, mockTokens, router := s.newHandler(t)
		mockService.EXPECT().Register(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(testRegisterResult(), nil)
		mockTokens.EXPECT().GenerateSessionToken(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return("", assertableErr)

		req := httptest.NewRequest(http.MethodPost, "/auth/register",
			strings.NewReader(`{"email":"owl@example.com","password":"hunter22","display_name":"night_owl"}`))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Empty(t, w.Result().Cookies())
		var errBody map[string]string
		require.NoError(t, json.NewDecoder(w.Body).Decode(&errBody))
		assert.Equal(t, "internal_error", errBody["error"])
		assert.NotContains(t, errBody, "error_description")
	})
}

var assertableErr = dErrors.New(dErrors.CodeInternal, "signing failed")

func (s *IdentityHandlerSuite) TestHandler_Login() {
	s.T().Run("valid credentials return persona and cookie", func(t *testing.T) {
		mockService, mockTokens, router := s.newHandler(t)
		result := testRegisterResult()
		mockService.EXPECT().
			Login(gomock.Any(), "owl@example.com", "hunter22", gomock.Any()).
			Return(&identityservice.LoginResult{Persona: result.Persona, Session: result.Session}, nil)
		mockTokens.EXPECT().GenerateSessionToken(gomock.Any(), gomock.Any(), jwttoken.RoleUser, testSessionTTL).Return("signed-token", nil)

		req := httptest.NewRequest(http.MethodPost, "/auth/login",
			strings.NewReader(`{"email":"owl@example.com","password":"hunter22"}`))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		require.Len(t, w.Result().Cookies(), 1)
	})

	s.T().Run("invalid credentials map to 401", func(t *testing.T) {
		mockService, _, router := s.newHandler(t)
		mockService.EXPECT().
			Login(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, dErrors.NewReason(dErrors.CodeUnauthorized, "INVALID_CREDENTIALS", "invalid email or password"))

		req := httptest.NewRequest(http.MethodPost, "/auth/login",
			strings.NewReader(`{"email":"owl@example.com","password":"wrong"}`))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		var errBody map[string]string
		require.NoError(t, json.NewDecoder(w.Body).Decode(&errBody))
		assert.Equal(t, "INVALID_CREDENTIALS", errBody["error"])
	})
}

func (s *IdentityHandlerSuite) TestHandler_Logout() {
	_, _, router := s.newHandler(s.T())

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	s.Equal(http.StatusNoContent, w.Code)
	cookies := w.Result().Cookies()
	s.Require().Len(cookies, 1)
	s.Equal(middleware.SessionCookieName, cookies[0].Name)
	s.Empty(cookies[0].Value)
	s.Negative(cookies[0].MaxAge)
}

func (s *IdentityHandlerSuite) TestHandler_PersonaContext() {
	newContextRouter := func(t *testing.T) (*mocks.MockIdentityService, *chi.Mux) {
		t.Helper()
		ctrl := gomock.NewController(t)
		t.Cleanup(ctrl.Finish)

		logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
		mockService := mocks.NewMockIdentityService(ctrl)
		handler := NewIdentityHandler(mockService, mocks.NewMockTokenIssuer(ctrl), testSessionTTL, logger)
		r := chi.NewRouter()
		handler.RegisterModerator(r)
		return mockService, r
	}

	s.T().Run("resolves the hidden context behind a persona", func(t *testing.T) {
		personaID := id.NewPersonaID()
		mockService, router := newContextRouter(t)
		mockService.EXPECT().
			GetAccountabilityContext(gomock.Any(), personaID).
			Return(&identityservice.AccountabilityContext{ProfileID: id.NewAccountabilityID(), AbuseScore: 0.2}, nil)

		req := httptest.NewRequest(http.MethodGet, "/admin/personas/"+personaID.String()+"/context", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	s.T().Run("invalid persona id maps to 400", func(t *testing.T) {
		mockService, router := newContextRouter(t)
		mockService.EXPECT().GetAccountabilityContext(gomock.Any(), gomock.Any()).Times(0)

		req := httptest.NewRequest(http.MethodGet, "/admin/personas/not-a-uuid/context", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
