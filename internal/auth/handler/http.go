// Package handler exposes the authentication ceremonies over HTTP. Every
// route is tenant-scoped through the X-Tenant-ID header; ceremony outcomes
// and typed auth errors map onto stable JSON error codes.
package handler

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"tenantauth/internal/auth/service"
	"tenantauth/internal/autherr"
	"tenantauth/internal/devcode"
	"tenantauth/internal/security"
	sessionservice "tenantauth/internal/session/service"
	tenantdomain "tenantauth/internal/tenant/domain"
	tenantrepo "tenantauth/internal/tenant/repository"
)

const (
	tenantHeader       = "X-Tenant-ID"
	serverSecretHeader = "X-Server-Secret"

	tenantContextKey = "auth.tenant"
	claimsContextKey = "auth.claims"
)

// AuthAPI holds the HTTP surface's dependencies.
type AuthAPI struct {
	svc      *service.Service
	sessions *sessionservice.Issuer
	tenants  tenantrepo.Repository
	devCodes devcode.Store
	log      zerolog.Logger

	// serverSecret guards the server-credential session issuance route.
	// Empty disables the route.
	serverSecret string
	// devCodeEndpoint exposes GET /dev/sign-in-code; never set in production.
	devCodeEndpoint bool
}

// NewAuthAPI initializes the auth HTTP API.
func NewAuthAPI(svc *service.Service, sessions *sessionservice.Issuer, tenants tenantrepo.Repository, devCodes devcode.Store, serverSecret string, devCodeEndpoint bool, log zerolog.Logger) *AuthAPI {
	if devCodes == nil {
		devCodes = devcode.Noop{}
	}
	return &AuthAPI{
		svc:             svc,
		sessions:        sessions,
		tenants:         tenants,
		devCodes:        devCodes,
		log:             log,
		serverSecret:    serverSecret,
		devCodeEndpoint: devCodeEndpoint,
	}
}

// RegisterRoutes registers every auth route on e. All routes run behind the
// tenant middleware.
func (a *AuthAPI) RegisterRoutes(e *echo.Echo) {
	g := e.Group("", a.tenantMiddleware)

	g.POST("/auth/otp/send-sign-in-code", a.SendSignInCode)
	g.POST("/auth/otp/sign-in", a.OTPSignIn)
	g.POST("/auth/otp/sign-in/check", a.OTPSignInCheck)

	g.POST("/auth/mfa/sign-in", a.MFASignIn)

	g.POST("/auth/password/sign-in", a.PasswordSignIn)
	g.POST("/auth/password/sign-up", a.PasswordSignUp)
	g.POST("/auth/password/update", a.PasswordUpdate, a.accessTokenMiddleware)
	g.POST("/auth/password/send-reset-code", a.SendPasswordResetCode)
	g.POST("/auth/password/reset", a.PasswordReset)
	g.POST("/auth/password/reset/check", a.PasswordResetCheck)

	g.POST("/contact-channels/send-verification-code", a.SendContactVerificationCode, a.accessTokenMiddleware)
	g.POST("/contact-channels/verify", a.VerifyContactChannel)

	g.POST("/auth/passkey/initiate", a.PasskeyInitiate)
	g.POST("/auth/passkey/sign-in", a.PasskeySignIn)

	g.POST("/auth/sessions", a.IssueSession, a.serverSecretMiddleware)
	g.POST("/auth/refresh", a.Refresh)
	g.DELETE("/auth/sessions/current", a.SignOut)

	if a.devCodeEndpoint {
		g.GET("/dev/sign-in-code", a.DevSignInCode)
	}
}

// tenantMiddleware resolves the tenant from the X-Tenant-ID header.
func (a *AuthAPI) tenantMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Request().Header.Get(tenantHeader)
		if id == "" {
			return a.renderError(c, autherr.ErrTenantNotFound)
		}
		t, err := a.tenants.GetByID(c.Request().Context(), id)
		if err != nil {
			return a.renderError(c, err)
		}
		if t == nil {
			return a.renderError(c, autherr.ErrTenantNotFound)
		}
		c.Set(tenantContextKey, t)
		return next(c)
	}
}

// accessTokenMiddleware validates the bearer access token for the tenant and
// stores its claims on the context.
func (a *AuthAPI) accessTokenMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		raw := c.Request().Header.Get(echo.HeaderAuthorization)
		token, ok := strings.CutPrefix(raw, "Bearer ")
		if !ok || token == "" {
			return a.renderError(c, autherr.ErrUnparsableAccessToken)
		}
		claims, err := a.sessions.DecodeAccess(tenant(c).ID, token)
		if err != nil {
			return a.renderError(c, err)
		}
		c.Set(claimsContextKey, claims)
		return next(c)
	}
}

// serverSecretMiddleware guards routes reserved for trusted server callers.
func (a *AuthAPI) serverSecretMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		secret := c.Request().Header.Get(serverSecretHeader)
		if a.serverSecret == "" || subtle.ConstantTimeCompare([]byte(secret), []byte(a.serverSecret)) != 1 {
			return c.JSON(http.StatusUnauthorized, errorBody{Code: "UNAUTHORIZED", Error: "server credentials required"})
		}
		return next(c)
	}
}

func tenant(c echo.Context) *tenantdomain.Tenant {
	return c.Get(tenantContextKey).(*tenantdomain.Tenant)
}

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Code    string         `json:"code"`
	Error   string         `json:"error"`
	Details map[string]any `json:"details,omitempty"`
}

// renderError maps a KnownError onto its status and stable code; anything
// else is a 500 with the detail kept out of the response.
func (a *AuthAPI) renderError(c echo.Context, err error) error {
	var known *autherr.KnownError
	if errors.As(err, &known) {
		return c.JSON(known.Status, errorBody{Code: known.Code, Error: known.Message, Details: known.Details})
	}
	a.log.Error().Err(err).Str("path", c.Path()).Msg("internal error")
	return c.JSON(http.StatusInternalServerError, errorBody{Code: "INTERNAL_SERVER_ERROR", Error: "something went wrong"})
}

// signInResponse serializes a SignInResult. MFA continuations are rendered as
// the MULTI_FACTOR_AUTHENTICATION_REQUIRED error carrying the attempt code.
type signInResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	UserID       string `json:"user_id"`
	IsNewUser    bool   `json:"is_new_user"`
}

func (a *AuthAPI) renderSignIn(c echo.Context, res *service.SignInResult) error {
	if res.MFARequired() {
		return a.renderError(c, autherr.NewMFARequired(res.AttemptCode))
	}
	return c.JSON(http.StatusOK, signInResponse{
		AccessToken:  res.Tokens.AccessToken,
		RefreshToken: res.Tokens.RefreshToken,
		UserID:       res.UserID,
		IsNewUser:    res.IsNewUser,
	})
}

type sendSignInCodeRequest struct {
	Email       string `json:"email"`
	CallbackURL string `json:"callback_url"`
}

func (a *AuthAPI) SendSignInCode(c echo.Context) error {
	var req sendSignInCodeRequest
	if err := c.Bind(&req); err != nil {
		return a.renderError(c, autherr.NewSchemaValidation("body", "malformed JSON"))
	}
	if req.Email == "" || req.CallbackURL == "" {
		return a.renderError(c, autherr.NewSchemaValidation("body", "email and callback_url are required"))
	}
	receipt, err := a.svc.SendSignInCode(c.Request().Context(), tenant(c), req.Email, req.CallbackURL)
	if err != nil {
		return a.renderError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"nonce":      receipt.Nonce,
		"expires_at": receipt.ExpiresAt.Format(time.RFC3339),
	})
}

type otpSignInRequest struct {
	// Either the full code, or the typed OTP plus the nonce from send.
	Code  string `json:"code"`
	OTP   string `json:"otp"`
	Nonce string `json:"nonce"`
}

func (r otpSignInRequest) fullCode() string {
	if r.Code != "" {
		return r.Code
	}
	return service.ComposeSignInCode(r.OTP, r.Nonce)
}

func (a *AuthAPI) OTPSignIn(c echo.Context) error {
	var req otpSignInRequest
	if err := c.Bind(&req); err != nil {
		return a.renderError(c, autherr.NewSchemaValidation("body", "malformed JSON"))
	}
	res, err := a.svc.SignInWithOTP(c.Request().Context(), tenant(c), req.fullCode())
	if err != nil {
		return a.renderError(c, err)
	}
	return a.renderSignIn(c, res)
}

func (a *AuthAPI) OTPSignInCheck(c echo.Context) error {
	var req otpSignInRequest
	if err := c.Bind(&req); err != nil {
		return a.renderError(c, autherr.NewSchemaValidation("body", "malformed JSON"))
	}
	err := a.svc.CheckSignInCode(c.Request().Context(), tenant(c), req.fullCode())
	return a.renderCheck(c, err)
}

// renderCheck turns a code-state error into {is_code_valid}; infrastructure
// errors still surface as 500s.
func (a *AuthAPI) renderCheck(c echo.Context, err error) error {
	if err == nil {
		return c.JSON(http.StatusOK, map[string]bool{"is_code_valid": true})
	}
	var known *autherr.KnownError
	if errors.As(err, &known) {
		return c.JSON(http.StatusOK, map[string]bool{"is_code_valid": false})
	}
	return a.renderError(c, err)
}

type mfaSignInRequest struct {
	AttemptCode string `json:"attempt_code"`
	TOTP        string `json:"totp"`
}

func (a *AuthAPI) MFASignIn(c echo.Context) error {
	var req mfaSignInRequest
	if err := c.Bind(&req); err != nil {
		return a.renderError(c, autherr.NewSchemaValidation("body", "malformed JSON"))
	}
	res, err := a.svc.SignInWithMFA(c.Request().Context(), tenant(c), req.AttemptCode, req.TOTP)
	if err != nil {
		return a.renderError(c, err)
	}
	return a.renderSignIn(c, res)
}

type passwordSignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (a *AuthAPI) PasswordSignIn(c echo.Context) error {
	var req passwordSignInRequest
	if err := c.Bind(&req); err != nil {
		return a.renderError(c, autherr.NewSchemaValidation("body", "malformed JSON"))
	}
	res, err := a.svc.SignInWithPassword(c.Request().Context(), tenant(c), req.Email, req.Password)
	if err != nil {
		return a.renderError(c, err)
	}
	return a.renderSignIn(c, res)
}

type passwordSignUpRequest struct {
	Email                   string  `json:"email"`
	Password                string  `json:"password"`
	VerificationCallbackURL *string `json:"verification_callback_url,omitempty"`
}

func (a *AuthAPI) PasswordSignUp(c echo.Context) error {
	var req passwordSignUpRequest
	if err := c.Bind(&req); err != nil {
		return a.renderError(c, autherr.NewSchemaValidation("body", "malformed JSON"))
	}
	res, err := a.svc.SignUpWithPassword(c.Request().Context(), tenant(c), req.Email, req.Password, req.VerificationCallbackURL)
	if err != nil {
		return a.renderError(c, err)
	}
	return a.renderSignIn(c, res)
}

type passwordUpdateRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

func (a *AuthAPI) PasswordUpdate(c echo.Context) error {
	var req passwordUpdateRequest
	if err := c.Bind(&req); err != nil {
		return a.renderError(c, autherr.NewSchemaValidation("body", "malformed JSON"))
	}
	claims := a.claims(c)
	err := a.svc.UpdatePassword(c.Request().Context(), tenant(c), claims.Subject, claims.SessionID, req.OldPassword, req.NewPassword)
	if err != nil {
		return a.renderError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}

type sendResetCodeRequest struct {
	Email       string `json:"email"`
	CallbackURL string `json:"callback_url"`
}

func (a *AuthAPI) SendPasswordResetCode(c echo.Context) error {
	var req sendResetCodeRequest
	if err := c.Bind(&req); err != nil {
		return a.renderError(c, autherr.NewSchemaValidation("body", "malformed JSON"))
	}
	if _, err := a.svc.SendPasswordResetCode(c.Request().Context(), tenant(c), req.Email, req.CallbackURL); err != nil {
		return a.renderError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}

type passwordResetRequest struct {
	Code     string `json:"code"`
	Password string `json:"password"`
}

func (a *AuthAPI) PasswordReset(c echo.Context) error {
	var req passwordResetRequest
	if err := c.Bind(&req); err != nil {
		return a.renderError(c, autherr.NewSchemaValidation("body", "malformed JSON"))
	}
	if err := a.svc.ResetPassword(c.Request().Context(), tenant(c), req.Code, req.Password); err != nil {
		return a.renderError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}

func (a *AuthAPI) PasswordResetCheck(c echo.Context) error {
	var req passwordResetRequest
	if err := c.Bind(&req); err != nil {
		return a.renderError(c, autherr.NewSchemaValidation("body", "malformed JSON"))
	}
	return a.renderCheck(c, a.svc.CheckPasswordResetCode(c.Request().Context(), tenant(c), req.Code))
}

type sendVerificationCodeRequest struct {
	Email       string `json:"email"`
	CallbackURL string `json:"callback_url"`
}

func (a *AuthAPI) SendContactVerificationCode(c echo.Context) error {
	var req sendVerificationCodeRequest
	if err := c.Bind(&req); err != nil {
		return a.renderError(c, autherr.NewSchemaValidation("body", "malformed JSON"))
	}
	claims := a.claims(c)
	if _, err := a.svc.SendContactVerificationCode(c.Request().Context(), tenant(c), claims.Subject, req.Email, req.CallbackURL); err != nil {
		return a.renderError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}

type verifyContactChannelRequest struct {
	Code string `json:"code"`
}

func (a *AuthAPI) VerifyContactChannel(c echo.Context) error {
	var req verifyContactChannelRequest
	if err := c.Bind(&req); err != nil {
		return a.renderError(c, autherr.NewSchemaValidation("body", "malformed JSON"))
	}
	if err := a.svc.VerifyContactChannel(c.Request().Context(), tenant(c), req.Code); err != nil {
		return a.renderError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}

func (a *AuthAPI) PasskeyInitiate(c echo.Context) error {
	challenge, err := a.svc.InitiatePasskeyAuthentication(c.Request().Context(), tenant(c))
	if err != nil {
		return a.renderError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{
		"challenge": challenge.Challenge,
		"code":      challenge.Code,
	})
}

type passkeySignInRequest struct {
	Code                   string          `json:"code"`
	AuthenticationResponse json.RawMessage `json:"authentication_response"`
}

func (a *AuthAPI) PasskeySignIn(c echo.Context) error {
	var req passkeySignInRequest
	if err := c.Bind(&req); err != nil {
		return a.renderError(c, autherr.NewSchemaValidation("body", "malformed JSON"))
	}
	res, err := a.svc.SignInWithPasskey(c.Request().Context(), tenant(c), req.Code, req.AuthenticationResponse)
	if err != nil {
		return a.renderError(c, err)
	}
	return a.renderSignIn(c, res)
}

type issueSessionRequest struct {
	UserID string `json:"user_id"`
}

func (a *AuthAPI) IssueSession(c echo.Context) error {
	var req issueSessionRequest
	if err := c.Bind(&req); err != nil {
		return a.renderError(c, autherr.NewSchemaValidation("body", "malformed JSON"))
	}
	if req.UserID == "" {
		return a.renderError(c, autherr.NewSchemaValidation("user_id", "user_id is required"))
	}
	pair, err := a.svc.IssueSessionForUser(c.Request().Context(), tenant(c), req.UserID)
	if err != nil {
		return a.renderError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (a *AuthAPI) Refresh(c echo.Context) error {
	var req refreshRequest
	if err := c.Bind(&req); err != nil {
		return a.renderError(c, autherr.NewSchemaValidation("body", "malformed JSON"))
	}
	access, expiresAt, err := a.svc.RefreshSession(c.Request().Context(), tenant(c), req.RefreshToken)
	if err != nil {
		return a.renderError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"access_token": access,
		"expires_at":   expiresAt.Format(time.RFC3339),
	})
}

func (a *AuthAPI) SignOut(c echo.Context) error {
	var req refreshRequest
	if err := c.Bind(&req); err != nil {
		return a.renderError(c, autherr.NewSchemaValidation("body", "malformed JSON"))
	}
	if err := a.svc.SignOut(c.Request().Context(), tenant(c), req.RefreshToken); err != nil {
		return a.renderError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}

// DevSignInCode returns the latest code mailed to an address. Dev only.
func (a *AuthAPI) DevSignInCode(c echo.Context) error {
	email := c.QueryParam("email")
	code, ok := a.devCodes.Get(c.Request().Context(), tenant(c).ID, email)
	if !ok {
		return c.JSON(http.StatusNotFound, errorBody{Code: "CODE_NOT_FOUND", Error: "no code on record for this email"})
	}
	return c.JSON(http.StatusOK, map[string]string{"code": code})
}

func (a *AuthAPI) claims(c echo.Context) *security.AccessClaims {
	return c.Get(claimsContextKey).(*security.AccessClaims)
}
