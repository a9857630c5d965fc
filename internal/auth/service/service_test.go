package service

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	ccdomain "tenantauth/internal/contactchannel/domain"
	"tenantauth/internal/devcode"
	"tenantauth/internal/mailer"
	"tenantauth/internal/passkey"
	pkdomain "tenantauth/internal/passkey/domain"
	"tenantauth/internal/security"
	sessiondomain "tenantauth/internal/session/domain"
	sessionservice "tenantauth/internal/session/service"
	tenantdomain "tenantauth/internal/tenant/domain"
	userdomain "tenantauth/internal/user/domain"
	vcdomain "tenantauth/internal/verificationcode/domain"
	vcservice "tenantauth/internal/verificationcode/service"
)

// In-memory fakes for every repository the auth service touches.

type memUsers struct {
	mu sync.Mutex
	m  map[string]*userdomain.User // tenant|id
}

func newMemUsers() *memUsers { return &memUsers{m: make(map[string]*userdomain.User)} }

func ukey(tenantID, id string) string { return tenantID + "|" + id }

func (r *memUsers) GetByID(_ context.Context, tenantID, id string) (*userdomain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.m[ukey(tenantID, id)]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (r *memUsers) Create(_ context.Context, u *userdomain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *u
	r.m[ukey(u.TenantID, u.ID)] = &cp
	return nil
}

func (r *memUsers) UpdatePasswordHash(_ context.Context, tenantID, id, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.m[ukey(tenantID, id)]; ok {
		u.PasswordHash = hash
	}
	return nil
}

func (r *memUsers) EnableOTPAuth(_ context.Context, tenantID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.m[ukey(tenantID, id)]; ok {
		u.OTPAuthEnabled = true
	}
	return nil
}

type memChannels struct {
	mu sync.Mutex
	m  []*ccdomain.ContactChannel
}

func (r *memChannels) GetByID(_ context.Context, tenantID, id string) (*ccdomain.ContactChannel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.m {
		if c.TenantID == tenantID && c.ID == id {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memChannels) GetAuthChannel(_ context.Context, tenantID string, typ ccdomain.ChannelType, value string) (*ccdomain.ContactChannel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.m {
		if c.TenantID == tenantID && c.Type == typ && c.Value == value && c.UsedForAuth {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memChannels) Create(_ context.Context, c *ccdomain.ContactChannel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.m {
		if existing.TenantID == c.TenantID && existing.Type == c.Type && existing.Value == c.Value && existing.UsedForAuth && c.UsedForAuth {
			return errors.New("duplicate auth channel value")
		}
	}
	cp := *c
	r.m = append(r.m, &cp)
	return nil
}

func (r *memChannels) MarkVerified(_ context.Context, tenantID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.m {
		if c.TenantID == tenantID && c.ID == id {
			c.IsVerified = true
		}
	}
	return nil
}

type memPasskeys struct {
	mu sync.Mutex
	m  []*pkdomain.Credential
}

func (r *memPasskeys) GetByCredentialID(_ context.Context, tenantID, credentialID string) (*pkdomain.Credential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.m {
		if c.TenantID == tenantID && c.CredentialID == credentialID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memPasskeys) Create(_ context.Context, c *pkdomain.Credential) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *c
	r.m = append(r.m, &cp)
	return nil
}

func (r *memPasskeys) UpdateCounter(_ context.Context, tenantID, id string, counter uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.m {
		if c.TenantID == tenantID && c.ID == id {
			c.Counter = counter
		}
	}
	return nil
}

type memSessions struct {
	mu sync.Mutex
	m  map[string]*sessiondomain.Session
}

func newMemSessions() *memSessions { return &memSessions{m: make(map[string]*sessiondomain.Session)} }

func (r *memSessions) GetByRefreshTokenHash(_ context.Context, hash string) (*sessiondomain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.m {
		if s.RefreshTokenHash == hash {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memSessions) Create(_ context.Context, s *sessiondomain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.m[s.ID] = &cp
	return nil
}

func (r *memSessions) Revoke(_ context.Context, tenantID, id string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.m[id]; ok && s.TenantID == tenantID && s.RevokedAt == nil {
		at := now
		s.RevokedAt = &at
	}
	return nil
}

func (r *memSessions) RevokeAllByUser(_ context.Context, tenantID, userID, exceptSessionID string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.m {
		if s.TenantID == tenantID && s.UserID == userID && s.ID != exceptSessionID && s.RevokedAt == nil {
			at := now
			s.RevokedAt = &at
		}
	}
	return nil
}

func (r *memSessions) UpdateLastUsed(_ context.Context, tenantID, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.m[id]; ok && s.TenantID == tenantID {
		t := at
		s.LastUsedAt = &t
	}
	return nil
}

type memCodes struct {
	mu sync.Mutex
	m  map[string]*vcdomain.Code
}

func newMemCodes() *memCodes { return &memCodes{m: make(map[string]*vcdomain.Code)} }

func ckey(tenantID string, typ vcdomain.CodeType, code string) string {
	return tenantID + "|" + string(typ) + "|" + code
}

func (r *memCodes) Create(_ context.Context, c *vcdomain.Code) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *c
	r.m[ckey(c.TenantID, c.Type, c.Code)] = &cp
	return nil
}

func (r *memCodes) GetByCode(_ context.Context, tenantID string, typ vcdomain.CodeType, code string) (*vcdomain.Code, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.m[ckey(tenantID, typ, code)]
	if !ok {
		return nil, nil
	}
	cp := *row
	return &cp, nil
}

func (r *memCodes) Consume(_ context.Context, tenantID string, typ vcdomain.CodeType, code string, now time.Time) (*vcdomain.Code, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.m[ckey(tenantID, typ, code)]
	if !ok {
		return nil, false, nil
	}
	cp := *row
	if row.UsedAt != nil || row.Expired(now) {
		return &cp, false, nil
	}
	used := now
	row.UsedAt = &used
	cp.UsedAt = &used
	return &cp, true, nil
}

type captureMailer struct {
	mu   sync.Mutex
	sent []mailer.Message
	fail error
}

func (m *captureMailer) Send(_ context.Context, msg mailer.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *captureMailer) last(t *testing.T) mailer.Message {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		t.Fatal("no mail was sent")
	}
	return m.sent[len(m.sent)-1]
}

type fakeVerifier struct {
	result passkey.Result
	err    error
	last   passkey.Assertion
}

func (v *fakeVerifier) VerifyAssertion(_ context.Context, a passkey.Assertion) (passkey.Result, error) {
	v.last = a
	return v.result, v.err
}

// harness wires a full auth service over in-memory fakes.
type harness struct {
	svc      *Service
	users    *memUsers
	channels *memChannels
	passkeys *memPasskeys
	sessions *sessionservice.Issuer
	mail     *captureMailer
	dev      *devcode.MemoryStore
	verifier *fakeVerifier
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	tokens, err := security.NewTestTokenProvider()
	if err != nil {
		t.Fatalf("test token provider: %v", err)
	}
	h := &harness{
		users:    newMemUsers(),
		channels: &memChannels{},
		passkeys: &memPasskeys{},
		mail:     &captureMailer{},
		dev:      devcode.NewMemoryStore(),
		verifier: &fakeVerifier{},
	}
	h.sessions = sessionservice.NewIssuer(newMemSessions(), tokens, 24*time.Hour, nil, zerolog.Nop())
	h.svc = NewService(Deps{
		Users:    h.users,
		Channels: h.channels,
		Passkeys: h.passkeys,
		Verifier: h.verifier,
		Sessions: h.sessions,
		Codes:    vcservice.NewStore(newMemCodes()),
		Hasher:   security.NewHasher(4), // min cost keeps tests fast
		Mailer:   h.mail,
		DevCodes: h.dev,
		Log:      zerolog.Nop(),
	})
	return h
}

func allEnabledTenant() *tenantdomain.Tenant {
	return &tenantdomain.Tenant{
		ID:              "tenant-1",
		DisplayName:     "Acme",
		TrustedDomains:  []string{"https://app.example.com"},
		OTPEnabled:      true,
		PasswordEnabled: true,
		PasskeyEnabled:  true,
		SignUpEnabled:   true,
	}
}

var mailCodeRe = regexp.MustCompile(`code=([a-z2-7]+)`)

// codeFromMail pulls the full verification code out of the delivered link.
func codeFromMail(t *testing.T, msg mailer.Message) string {
	t.Helper()
	m := mailCodeRe.FindStringSubmatch(msg.Body)
	if m == nil {
		t.Fatalf("no code link in mail body: %q", msg.Body)
	}
	return m[1]
}

// seedUser inserts a user with a verified auth email channel.
func (h *harness) seedUser(t *testing.T, tenantID, email string, mutate func(*userdomain.User)) *userdomain.User {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()
	u := &userdomain.User{
		ID:           "user-" + email,
		TenantID:     tenantID,
		PrimaryEmail: email,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if mutate != nil {
		mutate(u)
	}
	if err := h.users.Create(ctx, u); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	if err := h.channels.Create(ctx, &ccdomain.ContactChannel{
		ID:          "ch-" + email,
		TenantID:    tenantID,
		UserID:      u.ID,
		Type:        ccdomain.ChannelTypeEmail,
		Value:       email,
		IsVerified:  true,
		UsedForAuth: true,
		CreatedAt:   now,
	}); err != nil {
		t.Fatalf("seed channel: %v", err)
	}
	return u
}

func (h *harness) hashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := security.NewHasher(4).Hash([]byte(password))
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return hash
}
