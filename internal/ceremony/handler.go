// Package ceremony implements the generic send/check/redeem flow every
// code-based authentication ceremony shares. A Handler is parameterized by
// four payload types: D (data stored with the code), M (how the code was
// requested), B (the redeem request body), and R (the redeem result). The
// concrete ceremonies in internal/auth instantiate Handlers with their own
// schemas and business callbacks.
package ceremony

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"tenantauth/internal/autherr"
	"tenantauth/internal/events"
	tenantdomain "tenantauth/internal/tenant/domain"
	vcdomain "tenantauth/internal/verificationcode/domain"
	vcservice "tenantauth/internal/verificationcode/service"
)

// Validator is implemented by payload types that carry their own schema
// checks. The handler runs it after every JSON decode.
type Validator interface {
	Validate() error
}

// CreateOptions describes one code to create for a ceremony.
type CreateOptions[D, M any] struct {
	Tenant *tenantdomain.Tenant
	// Data is stored with the code and handed back to the ceremony's
	// callbacks at redeem time.
	Data D
	// Method records how the code was requested (e.g. which email address).
	Method M
	// CallbackURL, when set, must pass the tenant's trusted-domain check;
	// the issued link embeds the code as its `code` query parameter.
	CallbackURL *string
	// ExpiresIn overrides the ceremony's default code lifetime when positive.
	ExpiresIn time.Duration
}

// SendReceipt is what SendCode returns to the API caller. Nonce is the
// ceremony-specific continuation token (it is derived from the code but never
// sufficient to redeem on its own); it may be empty for ceremonies that
// deliver the whole code out of band.
type SendReceipt struct {
	Nonce     string
	ExpiresAt time.Time
}

// Config wires one concrete ceremony into the generic handler.
type Config[D, M, B, R any] struct {
	// Type tags the ceremony's rows in the code store. Required.
	Type vcdomain.CodeType
	// Expiry is the default code lifetime. Zero falls back to the store default.
	Expiry time.Duration
	// Send delivers the freshly issued code to the user. Ceremonies that
	// only ever hand the code back to the caller leave it nil.
	Send func(ctx context.Context, issued *vcservice.Issued, opts CreateOptions[D, M]) (*SendReceipt, error)
	// Validate, when set, runs before the code is consumed. A failure here
	// (wrong TOTP, bad assertion) leaves the code unused so the caller can
	// retry with the same code.
	Validate func(ctx context.Context, t *tenantdomain.Tenant, method M, data D, body B) error
	// Handle runs the ceremony's effect after the code has been consumed.
	// It runs at most once per code. Required.
	Handle func(ctx context.Context, t *tenantdomain.Tenant, method M, data D, body B) (R, error)
}

// Handler runs one ceremony's create/send/check/redeem operations on top of
// the verification code store. Safe for concurrent use.
type Handler[D, M, B, R any] struct {
	cfg   Config[D, M, B, R]
	codes *vcservice.Store
	emit  events.Emitter
	log   zerolog.Logger
}

// New returns a Handler for cfg. cfg.Type and cfg.Handle must be set.
func New[D, M, B, R any](cfg Config[D, M, B, R], codes *vcservice.Store, emit events.Emitter, log zerolog.Logger) *Handler[D, M, B, R] {
	if emit == nil {
		emit = events.Noop{}
	}
	return &Handler[D, M, B, R]{cfg: cfg, codes: codes, emit: emit, log: log}
}

// CreateCode validates the payloads and callback URL, then issues a code.
// The returned Issued carries the raw code; callers deliver it, never log it.
func (h *Handler[D, M, B, R]) CreateCode(ctx context.Context, opts CreateOptions[D, M]) (*vcservice.Issued, error) {
	if opts.Tenant == nil {
		return nil, fmt.Errorf("ceremony %s: tenant is required", h.cfg.Type)
	}
	if err := checkValue(opts.Data); err != nil {
		return nil, autherr.NewSchemaValidation("data", err.Error())
	}
	if err := checkValue(opts.Method); err != nil {
		return nil, autherr.NewSchemaValidation("method", err.Error())
	}
	if opts.CallbackURL != nil && !ValidateCallbackURL(*opts.CallbackURL, opts.Tenant) {
		return nil, autherr.ErrRedirectURLNotWhitelisted
	}
	data, err := json.Marshal(opts.Data)
	if err != nil {
		return nil, fmt.Errorf("ceremony %s: encode data: %w", h.cfg.Type, err)
	}
	method, err := json.Marshal(opts.Method)
	if err != nil {
		return nil, fmt.Errorf("ceremony %s: encode method: %w", h.cfg.Type, err)
	}
	expiresIn := opts.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = h.cfg.Expiry
	}
	return h.codes.Create(ctx, vcservice.CreateParams{
		TenantID:    opts.Tenant.ID,
		Type:        h.cfg.Type,
		Data:        data,
		Method:      method,
		ExpiresIn:   expiresIn,
		CallbackURL: opts.CallbackURL,
	})
}

// SendCode creates a code and delivers it through the ceremony's Send
// callback. A Send failure surfaces to the caller; the orphaned row simply
// expires.
func (h *Handler[D, M, B, R]) SendCode(ctx context.Context, opts CreateOptions[D, M]) (*SendReceipt, error) {
	if h.cfg.Send == nil {
		return nil, fmt.Errorf("ceremony %s: sending is not supported", h.cfg.Type)
	}
	issued, err := h.CreateCode(ctx, opts)
	if err != nil {
		return nil, err
	}
	receipt, err := h.cfg.Send(ctx, issued, opts)
	if err != nil {
		return nil, err
	}
	if receipt == nil {
		receipt = &SendReceipt{}
	}
	if receipt.ExpiresAt.IsZero() {
		receipt.ExpiresAt = issued.ExpiresAt
	}
	if err := h.emit.Emit(ctx, events.Event{
		Type:     events.TypeCodeSent,
		TenantID: opts.Tenant.ID,
		Meta:     map[string]string{"code_type": string(h.cfg.Type)},
	}); err != nil {
		h.log.Warn().Err(err).Str("code_type", string(h.cfg.Type)).Msg("emit code.sent failed")
	}
	return receipt, nil
}

// CheckCode reports whether the code would currently be redeemable, without
// consuming it. Advisory only: a nil return guarantees nothing about a later
// Redeem, since another caller may consume the code in between.
func (h *Handler[D, M, B, R]) CheckCode(ctx context.Context, t *tenantdomain.Tenant, code string) error {
	row, err := h.codes.Peek(ctx, t.ID, h.cfg.Type, code)
	if err != nil {
		return err
	}
	if _, _, err := h.decodeRow(row); err != nil {
		return err
	}
	return nil
}

// Redeem spends the code and runs the ceremony's effect exactly once. The
// stored payloads are re-checked against the ceremony's schemas first, then
// the optional Validate hook runs; only after both pass is the code consumed,
// so a failed secondary check (wrong TOTP) leaves the code retryable.
func (h *Handler[D, M, B, R]) Redeem(ctx context.Context, t *tenantdomain.Tenant, code string, body B) (R, error) {
	var zero R
	if h.cfg.Handle == nil {
		return zero, fmt.Errorf("ceremony %s: no handler configured", h.cfg.Type)
	}
	row, err := h.codes.Peek(ctx, t.ID, h.cfg.Type, code)
	if err != nil {
		return zero, err
	}
	data, method, err := h.decodeRow(row)
	if err != nil {
		return zero, err
	}
	if err := checkValue(body); err != nil {
		return zero, autherr.NewSchemaValidation("body", err.Error())
	}
	if h.cfg.Validate != nil {
		if err := h.cfg.Validate(ctx, t, method, data, body); err != nil {
			return zero, err
		}
	}
	if _, err := h.codes.Consume(ctx, t.ID, h.cfg.Type, code); err != nil {
		return zero, err
	}
	if err := h.emit.Emit(ctx, events.Event{
		Type:     events.TypeCodeRedeemed,
		TenantID: t.ID,
		Meta:     map[string]string{"code_type": string(h.cfg.Type)},
	}); err != nil {
		h.log.Warn().Err(err).Str("code_type", string(h.cfg.Type)).Msg("emit code.redeemed failed")
	}
	return h.cfg.Handle(ctx, t, method, data, body)
}

// decodeRow unmarshals and schema-checks the stored payloads. A failure here
// is an integrity error (the row was written by a different schema), not a
// caller mistake.
func (h *Handler[D, M, B, R]) decodeRow(row *vcdomain.Code) (D, M, error) {
	var (
		data   D
		method M
	)
	if err := decodePayload(row.Data, &data); err != nil {
		return data, method, fmt.Errorf("ceremony %s: stored data does not match schema: %w", h.cfg.Type, err)
	}
	if err := decodePayload(row.Method, &method); err != nil {
		return data, method, fmt.Errorf("ceremony %s: stored method does not match schema: %w", h.cfg.Type, err)
	}
	return data, method, nil
}

func decodePayload(raw json.RawMessage, dst any) error {
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return err
	}
	return checkValue(dst)
}

// checkValue runs the payload's own Validate when it has one. Payload types
// declare Validate on the value receiver so both values and pointers satisfy
// the interface.
func checkValue(v any) error {
	if val, ok := v.(Validator); ok {
		return val.Validate()
	}
	return nil
}
