package types

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"time"
)

// Settings drives the behavior of the verification service.
// APIBaseURL, APIKey and InstanceName identify the Evolution API instance the
// proxy calls; all three must be set before any verification can happen.
// IntlPrefix is the international dialing prefix enforced on normalized numbers.
// CacheSalt is an opaque token mixed into every cache key. Stores regenerate it
// whenever a credential field changes, which makes every previously cached
// verification unreachable without deleting anything.
// ResponseExpr is an optional JMESPath expression applied to the decoded
// upstream body instead of the default array-shaped parsing. It must yield
// an object with an `exists` boolean.
type Settings struct {
	APIBaseURL   string `json:"api_base_url" yaml:"api_base_url" dynamodbav:"api_base_url"`
	APIKey       string `json:"api_key" yaml:"api_key" dynamodbav:"api_key"`
	InstanceName string `json:"instance_name" yaml:"instance_name" dynamodbav:"instance_name"`
	IntlPrefix   string `json:"intl_prefix" yaml:"intl_prefix" dynamodbav:"intl_prefix"`
	CacheSalt    string `json:"cache_salt" yaml:"cache_salt" dynamodbav:"cache_salt"`

	// CacheTTLSeconds bounds cached verification results. 0 disables caching.
	CacheTTLSeconds int `json:"cache_ttl_seconds" yaml:"cache_ttl_seconds" dynamodbav:"cache_ttl_seconds"`

	ShowModal        bool   `json:"show_modal" yaml:"show_modal" dynamodbav:"show_modal"`
	StrictValidation bool   `json:"strict_validation" yaml:"strict_validation" dynamodbav:"strict_validation"`
	ResponseExpr     string `json:"response_expr,omitempty" yaml:"response_expr" dynamodbav:"response_expr"`

	Messages Messages `json:"messages" yaml:"messages" dynamodbav:"messages"`
}

const (
	DefaultIntlPrefix      = "55"
	DefaultCacheTTLSeconds = 12 * 60 * 60

	saltBytes = 16
)

// Messages is the localized message catalog surfaced to the checkout client
// and used for failure responses. Empty fields fall back to the Portuguese
// defaults at render time.
type Messages struct {
	Checking     string `json:"checking,omitempty" yaml:"checking" dynamodbav:"checking"`
	Incomplete   string `json:"incomplete,omitempty" yaml:"incomplete" dynamodbav:"incomplete"`
	Valid        string `json:"valid,omitempty" yaml:"valid" dynamodbav:"valid"`
	NotWhatsApp  string `json:"not_whatsapp,omitempty" yaml:"not_whatsapp" dynamodbav:"not_whatsapp"`
	UnknownError string `json:"unknown_error,omitempty" yaml:"unknown_error" dynamodbav:"unknown_error"`
	VerifyError  string `json:"verify_error,omitempty" yaml:"verify_error" dynamodbav:"verify_error"`
	Attention    string `json:"attention,omitempty" yaml:"attention" dynamodbav:"attention"`
	Proceed      string `json:"proceed,omitempty" yaml:"proceed" dynamodbav:"proceed"`
	Name         string `json:"name,omitempty" yaml:"name" dynamodbav:"name"`
	// NonWhatsAppWarning is the body of the confirmation modal shown when a
	// number verifies as not having WhatsApp.
	NonWhatsAppWarning string `json:"nonwhatsapp_msg,omitempty" yaml:"nonwhatsapp_msg" dynamodbav:"nonwhatsapp_msg"`
}

var defaultMessages = Messages{
	Checking:           "Verificando número...",
	Incomplete:         "Número de telefone incompleto",
	Valid:              "✓ Número de WhatsApp válido",
	NotWhatsApp:        "⚠ Este número não possui WhatsApp",
	UnknownError:       "Não foi possível verificar o número",
	VerifyError:        "Erro na verificação. Tente novamente.",
	Attention:          "Atenção!",
	Proceed:            "Prosseguir sem WhatsApp",
	Name:               "Nome",
	NonWhatsAppWarning: "O número informado não é WhatsApp. Você não receberá a confirmação por mensagem.",
}

// DefaultSettings returns a Settings with defaults applied and no credentials.
func DefaultSettings() Settings {
	return Settings{
		IntlPrefix:      DefaultIntlPrefix,
		CacheTTLSeconds: DefaultCacheTTLSeconds,
		ShowModal:       true,
	}
}

// Configured reports whether the upstream API can be called at all.
func (s Settings) Configured() bool {
	return s.APIBaseURL != "" && s.APIKey != "" && s.InstanceName != ""
}

// Prefix returns the dialing prefix, defaulted.
func (s Settings) Prefix() string {
	if s.IntlPrefix == "" {
		return DefaultIntlPrefix
	}
	return s.IntlPrefix
}

// CacheTTL returns the configured TTL as a duration. 0 means do not cache.
func (s Settings) CacheTTL() time.Duration {
	if s.CacheTTLSeconds < 0 {
		return 0
	}
	return time.Duration(s.CacheTTLSeconds) * time.Second
}

// ResolvedMessages returns the catalog with defaults filled in for empty fields.
func (s Settings) ResolvedMessages() Messages {
	m := s.Messages
	d := defaultMessages
	if m.Checking == "" {
		m.Checking = d.Checking
	}
	if m.Incomplete == "" {
		m.Incomplete = d.Incomplete
	}
	if m.Valid == "" {
		m.Valid = d.Valid
	}
	if m.NotWhatsApp == "" {
		m.NotWhatsApp = d.NotWhatsApp
	}
	if m.UnknownError == "" {
		m.UnknownError = d.UnknownError
	}
	if m.VerifyError == "" {
		m.VerifyError = d.VerifyError
	}
	if m.Attention == "" {
		m.Attention = d.Attention
	}
	if m.Proceed == "" {
		m.Proceed = d.Proceed
	}
	if m.Name == "" {
		m.Name = d.Name
	}
	if m.NonWhatsAppWarning == "" {
		m.NonWhatsAppWarning = d.NonWhatsAppWarning
	}
	return m
}

// CredentialsEqual reports whether the fields that feed cache keys are the
// same in both settings. A change in any of them must rotate the salt.
func (s Settings) CredentialsEqual(o Settings) bool {
	return s.APIBaseURL == o.APIBaseURL &&
		s.APIKey == o.APIKey &&
		s.InstanceName == o.InstanceName &&
		s.Prefix() == o.Prefix()
}

// CredentialDigest is a deterministic fingerprint of the credential fields.
// File-backed stores use it as a fallback salt when none is persisted, so a
// hand-edited config file still invalidates stale cache entries.
func (s Settings) CredentialDigest() string {
	h := sha256.Sum256([]byte(s.APIBaseURL + "|" + s.APIKey + "|" + s.InstanceName + "|" + s.Prefix()))
	return hex.EncodeToString(h[:8])
}

// NewSalt generates a fresh opaque cache salt.
func NewSalt() string {
	b := make([]byte, saltBytes)
	// crypto/rand.Read never fails on supported platforms
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// WithRotatedSalt returns next with its salt regenerated if any credential
// field differs from prev, or if next has no salt yet. Stores call this from
// Save so rotation behaves the same across backends.
func WithRotatedSalt(prev, next Settings) Settings {
	if next.CacheSalt == "" || !prev.CredentialsEqual(next) {
		next.CacheSalt = NewSalt()
	}
	return next
}

func (s Settings) Validate() error {
	if s.APIBaseURL != "" {
		u, err := url.Parse(s.APIBaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("api_base_url must be an absolute URL")
		}
	}
	if s.APIBaseURL != "" && s.APIKey == "" {
		return fmt.Errorf("api_key is required when api_base_url is set")
	}
	if s.APIBaseURL != "" && s.InstanceName == "" {
		return fmt.Errorf("instance_name is required when api_base_url is set")
	}
	for _, r := range s.IntlPrefix {
		if r < '0' || r > '9' {
			return fmt.Errorf("intl_prefix must contain only digits")
		}
	}
	if s.CacheTTLSeconds < 0 {
		return fmt.Errorf("cache_ttl_seconds must be non-negative. 0 disables caching")
	}
	return nil
}
