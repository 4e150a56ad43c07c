package domain

import (
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// SettingsID is the primary key of the singleton settings row.
const SettingsID = 1

// Settings is the site-wide configuration edited from the admin panel.
// An empty APIKey disables deposits.
type Settings struct {
	EntryFee    decimal.Decimal
	APIKey      string
	WithdrawURL string
	CurrentWeek int
	UpdatedAt   time.Time
}

// DefaultSettings returns the values used when the row is first created.
func DefaultSettings() Settings {
	return Settings{
		EntryFee:    decimal.NewFromInt(1000),
		CurrentWeek: 1,
	}
}

// SettingsPatch is a partial update; nil fields are left untouched.
type SettingsPatch struct {
	EntryFee    *decimal.Decimal
	APIKey      *string
	WithdrawURL *string
	CurrentWeek *int
}

// IsEmpty reports whether the patch changes nothing.
func (p SettingsPatch) IsEmpty() bool {
	return p.EntryFee == nil && p.APIKey == nil && p.WithdrawURL == nil && p.CurrentWeek == nil
}

// Validate checks the fields present in the patch.
func (p SettingsPatch) Validate() error {
	if p.EntryFee != nil {
		if p.EntryFee.IsNegative() {
			return Invalid("entryFee", "must not be negative")
		}
		if err := requireCents("entryFee", *p.EntryFee); err != nil {
			return err
		}
	}
	if p.CurrentWeek != nil && *p.CurrentWeek < 1 {
		return Invalid("currentWeek", "must be at least 1")
	}
	if p.WithdrawURL != nil {
		raw := strings.TrimSpace(*p.WithdrawURL)
		if raw != "" {
			u, err := url.Parse(raw)
			if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
				return Invalid("withdrawUrl", "must be an absolute http(s) URL")
			}
		}
	}
	return nil
}

// Apply returns s with the patch applied.
func (p SettingsPatch) Apply(s Settings) Settings {
	if p.EntryFee != nil {
		s.EntryFee = *p.EntryFee
	}
	if p.APIKey != nil {
		s.APIKey = strings.TrimSpace(*p.APIKey)
	}
	if p.WithdrawURL != nil {
		s.WithdrawURL = strings.TrimSpace(*p.WithdrawURL)
	}
	if p.CurrentWeek != nil {
		s.CurrentWeek = *p.CurrentWeek
	}
	return s
}
