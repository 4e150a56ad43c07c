package domain

import (
	"math/big"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// DepositCodeLength is the number of digits in a generated deposit code.
	DepositCodeLength = 6
	// DepositCodePrefix is shown in front of the code in user-facing text.
	DepositCodePrefix = "FP-"

	minUsernameLen = 3
	maxUsernameLen = 32
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9_.-]+$`)

// User is a registered participant. Balance never goes negative.
type User struct {
	ID        uint
	Username  string
	FPCode    string
	Balance   decimal.Decimal
	IBAN      string
	Roles     []Role
	CreatedAt time.Time
}

// DisplayCode returns the deposit code with its user-facing prefix.
func (u *User) DisplayCode() string {
	return DepositCodePrefix + u.FPCode
}

// NormalizeUsername trims and lower-cases a username.
func NormalizeUsername(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// ValidateUsername checks an already normalized username.
func ValidateUsername(username string) error {
	switch {
	case username == "":
		return Invalid("username", "is required")
	case len(username) < minUsernameLen || len(username) > maxUsernameLen:
		return Invalid("username", "must be between 3 and 32 characters")
	case !usernamePattern.MatchString(username):
		return Invalid("username", "may only contain letters, digits, '.', '_' and '-'")
	}
	return nil
}

// NormalizeDepositCode strips whitespace and an optional "FP-" prefix.
func NormalizeDepositCode(raw string) string {
	code := strings.TrimSpace(raw)
	if len(code) >= len(DepositCodePrefix) && strings.EqualFold(code[:len(DepositCodePrefix)], DepositCodePrefix) {
		code = code[len(DepositCodePrefix):]
	}
	return code
}

// NormalizeIBAN removes spaces and upper-cases the value.
func NormalizeIBAN(raw string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(raw), " ", ""))
}

// ValidateIBAN checks length, character set and the ISO 13616 mod-97 checksum
// of a normalized IBAN.
func ValidateIBAN(iban string) error {
	if len(iban) < 15 || len(iban) > 34 {
		return Invalid("iban", "must be between 15 and 34 characters")
	}
	for i, r := range iban {
		isLetter := r >= 'A' && r <= 'Z'
		isDigit := r >= '0' && r <= '9'
		if i < 2 && !isLetter || i >= 2 && i < 4 && !isDigit || !isLetter && !isDigit {
			return Invalid("iban", "is not a valid IBAN")
		}
	}

	rearranged := iban[4:] + iban[:4]
	var digits strings.Builder
	for _, r := range rearranged {
		if r >= 'A' && r <= 'Z' {
			digits.WriteString(big.NewInt(int64(r-'A') + 10).String())
			continue
		}
		digits.WriteRune(r)
	}
	n, ok := new(big.Int).SetString(digits.String(), 10)
	if !ok || new(big.Int).Mod(n, big.NewInt(97)).Int64() != 1 {
		return Invalid("iban", "checksum mismatch")
	}
	return nil
}
