package handler

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fakaperformance/contest-api/internal/core/domain"
)

type errorResponse struct {
	Error string `json:"error"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// flexID accepts numeric ids sent either as JSON numbers or strings, in a
// body or a query string.
type flexID uint

func (f *flexID) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "null" {
		*f = 0
		return nil
	}
	return f.UnmarshalParam(s)
}

// UnmarshalParam satisfies echo.BindUnmarshaler.
func (f *flexID) UnmarshalParam(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid id %q", s)
	}
	*f = flexID(n)
	return nil
}

// rawAmount keeps a money amount as sent, either a JSON string or a number.
// Parsing is left to the service.
type rawAmount string

func (a *rawAmount) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*a = rawAmount(s)
		return nil
	}
	*a = rawAmount(strings.TrimSpace(string(b)))
	return nil
}

// --- Accounts ---

type registerRequest struct {
	Username string `json:"username" validate:"required"`
}

type registerResponse struct {
	Message  string `json:"message"`
	Username string `json:"username"`
	FPCode   string `json:"fp_code"`
}

type roleResponse struct {
	ID          uint     `json:"id"`
	Name        string   `json:"name"`
	Color       string   `json:"color"`
	Permissions []string `json:"permissions"`
}

type userResponse struct {
	ID        uint           `json:"id"`
	Username  string         `json:"username"`
	FPCode    string         `json:"fp_code"`
	Balance   float64        `json:"balance"`
	IBAN      string         `json:"iban"`
	Roles     []roleResponse `json:"roles"`
	CreatedAt time.Time      `json:"createdAt"`
}

type ibanRequest struct {
	IBAN string `json:"iban" validate:"required"`
}

type transactionResponse struct {
	ID            uint      `json:"id"`
	Type          string    `json:"type"`
	Amount        float64   `json:"amount"`
	Status        string    `json:"status"`
	WithdrawID    string    `json:"withdrawId,omitempty"`
	FailureReason string    `json:"failureReason,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// --- Wallet ---

// depositRequest is validated by the service after the apiKey check.
type depositRequest struct {
	Amount    rawAmount `json:"amount" swaggertype:"string" example:"150.50"`
	Code      string    `json:"code"`
	APIKey    string    `json:"apiKey"`
	Reference string    `json:"reference"`
}

type depositResponse struct {
	Message       string  `json:"message"`
	Status        string  `json:"status"`
	TransactionID uint    `json:"transaction_id"`
	Balance       float64 `json:"balance"`
	Duplicate     bool    `json:"duplicate,omitempty"`
}

type withdrawRequest struct {
	UserID flexID          `json:"user_id" validate:"required"`
	Amount decimal.Decimal `json:"amount"`
	IBAN   string          `json:"iban"`
}

type withdrawResponse struct {
	Message       string  `json:"message"`
	TransactionID uint    `json:"transaction_id"`
	WithdrawID    string  `json:"withdraw_id"`
	NewBalance    float64 `json:"new_balance"`
}

// --- Entries and votes ---

type entryResponse struct {
	ID            uint      `json:"id"`
	ImageURL      string    `json:"imageUrl"`
	Description   string    `json:"description"`
	OwnerUsername string    `json:"ownerUsername"`
	VotesCount    int64     `json:"votesCount"`
	CreatedAt     time.Time `json:"createdAt"`
}

type submitEntryResponse struct {
	Message string        `json:"message"`
	Entry   entryResponse `json:"entry"`
}

type cancelEntryRequest struct {
	UserID flexID `json:"user_id" query:"user_id"`
}

type cancelEntryResponse struct {
	Message  string  `json:"message"`
	EntryID  uint    `json:"entry_id"`
	Refunded float64 `json:"refunded"`
	Balance  float64 `json:"balance"`
}

type voteRequest struct {
	VoterID    flexID `json:"voter_id" validate:"required"`
	EntryID    flexID `json:"entry_id" validate:"required"`
	WeekNumber *int   `json:"week_number"`
}

type voteResponse struct {
	ID         uint      `json:"id"`
	VoterID    uint      `json:"voterId"`
	EntryID    uint      `json:"entryId"`
	WeekNumber int       `json:"weekNumber"`
	CreatedAt  time.Time `json:"createdAt"`
}

type castVoteResponse struct {
	Message string       `json:"message"`
	Vote    voteResponse `json:"vote"`
}

// --- Editions ---

// editionRequest is the flattened wire form of an edition: the attributes
// share one object with the content sections.
type editionRequest struct {
	ID            string
	EditionNumber int
	Status        string
	Content       domain.EditionContent
}

func (r *editionRequest) UnmarshalJSON(data []byte) error {
	var meta struct {
		ID            string `json:"id"`
		EditionNumber int    `json:"editionNumber"`
		Status        string `json:"status"`
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return err
	}
	var content domain.EditionContent
	if err := json.Unmarshal(data, &content); err != nil {
		return err
	}
	r.ID = meta.ID
	r.EditionNumber = meta.EditionNumber
	r.Status = meta.Status
	r.Content = content
	return nil
}

type editionResponse struct {
	ID            string
	EditionNumber int
	Status        string
	CreatedAt     time.Time
	PublishedAt   *time.Time
	Content       domain.EditionContent
}

func (r editionResponse) MarshalJSON() ([]byte, error) {
	raw, err := json.Marshal(r.Content)
	if err != nil {
		return nil, err
	}
	var merged map[string]json.RawMessage
	if err := json.Unmarshal(raw, &merged); err != nil {
		return nil, err
	}
	meta := map[string]any{
		"id":            r.ID,
		"editionNumber": r.EditionNumber,
		"status":        r.Status,
		"createdAt":     r.CreatedAt,
		"publishedAt":   r.PublishedAt,
	}
	for k, v := range meta {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		merged[k] = b
	}
	return json.Marshal(merged)
}

type successResponse struct {
	Success bool `json:"success"`
}

// --- Settings ---

type publicSettingsResponse struct {
	EntryFee    float64 `json:"entryFee"`
	CurrentWeek int     `json:"currentWeek"`
}

type settingsResponse struct {
	EntryFee    float64   `json:"entryFee"`
	APIKey      string    `json:"apiKey"`
	WithdrawURL string    `json:"withdrawUrl"`
	CurrentWeek int       `json:"currentWeek"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type updateSettingsRequest struct {
	EntryFee    *decimal.Decimal `json:"entryFee"`
	APIKey      *string          `json:"apiKey"`
	WithdrawURL *string          `json:"withdrawUrl"`
	CurrentWeek *int             `json:"currentWeek"`
}

type updateSettingsResponse struct {
	Message  string           `json:"message"`
	Settings settingsResponse `json:"settings"`
}

// --- Admin ---

type verifyRequest struct {
	Password string `json:"password" validate:"required"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

type sessionResponse struct {
	Subject string         `json:"subject"`
	Roles   []roleResponse `json:"roles"`
}

type createRoleRequest struct {
	Name        string   `json:"name" validate:"required,max=64"`
	Color       string   `json:"color"`
	Permissions []string `json:"permissions"`
}

type assignRoleRequest struct {
	RoleID flexID `json:"role_id" validate:"required"`
}
