package sqlstore

import (
	"time"

	"gorm.io/datatypes"

	"github.com/fakaperformance/contest-api/internal/core/domain"
)

type userModel struct {
	ID           uint   `gorm:"primaryKey"`
	Username     string `gorm:"uniqueIndex;size:32;not null"`
	FPCode       string `gorm:"column:fp_code;uniqueIndex;size:16;not null"`
	BalanceCents cents  `gorm:"not null;default:0"`
	IBAN         string `gorm:"column:iban;size:34"`
	CreatedAt    time.Time
	Roles        []roleModel `gorm:"many2many:user_roles;joinForeignKey:UserID;joinReferences:RoleID"`
}

func (userModel) TableName() string { return "users" }

type roleModel struct {
	ID          uint                        `gorm:"primaryKey"`
	Name        string                      `gorm:"uniqueIndex;size:64;not null"`
	Color       string                      `gorm:"size:16"`
	Permissions datatypes.JSONSlice[string] `gorm:"not null"`
	CreatedAt   time.Time
}

func (roleModel) TableName() string { return "roles" }

type transactionModel struct {
	ID            uint      `gorm:"primaryKey"`
	UserID        uint      `gorm:"index;not null"`
	User          userModel `gorm:"constraint:OnDelete:RESTRICT"`
	Type          string    `gorm:"size:16;not null"`
	AmountCents   cents     `gorm:"not null"`
	Status        string    `gorm:"size:16;index;not null"`
	ExternalID    *string   `gorm:"column:external_id;uniqueIndex;size:64"`
	FailureReason string    `gorm:"size:255"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (transactionModel) TableName() string { return "transactions" }

type entryModel struct {
	ID           uint      `gorm:"primaryKey"`
	UserID       uint      `gorm:"index;not null"`
	User         userModel `gorm:"constraint:OnDelete:RESTRICT"`
	ImageURL     string    `gorm:"size:255;not null"`
	Description  string    `gorm:"size:1000"`
	WeekNumber   int       `gorm:"index;not null"`
	FeePaidCents cents     `gorm:"not null;default:0"`
	CreatedAt    time.Time
}

func (entryModel) TableName() string { return "entries" }

type voteModel struct {
	ID         uint       `gorm:"primaryKey"`
	VoterID    uint       `gorm:"uniqueIndex:idx_votes_voter_week;not null"`
	Voter      userModel  `gorm:"foreignKey:VoterID;constraint:OnDelete:RESTRICT"`
	EntryID    uint       `gorm:"index;not null"`
	Entry      entryModel `gorm:"constraint:OnDelete:CASCADE"`
	WeekNumber int        `gorm:"uniqueIndex:idx_votes_voter_week;not null"`
	CreatedAt  time.Time
}

func (voteModel) TableName() string { return "votes" }

type editionModel struct {
	ID            string                                    `gorm:"primaryKey;size:64"`
	EditionNumber int                                       `gorm:"index;not null"`
	Status        string                                    `gorm:"size:16;index;not null"`
	Content       datatypes.JSONType[domain.EditionContent] `gorm:"not null"`
	CreatedAt     time.Time
	PublishedAt   *time.Time
}

func (editionModel) TableName() string { return "magazine_editions" }

type settingsModel struct {
	ID            uint   `gorm:"primaryKey;autoIncrement:false"`
	EntryFeeCents cents  `gorm:"not null"`
	APIKey        string `gorm:"column:api_key;size:255"`
	WithdrawURL   string `gorm:"column:withdraw_url;size:512"`
	CurrentWeek   int    `gorm:"not null"`
	UpdatedAt     time.Time
}

func (settingsModel) TableName() string { return "site_settings" }

// ---------------------------------------------------------------------------
// Mapping
// ---------------------------------------------------------------------------

func toDomainRole(m roleModel) domain.Role {
	perms := []string(m.Permissions)
	if perms == nil {
		perms = []string{}
	}
	return domain.Role{ID: m.ID, Name: m.Name, Color: m.Color, Permissions: perms}
}

func toDomainUser(m *userModel) *domain.User {
	u := &domain.User{
		ID:        m.ID,
		Username:  m.Username,
		FPCode:    m.FPCode,
		Balance:   m.BalanceCents.Decimal(),
		IBAN:      m.IBAN,
		CreatedAt: m.CreatedAt,
		Roles:     make([]domain.Role, 0, len(m.Roles)),
	}
	for _, r := range m.Roles {
		u.Roles = append(u.Roles, toDomainRole(r))
	}
	return u
}

func toDomainTransaction(m *transactionModel) domain.Transaction {
	t := domain.Transaction{
		ID:            m.ID,
		UserID:        m.UserID,
		Type:          domain.TransactionType(m.Type),
		Amount:        m.AmountCents.Decimal(),
		Status:        domain.TransactionStatus(m.Status),
		FailureReason: m.FailureReason,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
	if m.ExternalID != nil {
		t.ExternalID = *m.ExternalID
	}
	return t
}

func toDomainEdition(m *editionModel) *domain.Edition {
	return &domain.Edition{
		ID:            m.ID,
		EditionNumber: m.EditionNumber,
		Status:        domain.EditionStatus(m.Status),
		Content:       m.Content.Data(),
		CreatedAt:     m.CreatedAt,
		PublishedAt:   m.PublishedAt,
	}
}

func toDomainSettings(m *settingsModel) *domain.Settings {
	return &domain.Settings{
		EntryFee:    m.EntryFeeCents.Decimal(),
		APIKey:      m.APIKey,
		WithdrawURL: m.WithdrawURL,
		CurrentWeek: m.CurrentWeek,
		UpdatedAt:   m.UpdatedAt,
	}
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
