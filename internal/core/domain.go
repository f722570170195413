package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// SettingsID is the fixed identifier of the single AppSettings row.
const SettingsID = "default"

const (
	SourceCash    SourceType = "cash"
	SourceBank    SourceType = "bank"
	SourceCredit  SourceType = "credit"
	SourceDigital SourceType = "digital"
	SourceOther   SourceType = "other"
)

type (
	// SourceType classifies where the money for an expense comes from.
	SourceType string

	// AppSettings is the singleton application configuration row.
	// PasswordHash is never serialized to clients.
	AppSettings struct {
		ID            string          `json:"id"`
		PasswordHash  string          `json:"-"`
		MonthlyBudget decimal.Decimal `json:"monthlyBudget"`
		Currency      string          `json:"currency"`
		CreatedAt     time.Time       `json:"createdAt"`
		UpdatedAt     time.Time       `json:"updatedAt"`
	}

	// Category groups expenses and carries its own monthly allowance.
	Category struct {
		ID        string          `json:"id"`
		Name      string          `json:"name"`
		Color     string          `json:"color"`
		Icon      string          `json:"icon"`
		Budget    decimal.Decimal `json:"budget"`
		CreatedAt time.Time       `json:"createdAt"`
	}

	// FundingSource is an account or wallet expenses can be paid from.
	FundingSource struct {
		ID        string          `json:"id"`
		Name      string          `json:"name"`
		Type      SourceType      `json:"type"`
		Balance   decimal.Decimal `json:"balance"`
		Icon      string          `json:"icon"`
		CreatedAt time.Time       `json:"createdAt"`
	}

	// Expense is a single ledger entry. FundingSourceID is optional;
	// CategoryID must reference an existing category at write time.
	Expense struct {
		ID              string          `json:"id"`
		Amount          decimal.Decimal `json:"amount"`
		Description     string          `json:"description"`
		Date            time.Time       `json:"date"`
		CategoryID      string          `json:"categoryId"`
		FundingSourceID string          `json:"fundingSourceId,omitempty"`
		CreatedAt       time.Time       `json:"createdAt"`
	}
)

var (
	ErrInvalidAmount      = errors.New("amount must be positive")
	ErrNegativeBudget     = errors.New("budget cannot be negative")
	ErrEmptyDescription   = errors.New("description is required")
	ErrDescriptionTooLong = errors.New("description too long (max 200 characters)")
	ErrEmptyName          = errors.New("name is required")
	ErrEmptyCategory      = errors.New("category is required")
	ErrEmptyCurrency      = errors.New("currency is required")
	ErrInvalidType        = errors.New("invalid funding source type")
)

// DefaultCurrency is used when settings are created without an explicit one.
const DefaultCurrency = "IDR"

func (t SourceType) Valid() bool {
	switch t {
	case SourceCash, SourceBank, SourceCredit, SourceDigital, SourceOther:
		return true
	}
	return false
}

// DefaultIcon returns the icon used when a funding source is created
// without one.
func (t SourceType) DefaultIcon() string {
	switch t {
	case SourceBank:
		return "🏦"
	case SourceCash:
		return "💵"
	case SourceCredit:
		return "💳"
	default:
		return "💰"
	}
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if c.Budget.IsNegative() {
		return ErrNegativeBudget
	}
	return nil
}

func (f FundingSource) Validate() error {
	if strings.TrimSpace(f.Name) == "" {
		return ErrEmptyName
	}
	if !f.Type.Valid() {
		return ErrInvalidType
	}
	return nil
}

func (e Expense) Validate() error {
	if !e.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(e.Description) == "" {
		return ErrEmptyDescription
	}
	if len(e.Description) > 200 {
		return ErrDescriptionTooLong
	}
	if strings.TrimSpace(e.CategoryID) == "" {
		return ErrEmptyCategory
	}
	return nil
}

func (s AppSettings) Validate() error {
	if s.MonthlyBudget.IsNegative() {
		return ErrNegativeBudget
	}
	if strings.TrimSpace(s.Currency) == "" {
		return ErrEmptyCurrency
	}
	return nil
}
