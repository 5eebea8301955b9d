package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Date is a calendar date with no time component. The zero value means
// the field was absent from the contract. JSON form is "2006-01-02".
type Date struct {
	t time.Time
}

// NewDate builds a Date from year, month and day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates a time.Time to its calendar date.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseDate parses a "2006-01-02" string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return DateOf(t), nil
}

func (d Date) IsZero() bool { return d.t.IsZero() }

// AddDays returns the date shifted by n calendar days (n may be negative).
func (d Date) AddDays(n int) Date {
	return DateOf(d.t.AddDate(0, 0, n))
}

func (d Date) Before(o Date) bool { return d.t.Before(o.t) }
func (d Date) After(o Date) bool  { return d.t.After(o.t) }
func (d Date) Equal(o Date) bool  { return d.t.Equal(o.t) }

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format("2006-01-02")
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s *string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == nil || *s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(*s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ContractRecord is the structured representation of a rental contract
// returned by the field extractor. It is immutable once produced; the
// derivation and validation stages only read it.
type ContractRecord struct {
	Property         Property           `json:"property"`
	Unit             Unit               `json:"unit"`
	Landlord         Party              `json:"landlord"`
	Tenant           Party              `json:"tenant"`
	Lease            Lease              `json:"lease"`
	PaymentSchedule  []ScheduledPayment `json:"payment_schedule"`
	Responsibilities map[string]string  `json:"responsibilities"`
	Documents        map[string]bool    `json:"documents"`
}

type Property struct {
	Address string `json:"address"`
	Type    string `json:"type"`
}

type Unit struct {
	Number  string  `json:"number"`
	SizeSqm float64 `json:"size_sqm"`
}

type Party struct {
	Name    string `json:"name"`
	Contact string `json:"contact"`
}

type Lease struct {
	StartDate        Date    `json:"start_date"`
	EndDate          Date    `json:"end_date"`
	RentAmount       float64 `json:"rent_amount"`
	DepositAmount    float64 `json:"deposit_amount"`
	NoticePeriodDays int     `json:"notice_period_days"`
}

type ScheduledPayment struct {
	DueDate Date    `json:"due_date"`
	Amount  float64 `json:"amount"`
	Label   string  `json:"label"`
}
