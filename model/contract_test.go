package model

import (
	"encoding/json"
	"testing"
	"time"
)

func TestDateParseAndString(t *testing.T) {
	d, err := ParseDate("2025-02-28")
	if err != nil {
		t.Fatalf("ParseDate failed: %v", err)
	}
	if d.String() != "2025-02-28" {
		t.Errorf("Expected 2025-02-28, got %s", d.String())
	}

	if _, err := ParseDate("28/02/2025"); err == nil {
		t.Error("Expected error for non ISO date")
	}
	if _, err := ParseDate("2025-02-30"); err == nil {
		t.Error("Expected error for impossible date")
	}
}

func TestDateZeroValue(t *testing.T) {
	var d Date
	if !d.IsZero() {
		t.Error("Expected zero value to report IsZero")
	}
	if d.String() != "" {
		t.Errorf("Expected empty string for zero date, got %q", d.String())
	}
}

func TestDateAddDays(t *testing.T) {
	tests := []struct {
		start    string
		days     int
		expected string
	}{
		{"2025-02-28", -90, "2024-11-30"},
		{"2025-11-05", -3, "2025-11-02"},
		{"2025-07-19", 14, "2025-08-02"},
		{"2024-02-28", 1, "2024-02-29"}, // leap year
		{"2025-12-31", 1, "2026-01-01"},
	}

	for _, tt := range tests {
		d, err := ParseDate(tt.start)
		if err != nil {
			t.Fatalf("ParseDate(%s) failed: %v", tt.start, err)
		}
		got := d.AddDays(tt.days).String()
		if got != tt.expected {
			t.Errorf("%s + %d days: expected %s, got %s", tt.start, tt.days, tt.expected, got)
		}
	}
}

func TestDateComparisons(t *testing.T) {
	a, _ := ParseDate("2025-01-01")
	b, _ := ParseDate("2025-06-01")

	if !a.Before(b) || b.Before(a) {
		t.Error("Before comparison wrong")
	}
	if !b.After(a) || a.After(b) {
		t.Error("After comparison wrong")
	}
	if !a.Equal(a) || a.Equal(b) {
		t.Error("Equal comparison wrong")
	}
}

func TestDateOfDropsTimeOfDay(t *testing.T) {
	late := time.Date(2025, 4, 1, 23, 59, 59, 0, time.UTC)
	early := time.Date(2025, 4, 1, 0, 0, 1, 0, time.UTC)

	if !DateOf(late).Equal(DateOf(early)) {
		t.Error("Expected same calendar day regardless of time of day")
	}
}

func TestDateJSONRoundTrip(t *testing.T) {
	d, _ := ParseDate("2025-07-20")

	data, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(data) != `"2025-07-20"` {
		t.Errorf("Unexpected JSON %s", data)
	}

	var back Date
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if !back.Equal(d) {
		t.Error("Round trip changed the date")
	}
}

func TestDateJSONNullAndEmpty(t *testing.T) {
	var d Date
	data, _ := json.Marshal(d)
	if string(data) != "null" {
		t.Errorf("Expected null for zero date, got %s", data)
	}

	for _, raw := range []string{"null", `""`} {
		var parsed Date
		if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
			t.Fatalf("Unmarshal(%s) failed: %v", raw, err)
		}
		if !parsed.IsZero() {
			t.Errorf("Expected %s to decode as absent", raw)
		}
	}
}

func TestContractRecordJSON(t *testing.T) {
	raw := `{
	  "property": {"address": "Arjan, Dubai", "type": "Residential"},
	  "unit": {"number": "Apt 113", "size_sqm": 85.4},
	  "landlord": {"name": "A. Landlord", "contact": "+971500000001"},
	  "tenant": {"name": "B. Tenant", "contact": "tenant@example.com"},
	  "lease": {
	    "start_date": "2021-07-20",
	    "end_date": "2022-07-19",
	    "rent_amount": 48000,
	    "deposit_amount": 4000,
	    "notice_period_days": 90
	  },
	  "payment_schedule": [{"due_date": "2021-07-20", "amount": 48000, "label": "Cheque 1"}],
	  "responsibilities": {"maintenance": "landlord"},
	  "documents": {"ejari": true}
	}`

	var rec ContractRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if rec.Lease.StartDate.String() != "2021-07-20" {
		t.Errorf("Unexpected start date %s", rec.Lease.StartDate)
	}
	if rec.Lease.NoticePeriodDays != 90 {
		t.Errorf("Unexpected notice period %d", rec.Lease.NoticePeriodDays)
	}
	if len(rec.PaymentSchedule) != 1 || rec.PaymentSchedule[0].Label != "Cheque 1" {
		t.Errorf("Unexpected payment schedule %+v", rec.PaymentSchedule)
	}
	if !rec.Documents["ejari"] {
		t.Error("Expected ejari document flag")
	}
}
