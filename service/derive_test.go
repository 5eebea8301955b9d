package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/settlelinecompany-commits/contract-intelligence-agent/config"
	"github.com/settlelinecompany-commits/contract-intelligence-agent/model"
)

func mustDate(t *testing.T, s string) model.Date {
	t.Helper()
	d, err := model.ParseDate(s)
	require.NoError(t, err)
	return d
}

func defaultDeriveConfig() config.DeriveConfig {
	return config.DeriveConfig{
		ReminderLeadDays:        3,
		RenewalAlertDays:        60,
		DepositGraceDays:        14,
		MaintenanceIntervalDays: 90,
	}
}

func eventsOfType(events []model.Event, t model.EventType) []model.Event {
	var out []model.Event
	for _, e := range events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func TestDeriveNoticeDeadlineAccountsForMonthLength(t *testing.T) {
	rec := &model.ContractRecord{}
	rec.Lease.EndDate = mustDate(t, "2025-02-28")
	rec.Lease.NoticePeriodDays = 90

	events := DeriveEvents(rec, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), defaultDeriveConfig())

	notices := eventsOfType(events, model.EventNoticeDeadline)
	require.Len(t, notices, 1)
	assert.Equal(t, "2024-11-30", notices[0].DueDate.String())
	assert.Equal(t, "lease.notice_period_days", notices[0].SourceField)
}

func TestDerivePaymentReminderLead(t *testing.T) {
	rec := &model.ContractRecord{
		PaymentSchedule: []model.ScheduledPayment{
			{DueDate: mustDate(t, "2025-11-05"), Amount: 5000},
		},
	}

	events := DeriveEvents(rec, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), defaultDeriveConfig())

	reminders := eventsOfType(events, model.EventPaymentReminder)
	require.Len(t, reminders, 1)
	assert.Equal(t, "2025-11-02", reminders[0].DueDate.String())
	assert.Equal(t, "payment_schedule[0]", reminders[0].SourceField)
	assert.False(t, reminders[0].Overdue)
}

func TestDeriveRenewalAndDeposit(t *testing.T) {
	rec := &model.ContractRecord{}
	rec.Lease.EndDate = mustDate(t, "2025-07-19")
	rec.Lease.DepositAmount = 4000

	events := DeriveEvents(rec, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), defaultDeriveConfig())

	renewals := eventsOfType(events, model.EventRenewalAlert)
	require.Len(t, renewals, 1)
	assert.Equal(t, "2025-05-20", renewals[0].DueDate.String())

	deposits := eventsOfType(events, model.EventDepositReturnFollowUp)
	require.Len(t, deposits, 1)
	assert.Equal(t, "2025-08-02", deposits[0].DueDate.String())
	assert.Equal(t, "lease.deposit_amount", deposits[0].SourceField)
}

func TestDeriveMaintenanceChecks(t *testing.T) {
	rec := &model.ContractRecord{
		Responsibilities: map[string]string{"maintenance": "landlord handles major repairs"},
	}
	rec.Lease.StartDate = mustDate(t, "2025-01-01")
	rec.Lease.EndDate = mustDate(t, "2025-12-31")

	events := DeriveEvents(rec, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), defaultDeriveConfig())

	checks := eventsOfType(events, model.EventMaintenanceCheck)
	// 90-day cadence within a one-year lease: Apr 1, Jun 30, Sep 28, Dec 27.
	require.Len(t, checks, 4)
	assert.Equal(t, "2025-04-01", checks[0].DueDate.String())
	assert.Equal(t, "2025-12-27", checks[3].DueDate.String())
}

func TestDeriveNoMaintenanceClauseNoChecks(t *testing.T) {
	rec := &model.ContractRecord{}
	rec.Lease.StartDate = mustDate(t, "2025-01-01")
	rec.Lease.EndDate = mustDate(t, "2025-12-31")

	events := DeriveEvents(rec, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), defaultDeriveConfig())
	assert.Empty(t, eventsOfType(events, model.EventMaintenanceCheck))
}

func TestDeriveAbsentFieldsSkipRules(t *testing.T) {
	// Nothing usable on the record: no events at all, no placeholders.
	events := DeriveEvents(&model.ContractRecord{}, time.Now(), defaultDeriveConfig())
	assert.Empty(t, events)

	// End date without notice period or deposit: renewal alert only.
	rec := &model.ContractRecord{}
	rec.Lease.EndDate = mustDate(t, "2026-01-01")
	events = DeriveEvents(rec, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), defaultDeriveConfig())
	require.Len(t, events, 1)
	assert.Equal(t, model.EventRenewalAlert, events[0].Type)
}

func TestDeriveOverdueStamping(t *testing.T) {
	rec := &model.ContractRecord{
		PaymentSchedule: []model.ScheduledPayment{
			{DueDate: mustDate(t, "2025-03-10"), Amount: 1000},
			{DueDate: mustDate(t, "2025-06-10"), Amount: 1000},
		},
	}

	now := time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC)
	events := DeriveEvents(rec, now, defaultDeriveConfig())

	require.Len(t, events, 2)
	assert.True(t, events[0].Overdue, "2025-03-07 is before now")
	assert.False(t, events[1].Overdue, "2025-06-07 is after now")
}

func TestDeriveOverdueBoundaryIsNotOverdue(t *testing.T) {
	rec := &model.ContractRecord{
		PaymentSchedule: []model.ScheduledPayment{
			{DueDate: mustDate(t, "2025-04-04"), Amount: 1000},
		},
	}

	// Derived due date 2025-04-01 equals today: due, not overdue.
	now := time.Date(2025, 4, 1, 23, 59, 0, 0, time.UTC)
	events := DeriveEvents(rec, now, defaultDeriveConfig())
	require.Len(t, events, 1)
	assert.False(t, events[0].Overdue)
}

func TestDeriveDeterministic(t *testing.T) {
	rec := &model.ContractRecord{
		Responsibilities: map[string]string{"maintenance": "shared"},
		PaymentSchedule: []model.ScheduledPayment{
			{DueDate: mustDate(t, "2025-07-20"), Amount: 12000, Label: "Cheque 1"},
			{DueDate: mustDate(t, "2025-10-20"), Amount: 12000, Label: "Cheque 2"},
		},
	}
	rec.Lease.StartDate = mustDate(t, "2025-07-20")
	rec.Lease.EndDate = mustDate(t, "2026-07-19")
	rec.Lease.DepositAmount = 4000
	rec.Lease.NoticePeriodDays = 90

	now := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	first := DeriveEvents(rec, now, defaultDeriveConfig())
	second := DeriveEvents(rec, now, defaultDeriveConfig())

	assert.Equal(t, first, second)
}

func TestDeriveDeduplicatesIdenticalEvents(t *testing.T) {
	due := mustDate(t, "2025-09-01")
	rec := &model.ContractRecord{
		PaymentSchedule: []model.ScheduledPayment{
			{DueDate: due, Amount: 5000, Label: "Cheque 3"},
			{DueDate: due, Amount: 5000, Label: "Cheque 3 (duplicate row)"},
		},
	}

	events := DeriveEvents(rec, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), defaultDeriveConfig())

	// Different source fields, so both survive dedup.
	require.Len(t, events, 2)
	assert.NotEqual(t, events[0].SourceField, events[1].SourceField)
	assert.NotEqual(t, events[0].ID, events[1].ID)
}

func TestDeriveSortedByDueDateThenType(t *testing.T) {
	rec := &model.ContractRecord{
		Responsibilities: map[string]string{"maintenance": "tenant"},
		PaymentSchedule: []model.ScheduledPayment{
			{DueDate: mustDate(t, "2026-01-15"), Amount: 6000},
			{DueDate: mustDate(t, "2025-08-15"), Amount: 6000},
		},
	}
	rec.Lease.StartDate = mustDate(t, "2025-07-01")
	rec.Lease.EndDate = mustDate(t, "2026-06-30")
	rec.Lease.DepositAmount = 3000
	rec.Lease.NoticePeriodDays = 60

	events := DeriveEvents(rec, time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC), defaultDeriveConfig())
	require.NotEmpty(t, events)

	for i := 1; i < len(events); i++ {
		prev, cur := events[i-1], events[i]
		if prev.DueDate.Equal(cur.DueDate) {
			assert.LessOrEqual(t, string(prev.Type), string(cur.Type))
		} else {
			assert.True(t, prev.DueDate.Before(cur.DueDate))
		}
	}
}
