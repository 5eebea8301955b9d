package service

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/settlelinecompany-commits/contract-intelligence-agent/config"
	"github.com/settlelinecompany-commits/contract-intelligence-agent/model"
)

// DeriveEvents maps a contract record to its actionable events using a
// fixed rule table. It is pure: no I/O, no randomness, and calling it
// twice on the same record and clock yields an identical list. A rule
// whose source fields are absent is silently skipped; no placeholder
// events are emitted. The result is deduplicated by (type, dueDate,
// sourceField) and sorted by due date, ties broken by type name.
func DeriveEvents(rec *model.ContractRecord, now time.Time, cfg config.DeriveConfig) []model.Event {
	today := model.DateOf(now)
	var events []model.Event

	// Payment reminders: one per scheduled payment.
	for i, p := range rec.PaymentSchedule {
		if p.DueDate.IsZero() {
			continue
		}
		label := p.Label
		if label == "" {
			label = fmt.Sprintf("Payment %d", i+1)
		}
		events = append(events, newEvent(
			model.EventPaymentReminder,
			p.DueDate.AddDays(-cfg.ReminderLeadDays),
			fmt.Sprintf("Rent payment due %s", p.DueDate),
			fmt.Sprintf("%s of %s is due on %s", label, formatAmount(p.Amount), p.DueDate),
			fmt.Sprintf("payment_schedule[%d]", i),
			today,
		))
	}

	end := rec.Lease.EndDate
	if !end.IsZero() {
		events = append(events, newEvent(
			model.EventRenewalAlert,
			end.AddDays(-cfg.RenewalAlertDays),
			"Lease renewal decision window",
			fmt.Sprintf("Lease ends on %s; decide whether to renew or move out", end),
			"lease.end_date",
			today,
		))

		if rec.Lease.NoticePeriodDays > 0 {
			events = append(events, newEvent(
				model.EventNoticeDeadline,
				end.AddDays(-rec.Lease.NoticePeriodDays),
				"Notice deadline",
				fmt.Sprintf("Last day to give %d days notice before the lease ends on %s", rec.Lease.NoticePeriodDays, end),
				"lease.notice_period_days",
				today,
			))
		}

		if rec.Lease.DepositAmount > 0 {
			events = append(events, newEvent(
				model.EventDepositReturnFollowUp,
				end.AddDays(cfg.DepositGraceDays),
				"Deposit return follow-up",
				fmt.Sprintf("Follow up on the return of the %s deposit", formatAmount(rec.Lease.DepositAmount)),
				"lease.deposit_amount",
				today,
			))
		}

		start := rec.Lease.StartDate
		if !start.IsZero() && cfg.MaintenanceIntervalDays > 0 && hasMaintenanceClause(rec) {
			for d := start.AddDays(cfg.MaintenanceIntervalDays); !d.After(end); d = d.AddDays(cfg.MaintenanceIntervalDays) {
				events = append(events, newEvent(
					model.EventMaintenanceCheck,
					d,
					"Scheduled maintenance check",
					"Periodic maintenance check per the contract maintenance clause",
					"responsibilities.maintenance",
					today,
				))
			}
		}
	}

	events = dedupeEvents(events)
	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].DueDate.Equal(events[j].DueDate) {
			return events[i].DueDate.Before(events[j].DueDate)
		}
		return events[i].Type < events[j].Type
	})
	return events
}

func newEvent(t model.EventType, due model.Date, title, description, sourceField string, today model.Date) model.Event {
	return model.Event{
		ID:          fmt.Sprintf("%s:%s:%s", t, due, sourceField),
		Type:        t,
		DueDate:     due,
		Title:       title,
		Description: description,
		SourceField: sourceField,
		Overdue:     due.Before(today),
	}
}

// hasMaintenanceClause reports whether the contract indicates any
// maintenance arrangement.
func hasMaintenanceClause(rec *model.ContractRecord) bool {
	for k, v := range rec.Responsibilities {
		if strings.Contains(strings.ToLower(k), "maintenance") && strings.TrimSpace(v) != "" {
			return true
		}
	}
	return false
}

// dedupeEvents drops later events sharing an identity key, preserving
// rule-table order.
func dedupeEvents(events []model.Event) []model.Event {
	seen := make(map[string]struct{}, len(events))
	out := events[:0]
	for _, e := range events {
		key := e.IdentityKey()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, e)
	}
	return out
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
