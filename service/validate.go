package service

import (
	"sort"

	"github.com/settlelinecompany-commits/contract-intelligence-agent/model"
)

// fieldRequirement is one entry of the enumerated required-field schema.
// resolve reports whether the field is present on the record.
type fieldRequirement struct {
	path            string
	severity        model.Severity
	description     string
	suggestedAction string
	resolve         func(rec *model.ContractRecord) bool
}

var requiredFields = []fieldRequirement{
	{
		path:            "property.address",
		severity:        model.SeverityRequired,
		description:     "Property address is missing",
		suggestedAction: "Add the property address from the contract or Ejari certificate",
		resolve:         func(r *model.ContractRecord) bool { return r.Property.Address != "" },
	},
	{
		path:            "unit.number",
		severity:        model.SeverityImportant,
		description:     "Unit number is missing",
		suggestedAction: "Confirm the unit number with the landlord or agent",
		resolve:         func(r *model.ContractRecord) bool { return r.Unit.Number != "" },
	},
	{
		path:            "landlord.name",
		severity:        model.SeverityRequired,
		description:     "Landlord name is missing",
		suggestedAction: "Add the landlord name as written in the contract",
		resolve:         func(r *model.ContractRecord) bool { return r.Landlord.Name != "" },
	},
	{
		path:            "landlord.contact",
		severity:        model.SeverityImportant,
		description:     "Landlord contact is missing",
		suggestedAction: "Add a phone number or email for the landlord",
		resolve:         func(r *model.ContractRecord) bool { return r.Landlord.Contact != "" },
	},
	{
		path:            "tenant.name",
		severity:        model.SeverityRequired,
		description:     "Tenant name is missing",
		suggestedAction: "Add the tenant name as written in the contract",
		resolve:         func(r *model.ContractRecord) bool { return r.Tenant.Name != "" },
	},
	{
		path:            "tenant.contact",
		severity:        model.SeverityRequired,
		description:     "Tenant contact is missing",
		suggestedAction: "Add a phone number or email for the tenant",
		resolve:         func(r *model.ContractRecord) bool { return r.Tenant.Contact != "" },
	},
	{
		path:            "lease.start_date",
		severity:        model.SeverityRequired,
		description:     "Lease start date is missing",
		suggestedAction: "Add the lease start date from the contract",
		resolve:         func(r *model.ContractRecord) bool { return !r.Lease.StartDate.IsZero() },
	},
	{
		path:            "lease.end_date",
		severity:        model.SeverityRequired,
		description:     "Lease end date is missing",
		suggestedAction: "Add the lease end date from the contract",
		resolve:         func(r *model.ContractRecord) bool { return !r.Lease.EndDate.IsZero() },
	},
	{
		path:            "lease.rent_amount",
		severity:        model.SeverityRequired,
		description:     "Rent amount is missing",
		suggestedAction: "Add the annual rent amount from the contract",
		resolve:         func(r *model.ContractRecord) bool { return r.Lease.RentAmount > 0 },
	},
	{
		path:            "lease.deposit_amount",
		severity:        model.SeverityImportant,
		description:     "Deposit amount is missing",
		suggestedAction: "Add the refundable security deposit amount",
		resolve:         func(r *model.ContractRecord) bool { return r.Lease.DepositAmount > 0 },
	},
	{
		path:            "lease.notice_period_days",
		severity:        model.SeverityImportant,
		description:     "Notice period is missing",
		suggestedAction: "Confirm the renewal/termination notice period in days",
		resolve:         func(r *model.ContractRecord) bool { return r.Lease.NoticePeriodDays > 0 },
	},
}

// ValidateCompleteness checks the record against the enumerated
// required-field schema plus cross-field rules. Pure and deterministic;
// output is sorted by severity descending, then field path ascending.
func ValidateCompleteness(rec *model.ContractRecord) []model.Gap {
	var gaps []model.Gap

	for _, f := range requiredFields {
		if f.resolve(rec) {
			continue
		}
		gaps = append(gaps, model.Gap{
			FieldPath:       f.path,
			Severity:        f.severity,
			Description:     f.description,
			SuggestedAction: f.suggestedAction,
		})
	}

	// Payment schedule is validated as a cross-field rule so the
	// message can reference the stated rent amount.
	if len(rec.PaymentSchedule) == 0 {
		desc := "No payment schedule was extracted from the contract"
		action := "Add the cheque or installment dates and amounts"
		if rec.Lease.RentAmount > 0 {
			desc = "Rent amount is stated but the payment schedule is empty"
			action = "Confirm the cheque dates and amounts against the contract or cheque images"
		}
		gaps = append(gaps, model.Gap{
			FieldPath:       "payment_schedule",
			Severity:        model.SeverityImportant,
			Description:     desc,
			SuggestedAction: action,
		})
	}

	sort.SliceStable(gaps, func(i, j int) bool {
		if gaps[i].Severity != gaps[j].Severity {
			return gaps[i].Severity > gaps[j].Severity
		}
		return gaps[i].FieldPath < gaps[j].FieldPath
	})
	return gaps
}
