package service

import (
	"encoding/json"
	"errors"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// contractRecordSchema validates the shape of the extractor response
// before it is decoded. Leaf values are nullable: a missing field is a
// completeness gap, not a schema violation. Wrong types and malformed
// dates are schema violations.
const contractRecordSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["property", "unit", "landlord", "tenant", "lease"],
  "properties": {
    "property": {
      "type": "object",
      "properties": {
        "address": {"type": ["string", "null"]},
        "type": {"type": ["string", "null"]}
      }
    },
    "unit": {
      "type": "object",
      "properties": {
        "number": {"type": ["string", "null"]},
        "size_sqm": {"type": ["number", "null"]}
      }
    },
    "landlord": {"$ref": "#/$defs/party"},
    "tenant": {"$ref": "#/$defs/party"},
    "lease": {
      "type": "object",
      "properties": {
        "start_date": {"$ref": "#/$defs/date"},
        "end_date": {"$ref": "#/$defs/date"},
        "rent_amount": {"type": ["number", "null"], "minimum": 0},
        "deposit_amount": {"type": ["number", "null"], "minimum": 0},
        "notice_period_days": {"type": ["integer", "null"], "minimum": 0}
      }
    },
    "payment_schedule": {
      "type": ["array", "null"],
      "items": {
        "type": "object",
        "required": ["due_date", "amount"],
        "properties": {
          "due_date": {"$ref": "#/$defs/date"},
          "amount": {"type": ["number", "null"], "minimum": 0},
          "label": {"type": ["string", "null"]}
        }
      }
    },
    "responsibilities": {
      "type": ["object", "null"],
      "additionalProperties": {"type": ["string", "null"]}
    },
    "documents": {
      "type": ["object", "null"],
      "additionalProperties": {"type": ["boolean", "null"]}
    }
  },
  "$defs": {
    "party": {
      "type": "object",
      "properties": {
        "name": {"type": ["string", "null"]},
        "contact": {"type": ["string", "null"]}
      }
    },
    "date": {
      "type": ["string", "null"],
      "pattern": "^[0-9]{4}-[0-9]{2}-[0-9]{2}$"
    }
  }
}`

var compiledContractSchema = jsonschema.MustCompileString("contract_record.json", contractRecordSchema)

// validateContractJSON checks raw extractor output against the contract
// record schema. On violation it returns a SchemaViolationError naming
// the deepest failing field.
func validateContractJSON(raw []byte) error {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	if err := compiledContractSchema.Validate(v); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return &SchemaViolationError{Field: deepestLocation(ve), Cause: err}
		}
		return err
	}
	return nil
}

// deepestLocation walks the validation error tree to the most specific
// instance location.
func deepestLocation(ve *jsonschema.ValidationError) string {
	loc := ve.InstanceLocation
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
		if ve.InstanceLocation != "" {
			loc = ve.InstanceLocation
		}
	}
	if loc == "" {
		loc = "/"
	}
	return loc
}
