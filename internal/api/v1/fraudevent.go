package v1

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// FraudType is the closed classification assigned to a fraud case by the
// upstream CDQ API.
type FraudType string

const (
	FraudTypeActiveWarning     FraudType = "ACTIVE_WARNING"
	FraudTypeAnnouncement      FraudType = "ANNOUNCEMENT"
	FraudTypeFakeDocument      FraudType = "FAKE_DOCUMENT"
	FraudTypeFakeEmail         FraudType = "FAKE_EMAIL"
	FraudTypeFakePresidentCall FraudType = "FAKE_PRESIDENT_CALL"
	FraudTypeFalsifiedInvoice  FraudType = "FALSIFIED_INVOICE"
)

// FraudTypes lists the enumeration in canonical order. The order matters:
// the daily aggregate functions emit their six counts in exactly this order.
var FraudTypes = []FraudType{
	FraudTypeActiveWarning,
	FraudTypeAnnouncement,
	FraudTypeFakeDocument,
	FraudTypeFakeEmail,
	FraudTypeFakePresidentCall,
	FraudTypeFalsifiedInvoice,
}

func (t FraudType) Valid() bool {
	for _, known := range FraudTypes {
		if t == known {
			return true
		}
	}
	return false
}

// UnknownCountry is stored when the worker delivers a case without a country.
// Rows carrying it are excluded from the per-country statistics.
const UnknownCountry = "XX"

// EventInsert is the canonical insertable shape of one fraud case row.
// CdlID is the natural key; a second insert with the same CdlID updates the
// existing row instead of creating a duplicate.
type EventInsert struct {
	CdlID       string
	AttackDate  int64
	CountryCode string
	FraudType   FraudType
}

// TypeCounts carries one count per fraud type, the response shape of both
// statistics endpoints.
type TypeCounts struct {
	ActiveWarning     int64 `json:"active_warning"`
	Announcement      int64 `json:"announcement"`
	FakeDocument      int64 `json:"fake_document"`
	FakeEmail         int64 `json:"fake_email"`
	FakePresidentCall int64 `json:"fake_president_call"`
	FalsifiedInvoice  int64 `json:"falsified_invoice"`
}

const cdlIDLength = 10

var countryCodePattern = regexp.MustCompile(`^[A-Z]{2}$`)

var allowedRecordKeys = map[string]struct{}{
	"cdlId":        {},
	"dateOfAttack": {},
	"type":         {},
	"countryCode":  {},
}

// ValidateRecord validates one raw worker record and normalizes it into the
// canonical insert shape. It never aborts early: every violation in the
// record is returned so the worker sees the complete list in one response.
// An absent, null or empty countryCode defaults to "XX" before validation.
func ValidateRecord(raw map[string]interface{}) (EventInsert, []string) {
	var violations []string
	var insert EventInsert

	var unknown []string
	for key := range raw {
		if _, ok := allowedRecordKeys[key]; !ok {
			unknown = append(unknown, key)
		}
	}
	sort.Strings(unknown)
	for _, key := range unknown {
		violations = append(violations, fmt.Sprintf("%q is not allowed", key))
	}

	if value, ok := raw["cdlId"]; !ok || value == nil {
		violations = append(violations, `"cdlId" is required`)
	} else if id, ok := value.(string); !ok {
		violations = append(violations, `"cdlId" must be a string`)
	} else if len(id) != cdlIDLength {
		violations = append(violations, fmt.Sprintf(`"cdlId" length must be %d characters long`, cdlIDLength))
	} else {
		insert.CdlID = id
	}

	if value, ok := raw["dateOfAttack"]; !ok || value == nil {
		violations = append(violations, `"dateOfAttack" is required`)
	} else if date, ok := value.(float64); !ok {
		violations = append(violations, `"dateOfAttack" must be a number`)
	} else if date <= 0 {
		violations = append(violations, `"dateOfAttack" must be greater than 0`)
	} else {
		insert.AttackDate = int64(date)
	}

	if value, ok := raw["type"]; !ok || value == nil {
		violations = append(violations, `"type" is required`)
	} else if name, ok := value.(string); !ok {
		violations = append(violations, `"type" must be a string`)
	} else if !FraudType(name).Valid() {
		violations = append(violations, fmt.Sprintf(`"type" must be one of [%s]`, joinFraudTypes()))
	} else {
		insert.FraudType = FraudType(name)
	}

	switch value := raw["countryCode"].(type) {
	case nil:
		insert.CountryCode = UnknownCountry
	case string:
		if value == "" {
			insert.CountryCode = UnknownCountry
		} else if !countryCodePattern.MatchString(value) {
			violations = append(violations, fmt.Sprintf(`"countryCode" with value %q fails to match the required pattern: /^[A-Z]{2}$/`, value))
		} else {
			insert.CountryCode = value
		}
	default:
		violations = append(violations, `"countryCode" must be a string`)
	}

	if len(violations) > 0 {
		return EventInsert{}, violations
	}
	return insert, nil
}

func joinFraudTypes() string {
	names := make([]string, len(FraudTypes))
	for i, t := range FraudTypes {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}
