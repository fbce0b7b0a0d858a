package processing

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"

	"statsvc/internal/models"
)

// ValidationKind identifies which ingest check failed
type ValidationKind string

const (
	InvalidTimestampFormat ValidationKind = "InvalidTimestampFormat"
	EmptyOrMissingData     ValidationKind = "EmptyOrMissingData"
	NonNumericData         ValidationKind = "NonNumericData"
)

// Messages returned to clients for each kind
const (
	MsgInvalidTimestampFormat = "Invalid timestamp format. Expected format: YYYY-MM-DDTHH:MM:SS±hhmm"
	MsgEmptyOrMissingData     = "Data field must be a non-empty list."
	MsgNonNumericData         = "All elements in the data list must be numbers."
)

// ValidationError is the first violation found in an ingest payload
type ValidationError struct {
	Kind    ValidationKind
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func newValidationError(kind ValidationKind, msg string) *ValidationError {
	return &ValidationError{Kind: kind, Message: msg}
}

// ValidateRequest runs the ordered checks (time stamp format, non-empty data,
// all-numeric data) and returns the typed payload or the first violation as
// a *ValidationError. It has no side effects.
func ValidateRequest(raw *models.RawPayload) (*models.DataPayload, error) {
	if !validTimestamp(raw.TimeStamp) {
		return nil, newValidationError(InvalidTimestampFormat, MsgInvalidTimestampFormat)
	}

	var elems []json.RawMessage
	if len(raw.Data) == 0 || json.Unmarshal(raw.Data, &elems) != nil || len(elems) == 0 {
		return nil, newValidationError(EmptyOrMissingData, MsgEmptyOrMissingData)
	}

	values := make([]float64, len(elems))
	for i, elem := range elems {
		v, ok := parseNumber(elem)
		if !ok {
			return nil, newValidationError(NonNumericData, MsgNonNumericData)
		}
		values[i] = v
	}

	return &models.DataPayload{TimeStamp: raw.TimeStamp, Data: values}, nil
}

// validTimestamp only checks the format; zones are resolved later.
// time.Parse accepts fractional seconds the layouts do not name, so the
// offset sign must directly follow the seconds.
func validTimestamp(s string) bool {
	if len(s) != len(LayoutNumericOffset) && len(s) != len(LayoutNumericOffsetColon) {
		return false
	}
	if s[offsetSignIndex] != '+' && s[offsetSignIndex] != '-' {
		return false
	}
	for _, layout := range DefaultLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

// offsetSignIndex is the position of the offset sign after YYYY-MM-DDTHH:MM:SS
const offsetSignIndex = len("2006-01-02T15:04:05")

// parseNumber accepts JSON number literals only; strings, booleans, null,
// arrays and objects are rejected.
func parseNumber(elem json.RawMessage) (float64, bool) {
	b := bytes.TrimSpace(elem)
	if len(b) == 0 || !(b[0] == '-' || (b[0] >= '0' && b[0] <= '9')) {
		return 0, false
	}
	v, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
