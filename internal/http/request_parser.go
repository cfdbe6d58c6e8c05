// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data.
// Bodies are decoded field by field so a missing or mistyped field turns into
// a validation detail instead of a generic decode failure.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"expenses/internal/core"
)

// maxBodyBytes bounds request bodies; an expense is a few dozen bytes.
const maxBodyBytes = 1 << 20

// invalidBodyError marks a body that is not a JSON object.
type invalidBodyError struct {
	cause error
}

func (e *invalidBodyError) Error() string {
	return "invalid JSON body: " + e.cause.Error()
}

func (e *invalidBodyError) Unwrap() error { return e.cause }

// ParseExpenseInput reads {title, amount, category} from the request body.
// Amounts are accepted as JSON numbers or numeric strings as long as they
// denote a whole number.
func ParseExpenseInput(w http.ResponseWriter, r *http.Request) (core.ExpenseInput, error) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return core.ExpenseInput{}, &invalidBodyError{cause: err}
	}

	var fields map[string]json.RawMessage
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&fields); err != nil {
		return core.ExpenseInput{}, &invalidBodyError{cause: err}
	}
	if fields == nil {
		return core.ExpenseInput{}, &invalidBodyError{cause: errors.New("body is not an object")}
	}
	if dec.More() {
		return core.ExpenseInput{}, &invalidBodyError{cause: errors.New("trailing data after object")}
	}

	verr := &core.ValidationError{}
	var in core.ExpenseInput
	in.Title = stringField(fields, "title", verr)
	in.Category = stringField(fields, "category", verr)
	in.Amount = amountField(fields, "amount", verr)

	if err := verr.ErrOrNil(); err != nil {
		return core.ExpenseInput{}, err
	}
	return in, nil
}

func stringField(fields map[string]json.RawMessage, name string, verr *core.ValidationError) string {
	raw, ok := fields[name]
	if !ok || isNull(raw) {
		verr.Add(name, "field required")
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		verr.Add(name, "must be a string")
		return ""
	}
	return s
}

func amountField(fields map[string]json.RawMessage, name string, verr *core.ValidationError) int64 {
	raw, ok := fields[name]
	if !ok || isNull(raw) {
		verr.Add(name, "field required")
		return 0
	}

	text := string(bytes.TrimSpace(raw))
	if strings.HasPrefix(text, `"`) {
		if err := json.Unmarshal(raw, &text); err != nil {
			verr.Add(name, core.ErrInvalidAmount.Error())
			return 0
		}
	} else if !isJSONNumber(raw) {
		verr.Add(name, core.ErrInvalidAmount.Error())
		return 0
	}

	v, err := core.ParseAmount(text)
	if err != nil {
		verr.Add(name, err.Error())
		return 0
	}
	return v
}

func isNull(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}

func isJSONNumber(raw json.RawMessage) bool {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return false
	}
	_, ok := v.(json.Number)
	return ok
}

// ParseExpenseID reads the {id} path segment.
func ParseExpenseID(r *http.Request) (int64, error) {
	value := r.PathValue("id")
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		verr := &core.ValidationError{}
		verr.Add("id", fmt.Sprintf("%q is not a valid integer", value))
		return 0, verr
	}
	return id, nil
}
