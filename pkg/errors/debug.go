package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stripe/stripe-go/v84"
)

// ErrorDump flattens an error chain into log-friendly fields.
type ErrorDump struct {
	TopMessage string
	Code       Code
	Chain      []string
	// Attrs holds driver or provider details found in the chain (pg_*, stripe_*).
	Attrs map[string]any
}

// extractors pull provider details out of a chain; the first match wins.
var extractors = []func(error) map[string]any{
	stripeAttrs,
	pgxAttrs,
	pqAttrs,
}

func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}
	d := ErrorDump{TopMessage: err.Error()}
	if typed := As(err); typed != nil {
		d.Code = typed.code
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}
	for _, extract := range extractors {
		if attrs := extract(err); attrs != nil {
			d.Attrs = attrs
			break
		}
	}
	return d
}

// Fields returns the dump keyed for structured logging, skipping empty values.
func (d ErrorDump) Fields() map[string]any {
	fields := map[string]any{"error": d.TopMessage, "error_chain": d.Chain}
	if d.Code != "" {
		fields["error_code"] = string(d.Code)
	}
	for k, v := range d.Attrs {
		if v == "" || v == 0 {
			continue
		}
		fields[k] = v
	}
	return fields
}

func stripeAttrs(err error) map[string]any {
	var se *stripe.Error
	if !errors.As(err, &se) {
		return nil
	}
	return map[string]any{
		"stripe_code":         string(se.Code),
		"stripe_type":         string(se.Type),
		"stripe_decline_code": string(se.DeclineCode),
		"stripe_request_id":   se.RequestID,
		"stripe_status":       se.HTTPStatusCode,
	}
}

func pgxAttrs(err error) map[string]any {
	var pe *pgconn.PgError
	if !errors.As(err, &pe) {
		return nil
	}
	return pgFields(pe.Code, pe.ConstraintName, pe.TableName, pe.Detail)
}

func pqAttrs(err error) map[string]any {
	var pe *pq.Error
	if !errors.As(err, &pe) {
		return nil
	}
	return pgFields(string(pe.Code), pe.Constraint, pe.Table, pe.Detail)
}

func pgFields(code, constraint, table, detail string) map[string]any {
	return map[string]any{
		"pg_code":       code,
		"pg_constraint": constraint,
		"pg_table":      table,
		"pg_detail":     detail,
	}
}
