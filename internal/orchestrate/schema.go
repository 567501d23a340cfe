package orchestrate

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/marchewka/scribeline/pkg/types"
)

// Schema validation errors. ErrSchemaInvalid wraps every specific failure so
// callers can branch on the class without caring about the detail.
var ErrSchemaInvalid = errors.New("payload does not match canonical schema")

// ValidateResult decodes raw strictly against the canonical result schema.
// Unknown fields, missing required fields, out-of-range values, and invalid
// item types are all rejected. On success the result is normalized (sorted
// sets, non-nil slices) so that remote-produced and locally-produced results
// are indistinguishable downstream.
//
// maxItems bounds the accepted item list; a remote service returning more
// than the requested cap is misbehaving and treated as schema-invalid.
func ValidateResult(raw json.RawMessage, maxItems int) (*types.CanonicalResult, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrSchemaInvalid)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()

	var res types.CanonicalResult
	if err := dec.Decode(&res); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchemaInvalid, err)
	}

	var errs []error
	if res.Items == nil {
		errs = append(errs, errors.New("items is missing"))
	}
	if maxItems > 0 && len(res.Items) > maxItems {
		errs = append(errs, fmt.Errorf("items exceeds cap (%d > %d)", len(res.Items), maxItems))
	}
	if !res.SuggestedCategory.IsValid() {
		errs = append(errs, fmt.Errorf("suggested_overall_category %q is invalid", res.SuggestedCategory))
	}
	if res.Confidence < 0 || res.Confidence > 1 {
		errs = append(errs, fmt.Errorf("confidence %v is out of range [0, 1]", res.Confidence))
	}
	for i, it := range res.Items {
		if !it.Type.IsValid() {
			errs = append(errs, fmt.Errorf("items[%d].type %q is invalid", i, it.Type))
		}
		if strings.TrimSpace(it.Title) == "" {
			errs = append(errs, fmt.Errorf("items[%d].title is empty", i))
		}
		if it.DurationMin < 0 {
			errs = append(errs, fmt.Errorf("items[%d].duration_min %d is negative", i, it.DurationMin))
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %v", ErrSchemaInvalid, errors.Join(errs...))
	}

	res.Normalize()
	return &res, nil
}
