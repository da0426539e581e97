// Package dto decodes flow documents from their on-disk mapping form
// into domain types. Decoding goes through mapstructure so YAML and
// JSON share one code path and one set of coercion rules.
package dto

import (
	"fmt"
	"reflect"

	"github.com/branchwork/bramble/pkg/domain"
	"github.com/branchwork/bramble/pkg/subflow"
	"github.com/mitchellh/mapstructure"
)

// SubflowsKey marks a document as a subflow library rather than a flow.
const SubflowsKey = "subflows"

// IsSubflowDocument reports whether the decoded mapping is a subflow
// library.
func IsSubflowDocument(raw map[string]any) bool {
	_, ok := raw[SubflowsKey]
	return ok
}

// DecodeFlow converts a decoded mapping into a flow document.
func DecodeFlow(raw map[string]any) (*domain.Flow, error) {
	var flow domain.Flow
	if err := decode(raw, &flow); err != nil {
		return nil, fmt.Errorf("invalid flow document: %w", err)
	}
	return &flow, nil
}

// DecodeSubflows converts a subflow library mapping into definitions
// keyed by subflow id.
func DecodeSubflows(raw map[string]any) (map[string]*subflow.Definition, error) {
	var doc struct {
		Subflows map[string]*subflow.Definition `yaml:"subflows"`
	}
	if err := decode(raw, &doc); err != nil {
		return nil, fmt.Errorf("invalid subflow document: %w", err)
	}
	return doc.Subflows, nil
}

func decode(raw map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:    "yaml",
		DecodeHook: durationHook,
		Result:     out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(raw)
}

// durationHook converts strings ("1.5s") and bare numbers (taken as
// milliseconds) into domain.Duration fields.
func durationHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to != reflect.TypeOf(domain.Duration(0)) {
		return data, nil
	}
	return domain.ParseDurationValue(data)
}
