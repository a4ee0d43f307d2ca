package content

import (
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/hazyhaar/folio/pkg/i18n"
)

// ErrValidation wraps the validation.Errors of a rejected payload.
var ErrValidation = errors.New("invalid payload")

var errEnglishRequired = validation.NewError("validation_english_required", "english text is required")

type keySpec struct {
	key      string
	optional bool
	rules    []validation.Rule
}

var schemas = map[string][]keySpec{
	"projects":     {english("title")},
	"technologies": {english("name")},
	"contacts": {
		english("name"),
		english("message"),
		{key: "email", rules: []validation.Rule{validation.Required, is.EmailFormat}},
	},
	"users":       {{key: "email", optional: true, rules: []validation.Rule{is.EmailFormat}}},
	"experiences": {english("company")},
	"studies":     {english("institution")},
}

func english(key string) keySpec {
	return keySpec{key: key, rules: []validation.Rule{validation.By(hasEnglish)}}
}

func hasEnglish(v any) error {
	if !i18n.HasContent(i18n.Normalize(v), i18n.English) {
		return errEnglishRequired
	}
	return nil
}

// Validate checks a normalized payload against the collection's rules.
// With partial set (updates) every key becomes optional, but keys that are
// present must still be valid. Collections without rules always pass.
func Validate(collection string, payload map[string]any, partial bool) error {
	specs := schemas[collection]
	if len(specs) == 0 {
		return nil
	}
	keys := make([]*validation.KeyRules, 0, len(specs))
	for _, s := range specs {
		k := validation.Key(s.key, s.rules...)
		if s.optional || partial {
			k = k.Optional()
		}
		keys = append(keys, k)
	}
	if payload == nil {
		payload = map[string]any{}
	}
	if err := validation.Validate(payload, validation.Map(keys...).AllowExtraKeys()); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return nil
}
