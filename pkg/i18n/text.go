package i18n

// GetText extracts display text for lang with graceful degradation:
// a plain string is returned unchanged, then the requested language if
// non-blank, then the other language if non-blank, then fallback.
func GetText(field any, lang Language, fallback string) string {
	f := read(field)
	switch f.Kind {
	case KindUnmigrated:
		return f.Text
	case KindMigrated:
		if t := f.Value.Get(lang); !blank(t) {
			return t
		}
		if t := f.Value.Get(lang.Other()); !blank(t) {
			return t
		}
	}
	return fallback
}

// GetArray applies GetText with an empty fallback to every element.
func GetArray(fields any, lang Language) []string {
	elems := elements(fields)
	out := make([]string, len(elems))
	for i, e := range elems {
		out[i] = GetText(e, lang, "")
	}
	return out
}

// HasContent reports whether lang itself has non-blank text. Unlike
// GetText it never falls back to the other language.
func HasContent(field any, lang Language) bool {
	f := read(field)
	switch f.Kind {
	case KindUnmigrated:
		return !blank(f.Text)
	case KindMigrated:
		return !blank(f.Value.Get(lang))
	default:
		return false
	}
}

// AvailableLanguages lists the languages with non-blank text, en before fr.
// A plain string counts as English.
func AvailableLanguages(field any) []Language {
	out := []Language{}
	f := read(field)
	switch f.Kind {
	case KindUnmigrated:
		out = append(out, English)
	case KindMigrated:
		for _, lang := range Languages {
			if !blank(f.Value.Get(lang)) {
				out = append(out, lang)
			}
		}
	}
	return out
}

// Inspection is the diagnostic view of one field in one language.
type Inspection struct {
	Input              any        `json:"input"`
	Output             string     `json:"output"`
	AvailableLanguages []Language `json:"availableLanguages"`
	HasContent         bool       `json:"hasContent"`
}

// Inspect bundles GetText, AvailableLanguages and HasContent for field.
func Inspect(field any, lang Language) Inspection {
	return Inspection{
		Input:              field,
		Output:             GetText(field, lang, ""),
		AvailableLanguages: AvailableLanguages(field),
		HasContent:         HasContent(field, lang),
	}
}

// read classifies field for display. Unlike Classify it takes objects
// literally: only string en/fr count, and no other key is consulted.
func read(field any) Field {
	switch obj := field.(type) {
	case map[string]any:
		en, _ := obj["en"].(string)
		fr, _ := obj["fr"].(string)
		return Field{Kind: KindMigrated, Value: Value{EN: en, FR: fr}}
	case map[string]string:
		return Field{Kind: KindMigrated, Value: Value{EN: obj["en"], FR: obj["fr"]}}
	}
	return Classify(field)
}
