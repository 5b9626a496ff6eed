package tags

import "strings"

// Mapping binds a template tag to a data path, with an optional transform and default.
type Mapping struct {
	Tag             string
	Field           string
	Transform       string
	TransformConfig map[string]any
	Default         *string
}

// Binding resolves tag values against one data snapshot and a mapping set.
type Binding struct {
	data     map[string]any
	mappings map[string]Mapping
}

// NewBinding indexes mappings by their trimmed tag.
func NewBinding(data map[string]any, mappings []Mapping) *Binding {
	index := make(map[string]Mapping, len(mappings))
	for _, m := range mappings {
		index[strings.TrimSpace(m.Tag)] = m
	}

	return &Binding{data: data, mappings: index}
}

// Value returns the substitution text for a raw tag content. Mapped tags read their
// field, fall back to the default when absent or nil and then apply the transform.
// Unmapped tags resolve by name.
func (b *Binding) Value(raw string) string {
	tag := strings.TrimSpace(raw)

	mapping, ok := b.mappings[tag]
	if !ok {
		value, found := Resolve(b.data, tag)
		if !found {
			return ""
		}

		return Stringify(value)
	}

	value, found := Resolve(b.data, mapping.Field)
	if (!found || value == nil) && mapping.Default != nil {
		value = *mapping.Default
	}

	if mapping.Transform == "" {
		return Stringify(value)
	}

	return ApplyTransform(value, mapping.Transform, mapping.TransformConfig)
}

// Replacements returns the literal token to replacement text for each raw tag.
func (b *Binding) Replacements(rawTags []string) map[string]string {
	out := make(map[string]string, len(rawTags))
	for _, raw := range rawTags {
		out[Token(raw)] = b.Value(raw)
	}

	return out
}

// Apply substitutes every tag in text using the binding.
func (b *Binding) Apply(text string) string {
	return tagPattern.ReplaceAllStringFunc(text, func(token string) string {
		return b.Value(token[2 : len(token)-2])
	})
}
