package ai

import "google.golang.org/genai"

// Schema describes an object of required string fields. With ItemsKey set the
// object instead carries a single array property of such objects.
type Schema struct {
	Name     string
	Fields   []string
	ItemsKey string
}

var documentSchema = &Schema{
	Name:   "document_update",
	Fields: []string{"message", "document"},
}

var suggestionSchema = &Schema{
	Name:     "suggestions",
	Fields:   []string{"originalText", "suggestedText", "description"},
	ItemsKey: "items",
}

func (s *Schema) objectJSON() map[string]interface{} {
	props := make(map[string]interface{}, len(s.Fields))
	for _, f := range s.Fields {
		props[f] = map[string]interface{}{"type": "string"}
	}
	return map[string]interface{}{
		"type":                 "object",
		"properties":           props,
		"required":             s.Fields,
		"additionalProperties": false,
	}
}

// JSONSchema renders the OpenAI json_schema form.
func (s *Schema) JSONSchema() map[string]interface{} {
	if s.ItemsKey == "" {
		return s.objectJSON()
	}
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			s.ItemsKey: map[string]interface{}{
				"type":  "array",
				"items": s.objectJSON(),
			},
		},
		"required":             []string{s.ItemsKey},
		"additionalProperties": false,
	}
}

func (s *Schema) objectGenai() *genai.Schema {
	props := make(map[string]*genai.Schema, len(s.Fields))
	for _, f := range s.Fields {
		props[f] = &genai.Schema{Type: genai.TypeString}
	}
	return &genai.Schema{
		Type:             genai.TypeObject,
		Properties:       props,
		Required:         s.Fields,
		PropertyOrdering: s.Fields,
	}
}

func (s *Schema) GenaiSchema() *genai.Schema {
	if s.ItemsKey == "" {
		return s.objectGenai()
	}
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			s.ItemsKey: {
				Type:  genai.TypeArray,
				Items: s.objectGenai(),
			},
		},
		Required: []string{s.ItemsKey},
	}
}
