package pages

import (
	"fmt"
)

// PageKind identifies a page variant.
type PageKind string

const (
	PageComponents PageKind = "components"
	PageTemplate   PageKind = "template"
	PageChannel    PageKind = "channel"
)

// Page is one renderable definition for a device update cycle. Exactly one
// of the variant field groups is populated, discriminated by Kind.
type Page struct {
	Kind PageKind

	Name      string
	Duration  int // seconds, 0 = use the scheduler default
	Enabled   BoolValue
	Variables map[string]any // page-scoped defaults, lowest precedence

	// components page
	Background ColorSpec
	Components []Component

	// template page
	TemplateName string
	TemplateVars map[string]any

	// channel page
	ChannelName string
	SubPage     *int
}

// DecodePage validates and decodes a page document. The document is expected
// to already have its template expressions resolved; template strings that
// survive resolution stay embedded in IntValue/BoolValue fields.
func DecodePage(doc map[string]any) (*Page, error) {
	if doc == nil {
		return nil, fmt.Errorf("page is empty")
	}

	enabled, err := boolValueOf(doc["enabled"])
	if err != nil {
		return nil, fmt.Errorf("enabled: %w", err)
	}
	duration, err := intOf(doc["duration"], 0)
	if err != nil {
		return nil, fmt.Errorf("duration: %w", err)
	}
	vars, _ := doc["variables"].(map[string]any)

	page := &Page{
		Name:      stringOf(doc["name"], ""),
		Duration:  duration,
		Enabled:   enabled,
		Variables: vars,
	}

	_, hasComponents := doc["components"]
	_, hasTemplate := doc["template"]
	_, hasChannel := doc["channel"]

	switch {
	case hasComponents && !hasTemplate && !hasChannel:
		page.Kind = PageComponents
		if doc["background"] != nil {
			page.Background = ColorSpec{Raw: doc["background"]}
		}
		rawList, ok := doc["components"].([]any)
		if !ok {
			return nil, fmt.Errorf("components must be a list")
		}
		page.Components = make([]Component, 0, len(rawList))
		for i, raw := range rawList {
			m, ok := raw.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("component %d must be a mapping", i)
			}
			c, err := DecodeComponent(m, i)
			if err != nil {
				return nil, err
			}
			page.Components = append(page.Components, c)
		}

	case hasTemplate && !hasComponents && !hasChannel:
		page.Kind = PageTemplate
		name, _ := doc["template"].(string)
		if name == "" {
			return nil, fmt.Errorf("template name must be a non-empty string")
		}
		page.TemplateName = name
		page.TemplateVars, _ = doc["template_vars"].(map[string]any)

	case hasChannel && !hasComponents && !hasTemplate:
		page.Kind = PageChannel
		name, _ := doc["channel"].(string)
		if name == "" {
			return nil, fmt.Errorf("channel name must be a non-empty string")
		}
		page.ChannelName = name
		if doc["subpage"] != nil {
			id, err := intOf(doc["subpage"], 0)
			if err != nil {
				return nil, fmt.Errorf("subpage: %w", err)
			}
			page.SubPage = &id
		}

	case !hasComponents && !hasTemplate && !hasChannel:
		return nil, fmt.Errorf("page must declare components, template or channel")
	default:
		return nil, fmt.Errorf("page declares more than one of components, template, channel")
	}

	return page, nil
}
