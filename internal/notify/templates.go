package notify

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cbroglie/mustache"
)

// Alert copy. Email bodies use {{ }} so user-supplied text is HTML-escaped;
// SMS bodies use {{{ }}} to keep it verbatim.
const (
	contactsSubject = `🚨 Emergency Alert from {{{reporter}}}`

	contactsHTML = `<h1>🚨 Emergency Alert</h1>
<p><strong>{{reporter}}</strong> has sent an emergency alert!</p>
<p><strong>Type:</strong> {{type}}</p>
<p><strong>Location:</strong> <a href="{{mapsURL}}">{{mapsURL}}</a></p>
{{#description}}<p><strong>Message:</strong> {{description}}</p>
{{/description}}<p style="color: red; font-weight: bold;">Please reach out or respond immediately.</p>
`

	contactsText = `🚨 Emergency Alert from {{{reporter}}}!
Type: {{{type}}}
Location: {{{mapsURL}}}
{{#description}}Message: {{{description}}}
{{/description}}Please reach out or respond immediately.`

	respondersSubject = `🚨 NEW EMERGENCY: {{{typeDisplay}}}`

	respondersHTML = `<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <div style="background: #dc2626; color: white; padding: 30px; text-align: center; border-radius: 8px 8px 0 0;">
    <h1 style="margin: 0; font-size: 28px;">🚨 EMERGENCY ALERT</h1>
  </div>
  <div style="background: #f9fafb; padding: 30px; border-radius: 0 0 8px 8px;">
    <h2 style="color: #dc2626; margin-top: 0;">{{typeDisplay}} Emergency</h2>
    {{#description}}<p><strong>Description:</strong> {{description}}</p>{{/description}}
    {{#reporter}}<p><strong>Reporter:</strong> {{reporter}}</p>{{/reporter}}
    <p><strong>Location:</strong> {{coords}}</p>
    <p><a href="{{mapsURL}}" style="display: inline-block; background: #dc2626; color: white; padding: 14px 28px; text-decoration: none; border-radius: 6px; font-weight: bold;">📍 View Location on Map</a></p>
    <p style="color: #6b7280; font-size: 14px;">Please respond immediately through the <strong>Emergency Response Dashboard</strong></p>
  </div>
</div>
`

	respondersText = `🚨 NEW EMERGENCY: {{{typeDisplay}}}
{{#description}}Description: {{{description}}}
{{/description}}{{#reporter}}Reporter: {{{reporter}}}
{{/reporter}}Location: {{{coords}}} {{{mapsURL}}}
Please respond immediately through the Emergency Response Dashboard.`
)

const defaultReporter = "Someone"

type messageTemplates struct {
	subject, html, text *mustache.Template
}

// Templates renders the alert for each strategy.
type Templates struct {
	byStrategy map[Strategy]messageTemplates
}

// NewTemplates parses the built-in templates.
func NewTemplates() (*Templates, error) {
	t := &Templates{byStrategy: make(map[Strategy]messageTemplates)}
	sets := map[Strategy][3]string{
		StrategyContacts:   {contactsSubject, contactsHTML, contactsText},
		StrategyResponders: {respondersSubject, respondersHTML, respondersText},
	}
	for strategy, src := range sets {
		var mt messageTemplates
		var err error
		if mt.subject, err = mustache.ParseString(src[0]); err != nil {
			return nil, fmt.Errorf("parse %s subject: %w", strategy, err)
		}
		if mt.html, err = mustache.ParseString(src[1]); err != nil {
			return nil, fmt.Errorf("parse %s html: %w", strategy, err)
		}
		if mt.text, err = mustache.ParseString(src[2]); err != nil {
			return nil, fmt.Errorf("parse %s text: %w", strategy, err)
		}
		t.byStrategy[strategy] = mt
	}
	return t, nil
}

// Render builds the message for a strategy and request.
func (t *Templates) Render(strategy Strategy, req Request) (Message, error) {
	mt, ok := t.byStrategy[strategy]
	if !ok {
		return Message{}, fmt.Errorf("no templates for strategy %q", strategy)
	}
	data := templateData(strategy, req)

	var msg Message
	var err error
	if msg.Subject, err = mt.subject.Render(data); err != nil {
		return Message{}, fmt.Errorf("render subject: %w", err)
	}
	if msg.HTML, err = mt.html.Render(data); err != nil {
		return Message{}, fmt.Errorf("render html: %w", err)
	}
	if msg.Text, err = mt.text.Render(data); err != nil {
		return Message{}, fmt.Errorf("render text: %w", err)
	}
	return msg, nil
}

func templateData(strategy Strategy, req Request) map[string]any {
	lat := strconv.FormatFloat(req.Latitude, 'f', -1, 64)
	lng := strconv.FormatFloat(req.Longitude, 'f', -1, 64)

	data := map[string]any{
		"type":        req.EmergencyType,
		"typeDisplay": TypeDisplay(req.EmergencyType),
		"coords":      fmt.Sprintf("%.4f, %.4f", req.Latitude, req.Longitude),
	}
	// Empty strings are falsy sections in mustache, so optional blocks
	// disappear on their own.
	data["description"] = strings.TrimSpace(req.Description)

	reporter := strings.TrimSpace(req.ReporterName)
	switch strategy {
	case StrategyContacts:
		if reporter == "" {
			reporter = defaultReporter
		}
		data["mapsURL"] = "https://maps.google.com/?q=" + lat + "," + lng
	default:
		data["mapsURL"] = "https://www.google.com/maps?q=" + lat + "," + lng
	}
	data["reporter"] = reporter
	return data
}

// TypeDisplay formats an emergency type for headlines: the first underscore
// becomes a space and the result is upper-cased.
func TypeDisplay(t string) string {
	return strings.ToUpper(strings.Replace(t, "_", " ", 1))
}
