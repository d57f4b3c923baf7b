// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package email

import (
	"context"
	"fmt"
	"html"

	"codeberg.org/oliverandrich/account-service/internal/i18n"
)

// Template names.
const (
	TemplateVerification  = "verification"
	TemplatePasswordReset = "password_reset"
)

type template struct {
	messagePrefix string
	// params maps template parameters to catalog placeholders.
	params map[string]string
}

var templates = map[string]template{
	TemplateVerification: {
		messagePrefix: "email_verification",
		params: map[string]string{
			"username":         "Username",
			"verification_url": "VerificationURL",
		},
	},
	TemplatePasswordReset: {
		messagePrefix: "email_password_reset",
		params: map[string]string{
			"username":  "Username",
			"reset_url": "ResetURL",
		},
	},
}

// Render builds the subject and bodies of a named template in the locale of
// ctx. Every parameter of the template must be supplied.
func Render(ctx context.Context, name string, params map[string]string) (*Message, error) {
	tmpl, ok := templates[name]
	if !ok {
		return nil, fmt.Errorf("unknown email template %q", name)
	}

	textData := make(map[string]any, len(tmpl.params))
	htmlData := make(map[string]any, len(tmpl.params))
	for param, placeholder := range tmpl.params {
		value, ok := params[param]
		if !ok {
			return nil, fmt.Errorf("email template %q: missing parameter %q", name, param)
		}
		textData[placeholder] = value
		htmlData[placeholder] = html.EscapeString(value)
	}

	subject, err := i18n.Localize(ctx, tmpl.messagePrefix+"_subject", textData)
	if err != nil {
		return nil, fmt.Errorf("rendering %s subject: %w", name, err)
	}
	text, err := i18n.Localize(ctx, tmpl.messagePrefix+"_text", textData)
	if err != nil {
		return nil, fmt.Errorf("rendering %s text: %w", name, err)
	}
	body, err := i18n.Localize(ctx, tmpl.messagePrefix+"_html", htmlData)
	if err != nil {
		return nil, fmt.Errorf("rendering %s html: %w", name, err)
	}

	return &Message{Subject: subject, Text: text, HTML: body}, nil
}
