// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package i18n holds the message catalogs used for outgoing email.
package i18n

import (
	"context"
	"embed"
	"errors"
	"sync"

	"codeberg.org/oliverandrich/account-service/internal/ctxkeys"
	"github.com/BurntSushi/toml"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed translations/*.toml
var translationFS embed.FS

var (
	bundle   *i18n.Bundle
	initOnce sync.Once
	errInit  error
)

// ErrNotInitialized is returned by Localize before Init was called.
var ErrNotInitialized = errors.New("i18n bundle not initialized")

// Init initializes the i18n bundle with embedded translations. Calling it
// more than once is a no-op.
func Init() error {
	initOnce.Do(func() {
		b := i18n.NewBundle(language.English)
		b.RegisterUnmarshalFunc("toml", toml.Unmarshal)

		files := []string{
			"translations/active.en.toml",
			"translations/active.de.toml",
		}

		for _, file := range files {
			if _, err := b.LoadMessageFileFS(translationFS, file); err != nil {
				errInit = err
				return
			}
		}
		bundle = b
	})
	return errInit
}

// WithLocale adds the locale to the context.
func WithLocale(ctx context.Context, lang language.Tag) context.Context {
	locale := lang.String()
	ctx = context.WithValue(ctx, ctxkeys.Locale{}, locale)
	if bundle == nil {
		return ctx
	}
	localizer := i18n.NewLocalizer(bundle, locale)
	return context.WithValue(ctx, ctxkeys.Localizer{}, localizer)
}

// GetLocale returns the current locale from context.
func GetLocale(ctx context.Context) string {
	if locale, ok := ctx.Value(ctxkeys.Locale{}).(string); ok {
		return locale
	}
	return "en"
}

// Localize translates a message with template data and reports a missing
// message as an error.
func Localize(ctx context.Context, messageID string, data map[string]any) (string, error) {
	localizer := getLocalizer(ctx)
	if localizer == nil {
		return "", ErrNotInitialized
	}
	return localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    messageID,
		TemplateData: data,
	})
}

// MatchLanguage matches the best language from Accept-Language header.
func MatchLanguage(acceptLanguage string) language.Tag {
	matcher := language.NewMatcher([]language.Tag{
		language.English,
		language.German,
	})
	tag, _ := language.MatchStrings(matcher, acceptLanguage)
	return tag
}

func getLocalizer(ctx context.Context) *i18n.Localizer {
	if localizer, ok := ctx.Value(ctxkeys.Localizer{}).(*i18n.Localizer); ok {
		return localizer
	}
	if bundle == nil {
		return nil
	}
	return i18n.NewLocalizer(bundle, GetLocale(ctx))
}
