// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package ctxkeys defines typed context keys used across packages.
package ctxkeys

// Locale is the context key for the request locale string.
type Locale struct{}

// Localizer is the context key for the request's go-i18n localizer.
type Localizer struct{}
