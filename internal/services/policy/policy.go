// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package policy decides which actor may perform which action on an account.
package policy

import (
	"codeberg.org/oliverandrich/account-service/internal/apperr"
	"codeberg.org/oliverandrich/account-service/internal/models"
	"github.com/google/uuid"
)

// Actor is the authenticated identity behind a request.
type Actor struct {
	ID   uuid.UUID
	Role models.Role
}

// IsAdmin reports whether the actor holds the administrator role.
func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}

// Action is an operation subject to authorization.
type Action int

const (
	ReadSelf Action = iota
	ReadAny
	ListAll
	Create
	UpdateOwnBasicFields
	UpdateAnyBasicFields
	UpdateActiveFlag
	DeleteAny
	ChangeOwnPassword
	ChangeAnyPassword
)

func (a Action) String() string {
	switch a {
	case ReadSelf:
		return "read_self"
	case ReadAny:
		return "read_any"
	case ListAll:
		return "list_all"
	case Create:
		return "create"
	case UpdateOwnBasicFields:
		return "update_own_basic_fields"
	case UpdateAnyBasicFields:
		return "update_any_basic_fields"
	case UpdateActiveFlag:
		return "update_active_flag"
	case DeleteAny:
		return "delete_any"
	case ChangeOwnPassword:
		return "change_own_password"
	case ChangeAnyPassword:
		return "change_any_password"
	default:
		return "unknown"
	}
}

// CanAct reports whether actor may perform action on the account target.
// target is ignored for actions that do not address a single account.
func CanAct(actor Actor, action Action, target uuid.UUID) bool {
	self := actor.ID != uuid.Nil && actor.ID == target

	switch actor.Role {
	case models.RoleAdmin:
		if action == ChangeOwnPassword {
			return self
		}
		return isKnown(action)
	case models.RoleUser:
		switch action {
		case ReadSelf, UpdateOwnBasicFields, ChangeOwnPassword:
			return self
		default:
			return false
		}
	default:
		return false
	}
}

// Require returns an authorization error unless CanAct allows the action.
func Require(actor Actor, action Action, target uuid.UUID) error {
	if !CanAct(actor, action, target) {
		return apperr.Authorization("insufficient permissions")
	}
	return nil
}

func isKnown(action Action) bool {
	return action >= ReadSelf && action <= ChangeAnyPassword
}
