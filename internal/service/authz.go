// internal/service/authz.go
package service

import (
	"cardvault/internal/domain"
	"cardvault/internal/util"
)

// AuthorizationGuard checks that a card or transaction belongs to the acting
// user. It holds no state; callers pass an explicit Actor.
type AuthorizationGuard struct{}

// RequireOwner fails unless the actor owns the card.
func (AuthorizationGuard) RequireOwner(card *domain.Card, actor domain.Actor) error {
	if card.OwnerUsername != actor.Username {
		return util.ErrNotOwner
	}
	return nil
}

// RequireOwnerOrPrivileged fails unless the actor owns the card or is
// privileged.
func (g AuthorizationGuard) RequireOwnerOrPrivileged(card *domain.Card, actor domain.Actor) error {
	if actor.Privileged {
		return nil
	}
	return g.RequireOwner(card, actor)
}

// RequireInitiator fails unless the actor initiated the transaction.
func (AuthorizationGuard) RequireInitiator(tx *domain.Transaction, actor domain.Actor) error {
	if tx.Username != actor.Username {
		return util.ErrUnauthorized
	}
	return nil
}

// RequireInitiatorOrPrivileged fails unless the actor initiated the
// transaction or is privileged.
func (g AuthorizationGuard) RequireInitiatorOrPrivileged(tx *domain.Transaction, actor domain.Actor) error {
	if actor.Privileged {
		return nil
	}
	return g.RequireInitiator(tx, actor)
}
