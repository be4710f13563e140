// Package counter implements the unread counter store: one atomic
// counter per (user, scope, scopeId) tuple plus a separately maintained
// per-user grand total. Counters never go negative; decrements and
// resets report how much was actually removed so the total can be
// adjusted by exactly that amount.
package counter

import (
	"context"
	"fmt"

	"github.com/supchat-io/notifyhub/internal/types"
)

type Store interface {
	// Increment atomically adds delta to the scoped counter and to the
	// user's total.
	Increment(ctx context.Context, userId string, scope types.Scope, scopeId string, delta int64) error
	// Decrement atomically subtracts up to delta from the scoped
	// counter, clamping at zero, and subtracts the amount actually
	// removed from the total. It returns that amount.
	Decrement(ctx context.Context, userId string, scope types.Scope, scopeId string, delta int64) (int64, error)
	// Reset zeroes the scoped counter, subtracts its prior value from
	// the total and returns the prior value.
	Reset(ctx context.Context, userId string, scope types.Scope, scopeId string) (int64, error)
	Get(ctx context.Context, userId string, scope types.Scope, scopeId string) (int64, error)
	Total(ctx context.Context, userId string) (int64, error)
	// SumScopes recomputes the total by summing every scoped counter
	// for the user. Used only on the reconciliation/invariant-check
	// path; Total is the authoritative read.
	SumScopes(ctx context.Context, userId string) (int64, error)
}

func scopedKey(userId string, scope types.Scope, scopeId string) string {
	return fmt.Sprintf("unread:%s:%s:%s", userId, scope, scopeId)
}

func totalKey(userId string) string {
	return fmt.Sprintf("unread:%s:total", userId)
}
