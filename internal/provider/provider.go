// Package provider implements the per-family orchestration layer over the
// DAO contract. Providers validate input before any write, drive one or
// more DAOs inside a single transaction, and enforce the cross-entity
// invariants the DAOs cannot see individually. DAOs never call each other;
// only providers coordinate across families.
package provider

import (
	"context"
	"fmt"

	"github.com/schemakeep/schemakeep/internal/dao"
)

// rollback undoes the open transaction after a failed step. When the
// rollback itself fails, its error replaces the original cause; the cause
// stays visible in the message but is no longer matchable.
func rollback(ctx context.Context, sess dao.Session, cause error) error {
	if rbErr := sess.Rollback(ctx); rbErr != nil {
		return fmt.Errorf("rolling back after %q: %w", cause, rbErr)
	}
	return cause
}
