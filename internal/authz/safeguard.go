package authz

import (
	"github.com/mwielgus/scribe/internal/models"
)

// CheckRoleChange guards a role edit on an account. If the edit removes
// the admin role and adminCount says at most one account currently holds
// it, the edit is rejected with ErrLastAdmin.
//
// The check is advisory: it mutates nothing. Callers must evaluate it
// against a consistent snapshot of the admin count and commit the edit
// in the same critical section (see users.Service.UpdateAccount).
func CheckRoleChange(rolesBefore, rolesAfter []string, adminCount int64) error {
	if hasRole(rolesBefore, models.RoleAdmin) && !hasRole(rolesAfter, models.RoleAdmin) && adminCount <= 1 {
		return ErrLastAdmin
	}
	return nil
}

// CheckBlockChange guards a block-flag edit. An actor may never set the
// blocked flag on their own account.
func CheckBlockChange(account, actor *models.User, proposedBlocked bool) error {
	if actor != nil && account.ID == actor.ID && proposedBlocked {
		return ErrSelfBlock
	}
	return nil
}

func hasRole(roles []string, role string) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
