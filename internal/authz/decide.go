package authz

import (
	"github.com/mwielgus/scribe/internal/models"
)

// Action names an operation requested against a resource kind.
type Action string

const (
	PostCreate Action = "POST_CREATE"
	PostEdit   Action = "POST_EDIT"
	PostDelete Action = "POST_DELETE"

	CommentCreate Action = "COMMENT_CREATE"
	CommentEdit   Action = "COMMENT_EDIT"
	CommentDelete Action = "COMMENT_DELETE"
)

// Decide evaluates whether actor may perform action on resource. It is a
// pure function: no storage access, no side effects. A nil actor
// (unauthenticated request) is denied everything, and any (action,
// resource) pairing not listed below is denied.
//
// The rule set is intentionally asymmetric: only admins create posts,
// and there is no admin override for editing someone else's post or
// comment. Comments are owned by email, not by user id.
func Decide(actor *models.User, action Action, resource any) bool {
	if actor == nil {
		return false
	}

	switch action {
	case PostCreate:
		return actor.HasRole(models.RoleAdmin)
	case PostEdit:
		post, ok := resource.(*models.Post)
		return ok && post.AuthorID == actor.ID
	case PostDelete:
		post, ok := resource.(*models.Post)
		return ok && (post.AuthorID == actor.ID || actor.HasRole(models.RoleAdmin))
	case CommentCreate:
		return actor.HasRole(models.RoleUser)
	case CommentEdit:
		comment, ok := resource.(*models.Comment)
		return ok && comment.Email == actor.Email
	case CommentDelete:
		comment, ok := resource.(*models.Comment)
		return ok && (actor.HasRole(models.RoleAdmin) || comment.Email == actor.Email)
	default:
		return false
	}
}
