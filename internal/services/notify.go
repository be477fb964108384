package services

import (
	"fmt"
	"log"
	"os"

	"commentbox/internal/db"
	"commentbox/internal/events"
	"commentbox/internal/models"
	"commentbox/internal/registry"
)

// NotifyOnComment builds the comment_saved subscriber that records a
// notification (and optionally an email) for the commented-on object's
// owner. Self-comments and unowned targets are skipped.
func NotifyOnComment(mail *MailService) events.Handler {
	return func(e events.CommentSaved) {
		target, err := registry.ResolveTarget(e.ContentType, e.ObjectPK)
		if err != nil {
			log.Printf("notify: resolving %s/%s failed: %v", e.ContentType, e.ObjectPK, err)
			return
		}

		owner := target.TargetOwner()
		if owner == 0 || owner == e.UserID {
			return
		}

		notification := models.Notification{
			UserID: owner,
			Type:   models.NotificationTypeComment,
			Reason: fmt.Sprintf("%s commented on %q", e.UserName, target.TargetLabel()),
		}
		if e.UserID != 0 {
			actor := e.UserID
			notification.ActorID = &actor
		}
		if err := db.DB.Create(&notification).Error; err != nil {
			log.Printf("notify: creating notification failed: %v", err)
			return
		}

		var user models.User
		if err := db.DB.First(&user, owner).Error; err != nil {
			return
		}
		link := fmt.Sprintf("%s%s#comment-%d", os.Getenv("SITE_URL"), target.TargetURL(), e.CommentID)
		mail.SendCommentNotification(user.Email, e.UserName, target.TargetLabel(), link)
	}
}
