package services

import (
	"fmt"
	"log"

	"namiokai-backend/config"
	"namiokai-backend/database"
	"namiokai-backend/models"

	"github.com/google/uuid"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// InviteToSpace creates an invitation and sends the email. A registered user
// is added to the space directly instead.
func InviteToSpace(spaceID uuid.UUID, invitedBy uuid.UUID, email string) {
	// Check if invitation already exists
	var existing models.Invitation
	err := database.DB.Where("space_id = ? AND email = ? AND status = ?", spaceID, email, "pending").
		First(&existing).Error
	if err == nil {
		log.Printf("⚠️  Invitation already exists for %s in space %s", email, spaceID)
		return
	}

	// Check if user is already registered
	var existingUser models.User
	if err := database.DB.Where("email = ?", email).First(&existingUser).Error; err == nil {
		var existingMember models.SpaceMember
		if err := database.DB.Where("space_id = ? AND user_id = ?", spaceID, existingUser.ID).First(&existingMember).Error; err != nil {
			database.DB.Create(&models.SpaceMember{
				SpaceID: spaceID,
				UserID:  existingUser.ID,
				Role:    "member",
			})
			log.Printf("✅ Added existing user %s to space %s", email, spaceID)
		}
		return
	}

	// Create invitation
	invitation := models.Invitation{
		SpaceID:   spaceID,
		InvitedBy: invitedBy,
		Email:     email,
		Status:    "pending",
	}

	if err := database.DB.Create(&invitation).Error; err != nil {
		log.Printf("❌ Failed to create invitation: %v", err)
		return
	}

	var inviter models.User
	database.DB.First(&inviter, invitedBy)
	var space models.Space
	database.DB.First(&space, spaceID)

	sendInvitationEmail(email, inviter.Name, space.Name)

	log.Printf("✅ Invitation sent to %s for space %s", email, spaceID)
}

// AcceptPendingInvitations adds a freshly registered user to every space
// they were invited to.
func AcceptPendingInvitations(user models.User) {
	var invitations []models.Invitation
	database.DB.Where("email = ? AND status = ?", user.Email, "pending").Find(&invitations)

	for _, inv := range invitations {
		var existingMember models.SpaceMember
		if err := database.DB.Where("space_id = ? AND user_id = ?", inv.SpaceID, user.ID).First(&existingMember).Error; err != nil {
			database.DB.Create(&models.SpaceMember{
				SpaceID: inv.SpaceID,
				UserID:  user.ID,
				Role:    "member",
			})
		}
		database.DB.Model(&models.Invitation{}).Where("id = ?", inv.ID).Update("status", "accepted")
		log.Printf("✅ Auto-accepted invitation to space %s for %s", inv.SpaceID, user.Email)
	}
}

func sendInvitationEmail(toEmail, inviterName, spaceName string) {
	if config.AppConfig.SendGridAPIKey == "" {
		log.Printf("⚠️  SendGrid API key not set, skipping email to %s", toEmail)
		return
	}

	from := mail.NewEmail(config.AppConfig.AppName, config.AppConfig.SendGridFrom)
	to := mail.NewEmail("", toEmail)
	subject := fmt.Sprintf("%s invited you to %s", inviterName, spaceName)
	htmlBody := buildInvitationEmailHTML(inviterName, spaceName)

	message := mail.NewSingleEmail(from, subject, to, "", htmlBody)
	client := sendgrid.NewSendClient(config.AppConfig.SendGridAPIKey)

	resp, err := client.Send(message)
	if err != nil {
		log.Printf("❌ Email send error: %v", err)
		return
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		log.Printf("✅ Email sent to %s", toEmail)
	} else {
		log.Printf("⚠️  SendGrid returned status: %d", resp.StatusCode)
	}
}

func buildInvitationEmailHTML(inviterName, spaceName string) string {
	return fmt.Sprintf(`
<!DOCTYPE html>
<html>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px; background-color: #f5f5f5;">
	<div style="background: white; border-radius: 12px; padding: 32px; box-shadow: 0 2px 8px rgba(0,0,0,0.1);">
		<h2 style="color: #1DB954; margin-top: 0;">🎉 You're invited!</h2>
		<p><strong>%s</strong> invited you to join <strong>"%s"</strong> on %s.</p>
		<p>%s makes it easy for flatmates to track shared purchases, fuel costs and flat bills.</p>
		<div style="margin: 24px 0;">
			<a href="%s" style="background: #1DB954; color: white; padding: 12px 32px; border-radius: 8px; text-decoration: none; font-weight: bold;">Join Now</a>
		</div>
		<p style="color: #999; font-size: 12px; margin-top: 24px;">— %s</p>
	</div>
</body>
</html>`, inviterName, spaceName, config.AppConfig.AppName, config.AppConfig.AppName, config.AppConfig.AppURL, config.AppConfig.AppName)
}
