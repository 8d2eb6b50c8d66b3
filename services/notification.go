package services

import (
	"context"
	"fmt"
	"log"
	"os"

	"namiokai-backend/config"
	"namiokai-backend/database"
	"namiokai-backend/models"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// NotificationService sends FCM pushes through the Firebase Admin SDK.
// When credentials are not configured the service stays disabled and every
// notify call is a no-op.
type NotificationService struct {
	messaging *messaging.Client
}

var notifService *NotificationService

func GetNotificationService() *NotificationService {
	if notifService == nil {
		notifService = newNotificationService()
	}
	return notifService
}

func newNotificationService() *NotificationService {
	credPath := config.AppConfig.FirebaseCredPath
	if _, err := os.Stat(credPath); err != nil {
		log.Printf("⚠️  Firebase credentials not found at %s, push notifications disabled", credPath)
		return &NotificationService{}
	}

	ctx := context.Background()
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credPath))
	if err != nil {
		log.Printf("❌ Firebase init error: %v", err)
		return &NotificationService{}
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		log.Printf("❌ Firebase messaging error: %v", err)
		return &NotificationService{}
	}

	log.Println("✅ Firebase messaging initialized")
	return &NotificationService{messaging: client}
}

func (ns *NotificationService) sendPush(fcmToken string, title string, body string, data map[string]string) {
	if ns.messaging == nil || fcmToken == "" {
		return
	}

	msg := &messaging.Message{
		Token: fcmToken,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
	}

	if _, err := ns.messaging.Send(context.Background(), msg); err != nil {
		log.Printf("⚠️  FCM send error: %v", err)
		return
	}
	log.Printf("✅ Push notification sent: %s", title)
}

// NotifyBillAdded pushes to every split participant except the payer.
func (ns *NotificationService) NotifyBillAdded(bill models.Bill, payer models.User, space models.Space) {
	share := bill.SplitPricePerUser()

	for _, uid := range bill.SplitUserIDs() {
		if uid == bill.PaidBy {
			continue
		}

		var user models.User
		if err := database.DB.First(&user, uid).Error; err != nil {
			continue
		}

		title := fmt.Sprintf("%s added a bill", payer.Name)
		body := fmt.Sprintf("You owe %s %.2f for \"%s\" in %s", user.Currency, share, bill.Description, space.Name)

		ns.sendPush(user.FCMToken, title, body, map[string]string{
			"type":     "bill_added",
			"bill_id":  bill.ID.String(),
			"space_id": bill.SpaceID.String(),
		})
	}
}

// NotifyBillsCleared pushes to every space member when an admin clears the
// space's bills.
func (ns *NotificationService) NotifyBillsCleared(space models.Space, admin models.User) {
	var members []models.SpaceMember
	database.DB.Where("space_id = ?", space.ID).Find(&members)

	for _, m := range members {
		if m.UserID == admin.ID {
			continue
		}

		var user models.User
		if err := database.DB.First(&user, m.UserID).Error; err != nil {
			continue
		}

		title := fmt.Sprintf("%s cleared the bills", admin.Name)
		body := fmt.Sprintf("All bills in %s were cleared, debts start fresh", space.Name)

		ns.sendPush(user.FCMToken, title, body, map[string]string{
			"type":     "bills_cleared",
			"space_id": space.ID.String(),
		})
	}
}

// NotifyMemberAdded pushes to the new member.
func (ns *NotificationService) NotifyMemberAdded(member models.User, adder models.User, space models.Space) {
	title := "You were added to a space"
	body := fmt.Sprintf("%s added you to %s", adder.Name, space.Name)

	ns.sendPush(member.FCMToken, title, body, map[string]string{
		"type":     "member_added",
		"space_id": space.ID.String(),
	})
}
