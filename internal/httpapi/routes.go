package httpapi

import (
	"github.com/gofiber/fiber/v2"

	"github.com/justxchange/go-backend/internal/auth"
	"github.com/justxchange/go-backend/internal/realtime"
)

// Controllers bundles every HTTP surface the router mounts.
type Controllers struct {
	Users         *UserController
	Chats         *ChatController
	Notifications *NotificationController
	Listings      *ListingController
	Realtime      *realtime.Handler
}

// Register mounts the auth gate and every route on the app.
func Register(app *fiber.App, tokens *auth.TokenService, ctrl Controllers) {
	app.Use(RequireAuth(tokens))

	api := app.Group("/api")

	api.Post("/signup", ctrl.Users.Signup)
	api.Post("/verify-otp", ctrl.Users.VerifyOTP)
	api.Post("/save-user", ctrl.Users.SaveUser)
	api.Post("/login-user", ctrl.Users.Login)
	api.Put("/forgot-password", ctrl.Users.ForgotPassword)
	api.Get("/user-profile", ctrl.Users.Profile)
	api.Post("/save-profile", ctrl.Users.SaveProfile)

	api.Post("/chats", ctrl.Chats.Create)
	api.Get("/chats", ctrl.Chats.List)
	api.Get("/chats/:chatId/messages", ctrl.Chats.Messages)
	api.Get("/products/:productUuid/chats", ctrl.Chats.ListingChats)
	api.Post("/chats/message", ctrl.Chats.SendMessage)

	api.Post("/products", ctrl.Listings.Create)

	api.Get("/notifications", ctrl.Notifications.Unread)
	api.Post("/notifications/read", ctrl.Notifications.MarkRead)

	app.Get("/ws", ctrl.Realtime.Upgrade, ctrl.Realtime.Serve())
}
