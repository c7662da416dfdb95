package handlers

import (
	"time"

	"pinboard-backend/internal/models"
	"pinboard-backend/internal/services"

	"github.com/gofiber/fiber/v2"
)

func setTokenCookie(c *fiber.Ctx, token string) {
	c.Cookie(&fiber.Cookie{
		Name:     TokenCookie,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(services.TokenTTL),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteStrictMode,
	})
}

func RegisterHandler(users *services.UserService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req models.RegisterRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request")
		}

		res, err := users.Register(c.Context(), req)
		if err != nil {
			return err
		}
		setTokenCookie(c, res.Token)
		return c.Status(fiber.StatusCreated).JSON(res)
	}
}

func LoginHandler(users *services.UserService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req models.LoginRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request")
		}

		res, err := users.Login(c.Context(), req)
		if err != nil {
			return err
		}
		setTokenCookie(c, res.Token)
		return c.JSON(res)
	}
}

func LogoutHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Cookie(&fiber.Cookie{
			Name:     TokenCookie,
			Value:    "",
			Path:     "/",
			Expires:  time.Unix(0, 0),
			MaxAge:   -1,
			HTTPOnly: true,
			SameSite: fiber.CookieSameSiteStrictMode,
		})
		return c.JSON(fiber.Map{"message": "Successfully, User Log Out"})
	}
}

// MeHandler returns the authenticated user's profile
func MeHandler(users *services.UserService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, _ := currentUser(c)
		u, err := users.GetProfile(c.Context(), userID)
		if err != nil {
			return err
		}
		return c.JSON(u)
	}
}

func UserProfileHandler(users *services.UserService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		u, err := users.GetProfile(c.Context(), c.Params("id"))
		if err != nil {
			return err
		}
		return c.JSON(u)
	}
}

func FollowHandler(users *services.UserService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, _ := currentUser(c)

		following, err := users.ToggleFollow(c.Context(), c.Params("id"), userID)
		if err != nil {
			return err
		}
		if following {
			return c.JSON(fiber.Map{"message": "Successfully, User followed"})
		}
		return c.JSON(fiber.Map{"message": "Successfully, User Unfollowed"})
	}
}

// UpdateProfileHandler accepts multipart fields name, bio and the file
// "avatar", or a JSON body with name and bio.
func UpdateProfileHandler(users *services.UserService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, _ := currentUser(c)

		var req models.UpdateProfileRequest
		if form, err := c.MultipartForm(); err == nil {
			if v := form.Value["name"]; len(v) > 0 {
				req.Name = &v[0]
			}
			if v := form.Value["bio"]; len(v) > 0 {
				req.Bio = &v[0]
			}
			if files := form.File["avatar"]; len(files) > 0 {
				data, err := readFormFile(files[0])
				if err != nil {
					return err
				}
				req.AvatarName = files[0].Filename
				req.Avatar = data
			}
		} else {
			var body struct {
				Name *string `json:"name"`
				Bio  *string `json:"bio"`
			}
			if err := c.BodyParser(&body); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "Invalid request")
			}
			req.Name, req.Bio = body.Name, body.Bio
		}

		u, err := users.UpdateProfile(c.Context(), userID, req)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"message": "Profile updated successfully", "user": u})
	}
}
