package handlers

import (
	"io"
	"mime/multipart"

	"pinboard-backend/internal/models"
	"pinboard-backend/internal/services"

	"github.com/gofiber/fiber/v2"
)

// CreatePinHandler accepts multipart fields title, pin and the file "image"
func CreatePinHandler(pins *services.PinService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, _ := currentUser(c)

		req := models.CreatePinRequest{
			OwnerID: userID,
			Title:   c.FormValue("title"),
			Body:    c.FormValue("pin"),
		}
		if fh, err := c.FormFile("image"); err == nil {
			data, err := readFormFile(fh)
			if err != nil {
				return err
			}
			req.Image = data
		}

		pin, err := pins.CreatePin(c.Context(), req)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"message": "Pin Created Successfully",
			"pin":     pin,
		})
	}
}

func ListPinsHandler(pins *services.PinService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		list, err := pins.ListPins(c.Context())
		if err != nil {
			return err
		}
		return c.JSON(list)
	}
}

func GetPinHandler(pins *services.PinService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		pin, err := pins.GetPin(c.Context(), c.Params("id"))
		if err != nil {
			return err
		}
		return c.JSON(pin)
	}
}

func UserPinsHandler(pins *services.PinService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		list, err := pins.ListUserPins(c.Context(), c.Params("id"))
		if err != nil {
			return err
		}
		return c.JSON(list)
	}
}

func SavedPinsHandler(pins *services.PinService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, _ := currentUser(c)
		list, err := pins.ListSavedPins(c.Context(), userID)
		if err != nil {
			return err
		}
		return c.JSON(list)
	}
}

func UpdatePinHandler(pins *services.PinService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, _ := currentUser(c)

		var req models.UpdatePinRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request")
		}

		pin, err := pins.UpdatePin(c.Context(), c.Params("id"), userID, req.Title, req.Body)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"message": "Pin updated", "pin": pin})
	}
}

func DeletePinHandler(pins *services.PinService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, _ := currentUser(c)
		if err := pins.DeletePin(c.Context(), c.Params("id"), userID); err != nil {
			return err
		}
		return c.JSON(fiber.Map{"message": "Pin Deleted"})
	}
}

// AddCommentHandler signs the comment with the author's current profile name,
// not the name in the token
func AddCommentHandler(pins *services.PinService, users *services.UserService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, _ := currentUser(c)

		var req models.CommentRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request")
		}

		author, err := users.GetProfile(c.Context(), userID)
		if err != nil {
			return err
		}

		comment, err := pins.AddComment(c.Context(), c.Params("id"), userID, author.Name, req.Comment)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Comment Added", "comment": comment})
	}
}

// DeleteCommentHandler expects the comment id in the commentId query parameter
func DeleteCommentHandler(pins *services.PinService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, _ := currentUser(c)
		if err := pins.DeleteComment(c.Context(), c.Params("id"), c.Query("commentId"), userID); err != nil {
			return err
		}
		return c.JSON(fiber.Map{"message": "Comment Deleted"})
	}
}

// SavePinHandler takes the pin id from the path or from the JSON body field pinId
func SavePinHandler(pins *services.PinService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, _ := currentUser(c)

		pinID, err := pinIDFrom(c)
		if err != nil {
			return err
		}

		already, err := pins.SavePin(c.Context(), pinID, userID)
		if err != nil {
			return err
		}
		if already {
			return c.JSON(fiber.Map{"message": "Already saved"})
		}
		return c.JSON(fiber.Map{"message": "Pin saved successfully"})
	}
}

func UnsavePinHandler(pins *services.PinService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, _ := currentUser(c)

		pinID, err := pinIDFrom(c)
		if err != nil {
			return err
		}

		if err := pins.RemoveSavedPin(c.Context(), pinID, userID); err != nil {
			return err
		}
		return c.JSON(fiber.Map{"message": "Pin removed from saved"})
	}
}

func pinIDFrom(c *fiber.Ctx) (string, error) {
	if id := c.Params("id"); id != "" {
		return id, nil
	}
	var req models.SavePinRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return "", fiber.NewError(fiber.StatusBadRequest, "Invalid request")
		}
	}
	return req.PinID, nil
}

func readFormFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Unable to read uploaded file")
	}
	defer f.Close()
	return io.ReadAll(f)
}
