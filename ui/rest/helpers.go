package rest

import (
	"github.com/AzielCF/az-social/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

func badRequest(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(utils.ResponseData{
		Status:  fiber.StatusBadRequest,
		Code:    "BAD_REQUEST",
		Message: err.Error(),
	})
}

func success(c *fiber.Ctx, message string, results any) error {
	return c.JSON(utils.ResponseData{
		Status:  fiber.StatusOK,
		Code:    "SUCCESS",
		Message: message,
		Results: results,
	})
}
