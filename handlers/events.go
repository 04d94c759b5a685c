package handlers

import (
	"eventhub/model"
	"eventhub/service"

	"github.com/gofiber/fiber/v2"
)

func (h *Handler) GetEvents(c *fiber.Ctx) error {
	sortField, sortOrder := model.ParseEventSort(c.Query("sort", "-createdAt"))
	query := model.EventQuery{
		Category:  c.Query("category"),
		Search:    c.Query("search"),
		Featured:  c.Query("featured") == "true",
		Status:    model.EventStatus(c.Query("status")),
		Page:      queryInt(c, "page", 1),
		Limit:     queryInt(c, "limit", model.DefaultPageSize),
		SortField: sortField,
		SortOrder: sortOrder,
	}

	page, err := h.events.List(c.UserContext(), query)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"count":   len(page.Events),
		"total":   page.Total,
		"page":    page.Page,
		"pages":   page.Pages,
		"data":    page.Events})
}

func (h *Handler) GetEvent(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return fail(c, err)
	}

	event, err := h.events.Get(c.UserContext(), id)
	if err != nil {
		return fail(c, err)
	}
	return success(c, fiber.StatusOK, event)
}

func (h *Handler) CreateEvent(c *fiber.Ctx) error {
	var input service.CreateEventInput
	if err := parseBody(c, &input); err != nil {
		return fail(c, err)
	}

	event, err := h.events.Create(c.UserContext(), input)
	if err != nil {
		return fail(c, err)
	}
	return success(c, fiber.StatusCreated, event)
}

func (h *Handler) UpdateEvent(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	var patch model.EventPatch
	if err := parseBody(c, &patch); err != nil {
		return fail(c, err)
	}

	event, err := h.events.Update(c.UserContext(), id, patch)
	if err != nil {
		return fail(c, err)
	}
	return success(c, fiber.StatusOK, event)
}

func (h *Handler) DeleteEvent(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return fail(c, err)
	}

	if err := h.events.Delete(c.UserContext(), id); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "data": fiber.Map{}})
}

func (h *Handler) CheckAvailability(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return fail(c, err)
	}

	availability, err := h.events.Availability(c.UserContext(), id, queryInt(c, "tickets", 1))
	if err != nil {
		return fail(c, err)
	}
	return success(c, fiber.StatusOK, availability)
}
