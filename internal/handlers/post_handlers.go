package handlers

import (
	"github.com/AK-GUPTA-20/blog-backend/internal/middleware"
	"github.com/AK-GUPTA-20/blog-backend/internal/repository"
	"github.com/AK-GUPTA-20/blog-backend/internal/services"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type PostHandler struct {
	svc      services.PostService
	validate *validator.Validate
	logger   *zap.SugaredLogger
}

func NewPostHandler(svc services.PostService, logger *zap.Logger) *PostHandler {
	return &PostHandler{
		svc:      svc,
		validate: validator.New(),
		logger:   logger.Sugar(),
	}
}

func (h *PostHandler) parse(c *fiber.Ctx, req interface{}) error {
	if err := c.BodyParser(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body.")
	}
	if err := h.validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, formatValidationError(err))
	}
	return nil
}

func pages(total int64, limit int) int64 {
	if limit < 1 {
		limit = 10
	}
	return (total + int64(limit) - 1) / int64(limit)
}

type createPostReq struct {
	Title   string   `json:"title" validate:"required,max=200"`
	Content string   `json:"content" validate:"required"`
	Tags    []string `json:"tags" validate:"omitempty,dive,max=50"`
}

func (h *PostHandler) Create(c *fiber.Ctx) error {
	var req createPostReq
	if err := h.parse(c, &req); err != nil {
		return err
	}

	post, err := h.svc.Create(c.Context(), middleware.CurrentUser(c).ID, req.Title, req.Content, req.Tags)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Post created successfully",
		"data":    post,
	})
}

func (h *PostHandler) GetAll(c *fiber.Ctx) error {
	f := repository.PostFilter{
		Page:   c.QueryInt("page", 1),
		Limit:  c.QueryInt("limit", 10),
		Tag:    c.Query("tag"),
		Search: c.Query("search"),
		Sort:   c.Query("sort"),
	}
	if author := c.Query("author"); author != "" {
		id, err := primitive.ObjectIDFromHex(author)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Resource not found. Invalid: author")
		}
		f.Author = id
	}

	posts, total, err := h.svc.List(c.Context(), f)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"total":   total,
		"page":    f.Page,
		"pages":   pages(total, f.Limit),
		"data":    posts,
	})
}

func (h *PostHandler) GetSingle(c *fiber.Ctx) error {
	post, err := h.svc.GetBySlug(c.Context(), c.Params("slug"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    post,
	})
}

func (h *PostHandler) Top(c *fiber.Ctx) error {
	posts, err := h.svc.Top(c.Context(), c.QueryInt("limit", 5))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"count":   len(posts),
		"data":    posts,
	})
}

func (h *PostHandler) MyPosts(c *fiber.Ctx) error {
	f := repository.PostFilter{
		Author: middleware.CurrentUser(c).ID,
		Page:   c.QueryInt("page", 1),
		Limit:  10,
		Sort:   c.Query("sort"),
	}

	posts, total, err := h.svc.List(c.Context(), f)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"total":   total,
		"page":    f.Page,
		"pages":   pages(total, f.Limit),
		"data":    posts,
	})
}

func (h *PostHandler) ByTag(c *fiber.Ctx) error {
	f := repository.PostFilter{
		Tag:   c.Params("tag"),
		Page:  c.QueryInt("page", 1),
		Limit: c.QueryInt("limit", 10),
	}

	posts, total, err := h.svc.List(c.Context(), f)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"total":   total,
		"page":    f.Page,
		"pages":   pages(total, f.Limit),
		"data":    posts,
	})
}

func (h *PostHandler) ByAuthor(c *fiber.Ctx) error {
	id, err := primitive.ObjectIDFromHex(c.Params("authorId"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Resource not found. Invalid: authorId")
	}
	f := repository.PostFilter{
		Author: id,
		Page:   c.QueryInt("page", 1),
		Limit:  c.QueryInt("limit", 10),
	}

	posts, total, err := h.svc.List(c.Context(), f)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"total":   total,
		"page":    f.Page,
		"pages":   pages(total, f.Limit),
		"data":    posts,
	})
}

type updatePostReq struct {
	Title   *string  `json:"title" validate:"omitempty,max=200"`
	Content *string  `json:"content"`
	Tags    []string `json:"tags" validate:"omitempty,dive,max=50"`
}

func (h *PostHandler) Update(c *fiber.Ctx) error {
	id, err := primitive.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Resource not found. Invalid: id")
	}

	var req updatePostReq
	if err := h.parse(c, &req); err != nil {
		return err
	}

	post, err := h.svc.Update(c.Context(), middleware.CurrentUser(c).ID, id, req.Title, req.Content, req.Tags)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Post updated successfully",
		"data":    post,
	})
}

func (h *PostHandler) Delete(c *fiber.Ctx) error {
	id, err := primitive.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Resource not found. Invalid: id")
	}

	if err := h.svc.Delete(c.Context(), middleware.CurrentUser(c).ID, id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Post deleted successfully",
	})
}

func (h *PostHandler) Like(c *fiber.Ctx) error {
	id, err := primitive.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Resource not found. Invalid: id")
	}

	likes, err := h.svc.Like(c.Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Post liked successfully",
		"data":    fiber.Map{"likes": likes},
	})
}
