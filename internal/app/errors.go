package app

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"meetings-service/internal/store"
)

type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

type AlreadyExistsError struct {
	Message string
}

func (e *AlreadyExistsError) Error() string { return e.Message }

type ForbiddenError struct {
	Message string
}

func (e *ForbiddenError) Error() string { return e.Message }

type UnauthorizedError struct {
	Message string
}

func (e *UnauthorizedError) Error() string { return e.Message }

// ValidationError maps request fields to the problems found with them.
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid request: %v", e.Fields)
}

func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = map[string][]string{}
	}
	e.Fields[field] = append(e.Fields[field], msg)
}

// Merge copies the fields of another *ValidationError into e.
func (e *ValidationError) Merge(err error) {
	var other *ValidationError
	if !errors.As(err, &other) {
		return
	}
	for field, msgs := range other.Fields {
		for _, msg := range msgs {
			e.Add(field, msg)
		}
	}
}

// OrNil lets callers accumulate problems and return a plain error.
func (e *ValidationError) OrNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

func userNotFound(name string) error {
	return &NotFoundError{Message: fmt.Sprintf("User \"%s\" does not exist", name)}
}

func meetingNotFound(id int64) error {
	return &NotFoundError{Message: fmt.Sprintf("Meeting with id \"%d\" does not exist", id)}
}

func ok(c *gin.Context, body gin.H) {
	if body == nil {
		body = gin.H{}
	}
	body["status"] = "ok"
	c.JSON(http.StatusOK, body)
}

func respondError(c *gin.Context, err error) {
	var (
		notFound     *NotFoundError
		exists       *AlreadyExistsError
		forbidden    *ForbiddenError
		unauthorized *UnauthorizedError
		invalid      *ValidationError
	)
	switch {
	case errors.As(err, &invalid):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"status": "error", "error": invalid.Fields})
	case errors.As(err, &notFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"status": "error", "error": notFound.Message})
	case errors.As(err, &exists):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"status": "error", "error": exists.Message})
	case errors.As(err, &forbidden):
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"status": "error", "error": forbidden.Message})
	case errors.As(err, &unauthorized):
		c.Header("WWW-Authenticate", `Basic realm="meetings"`)
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"status": "error", "error": unauthorized.Message})
	case errors.Is(err, store.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"status": "error", "error": "not found"})
	default:
		_ = c.Error(err)
		if l, found := c.Get(loggerKey); found {
			l.(*zap.Logger).Error("request failed", zap.Error(err))
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"status": "error", "error": "internal error"})
	}
}
