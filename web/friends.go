package web

import (
	"context"
	"net/http"
	"strconv"

	"github.com/deemkeen/kinship/domain"
	"github.com/deemkeen/kinship/friends"
	"github.com/deemkeen/kinship/util"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type handlers struct {
	engine  *friends.Engine
	service *friends.Service
	logger  *zap.Logger
}

// param reads key from the query string, falling back to the form body.
func param(c *gin.Context, key string) string {
	if v, ok := c.GetQuery(key); ok {
		return v
	}
	return c.PostForm(key)
}

func caller(c *gin.Context) string {
	return c.GetString(ctxNpid)
}

func target(c *gin.Context) string {
	return util.TrimNpid(param(c, "target_npid"))
}

func (h *handlers) presence(c *gin.Context) {
	_, err := h.service.Heartbeat(c.Request.Context(), caller(c), param(c, "status"), param(c, "now_playing"))
	if err != nil {
		replyErr(c, h.logger, err)
		return
	}
	replyOK(c, "")
}

func (h *handlers) poll(c *gin.Context) {
	var since int64
	if raw := param(c, "since"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			replyErr(c, h.logger, domain.ErrInvalidTimestamp)
			return
		}
		since = v
	}

	res, err := h.engine.Poll(c.Request.Context(), caller(c), since)
	if err != nil {
		if c.Request.Context().Err() != nil {
			// client went away
			c.Abort()
			return
		}
		replyErr(c, h.logger, err)
		return
	}
	if res.Empty() {
		c.JSON(http.StatusOK, gin.H{})
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handlers) status(c *gin.Context) {
	snap, err := h.service.Status(c.Request.Context(), caller(c), target(c))
	if err != nil {
		replyErr(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h *handlers) list(c *gin.Context) {
	res, err := h.service.List(c.Request.Context(), caller(c), param(c, "group"))
	if err != nil {
		replyErr(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, res.Body())
}

func (h *handlers) profile(c *gin.Context) {
	p, err := h.service.Profile(c.Request.Context(), caller(c), target(c))
	if err != nil {
		replyErr(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *handlers) search(c *gin.Context) {
	res, err := h.service.Search(c.Request.Context(), caller(c), param(c, "query"))
	if err != nil {
		replyErr(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type mutation func(ctx context.Context, npid, target string) (string, error)

// mutate wraps a relationship change into a handler replying OK:<code>.
func (h *handlers) mutate(op mutation) gin.HandlerFunc {
	return func(c *gin.Context) {
		code, err := op(c.Request.Context(), caller(c), target(c))
		if err != nil {
			replyErr(c, h.logger, err)
			return
		}
		replyOK(c, code)
	}
}
