package handler

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academic-core-api/internal/middleware"
	"github.com/noah-isme/academic-core-api/internal/models"
	appErrors "github.com/noah-isme/academic-core-api/pkg/errors"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	return middleware.Claims(c)
}

// actorFromContext builds the domain actor from verified claims. An
// anonymous actor is rejected by the service policy.
func actorFromContext(c *gin.Context) models.Actor {
	return claimsFromContext(c).Actor()
}

func pageFromQuery(c *gin.Context) (page, size int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ = strconv.Atoi(c.Query("limit"))
	return page, size
}

// historyFromQuery reads the from/to window. Values may be dates or RFC3339 timestamps.
func historyFromQuery(c *gin.Context) (models.HistoryFilter, error) {
	var window models.HistoryFilter
	for key, dest := range map[string]**time.Time{"from": &window.From, "to": &window.To} {
		raw := strings.TrimSpace(c.Query(key))
		if raw == "" {
			continue
		}
		t, err := parseTime(raw)
		if err != nil {
			return window, appErrors.Clone(appErrors.ErrValidation, "invalid "+key+" parameter")
		}
		*dest = &t
	}
	return window, nil
}

func parseTime(raw string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, raw)
}

func listFromQuery(c *gin.Context, key string) []string {
	raw := c.Query(key)
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.ToUpper(strings.TrimSpace(part)); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func invalidPayload(err error) error {
	return appErrors.Wrap(err, appErrors.ErrValidation, "invalid payload")
}

var errForbiddenSelf = appErrors.Clone(appErrors.ErrForbidden, "students may only read their own records")
