package relay

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	httperr "github.com/the-tatanka/product-vas-fraud-api/internal/core/errors"
)

// Service relays the dashboard's case management calls to the CDQ API. The
// service never stores cases itself; it scopes every call to our
// classification and passes upstream bodies through verbatim.
type Service struct {
	client *Client
}

func NewService(client *Client) *Service {
	if client == nil {
		panic("relay: client must not be nil")
	}
	return &Service{client: client}
}

func (s *Service) RegisterRoutes(r gin.IRouter, roleGuard gin.HandlerFunc) {
	grp := r.Group("/fraudcases", roleGuard)
	grp.GET("", s.ListHandler)
	grp.POST("", s.CreateHandler)
	grp.GET("/statistics", s.StatisticsHandler)
}

// ListHandler handles GET /fraudcases, forwarding the upstream paging and
// search parameters.
func (s *Service) ListHandler(c *gin.Context) {
	body, err := s.client.Fraudcases(c.Request.Context(), FraudcasesQuery{
		Page:     c.Query("page"),
		PageSize: c.Query("pageSize"),
		Search:   c.Query("search"),
		Sort:     c.Query("sort"),
	})
	if err != nil {
		s.relayError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json", body)
}

// CreateHandler handles POST /fraudcases. The request body is the bare case
// document; the client wraps and classifies it before submitting upstream.
func (s *Service) CreateHandler(c *gin.Context) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusInternalServerError,
			httperr.New(http.StatusInternalServerError, "failed to read request body"))
		return
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		c.JSON(http.StatusBadRequest,
			httperr.New(http.StatusBadRequest, "request body must be a JSON object"))
		return
	}

	body, err := s.client.CreateFraudCase(c.Request.Context(), payload)
	if err != nil {
		s.relayError(c, err)
		return
	}
	c.Data(http.StatusCreated, "application/json", body)
}

// StatisticsHandler handles GET /fraudcases/statistics, a pass-through of
// the upstream statistics document.
func (s *Service) StatisticsHandler(c *gin.Context) {
	body, err := s.client.Statistics(c.Request.Context())
	if err != nil {
		s.relayError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json", body)
}

func (s *Service) relayError(c *gin.Context, err error) {
	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		slog.Warn("CDQ API call failed", "status", upstream.StatusCode, "error", upstream.Message)
		c.JSON(upstream.StatusCode, httperr.New(upstream.StatusCode, upstream.Message))
		return
	}
	slog.Error("Unexpected relay failure", "error", err)
	c.JSON(http.StatusInternalServerError,
		httperr.New(http.StatusInternalServerError, "unexpected error"))
}
