package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/joseph-ayodele/estate-archive/internal/common"
	"github.com/joseph-ayodele/estate-archive/internal/metrics"
	"github.com/joseph-ayodele/estate-archive/internal/repository"
)

const requestIDHeader = "X-Request-ID"

// NewRouter builds the HTTP API on top of svc.
func NewRouter(svc *Service, logger *slog.Logger) *gin.Engine {
	if logger == nil {
		logger = slog.Default()
	}
	h := &httpHandler{svc: svc, logger: logger}

	router := gin.New()
	router.Use(gin.Recovery(), h.requestContext)

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/v1")
	{
		v1.POST("/documents", h.process)
		v1.GET("/results", h.listResults)
		v1.GET("/results/:id", h.getResult)
		v1.GET("/results/:id/candidates", h.candidates)
		v1.GET("/reviews", h.listReviews)
		v1.POST("/reviews/:id/resolve", h.resolveReview)
		v1.GET("/export.xlsx", h.export)
	}
	return router
}

type httpHandler struct {
	svc    *Service
	logger *slog.Logger
}

// requestContext tags the request with an id and records it once served.
func (h *httpHandler) requestContext(c *gin.Context) {
	start := time.Now()
	rid := c.GetHeader(requestIDHeader)
	if rid == "" {
		rid = uuid.NewString()
	}
	c.Header(requestIDHeader, rid)
	c.Request = c.Request.WithContext(common.WithRequestID(c.Request.Context(), rid))

	c.Next()

	route := c.FullPath()
	if route == "" {
		route = "unmatched"
	}
	code := c.Writer.Status()
	metrics.RecordHTTPRequest(c.Request.Method, route, strconv.Itoa(code))
	h.logger.Debug("http.request",
		"request_id", rid,
		"method", c.Request.Method,
		"route", route,
		"status_code", code,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

func (h *httpHandler) process(c *gin.Context) {
	var req ProcessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.sendError(c, common.WrapError(common.ErrInvalidInput, "invalid JSON body: "+err.Error()))
		return
	}
	resp, err := h.svc.Process(c.Request.Context(), req)
	if err != nil {
		h.sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *httpHandler) getResult(c *gin.Context) {
	res, err := h.svc.GetResult(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *httpHandler) listResults(c *gin.Context) {
	filter, err := listFilter(c)
	if err != nil {
		h.sendError(c, err)
		return
	}
	if v := c.Query("needs_review"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			h.sendError(c, common.WrapError(common.ErrInvalidInput, "needs_review must be a boolean"))
			return
		}
		filter.NeedsReview = &b
	}
	results, err := h.svc.ListResults(c.Request.Context(), filter)
	if err != nil {
		h.sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results, "count": len(results)})
}

func (h *httpHandler) candidates(c *gin.Context) {
	n, err := intQuery(c, "n")
	if err != nil {
		h.sendError(c, err)
		return
	}
	cands, err := h.svc.Candidates(c.Request.Context(), c.Param("id"), n)
	if err != nil {
		h.sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"document_id": c.Param("id"), "candidates": cands})
}

func (h *httpHandler) listReviews(c *gin.Context) {
	filter, err := listFilter(c)
	if err != nil {
		h.sendError(c, err)
		return
	}
	pending := c.DefaultQuery("pending", "true") != "false"
	reviews, err := h.svc.ListReviews(c.Request.Context(), pending, filter)
	if err != nil {
		h.sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reviews": reviews, "count": len(reviews)})
}

type resolveRequest struct {
	Resolution string `json:"resolution"`
}

func (h *httpHandler) resolveReview(c *gin.Context) {
	var req resolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.sendError(c, common.WrapError(common.ErrInvalidInput, "invalid JSON body: "+err.Error()))
		return
	}
	if err := h.svc.ResolveReview(c.Request.Context(), c.Param("id"), req.Resolution); err != nil {
		h.sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"document_id": c.Param("id"), "resolved": true})
}

func (h *httpHandler) export(c *gin.Context) {
	data, err := h.svc.ExportXLSX(c.Request.Context(), c.Query("batch_id"))
	if err != nil {
		h.sendError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="estate-archive.xlsx"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

func (h *httpHandler) sendError(c *gin.Context, err error) {
	code := httpStatus(err)
	if code >= http.StatusInternalServerError {
		h.logger.Error("http.request.failed",
			"request_id", common.RequestIDFromContext(c.Request.Context()),
			"path", c.Request.URL.Path,
			"error", err,
		)
	}
	c.AbortWithStatusJSON(code, gin.H{"error": err.Error()})
}

func httpStatus(err error) int {
	switch {
	case errors.Is(err, common.ErrInvalidInput), errors.Is(err, common.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound
	}
	if st, ok := status.FromError(err); ok {
		switch st.Code() {
		case codes.InvalidArgument:
			return http.StatusBadRequest
		case codes.NotFound:
			return http.StatusNotFound
		}
	}
	return http.StatusInternalServerError
}

func listFilter(c *gin.Context) (repository.ListFilter, error) {
	limit, err := intQuery(c, "limit")
	if err != nil {
		return repository.ListFilter{}, err
	}
	offset, err := intQuery(c, "offset")
	if err != nil {
		return repository.ListFilter{}, err
	}
	return repository.ListFilter{BatchID: c.Query("batch_id"), Limit: limit, Offset: offset}, nil
}

func intQuery(c *gin.Context, key string) (int, error) {
	v := c.Query(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, common.WrapError(common.ErrInvalidInput, key+" must be a non-negative integer")
	}
	return n, nil
}
