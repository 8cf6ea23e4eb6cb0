package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/dept-csat-engine/internal/dto"
	"github.com/noah-isme/dept-csat-engine/internal/middleware"
	"github.com/noah-isme/dept-csat-engine/internal/service"
	appErrors "github.com/noah-isme/dept-csat-engine/pkg/errors"
	"github.com/noah-isme/dept-csat-engine/pkg/export"
	"github.com/noah-isme/dept-csat-engine/pkg/logger"
	"github.com/noah-isme/dept-csat-engine/pkg/response"
)

type pinger interface {
	PingContext(ctx context.Context) error
}

type opsReports interface {
	ClassifyDepartments(ctx context.Context, now time.Time) (*dto.ComplianceReport, error)
	Admin(ctx context.Context) (*dto.AdminDashboardResponse, error)
}

type engineReports struct {
	*service.ComplianceService
	*service.DashboardService
}

func newOpsRouter(db pinger, eng *engine, logr *zap.Logger) *gin.Engine {
	return buildOpsRouter(db, engineReports{eng.compliance, eng.dashboard}, eng.metrics, logr)
}

func buildOpsRouter(db pinger, reports opsReports, metrics *service.MetricsService, logr *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(logger.GinMiddleware(logr))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	r.GET("/reports/compliance", func(c *gin.Context) {
		report, err := reports.ClassifyDepartments(c.Request.Context(), time.Now().UTC())
		if err != nil {
			response.Error(c, err)
			return
		}
		writeReport(c, "compliance", report, func() export.Table { return service.ComplianceTable(report) })
	})

	r.GET("/reports/dashboard", func(c *gin.Context) {
		resp, err := reports.Admin(c.Request.Context())
		if err != nil {
			response.Error(c, err)
			return
		}
		writeReport(c, "performance", resp, func() export.Table { return service.PerformanceTable(resp) })
	})
	return r
}

// writeReport honours ?format=json|csv|pdf; json is the default.
func writeReport(c *gin.Context, name string, data interface{}, table func() export.Table) {
	format := c.DefaultQuery("format", export.FormatJSON)
	var (
		body []byte
		err  error
	)
	switch format {
	case export.FormatJSON:
		response.JSON(c, http.StatusOK, data)
		return
	case export.FormatCSV:
		body, err = export.CSV(table())
	case export.FormatPDF:
		body, err = export.PDF(table())
	default:
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unsupported report format "+format))
		return
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, http.StatusOK, export.ContentType(format), name+"."+format, body)
}
