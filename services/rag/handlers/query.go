// Package handlers holds the gin HTTP handlers for the course chatbot
// API.
package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/rossmck94/starting-ragchatbot-codebase/services/rag/datatypes"
	"github.com/rossmck94/starting-ragchatbot-codebase/services/rag/engine"
)

var tracer = otel.Tracer("ragserver.handlers")

// HandleQuery answers a user question, creating a session on demand
// when the request carries no session id.
func HandleQuery(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), "HandleQuery")
		defer span.End()

		var req datatypes.QueryRequest
		if err := c.BindJSON(&req); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("Failed to parse query request", "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		sessionID := req.SessionID
		if sessionID == "" {
			sessionID = eng.CreateSession()
		}

		answer, sources, err := eng.Query(ctx, sessionID, req.Query)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("Query failed", "session_id", sessionID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		if sources == nil {
			sources = []datatypes.SourceRef{}
		}
		c.JSON(http.StatusOK, datatypes.QueryResponse{
			Answer:    answer,
			Sources:   sources,
			SessionID: sessionID,
		})
	}
}

// HandleCourseStats reports the catalog contents.
func HandleCourseStats(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), "HandleCourseStats")
		defer span.End()

		stats, err := eng.CourseAnalytics(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("Course analytics failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, stats)
	}
}

// HandleClearSession drops a conversation session.
func HandleClearSession(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("sessionId")
		if id == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing session id"})
			return
		}
		eng.ClearSession(id)
		c.JSON(http.StatusOK, gin.H{"status": "cleared", "session_id": id})
	}
}

// HealthCheck reports liveness.
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
