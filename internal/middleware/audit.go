// audit.go provides Gin middleware that records authenticated admission
// actions to the audit log, with optional shipping to external destinations.
package middleware

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campus5/club-service/internal/audit"
	"github.com/campus5/club-service/internal/config"
	"github.com/campus5/club-service/internal/db/models"
	"github.com/campus5/club-service/internal/db/repositories"
)

// AuditMiddleware logs authenticated actions to the database only
func AuditMiddleware(auditRepo *repositories.AuditRepository) gin.HandlerFunc {
	return AuditMiddlewareWithShipper(auditRepo, nil, nil)
}

// AuditMiddlewareWithShipper logs authenticated actions and ships to external destinations
func AuditMiddlewareWithShipper(auditRepo *repositories.AuditRepository, shipper audit.Shipper, auditCfg *config.AuditConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Process request first
		c.Next()

		if c.Request.Method == "OPTIONS" {
			return
		}

		logReadOps := auditCfg != nil && auditCfg.LogReadOperations
		logFailedReqs := auditCfg != nil && auditCfg.LogFailedRequests

		isReadOp := c.Request.Method == "GET"
		isFailed := c.Writer.Status() >= 400

		// Default behavior: only log successful write operations
		if isReadOp && !logReadOps {
			return
		}
		if isFailed && !logFailedReqs {
			return
		}

		path := c.Request.URL.Path
		action := auditAction(c.Request.Method, path)
		resourceType := auditResourceType(path)
		ipAddress := c.ClientIP()

		auditLog := &models.AuditLog{
			Action:    action,
			IPAddress: &ipAddress,
			CreatedAt: time.Now(),
		}
		if resourceType != "" {
			auditLog.ResourceType = &resourceType
		}

		var userIDStr string
		if userID := GetUserID(c); userID != "" {
			userIDStr = userID
			auditLog.UserID = &userIDStr
		}

		// Club handlers store the club ID so audit rows can be filtered per club.
		var clubIDStr string
		if v, exists := c.Get("club_id"); exists {
			if id, ok := v.(string); ok && id != "" {
				clubIDStr = id
				auditLog.ClubID = &clubIDStr
			}
		}

		metadata := map[string]interface{}{
			"status_code": c.Writer.Status(),
		}
		// Admission handlers record the outcome for investigations.
		if v, exists := c.Get("admission_outcome"); exists {
			metadata["outcome"] = v
		}
		auditLog.Metadata = metadata

		// Async log creation (non-blocking)
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if auditRepo != nil {
				if err := auditRepo.CreateAuditLog(ctx, auditLog); err != nil {
					slog.Warn("failed to create audit log", "error", err)
				}
			}

			if shipper != nil {
				entry := &audit.LogEntry{
					Timestamp:    auditLog.CreatedAt,
					Action:       auditLog.Action,
					UserID:       userIDStr,
					ClubID:       clubIDStr,
					ResourceType: resourceType,
					IPAddress:    ipAddress,
					StatusCode:   c.Writer.Status(),
					Metadata:     metadata,
				}

				if err := shipper.Ship(ctx, entry); err != nil {
					slog.Warn("failed to ship audit log", "error", err)
				}
			}
		}()
	}
}

// auditAction maps a request to a stable dotted action name. Unmatched paths
// fall back to "METHOD /path" so nothing goes unrecorded.
func auditAction(method, path string) string {
	switch {
	case strings.Contains(path, "/join"):
		return "club.join"
	case strings.Contains(path, "/invites") && strings.Contains(path, "/redeem"):
		return "invite.redeem"
	case strings.Contains(path, "/invites") && method == "POST":
		return "invite.create"
	case strings.Contains(path, "/invites") && method == "DELETE":
		return "invite.revoke"
	case strings.Contains(path, "/requests") && strings.Contains(path, "/resolve"):
		return "request.resolve"
	case strings.Contains(path, "/clubs") && method == "POST":
		return "club.create"
	case strings.Contains(path, "/clubs") && method == "DELETE":
		return "club.delete"
	}
	return method + " " + path
}

func auditResourceType(path string) string {
	switch {
	case strings.Contains(path, "/invites"):
		return "invite_token"
	case strings.Contains(path, "/requests"):
		return "join_request"
	case strings.Contains(path, "/clubs"):
		return "club"
	}
	return ""
}
