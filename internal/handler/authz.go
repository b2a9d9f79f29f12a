package handler

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/StormyOasis/linsta-sub001/internal/audit"
	"github.com/StormyOasis/linsta-sub001/pkg/middleware"
	"github.com/StormyOasis/linsta-sub001/pkg/response"
)

// requestorParam is the caller id older clients send with every write.
const requestorParam = "requestorId"

// requestor returns the authenticated user id. A legacy requestorId, when
// sent in the query or a JSON body, must name the same user as the token.
func requestor(c *gin.Context) (string, bool) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		response.Unauthorized(c, "unauthorized")
		return "", false
	}
	for _, rid := range []string{c.Query(requestorParam), bodyRequestor(c)} {
		if rid != "" && rid != userID {
			audit.LogTarget(c.Request.Context(), audit.ActionForbiddenAccess, userID, rid, "requestorId does not match token")
			response.Forbidden(c, "not allowed")
			return "", false
		}
	}
	return userID, true
}

// bodyRequestor peeks at a JSON body for requestorId and puts the body back
// for the handler's own binding. Multipart forms are not inspected.
func bodyRequestor(c *gin.Context) string {
	if c.Request.Body == nil || c.ContentType() != binding.MIMEJSON {
		return ""
	}
	data, err := io.ReadAll(c.Request.Body)
	c.Request.Body = io.NopCloser(bytes.NewReader(data))
	if err != nil || len(data) == 0 {
		return ""
	}
	var body struct {
		RequestorID string `json:"requestorId"`
	}
	// Malformed bodies are reported by the handler's binding.
	_ = json.Unmarshal(data, &body)
	return body.RequestorID
}

// authorize passes only when the caller is ownerID.
func authorize(c *gin.Context, ownerID string) (string, bool) {
	userID, ok := requestor(c)
	if !ok {
		return "", false
	}
	if userID != ownerID {
		audit.LogTarget(c.Request.Context(), audit.ActionForbiddenAccess, userID, ownerID, "not the resource owner")
		response.Forbidden(c, "not allowed")
		return "", false
	}
	return userID, true
}
