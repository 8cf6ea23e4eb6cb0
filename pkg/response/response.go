package response

import (
	"fmt"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/dept-csat-engine/pkg/errors"
)

// Envelope is the body of every JSON ops response.
type Envelope struct {
	Data  interface{}      `json:"data,omitempty"`
	Error *appErrors.Error `json:"error,omitempty"`
}

func noStore(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
}

// JSON sends data wrapped in the envelope.
func JSON(c *gin.Context, status int, data interface{}) {
	noStore(c)
	c.JSON(status, Envelope{Data: data})
}

// Error converts err into an engine error and sends it with its HTTP status.
func Error(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	noStore(c)
	c.JSON(appErr.Status, Envelope{Error: appErr})
}

// Attachment sends body as a download named filename.
func Attachment(c *gin.Context, status int, contentType, filename string, body []byte) {
	noStore(c)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(status, contentType, body)
}
