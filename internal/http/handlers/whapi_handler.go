// WhatsApp (Whapi) connector handlers.
//
// The WhatsApp integration is scaffolded but not yet wired to a gateway
// account. The routes exist so that the public surface is stable for clients
// and infrastructure (routing rules, monitors) while the integration is
// pending; every endpoint answers an explicit not_implemented payload instead
// of a 404.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// WhapiConnector carries the (future) Whapi gateway configuration.
type WhapiConnector struct {
	Configured bool // true when WHAPI_API_KEY is set
}

// WhapiEvents godoc
// @ID          whapiEvents
// @Summary     WhatsApp webhook (not implemented)
// @Tags        WhatsApp Connector
// @Produce     json
// @Success     200 {object} map[string]any
// @Router      /canales/whapi/events [post]
func (w *WhapiConnector) WhapiEvents(c *gin.Context) {
	ok(c, http.StatusOK, gin.H{
		"status":  "not_implemented",
		"message": "WhatsApp integration is not available yet",
	})
}

// WhapiSend godoc
// @ID          whapiSend
// @Summary     Send a WhatsApp message (not implemented)
// @Tags        WhatsApp Connector
// @Produce     json
// @Success     200 {object} map[string]any
// @Router      /canales/whapi/send [post]
func (w *WhapiConnector) WhapiSend(c *gin.Context) {
	ok(c, http.StatusOK, gin.H{
		"status":  "not_implemented",
		"message": "WhatsApp integration is not available yet",
	})
}

// WhapiHealth godoc
// @ID          whapiHealth
// @Summary     WhatsApp connector health
// @Tags        WhatsApp Connector
// @Produce     json
// @Success     200 {object} map[string]any
// @Router      /canales/whapi/health [get]
func (w *WhapiConnector) WhapiHealth(c *gin.Context) {
	ok(c, http.StatusOK, gin.H{
		"status":     "not_implemented",
		"connected":  false,
		"configured": w.Configured,
	})
}
