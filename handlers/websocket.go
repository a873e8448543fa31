package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/j-soro/housing-ml-pipeline/engine"
	"github.com/j-soro/housing-ml-pipeline/services"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// LiveRuns streams run status transitions to authenticated clients over a
// websocket. Browsers cannot set headers on websocket dials, so the token
// rides a query parameter instead of the Authorization header.
func LiveRuns(cache *services.CacheService, auth *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token query parameter"})
			return
		}
		if _, err := auth.ValidateToken(token); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("websocket upgrade failed: %v", err)
			return
		}
		defer conn.Close()

		ctx, cancel := context.WithCancel(c.Request.Context())
		defer cancel()

		// The read pump exists to notice the peer going away.
		go func() {
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					cancel()
					return
				}
			}
		}()

		pubsub := cache.Subscribe(ctx, engine.EventsChannel)
		if pubsub == nil {
			conn.WriteJSON(gin.H{"type": "error", "data": "live updates unavailable"})
			return
		}
		defer pubsub.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-pubsub.Channel():
				if !ok {
					return
				}
				update := gin.H{"type": "run_update", "data": json.RawMessage(msg.Payload)}
				if err := conn.WriteJSON(update); err != nil {
					return
				}
			}
		}
	}
}
