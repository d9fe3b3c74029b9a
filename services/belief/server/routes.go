// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package server

import "github.com/gin-gonic/gin"

// RegisterRoutes registers the belief graph routes with the router.
//
// Description:
//
//	Registers all /v1/belief/* endpoints with the given Gin router group.
//	Every endpoint is read-only.
//
// Inputs:
//
//	rg - Gin router group (typically /v1)
//	handlers - The handlers instance
//
// Endpoints:
//
//	GET /v1/belief/health - Served artifact and graph statistics
//	GET /v1/belief/nodes?value=V[&slot=S] - Nodes by value
//	GET /v1/belief/nodes/:id - Node by id
//	GET /v1/belief/slots/:slot - Slot type and label
//	GET /v1/belief/slots/:slot/nodes - Nodes attached under a slot
//	GET /v1/belief/values/:value/slots - Connected slots and ambiguity
//	GET /v1/belief/range/:key - Range comparison label
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	belief := rg.Group("/belief")
	{
		belief.GET("/health", handlers.HandleHealth)

		belief.GET("/nodes", handlers.HandleNodes)
		belief.GET("/nodes/:id", handlers.HandleNode)

		belief.GET("/slots/:slot", handlers.HandleSlot)
		belief.GET("/slots/:slot/nodes", handlers.HandleSlotNodes)

		belief.GET("/values/:value/slots", handlers.HandleValueSlots)

		belief.GET("/range/:key", handlers.HandleRange)
	}
}
