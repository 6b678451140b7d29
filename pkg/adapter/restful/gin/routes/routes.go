// Copyright (c) 2023-2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package routes contains all resource packages and facilitates
// their registration on a gin-gonic engine.
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/momeni/sqlmig/pkg/adapter/restful/gin/infors"
)

// Register registers the report resources, from packages which are
// named like infors, as request handlers using the e gin-gonic engine
// instance. The uc use case is shared by all requests, so the use case
// must be safe for concurrent use (as migrationuc.UseCase is).
func Register(e *gin.Engine, uc infors.UseCase) {
	r := e.Group("/api/sqlmig/v1")
	infors.Register(r, uc)
}
