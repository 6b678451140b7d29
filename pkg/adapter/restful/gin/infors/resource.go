// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package infors realizes the migrations info resource, allowing the
// read-only report REST APIs to be accepted and delegated to the
// migration use cases respectively.
package infors

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/momeni/sqlmig/pkg/adapter/restful/gin/serdser"
	"github.com/momeni/sqlmig/pkg/core/cerr"
	"github.com/momeni/sqlmig/pkg/core/model"
	"github.com/momeni/sqlmig/pkg/core/resolver"
)

// UseCase is the subset of the migration use cases which is reported
// by this resource. Nothing is changed in the database by its methods.
type UseCase interface {
	Info(ctx context.Context) (*resolver.Infos, error)
	Validate(ctx context.Context) error
}

type resource struct {
	uc UseCase
}

// Register instantiates a resource adapting the uc use case instance
// with the relevant REST APIs including:
//  1. GET request to /api/sqlmig/v1/migrations
//     in order to list the migrations with their states, optionally
//     filtered by the `filter` query param,
//  2. GET request to /api/sqlmig/v1/migrations/current
//     in order to get the last applied migration, and
//  3. GET request to /api/sqlmig/v1/validation
//     in order to validate the applied migrations.
func Register(r *gin.RouterGroup, uc UseCase) {
	rs := &resource{uc: uc}
	r.GET("migrations", rs.List)
	r.GET("migrations/current", rs.Current)
	r.GET("validation", rs.Validate)
}

func (rs *resource) List(c *gin.Context) {
	req := rs.DserListReq(c)
	if req == nil {
		return
	}
	infos, err := rs.uc.Info(c)
	if err != nil {
		serdser.SerErr(c, err)
		return
	}
	c.JSON(http.StatusOK, SerInfos(req.filter(infos)))
}

func (rs *resource) Current(c *gin.Context) {
	infos, err := rs.uc.Info(c)
	if err != nil {
		serdser.SerErr(c, err)
		return
	}
	mi := infos.Current()
	if mi == nil {
		serdser.SerErr(c, cerr.NotFound(errors.New("no migration is applied")))
		return
	}
	c.JSON(http.StatusOK, mi.Summarize())
}

func (rs *resource) Validate(c *gin.Context) {
	if err := rs.uc.Validate(c); err != nil {
		serdser.SerErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": true})
}

// SerInfos converts mis to their summaries. An empty list is returned
// instead of nil, so it is serialized as an empty JSON array.
func SerInfos(mis []*model.MigrationInfo) []model.InfoSummary {
	res := make([]model.InfoSummary, 0, len(mis))
	for _, mi := range mis {
		res = append(res, mi.Summarize())
	}
	return res
}
