// Copyright (c) 2023-2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package gin_test

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"

	"github.com/goccy/go-json"
	"github.com/momeni/sqlmig/internal/test/sqlitedb"
	"github.com/momeni/sqlmig/pkg/adapter/db/historyrp"
	"github.com/momeni/sqlmig/pkg/adapter/db/sqlite"
	"github.com/momeni/sqlmig/pkg/adapter/restful/gin"
	"github.com/momeni/sqlmig/pkg/adapter/restful/gin/routes"
	"github.com/momeni/sqlmig/pkg/adapter/source/fssrc"
	"github.com/momeni/sqlmig/pkg/core/model"
	"github.com/momeni/sqlmig/pkg/core/usecase/migrationuc"
	"github.com/stretchr/testify/suite"
)

type IntegrationGinTestSuite struct {
	suite.Suite

	Ctx     context.Context
	Pool    *sqlite.Pool
	History *historyrp.Repo
}

func TestIntegrationGinTestSuite(t *testing.T) {
	suite.Run(t, &IntegrationGinTestSuite{Ctx: context.Background()})
}

var scripts = fstest.MapFS{
	"V1__create_users.sql": {Data: []byte("CREATE TABLE users (id INT);")},
	"V2__create_posts.sql": {Data: []byte("CREATE TABLE posts (id INT);")},
}

func (igts *IntegrationGinTestSuite) SetupTest() {
	igts.Pool = sqlitedb.New(igts.Ctx, igts.T())
	h, err := historyrp.New(sqlite.NewDialect())
	igts.Require().NoError(err, "historyrp.New")
	igts.History = h
}

func (igts *IntegrationGinTestSuite) engine(
	fsys fstest.MapFS, opts ...migrationuc.Option,
) (*gin.Engine, *migrationuc.UseCase) {
	src, err := fssrc.New(fsys)
	igts.Require().NoError(err, "fssrc.New")
	uc, err := migrationuc.New(
		igts.Pool, sqlite.NewDialect(), igts.History, src, opts...,
	)
	igts.Require().NoError(err, "migrationuc.New")
	e := gin.New(gin.Logger(slog.Default()), gin.Recovery())
	igts.Require().NotNil(e, "cannot instantiate Gin engine")
	routes.Register(e, uc)
	return e, uc
}

func (igts *IntegrationGinTestSuite) get(
	e *gin.Engine, path string, res any,
) int {
	w := httptest.NewRecorder()
	req, err := http.NewRequest(http.MethodGet, path, nil)
	igts.Require().NoError(err, "cannot create GET request")
	e.ServeHTTP(w, req)
	igts.Equal("application/json; charset=utf-8", w.Header().Get("Content-Type"))
	igts.Require().NoError(json.Unmarshal(w.Body.Bytes(), res), "body: %s", w.Body)
	return w.Code
}

type summary struct {
	Category      string
	Version       string
	Script        string
	State         string
	InstalledRank int
	Checksum      *int32
}

func (igts *IntegrationGinTestSuite) TestListMigrations() {
	e, uc := igts.engine(
		scripts, migrationuc.WithTarget(model.MustParseVersion("1")),
	)
	var list []summary
	igts.Equal(http.StatusOK, igts.get(e, "/api/sqlmig/v1/migrations", &list))
	igts.Require().Len(list, 2)
	igts.Equal("Pending", list[0].State)

	_, err := uc.Migrate(igts.Ctx)
	igts.Require().NoError(err, "Migrate")

	igts.Equal(http.StatusOK, igts.get(e, "/api/sqlmig/v1/migrations", &list))
	igts.Require().Len(list, 2)
	igts.Equal(summary{
		Category:      "Versioned",
		Version:       "1",
		Script:        "V1__create_users.sql",
		State:         "Success",
		InstalledRank: 1,
		Checksum:      list[0].Checksum,
	}, list[0])
	igts.NotNil(list[0].Checksum)
	igts.Equal("Above Target", list[1].State)

	igts.Equal(http.StatusOK, igts.get(
		e, "/api/sqlmig/v1/migrations?filter=applied", &list,
	))
	igts.Len(list, 1)
	igts.Equal(http.StatusOK, igts.get(
		e, "/api/sqlmig/v1/migrations?filter=failed", &list,
	))
	igts.Empty(list)

	var cur summary
	igts.Equal(http.StatusOK, igts.get(
		e, "/api/sqlmig/v1/migrations/current", &cur,
	))
	igts.Equal("V1__create_users.sql", cur.Script)
}

func (igts *IntegrationGinTestSuite) TestBadRequest() {
	e, _ := igts.engine(scripts)
	res := map[string][]string{}
	code := igts.get(e, "/api/sqlmig/v1/migrations?filter=unknown", &res)
	igts.Equal(http.StatusBadRequest, code)
	igts.Require().Len(res["Filter"], 1)
	igts.Contains(res["Filter"][0], "failed on the 'oneof' tag")
}

func (igts *IntegrationGinTestSuite) TestCurrentNotFound() {
	e, _ := igts.engine(scripts)
	res := struct{ Detail string }{}
	code := igts.get(e, "/api/sqlmig/v1/migrations/current", &res)
	igts.Equal(http.StatusNotFound, code)
	igts.Equal("no migration is applied", res.Detail)
}

func (igts *IntegrationGinTestSuite) TestValidation() {
	e, uc := igts.engine(scripts)
	_, err := uc.Migrate(igts.Ctx)
	igts.Require().NoError(err, "Migrate")
	res := struct {
		Valid  bool
		Detail string
		Errors []struct{ Code, Version string }
	}{}
	igts.Equal(http.StatusOK, igts.get(e, "/api/sqlmig/v1/validation", &res))
	igts.True(res.Valid)

	edited := fstest.MapFS{
		"V1__create_users.sql": scripts["V1__create_users.sql"],
		"V2__create_posts.sql": {Data: []byte("CREATE TABLE posts (id BIGINT);")},
	}
	e, _ = igts.engine(edited)
	igts.Equal(http.StatusConflict, igts.get(e, "/api/sqlmig/v1/validation", &res))
	igts.Equal("validation failed", res.Detail)
	igts.Require().Len(res.Errors, 1)
	igts.Equal("CHECKSUM_MISMATCH", res.Errors[0].Code)
	igts.Equal("2", res.Errors[0].Version)
}
