package infors

import (
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/momeni/sqlmig/pkg/adapter/restful/gin/serdser"
	"github.com/momeni/sqlmig/pkg/core/model"
	"github.com/momeni/sqlmig/pkg/core/resolver"
)

type listReq struct {
	Filter string `form:"filter" binding:"omitempty,oneof=all pending applied resolved failed future out-of-order"`
}

func (rs *resource) DserListReq(c *gin.Context) *listReq {
	req := &listReq{}
	if ok := serdser.Bind(c, req, binding.Query); !ok {
		return nil
	}
	return req
}

func (req *listReq) filter(infos *resolver.Infos) []*model.MigrationInfo {
	switch req.Filter {
	case "pending":
		return infos.Pending()
	case "applied":
		return infos.Applied()
	case "resolved":
		return infos.Resolved()
	case "failed":
		return infos.Failed()
	case "future":
		return infos.Future()
	case "out-of-order":
		return infos.OutOfOrder()
	default:
		return infos.All()
	}
}
