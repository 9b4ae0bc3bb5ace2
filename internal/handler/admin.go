package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mattfreire/moviedb/internal/service"
	"github.com/mattfreire/moviedb/internal/utils"
	"go.uber.org/zap"
)

// Ingest 同步执行一次完整导入
func (h *Handler) Ingest(c *gin.Context) {
	report, err := h.Loader.Run(c.Request.Context())
	if err != nil {
		h.log.Error("导入失败", zap.Error(err))
		utils.ErrorWithData(c, statusFor(err), err.Error(), report)
		return
	}
	utils.Success(c, report)
}

// Relink 按 metadata 重新建立演员与电影的关联
func (h *Handler) Relink(c *gin.Context) {
	report, err := h.Loader.Relink(c.Request.Context())
	if err != nil {
		h.log.Error("重新关联失败", zap.Error(err))
		utils.ErrorWithData(c, statusFor(err), err.Error(), report)
		return
	}
	utils.Success(c, report)
}

// ClearCatalog 清空演员、电影与关联
func (h *Handler) ClearCatalog(c *gin.Context) {
	if err := h.Loader.Clear(c.Request.Context()); err != nil {
		h.log.Error("清空数据失败", zap.Error(err))
		utils.InternalServerError(c, err.Error())
		return
	}
	utils.Success(c, gin.H{"cleared": true})
}

// statusFor 数据源阶段出错算上游故障，其余算内部错误
func statusFor(err error) int {
	var stageErr *service.StageError
	if errors.As(err, &stageErr) {
		switch stageErr.Stage {
		case service.StageFetchActors, service.StageFetchMovies:
			return http.StatusBadGateway
		}
	}
	return http.StatusInternalServerError
}
