package handler

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/mattfreire/moviedb/internal/model"
	"github.com/mattfreire/moviedb/internal/service"
	"github.com/mattfreire/moviedb/internal/utils"
	"go.uber.org/zap"
)

// movieQuery GET /movies 的查询参数
type movieQuery struct {
	Title          string `form:"title" binding:"omitempty,max=200,validtitle"`
	ReleaseDateLt  string `form:"release_date_lt" binding:"omitempty,releasedate"`
	ReleaseDateLte string `form:"release_date_lte" binding:"omitempty,releasedate"`
	ReleaseDateEq  string `form:"release_date_eq" binding:"omitempty,releasedate"`
	ReleaseDateGte string `form:"release_date_gte" binding:"omitempty,releasedate"`
	ReleaseDateGt  string `form:"release_date_gt" binding:"omitempty,releasedate"`
}

// filter 转换为查询条件，比较符顺序固定
func (q movieQuery) filter() (model.MovieFilter, error) {
	f := model.MovieFilter{TitleContains: q.Title}
	pairs := []struct {
		op  model.DateOp
		raw string
	}{
		{model.DateBefore, q.ReleaseDateLt},
		{model.DateOnOrBefore, q.ReleaseDateLte},
		{model.DateOn, q.ReleaseDateEq},
		{model.DateOnOrAfter, q.ReleaseDateGte},
		{model.DateAfter, q.ReleaseDateGt},
	}
	for _, p := range pairs {
		if p.raw == "" {
			continue
		}
		d, err := model.ParseDate(p.raw)
		if err != nil {
			return f, fmt.Errorf("%s: %w", p.op.Param(), err)
		}
		f.ReleaseDate = append(f.ReleaseDate, model.DateCondition{Op: p.op, Value: d})
	}
	return f, nil
}

var validatorsOnce sync.Once

// registerValidators 在 gin 的校验器上注册 releasedate 规则，字段名取 form 标签
func registerValidators() {
	validatorsOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		_ = v.RegisterValidation("releasedate", func(fl validator.FieldLevel) bool {
			_, err := model.ParseDate(fl.Field().String())
			return err == nil
		})
		_ = v.RegisterValidation("validtitle", func(fl validator.FieldLevel) bool {
			return model.ValidTitle(fl.Field().String())
		})
	})
}

// fieldErrors 把绑定错误展开成逐字段明细
func fieldErrors(err error) []utils.FieldError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []utils.FieldError{{Field: "query", Tag: "bind", Message: err.Error()}}
	}
	out := make([]utils.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, utils.FieldError{
			Field:   fe.Field(),
			Tag:     fe.Tag(),
			Value:   fmt.Sprint(fe.Value()),
			Message: fieldMessage(fe),
		})
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "releasedate":
		return "日期格式应为 YYYY-MM-DD 或 RFC3339"
	case "validtitle":
		return "标题必须是合法的 UTF-8 文本且不能包含空字符"
	case "max":
		return "长度不能超过 " + fe.Param()
	default:
		return "参数不合法"
	}
}

// ListMovies 电影列表
func (h *Handler) ListMovies(c *gin.Context) {
	var q movieQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		utils.ValidationFailed(c, fieldErrors(err))
		return
	}
	filter, err := q.filter()
	if err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	movies, hit, err := h.Movies.ListMoviesCached(c.Request.Context(), filter)
	if err != nil {
		if errors.Is(err, service.ErrInvalidFilter) {
			utils.BadRequest(c, err.Error())
			return
		}
		h.log.Error("查询电影失败", zap.String("query", c.Request.URL.RawQuery), zap.Error(err))
		utils.InternalServerError(c, "")
		return
	}

	if hit {
		c.Header("X-Cache", "HIT")
	} else {
		c.Header("X-Cache", "MISS")
	}
	c.JSON(http.StatusOK, movies)
}
