package model

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"
	"unicode/utf8"
)

// DateOp 上映日期比较符
type DateOp string

const (
	DateBefore      DateOp = "lt"
	DateOnOrBefore  DateOp = "lte"
	DateOn          DateOp = "eq"
	DateOnOrAfter   DateOp = "gte"
	DateAfter       DateOp = "gt"
	releaseDateAttr        = "release_date"
)

var dateOpSQL = map[DateOp]string{
	DateBefore:     "<",
	DateOnOrBefore: "<=",
	DateOn:         "=",
	DateOnOrAfter:  ">=",
	DateAfter:      ">",
}

// SQL 返回比较符对应的 SQL 运算符
func (op DateOp) SQL() (string, bool) {
	s, ok := dateOpSQL[op]
	return s, ok
}

// Param 查询参数名，例如 release_date_gte
func (op DateOp) Param() string {
	return releaseDateAttr + "_" + string(op)
}

// DateCondition 单个上映日期条件
type DateCondition struct {
	Op    DateOp
	Value time.Time
}

// MovieFilter 电影列表筛选条件，各条件之间为 AND
type MovieFilter struct {
	TitleContains string
	ReleaseDate   []DateCondition
}

// ValidTitle 标题必须是合法 UTF-8 且不含 NUL，否则数据库会拒绝该参数
func ValidTitle(s string) bool {
	return utf8.ValidString(s) && !strings.ContainsRune(s, 0)
}

// Validate 检查标题、比较符和日期是否合法
func (f MovieFilter) Validate() error {
	if !ValidTitle(f.TitleContains) {
		return fmt.Errorf("title: invalid characters %q", f.TitleContains)
	}
	for _, c := range f.ReleaseDate {
		if _, ok := c.Op.SQL(); !ok {
			return fmt.Errorf("unknown release date operator %q", c.Op)
		}
		if c.Value.IsZero() {
			return fmt.Errorf("%s: empty date", c.Op.Param())
		}
	}
	return nil
}

// Normalize 输出规范化的查询串（参数排序），用作缓存键
func (f MovieFilter) Normalize() string {
	v := url.Values{}
	if f.TitleContains != "" {
		v.Set("title", f.TitleContains)
	}
	for _, c := range f.ReleaseDate {
		v.Add(c.Op.Param(), c.Value.UTC().Format(DateLayout))
	}
	for k := range v {
		sort.Strings(v[k])
	}
	// url.Values.Encode 本身按 key 排序
	return v.Encode()
}

// ParseDate 解析 YYYY-MM-DD 或 RFC3339，统一截断到 UTC 日期
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}
