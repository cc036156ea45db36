package mysql

import (
	"fmt"
	"strings"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/mysql"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/xiebiao/circulation/internal/domain/catalog"
)

const (
	dialectMySQL   = "mysql"
	dialectSQLite3 = "sqlite3"

	tableBooks = "bookinventory"
	colID      = "id"

	likeEscape = "!"
)

// 检索字段 → 列名
var searchColumns = map[catalog.Field]string{
	catalog.FieldTitle:             "title",
	catalog.FieldAuthor:            "author",
	catalog.FieldPublisher:         "publisher",
	catalog.FieldISBN:              "isbn",
	catalog.FieldDescription:       "description",
	catalog.FieldPublishedDate:     "published_date",
	catalog.FieldAvailableQuantity: "available_quantity",
	catalog.FieldTotalQuantity:     "quantity",
}

// buildSearchSQL 把谓词树编译成带占位符的SELECT
// gormDialect是gorm.Dialector.Name()(mysql / sqlite)
func buildSearchSQL(gormDialect string, pred catalog.Predicate) (string, []interface{}, error) {
	c := searchCompiler{mysql: gormDialect == dialectMySQL}
	where, err := c.compile(pred)
	if err != nil {
		return "", nil, err
	}

	dialect := dialectSQLite3
	if c.mysql {
		dialect = dialectMySQL
	}

	return goqu.Dialect(dialect).
		From(tableBooks).
		Where(where).
		Order(goqu.I(colID).Asc()).
		Prepared(true).
		ToSQL()
}

type searchCompiler struct {
	mysql bool
}

func (c searchCompiler) compile(pred catalog.Predicate) (exp.Expression, error) {
	switch p := pred.(type) {
	case catalog.MatchAll:
		return goqu.L("1 = 1"), nil
	case catalog.MatchNone:
		return goqu.L("1 = 0"), nil
	case catalog.Not:
		inner, err := c.compile(p.Inner)
		if err != nil {
			return nil, err
		}
		return goqu.L("NOT (?)", inner), nil
	case catalog.And:
		left, right, err := c.pair(p.Left, p.Right)
		if err != nil {
			return nil, err
		}
		return goqu.And(left, right), nil
	case catalog.Or:
		left, right, err := c.pair(p.Left, p.Right)
		if err != nil {
			return nil, err
		}
		return goqu.Or(left, right), nil
	case catalog.Condition:
		return c.condition(p)
	}
	return nil, fmt.Errorf("unsupported predicate %T", pred)
}

func (c searchCompiler) pair(l, r catalog.Predicate) (exp.Expression, exp.Expression, error) {
	left, err := c.compile(l)
	if err != nil {
		return nil, nil, err
	}
	right, err := c.compile(r)
	if err != nil {
		return nil, nil, err
	}
	return left, right, nil
}

func (c searchCompiler) condition(cond catalog.Condition) (exp.Expression, error) {
	col, ok := searchColumns[cond.Field]
	if !ok {
		return nil, fmt.Errorf("unknown search field %q", cond.Field)
	}
	kind, _ := cond.Field.Kind()

	switch kind {
	case catalog.KindText:
		return c.text(col, cond.Op, cond.Text)
	case catalog.KindDate:
		return compareColumn(col, cond.Op, catalog.DateOf(cond.Date))
	default:
		return compareColumn(col, cond.Op, cond.Number)
	}
}

// text 文本比较
// 大小写不敏感的运算统一用LOWER(),不依赖列的排序规则;
// exact在MySQL的_ci排序规则下需要BINARY才区分大小写
func (c searchCompiler) text(col string, op catalog.Operator, term string) (exp.Expression, error) {
	lowered := goqu.L("LOWER(?)", goqu.C(col))
	switch op {
	case catalog.OpContains:
		return goqu.L("? LIKE ? ESCAPE '"+likeEscape+"'", lowered, "%"+escapeLike(strings.ToLower(term))+"%"), nil
	case catalog.OpIStartWith:
		return goqu.L("? LIKE ? ESCAPE '"+likeEscape+"'", lowered, escapeLike(strings.ToLower(term))+"%"), nil
	case catalog.OpIExact:
		return goqu.L("? = ?", lowered, strings.ToLower(term)), nil
	case catalog.OpExact:
		if c.mysql {
			return goqu.L("BINARY ? = ?", goqu.C(col), term), nil
		}
		return goqu.C(col).Eq(term), nil
	}
	return nil, fmt.Errorf("operator %q not valid for text", op)
}

func compareColumn(col string, op catalog.Operator, v interface{}) (exp.Expression, error) {
	switch op {
	case catalog.OpExact:
		return goqu.C(col).Eq(v), nil
	case catalog.OpGte:
		return goqu.C(col).Gte(v), nil
	case catalog.OpLte:
		return goqu.C(col).Lte(v), nil
	}
	return nil, fmt.Errorf("operator %q not valid for %s", op, col)
}

// escapeLike 转义LIKE通配符,检索词中的%和_按字面匹配
func escapeLike(s string) string {
	r := strings.NewReplacer(likeEscape, likeEscape+likeEscape, "%", likeEscape+"%", "_", likeEscape+"_")
	return r.Replace(s)
}
