package catalog

import (
	"strconv"
	"strings"
	"time"
)

// 检索谓词
// 谓词是一棵封闭的树:叶子是Condition(字段, 运算符, 取值),
// 内部节点是And/Or/Not,外加MatchAll/MatchNone两个常量。
// 同一棵树既可以在内存中求值(Match),也可以由仓储编译成SQL。

// Field 可检索字段
type Field string

const (
	FieldTitle             Field = "title"
	FieldAuthor            Field = "author"
	FieldPublisher         Field = "publisher"
	FieldISBN              Field = "isbn"
	FieldDescription       Field = "description"
	FieldPublishedDate     Field = "published_date"
	FieldAvailableQuantity Field = "available_quantity"
	FieldTotalQuantity     Field = "total_quantity"

	// FieldAny 展开为所有文本字段的OR
	FieldAny Field = "any_field"
)

// TextFields 关键词检索覆盖的文本字段
var TextFields = []Field{FieldTitle, FieldPublisher, FieldAuthor, FieldDescription, FieldISBN}

// FieldKind 字段取值类型
type FieldKind int

const (
	KindText FieldKind = iota
	KindDate
	KindNumber
)

// Kind 返回字段类型,未知字段返回false
func (f Field) Kind() (FieldKind, bool) {
	switch f {
	case FieldTitle, FieldAuthor, FieldPublisher, FieldISBN, FieldDescription:
		return KindText, true
	case FieldPublishedDate:
		return KindDate, true
	case FieldAvailableQuantity, FieldTotalQuantity:
		return KindNumber, true
	}
	return 0, false
}

// Operator 比较运算符
type Operator string

const (
	OpContains   Operator = "icontains"
	OpIExact     Operator = "iexact"
	OpIStartWith Operator = "istartswith"
	OpExact      Operator = "exact"
	OpGte        Operator = "gte"
	OpLte        Operator = "lte"
)

func (op Operator) validFor(kind FieldKind) bool {
	switch kind {
	case KindText:
		return op == OpContains || op == OpIExact || op == OpIStartWith || op == OpExact
	default:
		return op == OpExact || op == OpGte || op == OpLte
	}
}

// Predicate 检索谓词(封闭集合,只有本包内的类型实现)
type Predicate interface {
	Match(b *Book) bool
	isPredicate()
}

// Condition 叶子谓词
// 按字段类型只有一个取值字段有效:Text / Date / Number
type Condition struct {
	Field  Field
	Op     Operator
	Text   string
	Date   time.Time
	Number int
}

// NewCondition 校验字段与运算符并解析取值
// op为空时文本字段默认icontains,其余默认exact
func NewCondition(field Field, op Operator, term string) (Condition, error) {
	kind, ok := field.Kind()
	if !ok {
		return Condition{}, ErrInvalidSearch
	}
	if op == "" {
		op = OpExact
		if kind == KindText {
			op = OpContains
		}
	}
	if !op.validFor(kind) {
		return Condition{}, ErrInvalidSearch
	}

	term = strings.TrimSpace(term)
	if term == "" {
		return Condition{}, ErrInvalidSearch
	}

	c := Condition{Field: field, Op: op}
	switch kind {
	case KindText:
		c.Text = term
	case KindDate:
		d, err := ParseDate(term)
		if err != nil {
			return Condition{}, ErrInvalidSearch
		}
		c.Date = d
	case KindNumber:
		n, err := strconv.Atoi(term)
		if err != nil {
			return Condition{}, ErrInvalidSearch
		}
		c.Number = n
	}
	return c, nil
}

func (c Condition) Match(b *Book) bool {
	kind, _ := c.Field.Kind()
	switch kind {
	case KindText:
		return matchText(c.Op, textOf(b, c.Field), c.Text)
	case KindDate:
		return compare(c.Op, DateOf(b.PublishedDate).Compare(c.Date))
	case KindNumber:
		n := b.AvailableQuantity
		if c.Field == FieldTotalQuantity {
			n = b.TotalQuantity
		}
		switch {
		case n < c.Number:
			return compare(c.Op, -1)
		case n > c.Number:
			return compare(c.Op, 1)
		}
		return compare(c.Op, 0)
	}
	return false
}

// And 两侧都满足
type And struct{ Left, Right Predicate }

func (p And) Match(b *Book) bool { return p.Left.Match(b) && p.Right.Match(b) }

// Or 任一侧满足
type Or struct{ Left, Right Predicate }

func (p Or) Match(b *Book) bool { return p.Left.Match(b) || p.Right.Match(b) }

// Not 取反
type Not struct{ Inner Predicate }

func (p Not) Match(b *Book) bool { return !p.Inner.Match(b) }

// MatchAll 匹配全部
type MatchAll struct{}

func (MatchAll) Match(*Book) bool { return true }

// MatchNone 不匹配任何记录
type MatchNone struct{}

func (MatchNone) Match(*Book) bool { return false }

func (Condition) isPredicate() {}
func (And) isPredicate()       {}
func (Or) isPredicate()        {}
func (Not) isPredicate()       {}
func (MatchAll) isPredicate()  {}
func (MatchNone) isPredicate() {}

// AllOf 从左到右AND折叠,空列表为MatchAll
func AllOf(ps ...Predicate) Predicate {
	if len(ps) == 0 {
		return MatchAll{}
	}
	acc := ps[0]
	for _, p := range ps[1:] {
		acc = And{Left: acc, Right: p}
	}
	return acc
}

// AnyOf 从左到右OR折叠,空列表为MatchNone
func AnyOf(ps ...Predicate) Predicate {
	if len(ps) == 0 {
		return MatchNone{}
	}
	acc := ps[0]
	for _, p := range ps[1:] {
		acc = Or{Left: acc, Right: p}
	}
	return acc
}

// =========================================
// 简单检索与高级检索
// =========================================

// Filters 简单检索参数,所有非空条件AND组合,全空时匹配全部
type Filters struct {
	Q                 string // 在所有文本字段中模糊匹配
	Title             string
	Author            string
	Publisher         string
	ISBN              string
	PublishedFrom     string // 含当天
	PublishedTo       string // 含当天
	AvailableQuantity string
}

// Predicate 构建谓词
func (f Filters) Predicate() (Predicate, error) {
	var parts []Predicate

	if q := strings.TrimSpace(f.Q); q != "" {
		p, err := anyField(OpContains, q)
		if err != nil {
			return nil, err
		}
		parts = append(parts, p)
	}

	optional := []struct {
		field Field
		op    Operator
		term  string
	}{
		{FieldTitle, OpContains, f.Title},
		{FieldAuthor, OpContains, f.Author},
		{FieldPublisher, OpContains, f.Publisher},
		{FieldISBN, OpContains, f.ISBN},
		{FieldPublishedDate, OpGte, f.PublishedFrom},
		{FieldPublishedDate, OpLte, f.PublishedTo},
		{FieldAvailableQuantity, OpExact, f.AvailableQuantity},
	}
	for _, o := range optional {
		if strings.TrimSpace(o.term) == "" {
			continue
		}
		c, err := NewCondition(o.field, o.op, o.term)
		if err != nil {
			return nil, err
		}
		parts = append(parts, c)
	}

	return AllOf(parts...), nil
}

// Logic 子句之间的逻辑连接
type Logic string

const (
	LogicAnd Logic = "AND"
	LogicOr  Logic = "OR"
	LogicNot Logic = "NOT" // AND NOT
)

// Clause 高级检索的一条子句
// Logic描述本子句与它之前所有子句的组合方式,取值AND/OR/NOT或空(按AND)
// 第一条子句前面没有子句,AND/OR不起作用,NOT对本子句取反
type Clause struct {
	Field    string
	Operator string
	Term     string
	Logic    string
}

// Query 高级检索请求
type Query struct {
	Clauses       []Clause
	PublishedFrom string
	PublishedTo   string
}

// IsEmpty 没有任何子句和日期范围
func (q Query) IsEmpty() bool {
	return len(q.Clauses) == 0 &&
		strings.TrimSpace(q.PublishedFrom) == "" &&
		strings.TrimSpace(q.PublishedTo) == ""
}

// Predicate 按输入顺序从左到右组合子句,再AND上出版日期范围
// 空请求不返回任何记录
func (q Query) Predicate() (Predicate, error) {
	if q.IsEmpty() {
		return MatchNone{}, nil
	}

	var acc Predicate
	for i, clause := range q.Clauses {
		p, err := clause.predicate()
		if err != nil {
			return nil, err
		}

		logic := Logic(strings.ToUpper(strings.TrimSpace(clause.Logic)))
		switch logic {
		case LogicAnd, LogicOr, LogicNot, "":
		default:
			return nil, ErrInvalidSearch
		}
		if i == 0 {
			if logic == LogicNot {
				p = Not{Inner: p}
			}
			acc = p
			continue
		}

		switch logic {
		case LogicAnd, "":
			acc = And{Left: acc, Right: p}
		case LogicOr:
			acc = Or{Left: acc, Right: p}
		case LogicNot:
			acc = And{Left: acc, Right: Not{Inner: p}}
		}
	}

	dates := Filters{PublishedFrom: q.PublishedFrom, PublishedTo: q.PublishedTo}
	datePred, err := dates.Predicate()
	if err != nil {
		return nil, err
	}
	if acc == nil {
		return datePred, nil
	}
	if _, all := datePred.(MatchAll); all {
		return acc, nil
	}
	return And{Left: acc, Right: datePred}, nil
}

func (c Clause) predicate() (Predicate, error) {
	field := Field(strings.ToLower(strings.TrimSpace(c.Field)))
	op := Operator(strings.ToLower(strings.TrimSpace(c.Operator)))
	if field == FieldAny {
		if op == "" {
			op = OpContains
		}
		return anyField(op, c.Term)
	}
	return NewCondition(field, op, c.Term)
}

func anyField(op Operator, term string) (Predicate, error) {
	parts := make([]Predicate, 0, len(TextFields))
	for _, f := range TextFields {
		cond, err := NewCondition(f, op, term)
		if err != nil {
			return nil, err
		}
		parts = append(parts, cond)
	}
	return AnyOf(parts...), nil
}

func textOf(b *Book, f Field) string {
	switch f {
	case FieldTitle:
		return b.Title
	case FieldAuthor:
		return b.Author
	case FieldPublisher:
		return b.Publisher
	case FieldISBN:
		return b.ISBN
	case FieldDescription:
		return b.Description
	}
	return ""
}

func matchText(op Operator, value, term string) bool {
	switch op {
	case OpContains:
		return strings.Contains(strings.ToLower(value), strings.ToLower(term))
	case OpIExact:
		return strings.EqualFold(value, term)
	case OpIStartWith:
		return strings.HasPrefix(strings.ToLower(value), strings.ToLower(term))
	case OpExact:
		return value == term
	}
	return false
}

// compare 按运算符解释三路比较结果
func compare(op Operator, cmp int) bool {
	switch op {
	case OpExact:
		return cmp == 0
	case OpGte:
		return cmp >= 0
	case OpLte:
		return cmp <= 0
	}
	return false
}
