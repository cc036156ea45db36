package dto

// AddBookRequest HTTP新书入库请求
type AddBookRequest struct {
	ISBN          string `json:"isbn" binding:"required,max=13" example:"9780134190440"`
	Title         string `json:"title" binding:"required,max=255" example:"The Go Programming Language"`
	Author        string `json:"author" binding:"max=255" example:"Alan A. A. Donovan"`
	Publisher     string `json:"publisher" binding:"max=255" example:"Addison-Wesley"`
	PublishedDate string `json:"published_date" example:"2015-10-26"` // 2006-01-02,留空为1900-01-01
	Quantity      int    `json:"quantity" binding:"min=0" example:"3"`
	Description   string `json:"description" example:"The authoritative resource to writing clear and idiomatic Go"`
	ImageURL      string `json:"image_url" binding:"omitempty,max=255" example:"https://example.com/cover.jpg"`
}

// SearchBooksQuery 简单检索的查询参数,所有非空条件AND组合
type SearchBooksQuery struct {
	Q                  string `form:"q" example:"go"`
	Title              string `form:"title"`
	Author             string `form:"author"`
	Publisher          string `form:"publisher"`
	ISBN               string `form:"isbn"`
	PublishedDateStart string `form:"published_date_start" example:"2010-01-01"`
	PublishedDateEnd   string `form:"published_date_end" example:"2020-12-31"`
	AvailableQuantity  string `form:"available_quantity"`
}

// SearchClause 高级检索子句
type SearchClause struct {
	Field    string `json:"field" example:"title"`        // title|author|publisher|isbn|description|published_date|available_quantity|total_quantity|any_field
	Operator string `json:"operator" example:"icontains"` // icontains|iexact|istartswith|exact|gte|lte
	Term     string `json:"term" example:"go"`
	Logic    string `json:"logic" example:"AND"` // AND|OR|NOT,与之前所有子句组合
}

// AdvancedSearchRequest 高级检索请求,子句按顺序从左到右组合
type AdvancedSearchRequest struct {
	Clauses            []SearchClause `json:"clauses"`
	PublishedDateStart string         `json:"published_date_start" example:"2010-01-01"`
	PublishedDateEnd   string         `json:"published_date_end" example:"2020-12-31"`
}
