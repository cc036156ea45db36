package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	appcatalog "github.com/xiebiao/circulation/internal/application/catalog"
	"github.com/xiebiao/circulation/internal/domain/catalog"
	"github.com/xiebiao/circulation/internal/interface/http/dto"
	apperrors "github.com/xiebiao/circulation/pkg/errors"
	"github.com/xiebiao/circulation/pkg/response"
)

// CatalogHandler 馆藏HTTP处理器
type CatalogHandler struct {
	addBookUseCase         *appcatalog.AddBookUseCase
	searchBooksUseCase     *appcatalog.SearchBooksUseCase
	getBookUseCase         *appcatalog.GetBookUseCase
	verifyInventoryUseCase *appcatalog.VerifyInventoryUseCase
}

// NewCatalogHandler 创建馆藏处理器
func NewCatalogHandler(
	addBookUseCase *appcatalog.AddBookUseCase,
	searchBooksUseCase *appcatalog.SearchBooksUseCase,
	getBookUseCase *appcatalog.GetBookUseCase,
	verifyInventoryUseCase *appcatalog.VerifyInventoryUseCase,
) *CatalogHandler {
	return &CatalogHandler{
		addBookUseCase:         addBookUseCase,
		searchBooksUseCase:     searchBooksUseCase,
		getBookUseCase:         getBookUseCase,
		verifyInventoryUseCase: verifyInventoryUseCase,
	}
}

// AddBook 新书入库
// @Summary      新书入库
// @Description  馆藏数量与在架数量都等于quantity
// @Tags         馆藏
// @Accept       json
// @Produce      json
// @Param        request body dto.AddBookRequest true "图书信息"
// @Success      200 {object} response.Response{data=appcatalog.BookView}
// @Router       /api/v1/books [post]
func (h *CatalogHandler) AddBook(c *gin.Context) {
	var req dto.AddBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithCode(c, apperrors.ErrCodeInvalidParams, "invalid parameters: "+err.Error())
		return
	}

	view, err := h.addBookUseCase.Execute(c.Request.Context(), appcatalog.AddBookRequest{
		ISBN:          req.ISBN,
		Title:         req.Title,
		Author:        req.Author,
		Publisher:     req.Publisher,
		PublishedDate: req.PublishedDate,
		Quantity:      req.Quantity,
		Description:   req.Description,
		ImageURL:      req.ImageURL,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, view)
}

// SearchBooks 简单检索
// @Summary      检索馆藏
// @Description  所有非空条件AND组合,不带条件返回全部;同时返回结果中未归还的借阅
// @Tags         馆藏
// @Produce      json
// @Param        q                    query string false "在书名、出版社、作者、简介、ISBN中模糊匹配"
// @Param        title                query string false "书名"
// @Param        author               query string false "作者"
// @Param        publisher            query string false "出版社"
// @Param        isbn                 query string false "ISBN"
// @Param        published_date_start query string false "出版日期起(含)"
// @Param        published_date_end   query string false "出版日期止(含)"
// @Param        available_quantity   query string false "在架数量"
// @Success      200 {object} response.Response{data=appcatalog.SearchBooksResponse}
// @Router       /api/v1/books [get]
func (h *CatalogHandler) SearchBooks(c *gin.Context) {
	var q dto.SearchBooksQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.ErrorWithCode(c, apperrors.ErrCodeInvalidParams, "invalid parameters: "+err.Error())
		return
	}

	result, err := h.searchBooksUseCase.Execute(c.Request.Context(), appcatalog.SearchBooksRequest{
		Filters: catalog.Filters{
			Q:                 q.Q,
			Title:             q.Title,
			Author:            q.Author,
			Publisher:         q.Publisher,
			ISBN:              q.ISBN,
			PublishedFrom:     q.PublishedDateStart,
			PublishedTo:       q.PublishedDateEnd,
			AvailableQuantity: q.AvailableQuantity,
		},
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// AdvancedSearch 高级检索
// @Summary      高级检索
// @Description  子句按输入顺序从左到右组合,NOT表示AND NOT;空请求不返回任何记录
// @Tags         馆藏
// @Accept       json
// @Produce      json
// @Param        request body dto.AdvancedSearchRequest true "检索子句"
// @Success      200 {object} response.Response{data=appcatalog.SearchBooksResponse}
// @Router       /api/v1/books/search [post]
func (h *CatalogHandler) AdvancedSearch(c *gin.Context) {
	var req dto.AdvancedSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithCode(c, apperrors.ErrCodeInvalidParams, "invalid parameters: "+err.Error())
		return
	}

	query := &catalog.Query{
		PublishedFrom: req.PublishedDateStart,
		PublishedTo:   req.PublishedDateEnd,
	}
	for _, cl := range req.Clauses {
		query.Clauses = append(query.Clauses, catalog.Clause{
			Field:    cl.Field,
			Operator: cl.Operator,
			Term:     cl.Term,
			Logic:    cl.Logic,
		})
	}

	result, err := h.searchBooksUseCase.Execute(c.Request.Context(), appcatalog.SearchBooksRequest{Query: query})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// GetBook 图书详情
// @Summary      图书详情
// @Description  馆藏记录及其未归还的借阅
// @Tags         馆藏
// @Produce      json
// @Param        id path int true "馆藏记录ID"
// @Success      200 {object} response.Response{data=appcatalog.BookPage}
// @Router       /api/v1/books/{id} [get]
func (h *CatalogHandler) GetBook(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, catalog.ErrBookNotFound)
		return
	}

	page, err := h.getBookUseCase.Execute(c.Request.Context(), uint(id))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, page)
}

// AuditInventory 库存核对
// @Summary      库存核对
// @Description  列出在架数量越界或借出数与未归还记录数不一致的馆藏
// @Tags         馆藏
// @Produce      json
// @Success      200 {object} response.Response{data=appcatalog.VerifyInventoryResponse}
// @Router       /api/v1/inventory/audit [get]
func (h *CatalogHandler) AuditInventory(c *gin.Context) {
	result, err := h.verifyInventoryUseCase.Execute(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}
