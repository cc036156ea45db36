package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xiebiao/circulation/internal/application/circulation"
	"github.com/xiebiao/circulation/internal/interface/http/dto"
	apperrors "github.com/xiebiao/circulation/pkg/errors"
	"github.com/xiebiao/circulation/pkg/metrics"
	"github.com/xiebiao/circulation/pkg/response"
)

// CirculationHandler 借还HTTP处理器
// 借还用例本身不打日志、不记指标,由这一层负责
type CirculationHandler struct {
	checkoutUseCase *circulation.CheckoutUseCase
	checkinUseCase  *circulation.CheckinUseCase
}

// NewCirculationHandler 创建借还处理器
func NewCirculationHandler(
	checkoutUseCase *circulation.CheckoutUseCase,
	checkinUseCase *circulation.CheckinUseCase,
) *CirculationHandler {
	return &CirculationHandler{
		checkoutUseCase: checkoutUseCase,
		checkinUseCase:  checkinUseCase,
	}
}

// Checkout 借出一本
// @Summary      借出图书
// @Description  锁定馆藏行,在架数量-1并生成借阅记录
// @Tags         借还
// @Accept       json
// @Produce      json
// @Param        isbn    path string              true "ISBN"
// @Param        request body dto.CheckoutRequest true "借阅人"
// @Success      200 {object} response.Response{data=circulation.CheckoutResponse}
// @Failure      200 {object} response.Response "40900参数错误 40402图书不存在 40010无可借副本 50003事务失败 50004等锁超时"
// @Router       /api/v1/checkout/{isbn} [post]
func (h *CirculationHandler) Checkout(c *gin.Context) {
	var req dto.CheckoutRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, apperrors.WrapCode(err, apperrors.ErrCodeBindError, "malformed request"))
		return
	}

	done := metrics.TrackCirculation(metrics.OpCheckout)
	result, err := h.checkoutUseCase.Execute(c.Request.Context(), circulation.CheckoutRequest{
		ISBN:      c.Param("isbn"),
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
	})
	done(err)

	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMessage(c, dto.CheckoutMessage, result)
}

// Checkin 归还一本
// @Summary      归还图书
// @Description  锁定馆藏行,关闭该书最近一条未归还记录并在架数量+1
// @Tags         借还
// @Accept       json
// @Produce      json
// @Param        request body dto.CheckinRequest true "ISBN"
// @Success      200 {object} response.Response{data=circulation.CheckinResponse}
// @Failure      200 {object} response.Response "40900参数错误 40402图书不存在 40011未借出 40012无未归还记录"
// @Router       /api/v1/checkin [post]
func (h *CirculationHandler) Checkin(c *gin.Context) {
	var req dto.CheckinRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, apperrors.WrapCode(err, apperrors.ErrCodeBindError, "malformed request"))
		return
	}

	done := metrics.TrackCirculation(metrics.OpCheckin)
	result, err := h.checkinUseCase.Execute(c.Request.Context(), circulation.CheckinRequest{ISBN: req.ISBN})
	done(err)

	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMessage(c, dto.CheckinMessage, result)
}
