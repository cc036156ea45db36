package dto

// CheckoutRequest HTTP借出请求,ISBN在路径中
// 字段的业务校验(必填、邮箱格式)在应用层,这里只做绑定
type CheckoutRequest struct {
	FirstName string `json:"first_name" form:"first_name" example:"John"`
	LastName  string `json:"last_name" form:"last_name" example:"Doe"`
	Email     string `json:"email" form:"email" example:"john@example.com"`
}

// CheckinRequest HTTP归还请求
type CheckinRequest struct {
	ISBN string `json:"isbn" form:"isbn" example:"1234567890123"`
}

// 借还成功提示,与借书台页面一致
const (
	CheckoutMessage = "Thanks for checking out the book."
	CheckinMessage  = "Book checked in successfully."
)
