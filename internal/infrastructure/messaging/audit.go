package messaging

import (
	"fmt"
	"io"

	"github.com/xiebiao/circulation/internal/application/circulation"
	"github.com/xiebiao/circulation/pkg/mq"
)

// AuditHandler 消费借还事件并逐行写出(libctl events使用)
// 无法解码的消息返回错误,由Consumer重新入队
func AuditHandler(w io.Writer) mq.Handler {
	return func(routingKey string, body []byte) error {
		var e circulation.Event
		if err := mq.Decode(body, &e); err != nil {
			return fmt.Errorf("decode %s: %w", routingKey, err)
		}
		_, err := fmt.Fprintf(w, "%s\t%-11s\tbook=%d\tisbn=%s\tloan=%d\tavailable=%d/%d\t%s\n",
			e.OccurredAt.Format("2006-01-02 15:04:05"), e.Type, e.BookID, e.ISBN,
			e.LoanID, e.AvailableQuantity, e.TotalQuantity, e.BorrowerEmail)
		return err
	}
}
