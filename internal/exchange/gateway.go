package exchange

import "context"

// Gateway 提交单个委托并返回交易所回报，每次调用至多一次网络请求。
type Gateway interface {
	SubmitOrder(ctx context.Context, req OrderRequest) (OrderResponse, error)
}

var (
	_ Gateway = (*Client)(nil)
	_ Gateway = (*PaperGateway)(nil)
)
