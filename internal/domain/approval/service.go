package approval

import "context"

type ApprovalService interface {
	SubmitDispute(ctx context.Context, req SubmitDisputeRequest) (ItemResponse, error)
	Submit(ctx context.Context, req SubmitItemRequest) (ItemResponse, error)
	Approve(ctx context.Context, req DecisionRequest) (ItemResponse, error)
	Reject(ctx context.Context, req DecisionRequest) (ItemResponse, error)
	Get(ctx context.Context, id string) (ItemResponse, error)
	List(ctx context.Context, filter ItemFilter) (ListItemResponse, error)
}
