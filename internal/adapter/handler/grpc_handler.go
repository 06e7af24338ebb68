package handler

import (
	"context"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/rl1809/shop-economy/internal/core/domain"
	"github.com/rl1809/shop-economy/internal/core/service"
)

const economyServiceName = "economy.v1.EconomyService"

// EconomyServer is the gRPC surface. Messages are google.protobuf.Struct.
type EconomyServer interface {
	Purchase(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Balances(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Inventory(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

var EconomyServiceDesc = grpc.ServiceDesc{
	ServiceName: economyServiceName,
	HandlerType: (*EconomyServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Purchase", Handler: unaryHandler("Purchase", EconomyServer.Purchase)},
		{MethodName: "Balances", Handler: unaryHandler("Balances", EconomyServer.Balances)},
		{MethodName: "Inventory", Handler: unaryHandler("Inventory", EconomyServer.Inventory)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "economy/v1/economy.proto",
}

func RegisterEconomyServer(s grpc.ServiceRegistrar, srv EconomyServer) {
	s.RegisterService(&EconomyServiceDesc, srv)
}

type unaryMethod func(EconomyServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(name string, method unaryMethod) func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	fullMethod := "/" + economyServiceName + "/" + name
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return method(srv.(EconomyServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return method(srv.(EconomyServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

type GRPCHandler struct {
	shop *service.ShopService
}

func NewGRPCHandler(shop *service.ShopService) *GRPCHandler {
	return &GRPCHandler{shop: shop}
}

func (h *GRPCHandler) Purchase(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()
	requestID := fields["request_id"].GetStringValue()
	entryID := fields["entry_id"].GetStringValue()
	if requestID == "" || entryID == "" {
		return nil, status.Error(codes.InvalidArgument, "request_id and entry_id are required")
	}

	receipt, err := h.shop.Purchase(ctx, requestID, entryID)
	if err != nil {
		var message string
		switch {
		case errors.Is(err, service.ErrDuplicateRequest):
			message = "duplicate request"
		case errors.Is(err, domain.ErrSoldOut):
			message = "sold out"
		case errors.Is(err, domain.ErrInsufficientFunds):
			message = "insufficient funds"
		case errors.Is(err, domain.ErrInvalidEntry):
			message = "unknown catalog entry"
		default:
			return nil, status.Error(codes.Internal, "internal error")
		}
		out := map[string]interface{}{
			"success": false,
			"message": message,
		}
		var perr *domain.PurchaseError
		if errors.As(err, &perr) && len(perr.Costs) > 0 {
			out["required"] = costValues(perr.Costs)
		}
		return structpb.NewStruct(out)
	}

	return structpb.NewStruct(map[string]interface{}{
		"success":    true,
		"message":    "purchase completed",
		"receipt_id": receipt.ID,
		"stock_left": float64(receipt.StockLeft),
	})
}

func (h *GRPCHandler) Balances(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	out := make(map[string]interface{})
	for id, amount := range h.shop.Balances() {
		out[string(id)] = float64(amount)
	}
	return structpb.NewStruct(out)
}

func (h *GRPCHandler) Inventory(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	out := make(map[string]interface{})
	for id, count := range h.shop.Inventory() {
		out[string(id)] = float64(count)
	}
	return structpb.NewStruct(out)
}

func costValues(lines []domain.CostLine) []interface{} {
	out := make([]interface{}, 0, len(lines))
	for _, l := range lines {
		out = append(out, map[string]interface{}{
			"currency": string(l.Currency),
			"amount":   float64(l.Amount),
		})
	}
	return out
}
