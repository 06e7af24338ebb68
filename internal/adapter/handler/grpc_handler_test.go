package handler

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

func newGRPCClient(t *testing.T) *grpc.ClientConn {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	RegisterEconomyServer(srv, NewGRPCHandler(newTestShop(t)))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func invoke(t *testing.T, conn *grpc.ClientConn, method string, in map[string]interface{}) (*structpb.Struct, error) {
	t.Helper()

	req, err := structpb.NewStruct(in)
	require.NoError(t, err)

	out := new(structpb.Struct)
	err = conn.Invoke(context.Background(), "/"+economyServiceName+"/"+method, req, out)
	return out, err
}

func TestGRPCPurchase(t *testing.T) {
	conn := newGRPCClient(t)

	out, err := invoke(t, conn, "Purchase", map[string]interface{}{"request_id": "r1", "entry_id": "potion-offer"})
	require.NoError(t, err)
	assert.True(t, out.GetFields()["success"].GetBoolValue())
	assert.NotEmpty(t, out.GetFields()["receipt_id"].GetStringValue())
	assert.Equal(t, float64(1), out.GetFields()["stock_left"].GetNumberValue())

	out, err = invoke(t, conn, "Purchase", map[string]interface{}{"request_id": "r1", "entry_id": "potion-offer"})
	require.NoError(t, err)
	assert.False(t, out.GetFields()["success"].GetBoolValue())
	assert.Equal(t, "duplicate request", out.GetFields()["message"].GetStringValue())

	out, err = invoke(t, conn, "Purchase", map[string]interface{}{"request_id": "r2", "entry_id": "sword-offer"})
	require.NoError(t, err)
	assert.Equal(t, "insufficient funds", out.GetFields()["message"].GetStringValue())

	out, err = invoke(t, conn, "Purchase", map[string]interface{}{"request_id": "r3", "entry_id": "elixir-offer"})
	require.NoError(t, err)
	assert.Equal(t, "sold out", out.GetFields()["message"].GetStringValue())
}

func TestGRPCPurchase_FailureListsRequiredCosts(t *testing.T) {
	conn := newGRPCClient(t)

	out, err := invoke(t, conn, "Purchase", map[string]interface{}{"request_id": "r1", "entry_id": "sword-offer"})
	require.NoError(t, err)
	assert.False(t, out.GetFields()["success"].GetBoolValue())

	required := out.GetFields()["required"].GetListValue().GetValues()
	require.Len(t, required, 1)
	line := required[0].GetStructValue().GetFields()
	assert.Equal(t, "gold", line["currency"].GetStringValue())
	assert.Equal(t, float64(100), line["amount"].GetNumberValue())

	out, err = invoke(t, conn, "Purchase", map[string]interface{}{"request_id": "r2", "entry_id": "nope"})
	require.NoError(t, err)
	assert.Equal(t, "unknown catalog entry", out.GetFields()["message"].GetStringValue())
	assert.NotContains(t, out.GetFields(), "required")
}

func TestGRPCPurchase_MissingFields(t *testing.T) {
	conn := newGRPCClient(t)

	_, err := invoke(t, conn, "Purchase", map[string]interface{}{"entry_id": "potion-offer"})
	require.Error(t, err)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestGRPCBalancesAndInventory(t *testing.T) {
	conn := newGRPCClient(t)

	_, err := invoke(t, conn, "Purchase", map[string]interface{}{"request_id": "r1", "entry_id": "potion-offer"})
	require.NoError(t, err)

	balances, err := invoke(t, conn, "Balances", nil)
	require.NoError(t, err)
	assert.Equal(t, float64(15), balances.GetFields()["gold"].GetNumberValue())

	inventory, err := invoke(t, conn, "Inventory", nil)
	require.NoError(t, err)
	assert.Equal(t, float64(1), inventory.GetFields()["potion"].GetNumberValue())
}
