package serve

import (
	"math"
	"testing"

	"github.com/ValentinKolb/mRPC/rpc/common"
	"github.com/stretchr/testify/assert"
)

func TestBuiltins(t *testing.T) {
	adapter := NewBuiltinAdapter()

	tests := []struct {
		name string
		req  common.Request
		want common.Message
	}{
		{"ping", common.NewRequest(1, "ping"), common.NewResultResponse(1, common.String("pong"))},
		{"echo", common.NewRequest(2, "echo", common.Int(1), common.Nil{}),
			common.NewResultResponse(2, common.Array{common.Int(1), common.Nil{}})},
		{"echo empty", common.NewRequest(3, "echo"), common.NewResultResponse(3, common.Array{})},
		{"add", common.NewRequest(4, "add", common.Int(2), common.Int(2)), common.NewResultResponse(4, common.Int(4))},
		{"add negative", common.NewRequest(5, "add", common.Int(-5), common.Uint(2)), common.NewResultResponse(5, common.Int(-3))},
		{"add nothing", common.NewRequest(6, "add"), common.NewResultResponse(6, common.Int(0))},
		{"add large", common.NewRequest(7, "add", common.Uint(math.MaxUint64-1), common.Int(1)),
			common.NewResultResponse(7, common.Uint(math.MaxUint64))},
		{"add overflow", common.NewRequest(8, "add", common.Uint(math.MaxUint64), common.Int(1)),
			common.NewErrorResponse(8, common.String("add: overflow"))},
		{"add negative overflow", common.NewRequest(9, "add", common.Int(math.MinInt64), common.Int(-1)),
			common.NewErrorResponse(9, common.String("add: overflow"))},
		{"add string", common.NewRequest(10, "add", common.Int(1), common.String("2")),
			common.NewErrorResponse(10, common.String("add: param 1 is str, expected integer"))},
		{"unknown", common.NewRequest(11, "sub"), common.NewErrorResponse(11, common.String("method not found: sub"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := adapter.Handle(tt.req)
			assert.True(t, common.MessagesEqual(tt.want, got), "got %#v", got)
		})
	}

	assert.Nil(t, adapter.Handle(common.NewNotification("log", common.String("hello"), common.Array{})))
}
