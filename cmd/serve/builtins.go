package serve

import (
	"errors"
	"fmt"
	"github.com/ValentinKolb/mRPC/rpc/common"
	"github.com/ValentinKolb/mRPC/rpc/server"
	"math"
	"strings"
)

// NewBuiltinAdapter returns an adapter with the methods served by the serve command:
//
//	ping         -> "pong"
//	echo(p...)   -> [p...]
//	add(i...)    -> sum of the integer params
//	log(p...)    notification, the params are logged
func NewBuiltinAdapter() *server.MethodServerAdapter {
	adapter := server.NewMethodServerAdapter()
	adapter.Register("ping", ping)
	adapter.Register("echo", echo)
	adapter.Register("add", add)
	adapter.RegisterNotification("log", logParams)
	return adapter
}

func ping([]common.Value) (common.Value, error) {
	return common.String("pong"), nil
}

func echo(params []common.Value) (common.Value, error) {
	return common.Array(params), nil
}

// add sums integers, the result must fit into an int64 or, if no param is negative, a uint64
func add(params []common.Value) (common.Value, error) {
	var neg bool
	for i, p := range params {
		n, ok := p.(common.Integer)
		if !ok {
			return nil, fmt.Errorf("add: param %d is %s, expected integer", i, p.Kind())
		}
		neg = neg || n.IsNegative()
	}

	if !neg {
		var sum uint64
		for _, p := range params {
			u, _ := p.(common.Integer).Uint64()
			if sum > math.MaxUint64-u {
				return nil, errors.New("add: overflow")
			}
			sum += u
		}
		return common.Uint(sum), nil
	}

	var sum int64
	for _, p := range params {
		v, ok := p.(common.Integer).Int64()
		if !ok {
			return nil, errors.New("add: overflow")
		}
		next := sum + v
		if (v > 0 && next < sum) || (v < 0 && next > sum) {
			return nil, errors.New("add: overflow")
		}
		sum = next
	}
	return common.Int(sum), nil
}

func logParams(params []common.Value) {
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = describe(p)
	}
	server.Logger.Infof("log: %s", strings.Join(parts, " "))
}

// describe renders a value for the log
func describe(v common.Value) string {
	switch x := v.(type) {
	case common.String:
		return string(x)
	case common.Integer:
		return x.String()
	case common.Float:
		return fmt.Sprintf("%g", float64(x))
	case common.Bool:
		return fmt.Sprintf("%t", bool(x))
	case common.Nil:
		return "nil"
	default:
		return fmt.Sprintf("<%s>", v.Kind())
	}
}
